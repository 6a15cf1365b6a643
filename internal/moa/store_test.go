package moa

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCreateAndExists(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	exists, err := s.Exists(ctx, "chat-1")
	require.NoError(t, err)
	assert.False(t, exists)

	rec, err := s.Create(ctx, "chat-1", "0xabc", "pk1")
	require.NoError(t, err)
	assert.Equal(t, "chat-1", rec.ChatInstance)
	assert.Equal(t, StatusPending, rec.Status)
	require.Len(t, rec.Participants, 1)
	assert.Equal(t, "0xabc", rec.Participants[0].Address)
	assert.False(t, rec.CreatedAt.IsZero())

	exists, err = s.Exists(ctx, "chat-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryStoreRejectsDuplicate(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	_, err := s.Create(ctx, "chat-1", "0xabc", "pk1")
	require.NoError(t, err)

	_, err = s.Create(ctx, "chat-1", "0xdef", "pk2")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func newMoaRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/moa", CreateHandler(store))
	r.GET("/api/moa/check", CheckHandler(store))
	return r
}

func TestCreateHandler(t *testing.T) {
	r := newMoaRouter(NewMemoryStore())

	do := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/moa", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := do(`{"chatInstance":"chat-1","address":"0xabc","publicKey":"pk1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), StatusPending)

	w = do(`{"chatInstance":"chat-1","address":"0xdef","publicKey":"pk2"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(`{"chatInstance":"chat-2"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(`not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckHandler(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Create(context.Background(), "chat-1", "0xabc", "pk1")
	require.NoError(t, err)
	r := newMoaRouter(store)

	do := func(url string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		return w
	}

	w := do("/api/moa/check?chatInstance=chat-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"exists":true}`, w.Body.String())

	w = do("/api/moa/check?chatInstance=chat-2")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"exists":false}`, w.Body.String())

	w = do("/api/moa/check")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
