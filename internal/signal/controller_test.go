package signal_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starkhackai/voiceroom/internal/config"
	"github.com/starkhackai/voiceroom/internal/presence"
	"github.com/starkhackai/voiceroom/internal/signal"
)

type serverMsg struct {
	Type    string          `json:"type"`
	UserID  string          `json:"userId"`
	RoomID  string          `json:"roomId"`
	Members []string        `json:"members"`
	Count   int             `json:"count"`
	Signal  json.RawMessage `json:"signal"`
	Error   string          `json:"error"`
}

func newSignalServer(t *testing.T) (*httptest.Server, *presence.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		SendBuffer:   32,
		WriteTimeout: 5 * time.Second,
		MsgRate:      100,
		MsgBurst:     200,
	}
	registry := presence.NewRegistry(nil)
	ctl := signal.NewController(cfg, registry)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := gin.New()
	r.GET("/ws/signal", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, registry
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/signal"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func recv(t *testing.T, conn *websocket.Conn) serverMsg {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg serverMsg
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func join(t *testing.T, conn *websocket.Conn, room, user string) serverMsg {
	t.Helper()
	send(t, conn, map[string]string{"type": "join", "roomId": room, "userId": user})
	msg := recv(t, conn)
	require.Equal(t, "room-state", msg.Type)
	require.Equal(t, len(msg.Members), msg.Count, "count must match the member list it was read with")
	return msg
}

func TestSignalingSession(t *testing.T) {
	srv, registry := newSignalServer(t)

	wsA := dial(t, srv)
	state := join(t, wsA, "r1", "alice")
	assert.Equal(t, []string{"alice"}, state.Members)
	assert.Equal(t, 1, state.Count)

	wsB := dial(t, srv)
	state = join(t, wsB, "r1", "bob")
	assert.ElementsMatch(t, []string{"alice", "bob"}, state.Members)
	assert.Equal(t, 2, state.Count)

	// The member already in the room hears about the newcomer.
	ev := recv(t, wsA)
	assert.Equal(t, "member-joined", ev.Type)
	assert.Equal(t, "bob", ev.UserID)

	// Addressed negotiation payload passes through untouched.
	payload := json.RawMessage(`{"kind":"offer","sdp":"v=0"}`)
	send(t, wsA, map[string]any{"type": "signal", "target": "bob", "signal": payload})
	ev = recv(t, wsB)
	assert.Equal(t, "signal", ev.Type)
	assert.Equal(t, "alice", ev.UserID)
	assert.JSONEq(t, string(payload), string(ev.Signal))

	// Abrupt close counts as a leave for the remaining member.
	require.NoError(t, wsA.Close())
	ev = recv(t, wsB)
	assert.Equal(t, "member-left", ev.Type)
	assert.Equal(t, "alice", ev.UserID)
	assert.Eventually(t, func() bool {
		return registry.MemberCount("r1") == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Explicit leave keeps the socket usable and discards the room.
	send(t, wsB, map[string]string{"type": "leave"})
	ev = recv(t, wsB)
	assert.Equal(t, "left", ev.Type)
	assert.Eventually(t, func() bool {
		return len(registry.Rooms()) == 0
	}, 2*time.Second, 10*time.Millisecond)

	send(t, wsB, map[string]string{"type": "ping"})
	assert.Equal(t, "pong", recv(t, wsB).Type)
}

func TestMalformedMessagesAreDropped(t *testing.T) {
	srv, _ := newSignalServer(t)
	ws := dial(t, srv)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	send(t, ws, map[string]string{"type": "mystery"})
	send(t, ws, map[string]string{"type": "signal", "target": "bob"})

	// Connection survives all of the above.
	send(t, ws, map[string]string{"type": "ping"})
	assert.Equal(t, "pong", recv(t, ws).Type)
}

func TestJoinRejectsInvalidIdentifiers(t *testing.T) {
	srv, registry := newSignalServer(t)
	ws := dial(t, srv)

	send(t, ws, map[string]string{"type": "join", "roomId": "r1"})
	msg := recv(t, ws)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "bad user id", msg.Error)

	send(t, ws, map[string]string{"type": "join", "userId": "alice"})
	msg = recv(t, ws)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "bad room id", msg.Error)

	assert.Empty(t, registry.Rooms())
}

func TestRejoinReplacesPreviousConnection(t *testing.T) {
	srv, registry := newSignalServer(t)

	old := dial(t, srv)
	join(t, old, "r1", "alice")

	fresh := dial(t, srv)
	join(t, fresh, "r1", "alice")
	assert.Equal(t, 1, registry.MemberCount("r1"))

	// The replaced socket is closed by the server; its read loop sees EOF.
	require.NoError(t, old.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := old.ReadMessage()
	assert.Error(t, err)

	// And its teardown must not have evicted the fresh connection.
	assert.Eventually(t, func() bool {
		return registry.MemberCount("r1") == 1
	}, 2*time.Second, 10*time.Millisecond)
	send(t, fresh, map[string]string{"type": "ping"})
	assert.Equal(t, "pong", recv(t, fresh).Type)
}

func TestConnectionSwitchesRooms(t *testing.T) {
	srv, registry := newSignalServer(t)
	ws := dial(t, srv)

	join(t, ws, "r1", "alice")
	state := join(t, ws, "r2", "alice")
	assert.Equal(t, "r2", state.RoomID)

	assert.Equal(t, 0, registry.MemberCount("r1"))
	assert.Equal(t, 1, registry.MemberCount("r2"))
}
