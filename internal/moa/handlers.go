package moa

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// CreateHandler handles POST /api/moa.
func CreateHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ChatInstance string `json:"chatInstance"`
			Address      string `json:"address"`
			PublicKey    string `json:"publicKey"`
		}
		if err := c.BindJSON(&req); err != nil ||
			req.ChatInstance == "" || req.Address == "" || req.PublicKey == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "chat instance, address and public key are required",
			})
			return
		}

		rec, err := store.Create(c.Request.Context(), req.ChatInstance, req.Address, req.PublicKey)
		if errors.Is(err, ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "moa already exists"})
			return
		}
		if err != nil {
			log.Error().Err(err).Str("module", "moa").Msg("create failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// CheckHandler handles GET /api/moa/check?chatInstance=...
func CheckHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		chatInstance := c.Query("chatInstance")
		if chatInstance == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chat instance is required"})
			return
		}
		exists, err := store.Exists(c.Request.Context(), chatInstance)
		if err != nil {
			log.Error().Err(err).Str("module", "moa").Msg("check failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"exists": exists})
	}
}
