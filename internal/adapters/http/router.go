package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/starkhackai/voiceroom/internal/config"
	"github.com/starkhackai/voiceroom/internal/domain"
	"github.com/starkhackai/voiceroom/internal/moa"
	"github.com/starkhackai/voiceroom/internal/presence"
	"github.com/starkhackai/voiceroom/internal/signal"
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware tags each browser with a stable token for logs.
// Identity itself comes from the join message and is trusted as-is.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	registry *presence.Registry,
	ctl *signal.Controller,
	moaStore moa.Store,
) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("VoiceroomSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": registry.Rooms()})
	})

	api.GET("/rooms/:id", func(c *gin.Context) {
		id := domain.RoomID(c.Param("id"))
		members := registry.Snapshot(id)
		c.JSON(http.StatusOK, gin.H{
			"id":          id,
			"members":     members,
			"memberCount": len(members),
		})
	})

	api.POST("/moa", moa.CreateHandler(moaStore))
	api.GET("/moa/check", moa.CheckHandler(moaStore))

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").
			Str("token", c.GetString("client_token")).
			Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	return r
}
