// Package signal is the websocket signaling adapter: it validates message
// shape and dispatches to the presence registry. It performs no
// negotiation logic of its own.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/starkhackai/voiceroom/internal/config"
	"github.com/starkhackai/voiceroom/internal/core"
	"github.com/starkhackai/voiceroom/internal/domain"
	"github.com/starkhackai/voiceroom/internal/presence"
)

type Controller struct {
	Registry *presence.Registry

	sendBuffer   int
	writeTimeout time.Duration
	msgRate      rate.Limit
	msgBurst     int
}

func NewController(cfg *config.Config, registry *presence.Registry) *Controller {
	return &Controller{
		Registry:     registry,
		sendBuffer:   cfg.SendBuffer,
		writeTimeout: cfg.WriteTimeout,
		msgRate:      rate.Limit(cfg.MsgRate),
		msgBurst:     cfg.MsgBurst,
	}
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// binding is the (room, user) a connection last joined as. Touched only
// from the read loop goroutine.
type binding struct {
	room domain.RoomID
	user domain.UserID
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")
	log.Info().Str("module", "signal").Str("token", token).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.sendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, conn)
	}()
}
