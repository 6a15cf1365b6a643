package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/starkhackai/voiceroom/internal/core"
	"github.com/starkhackai/voiceroom/internal/domain"
)

// envelope is the client→server message shape. Signal stays opaque here;
// the server only routes it.
type envelope struct {
	Type   string          `json:"type"`
	UserID domain.UserID   `json:"userId,omitempty"`
	RoomID domain.RoomID   `json:"roomId,omitempty"`
	Target domain.UserID   `json:"target,omitempty"`
	Signal json.RawMessage `json:"signal,omitempty"`
}

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.writeTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump processes inbound messages in arrival order. On exit the
// connection's membership is removed exactly once via Disconnect.
func (ctl *Controller) readPump(ctx context.Context, c *wsConn) {
	var bound *binding
	limiter := rate.NewLimiter(ctl.msgRate, ctl.msgBurst)

	defer func() {
		if bound != nil {
			_, dropped := ctl.Registry.Disconnect(bound.room, bound.user, c)
			ctl.kickSlow(dropped)
		}
		c.Close()
		log.Info().Str("module", "signal").Msg("readPump closed")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("readPump read error")
				return
			}
			if !limiter.Allow() {
				log.Warn().Str("module", "signal").Msg("message rate exceeded, dropping")
				continue
			}
			bound = ctl.handleMessage(bound, c, data)
		}
	}
}

// handleMessage dispatches one envelope and returns the (possibly updated)
// room binding. Malformed messages are dropped with a warning, never fatal.
func (ctl *Controller) handleMessage(bound *binding, c *wsConn, data []byte) *binding {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad json")
		return bound
	}

	switch env.Type {
	case "join":
		return ctl.handleJoin(bound, c, env)
	case "leave":
		return ctl.handleLeave(bound, c)
	case "signal":
		ctl.handleRelay(bound, env)
		return bound
	case "ping":
		ctl.sendJSON(c, map[string]string{"type": "pong"})
		return bound
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		return bound
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

// kickSlow applies the backpressure policy: a member that cannot keep up
// with room events is disconnected rather than allowed to stall the room.
func (ctl *Controller) kickSlow(dropped []core.SignalConnection) {
	for _, conn := range dropped {
		log.Warn().Str("module", "signal").Msg("closing slow connection")
		conn.Close()
	}
}
