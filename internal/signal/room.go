package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/starkhackai/voiceroom/internal/domain"
)

func (ctl *Controller) handleJoin(bound *binding, c *wsConn, env envelope) *binding {
	if err := env.UserID.Validate(); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad join user id")
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "bad user id"})
		return bound
	}
	if err := env.RoomID.Validate(); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad join room id")
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "bad room id"})
		return bound
	}

	// A connection holds one membership at a time; joining again while
	// bound elsewhere leaves the old room first.
	if bound != nil && (bound.room != env.RoomID || bound.user != env.UserID) {
		_, dropped := ctl.Registry.Leave(bound.room, bound.user)
		ctl.kickSlow(dropped)
	}

	res := ctl.Registry.Join(env.RoomID, env.UserID, c)
	if res.Replaced != nil && res.Replaced != c {
		// Last writer wins; the stale handle gets closed and its read
		// loop exits without evicting the new one.
		res.Replaced.Close()
	}
	ctl.kickSlow(res.Dropped)

	log.Info().Str("module", "signal").
		Str("room", string(env.RoomID)).Str("user", string(env.UserID)).
		Msg("join")

	// One read for both fields, so a concurrent mutation cannot make the
	// count disagree with the member list.
	members := ctl.Registry.Snapshot(env.RoomID)
	ctl.sendJSON(c, struct {
		Type    string          `json:"type"`
		RoomID  domain.RoomID   `json:"roomId"`
		Members []domain.UserID `json:"members"`
		Count   int             `json:"count"`
	}{
		Type:    "room-state",
		RoomID:  env.RoomID,
		Members: members,
		Count:   len(members),
	})

	return &binding{room: env.RoomID, user: env.UserID}
}

// handleLeave removes the membership but keeps the connection open, so the
// client can join another room without reconnecting.
func (ctl *Controller) handleLeave(bound *binding, c *wsConn) *binding {
	if bound == nil {
		return nil
	}
	log.Info().Str("module", "signal").
		Str("room", string(bound.room)).Str("user", string(bound.user)).
		Msg("leave")

	_, dropped := ctl.Registry.Leave(bound.room, bound.user)
	ctl.kickSlow(dropped)
	ctl.sendJSON(c, map[string]any{"type": "left"})
	return nil
}

func (ctl *Controller) handleRelay(bound *binding, env envelope) {
	if bound == nil {
		log.Warn().Str("module", "signal").Msg("signal before join, dropping")
		return
	}
	if env.Target == "" || len(env.Signal) == 0 {
		log.Warn().Str("module", "signal").Msg("malformed signal message, dropping")
		return
	}
	// Absent target is not an error: it may have already left the room.
	ctl.Registry.Relay(bound.room, bound.user, env.Target, env.Signal)
}
