package client

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// SessionState is the lifecycle of one negotiation session.
type SessionState int

const (
	SessionCreated SessionState = iota
	SessionNegotiating
	SessionConnected
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionCreated:
		return "created"
	case SessionNegotiating:
		return "negotiating"
	case SessionConnected:
		return "connected"
	default:
		return "closed"
	}
}

// session is the client-local state for one remote member. One session
// per remote id, owned exclusively by the manager; state is guarded by
// the manager's mutex.
type session struct {
	remote string
	role   Role
	state  SessionState

	neg         Negotiator
	track       *webrtc.TrackRemote
	levelCancel context.CancelFunc
}
