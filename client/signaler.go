package client

import (
	"context"
	"encoding/json"
)

// Server→client event types, mirrored from the presence registry.
const (
	eventRoomState    = "room-state"
	eventMemberJoined = "member-joined"
	eventMemberLeft   = "member-left"
	eventSignal       = "signal"
)

// Envelope is the client→server message shape.
type Envelope struct {
	Type   string          `json:"type"`
	UserID string          `json:"userId,omitempty"`
	RoomID string          `json:"roomId,omitempty"`
	Target string          `json:"target,omitempty"`
	Signal json.RawMessage `json:"signal,omitempty"`
}

// Event is one server→client room event.
type Event struct {
	Type    string          `json:"type"`
	UserID  string          `json:"userId,omitempty"`
	RoomID  string          `json:"roomId,omitempty"`
	Members []string        `json:"members,omitempty"`
	Signal  json.RawMessage `json:"signal,omitempty"`
}

// Signaler is the signaling transport. Events are delivered in arrival
// order on a single channel; the channel closes when the transport drops.
type Signaler interface {
	Send(Envelope) error
	Events() <-chan Event
	Close()
}

// Dialer opens a Signaler against a server URL.
type Dialer func(ctx context.Context, url string) (Signaler, error)
