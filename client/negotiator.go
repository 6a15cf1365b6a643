package client

import (
	"github.com/pion/webrtc/v4"

	"github.com/starkhackai/voiceroom/client/rtc"
)

// Role is the side a session takes in the two-party exchange.
type Role int

const (
	// Initiator begins producing negotiation payloads on creation.
	Initiator Role = iota
	// Responder waits for the inbound offer before producing its own.
	Responder
)

func (r Role) String() string {
	if r == Initiator {
		return "initiator"
	}
	return "responder"
}

// Negotiator is the media-negotiation primitive for one remote peer.
// It consumes and produces opaque payloads and reports its transitions
// through the callbacks given at construction.
type Negotiator interface {
	// Offer starts the initiator exchange.
	Offer() error
	// Apply applies one inbound negotiation fragment.
	Apply(payload []byte) error
	Close()
}

// NegotiatorFactory builds one Negotiator per remote member.
type NegotiatorFactory func(role Role, local webrtc.TrackLocal, cb rtc.Callbacks) (Negotiator, error)

// PionNegotiators is the production factory, backed by rtc.Link.
func PionNegotiators(cfg webrtc.Configuration) NegotiatorFactory {
	return func(_ Role, local webrtc.TrackLocal, cb rtc.Callbacks) (Negotiator, error) {
		return rtc.NewLink(cfg, local, cb)
	}
}
