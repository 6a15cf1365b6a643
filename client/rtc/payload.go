package rtc

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
)

// Negotiation payload kinds. The server never sees these: payloads travel
// through the relay as opaque bytes and only clients interpret them.
const (
	KindOffer     = "offer"
	KindAnswer    = "answer"
	KindCandidate = "candidate"
)

// Payload is one negotiation fragment: an SDP exchange or a trickled
// ICE candidate.
type Payload struct {
	Kind      string                   `json:"kind"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

// IsOffer reports whether a raw payload is the session-initiating kind.
// Anything unparseable is not an offer.
func IsOffer(raw []byte) bool {
	var p struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return false
	}
	return p.Kind == KindOffer
}
