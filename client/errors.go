package client

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyStarted is returned by Start when the manager is not Idle.
	ErrAlreadyStarted = errors.New("voice session already started")
	// ErrStopped is returned by Start when Stop raced the join.
	ErrStopped = errors.New("voice session stopped during join")
)

// MediaAcquisitionError means the microphone was denied or unavailable.
// The join is aborted with no partial state left behind.
type MediaAcquisitionError struct {
	Err error
}

func (e *MediaAcquisitionError) Error() string { return "media acquisition: " + e.Err.Error() }
func (e *MediaAcquisitionError) Unwrap() error { return e.Err }

// TransportError means the signaling connection itself failed; the whole
// room session is torn down and the UI may offer a rejoin.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "signaling transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// NegotiationError means one specific pairing failed. Only that session
// is lost; other sessions and room membership are unaffected.
type NegotiationError struct {
	Remote string
	Err    error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("negotiation with %s: %v", e.Remote, e.Err)
}
func (e *NegotiationError) Unwrap() error { return e.Err }
