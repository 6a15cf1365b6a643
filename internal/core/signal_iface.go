package core

import "errors"

// Frame is a raw signaling payload, already encoded for the wire.
type Frame []byte

// ErrBackpressure is returned by TrySend when the send buffer is full.
var ErrBackpressure = errors.New("backpressure")

// SignalConnection abstracts a member's messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend enqueues a frame without blocking.
	TrySend(Frame) error
	Close()
}
