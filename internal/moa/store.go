// Package moa stores the multi-owner-account creation record attached to a
// chat instance. Plain CRUD glue; no wallet or signing logic lives here.
package moa

import (
	"context"
	"errors"
	"time"
)

const StatusPending = "PENDING"

var (
	ErrAlreadyExists = errors.New("moa already exists for chat instance")
	ErrNotFound      = errors.New("moa not found")
)

type Participant struct {
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
}

type Record struct {
	ChatInstance string        `json:"chatInstance"`
	Status       string        `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	Participants []Participant `json:"participants"`
}

// Store persists MOA records. Create is all-or-nothing: after it returns
// the record with its first participant exists, or nothing does.
type Store interface {
	Create(ctx context.Context, chatInstance, address, publicKey string) (*Record, error)
	Exists(ctx context.Context, chatInstance string) (bool, error)
	Close() error
}
