package moa

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process fallback store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Create(_ context.Context, chatInstance, address, publicKey string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[chatInstance]; ok {
		return nil, ErrAlreadyExists
	}
	rec := &Record{
		ChatInstance: chatInstance,
		Status:       StatusPending,
		CreatedAt:    time.Now().UTC(),
		Participants: []Participant{{Address: address, PublicKey: publicKey}},
	}
	s.records[chatInstance] = rec
	return rec, nil
}

func (s *MemoryStore) Exists(_ context.Context, chatInstance string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[chatInstance]
	return ok, nil
}

func (s *MemoryStore) Close() error { return nil }
