package moa

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "moa:"

// RedisStore keeps records in Redis so they survive server restarts.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, address, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         address,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Create(ctx context.Context, chatInstance, address, publicKey string) (*Record, error) {
	rec := &Record{
		ChatInstance: chatInstance,
		Status:       StatusPending,
		CreatedAt:    time.Now().UTC(),
		Participants: []Participant{{Address: address, PublicKey: publicKey}},
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	// SetNX gives the same all-or-nothing create as the memory store.
	ok, err := s.client.SetNX(ctx, keyPrefix+chatInstance, b, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("redis create: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyExists
	}
	return rec, nil
}

func (s *RedisStore) Exists(ctx context.Context, chatInstance string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+chatInstance).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
