package moa

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/starkhackai/voiceroom/internal/config"
)

// NewStore picks the Redis store when configured and reachable, falling
// back to the in-memory store otherwise.
func NewStore(ctx context.Context, cfg *config.Config) Store {
	if cfg.Redis.Enabled {
		store, err := NewRedisStore(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Str("module", "moa").Msg("redis unavailable, falling back to memory store")
		} else {
			log.Info().Str("module", "moa").Str("address", cfg.Redis.Address).Msg("using redis store")
			return store
		}
	}
	log.Info().Str("module", "moa").Msg("using memory store")
	return NewMemoryStore()
}
