// SPDX-License-Identifier: AGPL-3.0-or-later
package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/btaudio/btaudiod/internal/config"
)

// KV is the shared key-value store used for cross-process state: XAPL
// battery levels and negotiated RFCOMM feature masks, shared between daemon
// instances when they use a Redis backend. Device-local state lives in
// internal/graph instead.
type KV interface {
	Has(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)
	Close() error
}

// MakeKV creates a new key-value store client.
func MakeKV(ctx context.Context, cfg *config.Config) (KV, error) {
	if cfg.Redis.Enabled {
		redisKV, err := makeRedisKV(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis kv: %w", err)
		}
		return redisKV, nil
	}
	return makeInMemoryKV(), nil
}
