// SPDX-License-Identifier: AGPL-3.0-or-later
package pubsub

import (
	"context"
	"fmt"

	"github.com/btaudio/btaudiod/internal/config"
)

// PubSub fans bus events (PCMAdded, PCMRemoved, PropertiesChanged, RFCOMM
// indications) out to every interested subscriber. internal/rpcbus is the
// only caller that publishes; internal/rpc's websocket relay is the only
// long-lived subscriber, but tests subscribe directly too.
type PubSub interface {
	Publish(ctx context.Context, topic string, message []byte) error
	Subscribe(ctx context.Context, topic string) Subscription
	Close() error
}

// Subscription is a single topic subscription. Channel is closed once
// Close has been called; callers must drain it to avoid leaking the
// forwarding goroutine in the Redis backend.
type Subscription interface {
	Close() error
	Channel() <-chan []byte
}

// MakePubSub builds the backend selected by cfg.PubSub.
func MakePubSub(ctx context.Context, cfg *config.Config) (PubSub, error) {
	if cfg.PubSub == config.PubSubBackendRedis {
		ps, err := makePubSubFromRedis(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis pubsub: %w", err)
		}
		return ps, nil
	}
	return makeInMemoryPubSub(), nil
}
