// SPDX-License-Identifier: AGPL-3.0-or-later
package rpcbus

import (
	"context"
	"fmt"

	"github.com/btaudio/btaudiod/internal/pubsub"
)

// Topic is the single pubsub topic every signal is published to; RPC's
// websocket relay subscribes here (spec §4.7: "every RPC signal
// (PCMAdded/PCMRemoved/PropertiesChanged) is a /org/bluealsa/events
// websocket broadcast").
const Topic = "/org/bluealsa/events"

// Bus publishes Events over a pubsub.PubSub backend and decodes them again
// for subscribers. Callers are responsible for the ordering guarantee in
// spec §5 ("PCMAdded... precedes any property-change signal... PCMRemoved
// is the last signal") by invoking the Publish* helpers in the right
// sequence from a single goroutine per object's lifecycle.
type Bus struct {
	ps pubsub.PubSub
}

func New(ps pubsub.PubSub) *Bus {
	return &Bus{ps: ps}
}

// Publish encodes ev with msgp and publishes it to Topic.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	raw, err := ev.MarshalMsg(nil)
	if err != nil {
		return fmt.Errorf("rpcbus: marshal event: %w", err)
	}
	return b.ps.Publish(ctx, Topic, raw)
}

func (b *Bus) PublishPCMAdded(ctx context.Context, path string, props map[string]string) error {
	return b.Publish(ctx, Event{Path: path, Kind: KindPCMAdded, Properties: props})
}

func (b *Bus) PublishPCMRemoved(ctx context.Context, path string) error {
	return b.Publish(ctx, Event{Path: path, Kind: KindPCMRemoved})
}

func (b *Bus) PublishPropertiesChanged(ctx context.Context, path string, props map[string]string) error {
	return b.Publish(ctx, Event{Path: path, Kind: KindPropertiesChanged, Properties: props})
}

func (b *Bus) PublishRFCOMMIndication(ctx context.Context, path, raw string) error {
	return b.Publish(ctx, Event{Path: path, Kind: KindRFCOMMIndication, Properties: map[string]string{"raw": raw}})
}

// Subscription is a decoded view over a pubsub.Subscription.
type Subscription struct {
	sub pubsub.Subscription
}

// Subscribe opens a Topic subscription. Callers must call Close.
func (b *Bus) Subscribe(ctx context.Context) *Subscription {
	return &Subscription{sub: b.ps.Subscribe(ctx, Topic)}
}

func (s *Subscription) Close() error {
	return s.sub.Close()
}

// Events returns a channel of decoded Events; malformed payloads are
// dropped rather than panicking the relay goroutine.
func (s *Subscription) Events() <-chan Event {
	out := make(chan Event, cap(s.sub.Channel()))
	go func() {
		defer close(out)
		for raw := range s.sub.Channel() {
			var ev Event
			if _, err := ev.UnmarshalMsg(raw); err != nil {
				continue
			}
			out <- ev
		}
	}()
	return out
}
