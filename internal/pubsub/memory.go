// SPDX-License-Identifier: AGPL-3.0-or-later
package pubsub

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

const memorySubBuffer = 32

func makeInMemoryPubSub() PubSub {
	return &inMemoryPubSub{
		topics: xsync.NewMap[string, *topicSubs](),
	}
}

type topicSubs struct {
	mu   sync.Mutex
	subs map[int64]chan []byte
	next int64
}

type inMemoryPubSub struct {
	topics *xsync.Map[string, *topicSubs]
}

func (ps *inMemoryPubSub) Publish(_ context.Context, topic string, message []byte) error {
	t, ok := ps.topics.Load(topic)
	if !ok {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subs {
		select {
		case ch <- message:
		default:
			// slow subscriber, drop rather than block the publisher
		}
	}
	return nil
}

func (ps *inMemoryPubSub) Subscribe(_ context.Context, topic string) Subscription {
	t, _ := ps.topics.LoadOrCompute(topic, func() (*topicSubs, bool) {
		return &topicSubs{subs: make(map[int64]chan []byte)}, false
	})

	t.mu.Lock()
	id := t.next
	t.next++
	ch := make(chan []byte, memorySubBuffer)
	t.subs[id] = ch
	t.mu.Unlock()

	return &inMemorySubscription{topic: t, id: id, ch: ch}
}

func (ps *inMemoryPubSub) Close() error {
	return nil
}

type inMemorySubscription struct {
	topic *topicSubs
	id    int64
	ch    chan []byte
}

func (s *inMemorySubscription) Close() error {
	s.topic.mu.Lock()
	delete(s.topic.subs, s.id)
	s.topic.mu.Unlock()
	close(s.ch)
	return nil
}

func (s *inMemorySubscription) Channel() <-chan []byte {
	return s.ch
}
