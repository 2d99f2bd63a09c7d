package notify

import (
	"context"
	"sync"
)

// Bus is an in-process [Publisher] that fans events out to subscriber
// channels. Subscribers that fall behind lose events rather than blocking
// the pipeline; transports with delivery guarantees live behind their own
// Publisher implementations.
//
// All methods are safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	created  []chan SegmentCreated
	computed []chan ScoresComputed
}

// Compile-time interface check.
var _ Publisher = (*Bus)(nil)

// NewBus creates an empty in-process event bus.
func NewBus() *Bus {
	return &Bus{}
}

// SubscribeSegmentCreated registers a buffered subscription for segment
// created events. The returned cancel function removes the subscription and
// closes the channel.
func (b *Bus) SubscribeSegmentCreated(buffer int) (<-chan SegmentCreated, func()) {
	ch := make(chan SegmentCreated, buffer)
	b.mu.Lock()
	b.created = append(b.created, ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, c := range b.created {
			if c == ch {
				b.created = append(b.created[:i], b.created[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// SubscribeScoresComputed registers a buffered subscription for scores
// computed events. The returned cancel function removes the subscription and
// closes the channel.
func (b *Bus) SubscribeScoresComputed(buffer int) (<-chan ScoresComputed, func()) {
	ch := make(chan ScoresComputed, buffer)
	b.mu.Lock()
	b.computed = append(b.computed, ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, c := range b.computed {
			if c == ch {
				b.computed = append(b.computed[:i], b.computed[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// PublishSegmentCreated delivers ev to every subscriber with buffer space.
func (b *Bus) PublishSegmentCreated(ctx context.Context, ev SegmentCreated) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.created {
		select {
		case ch <- ev:
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

// PublishScoresComputed delivers ev to every subscriber with buffer space.
func (b *Bus) PublishScoresComputed(ctx context.Context, ev ScoresComputed) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.computed {
		select {
		case ch <- ev:
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}
