// Package notify delivers payload-less signals from the pipeline to presentation sinks.
// Receivers re-read shared state on wakeup; signals carry no data.
package notify

import (
	"context"
	"errors"
	"sync"
)

// SignalUpdateTranslation tells sinks that a new translation is available.
const SignalUpdateTranslation = "UPDATE_TRANSLATION"

// Notifier sends a named signal.
type Notifier interface {
	Notify(ctx context.Context, signal string) error
}

// Broadcaster fans signals out to in-process subscribers. Each subscription
// holds at most one pending wakeup, so slow receivers never block the sender.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
	sent map[string]uint64
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[string]map[chan struct{}]struct{}),
		sent: make(map[string]uint64),
	}
}

// Subscribe registers for signal. Call the returned func to unsubscribe.
func (b *Broadcaster) Subscribe(signal string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	if b.subs[signal] == nil {
		b.subs[signal] = make(map[chan struct{}]struct{})
	}
	b.subs[signal][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[signal], ch)
			b.mu.Unlock()
		})
	}
}

// Notify implements Notifier. It never blocks.
func (b *Broadcaster) Notify(_ context.Context, signal string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent[signal]++
	for ch := range b.subs[signal] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Sent returns how many times signal was sent.
func (b *Broadcaster) Sent(signal string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sent[signal]
}

// Subscribers returns the number of live subscriptions for signal.
func (b *Broadcaster) Subscribers(signal string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[signal])
}

// Multi sends each signal to every notifier, joining their errors.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, signal string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, signal); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
