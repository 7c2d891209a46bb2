package registration

import (
	"context"
	"sync"
	"time"
)

// Throttle enforces a minimum interval between outbound broker calls,
// independently per key (one key per tenant). A zero or negative interval
// disables throttling.
type Throttle struct {
	interval time.Duration

	mu   sync.Mutex
	next map[string]time.Time // key -> earliest time the next call may start
}

// NewThrottle creates a throttle with the given minimum inter-call
// interval.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		interval: interval,
		next:     make(map[string]time.Time),
	}
}

// Wait blocks until the key's slot is available or the context is done.
// Slots are reserved on entry, so concurrent callers queue up at interval
// spacing rather than racing for the same slot.
func (t *Throttle) Wait(ctx context.Context, key string) error {
	if t == nil || t.interval <= 0 {
		return ctx.Err()
	}

	t.mu.Lock()
	now := time.Now()
	slot := t.next[key]
	if slot.Before(now) {
		slot = now
	}
	t.next[key] = slot.Add(t.interval)
	t.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
