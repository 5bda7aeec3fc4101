package discogs

import (
	"context"
	"sync"
	"time"
)

// Clock abstracts time for the request budget so tests can drive the window
// deterministically.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Budget is a sliding time-window request counter shared by all outbound
// Discogs calls. Callers block until the budget allows another request;
// requests are never dropped.
type Budget struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	clock  Clock
	stamps []time.Time
}

// NewBudget creates a budget of limit requests per rolling window
func NewBudget(limit int, window time.Duration) *Budget {
	return NewBudgetWithClock(limit, window, realClock{})
}

// NewBudgetWithClock creates a budget using the supplied clock
func NewBudgetWithClock(limit int, window time.Duration, clock Clock) *Budget {
	return &Budget{
		limit:  limit,
		window: window,
		clock:  clock,
	}
}

// Allow records a request if the budget has room, without blocking
func (b *Budget) Allow() bool {
	ok, _ := b.tryAcquire()
	return ok
}

// Wait blocks until the budget admits another request or the context is
// canceled.
func (b *Budget) Wait(ctx context.Context) error {
	for {
		ok, retryIn := b.tryAcquire()
		if ok {
			return nil
		}
		timer := time.NewTimer(retryIn)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquire records a request when under the limit. When over, it returns
// the duration until the oldest in-window request expires.
func (b *Budget) tryAcquire() (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	cutoff := now.Add(-b.window)
	kept := b.stamps[:0]
	for _, s := range b.stamps {
		if s.After(cutoff) {
			kept = append(kept, s)
		}
	}
	b.stamps = kept

	if len(b.stamps) < b.limit {
		b.stamps = append(b.stamps, now)
		return true, 0
	}
	return false, b.stamps[0].Sub(cutoff)
}
