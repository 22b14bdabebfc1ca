package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyRuns is returned when every run slot stays occupied for the
// whole wait timeout. Clients should retry after a short delay.
var ErrTooManyRuns = errors.New("too many concurrent pipeline runs, please try again later")

const (
	DefaultMaxConcurrentRuns = 4
	DefaultRunWait           = 10 * time.Second
)

// Limiter bounds how many pipeline runs execute at once. Every run holds a
// full copy of the export in memory, so the server must not start an
// unbounded number of them.
type Limiter struct {
	sem     *semaphore.Weighted
	max     int64
	maxWait time.Duration
	active  atomic.Int64
}

// LimiterStatus is a snapshot of a Limiter for monitoring.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// NewLimiter allows at most maxConcurrent simultaneous runs. Callers that
// cannot get a slot within maxWait receive ErrTooManyRuns.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	if maxWait <= 0 {
		maxWait = DefaultRunWait
	}
	return &Limiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     int64(maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a run slot. The caller must Release it exactly once.
func (l *Limiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyRuns
	}
	l.active.Add(1)
	return nil
}

// TryAcquire takes a slot without blocking and reports whether it did.
func (l *Limiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.active.Add(1)
	return true
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// Status reports the current slot usage.
func (l *Limiter) Status() LimiterStatus {
	active := l.active.Load()
	return LimiterStatus{
		Active:        int(active),
		Available:     int(l.max - active),
		MaxConcurrent: int(l.max),
	}
}

// WaitForDrain blocks until no run holds a slot or ctx is done.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.active.Load() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
