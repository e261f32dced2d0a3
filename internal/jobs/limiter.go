package jobs

// limiter.go bounds how many dataset files are parsed at the same time.
//
// Concurrent loads of one path already share a parse through singleflight;
// the limiter caps parses of distinct paths so a burst of first requests
// against a large catalog cannot read every file at once. When all slots are
// taken a load waits up to maxWait and then fails with ErrTooManyLoads.

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultMaxConcurrentParses is used when NewParseLimiter gets a non-positive limit.
const DefaultMaxConcurrentParses = 4

// DefaultParseWait is used when NewParseLimiter gets a non-positive wait.
const DefaultParseWait = 10 * time.Second

// ParseLimiter is a semaphore over file parses.
type ParseLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewParseLimiter allows at most maxConcurrent parses; callers queue for up
// to maxWait.
func NewParseLimiter(maxConcurrent int, maxWait time.Duration) *ParseLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentParses
	}
	if maxWait <= 0 {
		maxWait = DefaultParseWait
	}
	return &ParseLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot. It returns ctx.Err() when ctx ends first and
// ErrTooManyLoads when maxWait expires. Every successful Acquire must be
// paired with Release.
func (l *ParseLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyLoads
	}
}

// Release frees a slot taken by Acquire.
func (l *ParseLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Active returns the number of parses in progress.
func (l *ParseLimiter) Active() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the slot count.
func (l *ParseLimiter) MaxConcurrent() int {
	return cap(l.slots)
}
