package scheduler

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff tracks the minimum wait between cycles. It doubles on every failure
// up to a ceiling and drops back to the base on success.
type Backoff struct {
	base    time.Duration
	max     time.Duration
	min     time.Duration
	jitterN func(n int64) int64
}

// NewBackoff returns a Backoff starting at base. A non-positive ceiling leaves
// growth uncapped.
func NewBackoff(base, ceiling time.Duration) *Backoff {
	return &Backoff{
		base:    base,
		max:     ceiling,
		min:     base,
		jitterN: rand.Int64N,
	}
}

// Min returns the current minimum wait.
func (b *Backoff) Min() time.Duration {
	return b.min
}

// Failure doubles the minimum wait.
func (b *Backoff) Failure() {
	next := b.min * 2
	if next < b.min {
		next = math.MaxInt64
	}
	if b.max > 0 && next > b.max {
		next = b.max
	}
	b.min = next
}

// Success resets the minimum wait to the base.
func (b *Backoff) Success() {
	b.min = b.base
}

// Wait returns the current minimum plus a uniform jitter in [0, min).
func (b *Backoff) Wait() time.Duration {
	if b.min <= 0 {
		return 0
	}
	if w := b.min + time.Duration(b.jitterN(int64(b.min))); w >= b.min {
		return w
	}
	return b.min
}
