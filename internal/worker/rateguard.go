package worker

import (
	"sync/atomic"
	"time"
)

// RateGuard tracks the most recent rate-limit signal from a mail provider.
// It is deliberately process-wide and shared across all jobs: after any job
// trips a provider limit, every job waits out the same cooldown window.
// Reads and writes race benignly; the value only shifts a sleep by a little.
type RateGuard struct {
	last     atomic.Int64 // unix nanos of the last rate-limit signal
	cooldown time.Duration
	now      func() time.Time
}

func NewRateGuard(cooldown time.Duration) *RateGuard {
	return &RateGuard{cooldown: cooldown, now: time.Now}
}

// NewRateGuardWithClock injects a clock so tests can control time.
func NewRateGuardWithClock(cooldown time.Duration, now func() time.Time) *RateGuard {
	return &RateGuard{cooldown: cooldown, now: now}
}

// MarkLimited records that a provider just rate-limited us.
func (g *RateGuard) MarkLimited() {
	g.last.Store(g.now().UnixNano())
}

// Remaining returns how much of the cooldown window is left, or zero.
func (g *RateGuard) Remaining() time.Duration {
	last := g.last.Load()
	if last == 0 {
		return 0
	}
	elapsed := g.now().Sub(time.Unix(0, last))
	if elapsed >= g.cooldown {
		return 0
	}
	return g.cooldown - elapsed
}

func (g *RateGuard) InCooldown() bool {
	return g.Remaining() > 0
}
