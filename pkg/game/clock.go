package game

import (
	"context"
	"sync"
	"time"

	"github.com/seekerror/logw"
)

// Clock is the per-session wall-clock ticker (C4). It is not authoritative
// for game time -- Session.SubmitMove computes elapsed time precisely from
// its own stored move-start timestamp. The tick exists only to detect
// timeouts between moves, so the cadence only needs to be on the order of
// 100ms.
type Clock struct {
	mu       sync.Mutex
	sessions map[string]*Session
	interval time.Duration
}

// NewClock creates a Clock that wakes at the given interval.
func NewClock(interval time.Duration) *Clock {
	return &Clock{
		sessions: make(map[string]*Session),
		interval: interval,
	}
}

// Track adds a session to the set the clock ticks. Terminal sessions are
// dropped from the set on the next pass automatically, so callers do not
// need to call Untrack explicitly, though they may to free the reference
// early.
func (c *Clock) Track(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessions[s.ID()] = s
}

// Untrack removes a session from the ticked set.
func (c *Clock) Untrack(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.sessions, id)
}

// Run drives the ticker until ctx is cancelled. Each pass filters out
// non-Active sessions (cancellation is immediate on termination) and calls
// Tick on every Active session still tracked.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	logw.Infof(ctx, "Clock started, interval=%v", c.interval)

	for {
		select {
		case <-ctx.Done():
			logw.Infof(ctx, "Clock stopped")
			return
		case now := <-ticker.C:
			c.tickAll(ctx, now)
		}
	}
}

func (c *Clock) tickAll(ctx context.Context, now time.Time) {
	c.mu.Lock()
	active := make([]*Session, 0, len(c.sessions))
	for id, s := range c.sessions {
		snap := s.Snapshot()
		if snap.Status.IsTerminal() {
			delete(c.sessions, id)
			continue
		}
		active = append(active, s)
	}
	c.mu.Unlock()

	for _, s := range active {
		snap := s.Tick(now)
		if snap.Status.IsTerminal() {
			logw.Infof(ctx, "Session %v timed out: %v (%v)", snap.ID, snap.Status, snap.Reason)
			c.Untrack(snap.ID)
		}
	}
}
