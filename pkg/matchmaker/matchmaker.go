// Package matchmaker implements the rating-banded matchmaking queue (C5):
// tickets are paired by rating proximity, with a timeout fallback to an
// in-process bot opponent when a human match cannot be found quickly enough.
package matchmaker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/opsnlops/mpchess/pkg/bot"
	"github.com/opsnlops/mpchess/pkg/game"
	"github.com/seekerror/logw"
)

// Defaults mirror spec-named constants; all are configurable per Matchmaker.
const (
	DefaultBand        = 200
	DefaultRelaxAfter  = 30 * time.Second
	DefaultBotFallback = 60 * time.Second
)

// Ticket is a single queued matchmaking request.
type Ticket struct {
	Identity    game.Identity
	Rating      int
	TimeControl game.TimeControl
	EnqueuedAt  time.Time
}

// Pairing is the result of a successful match: two human tickets, or one
// ticket matched against the in-process bot at the given strength.
type Pairing struct {
	White, Black Ticket
	IsBot        bool
	BotStrength  bot.Strength
}

// Config tunes the matchmaker's banding and fallback thresholds.
type Config struct {
	Band        int
	RelaxAfter  time.Duration
	BotFallback time.Duration
}

func defaultConfig() Config {
	return Config{Band: DefaultBand, RelaxAfter: DefaultRelaxAfter, BotFallback: DefaultBotFallback}
}

// Matchmaker owns the ticket queue under its own lock (C5). Each processing
// pass sorts by rating, walks adjacent pairs looking for an eligible match,
// and then promotes any ticket that has waited long enough to a bot
// pairing. A ticket removed from the queue is always paired -- there is no
// "removed but failed" state.
type Matchmaker struct {
	mu      sync.Mutex
	tickets []Ticket
	cfg     Config
}

// New creates a Matchmaker. A zero Config selects the package defaults.
func New(cfg Config) *Matchmaker {
	if cfg.Band == 0 {
		cfg.Band = DefaultBand
	}
	if cfg.RelaxAfter == 0 {
		cfg.RelaxAfter = DefaultRelaxAfter
	}
	if cfg.BotFallback == 0 {
		cfg.BotFallback = DefaultBotFallback
	}
	return &Matchmaker{cfg: cfg}
}

// Enqueue adds a ticket to the queue.
func (m *Matchmaker) Enqueue(t Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tickets = append(m.tickets, t)
}

// Cancel removes identity's own ticket, if queued. Reports whether a ticket
// was removed.
func (m *Matchmaker) Cancel(identity game.Identity) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, t := range m.tickets {
		if t.Identity == identity {
			m.tickets = append(m.tickets[:i], m.tickets[i+1:]...)
			return true
		}
	}
	return false
}

// Pending reports the number of queued tickets.
func (m *Matchmaker) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.tickets)
}

// Process runs one matchmaking pass as of now: sorts the queue by rating,
// pairs adjacent tickets within the rating band (widened once either has
// waited RelaxAfter), then falls any still-unmatched, long-waiting ticket
// back to a bot pairing.
func (m *Matchmaker) Process(ctx context.Context, now time.Time) []Pairing {
	m.mu.Lock()
	defer m.mu.Unlock()

	sort.Slice(m.tickets, func(i, j int) bool {
		return m.tickets[i].Rating < m.tickets[j].Rating
	})

	var pairings []Pairing
	matched := make([]bool, len(m.tickets))

	for i := 0; i+1 < len(m.tickets); i++ {
		if matched[i] {
			continue
		}
		j := i + 1
		for j < len(m.tickets) && matched[j] {
			j++
		}
		if j >= len(m.tickets) {
			break
		}

		a, b := m.tickets[i], m.tickets[j]
		diff := a.Rating - b.Rating
		if diff < 0 {
			diff = -diff
		}

		relaxed := now.Sub(a.EnqueuedAt) >= m.cfg.RelaxAfter || now.Sub(b.EnqueuedAt) >= m.cfg.RelaxAfter
		if diff <= m.cfg.Band || relaxed {
			matched[i], matched[j] = true, true
			pairings = append(pairings, Pairing{White: a, Black: b})
			logw.Infof(ctx, "matchmaker: paired %v vs %v (rating diff %v)", a.Identity, b.Identity, diff)
		}
	}

	var remaining []Ticket
	for i, t := range m.tickets {
		if matched[i] {
			continue
		}
		if now.Sub(t.EnqueuedAt) >= m.cfg.BotFallback {
			pairings = append(pairings, Pairing{White: t, IsBot: true, BotStrength: botStrengthFor(t.Rating)})
			logw.Infof(ctx, "matchmaker: bot fallback for %v after %v wait", t.Identity, now.Sub(t.EnqueuedAt))
			continue
		}
		remaining = append(remaining, t)
	}
	m.tickets = remaining

	return pairings
}

// botStrengthFor derives a bot strength monotone non-decreasing in rating,
// following original_source's convention of scaling bot difficulty to the
// waiting player's skill rather than always offering the weakest opponent.
func botStrengthFor(rating int) bot.Strength {
	switch {
	case rating < 1000:
		return 1
	case rating < 1300:
		return 2
	case rating < 1600:
		return 3
	case rating < 1900:
		return 4
	default:
		return 5
	}
}

// Run drives periodic processing passes until ctx is cancelled, handing
// each pass's pairings to onPairings.
func (m *Matchmaker) Run(ctx context.Context, interval time.Duration, onPairings func([]Pairing)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logw.Infof(ctx, "Matchmaker started, interval=%v, band=%v", interval, m.cfg.Band)

	for {
		select {
		case <-ctx.Done():
			logw.Infof(ctx, "Matchmaker stopped")
			return
		case now := <-ticker.C:
			if pairings := m.Process(ctx, now); len(pairings) > 0 {
				onPairings(pairings)
			}
		}
	}
}
