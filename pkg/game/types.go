// Package game implements the per-game session state machine (C3) and the
// clock scheduler that drives it (C4): attach/detach of players, move
// submission through the rules engine, draw offers, resignation, timeouts,
// and disconnection handling.
package game

import (
	"fmt"
	"time"

	"github.com/opsnlops/mpchess/pkg/board"
)

// Status is a session's coarse lifecycle state.
type Status int

const (
	Pending Status = iota
	Active
	WhiteWin
	BlackWin
	Draw
	Abandoned
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Active:
		return "active"
	case WhiteWin:
		return "white-win"
	case BlackWin:
		return "black-win"
	case Draw:
		return "draw"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether s is an absorbing end state.
func (s Status) IsTerminal() bool {
	switch s {
	case WhiteWin, BlackWin, Draw, Abandoned:
		return true
	default:
		return false
	}
}

// TerminationReason records why a session reached a terminal status.
type TerminationReason int

const (
	NoReason TerminationReason = iota
	Checkmate
	Stalemate
	Timeout
	Resignation
	Agreement
	InsufficientMaterial
	FiftyMoveRule
	ThreefoldRepetition
	AbandonmentReason
)

func (r TerminationReason) String() string {
	switch r {
	case NoReason:
		return "none"
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case Timeout:
		return "timeout"
	case Resignation:
		return "resignation"
	case Agreement:
		return "agreement"
	case InsufficientMaterial:
		return "insufficient-material"
	case FiftyMoveRule:
		return "fifty-move"
	case ThreefoldRepetition:
		return "threefold-repetition"
	case AbandonmentReason:
		return "abandonment"
	default:
		return "unknown"
	}
}

// TimeControl is the pair of values the rules/session layer sees: an initial
// wall-clock budget and a per-move increment. Named profiles (bullet, blitz,
// rapid, classical, correspondence) are a presentation-layer convenience and
// resolve to one of these before reaching a Session.
type TimeControl struct {
	Initial   time.Duration
	Increment time.Duration
}

func (t TimeControl) String() string {
	return fmt.Sprintf("%v+%v", t.Initial, t.Increment)
}

var (
	Bullet        = TimeControl{Initial: 1 * time.Minute, Increment: 0}
	Blitz         = TimeControl{Initial: 5 * time.Minute, Increment: 3 * time.Second}
	Rapid         = TimeControl{Initial: 15 * time.Minute, Increment: 10 * time.Second}
	Classical     = TimeControl{Initial: 30 * time.Minute, Increment: 20 * time.Second}
	Correspondence = TimeControl{Initial: 24 * time.Hour, Increment: 0}
)

// Identity is an opaque, authenticated player identifier -- a username in
// this implementation, borrowed from the account store's namespace.
type Identity string

// Slot is one side's seat in a session.
type Slot struct {
	Identity  Identity
	IsBot     bool
	Remaining time.Duration
	occupied  bool
}

func (s Slot) Occupied() bool {
	return s.occupied
}

// sideIndex maps a board.Color to its slot index.
func sideIndex(c board.Color) int {
	return int(c)
}
