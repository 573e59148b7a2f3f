package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/opsnlops/mpchess/pkg/board"
	"github.com/opsnlops/mpchess/pkg/board/fen"
	"github.com/seekerror/stdlib/pkg/lang"
)

// Snapshot is a read-only view of a session's state, safe to hand to the
// protocol layer after the session lock has been released.
type Snapshot struct {
	ID       string
	Status   Status
	Reason   TerminationReason
	Position *board.Position
	Slots    [2]Slot
	History  []board.MoveRecord
}

// LegalMoves returns the legal moves for the snapshot's side to move. Empty
// once the game is over.
func (s Snapshot) LegalMoves() []board.Move {
	if s.Status != Active {
		return nil
	}
	return board.LegalMoves(s.Position)
}

// Session owns one game's Position, clocks, move history, and draw/resign
// flags, and drives its own state machine under an exclusive lock. The
// rules engine (board.Apply) never mutates a Position in place -- Session
// replaces its current Position with the one Apply returns.
type Session struct {
	mu sync.Mutex

	id string
	tc TimeControl

	slots    [2]Slot
	position *board.Position
	history  []board.MoveRecord

	moveStart   time.Time
	pendingDraw lang.Optional[board.Color]

	status Status
	reason TerminationReason

	repetitions map[string]int
}

// NewSession creates a Pending session with the standard starting position.
func NewSession(id string, tc TimeControl) *Session {
	pos := board.InitialPosition()
	s := &Session{
		id:          id,
		tc:          tc,
		position:    pos,
		status:      Pending,
		repetitions: map[string]int{fen.RepetitionKey(pos): 1},
	}
	s.slots[board.White].Remaining = tc.Initial
	s.slots[board.Black].Remaining = tc.Initial
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Attach fills a vacant slot for the given side. When both slots are filled
// the session transitions Pending -> Active and the clock starts for White.
func (s *Session) Attach(side board.Color, identity Identity, isBot bool) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Pending {
		return s.snapshotLocked(), fmt.Errorf("session %v: cannot attach, status is %v", s.id, s.status)
	}

	idx := sideIndex(side)
	if s.slots[idx].Occupied() {
		return s.snapshotLocked(), fmt.Errorf("session %v: side %v already occupied", s.id, side)
	}
	s.slots[idx] = Slot{Identity: identity, IsBot: isBot, Remaining: s.tc.Initial, occupied: true}

	if s.slots[board.White].Occupied() && s.slots[board.Black].Occupied() {
		s.status = Active
		s.moveStart = time.Now()
	}
	return s.snapshotLocked(), nil
}

// SubmitMove validates and applies a move on behalf of identity. It rejects
// the call outright if the session is not Active or identity does not
// control the side to move; otherwise it delegates legality to
// board.Apply, and on success debits the mover's clock, credits the
// configured increment, flips the move-start timestamp to the opponent,
// and runs terminal checks in the order checkmate -> stalemate ->
// insufficient-material -> fifty-move -> threefold-repetition.
func (s *Session) SubmitMove(identity Identity, mv board.Move) (board.MoveRecord, Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Active {
		return board.MoveRecord{}, s.snapshotLocked(), fmt.Errorf("session %v: not active (status=%v)", s.id, s.status)
	}

	mover := s.position.Turn()
	slot := s.slots[sideIndex(mover)]
	if slot.Identity != identity {
		return board.MoveRecord{}, s.snapshotLocked(), fmt.Errorf("session %v: %v is not the side to move", s.id, identity)
	}

	next, rec, err := board.Apply(s.position, mv)
	if err != nil {
		return board.MoveRecord{}, s.snapshotLocked(), err
	}

	elapsed := time.Since(s.moveStart)
	idx := sideIndex(mover)
	s.slots[idx].Remaining -= elapsed
	if s.slots[idx].Remaining < 0 {
		s.slots[idx].Remaining = 0
	}
	s.slots[idx].Remaining += s.tc.Increment

	s.position = next
	s.history = append(s.history, rec)
	s.moveStart = time.Now()
	s.pendingDraw = lang.Optional[board.Color]{}

	key := fen.RepetitionKey(next)
	s.repetitions[key]++

	s.checkTerminalLocked()

	return rec, s.snapshotLocked(), nil
}

// OfferDraw records identity's standing draw offer. If the opponent already
// has a standing offer, the offers cross and the game ends in agreement. A
// repeated offer by the same side is a no-op.
func (s *Session) OfferDraw(identity Identity) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Active {
		return s.snapshotLocked(), fmt.Errorf("session %v: not active (status=%v)", s.id, s.status)
	}

	side, err := s.sideOfLocked(identity)
	if err != nil {
		return s.snapshotLocked(), err
	}

	if offeringSide, ok := s.pendingDraw.V(); ok {
		if offeringSide == side {
			return s.snapshotLocked(), nil // same side offering twice: no-op.
		}
		s.status = Draw
		s.reason = Agreement
		s.pendingDraw = lang.Optional[board.Color]{}
		return s.snapshotLocked(), nil
	}

	s.pendingDraw = lang.Some(side)
	return s.snapshotLocked(), nil
}

// RespondDraw resolves a standing offer made by identity's opponent.
func (s *Session) RespondDraw(identity Identity, accept bool) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Active {
		return s.snapshotLocked(), fmt.Errorf("session %v: not active (status=%v)", s.id, s.status)
	}

	side, err := s.sideOfLocked(identity)
	if err != nil {
		return s.snapshotLocked(), err
	}

	offeringSide, ok := s.pendingDraw.V()
	if !ok || offeringSide == side {
		return s.snapshotLocked(), fmt.Errorf("session %v: no pending draw offer to %v", s.id, identity)
	}

	s.pendingDraw = lang.Optional[board.Color]{}
	if accept {
		s.status = Draw
		s.reason = Agreement
	}
	return s.snapshotLocked(), nil
}

// Resign ends the game immediately in favor of identity's opponent.
func (s *Session) Resign(identity Identity) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Active {
		return s.snapshotLocked(), fmt.Errorf("session %v: not active (status=%v)", s.id, s.status)
	}

	side, err := s.sideOfLocked(identity)
	if err != nil {
		return s.snapshotLocked(), err
	}

	s.status = winFor(side.Opponent())
	s.reason = Resignation
	s.pendingDraw = lang.Optional[board.Color]{}
	return s.snapshotLocked(), nil
}

// OnDisconnect handles identity's endpoint dropping. An Active session is
// abandoned; a Pending session simply clears the vacated slot.
func (s *Session) OnDisconnect(identity Identity) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	side, err := s.sideOfLocked(identity)
	if err != nil {
		return s.snapshotLocked()
	}

	switch s.status {
	case Active:
		s.status = Abandoned
		s.reason = AbandonmentReason
	case Pending:
		s.slots[sideIndex(side)] = Slot{}
	}
	return s.snapshotLocked()
}

// Tick is invoked periodically by the clock service. If the session is
// Active and the mover has exceeded their remaining time, the game ends for
// the opponent with reason Timeout.
func (s *Session) Tick(now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Active {
		return s.snapshotLocked()
	}

	mover := s.position.Turn()
	idx := sideIndex(mover)
	if now.Sub(s.moveStart) > s.slots[idx].Remaining {
		s.status = winFor(mover.Opponent())
		s.reason = Timeout
	}
	return s.snapshotLocked()
}

// Snapshot returns the current state without mutating it.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	history := make([]board.MoveRecord, len(s.history))
	copy(history, s.history)

	return Snapshot{
		ID:       s.id,
		Status:   s.status,
		Reason:   s.reason,
		Position: s.position.Clone(),
		Slots:    s.slots,
		History:  history,
	}
}

func (s *Session) sideOfLocked(identity Identity) (board.Color, error) {
	if s.slots[board.White].Identity == identity && s.slots[board.White].Occupied() {
		return board.White, nil
	}
	if s.slots[board.Black].Identity == identity && s.slots[board.Black].Occupied() {
		return board.Black, nil
	}
	return 0, fmt.Errorf("session %v: %v is not a participant", s.id, identity)
}

// checkTerminalLocked runs terminal checks in spec order and stops the
// clock by leaving the session in a terminal status. Must be called with
// s.mu held.
func (s *Session) checkTerminalLocked() {
	switch {
	case board.IsCheckmate(s.position):
		s.status = winFor(s.position.Turn().Opponent())
		s.reason = Checkmate
	case board.IsStalemate(s.position):
		s.status = Draw
		s.reason = Stalemate
	case board.IsInsufficientMaterial(s.position):
		s.status = Draw
		s.reason = InsufficientMaterial
	case s.position.HalfMoveClock() >= 100:
		s.status = Draw
		s.reason = FiftyMoveRule
	case s.repetitions[fen.RepetitionKey(s.position)] >= 3:
		s.status = Draw
		s.reason = ThreefoldRepetition
	}
}

func winFor(c board.Color) Status {
	if c == board.White {
		return WhiteWin
	}
	return BlackWin
}
