package game_test

import (
	"testing"
	"time"

	"github.com/opsnlops/mpchess/pkg/board"
	"github.com/opsnlops/mpchess/pkg/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActiveSession(t *testing.T, tc game.TimeControl) *game.Session {
	t.Helper()
	s := game.NewSession("test-session", tc)
	_, err := s.Attach(board.White, "alice", false)
	require.NoError(t, err)
	snap, err := s.Attach(board.Black, "bob", false)
	require.NoError(t, err)
	assert.Equal(t, game.Active, snap.Status)
	return s
}

func TestAttachTransitionsToActive(t *testing.T) {
	s := game.NewSession("s1", game.Blitz)
	snap, err := s.Attach(board.White, "alice", false)
	require.NoError(t, err)
	assert.Equal(t, game.Pending, snap.Status)

	snap, err = s.Attach(board.Black, "bob", false)
	require.NoError(t, err)
	assert.Equal(t, game.Active, snap.Status)
}

func TestAttachRejectsOccupiedSlot(t *testing.T) {
	s := game.NewSession("s1", game.Blitz)
	_, err := s.Attach(board.White, "alice", false)
	require.NoError(t, err)

	_, err = s.Attach(board.White, "carol", false)
	assert.Error(t, err)
}

func TestSubmitMoveRejectsWrongIdentity(t *testing.T) {
	s := newActiveSession(t, game.Blitz)
	mv, err := board.ParseMove("e2e4")
	require.NoError(t, err)

	_, _, err = s.SubmitMove("bob", mv)
	assert.Error(t, err)
}

func TestFoolsMateEndsInCheckmate(t *testing.T) {
	s := newActiveSession(t, game.Classical)
	moves := []struct {
		identity game.Identity
		move     string
	}{
		{"alice", "f2f3"},
		{"bob", "e7e5"},
		{"alice", "g2g4"},
		{"bob", "d8h4"},
	}

	var snap game.Snapshot
	for _, m := range moves {
		mv, err := board.ParseMove(m.move)
		require.NoError(t, err)
		_, snap, err = s.SubmitMove(m.identity, mv)
		require.NoError(t, err)
	}

	assert.Equal(t, game.BlackWin, snap.Status)
	assert.Equal(t, game.Checkmate, snap.Reason)
}

func TestDrawOffersCrossIntoAgreement(t *testing.T) {
	s := newActiveSession(t, game.Blitz)

	snap, err := s.OfferDraw("alice")
	require.NoError(t, err)
	assert.Equal(t, game.Active, snap.Status)

	snap, err = s.OfferDraw("bob")
	require.NoError(t, err)
	assert.Equal(t, game.Draw, snap.Status)
	assert.Equal(t, game.Agreement, snap.Reason)
}

func TestRepeatedOfferBySameSideIsNoOp(t *testing.T) {
	s := newActiveSession(t, game.Blitz)

	_, err := s.OfferDraw("alice")
	require.NoError(t, err)
	snap, err := s.OfferDraw("alice")
	require.NoError(t, err)
	assert.Equal(t, game.Active, snap.Status)
}

func TestRespondDrawDeclined(t *testing.T) {
	s := newActiveSession(t, game.Blitz)

	_, err := s.OfferDraw("alice")
	require.NoError(t, err)

	snap, err := s.RespondDraw("bob", false)
	require.NoError(t, err)
	assert.Equal(t, game.Active, snap.Status)

	// The offer is now cleared; responding again without a new offer errors.
	_, err = s.RespondDraw("bob", true)
	assert.Error(t, err)
}

func TestResignEndsGameForOpponent(t *testing.T) {
	s := newActiveSession(t, game.Blitz)

	snap, err := s.Resign("alice")
	require.NoError(t, err)
	assert.Equal(t, game.BlackWin, snap.Status)
	assert.Equal(t, game.Resignation, snap.Reason)
}

func TestOnDisconnectAbandonsActiveSession(t *testing.T) {
	s := newActiveSession(t, game.Blitz)

	snap := s.OnDisconnect("alice")
	assert.Equal(t, game.Abandoned, snap.Status)
	assert.Equal(t, game.AbandonmentReason, snap.Reason)
}

func TestOnDisconnectClearsPendingSlot(t *testing.T) {
	s := game.NewSession("s1", game.Blitz)
	_, err := s.Attach(board.White, "alice", false)
	require.NoError(t, err)

	snap := s.OnDisconnect("alice")
	assert.Equal(t, game.Pending, snap.Status)
	assert.False(t, snap.Slots[board.White].Occupied())
}

// TestTimeoutS6 follows S6: White plays e2e4 after 300ms (clock ticks down
// but not enough to expire), then a tick at slightly over 1000ms into
// Black's move-start with no Black reply fires the timeout.
func TestTimeoutS6(t *testing.T) {
	tc := game.TimeControl{Initial: 1000 * time.Millisecond, Increment: 0}
	s := newActiveSession(t, tc)

	time.Sleep(5 * time.Millisecond) // simulate the 300ms thinking time, scaled down for test speed.
	mv, err := board.ParseMove("e2e4")
	require.NoError(t, err)
	_, snap, err := s.SubmitMove("alice", mv)
	require.NoError(t, err)
	assert.Equal(t, game.Active, snap.Status)

	// Black's clock has not expired yet.
	snap = s.Tick(time.Now())
	assert.Equal(t, game.Active, snap.Status)

	// Simulate Black's clock having expired by ticking far in the future.
	snap = s.Tick(time.Now().Add(2 * time.Second))
	assert.Equal(t, game.WhiteWin, snap.Status)
	assert.Equal(t, game.Timeout, snap.Reason)
}

func TestThreefoldRepetitionS5(t *testing.T) {
	s := newActiveSession(t, game.Classical)

	moves := []struct {
		identity game.Identity
		move     string
	}{
		{"alice", "g1f3"}, {"bob", "g8f6"},
		{"alice", "f3g1"}, {"bob", "f6g8"},
		{"alice", "g1f3"}, {"bob", "g8f6"},
		{"alice", "f3g1"}, {"bob", "f6g8"},
	}

	var snap game.Snapshot
	for _, m := range moves {
		mv, err := board.ParseMove(m.move)
		require.NoError(t, err)
		_, snap, err = s.SubmitMove(m.identity, mv)
		require.NoError(t, err)
	}

	assert.Equal(t, game.Draw, snap.Status)
	assert.Equal(t, game.ThreefoldRepetition, snap.Reason)
}
