package board_test

import (
	"testing"

	"github.com/opsnlops/mpchess/pkg/board"
	"github.com/opsnlops/mpchess/pkg/board/fen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMove(t *testing.T, str string) board.Move {
	t.Helper()
	mv, err := board.ParseMove(str)
	require.NoError(t, err)
	return mv
}

func mustDecode(t *testing.T, f string) *board.Position {
	t.Helper()
	pos, err := fen.Decode(f)
	require.NoError(t, err)
	return pos
}

// TestFoolsMate plays the shortest possible checkmate and confirms the final
// position is checkmate for the side to move.
func TestFoolsMate(t *testing.T) {
	pos := board.InitialPosition()
	moves := []string{"f2f3", "e7e5", "g2g4", "d8h4"}

	var err error
	for _, m := range moves {
		pos, _, err = board.Apply(pos, mustMove(t, m))
		require.NoError(t, err)
	}

	assert.True(t, board.IsCheckmate(pos))
	assert.False(t, board.IsStalemate(pos))
}

// TestStalemate sets up a known stalemate position directly and confirms
// IsStalemate without a preceding checkmate.
func TestStalemate(t *testing.T) {
	pos := mustDecode(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	assert.True(t, board.IsStalemate(pos))
	assert.False(t, board.IsCheckmate(pos))
	assert.Empty(t, board.LegalMoves(pos))
}

// TestEnPassantWindow confirms an en passant capture is legal only
// immediately after the qualifying double push, and gone the move after.
func TestEnPassantWindow(t *testing.T) {
	pos := mustDecode(t, "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1")

	captured := false
	for _, m := range board.LegalMoves(pos) {
		if m.From == board.NewSquare(board.FileE, board.Rank5) && m.To == board.NewSquare(board.FileD, board.Rank6) {
			captured = true
		}
	}
	assert.True(t, captured, "expected en passant capture e5d6 to be legal")

	next, rec, err := board.Apply(pos, mustMove(t, "e5d6"))
	require.NoError(t, err)
	assert.Equal(t, board.EnPassantCapture, rec.Kind)
	assert.True(t, next.IsEmpty(board.NewSquare(board.FileD, board.Rank5)))

	// The en passant target no longer applies one move later.
	pos2 := mustDecode(t, "4k3/8/3P4/8/8/8/8/4K3 b - - 0 2")
	for _, m := range board.LegalMoves(pos2) {
		assert.NotEqual(t, board.NewSquare(board.FileD, board.Rank6), m.To)
	}
}

// TestCastlingThroughCheckIsIllegal confirms a king may not castle through or
// out of an attacked square.
func TestCastlingThroughCheckIsIllegal(t *testing.T) {
	// Black rook on e-file pins the king's path: e1 is attacked, so White may
	// not castle kingside or queenside.
	pos := mustDecode(t, "4r2k/8/8/8/8/8/8/R3K2R w KQ - 0 1")
	for _, m := range board.LegalMoves(pos) {
		assert.NotEqual(t, board.NewSquare(board.FileG, board.Rank1), m.To)
		assert.NotEqual(t, board.NewSquare(board.FileC, board.Rank1), m.To)
	}

	// Rook attacking f1 blocks kingside castling but not queenside.
	pos2 := mustDecode(t, "5r1k/8/8/8/8/8/8/R3K2R w KQ - 0 1")
	sawQueenSide := false
	for _, m := range board.LegalMoves(pos2) {
		assert.NotEqual(t, board.NewSquare(board.FileG, board.Rank1), m.To)
		if m.From == board.NewSquare(board.FileE, board.Rank1) && m.To == board.NewSquare(board.FileC, board.Rank1) {
			sawQueenSide = true
		}
	}
	assert.True(t, sawQueenSide)
}

func TestCastlingUpdatesRookAndRights(t *testing.T) {
	pos := mustDecode(t, "4k3/8/8/8/8/8/8/R3K2R w KQ - 0 1")
	next, rec, err := board.Apply(pos, mustMove(t, "e1g1"))
	require.NoError(t, err)
	assert.Equal(t, board.KingSideCastle, rec.Kind)

	c, p, ok := next.PieceAt(board.NewSquare(board.FileF, board.Rank1))
	require.True(t, ok)
	assert.Equal(t, board.White, c)
	assert.Equal(t, board.Rook, p)
	assert.True(t, next.IsEmpty(board.NewSquare(board.FileH, board.Rank1)))
	assert.False(t, next.Castling().IsAllowed(board.WhiteKingSideCastle))
	assert.False(t, next.Castling().IsAllowed(board.WhiteQueenSideCastle))
}

func TestPromotionExpandsToAllPieces(t *testing.T) {
	pos := mustDecode(t, "4k3/P7/8/8/8/8/8/4K3 w - - 0 1")
	moves := board.LegalMovesFrom(pos, board.NewSquare(board.FileA, board.Rank7))

	kinds := map[board.Piece]bool{}
	for _, m := range moves {
		kinds[m.Promotion] = true
	}
	assert.True(t, kinds[board.Queen])
	assert.True(t, kinds[board.Rook])
	assert.True(t, kinds[board.Bishop])
	assert.True(t, kinds[board.Knight])
}

// TestPromotionCaptureRecordsCapturedPiece confirms a pawn capture that also
// promotes is classified PromotionCapture (not plain PromotionMove) and still
// records the captured piece in the MoveRecord.
func TestPromotionCaptureRecordsCapturedPiece(t *testing.T) {
	pos := mustDecode(t, "4k2n/6P1/8/8/8/8/8/4K3 w - - 0 1")
	next, rec, err := board.Apply(pos, mustMove(t, "g7h8q"))
	require.NoError(t, err)

	assert.Equal(t, board.PromotionCapture, rec.Kind)
	capturedPiece, ok := rec.Captured.V()
	require.True(t, ok, "expected a captured piece to be recorded")
	assert.Equal(t, board.Knight, capturedPiece)

	c, p, ok := next.PieceAt(board.NewSquare(board.FileH, board.Rank8))
	require.True(t, ok)
	assert.Equal(t, board.White, c)
	assert.Equal(t, board.Queen, p)
}

func TestApplyRejectsMoveIntoCheck(t *testing.T) {
	// King on e1 is in check from the rook on a1 (blocked by nothing between
	// them); sliding to f1 stays on rank 1 and remains in check once the king
	// vacates e1.
	pos := mustDecode(t, "7k/8/8/8/8/8/8/r3K3 w - - 0 1")
	_, _, err := board.Apply(pos, mustMove(t, "e1f1"))
	require.Error(t, err)

	var rej *board.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, board.WouldLeaveOwnKingInCheck, rej.Kind)
}

func TestApplyRejectsWrongSide(t *testing.T) {
	pos := board.InitialPosition()
	_, _, err := board.Apply(pos, mustMove(t, "e7e5"))
	require.Error(t, err)

	var rej *board.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, board.WrongSide, rej.Kind)
}

func TestApplyRejectsUnreachableDestination(t *testing.T) {
	pos := board.InitialPosition()
	_, _, err := board.Apply(pos, mustMove(t, "e2e5"))
	require.Error(t, err)

	var rej *board.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, board.PieceCannotReach, rej.Kind)
}

func TestApplyRejectsGameAlreadyEnded(t *testing.T) {
	pos := mustDecode(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	_, _, err := board.Apply(pos, mustMove(t, "h8h7"))
	require.Error(t, err)

	var rej *board.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, board.GameAlreadyEnded, rej.Kind)
}

func TestInsufficientMaterial(t *testing.T) {
	tests := []struct {
		fen  string
		want bool
	}{
		{"4k3/8/8/8/8/8/8/4K3 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/4KB2 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/4KN2 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/4KP2 w - - 0 1", false},
		{"4k3/8/8/8/8/8/8/3QK3 w - - 0 1", false},
	}
	for _, tt := range tests {
		pos := mustDecode(t, tt.fen)
		assert.Equal(t, tt.want, board.IsInsufficientMaterial(pos), tt.fen)
	}
}
