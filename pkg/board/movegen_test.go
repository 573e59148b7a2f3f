package board_test

import (
	"testing"

	"github.com/opsnlops/mpchess/pkg/board"
	"github.com/stretchr/testify/assert"
)

func TestLegalMovesInitialPosition(t *testing.T) {
	pos := board.InitialPosition()
	moves := board.LegalMoves(pos)
	assert.Len(t, moves, 20) // 16 pawn moves + 4 knight moves, the textbook opening count.
}

func TestLegalMovesFromFiltersByOrigin(t *testing.T) {
	pos := board.InitialPosition()
	e2 := board.NewSquare(board.FileE, board.Rank2)
	moves := board.LegalMovesFrom(pos, e2)

	assert.Len(t, moves, 2) // e2e3 and e2e4
	for _, m := range moves {
		assert.Equal(t, e2, m.From)
	}
}

func TestKnightMovesFromCorner(t *testing.T) {
	pos := mustDecode(t, "k7/8/8/8/8/8/8/KN6 w - - 0 1")
	moves := board.LegalMovesFrom(pos, board.NewSquare(board.FileB, board.Rank1))
	assert.Len(t, moves, 3) // a3, c3, d2 -- the only squares reachable from a corner-adjacent knight.
}

func TestRookSlideBlockedByOwnPiece(t *testing.T) {
	pos := mustDecode(t, "4k3/8/8/8/8/8/P7/R3K3 w - - 0 1")
	moves := board.LegalMovesFrom(pos, board.NewSquare(board.FileA, board.Rank1))
	for _, m := range moves {
		assert.NotEqual(t, board.Rank2, m.To.Rank()) // blocked by the pawn on a2.
	}
}
