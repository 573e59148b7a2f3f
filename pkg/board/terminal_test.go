package board_test

import (
	"testing"

	"github.com/opsnlops/mpchess/pkg/board"
	"github.com/stretchr/testify/assert"
)

func TestIsCheckmateBackRank(t *testing.T) {
	pos := mustDecode(t, "R5k1/5ppp/8/8/8/8/8/6K1 b - - 0 1")
	assert.True(t, board.IsCheckmate(pos))
}

func TestIsCheckDetectsSlidingAttack(t *testing.T) {
	// Rook on h1 has a clear line along rank 1 to the king on e1.
	pos := mustDecode(t, "4k3/8/8/8/8/8/8/4K2r w - - 0 1")
	assert.True(t, board.IsCheck(pos, board.White))
}
