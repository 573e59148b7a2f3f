package board_test

import (
	"testing"

	"github.com/opsnlops/mpchess/pkg/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSquareStr(t *testing.T) {
	sq, err := board.ParseSquareStr("e4")
	require.NoError(t, err)
	assert.Equal(t, board.FileE, sq.File())
	assert.Equal(t, board.Rank4, sq.Rank())
	assert.Equal(t, "e4", sq.String())
}

func TestParseSquareStrInvalid(t *testing.T) {
	tests := []string{"", "e", "e44", "i4", "e9"}
	for _, tt := range tests {
		_, err := board.ParseSquareStr(tt)
		assert.Error(t, err, tt)
	}
}

func TestOffsetOffBoard(t *testing.T) {
	a1 := board.NewSquare(board.FileA, board.Rank1)
	_, ok := a1.Offset(-1, 0)
	assert.False(t, ok)
	_, ok = a1.Offset(0, -1)
	assert.False(t, ok)

	h8 := board.NewSquare(board.FileH, board.Rank8)
	_, ok = h8.Offset(1, 0)
	assert.False(t, ok)
	_, ok = h8.Offset(0, 1)
	assert.False(t, ok)
}

func TestOffsetOnBoard(t *testing.T) {
	e4 := board.NewSquare(board.FileE, board.Rank4)
	to, ok := e4.Offset(1, 1)
	require.True(t, ok)
	assert.Equal(t, board.NewSquare(board.FileF, board.Rank5), to)
}
