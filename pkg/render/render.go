// Package render draws an ASCII representation of a position for logs and
// debugging rather than for any client (clients receive structured GameState
// messages and render their own board). Nothing in pkg/server calls it.
package render

import (
	"strings"

	"github.com/opsnlops/mpchess/pkg/board"
)

const (
	files      = "    a   b   c   d   e   f   g   h"
	horizontal = "  ---------------------------------"
	vertical   = " | "
)

// Board renders pos as an 8x8 ASCII grid, White pieces uppercase, Black
// lowercase, rank 8 at the top.
func Board(pos *board.Position) string {
	var sb strings.Builder

	sb.WriteString(files)
	sb.WriteByte('\n')
	sb.WriteString(horizontal)
	sb.WriteByte('\n')

	for r := int(board.Rank8); r >= int(board.Rank1); r-- {
		sb.WriteString(board.Rank(r).String())
		sb.WriteString(vertical)
		for f := board.FileA; f < board.NumFiles; f++ {
			if color, piece, ok := pos.PieceAt(board.NewSquare(f, board.Rank(r))); ok {
				sb.WriteString(printPiece(color, piece))
			} else {
				sb.WriteString(" ")
			}
			sb.WriteString(vertical)
		}
		sb.WriteByte('\n')
		sb.WriteString(horizontal)
		sb.WriteByte('\n')
	}
	sb.WriteString(files)

	return sb.String()
}

func printPiece(c board.Color, p board.Piece) string {
	if c == board.White {
		return strings.ToUpper(p.String())
	}
	return strings.ToLower(p.String())
}
