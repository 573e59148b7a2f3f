// Package fen contains utilities for reading and writing positions in FEN
// notation. Since board.Position already carries side to move, castling
// rights, en passant target, and the move counters, Decode and Encode work
// directly against a single *board.Position rather than separate fields.
package fen

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/opsnlops/mpchess/pkg/board"

	"github.com/seekerror/stdlib/pkg/lang"
)

const Initial = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Decode returns the position described by a FEN record.
//
// Example:
//
//	"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
func Decode(fen string) (*board.Position, error) {
	// A FEN record contains six space-separated fields.

	parts := strings.Fields(strings.TrimSpace(fen))
	if len(parts) != 6 {
		return nil, fmt.Errorf("invalid number of sections in FEN: %q", fen)
	}

	// (1) Piece placement (from white's perspective). Each rank is described,
	// starting with rank 8 and ending with rank 1; within each rank, the
	// contents of each square are described from file a through file h.

	var pieces []board.Placement

	f, r := board.FileA, board.Rank8
	for _, ch := range parts[0] {
		switch {
		case ch == '/':
			f, r = board.FileA, r-1

		case unicode.IsDigit(ch):
			// Blank squares are noted using digits 1 through 8.
			f += board.File(ch - '0')

		case unicode.IsLetter(ch):
			// Pieces are identified by a single letter taken from the standard
			// English names (P, N, B, R, Q, K); uppercase is White, lowercase
			// is Black.
			color, piece, ok := parsePiece(ch)
			if !ok {
				return nil, fmt.Errorf("invalid piece %q in FEN: %q", ch, fen)
			}
			if !f.IsValid() {
				return nil, fmt.Errorf("rank overflow in FEN: %q", fen)
			}
			pieces = append(pieces, board.Placement{Square: board.NewSquare(f, r), Color: color, Piece: piece})
			f++

		default:
			return nil, fmt.Errorf("invalid character %q in FEN: %q", ch, fen)
		}
	}

	// (2) Active color. "w" means white moves next, "b" means black.

	turn, ok := parseColor(parts[1])
	if !ok {
		return nil, fmt.Errorf("invalid active color in FEN: %q", fen)
	}

	// (3) Castling availability. "-" if neither side can castle, otherwise one
	// or more of "K", "Q", "k", "q".

	castling, ok := parseCastling(parts[2])
	if !ok {
		return nil, fmt.Errorf("invalid castling in FEN: %q", fen)
	}

	// (4) En passant target square, or "-" if none.

	var ep lang.Optional[board.Square]
	if parts[3] != "-" {
		sq, err := board.ParseSquareStr(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid en passant square in FEN: %q", fen)
		}
		ep = lang.Some(sq)
	}

	// (5) Halfmove clock: plies since the last pawn advance or capture.

	halfMove, err := strconv.Atoi(parts[4])
	if err != nil || halfMove < 0 {
		return nil, fmt.Errorf("invalid halfmove clock in FEN: %q", fen)
	}

	// (6) Fullmove number: starts at 1, increments after Black's move.

	fullMove, err := strconv.Atoi(parts[5])
	if err != nil || fullMove < 1 {
		return nil, fmt.Errorf("invalid fullmove number in FEN: %q", fen)
	}

	return board.NewPosition(pieces, turn, castling, ep, halfMove, fullMove)
}

// Encode renders pos as a FEN record.
func Encode(pos *board.Position) string {
	var sb strings.Builder
	for r := int(board.Rank8); ; r-- {
		blanks := 0
		for f := board.FileA; f < board.NumFiles; f++ {
			color, piece, ok := pos.PieceAt(board.NewSquare(f, board.Rank(r)))
			if !ok {
				blanks++
				continue
			}
			if blanks > 0 {
				sb.WriteString(strconv.Itoa(blanks))
				blanks = 0
			}
			sb.WriteRune(printPiece(color, piece))
		}
		if blanks > 0 {
			sb.WriteString(strconv.Itoa(blanks))
		}
		if r == 0 {
			break
		}
		sb.WriteString("/")
	}

	ep := "-"
	if sq, ok := pos.EnPassant().V(); ok {
		ep = sq.String()
	}

	return fmt.Sprintf("%v %v %v %v %v %v",
		sb.String(), printColor(pos.Turn()), pos.Castling(), ep, pos.HalfMoveClock(), pos.FullMoveNumber())
}

// RepetitionKey returns the subset of a position's FEN that determines
// repetition: piece placement, side to move, castling rights, and en passant
// target. The halfmove clock and fullmove number are intentionally excluded
// -- two positions reached by different move counts but otherwise identical
// still count as the same position for threefold repetition.
func RepetitionKey(pos *board.Position) string {
	full := Encode(pos)
	parts := strings.Fields(full)
	return strings.Join(parts[:4], " ")
}

func parseCastling(str string) (board.Castling, bool) {
	var ret board.Castling
	if str == "-" {
		return ret, true
	}
	for _, r := range []rune(str) {
		switch r {
		case 'K':
			ret |= board.WhiteKingSideCastle
		case 'Q':
			ret |= board.WhiteQueenSideCastle
		case 'k':
			ret |= board.BlackKingSideCastle
		case 'q':
			ret |= board.BlackQueenSideCastle
		default:
			return 0, false
		}
	}
	return ret, true
}

func parseColor(str string) (board.Color, bool) {
	switch str {
	case "w", "W":
		return board.White, true
	case "b", "B":
		return board.Black, true
	default:
		return 0, false
	}
}

func printColor(c board.Color) string {
	if c == board.White {
		return "w"
	}
	return "b"
}

func parsePiece(r rune) (board.Color, board.Piece, bool) {
	switch r {
	case 'P':
		return board.White, board.Pawn, true
	case 'B':
		return board.White, board.Bishop, true
	case 'N':
		return board.White, board.Knight, true
	case 'R':
		return board.White, board.Rook, true
	case 'Q':
		return board.White, board.Queen, true
	case 'K':
		return board.White, board.King, true

	case 'p':
		return board.Black, board.Pawn, true
	case 'b':
		return board.Black, board.Bishop, true
	case 'n':
		return board.Black, board.Knight, true
	case 'r':
		return board.Black, board.Rook, true
	case 'q':
		return board.Black, board.Queen, true
	case 'k':
		return board.Black, board.King, true

	default:
		return 0, 0, false
	}
}

func printPiece(c board.Color, p board.Piece) rune {
	var r rune
	switch p {
	case board.Pawn:
		r = 'p'
	case board.Bishop:
		r = 'b'
	case board.Knight:
		r = 'n'
	case board.Rook:
		r = 'r'
	case board.Queen:
		r = 'q'
	case board.King:
		r = 'k'
	default:
		r = '?'
	}
	if c == board.White {
		return unicode.ToUpper(r)
	}
	return r
}
