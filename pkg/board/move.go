package board

import "fmt"

// Move represents a candidate move: origin, destination, and the promotion
// piece if the mover chooses one. A Move carries no classification (capture,
// castle, en passant, ...) of its own -- that is derived from the Position it
// is applied to and recorded separately in a MoveRecord. This keeps Move a
// small, comparable value usable as a map key or for direct equality checks.
type Move struct {
	From, To  Square
	Promotion Piece // NoPiece unless this move is a promotion.
}

// ParseMove parses a move in pure algebraic coordinate notation, such as
// "e2e4" or "a7a8q". Castling is represented as the king's two-file move,
// e.g. "e1g1".
func ParseMove(str string) (Move, error) {
	runes := []rune(str)

	if len(runes) < 4 || len(runes) > 5 {
		return Move{}, fmt.Errorf("invalid move: %q", str)
	}

	from, err := ParseSquare(runes[0], runes[1])
	if err != nil {
		return Move{}, fmt.Errorf("invalid from in move %q: %w", str, err)
	}
	to, err := ParseSquare(runes[2], runes[3])
	if err != nil {
		return Move{}, fmt.Errorf("invalid to in move %q: %w", str, err)
	}

	if len(runes) == 5 {
		promo, ok := ParsePiece(runes[4])
		if !ok || !promo.IsPromotable() {
			return Move{}, fmt.Errorf("invalid promotion in move %q", str)
		}
		return Move{From: from, To: to, Promotion: promo}, nil
	}

	return Move{From: from, To: to}, nil
}

func (m Move) Equals(o Move) bool {
	return m.From == o.From && m.To == o.To && m.Promotion == o.Promotion
}

func (m Move) String() string {
	if m.Promotion.IsValid() && m.Promotion != NoPiece {
		return fmt.Sprintf("%v%v%v", m.From, m.To, m.Promotion)
	}
	return fmt.Sprintf("%v%v", m.From, m.To)
}

// FormatMoves renders a sequence of moves, space-separated.
func FormatMoves(moves []Move) string {
	var out []byte
	for i, m := range moves {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, m.String()...)
	}
	return string(out)
}
