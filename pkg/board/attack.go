package board

// rayDirs are the (file, rank) steps for sliding pieces.
var (
	rookDirs   = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopDirs = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	knightOffs = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingOffs   = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
)

// IsAttacked reports whether sq is attacked by the given color in the
// position as given -- i.e. whether that color has a pseudo-legal capture
// landing on sq. Own-king safety is not considered here; see IsCheck and the
// legality filter in Apply.
func IsAttacked(pos *Position, sq Square, by Color) bool {
	// Pawns: a pawn of `by` attacks diagonally toward the opponent's side.
	dr := 1
	if by == Black {
		dr = -1
	}
	for _, df := range [2]int{-1, 1} {
		if src, ok := sq.Offset(df, -dr); ok {
			if c, p, present := pos.PieceAt(src); present && c == by && p == Pawn {
				return true
			}
		}
	}

	for _, o := range knightOffs {
		if src, ok := sq.Offset(o[0], o[1]); ok {
			if c, p, present := pos.PieceAt(src); present && c == by && p == Knight {
				return true
			}
		}
	}

	for _, o := range kingOffs {
		if src, ok := sq.Offset(o[0], o[1]); ok {
			if c, p, present := pos.PieceAt(src); present && c == by && p == King {
				return true
			}
		}
	}

	for _, d := range rookDirs {
		if rayAttacks(pos, sq, d, by, Rook, Queen) {
			return true
		}
	}
	for _, d := range bishopDirs {
		if rayAttacks(pos, sq, d, by, Bishop, Queen) {
			return true
		}
	}
	return false
}

// rayAttacks walks from sq in direction d until the edge of the board or the
// first occupied square, and reports whether that first occupant is an
// attacking piece of kind k1 or k2 belonging to `by`.
func rayAttacks(pos *Position, sq Square, d [2]int, by Color, k1, k2 Piece) bool {
	cur := sq
	for {
		next, ok := cur.Offset(d[0], d[1])
		if !ok {
			return false
		}
		cur = next
		if c, p, present := pos.PieceAt(cur); present {
			return c == by && (p == k1 || p == k2)
		}
	}
}

// IsCheck reports whether c's king is currently attacked.
func IsCheck(pos *Position, c Color) bool {
	return IsAttacked(pos, pos.KingSquare(c), c.Opponent())
}
