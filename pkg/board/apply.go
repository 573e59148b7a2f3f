package board

import (
	"fmt"

	"github.com/seekerror/stdlib/pkg/lang"
)

// RejectionKind classifies why Apply refused a move.
type RejectionKind int

const (
	NoPieceAt RejectionKind = iota
	WrongSide
	PieceCannotReach
	WouldLeaveOwnKingInCheck
	BadPromotionChoice
	GameAlreadyEnded
)

func (k RejectionKind) String() string {
	switch k {
	case NoPieceAt:
		return "no piece at origin square"
	case WrongSide:
		return "piece does not belong to the side to move"
	case PieceCannotReach:
		return "piece cannot legally reach the destination square"
	case WouldLeaveOwnKingInCheck:
		return "move would leave the mover's own king in check"
	case BadPromotionChoice:
		return "promotion piece is missing or not a legal promotion target"
	case GameAlreadyEnded:
		return "game has already ended in this position"
	default:
		return "unknown rejection"
	}
}

// Rejection is the error Apply returns when a move is illegal. It always
// carries a Kind so callers (the session state machine, the wire protocol)
// can report a specific reason rather than a bare error string.
type Rejection struct {
	Kind RejectionKind
	Move Move
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("illegal move %v: %v", r.Move, r.Kind)
}

// MoveKind classifies the move that produced a MoveRecord.
type MoveKind int

const (
	Normal MoveKind = iota
	Capture
	EnPassantCapture
	KingSideCastle
	QueenSideCastle
	PromotionMove
	PromotionCapture
)

func (k MoveKind) String() string {
	switch k {
	case Normal:
		return "normal"
	case Capture:
		return "capture"
	case EnPassantCapture:
		return "en-passant"
	case KingSideCastle:
		return "o-o"
	case QueenSideCastle:
		return "o-o-o"
	case PromotionMove:
		return "promotion"
	case PromotionCapture:
		return "promotion-capture"
	default:
		return "unknown"
	}
}

// MoveRecord describes the effect of applying a Move to a Position: the move
// itself, the resulting classification, the piece that moved, and whatever
// was captured (if anything). Session history is built from a sequence of
// these, not from the Move alone, since a Move carries no classification of
// its own.
type MoveRecord struct {
	Move     Move
	Kind     MoveKind
	Mover    Piece
	Captured lang.Optional[Piece]
	IsCheck  bool
}

// Apply returns the Position resulting from playing mv in pos, along with a
// MoveRecord describing it. It rejects the move with a *Rejection if mv is
// not legal: wrong piece, wrong side, unreachable destination, a move that
// would leave the mover's own king in check, a missing or illegal promotion
// choice, or a position in which the game has already ended.
//
// Apply does not consult session history, so it cannot detect threefold
// repetition; GameAlreadyEnded here covers only the position-local terminal
// conditions (checkmate, stalemate, insufficient material, 50-move clock).
func Apply(pos *Position, mv Move) (*Position, MoveRecord, error) {
	if isTerminal(pos) {
		return nil, MoveRecord{}, &Rejection{Kind: GameAlreadyEnded, Move: mv}
	}

	mover := pos.turn
	color, piece, ok := pos.PieceAt(mv.From)
	if !ok {
		return nil, MoveRecord{}, &Rejection{Kind: NoPieceAt, Move: mv}
	}
	if color != mover {
		return nil, MoveRecord{}, &Rejection{Kind: WrongSide, Move: mv}
	}
	if !mv.To.IsValid() {
		return nil, MoveRecord{}, &Rejection{Kind: PieceCannotReach, Move: mv}
	}

	kind, err := reachability(pos, mv, mover, piece)
	if err != nil {
		return nil, MoveRecord{}, err
	}

	var captured lang.Optional[Piece]
	if kind == Capture || kind == EnPassantCapture || kind == PromotionCapture {
		_, capPiece, _ := capturedPiece(pos, mv, kind)
		captured = lang.Some(capPiece)
	}

	next := materialize(pos, mv, mover, piece, kind)

	if IsCheck(next, mover) {
		return nil, MoveRecord{}, &Rejection{Kind: WouldLeaveOwnKingInCheck, Move: mv}
	}

	rec := MoveRecord{
		Move:     mv,
		Kind:     kind,
		Mover:    piece,
		Captured: captured,
		IsCheck:  IsCheck(next, mover.Opponent()),
	}
	return next, rec, nil
}

// reachability checks mv against the pseudo-legal moves for the piece at
// mv.From and classifies it.
func reachability(pos *Position, mv Move, mover Color, piece Piece) (MoveKind, error) {
	var pseudo []Move
	switch piece {
	case Pawn:
		pseudo = pawnMoves(pos, mv.From, mover)
	case Knight:
		pseudo = stepMoves(pos, mv.From, mover, knightOffs[:])
	case Bishop:
		pseudo = slideMoves(pos, mv.From, mover, bishopDirs[:])
	case Rook:
		pseudo = slideMoves(pos, mv.From, mover, rookDirs[:])
	case Queen:
		pseudo = append(slideMoves(pos, mv.From, mover, rookDirs[:]), slideMoves(pos, mv.From, mover, bishopDirs[:])...)
	case King:
		pseudo = append(stepMoves(pos, mv.From, mover, kingOffs[:]), castlingMoves(pos, mv.From, mover)...)
	}

	var matched *Move
	for _, cand := range pseudo {
		if cand.From == mv.From && cand.To == mv.To && cand.Promotion == mv.Promotion {
			m := cand
			matched = &m
			break
		}
	}
	if matched == nil {
		// A destination may be reachable but only with a different (or missing)
		// promotion choice; distinguish that case for a clearer rejection.
		for _, cand := range pseudo {
			if cand.From == mv.From && cand.To == mv.To {
				return 0, &Rejection{Kind: BadPromotionChoice, Move: mv}
			}
		}
		return 0, &Rejection{Kind: PieceCannotReach, Move: mv}
	}

	return classify(pos, mv, mover, piece), nil
}

func classify(pos *Position, mv Move, mover Color, piece Piece) MoveKind {
	if piece == King {
		df := int(mv.To.File()) - int(mv.From.File())
		if df == 2 {
			return KingSideCastle
		}
		if df == -2 {
			return QueenSideCastle
		}
	}
	if piece == Pawn {
		if ep, ok := pos.enPassant.V(); ok && ep == mv.To && mv.To.File() != mv.From.File() {
			return EnPassantCapture
		}
		_, _, destOccupied := pos.PieceAt(mv.To)
		if mv.Promotion != NoPiece {
			if destOccupied {
				return PromotionCapture
			}
			return PromotionMove
		}
		if destOccupied {
			return Capture
		}
		return Normal
	}
	if _, _, present := pos.PieceAt(mv.To); present {
		return Capture
	}
	return Normal
}

// capturedPiece returns the color and kind of piece removed by mv, given its
// classification. Only meaningful when kind is Capture, EnPassantCapture, or
// PromotionCapture.
func capturedPiece(pos *Position, mv Move, kind MoveKind) (Color, Piece, bool) {
	if kind == EnPassantCapture {
		dr := -1
		if pos.turn == Black {
			dr = 1
		}
		capSq, _ := mv.To.Offset(0, dr)
		return pos.PieceAt(capSq)
	}
	return pos.PieceAt(mv.To)
}

// materialize builds the successor Position for mv, given its classification.
// It never mutates pos.
func materialize(pos *Position, mv Move, mover Color, piece Piece, kind MoveKind) *Position {
	next := pos.Clone()

	next.board[mv.From] = cell{}

	switch kind {
	case EnPassantCapture:
		dr := -1
		if mover == Black {
			dr = 1
		}
		capSq, _ := mv.To.Offset(0, dr)
		next.board[capSq] = cell{}
		next.board[mv.To] = cell{piece: Pawn, color: mover}
	case PromotionMove, PromotionCapture:
		next.board[mv.To] = cell{piece: mv.Promotion, color: mover}
	case KingSideCastle:
		next.board[mv.To] = cell{piece: King, color: mover}
		rookFrom := NewSquare(FileH, mv.From.Rank())
		rookTo := NewSquare(FileF, mv.From.Rank())
		next.board[rookFrom] = cell{}
		next.board[rookTo] = cell{piece: Rook, color: mover}
	case QueenSideCastle:
		next.board[mv.To] = cell{piece: King, color: mover}
		rookFrom := NewSquare(FileA, mv.From.Rank())
		rookTo := NewSquare(FileD, mv.From.Rank())
		next.board[rookFrom] = cell{}
		next.board[rookTo] = cell{piece: Rook, color: mover}
	default:
		next.board[mv.To] = cell{piece: piece, color: mover}
	}

	next.castling = updatedCastlingRights(pos.castling, mv, piece, mover)

	if piece == Pawn && abs(int(mv.To.Rank())-int(mv.From.Rank())) == 2 {
		dr := -1
		if mover == Black {
			dr = 1
		}
		target, _ := mv.To.Offset(0, dr)
		next.enPassant = lang.Some(target)
	} else {
		next.enPassant = lang.Optional[Square]{}
	}

	if piece == Pawn || kind == Capture || kind == EnPassantCapture {
		next.halfMoveClock = 0
	} else {
		next.halfMoveClock = pos.halfMoveClock + 1
	}

	next.turn = mover.Opponent()
	if mover == Black {
		next.fullMoveNumber = pos.fullMoveNumber + 1
	}

	return next
}

// updatedCastlingRights revokes rights affected by a king or rook leaving its
// home square, or a rook being captured on its home square. Rights flow only
// one direction: see Castling.Revoke.
func updatedCastlingRights(rights Castling, mv Move, piece Piece, mover Color) Castling {
	if piece == King {
		if mover == White {
			rights = rights.Revoke(WhiteKingSideCastle | WhiteQueenSideCastle)
		} else {
			rights = rights.Revoke(BlackKingSideCastle | BlackQueenSideCastle)
		}
	}

	revokeForRookSquare := func(sq Square) {
		switch {
		case sq == NewSquare(FileA, Rank1):
			rights = rights.Revoke(WhiteQueenSideCastle)
		case sq == NewSquare(FileH, Rank1):
			rights = rights.Revoke(WhiteKingSideCastle)
		case sq == NewSquare(FileA, Rank8):
			rights = rights.Revoke(BlackQueenSideCastle)
		case sq == NewSquare(FileH, Rank8):
			rights = rights.Revoke(BlackKingSideCastle)
		}
	}
	revokeForRookSquare(mv.From)
	revokeForRookSquare(mv.To)

	return rights
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// isTerminal reports whether pos is already a finished position, independent
// of session-level history (so it excludes threefold repetition).
func isTerminal(pos *Position) bool {
	return IsCheckmate(pos) || IsStalemate(pos) || IsInsufficientMaterial(pos) || pos.halfMoveClock >= 100
}
