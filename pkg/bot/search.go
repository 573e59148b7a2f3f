package bot

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/opsnlops/mpchess/pkg/board"
	"github.com/seekerror/logw"
)

// Strength is the bot's configurable knob, 1 (weakest) through 5
// (strongest). It controls search depth and, at the lowest setting, how
// often a random legal move is played instead of the search result.
type Strength int

const (
	MinStrength Strength = 1
	MaxStrength Strength = 5
)

// depthFor maps strength to a fixed search depth. Kept shallow: C6 is a
// baseline opponent, not a strong engine.
func depthFor(s Strength) int {
	switch {
	case s <= 1:
		return 1
	case s == 2:
		return 2
	case s == 3:
		return 3
	case s == 4:
		return 4
	default:
		return 5
	}
}

// randomMoveChance is the probability, at the lowest strength only, that
// SelectMove returns a uniformly random legal move instead of the best move
// the search found.
const randomMoveChance = 0.15

// Bot selects moves for a given strength using bounded-depth negamax search
// with alpha-beta pruning over the static material evaluation in eval.go.
// It never shares a cache with the rules engine (per the source's memo-cache
// anti-pattern): each search call is self-contained.
type Bot struct {
	strength Strength
	rnd      *rand.Rand
}

// New creates a Bot at the given strength, clamped to [MinStrength,
// MaxStrength].
func New(strength Strength, seed int64) *Bot {
	if strength < MinStrength {
		strength = MinStrength
	}
	if strength > MaxStrength {
		strength = MaxStrength
	}
	return &Bot{strength: strength, rnd: rand.New(rand.NewSource(seed))}
}

// SelectMove returns a legal move for pos's side to move. It errors only if
// no legal move exists -- the caller must not invoke the bot on a terminal
// position.
func (b *Bot) SelectMove(ctx context.Context, pos *board.Position) (board.Move, error) {
	moves := board.LegalMoves(pos)
	if len(moves) == 0 {
		return board.Move{}, fmt.Errorf("bot: no legal move available")
	}

	if b.strength == MinStrength && b.rnd.Float64() < randomMoveChance {
		mv := moves[b.rnd.Intn(len(moves))]
		logw.Debugf(ctx, "bot: playing random move %v at minimum strength", mv)
		return mv, nil
	}

	depth := depthFor(b.strength)

	best := moves[0]
	bestScore := NegInfScore
	alpha, beta := NegInfScore, PosInfScore

	for _, mv := range moves {
		next, _, err := board.Apply(pos, mv)
		if err != nil {
			continue // unreachable for a move board.LegalMoves itself produced.
		}
		score := -negamax(next, depth-1, -beta, -alpha)
		if score > bestScore {
			bestScore = score
			best = mv
		}
		if score > alpha {
			alpha = score
		}
	}

	logw.Debugf(ctx, "bot: selected %v at depth=%v score=%v", best, depth, bestScore)
	return best, nil
}

// negamax returns the score of pos from the perspective of its side to
// move, searched to depth plies with alpha-beta pruning.
func negamax(pos *board.Position, depth int, alpha, beta Score) Score {
	if board.IsCheckmate(pos) {
		return NegInfScore
	}
	if board.IsStalemate(pos) || board.IsInsufficientMaterial(pos) || pos.HalfMoveClock() >= 100 {
		return DrawScore
	}
	if depth == 0 {
		return relative(pos, Evaluate(pos))
	}

	moves := board.LegalMoves(pos)
	best := NegInfScore
	for _, mv := range moves {
		next, _, err := board.Apply(pos, mv)
		if err != nil {
			continue
		}
		score := -negamax(next, depth-1, -beta, -alpha)
		if score > best {
			best = score
		}
		if best > alpha {
			alpha = best
		}
		if alpha >= beta {
			break // beta cutoff
		}
	}
	return best
}
