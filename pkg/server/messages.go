package server

import (
	"strconv"
	"strings"

	"github.com/opsnlops/mpchess/pkg/board"
	"github.com/opsnlops/mpchess/pkg/board/fen"
	"github.com/opsnlops/mpchess/pkg/game"
	"github.com/opsnlops/mpchess/pkg/protocol"
)

// gameStartMessage announces a freshly paired session to both sides.
func gameStartMessage(snap game.Snapshot) protocol.Message {
	return protocol.New(protocol.GameStart,
		"game", snap.ID,
		"white", string(snap.Slots[board.White].Identity),
		"black", string(snap.Slots[board.Black].Identity),
		"fen", fen.Encode(snap.Position),
	)
}

// gameStateMessage carries the full board state; it is sent when a session
// starts and after a draw offer or a declined draw.
func gameStateMessage(snap game.Snapshot) protocol.Message {
	return protocol.New(protocol.GameState,
		"game", snap.ID,
		"fen", fen.Encode(snap.Position),
		"status", snap.Status.String(),
		"turn", snap.Position.Turn().String(),
	)
}

// moveResultMessage announces an applied move to both sides of a session.
func moveResultMessage(gameID string, mv board.Move, snap game.Snapshot) protocol.Message {
	var lastRecord board.MoveRecord
	if len(snap.History) > 0 {
		lastRecord = snap.History[len(snap.History)-1]
	}
	return protocol.New(protocol.MoveResult,
		"game", gameID,
		"move", mv.String(),
		"fen", fen.Encode(snap.Position),
		"check", strconv.FormatBool(lastRecord.IsCheck),
		"status", snap.Status.String(),
	)
}

// possibleMovesMessage lists legal moves for the current position, used by
// clients that want the server to enumerate rather than validate locally.
func possibleMovesMessage(gameID string, moves []board.Move) protocol.Message {
	return protocol.New(protocol.PossibleMoves,
		"game", gameID,
		"moves", board.FormatMoves(moves),
	)
}

// timeUpdateMessage reports each side's remaining clock.
func timeUpdateMessage(gameID string, snap game.Snapshot) protocol.Message {
	return protocol.New(protocol.TimeUpdate,
		"game", gameID,
		"white_ms", strconv.FormatInt(snap.Slots[board.White].Remaining.Milliseconds(), 10),
		"black_ms", strconv.FormatInt(snap.Slots[board.Black].Remaining.Milliseconds(), 10),
	)
}

// gameEndMessage announces a session's terminal outcome.
func gameEndMessage(snap game.Snapshot) protocol.Message {
	return protocol.New(protocol.GameEnd,
		"game", snap.ID,
		"status", snap.Status.String(),
		"reason", snap.Reason.String(),
	)
}

// errorMessage wraps a failure message to send back to a single endpoint.
func errorMessage(reason string) protocol.Message {
	return protocol.New(protocol.Error, "reason", reason)
}

func parseTimeControl(name string) (game.TimeControl, bool) {
	switch strings.ToLower(name) {
	case "bullet":
		return game.Bullet, true
	case "blitz":
		return game.Blitz, true
	case "rapid":
		return game.Rapid, true
	case "classical":
		return game.Classical, true
	case "correspondence":
		return game.Correspondence, true
	default:
		return game.TimeControl{}, false
	}
}
