package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/opsnlops/mpchess/pkg/board"
	"github.com/opsnlops/mpchess/pkg/board/fen"
	"github.com/opsnlops/mpchess/pkg/game"
	"github.com/opsnlops/mpchess/pkg/matchmaker"
	"github.com/opsnlops/mpchess/pkg/protocol"
	"github.com/opsnlops/mpchess/pkg/registry"
	"github.com/opsnlops/mpchess/pkg/rating"
	"github.com/opsnlops/mpchess/pkg/store"
	"github.com/seekerror/logw"
)

// dispatch routes one decoded frame to the handler for its type. Handlers
// reply by calling srv.send directly (a single reply, a broadcast, or
// both) rather than returning a value -- several message types legitimately
// produce more than one outbound frame (a move produces MoveResult to both
// sides, then possibly GameEnd).
func (srv *Server) dispatch(ctx context.Context, endpoint registry.EndpointID, msg protocol.Message) {
	switch msg.Type {
	case protocol.Login:
		srv.handleLogin(ctx, endpoint, msg)
	case protocol.Register:
		srv.handleRegister(ctx, endpoint, msg)
	case protocol.Ping:
		srv.send(endpoint, protocol.New(protocol.Pong))
	case protocol.Move:
		srv.handleMove(ctx, endpoint, msg)
	case protocol.RequestDraw:
		srv.handleRequestDraw(endpoint, msg)
	case protocol.RespondDraw:
		srv.handleRespondDraw(endpoint, msg)
	case protocol.Resign:
		srv.handleResign(endpoint, msg)
	case protocol.MatchmakingRequest:
		srv.handleMatchmakingRequest(endpoint, msg)
	case protocol.MatchmakingCancel:
		srv.handleMatchmakingCancel(endpoint)
	case protocol.SaveGame:
		srv.handleSaveGame(endpoint, msg)
	case protocol.LoadGame:
		srv.handleLoadGame(endpoint, msg)
	case protocol.PlayerStats:
		srv.handlePlayerStats(endpoint, msg)
	case protocol.LeaderboardRequest:
		srv.handleLeaderboardRequest(endpoint, msg)
	case protocol.GameAnalysisRequest:
		srv.handleGameAnalysisRequest(ctx, endpoint, msg)
	case protocol.MoveRecommendationsRequest:
		srv.handleMoveRecommendationsRequest(ctx, endpoint, msg)
	default:
		srv.send(endpoint, errorMessage("unsupported message type"))
	}
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func (srv *Server) handleLogin(ctx context.Context, endpoint registry.EndpointID, msg protocol.Message) {
	username := msg.Get("username")
	password := msg.Get("password")

	acct, err := srv.accounts.LoadAccount(username)
	if err != nil {
		srv.send(endpoint, errorMessage("unknown username or password"))
		return
	}
	if acct.PasswordHash != hashPassword(password) {
		srv.send(endpoint, errorMessage("unknown username or password"))
		return
	}

	acct.LastLogin = time.Now()
	_ = srv.accounts.SaveAccount(acct)

	if err := srv.reg.Authenticate(endpoint, game.Identity(username)); err != nil {
		srv.send(endpoint, errorMessage("login failed"))
		return
	}

	logw.Infof(ctx, "Server: %v logged in on endpoint %v", username, endpoint)
	srv.send(endpoint, protocol.New(protocol.Login,
		"username", acct.Username,
		"rating", strconv.Itoa(acct.Rating),
		"protocol_version", fmt.Sprintf("%v", protocolVersion),
	))
}

func (srv *Server) handleRegister(ctx context.Context, endpoint registry.EndpointID, msg protocol.Message) {
	username := msg.Get("username")
	password := msg.Get("password")
	if username == "" || password == "" {
		srv.send(endpoint, errorMessage("username and password are required"))
		return
	}

	acct := store.NewAccount(username, hashPassword(password), time.Now())
	if err := srv.accounts.CreateAccount(acct); err != nil {
		srv.send(endpoint, errorMessage("username already taken"))
		return
	}

	if err := srv.reg.Authenticate(endpoint, game.Identity(username)); err != nil {
		srv.send(endpoint, errorMessage("registration failed"))
		return
	}

	logw.Infof(ctx, "Server: registered new account %v", username)
	srv.send(endpoint, protocol.New(protocol.Register,
		"username", acct.Username,
		"rating", strconv.Itoa(acct.Rating),
		"protocol_version", fmt.Sprintf("%v", protocolVersion),
	))
}

func (srv *Server) identityFor(endpoint registry.EndpointID) (game.Identity, bool) {
	return srv.reg.Identity(endpoint)
}

func (srv *Server) sessionFor(endpoint registry.EndpointID) (*game.Session, bool) {
	sessionID, ok := srv.reg.LookupSession(endpoint)
	if !ok {
		return nil, false
	}
	sess := srv.lookupSession(sessionID)
	return sess, sess != nil
}

func (srv *Server) handleMove(ctx context.Context, endpoint registry.EndpointID, msg protocol.Message) {
	identity, ok := srv.identityFor(endpoint)
	if !ok {
		srv.send(endpoint, errorMessage("not authenticated"))
		return
	}
	sess, ok := srv.sessionFor(endpoint)
	if !ok {
		srv.send(endpoint, errorMessage("not in a game"))
		return
	}

	mv, err := board.ParseMove(msg.Get("move"))
	if err != nil {
		srv.send(endpoint, errorMessage("malformed move"))
		return
	}

	_, snap, err := sess.SubmitMove(identity, mv)
	if err != nil {
		srv.send(endpoint, errorMessage(err.Error()))
		return
	}

	srv.broadcastToSession(sess.ID(), moveResultMessage(sess.ID(), mv, snap))
	if snap.Status.IsTerminal() {
		srv.broadcastToSession(sess.ID(), gameEndMessage(snap))
		srv.applyRatingUpdate(ctx, snap)
		return
	}
	srv.broadcastToSession(sess.ID(), possibleMovesMessage(sess.ID(), snap.LegalMoves()))
	srv.broadcastToSession(sess.ID(), timeUpdateMessage(sess.ID(), snap))
}

// applyRatingUpdate updates both participants' ratings and win/loss/draw
// counts for a terminal snapshot of a human-vs-human session. Games involving
// the in-process bot do not move either side's rating. Only handleMove calls
// it, so a game that ends by resignation, draw agreement, timeout or
// disconnection leaves both accounts unchanged.
func (srv *Server) applyRatingUpdate(ctx context.Context, snap game.Snapshot) {
	white, black := snap.Slots[board.White], snap.Slots[board.Black]
	if white.IsBot || black.IsBot {
		return
	}

	var result rating.Result
	switch snap.Status {
	case game.WhiteWin:
		result = rating.Win
	case game.BlackWin:
		result = rating.Loss
	default:
		result = rating.Draw
	}

	whiteAcct, err1 := srv.accounts.LoadAccount(string(white.Identity))
	blackAcct, err2 := srv.accounts.LoadAccount(string(black.Identity))
	if err1 != nil || err2 != nil {
		return
	}

	newWhite, newBlack := rating.Update(whiteAcct.Rating, blackAcct.Rating, result)
	whiteAcct.Rating, blackAcct.Rating = newWhite, newBlack
	whiteAcct.GamesPlayed++
	blackAcct.GamesPlayed++
	switch snap.Status {
	case game.WhiteWin:
		whiteAcct.Wins++
		blackAcct.Losses++
	case game.BlackWin:
		blackAcct.Wins++
		whiteAcct.Losses++
	case game.Draw:
		whiteAcct.Draws++
		blackAcct.Draws++
	}

	_ = srv.accounts.SaveAccount(whiteAcct)
	_ = srv.accounts.SaveAccount(blackAcct)
	logw.Infof(ctx, "Server: rating update %v=%v, %v=%v", whiteAcct.Username, whiteAcct.Rating, blackAcct.Username, blackAcct.Rating)
}

func (srv *Server) handleRequestDraw(endpoint registry.EndpointID, msg protocol.Message) {
	identity, ok := srv.identityFor(endpoint)
	if !ok {
		return
	}
	sess, ok := srv.sessionFor(endpoint)
	if !ok {
		srv.send(endpoint, errorMessage("not in a game"))
		return
	}
	snap, err := sess.OfferDraw(identity)
	if err != nil {
		srv.send(endpoint, errorMessage(err.Error()))
		return
	}
	srv.broadcastToSession(sess.ID(), gameStateMessage(snap))
	if snap.Status.IsTerminal() {
		srv.broadcastToSession(sess.ID(), gameEndMessage(snap))
	}
}

func (srv *Server) handleRespondDraw(endpoint registry.EndpointID, msg protocol.Message) {
	identity, ok := srv.identityFor(endpoint)
	if !ok {
		return
	}
	sess, ok := srv.sessionFor(endpoint)
	if !ok {
		srv.send(endpoint, errorMessage("not in a game"))
		return
	}
	accept := msg.Get("accept") == "true"
	snap, err := sess.RespondDraw(identity, accept)
	if err != nil {
		srv.send(endpoint, errorMessage(err.Error()))
		return
	}
	if snap.Status.IsTerminal() {
		srv.broadcastToSession(sess.ID(), gameEndMessage(snap))
	} else {
		srv.broadcastToSession(sess.ID(), gameStateMessage(snap))
	}
}

func (srv *Server) handleResign(endpoint registry.EndpointID, msg protocol.Message) {
	identity, ok := srv.identityFor(endpoint)
	if !ok {
		return
	}
	sess, ok := srv.sessionFor(endpoint)
	if !ok {
		srv.send(endpoint, errorMessage("not in a game"))
		return
	}
	snap, err := sess.Resign(identity)
	if err != nil {
		srv.send(endpoint, errorMessage(err.Error()))
		return
	}
	srv.broadcastToSession(sess.ID(), gameEndMessage(snap))
}

func (srv *Server) handleMatchmakingRequest(endpoint registry.EndpointID, msg protocol.Message) {
	identity, ok := srv.identityFor(endpoint)
	if !ok {
		return
	}
	acct, err := srv.accounts.LoadAccount(string(identity))
	if err != nil {
		srv.send(endpoint, errorMessage("account not found"))
		return
	}

	tc, ok := parseTimeControl(msg.Get("time_control"))
	if !ok {
		tc = game.Blitz
	}

	srv.mm.Enqueue(matchmaker.Ticket{
		Identity:    identity,
		Rating:      acct.Rating,
		TimeControl: tc,
		EnqueuedAt:  time.Now(),
	})
	srv.send(endpoint, protocol.New(protocol.MatchmakingStatus, "state", "queued"))
}

func (srv *Server) handleMatchmakingCancel(endpoint registry.EndpointID) {
	identity, ok := srv.identityFor(endpoint)
	if !ok {
		return
	}
	srv.mm.Cancel(identity)
	srv.send(endpoint, protocol.New(protocol.MatchmakingStatus, "state", "cancelled"))
}

func (srv *Server) handleSaveGame(endpoint registry.EndpointID, msg protocol.Message) {
	sess, ok := srv.sessionFor(endpoint)
	if !ok {
		srv.send(endpoint, errorMessage("not in a game"))
		return
	}
	snap := sess.Snapshot()

	g := &store.SavedGame{
		ID:      snap.ID,
		White:   string(snap.Slots[board.White].Identity),
		Black:   string(snap.Slots[board.Black].Identity),
		FEN:     fen.Encode(snap.Position),
		Result:  snap.Status.String(),
		SavedAt: time.Now(),
	}
	if err := srv.accounts.SaveGame(g); err != nil {
		srv.send(endpoint, errorMessage("save failed"))
		return
	}
	srv.send(endpoint, protocol.New(protocol.SaveGame, "game", g.ID, "state", "saved"))
}

func (srv *Server) handleLoadGame(endpoint registry.EndpointID, msg protocol.Message) {
	g, err := srv.accounts.LoadGame(msg.Get("game"))
	if err != nil {
		srv.send(endpoint, errorMessage("game not found"))
		return
	}
	srv.send(endpoint, protocol.New(protocol.LoadGame,
		"game", g.ID,
		"fen", g.FEN,
		"white", g.White,
		"black", g.Black,
		"result", g.Result,
	))
}

func (srv *Server) handlePlayerStats(endpoint registry.EndpointID, msg protocol.Message) {
	username := msg.Get("username")
	if username == "" {
		if identity, ok := srv.identityFor(endpoint); ok {
			username = string(identity)
		}
	}
	acct, err := srv.accounts.LoadAccount(username)
	if err != nil {
		srv.send(endpoint, errorMessage("unknown player"))
		return
	}
	srv.send(endpoint, protocol.New(protocol.PlayerStats,
		"username", acct.Username,
		"rating", strconv.Itoa(acct.Rating),
		"games_played", strconv.Itoa(acct.GamesPlayed),
		"wins", strconv.Itoa(acct.Wins),
		"losses", strconv.Itoa(acct.Losses),
		"draws", strconv.Itoa(acct.Draws),
		"protocol_version", fmt.Sprintf("%v", protocolVersion),
	))
}

func (srv *Server) handleLeaderboardRequest(endpoint registry.EndpointID, msg protocol.Message) {
	n := 10
	if raw := msg.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			n = parsed
		}
	}
	entries, err := srv.accounts.Leaderboard(n)
	if err != nil {
		srv.send(endpoint, errorMessage("leaderboard unavailable"))
		return
	}

	names := make([]string, len(entries))
	for i, acct := range entries {
		names[i] = acct.Username + ":" + strconv.Itoa(acct.Rating)
	}
	srv.send(endpoint, protocol.New(protocol.LeaderboardRequest, "entries", joinComma(names)))
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

// handleGameAnalysisRequest and handleMoveRecommendationsRequest both defer
// to the optional external UCI engine; per Open Question Resolution, that
// engine is advisory only and never substitutes for the in-process bot
// during gameplay.
func (srv *Server) handleGameAnalysisRequest(ctx context.Context, endpoint registry.EndpointID, msg protocol.Message) {
	if srv.analysis == nil {
		srv.send(endpoint, errorMessage("analysis engine not configured"))
		return
	}
	sess, ok := srv.sessionFor(endpoint)
	if !ok {
		srv.send(endpoint, errorMessage("not in a game"))
		return
	}
	snap := sess.Snapshot()

	thinkTime := 500 * time.Millisecond
	if raw := msg.Get("think_ms"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			thinkTime = time.Duration(ms) * time.Millisecond
		}
	}

	result, err := srv.analysis.Analyze(ctx, "fen "+fen.Encode(snap.Position), nil, thinkTime)
	if err != nil {
		srv.send(endpoint, errorMessage("analysis failed"))
		return
	}

	srv.send(endpoint, protocol.New(protocol.GameAnalysisRequest,
		"game", sess.ID(),
		"best_move", result.BestMove,
	))
}

func (srv *Server) handleMoveRecommendationsRequest(ctx context.Context, endpoint registry.EndpointID, msg protocol.Message) {
	if srv.analysis == nil {
		srv.send(endpoint, errorMessage("analysis engine not configured"))
		return
	}
	sess, ok := srv.sessionFor(endpoint)
	if !ok {
		srv.send(endpoint, errorMessage("not in a game"))
		return
	}
	snap := sess.Snapshot()

	result, err := srv.analysis.Analyze(ctx, "fen "+fen.Encode(snap.Position), nil, 500*time.Millisecond)
	if err != nil {
		srv.send(endpoint, errorMessage("analysis failed"))
		return
	}

	var lines []string
	for _, l := range result.Lines {
		if len(l.PV) > 0 {
			lines = append(lines, l.PV[0])
		}
	}
	srv.send(endpoint, protocol.New(protocol.MoveRecommendationsRequest,
		"game", sess.ID(),
		"recommendations", joinComma(lines),
	))
}

