// Package server implements the protocol dispatcher (C8) and the server
// orchestrator (C9): it accepts connections, authenticates and binds them
// via pkg/registry, dispatches protocol.Message frames to session and
// matchmaking operations, and drives the clock and matchmaking loops
// alongside the accept loop until shut down.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opsnlops/mpchess/internal/config"
	"github.com/opsnlops/mpchess/pkg/analysis"
	"github.com/opsnlops/mpchess/pkg/bot"
	"github.com/opsnlops/mpchess/pkg/game"
	"github.com/opsnlops/mpchess/pkg/matchmaker"
	"github.com/opsnlops/mpchess/pkg/protocol"
	"github.com/opsnlops/mpchess/pkg/registry"
	"github.com/opsnlops/mpchess/pkg/store"
	"github.com/seekerror/build"
	"github.com/seekerror/logw"
	"golang.org/x/sync/errgroup"
)

// protocolVersion is surfaced to clients on Login/Register/PlayerStats so a
// client can detect a mismatch against the wire format it was built against.
var protocolVersion = build.NewVersion(1, 0, 0)

// Server wires together the registry, the per-session clock, the
// matchmaker, the account store, and the optional analysis engine into one
// running process.
type Server struct {
	cfg      config.Config
	accounts *store.Store
	reg      *registry.Registry
	clock    *game.Clock
	mm       *matchmaker.Matchmaker
	analysis *analysis.Client // nil unless configured and reachable

	mu       sync.Mutex
	sessions map[string]*game.Session
	conns    map[registry.EndpointID]net.Conn
	outbound map[registry.EndpointID]chan protocol.Message

	nextGameID atomic.Uint64
}

// New builds a Server. The analysis engine, if any, should already have
// been launched by the caller; a nil client disables analysis requests.
func New(cfg config.Config, accounts *store.Store, eng *analysis.Client) *Server {
	return &Server{
		cfg:      cfg,
		accounts: accounts,
		reg:      registry.New(),
		clock:    game.NewClock(cfg.Clock.TickInterval.Duration),
		mm: matchmaker.New(matchmaker.Config{
			Band:        cfg.Matchmaker.Band,
			RelaxAfter:  cfg.Matchmaker.RelaxAfter.Duration,
			BotFallback: cfg.Matchmaker.BotFallback.Duration,
		}),
		analysis: eng,
		sessions: make(map[string]*game.Session),
		conns:    make(map[registry.EndpointID]net.Conn),
		outbound: make(map[registry.EndpointID]chan protocol.Message),
	}
}

// Run listens on cfg.Server.Address and blocks, driving the accept loop,
// the clock service, and the matchmaking loop until ctx is cancelled.
func (srv *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", srv.cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("server: listen on %v: %w", srv.cfg.Server.Address, err)
	}
	logw.Infof(ctx, "Server listening on %v", srv.cfg.Server.Address)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})
	g.Go(func() error {
		return srv.acceptLoop(gctx, ln)
	})
	g.Go(func() error {
		srv.clock.Run(gctx)
		return nil
	})
	g.Go(func() error {
		srv.mm.Run(gctx, srv.cfg.Matchmaker.Interval.Duration, func(pairings []matchmaker.Pairing) {
			srv.startPairings(gctx, pairings)
		})
		return nil
	})

	err = g.Wait()
	if ctx.Err() != nil {
		return nil // clean shutdown
	}
	return err
}

func (srv *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logw.Warningf(ctx, "Server: accept error: %v", err)
			continue
		}

		endpoint := srv.reg.Register()
		out := make(chan protocol.Message, 32)

		srv.mu.Lock()
		srv.conns[endpoint] = conn
		srv.outbound[endpoint] = out
		srv.mu.Unlock()

		logw.Infof(ctx, "Server: accepted connection %v as endpoint %v", conn.RemoteAddr(), endpoint)

		go srv.writeLoop(ctx, endpoint, conn, out)
		go srv.readLoop(ctx, endpoint, conn)
	}
}

func (srv *Server) writeLoop(ctx context.Context, endpoint registry.EndpointID, conn net.Conn, out <-chan protocol.Message) {
	for msg := range out {
		if err := protocol.WriteMessage(conn, msg); err != nil {
			logw.Warningf(ctx, "Server: write to endpoint %v failed: %v", endpoint, err)
			return
		}
	}
}

func (srv *Server) readLoop(ctx context.Context, endpoint registry.EndpointID, conn net.Conn) {
	defer srv.dropEndpoint(ctx, endpoint)

	for {
		msg, err := protocol.ReadMessage(conn)
		if err != nil {
			return
		}

		if !srv.reg.IsAuthenticated(endpoint) && !isPreAuth(msg.Type) {
			srv.send(endpoint, protocol.New(protocol.Error, "reason", "not authenticated"))
			continue
		}

		srv.dispatch(ctx, endpoint, msg)
	}
}

// isPreAuth reports whether msg.Type may be sent before Login/Register.
func isPreAuth(t protocol.MessageType) bool {
	switch t {
	case protocol.Login, protocol.Register, protocol.Ping:
		return true
	default:
		return false
	}
}

func (srv *Server) send(endpoint registry.EndpointID, msg protocol.Message) {
	srv.mu.Lock()
	out, ok := srv.outbound[endpoint]
	srv.mu.Unlock()
	if !ok {
		return
	}
	select {
	case out <- msg:
	default:
		// Outbound buffer full: the connection is not draining, drop rather
		// than block the dispatcher on a stuck client.
	}
}

func (srv *Server) broadcastToSession(sessionID string, msg protocol.Message) {
	for _, ep := range srv.reg.EndpointsForSession(sessionID) {
		srv.send(ep, msg)
	}
}

func (srv *Server) dropEndpoint(ctx context.Context, endpoint registry.EndpointID) {
	identity, sessionID, bound := srv.reg.Drop(endpoint)

	srv.mu.Lock()
	if conn, ok := srv.conns[endpoint]; ok {
		_ = conn.Close()
		delete(srv.conns, endpoint)
	}
	if out, ok := srv.outbound[endpoint]; ok {
		close(out)
		delete(srv.outbound, endpoint)
	}
	srv.mu.Unlock()

	srv.mm.Cancel(identity)

	if !bound {
		return
	}
	sess := srv.lookupSession(sessionID)
	if sess == nil {
		return
	}
	snap := sess.OnDisconnect(identity)
	logw.Infof(ctx, "Server: endpoint %v (%v) disconnected from session %v, status=%v", endpoint, identity, sessionID, snap.Status)
	srv.broadcastToSession(sessionID, gameEndMessage(snap))
}

func (srv *Server) newGameID() string {
	return fmt.Sprintf("game-%d", srv.nextGameID.Add(1))
}

func (srv *Server) lookupSession(id string) *game.Session {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.sessions[id]
}

func (srv *Server) storeSession(sess *game.Session) {
	srv.mu.Lock()
	srv.sessions[sess.ID()] = sess
	srv.mu.Unlock()
	srv.clock.Track(sess)
}

// startPairings turns matchmaking pairings into live sessions: both human
// sides are attached by identity (their endpoints are located by scanning
// the registry when the session starts, since a ticket only carries an
// identity).
// A bot pairing spawns an internal move loop instead of a second endpoint.
func (srv *Server) startPairings(ctx context.Context, pairings []matchmaker.Pairing) {
	for _, p := range pairings {
		tc := p.White.TimeControl
		if tc == (game.TimeControl{}) {
			tc = game.Blitz
		}

		id := srv.newGameID()
		sess := game.NewSession(id, tc)

		if _, err := sess.Attach(0, p.White.Identity, false); err != nil {
			logw.Errorf(ctx, "Server: attach white %v to %v: %v", p.White.Identity, id, err)
			continue
		}

		if p.IsBot {
			if _, err := sess.Attach(1, game.Identity(fmt.Sprintf("bot-%d", p.BotStrength)), true); err != nil {
				logw.Errorf(ctx, "Server: attach bot to %v: %v", id, err)
				continue
			}
			srv.storeSession(sess)
			srv.bindIdentityToSession(p.White.Identity, id)
			srv.announceSessionStart(sess)
			go srv.runBotSide(ctx, sess, p.BotStrength)
			continue
		}

		if _, err := sess.Attach(1, p.Black.Identity, false); err != nil {
			logw.Errorf(ctx, "Server: attach black %v to %v: %v", p.Black.Identity, id, err)
			continue
		}
		srv.storeSession(sess)
		srv.bindIdentityToSession(p.White.Identity, id)
		srv.bindIdentityToSession(p.Black.Identity, id)
		srv.announceSessionStart(sess)
	}
}

// announceSessionStart sends the entry sequence a client expects on joining
// a session: GameStart, then GameState (initial board), then PossibleMoves
// for the side to move, then TimeUpdate.
func (srv *Server) announceSessionStart(sess *game.Session) {
	snap := sess.Snapshot()
	srv.broadcastToSession(sess.ID(), gameStartMessage(snap))
	srv.broadcastToSession(sess.ID(), gameStateMessage(snap))
	srv.broadcastToSession(sess.ID(), possibleMovesMessage(sess.ID(), snap.LegalMoves()))
	srv.broadcastToSession(sess.ID(), timeUpdateMessage(sess.ID(), snap))
}

// bindIdentityToSession binds every endpoint currently authenticated as
// identity to sessionID. A human player may have exactly one live
// endpoint in practice, but nothing here assumes that.
func (srv *Server) bindIdentityToSession(identity game.Identity, sessionID string) {
	srv.mu.Lock()
	endpoints := make([]registry.EndpointID, 0, len(srv.outbound))
	for ep := range srv.outbound {
		endpoints = append(endpoints, ep)
	}
	srv.mu.Unlock()

	for _, ep := range endpoints {
		if who, ok := srv.reg.Identity(ep); ok && who == identity {
			_ = srv.reg.BindToSession(ep, sessionID)
		}
	}
}

// runBotSide drives the in-process bot's moves whenever it is the side to
// move, per Open Question Resolution: the external analysis engine never
// substitutes for it in gameplay.
func (srv *Server) runBotSide(ctx context.Context, sess *game.Session, strength bot.Strength) {
	b := bot.New(strength, time.Now().UnixNano())

	for {
		snap := sess.Snapshot()
		if snap.Status.IsTerminal() {
			srv.broadcastToSession(sess.ID(), gameEndMessage(snap))
			return
		}

		idx := int(snap.Position.Turn())
		if !snap.Slots[idx].IsBot {
			time.Sleep(200 * time.Millisecond)
			continue
		}

		mv, err := b.SelectMove(ctx, snap.Position)
		if err != nil {
			logw.Errorf(ctx, "Server: bot had no legal move in %v: %v", sess.ID(), err)
			return
		}

		_, newSnap, err := sess.SubmitMove(snap.Slots[idx].Identity, mv)
		if err != nil {
			logw.Errorf(ctx, "Server: bot move %v rejected in %v: %v", mv, sess.ID(), err)
			return
		}

		srv.broadcastToSession(sess.ID(), moveResultMessage(sess.ID(), mv, newSnap))
		if newSnap.Status.IsTerminal() {
			srv.broadcastToSession(sess.ID(), gameEndMessage(newSnap))
			return
		}
		srv.broadcastToSession(sess.ID(), possibleMovesMessage(sess.ID(), newSnap.LegalMoves()))
		srv.broadcastToSession(sess.ID(), timeUpdateMessage(sess.ID(), newSnap))
	}
}
