// Package registry implements the connection registry (C7): it maps
// transport endpoints to authenticated identities and to whatever game
// session (if any) that endpoint is currently bound to.
package registry

import (
	"fmt"
	"sync"

	"github.com/opsnlops/mpchess/pkg/game"
)

// EndpointID identifies a transport endpoint for the lifetime of its
// connection. The server assigns these; they carry no meaning beyond
// uniqueness.
type EndpointID uint64

// entry is the per-endpoint state the registry tracks.
type entry struct {
	identity      game.Identity
	authenticated bool
	sessionID     string
	bound         bool
}

// Registry owns its own lock, held briefly for lookups and updates, per
// §5's shared-resource policy.
type Registry struct {
	mu      sync.Mutex
	next    uint64
	entries map[EndpointID]*entry
}

func New() *Registry {
	return &Registry{entries: make(map[EndpointID]*entry)}
}

// Register allocates a new, unauthenticated endpoint id.
func (r *Registry) Register() EndpointID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	id := EndpointID(r.next)
	r.entries[id] = &entry{}
	return id
}

// Authenticate binds an identity to an endpoint. Unauthenticated endpoints
// may only send Login/Register/Ping, per §4.7; IsAuthenticated is how the
// dispatcher enforces that gate.
func (r *Registry) Authenticate(id EndpointID, identity game.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("registry: unknown endpoint %v", id)
	}
	e.identity = identity
	e.authenticated = true
	return nil
}

// IsAuthenticated reports whether id has completed Login/Register.
func (r *Registry) IsAuthenticated(id EndpointID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	return ok && e.authenticated
}

// Identity returns the identity bound to id, if authenticated.
func (r *Registry) Identity(id EndpointID) (game.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || !e.authenticated {
		return "", false
	}
	return e.identity, true
}

// BindToSession records which session endpoint id is currently playing in.
func (r *Registry) BindToSession(id EndpointID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("registry: unknown endpoint %v", id)
	}
	e.sessionID = sessionID
	e.bound = true
	return nil
}

// UnbindSession clears id's session binding without dropping the endpoint
// itself (used when a Pending session's slot is cleared).
func (r *Registry) UnbindSession(id EndpointID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		e.sessionID = ""
		e.bound = false
	}
}

// LookupSession returns the session id endpoint id is bound to, if any.
func (r *Registry) LookupSession(id EndpointID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || !e.bound {
		return "", false
	}
	return e.sessionID, true
}

// EndpointsForSession returns every endpoint currently bound to sessionID,
// used to fan out a broadcast to both sides of a session.
func (r *Registry) EndpointsForSession(sessionID string) []EndpointID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []EndpointID
	for id, e := range r.entries {
		if e.bound && e.sessionID == sessionID {
			out = append(out, id)
		}
	}
	return out
}

// Drop removes id. The caller is responsible for invoking on_disconnect on
// any bound session; Drop returns the session id it was bound to, if any,
// so the caller can do so.
func (r *Registry) Drop(id EndpointID) (game.Identity, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return "", "", false
	}
	delete(r.entries, id)
	return e.identity, e.sessionID, e.bound
}
