package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"stocklens/internal/models"
)

// ErrSuperseded marks a fetch whose result arrived after a newer session
// switch or after the synchronizer was closed. Callers discard the result.
var ErrSuperseded = errors.New("session fetch superseded")

// Synchronizer keeps the canonical product list aligned with the server's
// view of one session at a time. Every fetch captures a generation token at
// dispatch; a result whose token is no longer current is thrown away rather
// than applied, so a teardown or a second switch never sees a stale write.
type Synchronizer struct {
	store Store

	mu         sync.Mutex
	generation uint64
	closed     bool
}

// NewSynchronizer constructs a synchronizer backed by the given store.
func NewSynchronizer(store Store) *Synchronizer {
	return &Synchronizer{store: store}
}

// Activate fetches the full product list for sessionID. The returned list is
// meant to replace the canonical list wholesale; there is no merging with
// locally pending items. Returns ErrSuperseded when a newer Activate call or
// Close happened while the fetch was in flight.
func (s *Synchronizer) Activate(ctx context.Context, sessionID string) ([]models.ProductRecord, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSuperseded
	}
	s.generation++
	token := s.generation
	s.mu.Unlock()

	products, err := s.store.SessionProducts(ctx, sessionID)

	s.mu.Lock()
	stale := s.closed || token != s.generation
	s.mu.Unlock()
	if stale {
		slog.Debug("discarding superseded session fetch", "session_id", sessionID)
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	return products, nil
}

// ResolveSession fetches the server's session directory and decides which
// session the client should show. The preferred (client-generated) id wins
// when the server knows it; otherwise the first listed session is used.
// An empty directory keeps the preferred id, which simply has no products
// yet. The fallback silently replaces a fresh client-generated session; see
// DESIGN.md for the open question around that behavior.
func (s *Synchronizer) ResolveSession(ctx context.Context, preferred string) (string, []models.SessionSummary, error) {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return preferred, nil, err
	}
	for _, session := range sessions {
		if session.SessionID == preferred {
			return preferred, sessions, nil
		}
	}
	if len(sessions) > 0 {
		slog.Debug("session not in server directory, falling back",
			"preferred", preferred, "fallback", sessions[0].SessionID)
		return sessions[0].SessionID, sessions, nil
	}
	return preferred, sessions, nil
}

// Close invalidates every outstanding fetch.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
