package match

import (
	"context"
	"errors"

	"github.com/kaustav-de/pong-backend/internal/game"
)

// Service matches players into sessions: a single FIFO queue of waiting
// sessions, plus idempotent reconnection for participants of active games.
type Service struct {
	store SessionFinder
	games *game.Service
}

// SessionFinder is the slice of the session store matchmaking needs.
type SessionFinder interface {
	OldestWaiting(ctx context.Context, excludePlayerID string) (*game.Session, error)
}

func NewService(store SessionFinder, games *game.Service) *Service {
	return &Service{
		store: store,
		games: games,
	}
}

type JoinResult struct {
	Session game.Session
	State   *game.State
	// Reconnected means the requester was already a participant of an
	// active session: no mutation happened and no broadcast is due.
	Reconnected bool
}

// Create starts a new waiting session owned by the requester.
func (s *Service) Create(ctx context.Context, requester game.Player) (game.Session, *game.State, error) {
	return s.games.CreateSession(ctx, requester)
}

// Join matches the requester into the earliest-created waiting session not
// their own, or hands back the current state of the active session they
// already belong to.
func (s *Service) Join(ctx context.Context, requester game.Player) (*JoinResult, error) {
	if meta, st, ok := s.games.ActiveSessionFor(requester.ID); ok {
		return &JoinResult{Session: meta, State: st, Reconnected: true}, nil
	}

	waiting, err := s.store.OldestWaiting(ctx, requester.ID)
	if errors.Is(err, game.ErrNoSession) {
		return nil, game.NewNotFoundError("No available game to join")
	}
	if err != nil {
		return nil, game.NewInternalError("Failed to find a game")
	}

	meta, st, err := s.games.Activate(ctx, waiting.ID, requester)
	if err != nil {
		return nil, err
	}
	return &JoinResult{Session: meta, State: st}, nil
}
