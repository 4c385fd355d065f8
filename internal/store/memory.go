package store

import (
	"context"
	"sync"
	"time"

	"github.com/kaustav-de/pong-backend/internal/game"
)

// MemoryStore is an in-memory SessionStore for tests and local development.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*game.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*game.Session),
	}
}

func (s *MemoryStore) CreateSession(_ context.Context, sess *game.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = cloneSession(sess)
	return nil
}

func (s *MemoryStore) UpdateSession(_ context.Context, sess *game.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		return game.ErrNoSession
	}
	s.sessions[sess.ID] = cloneSession(sess)
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (*game.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, game.ErrNoSession
	}
	return cloneSession(sess), nil
}

func (s *MemoryStore) OldestWaiting(_ context.Context, excludePlayerID string) (*game.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldest *game.Session
	for _, sess := range s.sessions {
		if sess.Status != game.StatusWaiting || sess.Player1.ID == excludePlayerID {
			continue
		}
		if oldest == nil || sess.CreatedAt.Before(oldest.CreatedAt) {
			oldest = sess
		}
	}
	if oldest == nil {
		return nil, game.ErrNoSession
	}
	return cloneSession(oldest), nil
}

func (s *MemoryStore) ListWaitingBefore(_ context.Context, cutoff time.Time) ([]*game.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []*game.Session
	for _, sess := range s.sessions {
		if sess.Status == game.StatusWaiting && sess.CreatedAt.Before(cutoff) {
			stale = append(stale, cloneSession(sess))
		}
	}
	return stale, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func cloneSession(sess *game.Session) *game.Session {
	c := *sess
	if sess.Player2 != nil {
		p2 := *sess.Player2
		c.Player2 = &p2
	}
	if sess.Winner != nil {
		w := *sess.Winner
		c.Winner = &w
	}
	return &c
}
