package game

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoSession is returned by SessionStore implementations when a session
// id (or waiting-session query) matches nothing.
var ErrNoSession = errors.New("session not found")

// SessionStore is the durable record of sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, s *Session) error
	UpdateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	// OldestWaiting returns the earliest-created waiting session whose
	// player1 is not excludePlayerID.
	OldestWaiting(ctx context.Context, excludePlayerID string) (*Session, error)
	ListWaitingBefore(ctx context.Context, cutoff time.Time) ([]*Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// StateStore holds game state snapshots keyed by session id.
type StateStore interface {
	SaveState(ctx context.Context, sessionID string, st *State) error
	SavePaddles(ctx context.Context, sessionID string, p Paddles) error
	LoadState(ctx context.Context, sessionID string) (*State, error)
	DeleteState(ctx context.Context, sessionID string) error
}

// Publisher fans an event out to every connection subscribed to a session.
type Publisher interface {
	Publish(ctx context.Context, sessionID string, payload []byte) error
}

type Config struct {
	TickInterval   time.Duration // defaults to 1/60s
	PaddleInterval time.Duration // defaults to PaddleUpdateInterval
	WinScore       int           // 0 disables the terminal condition
}

// liveSession pairs a session's metadata with its canonical state. The
// mutex serializes every read-modify-write across the input path and the
// tick loop; loopOnce guarantees a single tick loop per session lifetime.
type liveSession struct {
	mu       sync.Mutex
	meta     *Session
	state    *State
	limiter  *RateLimiter
	loopOnce sync.Once
}

// Service owns all canonical game state. It is the only writer; every
// state that leaves it is a clone.
type Service struct {
	store     SessionStore
	states    StateStore
	publisher Publisher
	cfg       Config

	mu       sync.Mutex
	sessions map[string]*liveSession
}

func NewService(store SessionStore, states StateStore, publisher Publisher, cfg Config) *Service {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second / 60
	}
	if cfg.PaddleInterval <= 0 {
		cfg.PaddleInterval = PaddleUpdateInterval
	}
	return &Service{
		store:     store,
		states:    states,
		publisher: publisher,
		cfg:       cfg,
		sessions:  make(map[string]*liveSession),
	}
}

// CreateSession creates a waiting session owned by p1 with default state.
func (s *Service) CreateSession(ctx context.Context, p1 Player) (Session, *State, error) {
	now := time.Now()
	meta := &Session{
		ID:        uuid.NewString(),
		Status:    StatusWaiting,
		Player1:   p1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	st := NewState()

	if err := s.store.CreateSession(ctx, meta); err != nil {
		log.Printf("Failed to create session for %s: %v", p1.Username, err)
		return Session{}, nil, NewInternalError("Failed to create game")
	}
	if err := s.states.SaveState(ctx, meta.ID, st); err != nil {
		log.Printf("[GAME %s] Failed to store initial state: %v", meta.ID, err)
	}

	sess := &liveSession{
		meta:    meta,
		state:   st,
		limiter: NewRateLimiter(s.cfg.PaddleInterval),
	}
	s.mu.Lock()
	s.sessions[meta.ID] = sess
	s.mu.Unlock()

	log.Printf("[GAME %s] Created by %s", meta.ID, p1.Username)
	return *meta, st.Clone(), nil
}

// Activate takes the waiting->active transition, setting player2 exactly
// once and spawning the session's only tick loop. Reconnections never reach
// this path, so the loop cannot be spawned twice.
func (s *Service) Activate(ctx context.Context, sessionID string, p2 Player) (Session, *State, error) {
	sess, err := s.lookup(ctx, sessionID)
	if err != nil {
		return Session{}, nil, err
	}

	sess.mu.Lock()
	if sess.meta.Status != StatusWaiting {
		sess.mu.Unlock()
		return Session{}, nil, NewValidationError("Game is not available for joining")
	}
	if sess.meta.Player1.ID == p2.ID {
		sess.mu.Unlock()
		return Session{}, nil, NewValidationError("Cannot join your own game")
	}
	player2 := p2
	sess.meta.Player2 = &player2
	sess.meta.Status = StatusActive
	sess.meta.UpdatedAt = time.Now()
	meta := *sess.meta
	st := sess.state.Clone()
	sess.mu.Unlock()

	if err := s.store.UpdateSession(ctx, &meta); err != nil {
		log.Printf("[GAME %s] Failed to persist activation: %v", meta.ID, err)
	}

	sess.loopOnce.Do(func() {
		go s.runLoop(sess)
	})

	log.Printf("[GAME %s] %s joined, game active", meta.ID, p2.Username)
	return meta, st, nil
}

// ActiveSessionFor finds the active session the player participates in, if
// any. Used for idempotent reconnection.
func (s *Service) ActiveSessionFor(playerID string) (Session, *State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		sess.mu.Lock()
		if sess.meta.Status == StatusActive && sess.meta.HasPlayer(playerID) {
			meta := *sess.meta
			st := sess.state.Clone()
			sess.mu.Unlock()
			return meta, st, true
		}
		sess.mu.Unlock()
	}
	return Session{}, nil, false
}

// BroadcastJoined publishes game_joined to the whole group, both
// participants included.
func (s *Service) BroadcastJoined(ctx context.Context, meta Session, st *State) {
	if meta.Player2 == nil {
		return
	}
	s.publish(ctx, meta.ID, JoinedEvent{
		Type:      "game_joined",
		GameID:    meta.ID,
		Player1ID: meta.Player1.ID,
		Player2ID: meta.Player2.ID,
		GameState: st,
	})
}

// HandleInput applies one validated paddle_move to canonical state.
func (s *Service) HandleInput(ctx context.Context, playerID, direction, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return NewNotFoundError("Game not found")
	}

	sess.mu.Lock()
	if sess.meta.Status != StatusActive {
		sess.mu.Unlock()
		return NewValidationError("Game is not active")
	}

	var paddleKey string
	switch {
	case sess.meta.Player1.ID == playerID:
		paddleKey = "player1"
	case sess.meta.Player2 != nil && sess.meta.Player2.ID == playerID:
		paddleKey = "player2"
	default:
		sess.mu.Unlock()
		return NewValidationError("You are not a player in this game")
	}

	if !sess.limiter.Allow(paddleKey) {
		sess.mu.Unlock()
		return nil // dropped silently, no broadcast
	}

	var paddle *Paddle
	if paddleKey == "player1" {
		paddle = &sess.state.Paddles.Player1
	} else {
		paddle = &sess.state.Paddles.Player2
	}

	var newY float64
	switch direction {
	case "up":
		newY = paddle.Y - sess.state.PaddleSpeed
	case "down":
		newY = paddle.Y + sess.state.PaddleSpeed
	default:
		sess.mu.Unlock()
		return NewValidationError("Invalid direction: " + direction)
	}
	paddle.Y = clamp(newY, 0, sess.state.Canvas.Height-paddle.Height)

	paddles := sess.state.Paddles
	st := sess.state.Clone()
	sess.mu.Unlock()

	// Paddle-scoped partial update: the tick loop owns full snapshots.
	if err := s.states.SavePaddles(ctx, sessionID, paddles); err != nil {
		log.Printf("[GAME %s] Failed to persist paddle update: %v", sessionID, err)
	}

	s.publish(ctx, sessionID, NewStateUpdateEvent(st))
	return nil
}

// runLoop is the session's single tick loop: 60 Hz physics, persist,
// broadcast. It runs until the session leaves active; disconnections do not
// stop it.
func (s *Service) runLoop(sess *liveSession) {
	sess.mu.Lock()
	id := sess.meta.ID
	sess.mu.Unlock()

	log.Printf("[GAME %s] Starting game loop", id)
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	ctx := context.Background()
	for range ticker.C {
		sess.mu.Lock()
		if sess.meta.Status != StatusActive {
			sess.mu.Unlock()
			log.Printf("[GAME %s] Game loop stopped", id)
			return
		}

		Advance(sess.state)

		finished := false
		if s.cfg.WinScore > 0 {
			switch {
			case sess.state.Score.Player1 >= s.cfg.WinScore:
				sess.meta.Winner = &sess.meta.Player1
				finished = true
			case sess.state.Score.Player2 >= s.cfg.WinScore:
				sess.meta.Winner = sess.meta.Player2
				finished = true
			}
			if finished {
				sess.meta.Status = StatusFinished
				sess.meta.UpdatedAt = time.Now()
				sess.meta.Duration = sess.meta.UpdatedAt.Sub(sess.meta.CreatedAt)
			}
		}

		meta := *sess.meta
		st := sess.state.Clone()
		sess.mu.Unlock()

		if err := s.states.SaveState(ctx, id, st); err != nil {
			log.Printf("[GAME %s] Failed to persist state: %v", id, err)
		}
		s.publish(ctx, id, NewStateUpdateEvent(st))

		if finished {
			s.finish(ctx, meta, st)
			return
		}
	}
}

// finish records the terminal snapshot and announces the result. The state
// snapshot is retained in the store as the final record.
func (s *Service) finish(ctx context.Context, meta Session, st *State) {
	if err := s.store.UpdateSession(ctx, &meta); err != nil {
		log.Printf("[GAME %s] Failed to persist final session: %v", meta.ID, err)
	}

	winnerID := ""
	if meta.Winner != nil {
		winnerID = meta.Winner.ID
	}
	s.publish(ctx, meta.ID, OverEvent{
		Type:     "game_over",
		GameID:   meta.ID,
		WinnerID: winnerID,
		Score:    st.Score,
	})

	s.mu.Lock()
	delete(s.sessions, meta.ID)
	s.mu.Unlock()
	log.Printf("[GAME %s] Finished, winner %s", meta.ID, winnerID)
}

// SweepWaiting evicts waiting sessions older than maxAge. Hardening for
// abandoned lobbies; correctness does not depend on it.
func (s *Service) SweepWaiting(ctx context.Context, maxAge time.Duration) (int, error) {
	stale, err := s.store.ListWaitingBefore(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, meta := range stale {
		s.mu.Lock()
		sess, ok := s.sessions[meta.ID]
		s.mu.Unlock()
		if ok {
			sess.mu.Lock()
			// Re-check under the session lock: it may have activated since.
			if sess.meta.Status != StatusWaiting {
				sess.mu.Unlock()
				continue
			}
			sess.mu.Unlock()
		}

		if err := s.store.DeleteSession(ctx, meta.ID); err != nil {
			log.Printf("[GAME %s] Failed to delete stale session: %v", meta.ID, err)
			continue
		}
		if err := s.states.DeleteState(ctx, meta.ID); err != nil {
			log.Printf("[GAME %s] Failed to delete stale state: %v", meta.ID, err)
		}
		s.mu.Lock()
		delete(s.sessions, meta.ID)
		s.mu.Unlock()
		removed++
	}
	return removed, nil
}

// lookup finds a live session, rehydrating a waiting one from the stores
// after a restart.
func (s *Service) lookup(ctx context.Context, sessionID string) (*liveSession, error) {
	s.mu.Lock()
	if sess, ok := s.sessions[sessionID]; ok {
		s.mu.Unlock()
		return sess, nil
	}
	s.mu.Unlock()

	meta, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, ErrNoSession) {
		return nil, NewNotFoundError("Game not found")
	}
	if err != nil {
		log.Printf("[GAME %s] Failed to load session: %v", sessionID, err)
		return nil, NewInternalError("Failed to load game")
	}
	st, err := s.states.LoadState(ctx, sessionID)
	if err != nil {
		log.Printf("[GAME %s] Failed to load state: %v", sessionID, err)
		st = NewState()
	}

	sess := &liveSession{
		meta:    meta,
		state:   st,
		limiter: NewRateLimiter(s.cfg.PaddleInterval),
	}
	s.mu.Lock()
	// Another goroutine may have rehydrated it meanwhile.
	if existing, ok := s.sessions[sessionID]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.sessions[sessionID] = sess
	s.mu.Unlock()
	return sess, nil
}

func (s *Service) publish(ctx context.Context, sessionID string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("[GAME %s] Failed to marshal event: %v", sessionID, err)
		return
	}
	if err := s.publisher.Publish(ctx, sessionID, payload); err != nil {
		log.Printf("[GAME %s] Failed to publish event: %v", sessionID, err)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
