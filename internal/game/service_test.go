package game_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/kaustav-de/pong-backend/internal/game"
	"github.com/kaustav-de/pong-backend/internal/store"
)

type fakePublisher struct {
	mu     sync.Mutex
	byType map[string]int
	last   map[string]*game.State
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{
		byType: make(map[string]int),
		last:   make(map[string]*game.State),
	}
}

func (p *fakePublisher) Publish(_ context.Context, sessionID string, payload []byte) error {
	var event struct {
		Type      string      `json:"type"`
		GameState *game.State `json:"game_state"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byType[event.Type]++
	if event.GameState != nil {
		p.last[sessionID] = event.GameState
	}
	return nil
}

func (p *fakePublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byType[eventType]
}

func (p *fakePublisher) lastState(sessionID string) *game.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last[sessionID]
}

type memStateStore struct {
	mu     sync.Mutex
	states map[string]*game.State
}

func newMemStateStore() *memStateStore {
	return &memStateStore{states: make(map[string]*game.State)}
}

func (s *memStateStore) SaveState(_ context.Context, id string, st *game.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[id] = st.Clone()
	return nil
}

func (s *memStateStore) SavePaddles(_ context.Context, id string, p game.Paddles) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		return game.ErrNoSession
	}
	st.Paddles = p
	return nil
}

func (s *memStateStore) LoadState(_ context.Context, id string) (*game.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		return nil, game.ErrNoSession
	}
	return st.Clone(), nil
}

func (s *memStateStore) DeleteState(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, id)
	return nil
}

type ServiceSuite struct {
	suite.Suite
	sessions *store.MemoryStore
	states   *memStateStore
	pub      *fakePublisher
	ctx      context.Context

	player1 game.Player
	player2 game.Player
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.sessions = store.NewMemoryStore()
	s.states = newMemStateStore()
	s.pub = newFakePublisher()
	s.ctx = context.Background()
	s.player1 = game.Player{ID: "p1", Username: "alice"}
	s.player2 = game.Player{ID: "p2", Username: "bob"}
}

// newService builds a service whose tick loop stays quiet unless a test
// wants it running.
func (s *ServiceSuite) newService(cfg game.Config) *game.Service {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Hour
	}
	if cfg.PaddleInterval == 0 {
		cfg.PaddleInterval = time.Nanosecond
	}
	return game.NewService(s.sessions, s.states, s.pub, cfg)
}

func (s *ServiceSuite) TestCreateSessionDefaults() {
	svc := s.newService(game.Config{})

	meta, st, err := svc.CreateSession(s.ctx, s.player1)
	s.Require().NoError(err)

	s.Equal(game.StatusWaiting, meta.Status)
	s.Equal(s.player1, meta.Player1)
	s.Nil(meta.Player2)

	s.Equal(game.Canvas{Width: 800, Height: 400}, st.Canvas)
	s.Equal(400.0, st.Ball.X)
	s.Equal(200.0, st.Ball.Y)
	s.Equal(5.0, st.Ball.DX)
	s.Equal(5.0, st.Ball.DY)
	s.Equal(10.0, st.PaddleSpeed)
	s.Equal(150.0, st.Paddles.Player1.Y)
	s.Equal(150.0, st.Paddles.Player2.Y)
	s.Equal(game.Score{}, st.Score)

	stored, err := s.sessions.GetSession(s.ctx, meta.ID)
	s.Require().NoError(err)
	s.Equal(game.StatusWaiting, stored.Status)

	snapshot, err := s.states.LoadState(s.ctx, meta.ID)
	s.Require().NoError(err)
	s.Equal(st, snapshot)
}

func (s *ServiceSuite) TestActivateTransitionsOnce() {
	svc := s.newService(game.Config{})
	meta, _, err := svc.CreateSession(s.ctx, s.player1)
	s.Require().NoError(err)

	active, _, err := svc.Activate(s.ctx, meta.ID, s.player2)
	s.Require().NoError(err)
	s.Equal(game.StatusActive, active.Status)
	s.Require().NotNil(active.Player2)
	s.Equal(s.player2, *active.Player2)

	stored, err := s.sessions.GetSession(s.ctx, meta.ID)
	s.Require().NoError(err)
	s.Equal(game.StatusActive, stored.Status)

	// A second transition attempt must be rejected.
	_, _, err = svc.Activate(s.ctx, meta.ID, game.Player{ID: "p3", Username: "carol"})
	s.Require().Error(err)
	s.Equal(game.KindValidation, game.KindOf(err))
}

func (s *ServiceSuite) TestActivateRejectsOwner() {
	svc := s.newService(game.Config{})
	meta, _, err := svc.CreateSession(s.ctx, s.player1)
	s.Require().NoError(err)

	_, _, err = svc.Activate(s.ctx, meta.ID, s.player1)
	s.Require().Error(err)
	s.Equal(game.KindValidation, game.KindOf(err))
}

func (s *ServiceSuite) TestHandleInputMovesPaddle() {
	svc := s.newService(game.Config{})
	meta, _, err := svc.CreateSession(s.ctx, s.player1)
	s.Require().NoError(err)
	_, _, err = svc.Activate(s.ctx, meta.ID, s.player2)
	s.Require().NoError(err)

	s.Require().NoError(svc.HandleInput(s.ctx, s.player1.ID, "up", meta.ID))
	_, st, ok := svc.ActiveSessionFor(s.player1.ID)
	s.Require().True(ok)
	s.Equal(140.0, st.Paddles.Player1.Y)
	s.Equal(150.0, st.Paddles.Player2.Y, "the other paddle is untouched")

	s.Require().NoError(svc.HandleInput(s.ctx, s.player2.ID, "down", meta.ID))
	_, st, _ = svc.ActiveSessionFor(s.player1.ID)
	s.Equal(160.0, st.Paddles.Player2.Y)

	s.GreaterOrEqual(s.pub.count("game_state_update"), 2)

	// The paddle-scoped partial update reached the snapshot store.
	snapshot, err := s.states.LoadState(s.ctx, meta.ID)
	s.Require().NoError(err)
	s.Equal(140.0, snapshot.Paddles.Player1.Y)
}

func (s *ServiceSuite) TestHandleInputClampsToCanvas() {
	svc := s.newService(game.Config{})
	meta, _, err := svc.CreateSession(s.ctx, s.player1)
	s.Require().NoError(err)
	_, _, err = svc.Activate(s.ctx, meta.ID, s.player2)
	s.Require().NoError(err)

	for i := 0; i < 40; i++ {
		s.Require().NoError(svc.HandleInput(s.ctx, s.player1.ID, "up", meta.ID))
		_, st, ok := svc.ActiveSessionFor(s.player1.ID)
		s.Require().True(ok)
		s.GreaterOrEqual(st.Paddles.Player1.Y, 0.0)
	}
	_, st, _ := svc.ActiveSessionFor(s.player1.ID)
	s.Equal(0.0, st.Paddles.Player1.Y, "clamped at the top, never negative")

	for i := 0; i < 80; i++ {
		s.Require().NoError(svc.HandleInput(s.ctx, s.player1.ID, "down", meta.ID))
		_, st, ok := svc.ActiveSessionFor(s.player1.ID)
		s.Require().True(ok)
		s.LessOrEqual(st.Paddles.Player1.Y, 300.0)
	}
	_, st, _ = svc.ActiveSessionFor(s.player1.ID)
	s.Equal(300.0, st.Paddles.Player1.Y, "clamped at canvas height minus paddle height")
}

func (s *ServiceSuite) TestHandleInputRateLimited() {
	svc := s.newService(game.Config{PaddleInterval: 80 * time.Millisecond})
	meta, _, err := svc.CreateSession(s.ctx, s.player1)
	s.Require().NoError(err)
	_, _, err = svc.Activate(s.ctx, meta.ID, s.player2)
	s.Require().NoError(err)

	s.Require().NoError(svc.HandleInput(s.ctx, s.player1.ID, "up", meta.ID))
	updates := s.pub.count("game_state_update")

	// Immediately repeated input: dropped silently, no mutation, no
	// broadcast.
	s.Require().NoError(svc.HandleInput(s.ctx, s.player1.ID, "up", meta.ID))
	_, st, _ := svc.ActiveSessionFor(s.player1.ID)
	s.Equal(140.0, st.Paddles.Player1.Y)
	s.Equal(updates, s.pub.count("game_state_update"))

	time.Sleep(100 * time.Millisecond)
	s.Require().NoError(svc.HandleInput(s.ctx, s.player1.ID, "up", meta.ID))
	_, st, _ = svc.ActiveSessionFor(s.player1.ID)
	s.Equal(130.0, st.Paddles.Player1.Y)
	s.Equal(updates+1, s.pub.count("game_state_update"))
}

func (s *ServiceSuite) TestHandleInputValidation() {
	svc := s.newService(game.Config{})
	meta, _, err := svc.CreateSession(s.ctx, s.player1)
	s.Require().NoError(err)

	err = svc.HandleInput(s.ctx, s.player1.ID, "up", "missing-id")
	s.Equal(game.KindNotFound, game.KindOf(err))

	err = svc.HandleInput(s.ctx, s.player1.ID, "up", meta.ID)
	s.Equal(game.KindValidation, game.KindOf(err), "waiting session rejects input")

	_, _, err = svc.Activate(s.ctx, meta.ID, s.player2)
	s.Require().NoError(err)

	err = svc.HandleInput(s.ctx, "stranger", "up", meta.ID)
	s.Equal(game.KindValidation, game.KindOf(err))

	err = svc.HandleInput(s.ctx, s.player1.ID, "sideways", meta.ID)
	s.Equal(game.KindValidation, game.KindOf(err))
}

func (s *ServiceSuite) TestTickLoopAdvancesAndBroadcasts() {
	svc := s.newService(game.Config{TickInterval: 5 * time.Millisecond})
	meta, _, err := svc.CreateSession(s.ctx, s.player1)
	s.Require().NoError(err)
	_, _, err = svc.Activate(s.ctx, meta.ID, s.player2)
	s.Require().NoError(err)

	time.Sleep(120 * time.Millisecond)

	s.GreaterOrEqual(s.pub.count("game_state_update"), 5)
	st := s.pub.lastState(meta.ID)
	s.Require().NotNil(st)
	s.NotEqual(400.0, st.Ball.X, "ball advanced from center")

	snapshot, err := s.states.LoadState(s.ctx, meta.ID)
	s.Require().NoError(err)
	s.NotEqual(400.0, snapshot.Ball.X)
}

func (s *ServiceSuite) TestSweepWaitingEvictsStaleSessions() {
	svc := s.newService(game.Config{})
	meta, _, err := svc.CreateSession(s.ctx, s.player1)
	s.Require().NoError(err)

	time.Sleep(2 * time.Millisecond)
	removed, err := svc.SweepWaiting(s.ctx, time.Millisecond)
	s.Require().NoError(err)
	s.Equal(1, removed)

	_, err = s.sessions.GetSession(s.ctx, meta.ID)
	s.ErrorIs(err, game.ErrNoSession)
	_, err = s.states.LoadState(s.ctx, meta.ID)
	s.ErrorIs(err, game.ErrNoSession)

	err = svc.HandleInput(s.ctx, s.player1.ID, "up", meta.ID)
	s.Equal(game.KindNotFound, game.KindOf(err))
}

func (s *ServiceSuite) TestSweepSparesActiveSessions() {
	svc := s.newService(game.Config{})
	meta, _, err := svc.CreateSession(s.ctx, s.player1)
	s.Require().NoError(err)
	_, _, err = svc.Activate(s.ctx, meta.ID, s.player2)
	s.Require().NoError(err)

	removed, err := svc.SweepWaiting(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(0, removed)

	stored, err := s.sessions.GetSession(s.ctx, meta.ID)
	s.Require().NoError(err)
	s.Equal(game.StatusActive, stored.Status)
}
