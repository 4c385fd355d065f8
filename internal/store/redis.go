package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kaustav-de/pong-backend/internal/game"
)

const (
	stateTTL           = 24 * time.Hour
	eventChannelPrefix = "game:"
	eventChannelSuffix = ":events"
)

// EventChannel is the pub/sub channel carrying one session's broadcasts.
func EventChannel(sessionID string) string {
	return eventChannelPrefix + sessionID + eventChannelSuffix
}

// EventChannelPattern matches every session's event channel.
func EventChannelPattern() string {
	return eventChannelPrefix + "*" + eventChannelSuffix
}

// SessionIDFromChannel extracts the session id from an event channel name.
func SessionIDFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, eventChannelPrefix) || !strings.HasSuffix(channel, eventChannelSuffix) {
		return "", false
	}
	id := channel[len(eventChannelPrefix) : len(channel)-len(eventChannelSuffix)]
	return id, id != ""
}

func stateKey(sessionID string) string {
	return "game:" + sessionID + ":state"
}

// RedisStateStore keeps each session's state snapshot as JSON under a
// 24h-TTL key. The in-memory copy in the game service stays canonical;
// these snapshots are the durable record and the restart source.
type RedisStateStore struct {
	rdb *redis.Client
}

func NewRedisStateStore(rdb *redis.Client) *RedisStateStore {
	return &RedisStateStore{rdb: rdb}
}

func (s *RedisStateStore) SaveState(ctx context.Context, sessionID string, st *game.State) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := s.rdb.Set(ctx, stateKey(sessionID), payload, stateTTL).Err(); err != nil {
		return fmt.Errorf("failed to store state: %w", err)
	}
	return nil
}

// SavePaddles is the paddle-scoped partial update: only the paddle block of
// the stored snapshot changes, everything else is preserved.
func (s *RedisStateStore) SavePaddles(ctx context.Context, sessionID string, p game.Paddles) error {
	st, err := s.LoadState(ctx, sessionID)
	if err != nil {
		return err
	}
	st.Paddles = p
	return s.SaveState(ctx, sessionID, st)
}

func (s *RedisStateStore) LoadState(ctx context.Context, sessionID string) (*game.State, error) {
	payload, err := s.rdb.Get(ctx, stateKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, game.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}
	var st game.State
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &st, nil
}

func (s *RedisStateStore) DeleteState(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, stateKey(sessionID)).Err()
}

// RedisPublisher fans session events out through pub/sub; the websocket
// relay on each instance forwards them into its local rooms.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, sessionID string, payload []byte) error {
	return p.rdb.Publish(ctx, EventChannel(sessionID), payload).Err()
}
