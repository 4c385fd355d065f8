package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/kaustav-de/pong-backend/internal/game"
)

// PostgresStore is the durable session record, one row per game session.
// Schema lives in db/schema.sql.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateSession(ctx context.Context, sess *game.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO game_sessions (id, status, player1_id, player1_name, duration_seconds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sess.ID, sess.Status, sess.Player1.ID, sess.Player1.Username,
		sess.Duration.Seconds(), sess.CreatedAt, sess.UpdatedAt)
	return err
}

func (s *PostgresStore) UpdateSession(ctx context.Context, sess *game.Session) error {
	var p2ID, p2Name, winnerID sql.NullString
	if sess.Player2 != nil {
		p2ID = sql.NullString{String: sess.Player2.ID, Valid: true}
		p2Name = sql.NullString{String: sess.Player2.Username, Valid: true}
	}
	if sess.Winner != nil {
		winnerID = sql.NullString{String: sess.Winner.ID, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE game_sessions
		SET status = $2, player2_id = $3, player2_name = $4, winner_id = $5,
		    duration_seconds = $6, updated_at = $7
		WHERE id = $1
	`, sess.ID, sess.Status, p2ID, p2Name, winnerID,
		sess.Duration.Seconds(), sess.UpdatedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return game.ErrNoSession
	}
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*game.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, player1_id, player1_name, player2_id, player2_name,
		       winner_id, duration_seconds, created_at, updated_at
		FROM game_sessions
		WHERE id = $1
	`, id)
	return scanSession(row)
}

func (s *PostgresStore) OldestWaiting(ctx context.Context, excludePlayerID string) (*game.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, player1_id, player1_name, player2_id, player2_name,
		       winner_id, duration_seconds, created_at, updated_at
		FROM game_sessions
		WHERE status = 'waiting' AND player1_id <> $1
		ORDER BY created_at ASC
		LIMIT 1
	`, excludePlayerID)
	return scanSession(row)
}

func (s *PostgresStore) ListWaitingBefore(ctx context.Context, cutoff time.Time) ([]*game.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, player1_id, player1_name, player2_id, player2_name,
		       winner_id, duration_seconds, created_at, updated_at
		FROM game_sessions
		WHERE status = 'waiting' AND created_at < $1
		ORDER BY created_at ASC
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*game.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM game_sessions WHERE id = $1", id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*game.Session, error) {
	var sess game.Session
	var p2ID, p2Name, winnerID sql.NullString
	var durationSeconds float64

	err := row.Scan(&sess.ID, &sess.Status, &sess.Player1.ID, &sess.Player1.Username,
		&p2ID, &p2Name, &winnerID, &durationSeconds, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, game.ErrNoSession
	}
	if err != nil {
		return nil, err
	}

	if p2ID.Valid {
		sess.Player2 = &game.Player{ID: p2ID.String, Username: p2Name.String}
	}
	if winnerID.Valid {
		winner := game.Player{ID: winnerID.String}
		if sess.Player2 != nil && sess.Player2.ID == winnerID.String {
			winner.Username = sess.Player2.Username
		} else if sess.Player1.ID == winnerID.String {
			winner.Username = sess.Player1.Username
		}
		sess.Winner = &winner
	}
	sess.Duration = time.Duration(durationSeconds * float64(time.Second))
	return &sess, nil
}
