package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/kaustav-de/pong-backend/config"
	"github.com/kaustav-de/pong-backend/db"
	"github.com/kaustav-de/pong-backend/internal/game"
)

type Service struct {
	db  *sql.DB
	cfg config.Config
}

func NewService(db *sql.DB, cfg config.Config) *Service {
	return &Service{
		db:  db,
		cfg: cfg,
	}
}

func (s *Service) Register(username, email, password string) (db.User, error) {
	if username == "" || password == "" {
		return db.User{}, fmt.Errorf("username and password cannot be empty")
	}
	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return db.User{}, err
	}
	userID := uuid.New()
	query := "INSERT INTO users (id, username, email, password, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id, username, email, created_at"
	var user db.User
	err = s.db.QueryRow(query, userID, username, email, string(hashedPassword), time.Now()).Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)

	if err != nil {
		// Check for unique constraint violation
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if pqErr.Constraint == "users_username_key" {
				return db.User{}, fmt.Errorf("username already exists")
			}
			if pqErr.Constraint == "users_email_key" {
				return db.User{}, fmt.Errorf("email already exists")
			}
		}
		return db.User{}, err
	}
	user.Password = string(hashedPassword)
	return user, nil
}

func (s *Service) Login(username, password string) (string, error) {
	var user db.User
	err := s.db.QueryRow(`
		SELECT id, username, email, password, created_at
		FROM users
		WHERE username = $1
	`, username).Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.CreatedAt)

	if err != nil {
		return "", errors.New("invalid credentials")
	}
	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password))
	if err != nil {
		return "", errors.New("invalid credentials")
	}
	return s.issueToken(user.ID, user.Username)
}

func (s *Service) issueToken(userID, username string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ValidateToken resolves the identity the websocket gateway hands it.
// Anonymous or unresolvable identities come back as an auth error.
func (s *Service) ValidateToken(tokenString string) (game.Player, error) {
	if tokenString == "" {
		return game.Player{}, game.NewAuthError("Missing authentication token")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return game.Player{}, game.NewAuthError("Invalid session")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return game.Player{}, game.NewAuthError("Invalid session")
	}
	userID, _ := claims["user_id"].(string)
	username, _ := claims["username"].(string)
	if userID == "" || username == "" {
		return game.Player{}, game.NewAuthError("Invalid session")
	}

	return game.Player{ID: userID, Username: username}, nil
}
