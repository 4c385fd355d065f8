package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/kaustav-de/pong-backend/config"
	"github.com/kaustav-de/pong-backend/internal/game"
	"github.com/kaustav-de/pong-backend/internal/store"
	redisPkg "github.com/kaustav-de/pong-backend/pkg/redis"
)

const (
	sweepInterval = time.Minute
	maxWaitingAge = 10 * time.Minute
)

// Periodically evicts waiting sessions nobody ever joined, along with their
// state snapshots.
func main() {
	cfg := config.LoadConfig()

	dbConn, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		log.Fatal("Failed to connect database:", err)
	}
	defer dbConn.Close()

	rdb := redisPkg.NewRedisClient()

	sessionStore := store.NewPostgresStore(dbConn)
	stateStore := store.NewRedisStateStore(rdb)
	publisher := store.NewRedisPublisher(rdb)
	games := game.NewService(sessionStore, stateStore, publisher, game.Config{})

	log.Println("Sweeper service starting...")
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	ctx := context.Background()
	for range ticker.C {
		removed, err := games.SweepWaiting(ctx, maxWaitingAge)
		if err != nil {
			log.Printf("Sweep failed: %v", err)
			continue
		}
		if removed > 0 {
			log.Printf("Swept %d abandoned waiting sessions", removed)
		}
	}
}
