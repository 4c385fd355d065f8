package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/lib/pq"

	"github.com/kaustav-de/pong-backend/config"
	"github.com/kaustav-de/pong-backend/internal/auth"
	"github.com/kaustav-de/pong-backend/internal/game"
	"github.com/kaustav-de/pong-backend/internal/match"
	"github.com/kaustav-de/pong-backend/internal/store"
	"github.com/kaustav-de/pong-backend/internal/ws"
	redisPkg "github.com/kaustav-de/pong-backend/pkg/redis"
	wsPkg "github.com/kaustav-de/pong-backend/pkg/websocket"
)

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

	games := game.NewService(sessionStore, stateStore, publisher, game.Config{
		WinScore: cfg.WinScore,
	})
	matcher := match.NewService(sessionStore, games)

	hub := wsPkg.NewHub()
	relay := ws.NewEventRelay(rdb, hub)
	go relay.Run(context.Background())

	authService := auth.NewService(dbConn, cfg)
	authHandler := auth.NewAuthHandler(authService)
	wsHandler := ws.NewHandler(hub, authService, matcher, games)

	http.HandleFunc("/api/v1/auth/register", authHandler.Register)
	http.HandleFunc("/api/v1/auth/login", authHandler.Login)
	http.HandleFunc("/ws", wsHandler.ServeWS)

	log.Println("Server started at :" + cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, nil))
}
