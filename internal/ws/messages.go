package ws

import "github.com/kaustav-de/pong-backend/internal/game"

// inboundMessage is the union of every client-to-server message; dispatch
// switches on Type and validates the fields that type requires.
type inboundMessage struct {
	Type      string `json:"type"`
	GameID    string `json:"game_id"`
	Direction string `json:"direction"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type heartbeatResponse struct {
	Type string `json:"type"`
}

type connectionEstablished struct {
	Type    string      `json:"type"`
	Message string      `json:"message"`
	User    game.Player `json:"user"`
}

type gameCreated struct {
	Type      string      `json:"type"`
	GameID    string      `json:"game_id"`
	PlayerID  string      `json:"player_id"`
	GameState *game.State `json:"game_state"`
}
