package game

// Server-to-client events broadcast to a session's group. Private replies
// reuse the same shapes from the gateway.

type StateUpdateEvent struct {
	Type      string `json:"type"`
	GameState *State `json:"game_state"`
}

func NewStateUpdateEvent(st *State) StateUpdateEvent {
	return StateUpdateEvent{Type: "game_state_update", GameState: st}
}

type JoinedEvent struct {
	Type      string `json:"type"`
	GameID    string `json:"game_id"`
	Player1ID string `json:"player1_id"`
	Player2ID string `json:"player2_id"`
	GameState *State `json:"game_state"`
}

type OverEvent struct {
	Type     string `json:"type"`
	GameID   string `json:"game_id"`
	WinnerID string `json:"winner_id"`
	Score    Score  `json:"score"`
}
