package game

import "time"

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Session is the metadata record for one two-player game. Player2 is set
// exactly once, at the waiting->active transition, and status only ever
// moves forward: waiting -> active -> finished.
type Session struct {
	ID        string
	Status    Status
	Player1   Player
	Player2   *Player
	Winner    *Player
	CreatedAt time.Time
	UpdatedAt time.Time
	Duration  time.Duration
}

func (s *Session) HasPlayer(playerID string) bool {
	if s.Player1.ID == playerID {
		return true
	}
	return s.Player2 != nil && s.Player2.ID == playerID
}

type Canvas struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Ball struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Radius float64 `json:"radius"`
}

type Paddle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Paddles struct {
	Player1 Paddle `json:"player1"`
	Player2 Paddle `json:"player2"`
}

type Score struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
}

// State is the canonical game state. Exactly one mutable copy exists per
// session, owned by the session service; everything that leaves the service
// is a clone.
type State struct {
	Canvas      Canvas  `json:"canvas"`
	Ball        Ball    `json:"ball"`
	Paddles     Paddles `json:"paddles"`
	PaddleSpeed float64 `json:"paddle_speed"`
	Score       Score   `json:"score"`
}

const (
	defaultCanvasWidth  = 800
	defaultCanvasHeight = 400
	defaultBallSpeed    = 5
	defaultBallRadius   = 10
	defaultPaddleWidth  = 10
	defaultPaddleHeight = 100
	defaultPaddleSpeed  = 10
)

func NewState() *State {
	paddleY := (defaultCanvasHeight - defaultPaddleHeight) / 2.0
	return &State{
		Canvas: Canvas{Width: defaultCanvasWidth, Height: defaultCanvasHeight},
		Ball: Ball{
			X:      defaultCanvasWidth / 2.0,
			Y:      defaultCanvasHeight / 2.0,
			DX:     defaultBallSpeed,
			DY:     defaultBallSpeed,
			Radius: defaultBallRadius,
		},
		Paddles: Paddles{
			Player1: Paddle{X: defaultPaddleWidth, Y: paddleY, Width: defaultPaddleWidth, Height: defaultPaddleHeight},
			Player2: Paddle{X: defaultCanvasWidth - 2*defaultPaddleWidth, Y: paddleY, Width: defaultPaddleWidth, Height: defaultPaddleHeight},
		},
		PaddleSpeed: defaultPaddleSpeed,
	}
}

func (s *State) Clone() *State {
	c := *s
	return &c
}
