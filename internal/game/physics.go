package game

import "math"

// Advance runs one simulation tick on st: integrate the ball, reflect off
// the top and bottom walls, bounce off paddles with a 10% speed-up, and
// score when the ball leaves the canvas on either side.
func Advance(st *State) {
	ball := &st.Ball

	ball.X += ball.DX
	ball.Y += ball.DY

	if ball.Y <= ball.Radius || ball.Y >= st.Canvas.Height-ball.Radius {
		ball.DY = -ball.DY
	}

	p1 := st.Paddles.Player1
	if ball.X-ball.Radius <= p1.X+p1.Width &&
		ball.Y >= p1.Y && ball.Y <= p1.Y+p1.Height {
		ball.DX = math.Abs(ball.DX) * 1.1
	}

	p2 := st.Paddles.Player2
	if ball.X+ball.Radius >= p2.X &&
		ball.Y >= p2.Y && ball.Y <= p2.Y+p2.Height {
		ball.DX = -math.Abs(ball.DX) * 1.1
	}

	if ball.X < 0 {
		st.Score.Player2++
		resetBall(st, -defaultBallSpeed)
	} else if ball.X > st.Canvas.Width {
		st.Score.Player1++
		resetBall(st, defaultBallSpeed)
	}
}

// resetBall recenters the ball after a point. Horizontal speed is reset
// toward the side that conceded; vertical speed keeps its sign but drops
// back to the base magnitude.
func resetBall(st *State, dx float64) {
	ball := &st.Ball
	ball.X = st.Canvas.Width / 2
	ball.Y = st.Canvas.Height / 2
	ball.DX = dx
	if ball.DY > 0 {
		ball.DY = defaultBallSpeed
	} else {
		ball.DY = -defaultBallSpeed
	}
}
