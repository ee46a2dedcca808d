// Package ai controls a paddle. Two interchangeable policies share the
// Policy contract: a trajectory-predicting Heuristic and a Learned
// value-network policy. An Agent drives either one tick by tick.
package ai

import (
	"errors"

	"github.com/diegok/aipong/internal/game"
)

// ErrBackendUnavailable wraps any failure of the learned policy's
// numerical backend
var ErrBackendUnavailable = errors.New("ai: learned policy backend unavailable")

// Feature normalisation, in court units
const (
	normX     = 20.0
	normY     = 10.0
	normSpeed = 15.0
)

// FeatureCount is the length of Observation.Features
const FeatureCount = 7

// Observation is the world as seen from one paddle. Ball x and vx are
// mirrored for the left paddle so the observing paddle always defends +x.
type Observation struct {
	Side  game.Side
	Court game.Court

	BallX, BallY   float64
	BallVX, BallVY float64
	PaddleY        float64
	Predicted      float64 // ball y when it reaches the paddle's plane
	Time           float64 // simulated seconds

	Features []float64
}

// Observe builds the observation of w for the paddle on side
func Observe(w *game.World, side game.Side) Observation {
	mirror := 1.0
	if side == game.SideLeft {
		mirror = -1
	}

	ball := game.Ball{
		X:  w.Ball.X * mirror,
		Y:  w.Ball.Y,
		VX: w.Ball.VX * mirror,
		VY: w.Ball.VY,
	}
	paddleY := w.Paddle(side).Y
	predicted := PredictY(ball, w.Court)

	return Observation{
		Side:      side,
		Court:     w.Court,
		BallX:     ball.X,
		BallY:     ball.Y,
		BallVX:    ball.VX,
		BallVY:    ball.VY,
		PaddleY:   paddleY,
		Predicted: predicted,
		Time:      w.Time,
		Features: []float64{
			ball.X / normX,
			ball.Y / normY,
			ball.VX / normSpeed,
			ball.VY / normSpeed,
			paddleY / normY,
			(paddleY - ball.Y) / normY,
			predicted / normY,
		},
	}
}

const (
	predictStep     = 1.0 / 60
	maxPredictSteps = 600
)

// PredictY simulates the ball forward in small steps, reflecting off the
// walls and off the opponent's paddle plane, until it reaches the defending
// paddle at +c.PaddleX. ball must already be in the defender's frame.
func PredictY(ball game.Ball, c game.Court) float64 {
	if ball.VX == 0 {
		return ball.Y
	}

	x, y := ball.X, ball.Y
	vx, vy := ball.VX*predictStep, ball.VY*predictStep
	wall := c.HalfHeight - c.BallRadius

	for i := 0; i < maxPredictSteps && x < c.PaddleX; i++ {
		x += vx
		y += vy

		if y >= wall {
			y = wall
			vy = -vy
		} else if y <= -wall {
			y = -wall
			vy = -vy
		}

		if x <= -c.PaddleX && vx < 0 {
			vx = -vx
		}
	}
	return y
}

// Transition is one step of experience
type Transition struct {
	State  []float64
	Action Action
	Reward float64
	Next   []float64
	Done   bool
}

// Action is the discrete action index used by the learned policy
type Action int

const (
	ActionUp Action = iota
	ActionDown
	ActionHold
	actionCount
)

// Intent converts the action into a paddle intent
func (a Action) Intent() game.Intent {
	switch a {
	case ActionUp:
		return game.IntentUp
	case ActionDown:
		return game.IntentDown
	default:
		return game.IntentHold
	}
}

// ActionFor converts a paddle intent into an action
func ActionFor(i game.Intent) Action {
	switch i {
	case game.IntentUp:
		return ActionUp
	case game.IntentDown:
		return ActionDown
	default:
		return ActionHold
	}
}

// Policy decides a paddle's intent. Learn is a no-op for policies that do
// not learn.
type Policy interface {
	Observe(w *game.World) Observation
	Act(obs Observation) game.Intent
	Learn(tr Transition) error
}

// Failer is implemented by policies that can fail after construction
type Failer interface {
	Err() error
}
