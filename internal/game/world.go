package game

import (
	"math"
	"math/rand"
)

// Court geometry, in court units. Origin is the centre of the court.
type Court struct {
	HalfHeight       float64 `toml:"half_height"` // walls at ±HalfHeight
	PaddleX          float64 `toml:"paddle_x"`    // paddle centres at ±PaddleX
	GoalX            float64 `toml:"goal_x"`      // goal lines at ±GoalX
	PaddleHalfHeight float64 `toml:"paddle_half_height"`
	PaddleHalfWidth  float64 `toml:"paddle_half_width"`
	BallRadius       float64 `toml:"ball_radius"`
	PaddleSpeed      float64 `toml:"paddle_speed"` // units per second
	PaddleLimit      float64 `toml:"paddle_limit"` // paddle centre stays within ±PaddleLimit
}

// Physics holds the ball tuning constants
type Physics struct {
	LaunchVX       float64 `toml:"launch_vx"`
	LaunchVY       float64 `toml:"launch_vy"`
	SpeedIncrease  float64 `toml:"speed_increase"`   // multiplier per face hit
	MaxBounceAngle float64 `toml:"max_bounce_angle"` // radians
	MaxSpeedRamps  int     `toml:"max_speed_ramps"`  // face hits per rally that still speed the ball up
	Epsilon        float64 `toml:"epsilon"`          // separation after a contact
	MaxDelta       float64 `toml:"max_delta"`        // largest accepted step, seconds
}

func DefaultCourt() Court {
	return Court{
		HalfHeight:       9,
		PaddleX:          15,
		GoalX:            17,
		PaddleHalfHeight: 2,
		PaddleHalfWidth:  0.5,
		BallRadius:       0.5,
		PaddleSpeed:      24,
		PaddleLimit:      6.5,
	}
}

func DefaultPhysics() Physics {
	return Physics{
		LaunchVX:       18,
		LaunchVY:       12,
		SpeedIncrease:  1.02,
		MaxBounceAngle: math.Pi / 4,
		MaxSpeedRamps:  20,
		Epsilon:        0.01,
		MaxDelta:       1.0,
	}
}

// World is the complete kinematic state of one match.
// Only the Engine mutates it during play; the Match resets it between rallies.
type World struct {
	Court     Court
	Ball      Ball
	Paddles   [2]Paddle
	RallyHits int     // face hits so far in this rally
	Time      float64 // simulated rally seconds, advanced by the Engine
}

// NewWorld creates a world with the ball and paddles at rest in the centre
func NewWorld(court Court) *World {
	w := &World{Court: court}
	w.Paddles[SideLeft] = Paddle{Side: SideLeft, X: -court.PaddleX}
	w.Paddles[SideRight] = Paddle{Side: SideRight, X: court.PaddleX}
	return w
}

// Paddle returns the paddle for side
func (w *World) Paddle(side Side) *Paddle {
	return &w.Paddles[side]
}

// Center puts paddles and ball back in the middle with no velocity
func (w *World) Center() {
	w.Ball = Ball{}
	w.Paddles[SideLeft].Y = 0
	w.Paddles[SideRight].Y = 0
	w.RallyHits = 0
}

// ResetRally centres everything and launches the ball
func (w *World) ResetRally(phys Physics, rng *rand.Rand) {
	w.Center()
	w.Ball.Launch(phys.LaunchVX, phys.LaunchVY, rng)
}

// Snapshot returns a copy that can be read without affecting the world
func (w *World) Snapshot() World {
	return *w
}
