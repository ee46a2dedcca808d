package ai

import "math"

// Reward shapes the learning signal. The coefficients are tuning values.
type Reward struct {
	Distance float64 `toml:"distance"` // vertical gap giving zero baseline reward
	Hit      float64 `toml:"hit"`      // bonus for returning the ball
	Concede  float64 `toml:"concede"`  // added when the opponent scores
}

func DefaultReward() Reward {
	return Reward{Distance: 10, Hit: 10, Concede: -10}
}

// Baseline rewards keeping the paddle level with the ball: 1 when aligned,
// falling to 0 at Distance apart
func (r Reward) Baseline(paddleY, ballY float64) float64 {
	if r.Distance <= 0 {
		return 0
	}
	return 1 - math.Min(1, math.Abs(paddleY-ballY)/r.Distance)
}
