package game

import (
	"math"
	"math/rand"
)

type Ball struct {
	X, Y   float64
	VX, VY float64
}

// Advance moves the ball by its velocity over dt seconds
func (b *Ball) Advance(dt float64) {
	b.X += b.VX * dt
	b.Y += b.VY * dt
}

// Speed returns current speed
func (b *Ball) Speed() float64 {
	return math.Hypot(b.VX, b.VY)
}

// Launch places ball at the centre and gives it the launch velocity with
// random horizontal and vertical signs
func (b *Ball) Launch(vx, vy float64, rng *rand.Rand) {
	b.X = 0
	b.Y = 0

	b.VX = vx
	if rng.Float64() > 0.5 {
		b.VX = -vx
	}
	b.VY = vy
	if rng.Float64() > 0.5 {
		b.VY = -vy
	}
}

// BounceVertical reverses vertical direction (wall bounce)
func (b *Ball) BounceVertical() {
	b.VY = -b.VY
}

// BounceOffFace redirects the ball away from a paddle face.
// relativeHit is in [-1, 1] (0 = paddle centre), away is +1 to send the ball
// toward +x and -1 toward -x. The vertical sign from before the hit is kept.
func (b *Ball) BounceOffFace(relativeHit, maxAngle, speed, away float64) {
	bounceAngle := relativeHit * maxAngle

	b.VX = away * speed * math.Cos(bounceAngle)
	vy := math.Abs(speed * math.Sin(bounceAngle))
	if b.VY < 0 {
		vy = -vy
	}
	b.VY = vy
}
