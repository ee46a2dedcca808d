package game

type Paddle struct {
	Side Side
	X    float64 // fixed per side
	Y    float64
}

// Move applies an intent for dt seconds, keeping the paddle within ±limit
func (p *Paddle) Move(intent Intent, speed, limit, dt float64) {
	switch intent {
	case IntentUp:
		p.Y += speed * dt
		if p.Y > limit {
			p.Y = limit
		}
	case IntentDown:
		p.Y -= speed * dt
		if p.Y < -limit {
			p.Y = -limit
		}
	}
}

// ContainsY reports whether y lies within the paddle's vertical span
func (p *Paddle) ContainsY(y, halfHeight float64) bool {
	return y >= p.Y-halfHeight && y <= p.Y+halfHeight
}

func (p *Paddle) TopY(halfHeight float64) float64 {
	return p.Y + halfHeight
}

func (p *Paddle) BottomY(halfHeight float64) float64 {
	return p.Y - halfHeight
}

// FaceX returns the x plane the ball centre touches when it meets the
// paddle's court-facing side
func (p *Paddle) FaceX(halfWidth, ballRadius float64) float64 {
	if p.Side == SideLeft {
		return p.X + halfWidth + ballRadius
	}
	return p.X - halfWidth - ballRadius
}

// Away returns the horizontal direction a ball leaves this paddle in
func (p *Paddle) Away() float64 {
	if p.Side == SideLeft {
		return 1
	}
	return -1
}
