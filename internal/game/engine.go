package game

import "math"

// Engine advances a World. It is the only writer of ball and paddle
// positions during a rally.
type Engine struct {
	Physics Physics
}

func NewEngine(phys Physics) *Engine {
	return &Engine{Physics: phys}
}

// SanitizeDelta turns a host-supplied elapsed time into a usable step.
// Negative and non-finite values become 0; large gaps are capped at MaxDelta.
func (e *Engine) SanitizeDelta(dt float64) float64 {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		return 0
	}
	if e.Physics.MaxDelta > 0 && dt > e.Physics.MaxDelta {
		return e.Physics.MaxDelta
	}
	return dt
}

// Step runs one simulation step of dt seconds with the given paddle intents
func (e *Engine) Step(w *World, dt float64, intents [2]Intent) Events {
	var ev Events

	dt = e.SanitizeDelta(dt)
	if dt == 0 {
		return ev
	}
	w.Time += dt

	c := w.Court
	for i := range w.Paddles {
		w.Paddles[i].Move(intents[i], c.PaddleSpeed, c.PaddleLimit, dt)
	}

	prevX, prevY := w.Ball.X, w.Ball.Y
	w.Ball.Advance(dt)

	ev.WallBounce = e.resolveWalls(w)

	// Top/bottom edge contacts are tested first; a face hit is only
	// considered when no edge contact resolved this step.
	for i := range w.Paddles {
		if e.resolveEdgeHit(w, Side(i), prevX, prevY) {
			ev.EdgeHit = true
			break
		}
	}
	if !ev.EdgeHit {
		for i := range w.Paddles {
			if e.resolveFaceHit(w, Side(i), prevX, prevY) {
				ev.PaddleHit[i] = true
				break
			}
		}
	}

	if w.Ball.X-c.BallRadius <= -c.GoalX {
		ev.Goal = true
		ev.Scorer = SideRight
	} else if w.Ball.X+c.BallRadius >= c.GoalX {
		ev.Goal = true
		ev.Scorer = SideLeft
	}

	return ev
}

// resolveWalls reflects the ball off the top and bottom walls. Reflection is
// perfectly elastic and the ball is clamped to the wall minus its radius.
func (e *Engine) resolveWalls(w *World) bool {
	limit := w.Court.HalfHeight - w.Court.BallRadius

	switch {
	case w.Ball.Y >= limit:
		w.Ball.Y = limit
		w.Ball.VY = -math.Abs(w.Ball.VY)
		return true
	case w.Ball.Y <= -limit:
		w.Ball.Y = -limit
		w.Ball.VY = math.Abs(w.Ball.VY)
		return true
	}
	return false
}

// resolveEdgeHit handles the ball landing on the narrow top or bottom edge of
// a paddle: the ball was already alongside the paddle horizontally and now
// overlaps it vertically.
func (e *Engine) resolveEdgeHit(w *World, side Side, prevX, prevY float64) bool {
	c := w.Court
	p := w.Paddle(side)
	b := &w.Ball

	if math.Abs(b.X-p.X) > c.PaddleHalfWidth {
		return false
	}
	if math.Abs(prevX-p.X) > c.PaddleHalfWidth+c.BallRadius {
		return false // came through the face, not over the edge
	}
	reach := c.PaddleHalfHeight + c.BallRadius
	if math.Abs(b.Y-p.Y) > reach {
		return false
	}

	if b.Y > p.Y {
		b.VY = math.Abs(b.VY)
		b.Y = p.Y + reach + e.Physics.Epsilon
	} else {
		b.VY = -math.Abs(b.VY)
		b.Y = p.Y - reach - e.Physics.Epsilon
	}

	limit := c.HalfHeight - c.BallRadius
	b.Y = clamp(b.Y, -limit, limit)
	return true
}

// resolveFaceHit tests whether the ball's path this step crossed the
// paddle's face plane inside the paddle's span. The crossing point is
// interpolated along the path so fast balls cannot tunnel through.
func (e *Engine) resolveFaceHit(w *World, side Side, prevX, prevY float64) bool {
	c := w.Court
	p := w.Paddle(side)
	b := &w.Ball
	away := p.Away()

	if b.VX*away >= 0 {
		return false // moving away from this paddle
	}

	face := p.FaceX(c.PaddleHalfWidth, c.BallRadius)
	before := (prevX - face) * away
	after := (b.X - face) * away
	if before < 0 || after > 0 {
		return false
	}

	t := 0.0
	if before != after {
		t = before / (before - after)
	}
	yAt := prevY + (b.Y-prevY)*t

	if math.Abs(yAt-p.Y) > c.PaddleHalfHeight+c.BallRadius {
		return false
	}

	relativeHit := clamp((yAt-p.Y)/c.PaddleHalfHeight, -1, 1)

	speed := b.Speed()
	if w.RallyHits < e.Physics.MaxSpeedRamps {
		speed *= e.Physics.SpeedIncrease
	}
	w.RallyHits++

	b.BounceOffFace(relativeHit, e.Physics.MaxBounceAngle, speed, away)
	b.X = face + away*e.Physics.Epsilon
	b.Y = yAt
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
