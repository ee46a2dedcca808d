package game

import (
	"math"
	"math/rand"
	"testing"
)

func TestBall_Advance(t *testing.T) {
	ball := Ball{X: 1.0, Y: 2.0, VX: 2.0, VY: -1.0}

	ball.Advance(0.5)

	if ball.X != 2.0 {
		t.Errorf("expected X=2.0, got %f", ball.X)
	}
	if ball.Y != 1.5 {
		t.Errorf("expected Y=1.5, got %f", ball.Y)
	}
}

func TestBall_BounceVertical(t *testing.T) {
	ball := Ball{VX: 0.5, VY: 0.3}

	ball.BounceVertical()

	if ball.VX != 0.5 {
		t.Errorf("expected VX=0.5 (unchanged), got %f", ball.VX)
	}
	if ball.VY != -0.3 {
		t.Errorf("expected VY=-0.3, got %f", ball.VY)
	}
}

func TestBall_BounceOffFace_Center(t *testing.T) {
	ball := Ball{VX: 10, VY: 0}

	ball.BounceOffFace(0, math.Pi/4, 10, -1)

	if ball.VX != -10 {
		t.Errorf("expected VX=-10, got %f", ball.VX)
	}
	if math.Abs(ball.VY) > 1e-9 {
		t.Errorf("expected VY near 0 for center hit, got %f", ball.VY)
	}
}

func TestBall_BounceOffFace_KeepsVerticalSign(t *testing.T) {
	tests := []struct {
		name   string
		vy     float64
		hit    float64
		wantUp bool
	}{
		{"moving up, upper hit", 3, 1, true},
		{"moving up, lower hit", 3, -1, true},
		{"moving down, upper hit", -3, 1, false},
		{"moving down, lower hit", -3, -1, false},
		{"flat counts as up", 0, -0.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ball := Ball{VX: -10, VY: tt.vy}
			ball.BounceOffFace(tt.hit, math.Pi/4, 12, 1)

			if ball.VX <= 0 {
				t.Errorf("expected VX > 0 away from left paddle, got %f", ball.VX)
			}
			if tt.wantUp && ball.VY <= 0 {
				t.Errorf("expected VY > 0, got %f", ball.VY)
			}
			if !tt.wantUp && ball.VY >= 0 {
				t.Errorf("expected VY < 0, got %f", ball.VY)
			}
			if math.Abs(ball.Speed()-12) > 1e-9 {
				t.Errorf("expected speed 12, got %f", ball.Speed())
			}
		})
	}
}

func TestBall_BounceOffFace_Angle(t *testing.T) {
	ball := Ball{VX: 10, VY: 1}

	ball.BounceOffFace(1, math.Pi/4, 10, -1)

	angle := math.Atan2(math.Abs(ball.VY), math.Abs(ball.VX))
	if math.Abs(angle-math.Pi/4) > 1e-9 {
		t.Errorf("expected angle %f at the paddle tip, got %f", math.Pi/4, angle)
	}
}

func TestBall_Launch(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	seenLeft, seenRight := false, false

	for i := 0; i < 50; i++ {
		ball := Ball{X: 3, Y: -2}
		ball.Launch(18, 12, rng)

		if ball.X != 0 || ball.Y != 0 {
			t.Fatalf("expected ball at centre, got (%f, %f)", ball.X, ball.Y)
		}
		if math.Abs(ball.VX) != 18 {
			t.Errorf("expected |VX|=18, got %f", ball.VX)
		}
		if math.Abs(ball.VY) != 12 {
			t.Errorf("expected |VY|=12, got %f", ball.VY)
		}
		if ball.VX < 0 {
			seenLeft = true
		} else {
			seenRight = true
		}
	}

	if !seenLeft || !seenRight {
		t.Errorf("expected launches in both directions, left=%v right=%v", seenLeft, seenRight)
	}
}

func TestBall_Speed(t *testing.T) {
	ball := Ball{VX: 3.0, VY: 4.0}

	// 3-4-5 triangle
	if ball.Speed() != 5.0 {
		t.Errorf("expected speed=5.0, got %f", ball.Speed())
	}
}
