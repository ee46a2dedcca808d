package game

import "testing"

func TestPaddle_MoveUp(t *testing.T) {
	paddle := Paddle{Side: SideLeft, X: -15}

	paddle.Move(IntentUp, 24, 6.5, 0.25)

	if paddle.Y != 6.0 {
		t.Errorf("expected Y=6.0, got %f", paddle.Y)
	}
}

func TestPaddle_MoveDown(t *testing.T) {
	paddle := Paddle{Side: SideLeft, X: -15}

	paddle.Move(IntentDown, 24, 6.5, 0.25)

	if paddle.Y != -6.0 {
		t.Errorf("expected Y=-6.0, got %f", paddle.Y)
	}
}

func TestPaddle_Hold(t *testing.T) {
	paddle := Paddle{Side: SideRight, X: 15, Y: 1.5}

	paddle.Move(IntentHold, 24, 6.5, 0.25)

	if paddle.Y != 1.5 {
		t.Errorf("expected Y=1.5 (unchanged), got %f", paddle.Y)
	}
}

func TestPaddle_StaysInBounds(t *testing.T) {
	paddle := Paddle{Side: SideRight, X: 15}

	for i := 0; i < 10; i++ {
		paddle.Move(IntentUp, 24, 6.5, 0.1)
	}
	if paddle.Y != 6.5 {
		t.Errorf("expected Y clamped to 6.5, got %f", paddle.Y)
	}

	for i := 0; i < 20; i++ {
		paddle.Move(IntentDown, 24, 6.5, 0.1)
	}
	if paddle.Y != -6.5 {
		t.Errorf("expected Y clamped to -6.5, got %f", paddle.Y)
	}
}

func TestPaddle_Span(t *testing.T) {
	paddle := Paddle{Side: SideLeft, X: -15, Y: 1}

	if paddle.TopY(2) != 3 {
		t.Errorf("expected top 3, got %f", paddle.TopY(2))
	}
	if paddle.BottomY(2) != -1 {
		t.Errorf("expected bottom -1, got %f", paddle.BottomY(2))
	}

	tests := []struct {
		y    float64
		want bool
	}{
		{1, true},
		{3, true},
		{-1, true},
		{3.1, false},
		{-1.1, false},
	}
	for _, tt := range tests {
		if got := paddle.ContainsY(tt.y, 2); got != tt.want {
			t.Errorf("ContainsY(%f): expected %v, got %v", tt.y, tt.want, got)
		}
	}
}

func TestPaddle_Face(t *testing.T) {
	left := Paddle{Side: SideLeft, X: -15}
	right := Paddle{Side: SideRight, X: 15}

	if got := left.FaceX(0.5, 0.5); got != -14 {
		t.Errorf("expected left face at -14, got %f", got)
	}
	if got := right.FaceX(0.5, 0.5); got != 14 {
		t.Errorf("expected right face at 14, got %f", got)
	}
	if left.Away() != 1 || right.Away() != -1 {
		t.Errorf("expected away directions +1/-1, got %f/%f", left.Away(), right.Away())
	}
}
