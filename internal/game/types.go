package game

// Side identifies a paddle / half of the court
type Side int

const (
	SideLeft  Side = 0
	SideRight Side = 1
)

// Opponent returns the other side
func (s Side) Opponent() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// Intent is the control signal consumed by the engine for one paddle.
// Up moves toward +y (the court's y axis points up).
type Intent int

const (
	IntentHold Intent = iota
	IntentUp
	IntentDown
)

func (i Intent) String() string {
	switch i {
	case IntentUp:
		return "up"
	case IntentDown:
		return "down"
	default:
		return "hold"
	}
}

// Phase is the match lifecycle state
type Phase int

const (
	PhaseCountdown Phase = iota
	PhaseRallying
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseCountdown:
		return "countdown"
	case PhaseRallying:
		return "rallying"
	default:
		return "ended"
	}
}

// Events reports what happened during one engine step
type Events struct {
	WallBounce bool
	EdgeHit    bool
	PaddleHit  [2]bool
	Goal       bool
	Scorer     Side
}

// Any returns true if anything observable happened
func (e Events) Any() bool {
	return e.WallBounce || e.EdgeHit || e.PaddleHit[0] || e.PaddleHit[1] || e.Goal
}
