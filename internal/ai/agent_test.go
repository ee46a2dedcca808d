package ai

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/diegok/aipong/internal/game"
)

// recordingPolicy always returns the same intent and records what it learns
type recordingPolicy struct {
	side     game.Side
	intent   game.Intent
	acts     int
	learned  []Transition
	learnErr error
	closed   bool
}

func (p *recordingPolicy) Observe(w *game.World) Observation {
	return Observe(w, p.side)
}

func (p *recordingPolicy) Act(Observation) game.Intent {
	p.acts++
	return p.intent
}

func (p *recordingPolicy) Learn(tr Transition) error {
	p.learned = append(p.learned, tr)
	return p.learnErr
}

func (p *recordingPolicy) Close() {
	p.closed = true
}

func alignedWorld() *game.World {
	w := game.NewWorld(game.DefaultCourt())
	w.Ball = game.Ball{X: 5, Y: 0, VX: 10}
	return w
}

func TestAgent_DecisionInterval(t *testing.T) {
	p := &recordingPolicy{side: game.SideRight, intent: game.IntentUp}
	a := NewAgent(game.SideRight, p, nil, 0.1, DefaultReward())
	w := alignedWorld()

	for i := 0; i < 10; i++ {
		if got := a.Intent(w); got != game.IntentUp {
			t.Fatalf("expected up, got %s", got)
		}
		w.Time += 0.025
	}

	// Decisions at t=0, 0.1, 0.2 (allowing for float drift at the boundaries)
	if p.acts < 2 || p.acts > 4 {
		t.Errorf("expected about 3 decisions, got %d", p.acts)
	}
	if len(p.learned) != p.acts-1 {
		t.Errorf("expected one transition per decision after the first, got %d for %d decisions", len(p.learned), p.acts)
	}
}

func TestAgent_EveryTickWithoutInterval(t *testing.T) {
	p := &recordingPolicy{side: game.SideLeft}
	a := NewAgent(game.SideLeft, p, nil, 0, DefaultReward())
	w := alignedWorld()

	for i := 0; i < 5; i++ {
		a.Intent(w)
		w.Time += 1.0 / 60
	}

	if p.acts != 5 {
		t.Errorf("expected 5 decisions, got %d", p.acts)
	}
}

func TestAgent_ShapedRewards(t *testing.T) {
	p := &recordingPolicy{side: game.SideRight, intent: game.IntentHold}
	a := NewAgent(game.SideRight, p, nil, 0.1, DefaultReward())
	w := alignedWorld()

	a.Intent(w)
	a.Feedback(game.Events{PaddleHit: [2]bool{false, true}})
	w.Time = 0.2
	a.Intent(w)

	if len(p.learned) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(p.learned))
	}
	tr := p.learned[0]
	// aligned paddle (1) + hit bonus (10)
	if tr.Reward != 11 {
		t.Errorf("expected reward 11, got %f", tr.Reward)
	}
	if tr.Done {
		t.Error("expected non-terminal transition")
	}
	if tr.Action != ActionHold {
		t.Errorf("expected action hold, got %d", tr.Action)
	}
}

func TestAgent_GoalEndsEpisode(t *testing.T) {
	tests := []struct {
		name   string
		scorer game.Side
		want   float64
	}{
		{"conceded", game.SideLeft, 1 - 10},
		{"scored", game.SideRight, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &recordingPolicy{side: game.SideRight, intent: game.IntentDown}
			a := NewAgent(game.SideRight, p, nil, 0.1, DefaultReward())
			w := alignedWorld()

			a.Intent(w)
			a.Feedback(game.Events{Goal: true, Scorer: tt.scorer})

			if len(p.learned) != 1 {
				t.Fatalf("expected 1 terminal transition, got %d", len(p.learned))
			}
			tr := p.learned[0]
			if !tr.Done {
				t.Error("expected terminal transition")
			}
			if tr.Reward != tt.want {
				t.Errorf("expected reward %f, got %f", tt.want, tr.Reward)
			}
			if tr.Action != ActionDown {
				t.Errorf("expected action down, got %d", tr.Action)
			}

			// The next decision starts a fresh episode without a transition
			a.Intent(w)
			if len(p.learned) != 1 {
				t.Errorf("expected no transition across the goal, got %d", len(p.learned))
			}
			if p.acts != 2 {
				t.Errorf("expected immediate decision after goal, got %d acts", p.acts)
			}
		})
	}
}

func TestAgent_FallsBackOnLearnError(t *testing.T) {
	primary := &recordingPolicy{side: game.SideRight, intent: game.IntentUp, learnErr: errors.New("backend gone")}
	fallback := NewHeuristic(game.SideRight, HeuristicConfig{RefreshInterval: 1, JitterMin: 1, JitterMax: 1, HoldScale: 0.8}, rand.New(rand.NewSource(1)))
	a := NewAgent(game.SideRight, primary, fallback, 0.1, DefaultReward())
	w := alignedWorld()

	if got := a.Intent(w); got != game.IntentUp {
		t.Fatalf("expected primary policy to move up, got %s", got)
	}
	w.Time = 0.2
	got := a.Intent(w)

	if !a.FellBack() {
		t.Fatal("expected agent to fall back")
	}
	if a.Policy() != Policy(fallback) {
		t.Error("expected fallback policy in control")
	}
	if got != game.IntentHold {
		t.Errorf("expected heuristic to hold on an aligned ball, got %s", got)
	}

	w.Time = 0.4
	a.Intent(w)
	if primary.acts != 1 {
		t.Errorf("expected primary policy never consulted again, got %d acts", primary.acts)
	}
}

type failingPolicy struct {
	recordingPolicy
	err error
}

func (p *failingPolicy) Err() error {
	return p.err
}

func TestAgent_FallsBackOnActFailure(t *testing.T) {
	primary := &failingPolicy{
		recordingPolicy: recordingPolicy{side: game.SideLeft, intent: game.IntentUp},
		err:             ErrBackendUnavailable,
	}
	fallback := &recordingPolicy{side: game.SideLeft, intent: game.IntentDown}
	a := NewAgent(game.SideLeft, primary, fallback, 0.1, DefaultReward())

	got := a.Intent(alignedWorld())

	if got != game.IntentDown {
		t.Errorf("expected fallback intent down, got %s", got)
	}
	if !a.FellBack() {
		t.Error("expected agent to fall back")
	}
}

func TestAgent_NoFallbackKeepsPolicy(t *testing.T) {
	primary := &recordingPolicy{side: game.SideRight, intent: game.IntentUp, learnErr: errors.New("boom")}
	a := NewAgent(game.SideRight, primary, nil, 0, DefaultReward())
	w := alignedWorld()

	a.Intent(w)
	w.Time = 0.1
	got := a.Intent(w)

	if a.FellBack() {
		t.Error("expected no fallback without a fallback policy")
	}
	if got != game.IntentUp {
		t.Errorf("expected primary intent, got %s", got)
	}
}

func TestAgent_Close(t *testing.T) {
	primary := &recordingPolicy{}
	fallback := &recordingPolicy{}
	a := NewAgent(game.SideRight, primary, fallback, 0, DefaultReward())

	a.Close()

	if !primary.closed || !fallback.closed {
		t.Errorf("expected both policies closed, got %v %v", primary.closed, fallback.closed)
	}
}
