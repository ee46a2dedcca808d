package ai

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/diegok/aipong/internal/game"
)

// Difficulty names a heuristic preset
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// HeuristicConfig tunes the trajectory-following policy. Times are in
// simulated seconds.
type HeuristicConfig struct {
	RefreshInterval float64 `toml:"refresh_interval"` // how often the target is re-predicted
	JitterMin       float64 `toml:"jitter_min"`       // target multiplier range
	JitterMax       float64 `toml:"jitter_max"`
	HoldScale       float64 `toml:"hold_scale"` // hold time = HoldScale * distance / paddle speed

	// Occasional random key press, checked every TwitchInterval
	TwitchInterval float64 `toml:"twitch_interval"`
	TwitchChance   float64 `toml:"twitch_chance"`
	TwitchHold     float64 `toml:"twitch_hold"`
}

// Preset returns the tuning for a difficulty
func Preset(d Difficulty) (HeuristicConfig, error) {
	cfg := HeuristicConfig{
		RefreshInterval: 1,
		JitterMin:       0.9,
		JitterMax:       1.1,
		HoldScale:       0.8,
		TwitchInterval:  0.3,
		TwitchChance:    0.03,
		TwitchHold:      0.2,
	}

	switch d {
	case Easy:
		cfg.RefreshInterval = 2
		cfg.JitterMin, cfg.JitterMax = 0.75, 1.25
		cfg.TwitchChance = 0.06
	case Medium, "":
	case Hard:
		cfg.RefreshInterval = 0.5
		cfg.JitterMin, cfg.JitterMax = 0.97, 1.03
		cfg.TwitchChance = 0
	default:
		return cfg, fmt.Errorf("unknown difficulty %q", d)
	}
	return cfg, nil
}

// Heuristic follows the predicted ball position with timed key holds. Only
// one hold is in flight at a time, and targets within half a paddle of the
// paddle centre are ignored.
type Heuristic struct {
	side game.Side
	cfg  HeuristicConfig
	rng  *rand.Rand

	target      float64
	hasTarget   bool
	nextRefresh float64

	intent     game.Intent
	holdUntil  float64
	nextTwitch float64
	last       float64
}

func NewHeuristic(side game.Side, cfg HeuristicConfig, rng *rand.Rand) *Heuristic {
	return &Heuristic{side: side, cfg: cfg, rng: rng}
}

func (h *Heuristic) Observe(w *game.World) Observation {
	return Observe(w, h.side)
}

// Target returns the current target y and whether one has been chosen
func (h *Heuristic) Target() (float64, bool) {
	return h.target, h.hasTarget
}

func (h *Heuristic) Act(obs Observation) game.Intent {
	now := obs.Time
	if now < h.last {
		h.Reset() // clock restarted: new world
	}
	h.last = now

	if !h.hasTarget || now >= h.nextRefresh {
		jitter := h.cfg.JitterMin + h.rng.Float64()*(h.cfg.JitterMax-h.cfg.JitterMin)
		h.target = obs.Predicted * jitter
		h.hasTarget = true
		h.nextRefresh = now + h.cfg.RefreshInterval
	}

	if h.intent != game.IntentHold && now < h.holdUntil {
		return h.intent
	}
	h.intent = game.IntentHold

	if h.cfg.TwitchChance > 0 && now >= h.nextTwitch {
		h.nextTwitch = now + h.cfg.TwitchInterval
		if h.rng.Float64() < h.cfg.TwitchChance {
			h.intent = game.IntentUp
			if h.rng.Float64() > 0.5 {
				h.intent = game.IntentDown
			}
			h.holdUntil = now + h.cfg.TwitchHold
			return h.intent
		}
	}

	dist := math.Abs(obs.PaddleY - h.target)
	if dist <= obs.Court.PaddleHalfHeight {
		return game.IntentHold
	}

	if obs.PaddleY < h.target {
		h.intent = game.IntentUp
	} else {
		h.intent = game.IntentDown
	}
	h.holdUntil = now + h.cfg.HoldScale*dist/obs.Court.PaddleSpeed
	return h.intent
}

// Learn does nothing; the heuristic does not learn
func (h *Heuristic) Learn(Transition) error {
	return nil
}

// Reset forgets the current target and hold, e.g. at a new match
func (h *Heuristic) Reset() {
	h.hasTarget = false
	h.intent = game.IntentHold
	h.holdUntil = 0
	h.nextRefresh = 0
	h.nextTwitch = 0
	h.last = 0
}
