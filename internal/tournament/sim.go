package tournament

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/diegok/aipong/internal/ai"
	"github.com/diegok/aipong/internal/game"
	"github.com/diegok/aipong/internal/session"
)

// Simulator plays AI-only matches headlessly with two heuristic agents
type Simulator struct {
	Court     game.Court
	Physics   game.Physics
	Rules     game.Rules
	Heuristic ai.HeuristicConfig
	Frame     time.Duration
	MaxFrames int
}

// DefaultSimulator uses the default court at 60 frames per simulated second
// and gives up after ten simulated minutes.
func DefaultSimulator() Simulator {
	h, _ := ai.Preset(ai.Medium)
	return Simulator{
		Court:     game.DefaultCourt(),
		Physics:   game.DefaultPhysics(),
		Rules:     game.DefaultRules(),
		Heuristic: h,
		Frame:     time.Second / 60,
		MaxFrames: 60 * 60 * 10,
	}
}

// Play simulates p and returns the result. A match that hits the frame
// limit goes to the player ahead, or to a coin flip when level.
func (s Simulator) Play(p Pairing, rng *rand.Rand) (game.Result, error) {
	m := game.NewMatch(p.Players, game.NewWorld(s.Court), game.NewEngine(s.Physics), s.Rules,
		rand.New(rand.NewSource(rng.Int63())))

	left := ai.NewAgent(game.SideLeft, ai.NewHeuristic(game.SideLeft, s.Heuristic, rand.New(rand.NewSource(rng.Int63()))),
		nil, 0, ai.DefaultReward())
	right := ai.NewAgent(game.SideRight, ai.NewHeuristic(game.SideRight, s.Heuristic, rand.New(rand.NewSource(rng.Int63()))),
		nil, 0, ai.DefaultReward())
	defer left.Close()
	defer right.Close()

	out, err := session.RunHeadless(session.New(m, left, right), s.Frame, s.MaxFrames)
	if err != nil {
		return game.Result{}, fmt.Errorf("failed to simulate %s: %w", p, err)
	}

	res := out.Result
	if !res.Decided() {
		switch {
		case res.Score1 > res.Score2:
			res.Winner = res.Player1
		case res.Score2 > res.Score1:
			res.Winner = res.Player2
		default:
			res.Winner = p.Players[rng.Intn(2)]
		}
	}
	return res, nil
}

// PlayAI settles every pending AI-only match, stopping at the first match
// that needs a human. It returns the results in the order they were played.
func (t *Tournament) PlayAI(sim Simulator, rng *rand.Rand) ([]game.Result, error) {
	var results []game.Result
	for {
		p, ok := t.Next()
		if !ok || !t.IsAI(p.Players[0]) || !t.IsAI(p.Players[1]) {
			return results, nil
		}

		res, err := sim.Play(p, rng)
		if err != nil {
			return results, err
		}
		if err := t.Report(p, res.Winner); err != nil {
			return results, err
		}
		results = append(results, res)
	}
}
