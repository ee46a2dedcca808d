package app

import (
	"fmt"
	"math/rand"

	"fortio.org/log"

	"github.com/diegok/aipong/internal/game"
	"github.com/diegok/aipong/internal/loop"
	"github.com/diegok/aipong/internal/session"
	"github.com/diegok/aipong/internal/tournament"
	"github.com/diegok/aipong/internal/ui"
)

// runPvP plays rematches between two keyboard players until someone quits
func (a *App) runPvP() error {
	names := [2]string{a.cfg.Player1, a.cfg.Player2}
	for {
		left := ui.NewKeyboard(ui.KeysWS, ui.DefaultKeyHold)
		right := ui.NewKeyboard(ui.KeysArrows, ui.DefaultKeyHold)

		out, err := a.playMatch(names, left, right, left, right)
		if err != nil {
			return err
		}
		if !a.afterMatch(out) {
			return errQuit
		}
	}
}

// runPvE pits the keyboard player on the left against the computer
func (a *App) runPvE() error {
	names := [2]string{a.cfg.Player1, a.cfg.Player2}
	for {
		human := ui.NewKeyboard(ui.KeysAny, ui.DefaultKeyHold)
		agent, learned := a.newAgent(game.SideRight)

		out, err := a.playMatch(names, human, agent, human)
		if out.Reason == loop.ReasonFinished {
			a.savePolicy(agent, learned)
		}
		agent.Close()
		if err != nil {
			return err
		}
		if !a.afterMatch(out) {
			return errQuit
		}
	}
}

// afterMatch leaves the result on screen and asks for a rematch
func (a *App) afterMatch(out loop.Outcome) bool {
	if out.Reason == loop.ReasonSurfaceLost {
		return false
	}
	a.renderer.RenderMessage(resultTitle(out), fmt.Sprintf("Final Score: %d - %d", out.Result.Score1, out.Result.Score2),
		"", "Press ENTER for a rematch | Press 'q' to quit")
	return a.waitForKey()
}

func resultTitle(out loop.Outcome) string {
	if out.Conclusive() {
		return fmt.Sprintf("=== %s WINS ===", out.Result.Winner)
	}
	return "=== MATCH ABANDONED ==="
}

// runTournament plays the bracket. AI-only matches are simulated, the rest
// are played on screen.
func (a *App) runTournament() error {
	t, err := tournament.New(a.cfg.Players, rand.New(rand.NewSource(a.rng.Int63())))
	if err != nil {
		return err
	}

	sim := tournament.DefaultSimulator()
	sim.Court, sim.Physics, sim.Rules = a.tuning.Court, a.tuning.Physics, a.tuning.Rules
	sim.Heuristic = a.tuning.HeuristicFor(a.cfg.Difficulty)

	for {
		results, err := t.PlayAI(sim, a.rng)
		if err != nil {
			return err
		}
		for _, res := range results {
			if err := a.store.SaveResult(res); err != nil {
				log.Errf("Failed to save simulated result: %v", err)
			}
		}

		next, ok := t.Next()
		a.renderer.RenderBracket(t, next, ok)
		if !ok {
			champion, _ := t.Champion()
			log.S(log.Info, "Tournament finished", log.Str("champion", champion))
			a.waitForKey()
			return nil
		}
		if !a.waitForKey() {
			return errQuit
		}

		out, err := a.playPairing(t, next)
		if err != nil {
			return err
		}
		if !out.Conclusive() {
			return errQuit
		}
		if err := t.Report(next, out.Result.Winner); err != nil {
			return err
		}
	}
}

// playPairing plays a bracket match with at least one human. Two humans
// use W/S and the arrows; a lone human may use either against the computer.
func (a *App) playPairing(t *tournament.Tournament, p tournament.Pairing) (loop.Outcome, error) {
	var sources [2]session.IntentSource
	var keyboards []*ui.Keyboard
	var agents []interface{ Close() }

	for i, name := range p.Players {
		side := game.Side(i)
		if t.IsAI(name) {
			agent, _ := a.newAgent(side)
			agents = append(agents, agent)
			sources[i] = agent
			continue
		}
		keys := ui.KeysWS
		if side == game.SideRight {
			keys = ui.KeysArrows
		}
		if t.IsAI(p.Players[1-i]) {
			keys = ui.KeysAny
		}
		k := ui.NewKeyboard(keys, ui.DefaultKeyHold)
		keyboards = append(keyboards, k)
		sources[i] = k
	}
	defer func() {
		for _, ag := range agents {
			ag.Close()
		}
	}()

	out, err := a.playMatch(p.Players, sources[0], sources[1], keyboards...)
	if err != nil {
		return out, err
	}
	if out.Conclusive() {
		a.renderer.RenderMessage(resultTitle(out), fmt.Sprintf("Final Score: %d - %d", out.Result.Score1, out.Result.Score2),
			"", "Press ENTER to continue")
		a.waitForKey()
	}
	return out, nil
}
