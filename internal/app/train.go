package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"fortio.org/log"
	"golang.org/x/sync/errgroup"

	"github.com/diegok/aipong/internal/ai"
	"github.com/diegok/aipong/internal/game"
	"github.com/diegok/aipong/internal/session"
	"github.com/diegok/aipong/internal/store"
)

const (
	maxTrainers       = 4
	episodeMaxMinutes = 10
)

// candidate is one learner trained on its own share of the episodes
type candidate struct {
	id       int
	episodes int

	played    int
	wins      int
	pointsFor int
	against   int
	updates   int
	epsilon   float64
	blob      []byte
	failed    bool
}

func (c *candidate) margin() int {
	return c.pointsFor - c.against
}

// TrainReport summarises a training run
type TrainReport struct {
	Episodes   int
	Wins       int
	Candidates int
	Best       int
	Margin     int
	Updates    int
	Epsilon    float64
	Saved      bool
}

func (r TrainReport) String() string {
	if !r.Saved {
		return fmt.Sprintf("Played %d episodes, learner won %d. No policy saved.", r.Episodes, r.Wins)
	}
	saved := "saved as " + PolicyKey
	return fmt.Sprintf("Trained %d candidates over %d episodes, learner won %d.\nBest candidate %d: point margin %+d, %d updates, epsilon %.3f (%s)",
		r.Candidates, r.Episodes, r.Wins, r.Best+1, r.Margin, r.Updates, r.Epsilon, saved)
}

// runTrain trains learners against the heuristic in parallel headless
// matches and keeps the one with the best point margin. Interrupting keeps
// what was learned so far.
func (a *App) runTrain() (TrainReport, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	select {
	case <-a.quit:
		cancel()
	default:
	}
	go func() {
		select {
		case <-a.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	base, err := a.store.LoadPolicy(PolicyKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Infof("No saved policy, training from scratch")
	case err != nil:
		log.Warnf("Failed to load policy, training from scratch: %v", err)
		base = nil
	}

	workers := min(runtime.GOMAXPROCS(0), a.cfg.Episodes, maxTrainers)
	candidates := make([]*candidate, workers)

	g, gctx := errgroup.WithContext(ctx)
	for i := range candidates {
		c := &candidate{id: i, episodes: a.cfg.Episodes / workers}
		if i < a.cfg.Episodes%workers {
			c.episodes++
		}
		candidates[i] = c
		seed := a.rng.Int63()
		g.Go(func() error {
			return a.trainCandidate(gctx, c, base, rand.New(rand.NewSource(seed)))
		})
	}
	if err := g.Wait(); err != nil {
		return TrainReport{}, err
	}

	report := TrainReport{Candidates: workers, Best: -1}
	var best *candidate
	for _, c := range candidates {
		report.Episodes += c.played
		report.Wins += c.wins
		if c.failed || c.blob == nil || c.played == 0 {
			continue
		}
		if best == nil || c.margin() > best.margin() || (c.margin() == best.margin() && c.wins > best.wins) {
			best = c
		}
	}
	if best == nil {
		log.Warnf("No candidate finished an episode, nothing saved")
		return report, nil
	}

	report.Best, report.Margin, report.Updates, report.Epsilon = best.id, best.margin(), best.updates, best.epsilon
	if err := a.store.SavePolicy(PolicyKey, best.blob); err != nil {
		return report, err
	}
	report.Saved = true
	log.S(log.Info, "Training finished", log.Str("best", fmt.Sprint(best.id+1)), log.Str("margin", fmt.Sprint(best.margin())))
	return report, nil
}

// trainCandidate plays c's episodes with the learner on the right. A
// learner whose backend fails is marked and left out of the selection.
func (a *App) trainCandidate(ctx context.Context, c *candidate, base []byte, rng *rand.Rand) error {
	learned, err := ai.NewLearned(game.SideRight, a.tuning.Learned, rand.New(rand.NewSource(rng.Int63())))
	if err != nil {
		return fmt.Errorf("candidate %d: %w", c.id+1, err)
	}
	defer learned.Close()

	if base != nil {
		if err := learned.Restore(base); err != nil {
			log.Warnf("Candidate %d starts untrained: %v", c.id+1, err)
		}
	}

	heuristic := a.tuning.HeuristicFor(a.cfg.Difficulty)
	names := [2]string{fmt.Sprintf("Heuristic (%s)", a.cfg.Difficulty), fmt.Sprintf("Learner %d", c.id+1)}
	frame := time.Second / time.Duration(a.cfg.FPS)
	maxFrames := a.cfg.FPS * 60 * episodeMaxMinutes

	for c.played < c.episodes {
		if ctx.Err() != nil {
			break
		}

		m := game.NewMatch(names, game.NewWorld(a.tuning.Court), game.NewEngine(a.tuning.Physics), a.tuning.Rules,
			rand.New(rand.NewSource(rng.Int63())))
		opponent := ai.NewAgent(game.SideLeft, ai.NewHeuristic(game.SideLeft, heuristic, rand.New(rand.NewSource(rng.Int63()))),
			nil, 0, a.tuning.Reward)
		agent := ai.NewAgent(game.SideRight, learned,
			ai.NewHeuristic(game.SideRight, heuristic, rand.New(rand.NewSource(rng.Int63()))),
			a.tuning.Learned.Interval, a.tuning.Reward)

		s := session.New(m, opponent, agent)
		s.SetRecorder(a.store)
		out, err := session.RunHeadless(s, frame, maxFrames)
		if err != nil {
			return fmt.Errorf("candidate %d: %w", c.id+1, err)
		}
		learned.Flush()

		c.played++
		c.pointsFor += out.Result.Score2
		c.against += out.Result.Score1
		if out.Result.Winner == names[1] {
			c.wins++
		}

		if agent.FellBack() {
			c.failed = true
			log.Errf("Candidate %d dropped: %v", c.id+1, learned.Err())
			return nil
		}
		log.S(log.Info, "Episode finished", log.Str("candidate", fmt.Sprint(c.id+1)),
			log.Str("episode", fmt.Sprintf("%d/%d", c.played, c.episodes)), log.Str("score", fmt.Sprintf("%d-%d", out.Result.Score1, out.Result.Score2)),
			log.Str("epsilon", fmt.Sprintf("%.3f", learned.Epsilon())), log.Str("updates", fmt.Sprint(learned.Updates())))
	}

	blob, err := learned.Snapshot()
	if err != nil {
		c.failed = true
		log.Errf("Candidate %d snapshot failed: %v", c.id+1, err)
		return nil
	}
	c.blob, c.updates, c.epsilon = blob, learned.Updates(), learned.Epsilon()
	return nil
}
