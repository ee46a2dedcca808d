package ai

import (
	"fortio.org/log"

	"github.com/diegok/aipong/internal/game"
)

// Agent drives a policy for one paddle. It asks the policy for a decision
// every interval (every tick when zero), turns what happened in between
// into transitions, and switches to the fallback policy for good if the
// primary one fails.
type Agent struct {
	side     game.Side
	policy   Policy
	fallback Policy
	interval float64
	reward   Reward
	failed   bool
	reported bool

	intent       game.Intent
	decided      bool
	nextDecision float64
	lastTime     float64

	last       *Observation
	lastAction Action
	bonus      float64 // hit/concede reward since the last decision
}

// NewAgent creates an agent. fallback may be nil when policy cannot fail.
func NewAgent(side game.Side, policy, fallback Policy, interval float64, reward Reward) *Agent {
	return &Agent{
		side:     side,
		policy:   policy,
		fallback: fallback,
		interval: interval,
		reward:   reward,
	}
}

func (a *Agent) Side() game.Side {
	return a.side
}

// Policy returns the policy currently in control
func (a *Agent) Policy() Policy {
	if a.failed {
		return a.fallback
	}
	return a.policy
}

// FellBack reports whether the agent has switched to its fallback policy
func (a *Agent) FellBack() bool {
	return a.failed
}

// Intent returns the paddle intent for the coming step
func (a *Agent) Intent(w *game.World) game.Intent {
	if w.Time < a.lastTime {
		a.decided = false // new world
	}
	a.lastTime = w.Time

	if a.decided && w.Time < a.nextDecision {
		return a.intent
	}

	p := a.Policy()
	obs := p.Observe(w)

	if a.last != nil {
		a.learn(p, Transition{
			State:  a.last.Features,
			Action: a.lastAction,
			Reward: a.reward.Baseline(obs.PaddleY, obs.BallY) + a.bonus,
			Next:   obs.Features,
		})
		p = a.Policy()
	}

	intent := p.Act(obs)
	if a.check(p) {
		p = a.Policy()
		intent = p.Act(obs)
	}

	a.intent = intent
	a.decided = true
	a.nextDecision = w.Time + a.interval
	a.last = &obs
	a.lastAction = ActionFor(intent)
	a.bonus = 0
	return intent
}

// Feedback reports the events of the step that just ran. A goal closes the
// current episode with a terminal transition.
func (a *Agent) Feedback(ev game.Events) {
	if ev.PaddleHit[a.side] {
		a.bonus += a.reward.Hit
	}
	if !ev.Goal {
		return
	}
	if ev.Scorer != a.side {
		a.bonus += a.reward.Concede
	}

	if a.last != nil {
		a.learn(a.Policy(), Transition{
			State:  a.last.Features,
			Action: a.lastAction,
			Reward: a.reward.Baseline(a.last.PaddleY, a.last.BallY) + a.bonus,
			Next:   a.last.Features,
			Done:   true,
		})
	}

	a.last = nil
	a.bonus = 0
	a.decided = false
	a.intent = game.IntentHold
}

func (a *Agent) learn(p Policy, tr Transition) {
	if err := p.Learn(tr); err != nil {
		a.failOver(err)
	}
}

// check fails over if p reported a failure while acting
func (a *Agent) check(p Policy) bool {
	f, ok := p.(Failer)
	if !ok || f.Err() == nil || a.failed {
		return false
	}
	return a.failOver(f.Err())
}

func (a *Agent) failOver(err error) bool {
	if a.failed {
		return false
	}
	if a.fallback == nil {
		if !a.reported {
			log.Errf("AI %s policy error with no fallback: %v", a.side, err)
			a.reported = true
		}
		return false
	}
	a.failed = true
	a.last = nil
	a.bonus = 0
	log.S(log.Error, "Learned policy failed, using heuristic for the rest of the session",
		log.Str("side", a.side.String()), log.Str("error", err.Error()))
	return true
}

// Close releases the policies' background work
func (a *Agent) Close() {
	for _, p := range []Policy{a.policy, a.fallback} {
		if c, ok := p.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
