package game

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
)

// Rules decide when a round starts and when the match is over
type Rules struct {
	CountdownSeconds float64 `toml:"countdown_seconds"`
	WinningScore     int     `toml:"winning_score"` // first to this wins outright...
	DeuceScore       int     `toml:"deuce_score"`   // ...unless both reached this, then a margin is needed
	WinMargin        int     `toml:"win_margin"`
}

func DefaultRules() Rules {
	return Rules{
		CountdownSeconds: 3,
		WinningScore:     11,
		DeuceScore:       10,
		WinMargin:        2,
	}
}

// Result is the finalised record of a match. Winner is empty when the match
// was abandoned before a winner was decided.
type Result struct {
	Player1 string `toml:"player1"`
	Player2 string `toml:"player2"`
	Score1  int    `toml:"score1"`
	Score2  int    `toml:"score2"`
	Winner  string `toml:"winner"`
}

// Decided reports whether the result carries a winner
func (r Result) Decided() bool {
	return r.Winner != ""
}

// Match is the round/score state machine. It is the only writer of the
// scores and phase, and drives the Engine while rallying.
type Match struct {
	Names [2]string
	World *World

	engine *Engine
	rules  Rules
	rng    *rand.Rand

	phase     Phase
	scores    [2]int
	countdown float64 // seconds left while in PhaseCountdown
	elapsed   float64 // simulated seconds since the match started
	winner    Side
	rounds    int
}

// NewMatch creates a match in the countdown phase
func NewMatch(names [2]string, world *World, engine *Engine, rules Rules, rng *rand.Rand) *Match {
	m := &Match{
		Names:  names,
		World:  world,
		engine: engine,
		rules:  rules,
		rng:    rng,
	}
	m.startCountdown()
	return m
}

func (m *Match) startCountdown() {
	m.phase = PhaseCountdown
	m.countdown = m.rules.CountdownSeconds
	m.rounds++
	m.World.ResetRally(m.engine.Physics, m.rng)
}

// Advance moves the match forward by dt seconds. Physics only runs while
// rallying; during the countdown the world is held still.
func (m *Match) Advance(dt float64, intents [2]Intent) Events {
	dt = m.engine.SanitizeDelta(dt)

	switch m.phase {
	case PhaseCountdown:
		m.elapsed += dt
		m.countdown -= dt
		if m.countdown <= 0 {
			m.countdown = 0
			m.phase = PhaseRallying
		}
		return Events{}

	case PhaseRallying:
		m.elapsed += dt
		ev := m.engine.Step(m.World, dt, intents)
		if ev.Goal {
			m.AwardPoint(ev.Scorer)
		}
		return ev
	}

	return Events{}
}

// AwardPoint credits side with a point and either ends the match or starts
// the next countdown. It does nothing once the match has ended.
func (m *Match) AwardPoint(side Side) {
	if m.phase == PhaseEnded {
		return
	}

	m.scores[side]++

	if m.decided() {
		m.phase = PhaseEnded
		m.winner = SideLeft
		if m.scores[SideRight] > m.scores[SideLeft] {
			m.winner = SideRight
		}
		return
	}

	m.startCountdown()
}

func (m *Match) decided() bool {
	l, r := m.scores[SideLeft], m.scores[SideRight]

	if l >= m.rules.DeuceScore && r >= m.rules.DeuceScore {
		diff := l - r
		if diff < 0 {
			diff = -diff
		}
		return diff >= m.rules.WinMargin
	}
	return l >= m.rules.WinningScore || r >= m.rules.WinningScore
}

func (m *Match) Phase() Phase {
	return m.phase
}

// Scores returns left and right scores
func (m *Match) Scores() [2]int {
	return m.scores
}

// Winner returns the winning side once the match has ended
func (m *Match) Winner() (Side, bool) {
	if m.phase != PhaseEnded {
		return SideLeft, false
	}
	return m.winner, true
}

// Elapsed returns the simulated time since the match started, in seconds
func (m *Match) Elapsed() float64 {
	return m.elapsed
}

// Round returns the 1-based number of the current round
func (m *Match) Round() int {
	return m.rounds
}

// Rules returns the rules the match is played under
func (m *Match) Rules() Rules {
	return m.rules
}

// CountdownText returns the whole seconds left ("3", "2", "1") during the
// countdown and an empty string otherwise.
func (m *Match) CountdownText() string {
	if m.phase != PhaseCountdown {
		return ""
	}
	n := int(math.Ceil(m.countdown))
	if n < 1 {
		n = 1
	}
	return strconv.Itoa(n)
}

// ScoreText formats the scoreboard
func (m *Match) ScoreText() string {
	return fmt.Sprintf("%d  -  %d", m.scores[SideLeft], m.scores[SideRight])
}

// Result returns the match record. Before the match ends the winner is empty.
func (m *Match) Result() Result {
	r := Result{
		Player1: m.Names[SideLeft],
		Player2: m.Names[SideRight],
		Score1:  m.scores[SideLeft],
		Score2:  m.scores[SideRight],
	}
	if side, ok := m.Winner(); ok {
		r.Winner = m.Names[side]
	}
	return r
}
