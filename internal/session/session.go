// Package session runs one match: it gathers paddle intents, advances the
// match and tells the presentation layer what changed.
package session

import (
	"fmt"
	"time"

	"fortio.org/log"

	"github.com/diegok/aipong/internal/game"
	"github.com/diegok/aipong/internal/loop"
)

// IntentSource produces one paddle's intent for the next step. Each paddle
// has exactly one source per match.
type IntentSource interface {
	Intent(w *game.World) game.Intent
}

// FeedbackSink is implemented by sources that want the step's events
type FeedbackSink interface {
	Feedback(ev game.Events)
}

// Frame is a copy of everything needed to draw the current state
type Frame struct {
	World     game.World
	Names     [2]string
	Scores    [2]int
	Phase     game.Phase
	Countdown string
	Round     int
}

// Listener receives presentation updates. Embed NopListener to implement
// only some of them.
type Listener interface {
	OnFrame(f Frame)
	OnScore(text string)
	OnCountdown(text string)
	OnEvents(ev game.Events)
	OnMatchEnded(res game.Result)
}

type NopListener struct{}

func (NopListener) OnFrame(Frame)            {}
func (NopListener) OnScore(string)           {}
func (NopListener) OnCountdown(string)       {}
func (NopListener) OnEvents(game.Events)     {}
func (NopListener) OnMatchEnded(game.Result) {}

// Recorder persists finished matches
type Recorder interface {
	SaveResult(res game.Result) error
}

// Session implements loop.Simulation for one match
type Session struct {
	Match *game.Match

	sources   [2]IntentSource
	listeners []Listener
	recorder  Recorder

	lastScore     string
	lastCountdown string
	ended         bool
}

// New creates a session. A nil source holds its paddle still.
func New(match *game.Match, left, right IntentSource) *Session {
	return &Session{
		Match:         match,
		sources:       [2]IntentSource{left, right},
		lastCountdown: "-",
	}
}

func (s *Session) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

func (s *Session) SetRecorder(r Recorder) {
	s.recorder = r
}

// Advance runs the match for dt seconds
func (s *Session) Advance(dt float64) {
	if s.ended {
		return
	}

	var intents [2]game.Intent
	if s.Match.Phase() == game.PhaseRallying {
		for i, src := range s.sources {
			if src != nil {
				intents[i] = src.Intent(s.Match.World)
			}
		}
	}

	ev := s.Match.Advance(dt, intents)

	for _, src := range s.sources {
		if fs, ok := src.(FeedbackSink); ok {
			fs.Feedback(ev)
		}
	}
	s.notify(ev)
}

func (s *Session) notify(ev game.Events) {
	if ev.Any() {
		for _, l := range s.listeners {
			l.OnEvents(ev)
		}
	}

	if text := s.Match.ScoreText(); text != s.lastScore {
		s.lastScore = text
		for _, l := range s.listeners {
			l.OnScore(text)
		}
	}
	if text := s.Match.CountdownText(); text != s.lastCountdown {
		s.lastCountdown = text
		for _, l := range s.listeners {
			l.OnCountdown(text)
		}
	}

	frame := s.Frame()
	for _, l := range s.listeners {
		l.OnFrame(frame)
	}

	if s.Match.Phase() == game.PhaseEnded {
		s.ended = true
		res := s.Match.Result()
		log.S(log.Info, "Match ended", log.Str("winner", res.Winner), log.Str("score", s.Match.ScoreText()))

		if s.recorder != nil {
			if err := s.recorder.SaveResult(res); err != nil {
				log.Errf("Failed to save match result: %v", err)
			}
		}
		for _, l := range s.listeners {
			l.OnMatchEnded(res)
		}
	}
}

// Frame returns a drawable copy of the current state
func (s *Session) Frame() Frame {
	return Frame{
		World:     s.Match.World.Snapshot(),
		Names:     s.Match.Names,
		Scores:    s.Match.Scores(),
		Phase:     s.Match.Phase(),
		Countdown: s.Match.CountdownText(),
		Round:     s.Match.Round(),
	}
}

func (s *Session) Finished() bool {
	return s.Match.Phase() == game.PhaseEnded
}

func (s *Session) Result() game.Result {
	return s.Match.Result()
}

// RunHeadless plays s to the end on a virtual clock, one frame per step.
// If the match has not ended after maxFrames it is stopped and the outcome
// is inconclusive.
func RunHeadless(s *Session, frame time.Duration, maxFrames int) (loop.Outcome, error) {
	host := loop.NewManualHost(time.Unix(0, 0))
	driver := loop.NewDriver(host, nil)

	out, err := driver.Start(s)
	if err != nil {
		return loop.Outcome{}, fmt.Errorf("failed to start headless match: %w", err)
	}

	host.RunUntilIdle(frame, maxFrames)
	driver.Stop()

	return <-out, nil
}
