package session

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/diegok/aipong/internal/game"
	"github.com/diegok/aipong/internal/loop"
)

type countingListener struct {
	NopListener
	frames     int
	scores     []string
	countdowns []string
	events     []game.Events
	ended      []game.Result
}

func (l *countingListener) OnFrame(Frame)                { l.frames++ }
func (l *countingListener) OnScore(text string)          { l.scores = append(l.scores, text) }
func (l *countingListener) OnCountdown(text string)      { l.countdowns = append(l.countdowns, text) }
func (l *countingListener) OnEvents(ev game.Events)      { l.events = append(l.events, ev) }
func (l *countingListener) OnMatchEnded(res game.Result) { l.ended = append(l.ended, res) }

type memRecorder struct {
	results []game.Result
	err     error
}

func (r *memRecorder) SaveResult(res game.Result) error {
	r.results = append(r.results, res)
	return r.err
}

type fixedSource struct {
	intent game.Intent
	calls  int
	events []game.Events
}

func (s *fixedSource) Intent(*game.World) game.Intent {
	s.calls++
	return s.intent
}

func (s *fixedSource) Feedback(ev game.Events) {
	s.events = append(s.events, ev)
}

func newTestSession(left, right IntentSource) (*Session, *countingListener) {
	m := game.NewMatch([2]string{"alice", "bob"}, game.NewWorld(game.DefaultCourt()),
		game.NewEngine(game.DefaultPhysics()), game.DefaultRules(), rand.New(rand.NewSource(1)))
	s := New(m, left, right)
	l := &countingListener{}
	s.AddListener(l)
	return s, l
}

func TestSession_InitialNotifications(t *testing.T) {
	s, l := newTestSession(nil, nil)

	s.Advance(0.1)

	if len(l.scores) != 1 || l.scores[0] != "0  -  0" {
		t.Errorf("expected initial score text, got %v", l.scores)
	}
	if len(l.countdowns) != 1 || l.countdowns[0] != "3" {
		t.Errorf("expected countdown 3, got %v", l.countdowns)
	}
	if l.frames != 1 {
		t.Errorf("expected 1 frame, got %d", l.frames)
	}

	s.Advance(0.1)
	if len(l.scores) != 1 || len(l.countdowns) != 1 {
		t.Errorf("expected no repeated notifications, got scores %v countdowns %v", l.scores, l.countdowns)
	}
}

func TestSession_SourcesOnlyPolledWhileRallying(t *testing.T) {
	left := &fixedSource{intent: game.IntentUp}
	right := &fixedSource{intent: game.IntentDown}
	s, _ := newTestSession(left, right)

	s.Advance(1)
	if left.calls != 0 || right.calls != 0 {
		t.Errorf("expected no intents requested during countdown, got %d and %d", left.calls, right.calls)
	}

	s.Advance(1)
	s.Advance(1)
	s.Advance(0.1)

	if left.calls != 1 || right.calls != 1 {
		t.Errorf("expected one intent request each, got %d and %d", left.calls, right.calls)
	}
	if got := s.Match.World.Paddle(game.SideLeft).Y; got <= 0 {
		t.Errorf("expected left paddle to move up, got %f", got)
	}
	if got := s.Match.World.Paddle(game.SideRight).Y; got >= 0 {
		t.Errorf("expected right paddle to move down, got %f", got)
	}
	if len(left.events) != 4 {
		t.Errorf("expected feedback every step, got %d", len(left.events))
	}
}

func TestSession_GoalNotifies(t *testing.T) {
	s, l := newTestSession(nil, nil)
	for i := 0; i < 3; i++ {
		s.Advance(1)
	}
	if s.Match.Phase() != game.PhaseRallying {
		t.Fatalf("expected rallying, got %s", s.Match.Phase())
	}

	s.Match.World.Ball = game.Ball{X: 12, Y: 5, VX: 18}
	s.Advance(0.25)

	if len(l.events) != 1 || !l.events[0].Goal || l.events[0].Scorer != game.SideLeft {
		t.Fatalf("expected one goal event for left, got %+v", l.events)
	}
	if last := l.scores[len(l.scores)-1]; last != "1  -  0" {
		t.Errorf("expected score 1 - 0, got %q", last)
	}
	if last := l.countdowns[len(l.countdowns)-1]; last != "3" {
		t.Errorf("expected countdown restarted at 3, got %q", last)
	}
}

func TestSession_MatchEndsOnce(t *testing.T) {
	s, l := newTestSession(nil, nil)
	rec := &memRecorder{}
	s.SetRecorder(rec)

	for i := 0; i < 11; i++ {
		s.Match.AwardPoint(game.SideRight)
	}
	s.Advance(0.1)
	s.Advance(0.1)

	if !s.Finished() {
		t.Fatal("expected session finished")
	}
	if len(l.ended) != 1 {
		t.Fatalf("expected exactly one match-ended notification, got %d", len(l.ended))
	}
	if l.ended[0].Winner != "bob" || l.ended[0].Score2 != 11 {
		t.Errorf("expected bob to win 11-0, got %+v", l.ended[0])
	}
	if len(rec.results) != 1 {
		t.Errorf("expected one saved result, got %d", len(rec.results))
	}
}

func TestSession_RecorderFailureDoesNotAffectOutcome(t *testing.T) {
	s, l := newTestSession(nil, nil)
	s.SetRecorder(&memRecorder{err: errors.New("disk full")})

	for i := 0; i < 11; i++ {
		s.Match.AwardPoint(game.SideLeft)
	}
	s.Advance(0.1)

	if len(l.ended) != 1 || l.ended[0].Winner != "alice" {
		t.Errorf("expected alice to win despite recorder failure, got %+v", l.ended)
	}
	if s.Result().Winner != "alice" {
		t.Errorf("expected result winner alice, got %q", s.Result().Winner)
	}
}

func TestRunHeadless(t *testing.T) {
	s, l := newTestSession(&fixedSource{}, &fixedSource{})

	out, err := RunHeadless(s, time.Second/60, 100000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Reason != loop.ReasonFinished {
		t.Fatalf("expected finished outcome, got %s", out.Reason)
	}
	if !out.Conclusive() {
		t.Errorf("expected a winner, got %+v", out.Result)
	}
	winner := out.Result.Score1
	loser := out.Result.Score2
	if out.Result.Winner == "bob" {
		winner, loser = loser, winner
	}
	if winner < 11 || winner-loser < 2 {
		t.Errorf("expected a valid final score, got %d-%d", out.Result.Score1, out.Result.Score2)
	}
	if len(l.ended) != 1 {
		t.Errorf("expected one match-ended notification, got %d", len(l.ended))
	}
}

func TestRunHeadless_FrameLimit(t *testing.T) {
	s, _ := newTestSession(nil, nil)

	out, err := RunHeadless(s, time.Second/60, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Reason != loop.ReasonStopped {
		t.Errorf("expected stopped outcome, got %s", out.Reason)
	}
	if out.Conclusive() {
		t.Errorf("expected inconclusive outcome, got %+v", out.Result)
	}
}
