package loop

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/diegok/aipong/internal/game"
)

// fakeSim finishes after a fixed number of advances
type fakeSim struct {
	finishAfter int
	dts         []float64
}

func (s *fakeSim) Advance(dt float64) {
	s.dts = append(s.dts, dt)
}

func (s *fakeSim) Finished() bool {
	return s.finishAfter > 0 && len(s.dts) >= s.finishAfter
}

func (s *fakeSim) Result() game.Result {
	r := game.Result{Player1: "left", Player2: "right", Score1: len(s.dts), Score2: 1}
	if s.Finished() {
		r.Winner = "left"
	}
	return r
}

type fakeSurface struct {
	gone atomic.Bool
}

func (s *fakeSurface) Available() bool {
	return !s.gone.Load()
}

func newTestDriver() (*Driver, *ManualHost, *fakeSurface) {
	host := NewManualHost(time.Unix(0, 0))
	surface := &fakeSurface{}
	return NewDriver(host, surface), host, surface
}

func receive(t *testing.T, ch <-chan Outcome) Outcome {
	t.Helper()
	select {
	case o, ok := <-ch:
		if !ok {
			t.Fatal("expected an outcome, channel closed")
		}
		return o
	default:
		t.Fatal("expected an outcome to be ready")
	}
	return Outcome{}
}

func expectClosed(t *testing.T, ch <-chan Outcome) {
	t.Helper()
	select {
	case o, ok := <-ch:
		if ok {
			t.Errorf("expected channel closed, got extra outcome %+v", o)
		}
	default:
		t.Error("expected channel closed, it is still open")
	}
}

func TestDriver_RunsUntilFinished(t *testing.T) {
	d, host, _ := newTestDriver()
	sim := &fakeSim{finishAfter: 3}

	out, err := d.Start(sim)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	steps := host.RunUntilIdle(16*time.Millisecond, 100)

	if steps != 3 {
		t.Errorf("expected 3 frames, got %d", steps)
	}
	for i, dt := range sim.dts {
		if math.Abs(dt-0.016) > 1e-9 {
			t.Errorf("frame %d: expected dt=0.016, got %f", i, dt)
		}
	}

	o := receive(t, out)
	if o.Reason != ReasonFinished {
		t.Errorf("expected reason finished, got %s", o.Reason)
	}
	if !o.Conclusive() || o.Result.Winner != "left" {
		t.Errorf("expected conclusive outcome won by left, got %+v", o)
	}
	expectClosed(t, out)

	if d.Running() {
		t.Error("expected driver stopped")
	}
	if host.Pending() != 0 {
		t.Errorf("expected no pending frames, got %d", host.Pending())
	}
}

func TestDriver_DoubleStart(t *testing.T) {
	d, _, _ := newTestDriver()

	if _, err := d.Start(&fakeSim{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := d.Start(&fakeSim{})

	if !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestDriver_StopIsIdempotent(t *testing.T) {
	d, host, _ := newTestDriver()
	sim := &fakeSim{}

	out, _ := d.Start(sim)
	host.Step(16 * time.Millisecond)

	d.Stop()
	d.Stop()

	o := receive(t, out)
	if o.Reason != ReasonStopped {
		t.Errorf("expected reason stopped, got %s", o.Reason)
	}
	if o.Conclusive() || o.Result.Winner != "" {
		t.Errorf("expected inconclusive outcome, got %+v", o)
	}
	if o.Result.Score1 != 1 {
		t.Errorf("expected scores kept in outcome, got %+v", o.Result)
	}
	expectClosed(t, out)

	// Stop after a natural finish is also a no-op
	d2, host2, _ := newTestDriver()
	out2, _ := d2.Start(&fakeSim{finishAfter: 1})
	host2.RunUntilIdle(time.Millisecond, 10)
	d2.Stop()
	if o := receive(t, out2); o.Reason != ReasonFinished {
		t.Errorf("expected reason finished, got %s", o.Reason)
	}
	expectClosed(t, out2)
}

func TestDriver_StopCancelsPendingFrame(t *testing.T) {
	d, host, _ := newTestDriver()
	sim := &fakeSim{}

	d.Start(sim)
	host.Step(16 * time.Millisecond)
	if host.Pending() != 1 {
		t.Fatalf("expected 1 pending frame, got %d", host.Pending())
	}

	d.Stop()

	if host.Pending() != 0 {
		t.Errorf("expected pending frame cancelled, got %d", host.Pending())
	}
	host.Step(16 * time.Millisecond)
	if len(sim.dts) != 1 {
		t.Errorf("expected no ticks after stop, got %d", len(sim.dts))
	}
}

func TestDriver_StaleFrameIgnored(t *testing.T) {
	// A frame captured by the host before Stop must not reach the simulation
	host := NewManualHost(time.Unix(0, 0))
	d := NewDriver(host, nil)
	sim := &fakeSim{}
	d.Start(sim)

	var stale func()
	host.mu.Lock()
	stale = host.pending[0].fn
	host.mu.Unlock()

	d.Stop()
	stale()

	if len(sim.dts) != 0 {
		t.Errorf("expected stale frame to be ignored, got %d ticks", len(sim.dts))
	}
}

func TestDriver_SurfaceLost(t *testing.T) {
	d, host, surface := newTestDriver()
	sim := &fakeSim{}

	out, _ := d.Start(sim)
	host.Step(16 * time.Millisecond)
	surface.gone.Store(true)
	host.Step(16 * time.Millisecond)

	o := receive(t, out)
	if o.Reason != ReasonSurfaceLost {
		t.Errorf("expected reason surface lost, got %s", o.Reason)
	}
	if o.Conclusive() {
		t.Errorf("expected inconclusive outcome, got %+v", o)
	}
	if host.Pending() != 0 {
		t.Errorf("expected no frames scheduled, got %d", host.Pending())
	}
	if len(sim.dts) != 1 {
		t.Errorf("expected 1 tick before the surface vanished, got %d", len(sim.dts))
	}
}

func TestDriver_PauseSkipsSimulation(t *testing.T) {
	d, host, _ := newTestDriver()
	sim := &fakeSim{}

	d.Start(sim)
	host.Step(10 * time.Millisecond)

	if err := d.Pause(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Paused() {
		t.Error("expected paused")
	}
	for i := 0; i < 5; i++ {
		host.Step(time.Second)
	}
	if len(sim.dts) != 1 {
		t.Errorf("expected no ticks while paused, got %d", len(sim.dts))
	}
	if host.Pending() != 1 {
		t.Errorf("expected frames still scheduled while paused, got %d", host.Pending())
	}

	if err := d.Resume(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	host.Step(20 * time.Millisecond)

	if len(sim.dts) != 2 {
		t.Fatalf("expected ticks to resume, got %d", len(sim.dts))
	}
	if math.Abs(sim.dts[1]-0.02) > 1e-9 {
		t.Errorf("expected paused time excluded (dt=0.02), got %f", sim.dts[1])
	}
}

func TestDriver_PauseWhenStopped(t *testing.T) {
	d, _, _ := newTestDriver()

	if err := d.Pause(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
	if err := d.Resume(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
}

func TestDriver_Restart(t *testing.T) {
	d, host, _ := newTestDriver()

	out1, _ := d.Start(&fakeSim{finishAfter: 1})
	host.RunUntilIdle(time.Millisecond, 10)
	receive(t, out1)

	sim := &fakeSim{finishAfter: 2}
	out2, err := d.Start(sim)
	if err != nil {
		t.Fatalf("expected restart after finish, got %v", err)
	}
	host.RunUntilIdle(time.Millisecond, 10)

	if o := receive(t, out2); o.Reason != ReasonFinished {
		t.Errorf("expected reason finished, got %s", o.Reason)
	}
	if len(sim.dts) != 2 {
		t.Errorf("expected 2 ticks, got %d", len(sim.dts))
	}
}

func TestTickerHost_FiresAndCancels(t *testing.T) {
	h := NewTickerHost(200)
	defer h.Close()

	fired := make(chan struct{}, 1)
	h.RequestFrame(func() { fired <- struct{}{} })

	var cancelled atomic.Bool
	id := h.RequestFrame(func() { cancelled.Store(true) })
	h.CancelFrame(id)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("expected frame to fire")
	}

	if cancelled.Load() {
		t.Error("expected cancelled frame not to fire")
	}
}

func TestTickerHost_DrivesMatch(t *testing.T) {
	h := NewTickerHost(500)
	defer h.Close()

	d := NewDriver(h, nil)
	out, err := d.Start(&fakeSim{finishAfter: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case o := <-out:
		if o.Reason != ReasonFinished {
			t.Errorf("expected reason finished, got %s", o.Reason)
		}
	case <-time.After(2 * time.Second):
		d.Stop()
		t.Fatal("expected match to finish")
	}
}
