// Package loop drives a simulation one frame at a time from a host's frame
// callbacks, and resolves the match outcome exactly once.
package loop

import (
	"errors"
	"sync"
	"time"

	"fortio.org/log"

	"github.com/diegok/aipong/internal/game"
)

var (
	// ErrAlreadyRunning is returned when Start is called while a simulation
	// is still being driven.
	ErrAlreadyRunning = errors.New("loop: already running")
	// ErrNotRunning is returned by Pause and Resume when nothing is running.
	ErrNotRunning = errors.New("loop: not running")
)

// FrameID identifies a pending frame request
type FrameID uint64

// Host is the tick source. It calls fn once on its next frame, strictly
// one callback at a time.
type Host interface {
	RequestFrame(fn func()) FrameID
	CancelFrame(id FrameID)
	Now() time.Time
}

// Surface is whatever the match is being shown on
type Surface interface {
	Available() bool
}

// Simulation is advanced by the driver on each frame
type Simulation interface {
	Advance(dt float64)
	Finished() bool
	Result() game.Result
}

// Reason tells why a driven simulation stopped
type Reason int

const (
	ReasonFinished Reason = iota
	ReasonStopped
	ReasonSurfaceLost
)

func (r Reason) String() string {
	switch r {
	case ReasonFinished:
		return "finished"
	case ReasonStopped:
		return "stopped"
	default:
		return "surface lost"
	}
}

// Outcome is delivered once per Start. Only a finished simulation carries a
// winner; stopped and surface-lost outcomes keep the scores but are inconclusive.
type Outcome struct {
	Result game.Result
	Reason Reason
}

// Conclusive reports whether the outcome names a winner
func (o Outcome) Conclusive() bool {
	return o.Reason == ReasonFinished && o.Result.Decided()
}

// Driver schedules one frame at a time on a Host. Each frame measures the
// elapsed time and advances the simulation unless paused.
type Driver struct {
	host    Host
	surface Surface

	mu      sync.Mutex
	sim     Simulation
	running bool
	paused  bool
	frame   FrameID
	pending bool
	gen     uint64 // bumped on every start/stop, stale frames check it
	last    time.Time
	out     chan Outcome
}

// NewDriver creates a driver. surface may be nil if the simulation has no
// display (headless play).
func NewDriver(host Host, surface Surface) *Driver {
	return &Driver{host: host, surface: surface}
}

// Start begins driving sim. The returned channel receives exactly one
// outcome and is then closed.
func (d *Driver) Start(sim Simulation) (<-chan Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil, ErrAlreadyRunning
	}

	d.sim = sim
	d.running = true
	d.paused = false
	d.gen++
	d.last = d.host.Now()
	d.out = make(chan Outcome, 1)
	d.schedule()

	return d.out, nil
}

// Stop ends the current run. The pending frame is cancelled before Stop
// returns and no further frames reach the simulation. Calling Stop on a
// stopped driver does nothing.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}

	res := d.sim.Result()
	res.Winner = ""
	d.finish(Outcome{Result: res, Reason: ReasonStopped})
}

// Pause keeps frames coming but stops feeding them to the simulation
func (d *Driver) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return ErrNotRunning
	}
	d.paused = true
	return nil
}

// Resume continues a paused run. Time spent paused is not fed to the simulation.
func (d *Driver) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return ErrNotRunning
	}
	if d.paused {
		d.paused = false
		d.last = d.host.Now()
	}
	return nil
}

func (d *Driver) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// schedule registers the next frame. Caller holds d.mu.
func (d *Driver) schedule() {
	gen := d.gen
	d.frame = d.host.RequestFrame(func() { d.tick(gen) })
	d.pending = true
}

func (d *Driver) tick(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running || gen != d.gen {
		return // frame from a run that has already ended
	}
	d.pending = false

	now := d.host.Now()
	dt := now.Sub(d.last).Seconds()
	d.last = now

	if d.surface != nil && !d.surface.Available() {
		log.Warnf("Render surface lost, ending match")
		res := d.sim.Result()
		res.Winner = ""
		d.finish(Outcome{Result: res, Reason: ReasonSurfaceLost})
		return
	}

	if d.paused {
		d.schedule()
		return
	}

	d.sim.Advance(dt)

	if d.sim.Finished() {
		d.finish(Outcome{Result: d.sim.Result(), Reason: ReasonFinished})
		return
	}

	d.schedule()
}

// finish resolves the outcome and tears the run down. Caller holds d.mu.
func (d *Driver) finish(o Outcome) {
	if d.pending {
		d.host.CancelFrame(d.frame)
		d.pending = false
	}
	d.running = false
	d.paused = false
	d.gen++

	d.out <- o
	close(d.out)

	log.Debugf("Loop finished: %s (%s %d - %d %s)", o.Reason, o.Result.Player1, o.Result.Score1, o.Result.Score2, o.Result.Player2)
}
