package loop

import (
	"slices"
	"sync"
	"time"
)

// TickerHost fires frame callbacks from a ticker. All callbacks run on the
// ticker goroutine, one after the other.
type TickerHost struct {
	ticker *time.Ticker

	mu      sync.Mutex
	next    FrameID
	pending map[FrameID]func()

	done chan struct{}
	once sync.Once
}

// NewTickerHost starts a host firing at fps frames per second
func NewTickerHost(fps int) *TickerHost {
	if fps <= 0 {
		fps = 60
	}
	h := &TickerHost{
		ticker:  time.NewTicker(time.Second / time.Duration(fps)),
		pending: make(map[FrameID]func()),
		done:    make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *TickerHost) run() {
	defer h.ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-h.ticker.C:
			h.fire()
		}
	}
}

func (h *TickerHost) fire() {
	h.mu.Lock()
	if len(h.pending) == 0 {
		h.mu.Unlock()
		return
	}
	ids := make([]FrameID, 0, len(h.pending))
	for id := range h.pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.pending[id])
	}
	clear(h.pending)
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (h *TickerHost) RequestFrame(fn func()) FrameID {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	h.pending[h.next] = fn
	return h.next
}

func (h *TickerHost) CancelFrame(id FrameID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, id)
}

func (h *TickerHost) Now() time.Time {
	return time.Now()
}

// Close stops the ticker. Pending frames never fire.
func (h *TickerHost) Close() {
	h.once.Do(func() {
		close(h.done)
	})
}

type manualFrame struct {
	id FrameID
	fn func()
}

// ManualHost is a host with a virtual clock. Frames fire only when Step is
// called, which makes a driven simulation fully deterministic. It is used by
// tests and for headless matches.
type ManualHost struct {
	mu      sync.Mutex
	now     time.Time
	next    FrameID
	pending []manualFrame
}

func NewManualHost(start time.Time) *ManualHost {
	return &ManualHost{now: start}
}

func (h *ManualHost) RequestFrame(fn func()) FrameID {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	h.pending = append(h.pending, manualFrame{id: h.next, fn: fn})
	return h.next
}

func (h *ManualHost) CancelFrame(id FrameID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.pending = slices.DeleteFunc(h.pending, func(f manualFrame) bool {
		return f.id == id
	})
}

func (h *ManualHost) Now() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

// Pending returns the number of frames waiting to fire
func (h *ManualHost) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

// Step advances the clock by d and fires the frames that were pending
// before the call. Frames requested by those callbacks wait for the next Step.
func (h *ManualHost) Step(d time.Duration) int {
	h.mu.Lock()
	h.now = h.now.Add(d)
	frames := h.pending
	h.pending = nil
	h.mu.Unlock()

	for _, f := range frames {
		f.fn()
	}
	return len(frames)
}

// RunUntilIdle steps the clock until no frames are pending or maxSteps
// have been taken, and returns the number of steps.
func (h *ManualHost) RunUntilIdle(step time.Duration, maxSteps int) int {
	n := 0
	for n < maxSteps && h.Pending() > 0 {
		h.Step(step)
		n++
	}
	return n
}
