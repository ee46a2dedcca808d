package ai

import "math/rand"

// ReplayBuffer keeps the most recent transitions. Once full, each Add
// overwrites the oldest entry.
type ReplayBuffer struct {
	items []Transition
	next  int
	full  bool
}

func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &ReplayBuffer{items: make([]Transition, 0, capacity)}
}

func (b *ReplayBuffer) Add(tr Transition) {
	if !b.full && len(b.items) < cap(b.items) {
		b.items = append(b.items, tr)
		if len(b.items) == cap(b.items) {
			b.full = true
		}
		return
	}
	b.items[b.next] = tr
	b.next = (b.next + 1) % len(b.items)
}

func (b *ReplayBuffer) Len() int {
	return len(b.items)
}

func (b *ReplayBuffer) Cap() int {
	return cap(b.items)
}

// Items returns the stored transitions, oldest first
func (b *ReplayBuffer) Items() []Transition {
	out := make([]Transition, 0, len(b.items))
	out = append(out, b.items[b.next:]...)
	out = append(out, b.items[:b.next]...)
	return out
}

// Sample draws n transitions uniformly at random, with replacement
func (b *ReplayBuffer) Sample(n int, rng *rand.Rand) []Transition {
	if len(b.items) == 0 {
		return nil
	}
	out := make([]Transition, n)
	for i := range out {
		out[i] = b.items[rng.Intn(len(b.items))]
	}
	return out
}
