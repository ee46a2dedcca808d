// Package tournament runs an eight-slot single elimination bracket. Empty
// slots are filled with AI players, and matches between two AI players are
// settled by a simulated match.
package tournament

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"

	"fortio.org/log"
)

const Slots = 8

var (
	ErrMatchNotReady = errors.New("match not ready")
	ErrMatchPlayed   = errors.New("match already played")
)

// Pairing identifies one bracket match
type Pairing struct {
	Round   int
	Index   int
	Players [2]string
}

func (p Pairing) String() string {
	return fmt.Sprintf("%s vs %s", p.Players[0], p.Players[1])
}

// Tournament holds the bracket. rounds[0] has the eight entrants, each
// following round half as many slots, and the last round the champion.
// Undecided slots are empty.
type Tournament struct {
	rounds [][]string
	ai     map[string]bool
}

// New seeds a bracket with the given human players, padded with "AI n"
// entrants and shuffled.
func New(humans []string, rng *rand.Rand) (*Tournament, error) {
	if len(humans) < 1 || len(humans) > Slots {
		return nil, fmt.Errorf("tournament needs 1 to %d players, got %d", Slots, len(humans))
	}

	t := &Tournament{ai: make(map[string]bool)}
	seen := make(map[string]bool)
	players := make([]string, 0, Slots)
	for _, name := range humans {
		if name == "" {
			return nil, errors.New("player name cannot be empty")
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate player name %q", name)
		}
		seen[name] = true
		players = append(players, name)
	}
	for i := 1; len(players) < Slots; i++ {
		name := fmt.Sprintf("AI %d", i)
		if seen[name] {
			continue
		}
		seen[name] = true
		t.ai[name] = true
		players = append(players, name)
	}
	rng.Shuffle(len(players), func(i, j int) {
		players[i], players[j] = players[j], players[i]
	})

	for n := Slots; n >= 1; n /= 2 {
		t.rounds = append(t.rounds, make([]string, n))
	}
	copy(t.rounds[0], players)
	return t, nil
}

// IsAI reports whether name is an entrant added to fill the bracket
func (t *Tournament) IsAI(name string) bool {
	return t.ai[name]
}

// Rounds returns a copy of the bracket for display
func (t *Tournament) Rounds() [][]string {
	out := make([][]string, len(t.rounds))
	for i, r := range t.rounds {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Next returns the first match whose players are known and which has not
// been played, earliest round first.
func (t *Tournament) Next() (Pairing, bool) {
	for r := 0; r < len(t.rounds)-1; r++ {
		for i := 0; i < len(t.rounds[r])/2; i++ {
			p, err := t.pairing(r, i)
			if err == nil {
				return p, true
			}
		}
	}
	return Pairing{}, false
}

func (t *Tournament) pairing(round, index int) (Pairing, error) {
	if round < 0 || round >= len(t.rounds)-1 || index < 0 || index >= len(t.rounds[round])/2 {
		return Pairing{}, fmt.Errorf("no match %d in round %d: %w", index, round, ErrMatchNotReady)
	}
	a, b := t.rounds[round][index*2], t.rounds[round][index*2+1]
	if a == "" || b == "" {
		return Pairing{}, fmt.Errorf("match %d in round %d: %w", index, round, ErrMatchNotReady)
	}
	if t.rounds[round+1][index] != "" {
		return Pairing{}, fmt.Errorf("match %d in round %d: %w", index, round, ErrMatchPlayed)
	}
	return Pairing{Round: round, Index: index, Players: [2]string{a, b}}, nil
}

// Report records the winner of p and advances them to the next round
func (t *Tournament) Report(p Pairing, winner string) error {
	current, err := t.pairing(p.Round, p.Index)
	if err != nil {
		return err
	}
	if current.Players != p.Players {
		return fmt.Errorf("pairing %s does not match bracket %s: %w", p, current, ErrMatchNotReady)
	}
	if winner != p.Players[0] && winner != p.Players[1] {
		return fmt.Errorf("winner %q did not play in %s", winner, p)
	}

	t.rounds[p.Round+1][p.Index] = winner
	log.S(log.Info, "Tournament match decided", log.Str("match", p.String()), log.Str("winner", winner),
		log.Str("round", strconv.Itoa(p.Round+1)))
	return nil
}

// Champion returns the tournament winner once the final has been played
func (t *Tournament) Champion() (string, bool) {
	c := t.rounds[len(t.rounds)-1][0]
	return c, c != ""
}
