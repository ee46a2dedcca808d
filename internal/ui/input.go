package ui

import (
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/diegok/aipong/internal/game"
)

// Keys selects which keys steer a paddle
type Keys int

const (
	KeysWS     Keys = iota // W / S
	KeysArrows             // Up / Down arrows
	KeysAny                // both
)

// DefaultKeyHold is how long a key press keeps the paddle moving. Terminals
// only report presses, so a held key is seen as a stream of repeats.
const DefaultKeyHold = 150 * time.Millisecond

// KeyToIntent converts a key event to a paddle intent for the given keys
func KeyToIntent(key tcell.Key, r rune, keys Keys) game.Intent {
	arrows := keys == KeysArrows || keys == KeysAny
	ws := keys == KeysWS || keys == KeysAny

	switch key {
	case tcell.KeyUp:
		if arrows {
			return game.IntentUp
		}
	case tcell.KeyDown:
		if arrows {
			return game.IntentDown
		}
	case tcell.KeyRune:
		if !ws {
			break
		}
		switch r {
		case 'w', 'W':
			return game.IntentUp
		case 's', 'S':
			return game.IntentDown
		}
	}
	return game.IntentHold
}

// IsQuitKey returns true if the key should quit the application
func IsQuitKey(key tcell.Key, r rune) bool {
	if key == tcell.KeyEscape || key == tcell.KeyCtrlC {
		return true
	}
	if key == tcell.KeyRune && (r == 'q' || r == 'Q') {
		return true
	}
	return false
}

// IsPauseKey returns true if the key toggles pause
func IsPauseKey(key tcell.Key, r rune) bool {
	return key == tcell.KeyRune && (r == 'p' || r == 'P')
}

// IsStartKey returns true if the key should start/confirm
func IsStartKey(key tcell.Key) bool {
	return key == tcell.KeyEnter
}

// Keyboard is the intent source for a human paddle. Key events arrive on
// the event goroutine and intents are read on the tick goroutine.
type Keyboard struct {
	keys Keys
	hold time.Duration
	now  func() time.Time

	mu     sync.Mutex
	intent game.Intent
	until  time.Time
}

func NewKeyboard(keys Keys, hold time.Duration) *Keyboard {
	return &Keyboard{keys: keys, hold: hold, now: time.Now}
}

// HandleKey records a press. It returns false for keys this paddle ignores.
func (k *Keyboard) HandleKey(ev *tcell.EventKey) bool {
	return k.Press(ev.Key(), ev.Rune())
}

func (k *Keyboard) Press(key tcell.Key, r rune) bool {
	intent := KeyToIntent(key, r, k.keys)
	if intent == game.IntentHold {
		return false
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.intent = intent
	k.until = k.now().Add(k.hold)
	return true
}

// Intent returns the last pressed direction until its hold runs out
func (k *Keyboard) Intent(*game.World) game.Intent {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.intent != game.IntentHold && k.now().Before(k.until) {
		return k.intent
	}
	k.intent = game.IntentHold
	return game.IntentHold
}

// Release stops the paddle immediately
func (k *Keyboard) Release() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.intent = game.IntentHold
}
