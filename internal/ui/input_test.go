package ui

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/diegok/aipong/internal/game"
)

func TestKeyToIntent(t *testing.T) {
	tests := []struct {
		key  tcell.Key
		rune rune
		keys Keys
		want game.Intent
	}{
		{tcell.KeyUp, 0, KeysArrows, game.IntentUp},
		{tcell.KeyDown, 0, KeysArrows, game.IntentDown},
		{tcell.KeyUp, 0, KeysWS, game.IntentHold},
		{tcell.KeyRune, 'w', KeysWS, game.IntentUp},
		{tcell.KeyRune, 'W', KeysWS, game.IntentUp},
		{tcell.KeyRune, 's', KeysWS, game.IntentDown},
		{tcell.KeyRune, 'S', KeysWS, game.IntentDown},
		{tcell.KeyRune, 'w', KeysArrows, game.IntentHold},
		{tcell.KeyRune, 'x', KeysAny, game.IntentHold},
		{tcell.KeyRune, 's', KeysAny, game.IntentDown},
		{tcell.KeyDown, 0, KeysAny, game.IntentDown},
	}

	for _, tt := range tests {
		got := KeyToIntent(tt.key, tt.rune, tt.keys)
		if got != tt.want {
			t.Errorf("KeyToIntent(%v, %c, %d) = %v, want %v", tt.key, tt.rune, tt.keys, got, tt.want)
		}
	}
}

func TestIsQuitKey(t *testing.T) {
	if !IsQuitKey(tcell.KeyRune, 'q') {
		t.Error("'q' should be quit key")
	}
	if !IsQuitKey(tcell.KeyRune, 'Q') {
		t.Error("'Q' should be quit key")
	}
	if !IsQuitKey(tcell.KeyEscape, 0) {
		t.Error("Escape should be quit key")
	}
	if !IsQuitKey(tcell.KeyCtrlC, 0) {
		t.Error("Ctrl+C should be quit key")
	}
	if IsQuitKey(tcell.KeyRune, 'x') {
		t.Error("'x' should not be quit key")
	}
}

func TestIsPauseKey(t *testing.T) {
	if !IsPauseKey(tcell.KeyRune, 'p') || !IsPauseKey(tcell.KeyRune, 'P') {
		t.Error("'p' should be pause key")
	}
	if IsPauseKey(tcell.KeyRune, 'q') {
		t.Error("'q' should not be pause key")
	}
}

func TestIsStartKey(t *testing.T) {
	if !IsStartKey(tcell.KeyEnter) {
		t.Error("Enter should be start key")
	}
	if IsStartKey(tcell.KeyRune) {
		t.Error("other keys should not be start key")
	}
}

func TestKeyboard_HoldExpires(t *testing.T) {
	now := time.Unix(100, 0)
	k := NewKeyboard(KeysWS, 150*time.Millisecond)
	k.now = func() time.Time { return now }

	if got := k.Intent(nil); got != game.IntentHold {
		t.Errorf("expected hold before any key, got %s", got)
	}

	if !k.Press(tcell.KeyRune, 'w') {
		t.Fatal("expected 'w' to be handled")
	}
	if got := k.Intent(nil); got != game.IntentUp {
		t.Errorf("expected up after press, got %s", got)
	}

	now = now.Add(100 * time.Millisecond)
	if got := k.Intent(nil); got != game.IntentUp {
		t.Errorf("expected up within hold, got %s", got)
	}

	// Key repeat extends the hold
	k.Press(tcell.KeyRune, 'w')
	now = now.Add(100 * time.Millisecond)
	if got := k.Intent(nil); got != game.IntentUp {
		t.Errorf("expected up after repeat, got %s", got)
	}

	now = now.Add(200 * time.Millisecond)
	if got := k.Intent(nil); got != game.IntentHold {
		t.Errorf("expected hold after expiry, got %s", got)
	}
}

func TestKeyboard_IgnoresOtherKeys(t *testing.T) {
	k := NewKeyboard(KeysArrows, time.Second)

	if k.Press(tcell.KeyRune, 'w') {
		t.Error("expected arrows keyboard to ignore 'w'")
	}
	if got := k.Intent(nil); got != game.IntentHold {
		t.Errorf("expected hold, got %s", got)
	}

	k.HandleKey(tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone))
	if got := k.Intent(nil); got != game.IntentDown {
		t.Errorf("expected down, got %s", got)
	}

	k.Release()
	if got := k.Intent(nil); got != game.IntentHold {
		t.Errorf("expected hold after release, got %s", got)
	}
}
