// Package audio plays short retro cues for match events.
package audio

import (
	"math"
	"sync"
	"time"

	"fortio.org/log"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/diegok/aipong/internal/game"
	"github.com/diegok/aipong/internal/session"
)

const sampleRate = beep.SampleRate(44100)

// Player turns session events into sounds. A muted player, or one whose
// speaker failed to start, stays silent.
type Player struct {
	session.NopListener

	mu     sync.Mutex
	play   func(beep.Streamer)
	closer func()
}

// New opens the speaker unless mute is set
func New(mute bool) *Player {
	if mute {
		return &Player{}
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/30)); err != nil {
		log.Warnf("Audio disabled: %v", err)
		return &Player{}
	}
	return &Player{
		play:   func(s beep.Streamer) { speaker.Play(s) },
		closer: speaker.Close,
	}
}

func newPlayer(play func(beep.Streamer)) *Player {
	return &Player{play: play}
}

func (p *Player) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.play != nil
}

// Close shuts the speaker down. The player is silent afterwards.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closer != nil {
		p.closer()
	}
	p.play, p.closer = nil, nil
}

func (p *Player) emit(s beep.Streamer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.play != nil {
		p.play(s)
	}
}

// OnEvents plays at most one cue per step, the most important first
func (p *Player) OnEvents(ev game.Events) {
	switch {
	case ev.Goal:
		p.emit(scoreJingle())
	case ev.PaddleHit[game.SideLeft] || ev.PaddleHit[game.SideRight]:
		p.emit(squareWave(880, 50*time.Millisecond))
	case ev.EdgeHit:
		p.emit(squareWave(990, 40*time.Millisecond))
	case ev.WallBounce:
		p.emit(squareWave(440, 30*time.Millisecond))
	}
}

// OnCountdown ticks on every countdown digit
func (p *Player) OnCountdown(text string) {
	if text != "" {
		p.emit(tone(520, 60*time.Millisecond))
	}
}

func (p *Player) OnMatchEnded(res game.Result) {
	if res.Decided() {
		p.emit(beep.Seq(
			squareWave(523, 120*time.Millisecond),
			squareWave(659, 120*time.Millisecond),
			squareWave(784, 240*time.Millisecond),
		))
	}
}

// scoreJingle is a descending three note phrase
func scoreJingle() beep.Streamer {
	return beep.Seq(
		squareWave(660, 100*time.Millisecond),
		squareWave(440, 100*time.Millisecond),
		squareWave(330, 150*time.Millisecond),
	)
}

// generator streams n samples of wave(t), t in seconds
func generator(duration time.Duration, wave func(t float64) float64) beep.Streamer {
	remaining := sampleRate.N(duration)
	pos := 0

	return beep.StreamerFunc(func(samples [][2]float64) (n int, ok bool) {
		if remaining <= 0 {
			return 0, false
		}
		for n < len(samples) && remaining > 0 {
			val := wave(float64(pos) / float64(sampleRate))
			samples[n][0] = val
			samples[n][1] = val
			n++
			pos++
			remaining--
		}
		return n, true
	})
}

func tone(freq float64, duration time.Duration) beep.Streamer {
	return generator(duration, func(t float64) float64 {
		return math.Sin(2*math.Pi*freq*t) * 0.3
	})
}

// squareWave sounds more 8-bit than a sine
func squareWave(freq float64, duration time.Duration) beep.Streamer {
	return generator(duration, func(t float64) float64 {
		if math.Mod(freq*t, 1.0) > 0.5 {
			return -0.2
		}
		return 0.2
	})
}
