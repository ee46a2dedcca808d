package ui

import (
	"fmt"
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/diegok/aipong/internal/game"
	"github.com/diegok/aipong/internal/session"
	"github.com/diegok/aipong/internal/tournament"
)

const (
	BallChar   = '\u2B24' // ⬤
	PaddleChar = '\u2588' // █
)

var (
	courtStyle      = tcell.StyleDefault.Background(tcell.ColorBlack)
	netStyle        = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	scoreboardStyle = tcell.StyleDefault.Background(tcell.ColorDarkGray).Foreground(tcell.ColorWhite).Bold(true)
	statusStyle     = tcell.StyleDefault.Background(tcell.ColorDarkGray).Foreground(tcell.ColorWhite)
	countdownStyle  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	hintStyle       = tcell.StyleDefault.Foreground(tcell.ColorGray)
	titleStyle      = tcell.StyleDefault.Bold(true).Foreground(tcell.ColorTeal)
	winnerStyle     = tcell.StyleDefault.Bold(true).Foreground(tcell.ColorYellow)
)

// Renderer draws matches as a session listener, plus the bracket and
// message screens between matches.
type Renderer struct {
	session.NopListener

	screen *Screen

	mu        sync.Mutex
	frame     session.Frame
	hasFrame  bool
	score     string
	countdown string
	status    string
	paused    bool
	result    *game.Result
}

func NewRenderer(screen *Screen) *Renderer {
	return &Renderer{screen: screen}
}

// Reset forgets the previous match
func (r *Renderer) Reset(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hasFrame = false
	r.score, r.countdown = "", ""
	r.status = status
	r.paused = false
	r.result = nil
}

func (r *Renderer) OnScore(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.score = text
}

func (r *Renderer) OnCountdown(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.countdown = text
}

func (r *Renderer) OnFrame(f session.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frame, r.hasFrame = f, true
	r.draw()
}

func (r *Renderer) OnMatchEnded(res game.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result = &res
	r.draw()
}

// SetPaused redraws the last frame with or without the pause overlay
func (r *Renderer) SetPaused(paused bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = paused
	r.draw()
}

// Redraw repaints the last frame, for example after a resize
func (r *Renderer) Redraw() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.screen.Sync()
	r.draw()
}

// draw renders the current match state. Caller holds r.mu.
func (r *Renderer) draw() {
	if !r.hasFrame || !r.screen.Available() {
		return
	}
	r.screen.Clear()
	w, h := r.screen.Size()
	f := r.frame
	court := f.World.Court

	r.screen.FillRect(0, 1, w, h-2, courtStyle, ' ')
	centerX := w / 2
	for y := 1; y < h-1; y += 2 {
		r.screen.SetCell(centerX, y, netStyle, '|')
	}

	r.drawScoreboard(w)

	for side := range f.World.Paddles {
		p := f.World.Paddles[side]
		col, top := courtToScreen(court, p.X, p.TopY(court.PaddleHalfHeight), w, h)
		_, bottom := courtToScreen(court, p.X, p.BottomY(court.PaddleHalfHeight), w, h)
		for y := top; y <= bottom; y++ {
			if y >= 1 && y < h-1 {
				r.screen.SetCell(col, y, SideStyle(side), PaddleChar)
			}
		}
	}

	bx, by := courtToScreen(court, f.World.Ball.X, f.World.Ball.Y, w, h)
	if bx >= 0 && bx < w && by >= 1 && by < h-1 {
		r.screen.SetCell(bx, by, tcell.StyleDefault.Foreground(tcell.ColorWhite), BallChar)
	}

	r.screen.FillRect(0, h-1, w, 1, statusStyle, ' ')
	status := fmt.Sprintf(" Round %d | p: pause | q: quit", f.Round)
	if r.status != "" {
		status += " | " + r.status
	}
	r.screen.DrawText(0, h-1, status, statusStyle)

	switch {
	case r.result != nil:
		r.drawResult(w, h)
	case r.paused:
		r.drawBanner(w, h, "PAUSED", "press p to resume")
	case r.countdown != "":
		r.drawBanner(w, h, r.countdown, "GET READY!")
	}

	r.screen.Show()
}

// drawScoreboard draws [ LEFT  3  -  2  RIGHT ] with the names in paddle colours
func (r *Renderer) drawScoreboard(w int) {
	left, right := r.frame.Names[game.SideLeft], r.frame.Names[game.SideRight]
	score := r.score
	if score == "" {
		score = fmt.Sprintf("%d  -  %d", r.frame.Scores[0], r.frame.Scores[1])
	}

	text := fmt.Sprintf("[ %s  %s  %s ]", left, score, right)
	x := (w - len([]rune(text))) / 2
	r.screen.DrawText(x, 0, text, scoreboardStyle)
	r.screen.DrawText(x+2, 0, left, scoreboardStyle.Foreground(SideColors[game.SideLeft]))
	r.screen.DrawText(x+len([]rune(text))-2-len([]rune(right)), 0, right, scoreboardStyle.Foreground(SideColors[game.SideRight]))
}

func (r *Renderer) drawBanner(w, h int, big, small string) {
	boxW, boxH := 24, 5
	boxX, boxY := (w-boxW)/2, (h-boxH)/2
	r.screen.FillRect(boxX, boxY, boxW, boxH, courtStyle, ' ')
	r.screen.DrawBox(boxX, boxY, boxW, boxH, tcell.StyleDefault.Foreground(tcell.ColorWhite))
	r.screen.DrawCentered(boxY+1, small, hintStyle)
	r.screen.DrawCentered(boxY+3, big, countdownStyle)
}

func (r *Renderer) drawResult(w, h int) {
	res := r.result
	title := "MATCH ABANDONED"
	if res.Decided() {
		title = res.Winner + " WINS!"
	}
	boxW, boxH := max(30, len([]rune(title))+6), 7
	boxX, boxY := (w-boxW)/2, (h-boxH)/2
	r.screen.FillRect(boxX, boxY, boxW, boxH, courtStyle, ' ')
	r.screen.DrawBox(boxX, boxY, boxW, boxH, tcell.StyleDefault.Foreground(tcell.ColorWhite))
	r.screen.DrawCentered(boxY+2, title, winnerStyle)
	r.screen.DrawCentered(boxY+4, fmt.Sprintf("Final Score: %d - %d", res.Score1, res.Score2), tcell.StyleDefault.Foreground(tcell.ColorWhite))
}

// courtToScreen maps court units (origin centre, y up) to a cell. The court
// spans the full width between goal lines and the rows between the
// scoreboard and the status bar.
func courtToScreen(c game.Court, x, y float64, w, h int) (int, int) {
	rows := h - 2
	col := (x + c.GoalX) / (2 * c.GoalX) * float64(w-1)
	row := (c.HalfHeight - y) / (2 * c.HalfHeight) * float64(rows-1)
	return int(math.Round(col)), 1 + int(math.Round(row))
}

// RenderBracket shows the tournament bracket with the next match highlighted
func (r *Renderer) RenderBracket(t *tournament.Tournament, next tournament.Pairing, hasNext bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.screen.Available() {
		return
	}
	r.screen.Clear()
	w, h := r.screen.Size()

	r.screen.DrawCentered(1, "=== TOURNAMENT BRACKET ===", titleStyle)

	rounds := t.Rounds()
	colW := w / len(rounds)
	for ri, round := range rounds {
		x := ri*colW + 2
		label := fmt.Sprintf("Round %d", ri+1)
		if ri == len(rounds)-1 {
			label = "Champion"
		}
		r.screen.DrawText(x, 3, label, hintStyle)

		// Each slot sits midway between the two slots that feed it
		spacing := max(1, (h-8)/len(round))
		for si, name := range round {
			y := 5 + si*spacing + spacing/2
			style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
			if name == "" {
				name = "???"
				style = hintStyle
			}
			if hasNext && ri == next.Round && si/2 == next.Index {
				style = style.Foreground(tcell.ColorGreen).Bold(true)
			}
			if ri == len(rounds)-1 && name != "???" {
				style = winnerStyle
			}
			if t.IsAI(name) {
				name += " *"
			}
			r.screen.DrawText(x, y, name, style)
		}
	}

	hint := "Press 'q' to quit"
	if hasNext {
		hint = fmt.Sprintf("Next: %s | ENTER to play | 'q' to quit", next)
	}
	r.screen.DrawCentered(h-2, hint, tcell.StyleDefault.Foreground(tcell.ColorGreen))
	r.screen.Show()
}

// RenderMessage shows a title and some lines in the middle of the screen
func (r *Renderer) RenderMessage(title string, lines ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.screen.Available() {
		return
	}
	r.screen.Clear()
	_, h := r.screen.Size()

	y := h/2 - (len(lines)+2)/2
	r.screen.DrawCentered(y, title, titleStyle)
	for i, line := range lines {
		r.screen.DrawCentered(y+2+i, line, tcell.StyleDefault.Foreground(tcell.ColorWhite))
	}
	r.screen.Show()
}
