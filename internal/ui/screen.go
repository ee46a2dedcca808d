package ui

import (
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
)

// SideColors are the paddle colours, left then right
var SideColors = [2]tcell.Color{tcell.ColorRed, tcell.ColorBlue}

// Screen wraps a tcell screen. Once finalised it reports itself unavailable
// so the loop driver can end the match.
type Screen struct {
	screen tcell.Screen
	closed atomic.Bool
}

func NewScreen(s tcell.Screen) *Screen {
	return &Screen{screen: s}
}

func InitScreen() (*Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := s.Init(); err != nil {
		return nil, err
	}
	s.HideCursor()
	return NewScreen(s), nil
}

// Available reports whether the screen can still be drawn on
func (s *Screen) Available() bool {
	return !s.closed.Load()
}

func (s *Screen) Size() (int, int) {
	return s.screen.Size()
}

func (s *Screen) Clear() {
	s.screen.Clear()
}

func (s *Screen) Show() {
	s.screen.Show()
}

func (s *Screen) Sync() {
	s.screen.Sync()
}

// Fini restores the terminal. Calling it again does nothing.
func (s *Screen) Fini() {
	if s.closed.CompareAndSwap(false, true) {
		s.screen.Fini()
	}
}

func (s *Screen) SetCell(x, y int, style tcell.Style, r rune) {
	s.screen.SetContent(x, y, r, nil, style)
}

// DrawText writes text one rune per cell starting at x
func (s *Screen) DrawText(x, y int, text string, style tcell.Style) {
	for i, r := range []rune(text) {
		s.SetCell(x+i, y, style, r)
	}
}

// DrawCentered draws text centred horizontally on row y
func (s *Screen) DrawCentered(y int, text string, style tcell.Style) {
	w, _ := s.Size()
	s.DrawText((w-len([]rune(text)))/2, y, text, style)
}

// box corners and sides, clockwise from the top left corner
var boxRunes = [6]rune{'┌', '┐', '┘', '└', '─', '│'}

// DrawBox outlines a w x h rectangle with its top left corner at x, y
func (s *Screen) DrawBox(x, y, w, h int, style tcell.Style) {
	if w < 2 || h < 2 {
		return
	}
	right, bottom := x+w-1, y+h-1

	s.hline(x+1, right-1, y, style, boxRunes[4])
	s.hline(x+1, right-1, bottom, style, boxRunes[4])
	s.vline(x, y+1, bottom-1, style, boxRunes[5])
	s.vline(right, y+1, bottom-1, style, boxRunes[5])

	s.SetCell(x, y, style, boxRunes[0])
	s.SetCell(right, y, style, boxRunes[1])
	s.SetCell(right, bottom, style, boxRunes[2])
	s.SetCell(x, bottom, style, boxRunes[3])
}

func (s *Screen) FillRect(x, y, w, h int, style tcell.Style, r rune) {
	for row := y; row < y+h; row++ {
		s.hline(x, x+w-1, row, style, r)
	}
}

// hline fills columns x1..x2 of row y
func (s *Screen) hline(x1, x2, y int, style tcell.Style, r rune) {
	for x := x1; x <= x2; x++ {
		s.SetCell(x, y, style, r)
	}
}

// vline fills rows y1..y2 of column x
func (s *Screen) vline(x, y1, y2 int, style tcell.Style, r rune) {
	for y := y1; y <= y2; y++ {
		s.SetCell(x, y, style, r)
	}
}

func (s *Screen) PollEvent() tcell.Event {
	return s.screen.PollEvent()
}

// Interrupt wakes a blocked PollEvent
func (s *Screen) Interrupt() {
	s.screen.PostEvent(tcell.NewEventInterrupt(nil))
}

func SideStyle(side int) tcell.Style {
	if side < 0 || side >= len(SideColors) {
		return tcell.StyleDefault
	}
	return tcell.StyleDefault.Foreground(SideColors[side])
}
