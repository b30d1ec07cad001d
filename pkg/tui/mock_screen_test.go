package tui

import (
	"strings"

	"github.com/dshills/goterm"
)

// MockScreen implements Screen for testing and remembers every cell
type MockScreen struct {
	width  int
	height int
	cells  map[[2]int]goterm.Cell
	shown  int
}

func NewMockScreen(width, height int) *MockScreen {
	return &MockScreen{width: width, height: height, cells: make(map[[2]int]goterm.Cell)}
}

func (m *MockScreen) Size() (int, int) { return m.width, m.height }

func (m *MockScreen) Clear() { m.cells = make(map[[2]int]goterm.Cell) }

func (m *MockScreen) Show() error {
	m.shown++
	return nil
}

func (m *MockScreen) SetCell(x, y int, cell goterm.Cell) {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return
	}
	m.cells[[2]int{x, y}] = cell
}

func (m *MockScreen) DrawText(x, y int, text string, fg, bg goterm.Color, style goterm.Style) {
	for i, ch := range []rune(text) {
		m.SetCell(x+i, y, goterm.NewCell(ch, fg, bg, style))
	}
}

// Rune returns the character at x,y, or a space
func (m *MockScreen) Rune(x, y int) rune {
	if c, ok := m.cells[[2]int{x, y}]; ok {
		return c.Ch
	}
	return ' '
}

// Row returns line y as text with trailing spaces trimmed
func (m *MockScreen) Row(y int) string {
	var b strings.Builder
	for x := 0; x < m.width; x++ {
		b.WriteRune(m.Rune(x, y))
	}
	return strings.TrimRight(b.String(), " ")
}

// Text returns the whole screen, one line per row
func (m *MockScreen) Text() string {
	rows := make([]string, m.height)
	for y := range rows {
		rows[y] = m.Row(y)
	}
	return strings.Join(rows, "\n")
}
