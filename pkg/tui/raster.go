package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/dshills/goterm"

	"github.com/dshills/flowcanvas/pkg/canvas"
	"github.com/dshills/flowcanvas/pkg/workflow"
)

// One terminal cell covers this many screen units, so the canvas keeps
// its pixel-like geometry at terminal resolution
const (
	CellWidth  = 8
	CellHeight = 16
)

const (
	panelWidth    = 34
	minCanvasCols = 20
	maxEdgeSteps  = 4000
)

// Screen defines the methods required from a goterm.Screen
type Screen interface {
	Size() (width, height int)
	Clear()
	Show() error
	SetCell(x, y int, cell goterm.Cell)
	DrawText(x, y int, text string, fg, bg goterm.Color, style goterm.Style)
}

// Layout splits the terminal into the canvas, the inspector panel on the
// right and the status line at the bottom
type Layout struct {
	Width, Height int
	CanvasCols    int
	CanvasRows    int
	PanelX        int
	StatusY       int
}

// NewLayout computes the layout of a width x height terminal. Narrow
// terminals drop the inspector panel.
func NewLayout(width, height int) Layout {
	l := Layout{Width: width, Height: height}
	l.StatusY = height - 1
	l.CanvasRows = max(height-1, 0)
	l.CanvasCols = width
	if width-panelWidth >= minCanvasCols {
		l.CanvasCols = width - panelWidth
	}
	l.PanelX = l.CanvasCols
	return l
}

// HasPanel reports whether the inspector panel is shown
func (l Layout) HasPanel() bool { return l.PanelX < l.Width }

// CanvasRect is the canvas element's bounding box in screen units
func (l Layout) CanvasRect() canvas.Rect {
	return canvas.Rect{Width: float64(l.CanvasCols * CellWidth), Height: float64(l.CanvasRows * CellHeight)}
}

// InCanvas reports whether cell col,row lies on the canvas
func (l Layout) InCanvas(col, row int) bool {
	return col >= 0 && row >= 0 && col < l.CanvasCols && row < l.CanvasRows
}

// CellCenter maps a terminal cell to the screen point at its center
func CellCenter(col, row int) canvas.Point {
	return canvas.Point{
		X: float64(col*CellWidth) + CellWidth/2,
		Y: float64(row*CellHeight) + CellHeight/2,
	}
}

// CellOf maps a screen point to the terminal cell containing it
func CellOf(p canvas.Point) (col, row int) {
	return int(math.Floor(p.X / CellWidth)), int(math.Floor(p.Y / CellHeight))
}

// Theme holds the colors of the builder
type Theme struct {
	Fg, Bg     goterm.Color
	Dim        goterm.Color
	Border     goterm.Color
	Selected   goterm.Color
	Edge       goterm.Color
	Highlight  goterm.Color
	HighlightF goterm.Color
	Info       goterm.Color
	Warning    goterm.Color
	Error      goterm.Color
	NodeColors map[workflow.NodeType]goterm.Color
}

// DefaultTheme returns the dark theme
func DefaultTheme() Theme {
	return Theme{
		Fg:         goterm.ColorRGB(220, 220, 220),
		Bg:         goterm.ColorDefault(),
		Dim:        goterm.ColorRGB(150, 150, 150),
		Border:     goterm.ColorRGB(136, 136, 136),
		Selected:   goterm.ColorRGB(255, 255, 0),
		Edge:       goterm.ColorRGB(120, 140, 160),
		Highlight:  goterm.ColorRGB(100, 200, 255),
		HighlightF: goterm.ColorRGB(0, 0, 0),
		Info:       goterm.ColorRGB(120, 220, 120),
		Warning:    goterm.ColorRGB(255, 200, 80),
		Error:      goterm.ColorRGB(255, 100, 100),
		NodeColors: map[workflow.NodeType]goterm.Color{
			workflow.NodeTypeInput:     goterm.ColorRGB(100, 200, 255),
			workflow.NodeTypeAgent:     goterm.ColorRGB(200, 150, 255),
			workflow.NodeTypeTransform: goterm.ColorRGB(200, 200, 100),
			workflow.NodeTypeAPI:       goterm.ColorRGB(255, 160, 100),
			workflow.NodeTypeCondition: goterm.ColorRGB(255, 220, 120),
			workflow.NodeTypeOutput:    goterm.ColorRGB(120, 220, 120),
		},
	}
}

func (th Theme) nodeColor(t workflow.NodeType) goterm.Color {
	if c, ok := th.NodeColors[t]; ok {
		return c
	}
	return th.Fg
}

func (th Theme) levelColor(l canvas.NotificationLevel) goterm.Color {
	switch l {
	case canvas.LevelError:
		return th.Error
	case canvas.LevelWarning:
		return th.Warning
	default:
		return th.Info
	}
}

// painter draws into one region of the screen, clipping everything else
type painter struct {
	screen Screen
	x0, y0 int
	x1, y1 int // exclusive
}

func (p painter) set(x, y int, ch rune, fg, bg goterm.Color, style goterm.Style) {
	if x < p.x0 || y < p.y0 || x >= p.x1 || y >= p.y1 {
		return
	}
	p.screen.SetCell(x, y, goterm.NewCell(ch, fg, bg, style))
}

// text draws s from x,y, stopping at limit (exclusive) and the region edge.
// It returns the column after the last rune drawn.
func (p painter) text(x, y, limit int, s string, fg, bg goterm.Color, style goterm.Style) int {
	for _, ch := range s {
		if x >= limit {
			break
		}
		p.set(x, y, ch, fg, bg, style)
		x++
	}
	return x
}

func (p painter) fill(x0, y0, x1, y1 int, bg goterm.Color) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			p.set(x, y, ' ', goterm.ColorDefault(), bg, goterm.StyleNone)
		}
	}
}

type boxRunes struct {
	tl, tr, bl, br, h, v rune
}

var (
	lightBox = boxRunes{'┌', '┐', '└', '┘', '─', '│'}
	heavyBox = boxRunes{'┏', '┓', '┗', '┛', '━', '┃'}
)

func (p painter) box(x0, y0, x1, y1 int, b boxRunes, fg, bg goterm.Color) {
	for x := x0 + 1; x < x1; x++ {
		p.set(x, y0, b.h, fg, bg, goterm.StyleNone)
		p.set(x, y1, b.h, fg, bg, goterm.StyleNone)
	}
	for y := y0 + 1; y < y1; y++ {
		p.set(x0, y, b.v, fg, bg, goterm.StyleNone)
		p.set(x1, y, b.v, fg, bg, goterm.StyleNone)
	}
	p.set(x0, y0, b.tl, fg, bg, goterm.StyleNone)
	p.set(x1, y0, b.tr, fg, bg, goterm.StyleNone)
	p.set(x0, y1, b.bl, fg, bg, goterm.StyleNone)
	p.set(x1, y1, b.br, fg, bg, goterm.StyleNone)
}

// cellSpan returns the inclusive cell range covered by screen rect r
func cellSpan(r canvas.Rect) (x0, y0, x1, y1 int) {
	x0 = int(math.Floor(r.Left / CellWidth))
	y0 = int(math.Floor(r.Top / CellHeight))
	x1 = int(math.Ceil((r.Left+r.Width)/CellWidth)) - 1
	y1 = int(math.Ceil((r.Top+r.Height)/CellHeight)) - 1
	return x0, y0, max(x1, x0), max(y1, y0)
}

// DrawFrame rasterizes a rendered frame onto the canvas region. Edges are
// drawn first so node boxes cover them.
func DrawFrame(screen Screen, f canvas.Frame, l Layout, th Theme) {
	p := painter{screen: screen, x1: l.CanvasCols, y1: l.CanvasRows}

	for _, e := range f.Edges {
		drawEdge(p, e, th)
	}
	for _, n := range f.Nodes {
		drawNode(p, n, th)
	}
}

func drawEdge(p painter, e canvas.EdgePaint, th Theme) {
	c := e.Curve
	length := dist(c.P0, c.P1) + dist(c.P1, c.P2) + dist(c.P2, c.P3)
	steps := min(max(int(length/2), 8), maxEdgeSteps)

	fg, ch := th.Edge, '·'
	if e.Selected {
		fg, ch = th.Selected, '•'
	}

	for i := 0; i <= steps; i++ {
		col, row := CellOf(c.At(float64(i) / float64(steps)))
		p.set(col, row, ch, fg, th.Bg, goterm.StyleNone)
	}

	// arrowhead in the cell just left of the target anchor
	col, row := CellOf(c.P3)
	p.set(col-1, row, '▸', fg, th.Bg, goterm.StyleBold)
}

func dist(a, b canvas.Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func drawNode(p painter, n canvas.NodePaint, th Theme) {
	x0, y0, x1, y1 := cellSpan(n.Rect)
	fg := th.nodeColor(n.Type)
	runes := lightBox
	style := goterm.StyleNone
	switch {
	case n.Connecting:
		fg, runes, style = th.Highlight, heavyBox, goterm.StyleBold
	case n.Selected:
		fg, runes, style = th.Selected, heavyBox, goterm.StyleBold
	}

	p.fill(x0, y0, x1+1, y1+1, th.Bg)
	if x1-x0 < 2 || y1-y0 < 1 {
		p.text(x0, y0, x1+1, n.Icon, fg, th.Bg, style)
		return
	}
	p.box(x0, y0, x1, y1, runes, fg, th.Bg)

	labelStyle := style
	if n.Dragging {
		labelStyle = goterm.StyleReverse
	}
	if y0+1 < y1 {
		x := p.text(x0+1, y0+1, x1, n.Icon+" ", fg, th.Bg, goterm.StyleBold)
		p.text(x, y0+1, x1, n.Label, th.Fg, th.Bg, labelStyle)
	}
	if y0+2 < y1 {
		p.text(x0+1, y0+2, x1, string(n.Type), th.Dim, th.Bg, goterm.StyleDim)
	}
}

// PaletteBox returns the cell rectangle of the palette popup. Center mode
// centers it on the canvas; context mode anchors it at col,row.
func PaletteBox(pal *canvas.Palette, l Layout, anchorCol, anchorRow int) (x0, y0, x1, y1 int) {
	w := 30
	h := len(pal.Visible()) + 3
	if h < 4 {
		h = 4
	}
	if pal.Mode() == canvas.PaletteContextMenu {
		x0, y0 = anchorCol, anchorRow
	} else {
		x0 = (l.CanvasCols - w) / 2
		y0 = (l.CanvasRows - h) / 2
	}
	// keep the popup on the canvas
	x0 = max(min(x0, l.CanvasCols-w), 0)
	y0 = max(min(y0, l.CanvasRows-h), 0)
	return x0, y0, x0 + w - 1, y0 + h - 1
}

// DrawPalette draws the node palette popup
func DrawPalette(screen Screen, pal *canvas.Palette, l Layout, anchorCol, anchorRow int, th Theme) {
	if !pal.IsVisible() {
		return
	}
	p := painter{screen: screen, x1: l.CanvasCols, y1: l.CanvasRows}
	bg := goterm.ColorRGB(30, 30, 30)
	x0, y0, x1, y1 := PaletteBox(pal, l, anchorCol, anchorRow)

	p.fill(x0, y0, x1+1, y1+1, bg)
	p.box(x0, y0, x1, y1, lightBox, th.Border, bg)
	p.text(x0+2, y0, x1, " Add node ", th.Fg, bg, goterm.StyleBold)

	filter := "/" + pal.FilterText()
	p.text(x0+1, y0+1, x1, filter, th.Dim, bg, goterm.StyleNone)

	entries := pal.Visible()
	if len(entries) == 0 {
		p.text(x0+1, y0+2, x1, "no matches", th.Dim, bg, goterm.StyleDim)
		return
	}
	for i, e := range entries {
		y := y0 + 2 + i
		fg, rowBg := th.Fg, bg
		if i == pal.SelectedIndex() {
			fg, rowBg = th.HighlightF, th.Highlight
			p.fill(x0+1, y, x1, y+1, rowBg)
		}
		x := p.text(x0+1, y, x1, e.Icon+" ", th.nodeColor(e.Type), rowBg, goterm.StyleBold)
		p.text(x, y, x1, e.Label, fg, rowBg, goterm.StyleNone)
	}
}

// PanelState is what the inspector panel shows
type PanelState struct {
	Title    string
	Fields   []canvas.Field
	Focus    int // -1 when the panel is not focused
	Result   *canvas.TestResult
	Agents   int
	Nodes    int
	Edges    int
	Workflow workflow.Meta
	Dirty    bool
}

// DrawPanel draws the inspector panel on the right
func DrawPanel(screen Screen, st PanelState, l Layout, th Theme) {
	if !l.HasPanel() {
		return
	}
	p := painter{screen: screen, x0: l.PanelX, x1: l.Width, y1: l.StatusY}
	x0, x1 := l.PanelX, l.Width-1
	p.fill(x0, 0, l.Width, l.StatusY, th.Bg)
	p.box(x0, 0, x1, l.StatusY-1, lightBox, th.Border, th.Bg)

	name := st.Workflow.Name
	if name == "" {
		name = "untitled"
	}
	if st.Dirty {
		name += " *"
	}
	p.text(x0+2, 0, x1, " "+name+" ", th.Fg, th.Bg, goterm.StyleBold)

	y := 1
	line := func(s string, fg goterm.Color, style goterm.Style) {
		if y >= l.StatusY-1 {
			return
		}
		p.text(x0+1, y, x1, s, fg, th.Bg, style)
		y++
	}

	line(fmt.Sprintf("%d nodes  %d edges  %d agents", st.Nodes, st.Edges, st.Agents), th.Dim, goterm.StyleDim)
	if !st.Workflow.ID.IsZero() {
		line("id "+st.Workflow.ID.String(), th.Dim, goterm.StyleDim)
	}
	y++

	if st.Title == "" {
		line("Nothing selected", th.Dim, goterm.StyleDim)
	} else {
		line(st.Title, th.Fg, goterm.StyleBold)
		for i, f := range st.Fields {
			label := f.Label
			if f.Required {
				label += "*"
			}
			value := f.Value
			if f.Kind == canvas.FieldSelect && value == "" {
				value = "(none)"
			}
			value = strings.ReplaceAll(value, "\n", "⏎")
			if i == st.Focus {
				p.fill(x0+1, y, x1, y+1, th.Highlight)
				p.text(x0+1, y, x1, label+": "+value, th.HighlightF, th.Highlight, goterm.StyleNone)
				y++
				continue
			}
			x := p.text(x0+1, y, x1, label+": ", th.Dim, th.Bg, goterm.StyleNone)
			p.text(x, y, x1, value, th.Fg, th.Bg, goterm.StyleNone)
			y++
		}
	}

	if st.Result != nil {
		y++
		line("Test result", th.Fg, goterm.StyleBold)
		line("agent "+st.Result.AgentID.String(), th.Dim, goterm.StyleDim)
		for _, ln := range wrap(st.Result.Response, x1-x0-1) {
			line(ln, th.Fg, goterm.StyleNone)
		}
	}
}

// wrap breaks s into lines of at most width runes
func wrap(s string, width int) []string {
	if width <= 0 {
		return nil
	}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		runes := []rune(para)
		if len(runes) == 0 {
			lines = append(lines, "")
			continue
		}
		for len(runes) > width {
			lines = append(lines, string(runes[:width]))
			runes = runes[width:]
		}
		lines = append(lines, string(runes))
	}
	return lines
}

// DrawStatus draws the status line: left in fg, right aligned and dim
func DrawStatus(screen Screen, left, right string, fg goterm.Color, l Layout, th Theme) {
	if l.StatusY < 0 {
		return
	}
	p := painter{screen: screen, y0: l.StatusY, x1: l.Width, y1: l.StatusY + 1}
	bg := goterm.ColorRGB(40, 40, 40)
	p.fill(0, l.StatusY, l.Width, l.StatusY+1, bg)

	rightX := l.Width - len([]rune(right)) - 1
	p.text(1, l.StatusY, max(rightX-1, 1), left, fg, bg, goterm.StyleNone)
	p.text(max(rightX, 1), l.StatusY, l.Width, right, th.Dim, bg, goterm.StyleNone)
}
