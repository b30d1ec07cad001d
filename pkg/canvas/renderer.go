package canvas

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dshills/flowcanvas/pkg/workflow"
)

// Node box size in canvas units
const (
	NodeWidth  = 150.0
	NodeHeight = 60.0
)

// edgeHitTolerance is how close, in screen units, a pointer must be to an
// edge curve to hit it
const edgeHitTolerance = 8.0

const bezierSamples = 32

// Scene is everything a frame is drawn from
type Scene struct {
	Nodes     []*workflow.Node
	Edges     []*workflow.Edge
	Viewport  Viewport
	Rect      Rect
	Selection Selection
	Drag      DragState
	// Connecting is the source of an edge being authored, if any
	Connecting workflow.NodeID
}

// NodePaint is one node box in screen space
type NodePaint struct {
	ID         workflow.NodeID
	Type       workflow.NodeType
	Rect       Rect
	Label      string
	Icon       string
	Selected   bool
	Dragging   bool
	Connecting bool
}

// EdgePaint is one edge curve in screen space
type EdgePaint struct {
	ID       workflow.EdgeID
	From     workflow.NodeID
	To       workflow.NodeID
	Curve    Bezier
	Selected bool
}

// Frame is a complete, self-contained drawing of a scene
type Frame struct {
	Rect  Rect
	Zoom  float64
	Nodes []NodePaint
	Edges []EdgePaint
}

// Bezier is a cubic bezier curve
type Bezier struct {
	P0, P1, P2, P3 Point
}

// At evaluates the curve at t in [0, 1]
func (b Bezier) At(t float64) Point {
	u := 1 - t
	a := u * u * u
	c1 := 3 * u * u * t
	c2 := 3 * u * t * t
	d := t * t * t
	return Point{
		X: a*b.P0.X + c1*b.P1.X + c2*b.P2.X + d*b.P3.X,
		Y: a*b.P0.Y + c1*b.P1.Y + c2*b.P2.Y + d*b.P3.Y,
	}
}

// Path returns the curve as an SVG path, e.g. "M 0 0 C 10 0, 20 5, 30 5"
func (b Bezier) Path() string {
	return fmt.Sprintf("M %s %s C %s %s, %s %s, %s %s",
		num(b.P0.X), num(b.P0.Y),
		num(b.P1.X), num(b.P1.Y),
		num(b.P2.X), num(b.P2.Y),
		num(b.P3.X), num(b.P3.Y))
}

// Distance returns the approximate distance from p to the curve
func (b Bezier) Distance(p Point) float64 {
	best := math.Inf(1)
	for i := 0; i <= bezierSamples; i++ {
		q := b.At(float64(i) / bezierSamples)
		if d := math.Hypot(q.X-p.X, q.Y-p.Y); d < best {
			best = d
		}
	}
	return best
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// NodeScreenRect returns the screen rectangle of a node box
func NodeScreenRect(pos workflow.Position, r Rect, v Viewport) Rect {
	tl := CanvasToScreen(PointOf(pos), r, v)
	return Rect{Left: tl.X, Top: tl.Y, Width: NodeWidth * v.Zoom, Height: NodeHeight * v.Zoom}
}

// EdgeCurve returns the screen-space curve from the right-mid anchor of
// from to the left-mid anchor of to. Control points sit half a node width
// outward so curves read left to right.
func EdgeCurve(from, to workflow.Position, r Rect, v Viewport) Bezier {
	src := NodeScreenRect(from, r, v)
	dst := NodeScreenRect(to, r, v)
	p0 := Point{X: src.Left + src.Width, Y: src.Top + src.Height/2}
	p3 := Point{X: dst.Left, Y: dst.Top + dst.Height/2}
	off := src.Width / 2
	return Bezier{
		P0: p0,
		P1: Point{X: p0.X + off, Y: p0.Y},
		P2: Point{X: p3.X - off, Y: p3.Y},
		P3: p3,
	}
}

// Render draws a scene. It is a pure function: equal scenes give equal
// frames and nothing in the scene is modified.
func Render(sc Scene) Frame {
	f := Frame{
		Rect:  sc.Rect,
		Zoom:  sc.Viewport.Zoom,
		Nodes: make([]NodePaint, 0, len(sc.Nodes)),
		Edges: make([]EdgePaint, 0, len(sc.Edges)),
	}

	positions := make(map[workflow.NodeID]workflow.Position, len(sc.Nodes))
	for _, n := range sc.Nodes {
		positions[n.ID] = n.Position
		entry := EntryFor(n.Type)
		f.Nodes = append(f.Nodes, NodePaint{
			ID:         n.ID,
			Type:       n.Type,
			Rect:       NodeScreenRect(n.Position, sc.Rect, sc.Viewport),
			Label:      n.Name,
			Icon:       entry.Icon,
			Selected:   sc.Selection.IsNode(n.ID),
			Dragging:   sc.Drag.Kind == DragNode && sc.Drag.NodeID == n.ID,
			Connecting: sc.Connecting != "" && sc.Connecting == n.ID,
		})
	}

	for _, e := range sc.Edges {
		from, okFrom := positions[e.From]
		to, okTo := positions[e.To]
		if !okFrom || !okTo {
			continue
		}
		f.Edges = append(f.Edges, EdgePaint{
			ID:       e.ID,
			From:     e.From,
			To:       e.To,
			Curve:    EdgeCurve(from, to, sc.Rect, sc.Viewport),
			Selected: sc.Selection.IsEdge(e.ID),
		})
	}
	return f
}

// NodeAt returns the topmost node under screen point p, or nil
func NodeAt(nodes []*workflow.Node, p Point, r Rect, v Viewport) *workflow.Node {
	for i := len(nodes) - 1; i >= 0; i-- {
		if NodeScreenRect(nodes[i].Position, r, v).Contains(p) {
			return nodes[i]
		}
	}
	return nil
}

// EdgeAt returns the edge whose curve passes closest to screen point p
// within the hit tolerance, or "" if none does
func (f Frame) EdgeAt(p Point) workflow.EdgeID {
	var hit workflow.EdgeID
	best := edgeHitTolerance
	for _, e := range f.Edges {
		if d := e.Curve.Distance(p); d <= best {
			best = d
			hit = e.ID
		}
	}
	return hit
}
