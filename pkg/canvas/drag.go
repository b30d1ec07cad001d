package canvas

import (
	"github.com/dshills/flowcanvas/pkg/workflow"
)

// DragKind is the interaction state of the drag state machine
type DragKind int

const (
	// DragIdle means no gesture is in progress
	DragIdle DragKind = iota
	// DragNode means a node follows the pointer
	DragNode
	// DragPan means the canvas follows the pointer
	DragPan
)

// String returns a readable name for the state
func (k DragKind) String() string {
	switch k {
	case DragNode:
		return "dragging"
	case DragPan:
		return "panning"
	default:
		return "idle"
	}
}

// DragState is the single state variable of the drag controller. NodeID,
// Offset and Origin are meaningful in DragNode, Last in DragPan.
type DragState struct {
	Kind   DragKind
	NodeID workflow.NodeID
	Offset Point             // canvas pointer minus node position at press time
	Origin workflow.Position // node position at press time
	Last   Point             // last screen pointer while panning
}

// NodeMover is the part of the graph the drag controller writes to
type NodeMover interface {
	MoveNode(id workflow.NodeID, pos workflow.Position)
}

// DragController converts pointer movement into node moves or pan deltas
type DragController struct {
	state DragState
}

// State returns the current state
func (d *DragController) State() DragState {
	return d.state
}

// Idle reports whether no gesture is in progress
func (d *DragController) Idle() bool {
	return d.state.Kind == DragIdle
}

// BeginNode enters DragNode. pointer is the press location in canvas space.
func (d *DragController) BeginNode(id workflow.NodeID, pointer Point, nodePos workflow.Position) {
	d.state = DragState{
		Kind:   DragNode,
		NodeID: id,
		Offset: pointer.Sub(PointOf(nodePos)),
		Origin: nodePos,
	}
}

// BeginPan enters DragPan. screen is the press location in screen space.
func (d *DragController) BeginPan(screen Point) {
	d.state = DragState{Kind: DragPan, Last: screen}
}

// Move applies a pointer move in screen space. In DragNode the node is
// placed at the canvas pointer minus the recorded offset; in DragPan the
// screen delta is added to the pan. Idle ignores moves.
func (d *DragController) Move(screen Point, r Rect, v *Viewport, g NodeMover) {
	switch d.state.Kind {
	case DragNode:
		pos := ScreenToCanvas(screen, r, *v).Sub(d.state.Offset)
		g.MoveNode(d.state.NodeID, pos.Position())
	case DragPan:
		delta := screen.Sub(d.state.Last)
		v.PanBy(delta.X, delta.Y)
		d.state.Last = screen
	}
}

// End returns to DragIdle from any state
func (d *DragController) End() {
	d.state = DragState{}
}
