package canvas

import (
	"errors"
	"time"

	"github.com/dshills/flowcanvas/pkg/workflow"
)

// History errors
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

const defaultHistoryCapacity = 100

// graphSnapshot is a point-in-time copy of the graph
type graphSnapshot struct {
	Graph     *workflow.Graph
	Timestamp time.Time
}

// History manages undo/redo with a bounded buffer of graph snapshots.
// The snapshot at the cursor is the current state.
type History struct {
	snapshots []graphSnapshot
	cursor    int
	capacity  int
}

// NewHistory creates a history holding at most capacity snapshots
func NewHistory(capacity int) *History {
	if capacity <= 1 {
		capacity = defaultHistoryCapacity
	}
	return &History{
		snapshots: make([]graphSnapshot, 0, capacity),
		cursor:    -1,
		capacity:  capacity,
	}
}

// Push records g as the newest state and drops any redo history
func (h *History) Push(g *workflow.Graph) {
	snap := graphSnapshot{Graph: g.Clone(), Timestamp: time.Now()}

	if h.cursor < len(h.snapshots)-1 {
		h.snapshots = h.snapshots[:h.cursor+1]
	}

	if len(h.snapshots) >= h.capacity {
		// oldest snapshot falls off the front
		copy(h.snapshots, h.snapshots[1:])
		h.snapshots[len(h.snapshots)-1] = snap
	} else {
		h.snapshots = append(h.snapshots, snap)
	}
	h.cursor = len(h.snapshots) - 1
}

// Undo steps back one state and returns a copy of it
func (h *History) Undo() (*workflow.Graph, error) {
	if !h.CanUndo() {
		return nil, ErrNothingToUndo
	}
	h.cursor--
	return h.snapshots[h.cursor].Graph.Clone(), nil
}

// Redo steps forward one state and returns a copy of it
func (h *History) Redo() (*workflow.Graph, error) {
	if !h.CanRedo() {
		return nil, ErrNothingToRedo
	}
	h.cursor++
	return h.snapshots[h.cursor].Graph.Clone(), nil
}

// CanUndo reports whether there is an earlier state
func (h *History) CanUndo() bool {
	return h.cursor > 0
}

// CanRedo reports whether an undone state can be restored
func (h *History) CanRedo() bool {
	return h.cursor >= 0 && h.cursor < len(h.snapshots)-1
}

// Reset discards all history and records g as the only state
func (h *History) Reset(g *workflow.Graph) {
	h.snapshots = h.snapshots[:0]
	h.cursor = -1
	h.Push(g)
}

// Size returns the number of snapshots held
func (h *History) Size() int {
	return len(h.snapshots)
}
