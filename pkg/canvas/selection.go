package canvas

import "github.com/dshills/flowcanvas/pkg/workflow"

// SelectionKind says what, if anything, is selected
type SelectionKind int

const (
	SelectNone SelectionKind = iota
	SelectNode
	SelectEdge
)

// Selection holds at most one selected node or edge
type Selection struct {
	kind SelectionKind
	node workflow.NodeID
	edge workflow.EdgeID
}

// NodeSelection returns a selection of node id
func NodeSelection(id workflow.NodeID) Selection {
	return Selection{kind: SelectNode, node: id}
}

// EdgeSelection returns a selection of edge id
func EdgeSelection(id workflow.EdgeID) Selection {
	return Selection{kind: SelectEdge, edge: id}
}

// Kind returns what is selected
func (s Selection) Kind() SelectionKind {
	return s.kind
}

// Node returns the selected node id, if a node is selected
func (s Selection) Node() (workflow.NodeID, bool) {
	return s.node, s.kind == SelectNode
}

// Edge returns the selected edge id, if an edge is selected
func (s Selection) Edge() (workflow.EdgeID, bool) {
	return s.edge, s.kind == SelectEdge
}

// IsNode reports whether node id is the selection
func (s Selection) IsNode(id workflow.NodeID) bool {
	return s.kind == SelectNode && s.node == id
}

// IsEdge reports whether edge id is the selection
func (s Selection) IsEdge(id workflow.EdgeID) bool {
	return s.kind == SelectEdge && s.edge == id
}

// Empty reports whether nothing is selected
func (s Selection) Empty() bool {
	return s.kind == SelectNone
}
