package workflow

import (
	"log"
)

// Graph is the in-memory node and edge store behind the canvas. Nodes and
// edges keep insertion order, which is also paint order.
//
// Invariants: node ids are unique, edge ids are unique, at most one edge per
// (from, to) pair, no self-loops, and every edge endpoint is a node in the
// graph.
type Graph struct {
	nodes []*Node
	edges []*Edge
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		nodes: make([]*Node, 0),
		edges: make([]*Edge, 0),
	}
}

// AddNode creates a node of type t at pos with the default name and config.
// Agent nodes reference the first of agents, if any.
func (g *Graph) AddNode(t NodeType, pos Position, agents []Agent) *Node {
	n := &Node{
		ID:       NewNodeID(),
		Type:     t,
		Name:     t.DefaultName(),
		Position: pos,
		Config:   DefaultConfig(t, agents),
	}
	g.nodes = append(g.nodes, n)
	return n
}

// insertNode adds a fully built node, used when hydrating a definition
func (g *Graph) insertNode(n *Node) bool {
	if n.ID == "" || g.Node(n.ID) != nil {
		return false
	}
	if n.Config == nil {
		n.Config = DefaultConfig(n.Type, nil)
	}
	g.nodes = append(g.nodes, n)
	return true
}

// MoveNode sets the position of a node. Unknown ids are ignored.
func (g *Graph) MoveNode(id NodeID, pos Position) {
	n := g.Node(id)
	if n == nil {
		log.Printf("workflow: move of unknown node %s ignored", id)
		return
	}
	n.Position = pos
}

// RenameNode sets the label of a node. Unknown ids are ignored.
func (g *Graph) RenameNode(id NodeID, name string) {
	n := g.Node(id)
	if n == nil {
		log.Printf("workflow: rename of unknown node %s ignored", id)
		return
	}
	n.Name = name
}

// UpdateNodeConfig shallow-merges patch into the node's config. Keys the
// node type does not know are kept as extras. Unknown ids are ignored.
func (g *Graph) UpdateNodeConfig(id NodeID, patch ConfigPatch) {
	n := g.Node(id)
	if n == nil {
		log.Printf("workflow: config update of unknown node %s ignored", id)
		return
	}
	n.Config = MergeConfig(n.Config, patch)
}

// DeleteNode removes a node and every edge touching it. It reports whether
// the node existed.
func (g *Graph) DeleteNode(id NodeID) bool {
	found := false
	newNodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		if n.ID == id {
			found = true
			continue
		}
		newNodes = append(newNodes, n)
	}
	if !found {
		return false
	}
	g.nodes = newNodes

	newEdges := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		if e.From != id && e.To != id {
			newEdges = append(newEdges, e)
		}
	}
	g.edges = newEdges
	return true
}

// AddEdge connects from to to. Self-loops, unknown endpoints and a pair that
// is already connected are rejected and reported as false.
func (g *Graph) AddEdge(from, to NodeID) (*Edge, bool) {
	if from == to {
		return nil, false
	}
	if g.Node(from) == nil || g.Node(to) == nil {
		return nil, false
	}
	if g.HasEdge(from, to) {
		return nil, false
	}
	e := &Edge{ID: EdgeIDFor(from, to), From: from, To: to}
	g.edges = append(g.edges, e)
	return e, true
}

// insertEdge adds a hydrated edge, applying the same rules as AddEdge
func (g *Graph) insertEdge(e *Edge) bool {
	if e.From == e.To || g.Node(e.From) == nil || g.Node(e.To) == nil || g.HasEdge(e.From, e.To) {
		return false
	}
	if e.ID == "" || g.Edge(e.ID) != nil {
		e.ID = EdgeIDFor(e.From, e.To)
	}
	g.edges = append(g.edges, e)
	return true
}

// UpdateEdge applies patch to the advisory fields of an edge. Unknown ids
// are ignored.
func (g *Graph) UpdateEdge(id EdgeID, patch EdgePatch) {
	e := g.Edge(id)
	if e == nil {
		log.Printf("workflow: update of unknown edge %s ignored", id)
		return
	}
	e.apply(patch)
}

// DeleteEdge removes an edge and reports whether it existed
func (g *Graph) DeleteEdge(id EdgeID) bool {
	for i, e := range g.edges {
		if e.ID == id {
			g.edges = append(g.edges[:i:i], g.edges[i+1:]...)
			return true
		}
	}
	return false
}

// Node returns the node with id, or nil
func (g *Graph) Node(id NodeID) *Node {
	for _, n := range g.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Edge returns the edge with id, or nil
func (g *Graph) Edge(id EdgeID) *Edge {
	for _, e := range g.edges {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// HasEdge reports whether from is connected to to
func (g *Graph) HasEdge(from, to NodeID) bool {
	for _, e := range g.edges {
		if e.From == from && e.To == to {
			return true
		}
	}
	return false
}

// Nodes returns the nodes in paint order. The slice is a copy; the nodes
// are shared.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns the edges in insertion order
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// NodesOfType returns the nodes of type t in paint order
func (g *Graph) NodesOfType(t NodeType) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of nodes
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Clone returns a deep copy of the graph
func (g *Graph) Clone() *Graph {
	c := NewGraph()
	for _, n := range g.nodes {
		c.nodes = append(c.nodes, n.Clone())
	}
	for _, e := range g.edges {
		ec := *e
		c.edges = append(c.edges, &ec)
	}
	return c
}
