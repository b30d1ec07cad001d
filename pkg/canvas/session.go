package canvas

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	flowerrors "github.com/dshills/flowcanvas/pkg/errors"
	"github.com/dshills/flowcanvas/pkg/workflow"
)

// Session errors
var (
	ErrNameRequired  = errors.New("please enter a workflow name")
	ErrNoRepository  = errors.New("no workflow repository configured")
	ErrNoInteractor  = errors.New("no agent backend configured")
	ErrSessionClosed = errors.New("session closed")
)

// cascadeStep is the offset between consecutive click-to-add placements
const (
	cascadeStep  = 24.0
	cascadeCycle = 8
)

const maxNotifications = 50

// PointerButton identifies the pressed button
type PointerButton int

const (
	ButtonPrimary PointerButton = iota
	ButtonMiddle
	ButtonSecondary
)

// Modifiers is a set of held modifier keys
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModAlt
	ModCtrl
)

// panModifiers turn a primary press on empty canvas into a pan
const panModifiers = ModShift | ModAlt

// PointerEvent is a pointer press, move or release in screen space
type PointerEvent struct {
	Pos    Point
	Button PointerButton
	Mods   Modifiers
}

// NotificationLevel ranks a notification
type NotificationLevel int

const (
	LevelInfo NotificationLevel = iota
	LevelWarning
	LevelError
)

// String returns the level name
func (l NotificationLevel) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is one message in the dismissible queue
type Notification struct {
	Level   NotificationLevel
	Message string
	Time    time.Time
}

// Job is network work started by the session. It may run on any goroutine
// and touches no session state; the returned func applies its outcome and
// must be called on the goroutine that owns the session.
type Job func(ctx context.Context) func()

// SessionConfig wires a session to its collaborators. Nil collaborators
// disable the operations that need them.
type SessionConfig struct {
	Agents     AgentSource
	Interactor Interactor
	Repository workflow.Repository
	MinZoom    float64
	MaxZoom    float64
	Rect       Rect

	// OnTestRun, if set, observes every test run that completes while the
	// session is live, failed or not
	OnTestRun func(req TestRequest, res TestResult, err error)
}

// Session is one open builder. It owns the graph and all interaction state
// and is not safe for concurrent use: every method must be called from the
// UI loop, with network work handed out as Jobs.
type Session struct {
	cfg SessionConfig

	graph    *workflow.Graph
	meta     workflow.Meta
	output   map[string]workflow.OutputRef
	history  *History
	viewport Viewport
	rect     Rect
	drag     DragController
	sel      Selection
	palette  *Palette
	agents   []workflow.Agent

	contextMenu Point // canvas space
	connecting  workflow.NodeID

	lastResult    *TestResult
	notifications []Notification

	rev      int
	savedRev int
	closed   bool
}

// NewSession opens a builder on an empty graph
func NewSession(cfg SessionConfig) *Session {
	s := &Session{
		cfg:      cfg,
		graph:    workflow.NewGraph(),
		history:  NewHistory(0),
		viewport: NewViewport(cfg.MinZoom, cfg.MaxZoom),
		rect:     cfg.Rect,
		palette:  NewPalette(),
	}
	s.history.Reset(s.graph)
	return s
}

// Graph returns the graph being edited
func (s *Session) Graph() *workflow.Graph { return s.graph }

// Viewport returns the current pan and zoom
func (s *Session) Viewport() Viewport { return s.viewport }

// Rect returns the canvas bounding box in screen space
func (s *Session) Rect() Rect { return s.rect }

// SetRect updates the canvas bounding box, e.g. on terminal resize
func (s *Session) SetRect(r Rect) { s.rect = r }

// DragState returns the interaction state
func (s *Session) DragState() DragState { return s.drag.State() }

// Selection returns the current selection
func (s *Session) Selection() Selection { return s.sel }

// Palette returns the node type palette
func (s *Session) Palette() *Palette { return s.palette }

// Agents returns the agents known to the session
func (s *Session) Agents() []workflow.Agent { return s.agents }

// SetAgents replaces the known agents
func (s *Session) SetAgents(agents []workflow.Agent) { s.agents = agents }

// Connecting returns the source of the edge being authored, if any
func (s *Session) Connecting() (workflow.NodeID, bool) {
	return s.connecting, s.connecting != ""
}

// ContextMenuPoint returns the last right-click location in canvas space
func (s *Session) ContextMenuPoint() Point { return s.contextMenu }

// Meta returns the workflow's descriptive fields
func (s *Session) Meta() workflow.Meta { return s.meta }

// SetName renames the workflow
func (s *Session) SetName(name string) {
	s.meta.Name = strings.TrimSpace(name)
	s.rev++
}

// SetDescription replaces the workflow description
func (s *Session) SetDescription(desc string) {
	s.meta.Description = desc
	s.rev++
}

// Dirty reports whether there are edits since the last load or save
func (s *Session) Dirty() bool { return s.rev != s.savedRev }

// LastResult returns the most recent successful test run
func (s *Session) LastResult() (TestResult, bool) {
	if s.lastResult == nil {
		return TestResult{}, false
	}
	return *s.lastResult, true
}

// Inspector returns the property editor bound to the graph
func (s *Session) Inspector() Inspector {
	return Inspector{Graph: s.graph, Agents: s.agents}
}

// Fields returns the property form of the selection
func (s *Session) Fields() []Field {
	return s.Inspector().Fields(s.sel)
}

// SetField validates and writes one property of the selection
func (s *Session) SetField(key, value string) error {
	if err := s.Inspector().Set(s.sel, key, value); err != nil {
		return err
	}
	s.changed()
	return nil
}

// Scene snapshots everything the renderer needs
func (s *Session) Scene() Scene {
	return Scene{
		Nodes:      s.graph.Nodes(),
		Edges:      s.graph.Edges(),
		Viewport:   s.viewport,
		Rect:       s.rect,
		Selection:  s.sel,
		Drag:       s.drag.State(),
		Connecting: s.connecting,
	}
}

// Frame renders the current scene
func (s *Session) Frame() Frame {
	return Render(s.Scene())
}

// changed records a committed graph edit
func (s *Session) changed() {
	s.rev++
	s.history.Push(s.graph)
}

// Select sets the selection. Selecting a node or edge that no longer
// exists clears the selection.
func (s *Session) Select(sel Selection) {
	switch sel.Kind() {
	case SelectNode:
		if id, _ := sel.Node(); s.graph.Node(id) == nil {
			sel = Selection{}
		}
	case SelectEdge:
		if id, _ := sel.Edge(); s.graph.Edge(id) == nil {
			sel = Selection{}
		}
	}
	s.sel = sel
}

// PointerDown starts a gesture. While connecting, a press on a node
// completes the edge and a press elsewhere cancels it.
func (s *Session) PointerDown(ev PointerEvent) {
	s.endDrag()
	s.palette.Hide()

	hit := NodeAt(s.graph.Nodes(), ev.Pos, s.rect, s.viewport)

	if s.connecting != "" {
		if hit != nil {
			s.CompleteConnect(hit.ID)
		} else {
			s.CancelConnect()
		}
		return
	}

	switch ev.Button {
	case ButtonSecondary:
		if hit != nil {
			s.Select(NodeSelection(hit.ID))
		}
		s.ContextMenu(ev.Pos)
	case ButtonMiddle:
		if hit == nil {
			s.drag.BeginPan(ev.Pos)
		}
	default:
		switch {
		case hit != nil:
			s.Select(NodeSelection(hit.ID))
			s.drag.BeginNode(hit.ID, ScreenToCanvas(ev.Pos, s.rect, s.viewport), hit.Position)
		case ev.Mods&panModifiers != 0:
			s.drag.BeginPan(ev.Pos)
		default:
			if id := s.Frame().EdgeAt(ev.Pos); id != "" {
				s.Select(EdgeSelection(id))
			} else {
				s.Select(Selection{})
			}
		}
	}
}

// PointerMove continues the gesture in progress
func (s *Session) PointerMove(ev PointerEvent) {
	s.drag.Move(ev.Pos, s.rect, &s.viewport, s.graph)
}

// PointerUp ends any gesture
func (s *Session) PointerUp(PointerEvent) {
	s.endDrag()
}

// PointerLeave ends any gesture when the pointer leaves the canvas
func (s *Session) PointerLeave() {
	s.endDrag()
}

// endDrag ends any gesture. A node drag that moved its node is committed
// as one edit, whatever interrupted it.
func (s *Session) endDrag() {
	st := s.drag.State()
	s.drag.End()
	if st.Kind != DragNode {
		return
	}
	if n := s.graph.Node(st.NodeID); n != nil && n.Position != st.Origin {
		s.changed()
	}
}

// ContextMenu records the right-click location and opens the palette in
// context-menu mode
func (s *Session) ContextMenu(p Point) {
	s.endDrag()
	s.contextMenu = ScreenToCanvas(p, s.rect, s.viewport)
	s.palette.Show(PaletteContextMenu)
}

// OpenPalette opens the palette in click-to-add mode
func (s *Session) OpenPalette() {
	s.palette.Show(PaletteCenter)
}

// Wheel zooms one step per notch, keeping the canvas point under p fixed.
// Positive delta zooms in.
func (s *Session) Wheel(p Point, delta int) {
	anchor := ScreenToCanvas(p, s.rect, s.viewport)
	switch {
	case delta > 0:
		s.viewport.ZoomIn()
	case delta < 0:
		s.viewport.ZoomOut()
	default:
		return
	}
	moved := CanvasToScreen(anchor, s.rect, s.viewport)
	s.viewport.PanBy(p.X-moved.X, p.Y-moved.Y)
}

// ZoomIn zooms one step
func (s *Session) ZoomIn() { s.viewport.ZoomIn() }

// ZoomOut zooms out one step
func (s *Session) ZoomOut() { s.viewport.ZoomOut() }

// PanBy shifts the view by a screen-space offset
func (s *Session) PanBy(dx, dy float64) { s.viewport.PanBy(dx, dy) }

// ResetView returns the viewport to identity
func (s *Session) ResetView() { s.viewport.Reset() }

// AddNode is the single placement path for new nodes. The node is selected.
func (s *Session) AddNode(t workflow.NodeType, pos workflow.Position) *workflow.Node {
	n := s.graph.AddNode(t, pos, s.agents)
	s.sel = NodeSelection(n.ID)
	s.changed()
	return n
}

// AddFromPalette adds at the canvas point under the viewport center, offset
// by a cascade so repeated adds do not stack
func (s *Session) AddFromPalette(t workflow.NodeType) *workflow.Node {
	center := ScreenToCanvas(s.rect.Center(), s.rect, s.viewport)
	off := cascadeStep * float64(s.graph.Len()%cascadeCycle)
	return s.AddNode(t, center.Add(Point{X: off, Y: off}).Position())
}

// AddAtContextMenu adds at the last right-click location
func (s *Session) AddAtContextMenu(t workflow.NodeType) *workflow.Node {
	return s.AddNode(t, s.contextMenu.Position())
}

// ChoosePaletteEntry adds the entry under the palette cursor using the
// palette's placement mode and closes the palette
func (s *Session) ChoosePaletteEntry() *workflow.Node {
	if !s.palette.IsVisible() {
		return nil
	}
	entry, ok := s.palette.Selected()
	s.palette.Hide()
	if !ok {
		return nil
	}
	if s.palette.Mode() == PaletteContextMenu {
		return s.AddAtContextMenu(entry.Type)
	}
	return s.AddFromPalette(entry.Type)
}

// BeginConnect starts authoring an edge from node from
func (s *Session) BeginConnect(from workflow.NodeID) bool {
	if s.graph.Node(from) == nil {
		return false
	}
	s.endDrag()
	s.connecting = from
	return true
}

// CompleteConnect finishes the edge at node to. Duplicate, self-loop and
// dangling edges are rejected without error.
func (s *Session) CompleteConnect(to workflow.NodeID) (*workflow.Edge, bool) {
	from := s.connecting
	s.connecting = ""
	if from == "" {
		return nil, false
	}
	e, ok := s.graph.AddEdge(from, to)
	if !ok {
		return nil, false
	}
	s.sel = EdgeSelection(e.ID)
	s.changed()
	return e, true
}

// CancelConnect abandons the edge being authored
func (s *Session) CancelConnect() {
	s.connecting = ""
}

// DeleteSelection removes the selected node or edge and clears the
// selection in the same step
func (s *Session) DeleteSelection() bool {
	var removed bool
	switch s.sel.Kind() {
	case SelectNode:
		id, _ := s.sel.Node()
		removed = s.graph.DeleteNode(id)
		if s.connecting == id {
			s.connecting = ""
		}
		if st := s.drag.State(); st.Kind == DragNode && st.NodeID == id {
			s.drag.End()
		}
	case SelectEdge:
		id, _ := s.sel.Edge()
		removed = s.graph.DeleteEdge(id)
	}
	s.sel = Selection{}
	if removed {
		s.changed()
	}
	return removed
}

// Undo restores the previous graph state
func (s *Session) Undo() error {
	g, err := s.history.Undo()
	if err != nil {
		return err
	}
	s.restore(g)
	return nil
}

// Redo reapplies an undone graph state
func (s *Session) Redo() error {
	g, err := s.history.Redo()
	if err != nil {
		return err
	}
	s.restore(g)
	return nil
}

func (s *Session) restore(g *workflow.Graph) {
	s.graph = g
	s.rev++
	s.drag.End()
	s.connecting = ""
	s.Select(s.sel)
}

// Notifications returns the queued notifications, oldest first
func (s *Session) Notifications() []Notification {
	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// Latest returns the newest notification
func (s *Session) Latest() (Notification, bool) {
	if len(s.notifications) == 0 {
		return Notification{}, false
	}
	return s.notifications[len(s.notifications)-1], true
}

// Dismiss removes notification i
func (s *Session) Dismiss(i int) bool {
	if i < 0 || i >= len(s.notifications) {
		return false
	}
	s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
	return true
}

// Notify appends a message to the notification queue
func (s *Session) Notify(level NotificationLevel, msg string) {
	s.notify(level, msg)
}

func (s *Session) notify(level NotificationLevel, msg string) {
	s.notifications = append(s.notifications, Notification{Level: level, Message: msg, Time: time.Now()})
	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}
}

// fail reports a transport error. The graph is left as it is.
func (s *Session) fail(op string, nodeID workflow.NodeID, cause error) error {
	s.endDrag()
	opErr := flowerrors.NewOperationalError(op, s.meta.ID.String(), nodeID.String(), cause)
	log.Printf("canvas: %v", opErr)
	s.notify(LevelError, cause.Error())
	return opErr
}

// reject reports a local validation error
func (s *Session) reject(err error) error {
	s.endDrag()
	s.notify(LevelWarning, err.Error())
	return err
}

// Close ends the session. Outcomes of jobs still in flight are discarded.
func (s *Session) Close() {
	s.endDrag()
	s.closed = true
}

// Closed reports whether Close has been called
func (s *Session) Closed() bool { return s.closed }

// applyIfLive runs fn unless the session has been closed
func (s *Session) applyIfLive(fn func()) bool {
	if s.closed {
		log.Printf("canvas: discarded result for closed session")
		return false
	}
	fn()
	return true
}

// Definition flattens the graph into the backend wire format
func (s *Session) Definition() workflow.Definition {
	return workflow.FlattenWithOutput(s.meta, s.graph, s.output)
}

// LoadDefinition replaces the graph with a hydrated definition and resets
// the interaction state
func (s *Session) LoadDefinition(def workflow.Definition) error {
	g, err := workflow.Hydrate(def)
	if err != nil {
		return err
	}
	s.replace(def, g)
	return nil
}

func (s *Session) replace(def workflow.Definition, g *workflow.Graph) {
	s.graph = g
	s.meta = def.Meta()
	s.output = def.Definition.Output
	s.history.Reset(g)
	s.viewport.Reset()
	s.drag.End()
	s.sel = Selection{}
	s.connecting = ""
	s.palette.Hide()
	s.rev++
	s.savedRev = s.rev
}

// TestRunJob validates the graph and input and returns the interaction
// call. Validation failures are returned and nothing is sent.
func (s *Session) TestRunJob(input string) (Job, error) {
	return s.testRunJob(input, nil)
}

func (s *Session) testRunJob(input string, done func(TestResult, error)) (Job, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	req, err := PrepareTestRun(s.graph, input)
	if err != nil {
		return nil, s.reject(err)
	}
	if s.cfg.Interactor == nil {
		return nil, s.reject(ErrNoInteractor)
	}
	client := s.cfg.Interactor

	return func(ctx context.Context) func() {
		res, sendErr := req.Send(ctx, client)
		return func() {
			s.applyIfLive(func() {
				if s.cfg.OnTestRun != nil {
					s.cfg.OnTestRun(req, res, sendErr)
				}
				if sendErr != nil {
					sendErr = s.fail("test run", req.NodeID, sendErr)
					return
				}
				s.lastResult = &res
				s.notify(LevelInfo, "Test completed successfully")
			})
			if done != nil {
				done(res, sendErr)
			}
		}
	}, nil
}

// TestRun validates and calls the agent, waiting for the response
func (s *Session) TestRun(ctx context.Context, input string) (TestResult, error) {
	var (
		res    TestResult
		runErr error
	)
	job, err := s.testRunJob(input, func(r TestResult, err error) { res, runErr = r, err })
	if err != nil {
		return TestResult{}, err
	}
	job(ctx)()
	return res, runErr
}

// SaveJob flattens the graph and returns the create or update call. A
// workflow with no id is created; otherwise it is replaced.
func (s *Session) SaveJob() (Job, error) {
	return s.saveJob(nil)
}

func (s *Session) saveJob(done func(*workflow.Definition, error)) (Job, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.meta.Name == "" {
		return nil, s.reject(ErrNameRequired)
	}
	if s.cfg.Repository == nil {
		return nil, s.reject(ErrNoRepository)
	}
	repo := s.cfg.Repository
	def := s.Definition()
	rev := s.rev

	return func(ctx context.Context) func() {
		var (
			saved *workflow.Definition
			err   error
		)
		if def.ID.IsZero() {
			saved, err = repo.CreateWorkflow(ctx, &def)
		} else {
			saved, err = repo.UpdateWorkflow(ctx, def.ID, &def)
		}
		return func() {
			s.applyIfLive(func() {
				if err != nil {
					err = s.fail("saving workflow", "", err)
					return
				}
				if saved != nil {
					if !saved.ID.IsZero() {
						s.meta.ID = saved.ID
					}
					s.meta.Version = saved.Version
				}
				if s.rev == rev {
					s.savedRev = rev
				}
				s.notify(LevelInfo, "Workflow saved successfully")
			})
			if done != nil {
				done(saved, err)
			}
		}
	}, nil
}

// Save writes the workflow to the backend, waiting for the response
func (s *Session) Save(ctx context.Context) (*workflow.Definition, error) {
	var (
		saved   *workflow.Definition
		saveErr error
	)
	job, err := s.saveJob(func(d *workflow.Definition, err error) { saved, saveErr = d, err })
	if err != nil {
		return nil, err
	}
	job(ctx)()
	return saved, saveErr
}

// LoadJob returns the call that fetches and hydrates workflow id
func (s *Session) LoadJob(id workflow.WorkflowID) (Job, error) {
	return s.loadJob(id, nil)
}

func (s *Session) loadJob(id workflow.WorkflowID, done func(error)) (Job, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.cfg.Repository == nil {
		return nil, s.reject(ErrNoRepository)
	}
	repo := s.cfg.Repository

	return func(ctx context.Context) func() {
		var g *workflow.Graph
		def, err := repo.GetWorkflow(ctx, id)
		if err == nil && def == nil {
			err = workflow.ErrWorkflowNotFound
		}
		if err == nil {
			g, err = workflow.Hydrate(*def)
		}
		return func() {
			s.applyIfLive(func() {
				if err != nil {
					opErr := flowerrors.NewOperationalError("loading workflow", id.String(), "", err)
					log.Printf("canvas: %v", opErr)
					s.endDrag()
					s.notify(LevelError, err.Error())
					err = opErr
					return
				}
				if def.ID.IsZero() {
					def.ID = id
				}
				s.replace(*def, g)
			})
			if done != nil {
				done(err)
			}
		}
	}, nil
}

// Load fetches workflow id and replaces the graph with it
func (s *Session) Load(ctx context.Context, id workflow.WorkflowID) error {
	var loadErr error
	job, err := s.loadJob(id, func(err error) { loadErr = err })
	if err != nil {
		return err
	}
	job(ctx)()
	return loadErr
}

// LoadAgentsJob returns the call that refreshes the agent picker. Failures
// are reported but never block editing.
func (s *Session) LoadAgentsJob() Job {
	return s.loadAgentsJob(nil)
}

func (s *Session) loadAgentsJob(done func(error)) Job {
	src := s.cfg.Agents
	return func(ctx context.Context) func() {
		if src == nil {
			return func() {
				if done != nil {
					done(nil)
				}
			}
		}
		agents, err := src.ListAgents(ctx)
		return func() {
			s.applyIfLive(func() {
				if err != nil {
					err = s.fail("loading agents", "", err)
					return
				}
				s.agents = agents
			})
			if done != nil {
				done(err)
			}
		}
	}
}

// LoadAgents refreshes the agent picker, waiting for the response
func (s *Session) LoadAgents(ctx context.Context) error {
	var loadErr error
	s.loadAgentsJob(func(err error) { loadErr = err })(ctx)()
	return loadErr
}
