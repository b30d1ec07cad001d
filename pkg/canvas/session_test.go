package canvas

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flowerrors "github.com/dshills/flowcanvas/pkg/errors"
	"github.com/dshills/flowcanvas/pkg/workflow"
)

// fakeRepository is an in-memory workflow.Repository
type fakeRepository struct {
	workflows map[workflow.WorkflowID]*workflow.Definition
	created   int
	updated   int
	nextID    int
	err       error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{workflows: map[workflow.WorkflowID]*workflow.Definition{}, nextID: 41}
}

func (r *fakeRepository) GetWorkflow(_ context.Context, id workflow.WorkflowID) (*workflow.Definition, error) {
	if r.err != nil {
		return nil, r.err
	}
	def, ok := r.workflows[id]
	if !ok {
		return nil, workflow.ErrWorkflowNotFound
	}
	c := *def
	return &c, nil
}

func (r *fakeRepository) CreateWorkflow(_ context.Context, def *workflow.Definition) (*workflow.Definition, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.created++
	r.nextID++
	c := *def
	c.ID = workflow.WorkflowID(strconv.Itoa(r.nextID))
	c.Version = 1
	r.workflows[c.ID] = &c
	return &c, nil
}

func (r *fakeRepository) UpdateWorkflow(_ context.Context, id workflow.WorkflowID, def *workflow.Definition) (*workflow.Definition, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.updated++
	c := *def
	c.ID = id
	c.Version = def.Version + 1
	r.workflows[id] = &c
	return &c, nil
}

func (r *fakeRepository) ListWorkflows(context.Context) ([]*workflow.Definition, error) {
	out := make([]*workflow.Definition, 0, len(r.workflows))
	for _, d := range r.workflows {
		out = append(out, d)
	}
	return out, nil
}

type fakeAgents struct {
	agents []workflow.Agent
	err    error
}

func (f *fakeAgents) ListAgents(context.Context) ([]workflow.Agent, error) {
	return f.agents, f.err
}

func newTestSession(cfg SessionConfig) *Session {
	if cfg.Rect == (Rect{}) {
		cfg.Rect = Rect{Width: 800, Height: 600}
	}
	return NewSession(cfg)
}

func assertNoDanglingEdges(t *testing.T, g *workflow.Graph) {
	t.Helper()
	for _, e := range g.Edges() {
		assert.NotNil(t, g.Node(e.From), "edge %s has missing source", e.ID)
		assert.NotNil(t, g.Node(e.To), "edge %s has missing target", e.ID)
	}
}

func TestSession_RandomAddDeleteKeepsEdgesValid(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := newTestSession(SessionConfig{})
	types := workflow.NodeTypes()

	for i := 0; i < 500; i++ {
		nodes := s.Graph().Nodes()
		switch op := rng.Intn(4); {
		case op == 0 || len(nodes) < 2:
			s.AddNode(types[rng.Intn(len(types))], workflow.Position{X: rng.Float64() * 1000, Y: rng.Float64() * 1000})
		case op == 1:
			victim := nodes[rng.Intn(len(nodes))]
			s.Select(NodeSelection(victim.ID))
			require.True(t, s.DeleteSelection())
			assert.True(t, s.Selection().Empty())
			assert.Nil(t, s.Graph().Node(victim.ID))
		default:
			a, b := nodes[rng.Intn(len(nodes))], nodes[rng.Intn(len(nodes))]
			require.True(t, s.BeginConnect(a.ID))
			s.CompleteConnect(b.ID)
		}
		assertNoDanglingEdges(t, s.Graph())
	}
}

func TestSession_AddEdgeIdempotentAndNoSelfLoop(t *testing.T) {
	s := newTestSession(SessionConfig{})
	a := s.AddNode(workflow.NodeTypeInput, workflow.Position{})
	b := s.AddNode(workflow.NodeTypeAgent, workflow.Position{X: 200})

	s.BeginConnect(a.ID)
	_, ok := s.CompleteConnect(b.ID)
	require.True(t, ok)
	s.BeginConnect(a.ID)
	_, ok = s.CompleteConnect(b.ID)
	assert.False(t, ok)
	assert.Len(t, s.Graph().Edges(), 1)

	for _, n := range []*workflow.Node{a, b} {
		s.BeginConnect(n.ID)
		_, ok = s.CompleteConnect(n.ID)
		assert.False(t, ok)
	}
	assert.Len(t, s.Graph().Edges(), 1)
	_, connecting := s.Connecting()
	assert.False(t, connecting)
}

func TestSession_ScenarioValidGraph(t *testing.T) {
	s := newTestSession(SessionConfig{})
	in := s.AddNode(workflow.NodeTypeInput, workflow.Position{X: 50, Y: 50})
	agent := s.AddNode(workflow.NodeTypeAgent, workflow.Position{X: 250, Y: 50})
	out := s.AddNode(workflow.NodeTypeOutput, workflow.Position{X: 450, Y: 50})
	s.BeginConnect(in.ID)
	s.CompleteConnect(agent.ID)
	s.BeginConnect(agent.ID)
	s.CompleteConnect(out.ID)

	_, err := ValidateForTestRun(s.Graph(), "hello")
	assert.NoError(t, err)
}

func TestSession_ScenarioMissingEdgeSendsNothing(t *testing.T) {
	client := &fakeInteractor{response: "unused"}
	s := newTestSession(SessionConfig{Interactor: client})
	s.SetAgents([]workflow.Agent{{ID: "a1"}})
	in := s.AddNode(workflow.NodeTypeInput, workflow.Position{X: 50, Y: 50})
	agent := s.AddNode(workflow.NodeTypeAgent, workflow.Position{X: 250, Y: 50})
	s.AddNode(workflow.NodeTypeOutput, workflow.Position{X: 450, Y: 50})
	s.BeginConnect(in.ID)
	s.CompleteConnect(agent.ID)

	_, err := s.TestRun(context.Background(), "hello")
	require.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, client.calls)

	n, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, "components must be connected: Input → Agent → Output", n.Message)
	assert.Equal(t, LevelWarning, n.Level)
}

func TestSession_ScenarioDeleteAgent(t *testing.T) {
	s := newTestSession(SessionConfig{})
	g, _, agent, _ := linearGraph(t, nil)
	require.NoError(t, s.LoadDefinition(workflow.Flatten(workflow.Meta{Name: "wf"}, g)))

	s.Select(NodeSelection(agent.ID))
	require.True(t, s.DeleteSelection())

	assert.Equal(t, 2, s.Graph().Len())
	assert.Empty(t, s.Graph().Edges())
	assert.True(t, s.Selection().Empty())
}

func TestSession_PointerDragNode(t *testing.T) {
	s := newTestSession(SessionConfig{})
	n := s.AddNode(workflow.NodeTypeInput, workflow.Position{X: 100, Y: 100})
	s.SetZoomForTest(2)

	press := CanvasToScreen(Point{X: 110, Y: 120}, s.Rect(), s.Viewport())
	s.PointerDown(PointerEvent{Pos: press})
	require.Equal(t, DragNode, s.DragState().Kind)
	assert.True(t, s.Selection().IsNode(n.ID))

	s.PointerMove(PointerEvent{Pos: press.Add(Point{X: 40, Y: -20})})
	assert.Equal(t, workflow.Position{X: 120, Y: 90}, s.Graph().Node(n.ID).Position)

	s.PointerUp(PointerEvent{})
	assert.Equal(t, DragIdle, s.DragState().Kind)
}

func TestSession_PointerPan(t *testing.T) {
	tests := []struct {
		name string
		ev   PointerEvent
	}{
		{name: "middle button", ev: PointerEvent{Pos: Point{X: 700, Y: 500}, Button: ButtonMiddle}},
		{name: "shift primary", ev: PointerEvent{Pos: Point{X: 700, Y: 500}, Mods: ModShift}},
		{name: "alt primary", ev: PointerEvent{Pos: Point{X: 700, Y: 500}, Mods: ModAlt}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(SessionConfig{})
			s.PointerDown(tt.ev)
			require.Equal(t, DragPan, s.DragState().Kind)
			s.PointerMove(PointerEvent{Pos: tt.ev.Pos.Add(Point{X: -30, Y: 12})})
			assert.Equal(t, Point{X: -30, Y: 12}, s.Viewport().Pan)
			s.PointerLeave()
			assert.Equal(t, DragIdle, s.DragState().Kind)
		})
	}
}

func TestSession_PrimaryOnEmptyCanvas(t *testing.T) {
	s := newTestSession(SessionConfig{})
	a := s.AddNode(workflow.NodeTypeInput, workflow.Position{X: 0, Y: 0})
	b := s.AddNode(workflow.NodeTypeOutput, workflow.Position{X: 400, Y: 200})
	s.BeginConnect(a.ID)
	e, ok := s.CompleteConnect(b.ID)
	require.True(t, ok)

	mid := s.Frame().Edges[0].Curve.At(0.5)
	s.PointerDown(PointerEvent{Pos: mid})
	assert.True(t, s.Selection().IsEdge(e.ID))
	assert.Equal(t, DragIdle, s.DragState().Kind)
	s.PointerUp(PointerEvent{})

	s.PointerDown(PointerEvent{Pos: Point{X: 790, Y: 590}})
	assert.True(t, s.Selection().Empty())
	assert.Equal(t, DragIdle, s.DragState().Kind)
}

func TestSession_EveryEventSequenceEndsIdle(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	s := newTestSession(SessionConfig{})
	for i := 0; i < 5; i++ {
		s.AddNode(workflow.NodeTypeAgent, workflow.Position{X: float64(i * 160), Y: float64(i * 70)})
	}

	for i := 0; i < 300; i++ {
		p := Point{X: rng.Float64() * 800, Y: rng.Float64() * 600}
		ev := PointerEvent{Pos: p, Button: PointerButton(rng.Intn(3)), Mods: Modifiers(rng.Intn(8))}
		switch rng.Intn(4) {
		case 0:
			s.PointerDown(ev)
		case 1:
			s.PointerMove(ev)
		case 2:
			s.PointerUp(ev)
			assert.Equal(t, DragIdle, s.DragState().Kind)
		default:
			s.PointerLeave()
			assert.Equal(t, DragIdle, s.DragState().Kind)
		}
		k := s.DragState().Kind
		assert.Contains(t, []DragKind{DragIdle, DragNode, DragPan}, k)
	}
}

func TestSession_ConnectByPointer(t *testing.T) {
	s := newTestSession(SessionConfig{})
	a := s.AddNode(workflow.NodeTypeInput, workflow.Position{X: 0, Y: 0})
	b := s.AddNode(workflow.NodeTypeOutput, workflow.Position{X: 300, Y: 0})

	require.True(t, s.BeginConnect(a.ID))
	s.PointerDown(PointerEvent{Pos: Point{X: 310, Y: 10}})
	assert.True(t, s.Graph().HasEdge(a.ID, b.ID))
	assert.Equal(t, DragIdle, s.DragState().Kind)

	require.True(t, s.BeginConnect(b.ID))
	s.PointerDown(PointerEvent{Pos: Point{X: 700, Y: 500}})
	_, connecting := s.Connecting()
	assert.False(t, connecting)
	assert.Len(t, s.Graph().Edges(), 1)

	assert.False(t, s.BeginConnect("missing"))
}

func TestSession_ContextMenuAndPaletteConverge(t *testing.T) {
	s := newTestSession(SessionConfig{Rect: Rect{Left: 10, Top: 10, Width: 800, Height: 600}})
	s.SetZoomForTest(2)

	s.PointerDown(PointerEvent{Pos: Point{X: 210, Y: 110}, Button: ButtonSecondary})
	assert.True(t, s.Palette().IsVisible())
	assert.Equal(t, PaletteContextMenu, s.Palette().Mode())
	assert.Equal(t, Point{X: 100, Y: 50}, s.ContextMenuPoint())

	s.Palette().SetFilter("cond")
	n := s.ChoosePaletteEntry()
	require.NotNil(t, n)
	assert.Equal(t, workflow.NodeTypeCondition, n.Type)
	assert.Equal(t, workflow.Position{X: 100, Y: 50}, n.Position)
	assert.False(t, s.Palette().IsVisible())
	assert.True(t, s.Selection().IsNode(n.ID))

	s.OpenPalette()
	center := s.ChoosePaletteEntry()
	require.NotNil(t, center)
	assert.Equal(t, workflow.NodeTypeInput, center.Type)
	want := ScreenToCanvas(s.Rect().Center(), s.Rect(), s.Viewport())
	assert.Equal(t, workflow.Position{X: want.X + 24, Y: want.Y + 24}, center.Position)

	assert.Nil(t, s.ChoosePaletteEntry())
}

func TestSession_AddFromPaletteCascade(t *testing.T) {
	s := newTestSession(SessionConfig{})
	center := ScreenToCanvas(s.Rect().Center(), s.Rect(), s.Viewport())

	var positions []workflow.Position
	for i := 0; i < 9; i++ {
		positions = append(positions, s.AddFromPalette(workflow.NodeTypeTransform).Position)
	}
	assert.Equal(t, center.Position(), positions[0])
	assert.Equal(t, workflow.Position{X: center.X + 24*7, Y: center.Y + 24*7}, positions[7])
	assert.Equal(t, positions[0], positions[8])
}

func TestSession_AgentDefaultsFromLoadedAgents(t *testing.T) {
	src := &fakeAgents{agents: []workflow.Agent{{ID: "first"}, {ID: "second"}}}
	s := newTestSession(SessionConfig{Agents: src})
	require.NoError(t, s.LoadAgents(context.Background()))

	n := s.AddNode(workflow.NodeTypeAgent, workflow.Position{})
	assert.Equal(t, workflow.AgentID("first"), n.AgentID())
}

func TestSession_LoadAgentsFailureNotifies(t *testing.T) {
	src := &fakeAgents{err: errors.New("connection refused")}
	s := newTestSession(SessionConfig{Agents: src})
	s.SetAgents([]workflow.Agent{{ID: "kept"}})

	err := s.LoadAgents(context.Background())
	require.Error(t, err)
	var opErr *flowerrors.OperationalError
	assert.ErrorAs(t, err, &opErr)
	assert.Equal(t, "loading agents", opErr.Operation)

	assert.Equal(t, []workflow.Agent{{ID: "kept"}}, s.Agents())
	n, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, LevelError, n.Level)
	assert.Equal(t, "connection refused", n.Message)
}

func TestSession_TestRunSuccessAndFailure(t *testing.T) {
	client := &fakeInteractor{response: "Bonjour"}
	s := newTestSession(SessionConfig{Interactor: client})
	g, _, _, _ := linearGraph(t, []workflow.Agent{{ID: "a1"}})
	require.NoError(t, s.LoadDefinition(workflow.Flatten(workflow.Meta{Name: "wf"}, g)))

	res, err := s.TestRun(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", res.Response)
	last, ok := s.LastResult()
	require.True(t, ok)
	assert.Equal(t, "Bonjour", last.Response)

	before := s.Definition()
	client.err = errors.New("agent timed out")
	_, err = s.TestRun(context.Background(), "Again")
	require.Error(t, err)
	assert.ErrorIs(t, err, client.err)

	last, _ = s.LastResult()
	assert.Equal(t, "Bonjour", last.Response)
	assert.Equal(t, before, s.Definition())
	assert.Equal(t, DragIdle, s.DragState().Kind)

	n, _ := s.Latest()
	assert.Equal(t, "agent timed out", n.Message)
	assert.Len(t, client.calls, 2)
}

func TestSession_OnTestRunObservesOutcomes(t *testing.T) {
	type observed struct {
		input    string
		response string
		failed   bool
	}
	var seen []observed
	client := &fakeInteractor{response: "pong"}
	s := newTestSession(SessionConfig{
		Interactor: client,
		OnTestRun: func(req TestRequest, res TestResult, err error) {
			seen = append(seen, observed{input: req.Input, response: res.Response, failed: err != nil})
		},
	})
	g, _, _, _ := linearGraph(t, []workflow.Agent{{ID: "a1"}})
	require.NoError(t, s.LoadDefinition(workflow.Flatten(workflow.Meta{Name: "wf"}, g)))

	_, err := s.TestRun(context.Background(), "ping")
	require.NoError(t, err)
	client.err = errors.New("down")
	_, _ = s.TestRun(context.Background(), "again")

	// validation failures never reach the observer
	_, err = s.TestRun(context.Background(), "   ")
	require.Error(t, err)

	// nor do results arriving after Close
	client.err = nil
	job, err := s.TestRunJob("late")
	require.NoError(t, err)
	apply := job(context.Background())
	s.Close()
	apply()

	assert.Equal(t, []observed{
		{input: "ping", response: "pong"},
		{input: "again", failed: true},
	}, seen)
}

func TestSession_SaveCreatesThenUpdates(t *testing.T) {
	repo := newFakeRepository()
	s := newTestSession(SessionConfig{Repository: repo})
	s.AddNode(workflow.NodeTypeInput, workflow.Position{})

	_, err := s.Save(context.Background())
	assert.ErrorIs(t, err, ErrNameRequired)
	assert.Equal(t, 0, repo.created)

	s.SetName("Translator")
	require.True(t, s.Dirty())
	saved, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.created)
	assert.Equal(t, workflow.WorkflowID("42"), saved.ID)
	assert.Equal(t, workflow.WorkflowID("42"), s.Meta().ID)
	assert.False(t, s.Dirty())

	s.AddNode(workflow.NodeTypeOutput, workflow.Position{X: 300})
	_, err = s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.created)
	assert.Equal(t, 1, repo.updated)
	assert.Len(t, repo.workflows["42"].Definition.Steps, 2)

	n, _ := s.Latest()
	assert.Equal(t, "Workflow saved successfully", n.Message)
}

func TestSession_SaveFailureKeepsGraph(t *testing.T) {
	repo := newFakeRepository()
	repo.err = errors.New("500 internal error")
	s := newTestSession(SessionConfig{Repository: repo})
	s.SetName("wf")
	s.AddNode(workflow.NodeTypeInput, workflow.Position{})
	before := s.Definition()

	_, err := s.Save(context.Background())
	require.Error(t, err)
	assert.Equal(t, before, s.Definition())
	assert.True(t, s.Dirty())
	assert.True(t, s.Meta().ID.IsZero())
}

func TestSession_LoadReplacesGraph(t *testing.T) {
	repo := newFakeRepository()
	g, _, _, _ := linearGraph(t, nil)
	def := workflow.FlattenWithOutput(workflow.Meta{ID: "7", Name: "Loaded"}, g,
		map[string]workflow.OutputRef{"answer": {Source: "variables", Path: "output.answer"}})
	repo.workflows["7"] = &def

	s := newTestSession(SessionConfig{Repository: repo})
	s.AddNode(workflow.NodeTypeTransform, workflow.Position{})
	s.SetZoomForTest(1.5)

	require.NoError(t, s.Load(context.Background(), "7"))
	assert.Equal(t, 3, s.Graph().Len())
	assert.Equal(t, "Loaded", s.Meta().Name)
	assert.Equal(t, 1.0, s.Viewport().Zoom)
	assert.False(t, s.Dirty())
	assert.Equal(t, "output.answer", s.Definition().Definition.Output["answer"].Path)

	err := s.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, workflow.ErrWorkflowNotFound)
	assert.Equal(t, 3, s.Graph().Len())
}

func TestSession_CloseDiscardsInFlightResults(t *testing.T) {
	client := &fakeInteractor{response: "late"}
	src := &fakeAgents{agents: []workflow.Agent{{ID: "new"}}}
	s := newTestSession(SessionConfig{Interactor: client, Agents: src})
	g, _, _, _ := linearGraph(t, []workflow.Agent{{ID: "a1"}})
	require.NoError(t, s.LoadDefinition(workflow.Flatten(workflow.Meta{Name: "wf"}, g)))

	run, err := s.TestRunJob("Hello")
	require.NoError(t, err)
	agents := s.LoadAgentsJob()

	applyRun := run(context.Background())
	applyAgents := agents(context.Background())
	s.Close()
	applyRun()
	applyAgents()

	_, ok := s.LastResult()
	assert.False(t, ok)
	assert.Empty(t, s.Agents())
	assert.Empty(t, s.Notifications())

	_, err = s.TestRunJob("Hello")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_UndoRedo(t *testing.T) {
	s := newTestSession(SessionConfig{})
	n := s.AddNode(workflow.NodeTypeInput, workflow.Position{})
	s.Select(NodeSelection(n.ID))
	require.True(t, s.DeleteSelection())
	assert.Equal(t, 0, s.Graph().Len())

	require.NoError(t, s.Undo())
	assert.NotNil(t, s.Graph().Node(n.ID))
	require.NoError(t, s.Undo())
	assert.Equal(t, 0, s.Graph().Len())
	assert.ErrorIs(t, s.Undo(), ErrNothingToUndo)

	require.NoError(t, s.Redo())
	assert.Equal(t, 1, s.Graph().Len())
}

func TestSession_WheelKeepsAnchor(t *testing.T) {
	s := newTestSession(SessionConfig{})
	p := Point{X: 300, Y: 200}
	anchor := ScreenToCanvas(p, s.Rect(), s.Viewport())

	s.Wheel(p, 1)
	assert.InDelta(t, 1.1, s.Viewport().Zoom, 1e-9)
	after := ScreenToCanvas(p, s.Rect(), s.Viewport())
	assert.InDelta(t, anchor.X, after.X, 1e-9)
	assert.InDelta(t, anchor.Y, after.Y, 1e-9)

	s.ResetView()
	assert.Equal(t, Viewport{Zoom: 1, MinZoom: DefaultMinZoom, MaxZoom: DefaultMaxZoom}, s.Viewport())
}

func TestSession_Notifications(t *testing.T) {
	s := newTestSession(SessionConfig{})
	_, err := s.Save(context.Background())
	require.ErrorIs(t, err, ErrNameRequired)
	s.SetName("x")
	_, err = s.Save(context.Background())
	require.ErrorIs(t, err, ErrNoRepository)

	require.Len(t, s.Notifications(), 2)
	assert.True(t, s.Dismiss(0))
	assert.False(t, s.Dismiss(5))
	require.Len(t, s.Notifications(), 1)
	assert.Equal(t, ErrNoRepository.Error(), s.Notifications()[0].Message)
}

func TestSession_SetFieldThroughSelection(t *testing.T) {
	s := newTestSession(SessionConfig{})
	n := s.AddNode(workflow.NodeTypeAPI, workflow.Position{})

	require.NoError(t, s.SetField("url", "https://api.example.com"))
	assert.Equal(t, "https://api.example.com", s.Graph().Node(n.ID).Config.(*workflow.APIConfig).URL)

	s.Select(Selection{})
	assert.ErrorIs(t, s.SetField("url", "https://x.example.com"), ErrNothingSelected)
	assert.Nil(t, s.Fields())
}

func TestSession_InterruptedDragCommitsMove(t *testing.T) {
	tests := []struct {
		name      string
		interrupt func(s *Session)
	}{
		{"agents failure mid drag", func(s *Session) {
			s.LoadAgentsJob()(context.Background())()
		}},
		{"context menu mid drag", func(s *Session) {
			s.ContextMenu(Point{X: 700, Y: 500})
		}},
		{"connect mid drag", func(s *Session) {
			s.BeginConnect("in")
		}},
		{"close mid drag", func(s *Session) {
			s.Close()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(SessionConfig{Agents: &fakeAgents{err: errors.New("boom")}})
			def := workflow.Definition{Name: "saved", Definition: workflow.Body{Steps: []workflow.Step{
				{ID: "in", Name: "Input", Type: "input", Position: &workflow.Position{X: 10, Y: 10}, Config: map[string]any{}},
			}}}
			require.NoError(t, s.LoadDefinition(def))
			require.False(t, s.Dirty())

			press := CanvasToScreen(Point{X: 20, Y: 20}, s.Rect(), s.Viewport())
			s.PointerDown(PointerEvent{Pos: press})
			require.Equal(t, DragNode, s.DragState().Kind)
			s.PointerMove(PointerEvent{Pos: press.Add(Point{X: 200, Y: 100})})

			tt.interrupt(s)
			s.PointerUp(PointerEvent{})

			assert.Equal(t, DragIdle, s.DragState().Kind)
			assert.Equal(t, workflow.Position{X: 210, Y: 110}, s.Graph().Node("in").Position)
			assert.True(t, s.Dirty())

			require.NoError(t, s.Undo())
			assert.Equal(t, workflow.Position{X: 10, Y: 10}, s.Graph().Node("in").Position)
		})
	}
}

func TestSession_ClickWithoutMoveStaysClean(t *testing.T) {
	s := newTestSession(SessionConfig{})
	def := workflow.Definition{Name: "saved", Definition: workflow.Body{Steps: []workflow.Step{
		{ID: "in", Name: "Input", Type: "input", Position: &workflow.Position{X: 10, Y: 10}, Config: map[string]any{}},
	}}}
	require.NoError(t, s.LoadDefinition(def))

	s.PointerDown(PointerEvent{Pos: CanvasToScreen(Point{X: 20, Y: 20}, s.Rect(), s.Viewport())})
	s.PointerUp(PointerEvent{})

	assert.False(t, s.Dirty())
	assert.ErrorIs(t, s.Undo(), ErrNothingToUndo)
}
