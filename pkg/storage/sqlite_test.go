package storage

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/flowcanvas/pkg/workflow"
)

func newTestStore(t *testing.T) *SQLiteDraftStore {
	t.Helper()
	store, err := OpenDraftStore(filepath.Join(t.TempDir(), "flowcanvas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return store
}

func sampleDefinition(name string) workflow.Definition {
	g := workflow.NewGraph()
	in := g.AddNode(workflow.NodeTypeInput, workflow.Position{X: 50, Y: 50}, nil)
	out := g.AddNode(workflow.NodeTypeOutput, workflow.Position{X: 250, Y: 50}, nil)
	g.AddEdge(in.ID, out.ID)
	return workflow.Flatten(workflow.Meta{Name: name, Tags: []string{"draft"}}, g)
}

func TestInitializeDatabase_Idempotent(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	require.NoError(t, InitializeDatabase(db))
	require.NoError(t, InitializeDatabase(db))

	v, err := SchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, MigrationVersion, v)
}

func TestDraftStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)

	d := &Draft{Definition: sampleDefinition("Greeter")}
	require.NoError(t, store.Save(d))
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "Greeter", d.Name)
	assert.False(t, d.UpdatedAt.IsZero())

	got, err := store.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, "Greeter", got.Name)
	assert.True(t, got.WorkflowID.IsZero())
	assert.Len(t, got.Definition.Definition.Steps, 2)
	assert.Len(t, got.Definition.Definition.Connections, 1)
	assert.Equal(t, []string{"draft"}, got.Definition.Tags)

	g, err := workflow.Hydrate(got.Definition)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
}

func TestDraftStore_SaveUpdatesExisting(t *testing.T) {
	store := newTestStore(t)

	d := &Draft{Definition: sampleDefinition("First")}
	require.NoError(t, store.Save(d))
	first := d.UpdatedAt

	d.Name = "Renamed"
	d.Definition.ID = "17"
	require.NoError(t, store.Save(d))
	assert.True(t, d.UpdatedAt.After(first))

	drafts, err := store.List()
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Renamed", drafts[0].Name)
	assert.Equal(t, workflow.WorkflowID("17"), drafts[0].WorkflowID)
}

func TestDraftStore_SaveErrors(t *testing.T) {
	store := newTestStore(t)

	assert.Error(t, store.Save(nil))
	assert.Error(t, store.Save(&Draft{}))
}

func TestDraftStore_ListOrder(t *testing.T) {
	store := newTestStore(t)

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, store.Save(&Draft{Definition: sampleDefinition(name)}))
	}

	drafts, err := store.List()
	require.NoError(t, err)
	names := make([]string, 0, len(drafts))
	for _, d := range drafts {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"c", "b", "a"}, names)
}

func TestDraftStore_Find(t *testing.T) {
	store := newTestStore(t)

	a := &Draft{ID: "abc-1", Definition: sampleDefinition("alpha")}
	b := &Draft{ID: "abd-2", Definition: sampleDefinition("beta")}
	require.NoError(t, store.Save(a))
	require.NoError(t, store.Save(b))

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr error
	}{
		{"exact id", "abc-1", "alpha", nil},
		{"name", "beta", "beta", nil},
		{"unique prefix", "abd", "beta", nil},
		{"ambiguous prefix", "ab", "", errors.New("ambiguous")},
		{"missing", "zzz", "", ErrDraftNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := store.Find(tt.ref)
			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, ErrDraftNotFound) {
					assert.ErrorIs(t, err, ErrDraftNotFound)
				} else {
					assert.Contains(t, err.Error(), tt.wantErr.Error())
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Name)
		})
	}
}

func TestDraftStore_Delete(t *testing.T) {
	store := newTestStore(t)

	d := &Draft{Definition: sampleDefinition("gone")}
	require.NoError(t, store.Save(d))
	require.NoError(t, store.Delete(d.ID))

	_, err := store.Get(d.ID)
	assert.ErrorIs(t, err, ErrDraftNotFound)
	assert.ErrorIs(t, store.Delete(d.ID), ErrDraftNotFound)
}

func TestDraftStore_TestRuns(t *testing.T) {
	store := newTestStore(t)

	d := &Draft{Definition: sampleDefinition("runner")}
	require.NoError(t, store.Save(d))

	ok := &TestRun{DraftID: d.ID, AgentID: "a1", Input: "hello", Response: "hi"}
	require.NoError(t, store.RecordTestRun(ok))
	assert.NotZero(t, ok.ID)

	failed := &TestRun{WorkflowID: "9", AgentID: "a2", Input: "ping", Error: "POST /agents/a2/interact: 500 boom"}
	require.NoError(t, store.RecordTestRun(failed))

	runs, err := store.ListTestRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "ping", runs[0].Input)
	assert.Equal(t, workflow.WorkflowID("9"), runs[0].WorkflowID)
	assert.Contains(t, runs[0].Error, "500")
	assert.Empty(t, runs[0].Response)
	assert.Equal(t, d.ID, runs[1].DraftID)
	assert.Equal(t, "hi", runs[1].Response)

	runs, err = store.ListTestRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	// deleting the draft keeps its runs
	require.NoError(t, store.Delete(d.ID))
	runs, err = store.ListTestRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Empty(t, runs[1].DraftID)

	assert.Error(t, store.RecordTestRun(nil))
}

func BenchmarkDraftStore_SaveGet(b *testing.B) {
	store, err := OpenDraftStore(filepath.Join(b.TempDir(), "bench.db"))
	require.NoError(b, err)
	defer func() { _ = store.Close() }()

	g := workflow.NewGraph()
	var prev *workflow.Node
	for i := 0; i < 50; i++ {
		n := g.AddNode(workflow.NodeTypeTransform, workflow.Position{X: float64(i * 200), Y: 100}, nil)
		if prev != nil {
			g.AddEdge(prev.ID, n.ID)
		}
		prev = n
	}
	d := &Draft{Definition: workflow.Flatten(workflow.Meta{Name: "bench"}, g)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := store.Save(d); err != nil {
			b.Fatal(err)
		}
		if _, err := store.Get(d.ID); err != nil {
			b.Fatal(err)
		}
	}
}
