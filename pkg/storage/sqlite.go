package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/dshills/flowcanvas/pkg/workflow"
)

// ErrDraftNotFound is returned when no draft has the requested id
var ErrDraftNotFound = errors.New("draft not found")

// Draft is a locally saved, possibly unsubmitted, workflow
type Draft struct {
	ID         string
	Name       string
	WorkflowID workflow.WorkflowID
	Definition workflow.Definition
	UpdatedAt  time.Time
}

// TestRun is one logged test of a workflow's agent step
type TestRun struct {
	ID         int64
	DraftID    string
	WorkflowID workflow.WorkflowID
	AgentID    workflow.AgentID
	Input      string
	Response   string
	Error      string
	CreatedAt  time.Time
}

// SQLiteDraftStore keeps drafts and the test-run log in a local SQLite
// database.
type SQLiteDraftStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenDraftStore opens or creates the database at dbPath
func OpenDraftStore(dbPath string) (*SQLiteDraftStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := InitializeDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &SQLiteDraftStore{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (r *SQLiteDraftStore) Close() error {
	return r.db.Close()
}

// Save inserts or replaces a draft. A draft without an id gets a new one;
// the id and timestamp are written back into d.
func (r *SQLiteDraftStore) Save(d *Draft) error {
	if d == nil {
		return fmt.Errorf("cannot save nil draft")
	}
	if strings.TrimSpace(d.Name) == "" {
		d.Name = d.Definition.Name
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("draft must have a name")
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.WorkflowID.IsZero() {
		d.WorkflowID = d.Definition.ID
	}

	data, err := json.Marshal(d.Definition)
	if err != nil {
		return fmt.Errorf("failed to marshal definition: %w", err)
	}

	var workflowID sql.NullString
	if !d.WorkflowID.IsZero() {
		workflowID = sql.NullString{String: d.WorkflowID.String(), Valid: true}
	}

	d.UpdatedAt = r.now().UTC()

	query := `
		INSERT INTO drafts (id, name, workflow_id, definition, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			workflow_id = excluded.workflow_id,
			definition = excluded.definition,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, d.ID, d.Name, workflowID, string(data), d.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Get returns the draft with id
func (r *SQLiteDraftStore) Get(id string) (*Draft, error) {
	if id == "" {
		return nil, fmt.Errorf("draft ID cannot be empty")
	}

	query := `
		SELECT id, name, workflow_id, definition, updated_at
		FROM drafts
		WHERE id = ?
	`
	d, err := scanDraft(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return d, nil
}

// Find returns the draft whose id starts with prefix, or whose name
// matches exactly
func (r *SQLiteDraftStore) Find(ref string) (*Draft, error) {
	if d, err := r.Get(ref); err == nil {
		return d, nil
	} else if !errors.Is(err, ErrDraftNotFound) {
		return nil, err
	}

	drafts, err := r.List()
	if err != nil {
		return nil, err
	}
	var match *Draft
	for _, d := range drafts {
		if d.Name == ref || strings.HasPrefix(d.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("draft reference %q is ambiguous", ref)
			}
			match = d
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, ref)
	}
	return match, nil
}

// List returns all drafts, most recently updated first
func (r *SQLiteDraftStore) List() ([]*Draft, error) {
	query := `
		SELECT id, name, workflow_id, definition, updated_at
		FROM drafts
		ORDER BY updated_at DESC, name
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query drafts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	drafts := make([]*Draft, 0)
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		drafts = append(drafts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drafts: %w", err)
	}
	return drafts, nil
}

// Delete removes a draft
func (r *SQLiteDraftStore) Delete(id string) error {
	res, err := r.db.Exec("DELETE FROM drafts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	return nil
}

// RecordTestRun appends a test run to the log
func (r *SQLiteDraftStore) RecordTestRun(run *TestRun) error {
	if run == nil {
		return fmt.Errorf("cannot record nil test run")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = r.now().UTC()
	}

	res, err := r.db.Exec(`
		INSERT INTO test_runs (draft_id, workflow_id, agent_id, input, response, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullString(run.DraftID),
		nullString(run.WorkflowID.String()),
		run.AgentID.String(),
		run.Input,
		nullString(run.Response),
		nullString(run.Error),
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record test run: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		run.ID = id
	}
	return nil
}

// ListTestRuns returns the newest test runs first, at most limit of them
// (all when limit <= 0)
func (r *SQLiteDraftStore) ListTestRuns(limit int) ([]*TestRun, error) {
	query := `
		SELECT id, draft_id, workflow_id, agent_id, input, response, error_message, created_at
		FROM test_runs
		ORDER BY created_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query test runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]*TestRun, 0)
	for rows.Next() {
		var run TestRun
		var draftID, workflowID, response, errMsg sql.NullString
		var agentID string
		if err := rows.Scan(&run.ID, &draftID, &workflowID, &agentID, &run.Input, &response, &errMsg, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan test run: %w", err)
		}
		run.DraftID = draftID.String
		run.WorkflowID = workflow.WorkflowID(workflowID.String)
		run.AgentID = workflow.AgentID(agentID)
		run.Response = response.String
		run.Error = errMsg.String
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating test runs: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*Draft, error) {
	var d Draft
	var workflowID sql.NullString
	var data string
	if err := row.Scan(&d.ID, &d.Name, &workflowID, &data, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.WorkflowID = workflow.WorkflowID(workflowID.String)
	if err := json.Unmarshal([]byte(data), &d.Definition); err != nil {
		return nil, fmt.Errorf("failed to decode draft definition: %w", err)
	}
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
