package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/dshills/flowcanvas/pkg/canvas"
	"github.com/dshills/flowcanvas/pkg/storage"
	"github.com/dshills/flowcanvas/pkg/tui"
	"github.com/dshills/flowcanvas/pkg/workflow"
)

// editOptions selects what the builder opens with
type editOptions struct {
	WorkflowID workflow.WorkflowID
	DraftRef   string
	File       string
}

// NewEditCommand creates the edit command
func NewEditCommand() *cobra.Command {
	var opts editOptions

	cmd := &cobra.Command{
		Use:   "edit [workflow-id]",
		Short: "Edit a workflow in the terminal builder",
		Long: `Launch the terminal builder to edit a workflow visually.

With a workflow id the workflow is loaded from the backend. Without one the
builder opens on an empty canvas, or on a local draft or file.

Keys:
  a  add a step        c  connect from selection   x  delete selection
  t  test run          s  save to backend          d  save local draft
  u  undo              r  redo                     Tab  edit fields
  +/-/0  zoom          arrows  pan                 q  quit
Mouse: drag steps, right-click to add at the pointer, wheel to zoom,
middle-drag or shift-drag to pan.

Examples:
  flowcanvas edit
  flowcanvas edit 6f1c2a
  flowcanvas edit --draft 3b9e
  flowcanvas edit --file translate.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.WorkflowID = workflow.WorkflowID(args[0])
			}
			return runEditor(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DraftRef, "draft", "", "Open a local draft (id or unique prefix or name)")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Open a workflow definition file")
	cmd.MarkFlagsMutuallyExclusive("draft", "file")

	return cmd
}

// runEditor wires a session to the backend and local storage and runs the
// terminal builder until the user quits
func runEditor(cmd *cobra.Command, opts editOptions) error {
	client, err := newBackendClient()
	if err != nil {
		return err
	}

	var drafts tui.DraftSaver
	store, err := openDrafts()
	if err != nil {
		// editing still works without drafts or the test-run log
		log.Printf("cli: %v", err)
	} else {
		defer func() { _ = store.Close() }()
		drafts = store
	}

	var (
		app     *tui.App
		session *canvas.Session
	)
	cfg := canvas.SessionConfig{
		Agents:     client,
		Interactor: client,
		Repository: client,
		MinZoom:    GlobalConfig.Settings.ZoomMin,
		MaxZoom:    GlobalConfig.Settings.ZoomMax,
	}
	if store != nil {
		cfg.OnTestRun = func(req canvas.TestRequest, res canvas.TestResult, runErr error) {
			run := testRunRecord(req, res, runErr)
			run.WorkflowID = session.Meta().ID
			if app != nil {
				run.DraftID = app.DraftID()
			}
			if err := store.RecordTestRun(run); err != nil {
				log.Printf("cli: test run not recorded: %v", err)
			}
		}
	}
	session = canvas.NewSession(cfg)

	var draftID string
	switch {
	case opts.WorkflowID != "":
		if err := session.Load(contextOrBackground(cmd), opts.WorkflowID); err != nil {
			return fmt.Errorf("failed to load workflow %s: %w", opts.WorkflowID, err)
		}
	case opts.DraftRef != "":
		if store == nil {
			return fmt.Errorf("drafts are not available")
		}
		d, err := store.Find(opts.DraftRef)
		if err != nil {
			return err
		}
		if err := session.LoadDefinition(d.Definition); err != nil {
			return fmt.Errorf("failed to open draft %s: %w", d.ID, err)
		}
		draftID = d.ID
	case opts.File != "":
		def, err := LoadDefinitionFile(opts.File)
		if err != nil {
			return err
		}
		if err := session.LoadDefinition(*def); err != nil {
			return fmt.Errorf("failed to open %s: %w", opts.File, err)
		}
	}

	app, err = tui.NewApp(tui.Config{Session: session, Drafts: drafts, DraftID: draftID})
	if err != nil {
		return fmt.Errorf("failed to initialize TUI: %w", err)
	}
	app.Start(session.LoadAgentsJob())

	runErr := app.Run()
	// restore the terminal before printing anything
	closeErr := app.Close()
	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	if closeErr != nil {
		return closeErr
	}

	if session.Dirty() {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nUnsaved changes were discarded")
	} else {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nEditing session completed")
	}
	return nil
}

// testRunRecord turns a finished test run into a log entry
func testRunRecord(req canvas.TestRequest, res canvas.TestResult, runErr error) *storage.TestRun {
	run := &storage.TestRun{
		AgentID:  req.AgentID,
		Input:    req.Input,
		Response: res.Response,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	return run
}

// contextOrBackground returns the command context, which is nil when a
// command runs outside Execute
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
