package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/flowcanvas/pkg/canvas"
	"github.com/dshills/flowcanvas/pkg/storage"
)

// NewTestCommand creates the test command
func NewTestCommand() *cobra.Command {
	var (
		input      string
		useStdin   bool
		outputJSON bool
		noRecord   bool
	)

	cmd := &cobra.Command{
		Use:   "test <workflow-file>",
		Short: "Test-run the agent step of a workflow",
		Long: `Send test input to the agent step of a workflow and print its reply.

The workflow must have one Input, at least one Agent and one Output step
connected Input → Agent → Output. Exactly one interaction call is made; the
rest of the workflow is not executed. Runs are recorded in the local
test-run log (see 'flowcanvas runs').

Examples:
  flowcanvas test translate.yaml --input "Hello"
  echo "Hello" | flowcanvas test translate.yaml --stdin
  flowcanvas test translate.yaml --input "Hello" --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if useStdin {
				data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxCredentialSize))
				if err != nil {
					return fmt.Errorf("failed to read from stdin: %w", err)
				}
				input = strings.TrimRight(string(data), "\r\n")
			}

			def, g, err := LoadGraphFile(args[0])
			if err != nil {
				return err
			}

			req, err := canvas.PrepareTestRun(g, input)
			if err != nil {
				return err
			}

			client, err := newBackendClient()
			if err != nil {
				return err
			}

			res, runErr := req.Send(contextOrBackground(cmd), client)

			if !noRecord {
				run := testRunRecord(req, res, runErr)
				run.WorkflowID = def.ID
				if err := recordTestRun(run); err != nil {
					log.Printf("cli: test run not recorded: %v", err)
				}
			}

			if runErr != nil {
				return fmt.Errorf("test run failed: %w", runErr)
			}

			if outputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]string{
					"agent_id": res.AgentID.String(),
					"input":    res.Input,
					"response": res.Response,
				})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.Response)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Test input sent to the agent")
	cmd.Flags().BoolVar(&useStdin, "stdin", false, "Read the test input from stdin")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not record the run in the test-run log")
	cmd.MarkFlagsMutuallyExclusive("input", "stdin")

	return cmd
}

func recordTestRun(run *storage.TestRun) error {
	store, err := openDrafts()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return store.RecordTestRun(run)
}

// NewRunsCommand creates the runs command listing the test-run log
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent test runs",
		Long: `Show the local log of test runs made from the builder or 'flowcanvas test',
newest first.

Examples:
  flowcanvas runs
  flowcanvas runs --limit 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openDrafts()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListTestRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No test runs recorded.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "TIME\tAGENT\tWORKFLOW\tINPUT\tRESULT")
			for _, r := range runs {
				result := "✓ " + truncateString(oneLine(r.Response), 40)
				if r.Error != "" {
					result = "✗ " + truncateString(oneLine(r.Error), 40)
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					r.AgentID,
					dash(r.WorkflowID.String()),
					truncateString(oneLine(r.Input), 30),
					result,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")

	return cmd
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
