package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rungate/internal/accept"
	"github.com/ppiankov/rungate/internal/config"
	"github.com/ppiankov/rungate/internal/history"
	"github.com/ppiankov/rungate/internal/reporter"
	"github.com/ppiankov/rungate/internal/tool"
)

func newAcceptCmd() *cobra.Command {
	var (
		jsonOut   bool
		noHistory bool
	)

	cmd := &cobra.Command{
		Use:   "accept <run-id>",
		Short: "Replay a recorded run and gate the result on judge thresholds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSettings(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			return acceptOnce(ctx, args[0], cfg, acceptOptions{
				jsonOut:   jsonOut,
				noHistory: noHistory,
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "also print the report as JSON for CI")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "skip recording the attempt to the history store")

	return cmd
}

// acceptOptions holds per-invocation settings for acceptOnce.
type acceptOptions struct {
	jsonOut   bool
	noHistory bool
}

// acceptOnce runs the full acceptance sequence for one run id: transcript
// directory, reporter, tool wiring, report.json, history row. Shared by
// the accept and watch commands.
func acceptOnce(ctx context.Context, runID string, cfg *config.Settings, opts acceptOptions) error {
	// prepare transcript directory
	runDir := filepath.Join(cfg.ResolvedRunDir(), time.Now().Format("20060102-150405"))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}

	transcript, err := os.Create(filepath.Join(runDir, "transcript.log"))
	if err != nil {
		return fmt.Errorf("create transcript: %w", err)
	}
	defer func() { _ = transcript.Close() }()

	out := io.MultiWriter(os.Stdout, transcript)

	rep := reporter.NewTextReporter(out, isTerminal())
	rep.PrintHeader(runID)

	tl := tool.New(cfg.ResolvedToolCommand())
	tl.Dir = cfg.ToolDir
	tl.Env = cfg.EnvSlice()
	tl.Out = out
	tl.Err = io.MultiWriter(os.Stderr, transcript)

	slog.Info("starting acceptance", "run_id", runID, "run_dir", runDir)

	runner := accept.NewRunner(tl, rep)
	report, runErr := runner.Run(ctx, runID)

	rep.PrintSummary(report)

	reportPath := filepath.Join(runDir, "report.json")
	if err := reporter.WriteJSONReport(report, reportPath); err != nil {
		slog.Warn("failed to write report", "error", err)
	} else {
		fmt.Fprintf(os.Stdout, "\nReport: %s\n", reportPath)
	}

	if opts.jsonOut {
		data, err := json.Marshal(report)
		if err != nil {
			slog.Warn("failed to marshal report", "error", err)
		} else {
			fmt.Fprintln(os.Stdout, string(data))
		}
	}

	if !opts.noHistory {
		recordHistory(cfg, report)
	}

	return runErr
}

// recordHistory persists the attempt. Best-effort: a broken history store
// never masks the acceptance verdict. Runs on a fresh context so an
// interrupted acceptance still gets recorded.
func recordHistory(cfg *config.Settings, report *accept.Report) {
	ctx := context.Background()
	store, err := history.Open(cfg.ResolvedHistoryDB())
	if err != nil {
		slog.Warn("history store unavailable", "error", err)
		return
	}
	defer func() { _ = store.Close() }()

	status := history.StatusFailed
	if report.Passed {
		status = history.StatusPassed
	}
	entry := &history.Entry{
		RunID:          report.RunID,
		NewRunID:       report.NewRunID,
		Status:         status,
		Error:          report.Error,
		StepsCompleted: report.StepsCompleted(),
		StartedAt:      report.StartedAt,
		FinishedAt:     report.FinishedAt,
		Duration:       report.Duration,
	}
	if err := store.Record(ctx, entry); err != nil {
		slog.Warn("failed to record history", "error", err)
	}
}

// signalContext returns a context cancelled on SIGINT. The in-flight tool
// invocation is killed via CommandContext.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\ninterrupted — aborting current step...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
