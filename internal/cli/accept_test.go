package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/rungate/internal/accept"
	"github.com/ppiankov/rungate/internal/config"
	"github.com/ppiankov/rungate/internal/history"
	"github.com/ppiankov/rungate/internal/reporter"
)

const stubScript = `#!/bin/sh
case "$1" in
	--help) exit 0 ;;
	show) echo "run record for $2" ;;
	replay)
		if [ "$3" = "--dry_run" ]; then
			echo "plan only"
		else
			echo "Replaying..."
			echo "NEW_RUN_ID: run-99"
		fi ;;
	judge) echo "judged $2" ;;
	gate_judge) exit "${GATE_EXIT:-0}" ;;
	compare_judge) echo "compared $2 $3" ;;
	*) exit 64 ;;
esac
exit 0
`

// stubSettings builds Settings pointing at a stub tool script and
// throwaway run/history paths.
func stubSettings(t *testing.T, toolEnv map[string]string) *config.Settings {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "runs.sh")
	if err := os.WriteFile(script, []byte(stubScript), 0o755); err != nil {
		t.Fatal(err)
	}
	return &config.Settings{
		ToolCommand: []string{script},
		ToolEnv:     toolEnv,
		RunDir:      filepath.Join(dir, "gate"),
		HistoryDB:   filepath.Join(dir, "gate", "history.db"),
	}
}

func findReport(t *testing.T, runDir string) *accept.Report {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(runDir, "*", "report.json"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one report.json under %s, got %v (%v)", runDir, matches, err)
	}
	rep, err := reporter.ReadJSONReport(matches[0])
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	return rep
}

func lastHistoryEntry(t *testing.T, cfg *config.Settings) *history.Entry {
	t.Helper()
	store, err := history.Open(cfg.ResolvedHistoryDB())
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer func() { _ = store.Close() }()

	entries, err := store.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one history entry, got %d", len(entries))
	}
	return entries[0]
}

func TestAcceptOncePassed(t *testing.T) {
	cfg := stubSettings(t, nil)

	if err := acceptOnce(context.Background(), "run-42", cfg, acceptOptions{}); err != nil {
		t.Fatalf("acceptOnce failed: %v", err)
	}

	rep := findReport(t, cfg.RunDir)
	if !rep.Passed {
		t.Error("report not marked passed")
	}
	if rep.NewRunID != "run-99" {
		t.Errorf("new run id: got %q, want run-99", rep.NewRunID)
	}
	if len(rep.Steps) != 7 {
		t.Errorf("steps: got %d, want 7", len(rep.Steps))
	}

	entry := lastHistoryEntry(t, cfg)
	if entry.Status != history.StatusPassed {
		t.Errorf("history status: got %q", entry.Status)
	}
	if entry.RunID != "run-42" || entry.NewRunID != "run-99" {
		t.Errorf("history ids: got %q -> %q", entry.RunID, entry.NewRunID)
	}

	// transcript should exist alongside the report
	transcripts, _ := filepath.Glob(filepath.Join(cfg.RunDir, "*", "transcript.log"))
	if len(transcripts) != 1 {
		t.Errorf("expected one transcript.log, got %v", transcripts)
	}
}

func TestAcceptOnceGateFailure(t *testing.T) {
	cfg := stubSettings(t, map[string]string{"GATE_EXIT": "1"})

	err := acceptOnce(context.Background(), "run-42", cfg, acceptOptions{})
	var gateErr *accept.GateError
	if !errors.As(err, &gateErr) {
		t.Fatalf("expected GateError, got %v", err)
	}

	rep := findReport(t, cfg.RunDir)
	if rep.Passed {
		t.Error("report must not be marked passed")
	}

	entry := lastHistoryEntry(t, cfg)
	if entry.Status != history.StatusFailed {
		t.Errorf("history status: got %q", entry.Status)
	}
	if entry.NewRunID != "run-99" {
		t.Errorf("history should keep the replayed id, got %q", entry.NewRunID)
	}
}

func TestAcceptOnceNoHistory(t *testing.T) {
	cfg := stubSettings(t, nil)

	if err := acceptOnce(context.Background(), "run-42", cfg, acceptOptions{noHistory: true}); err != nil {
		t.Fatalf("acceptOnce failed: %v", err)
	}
	if _, err := os.Stat(cfg.HistoryDB); !os.IsNotExist(err) {
		t.Error("history db should not be created with --no-history")
	}
}
