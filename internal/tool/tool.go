// Package tool adapts the external run-tracking CLI. Every method spawns
// one subprocess invocation of the tool and propagates its exit status;
// collaborator stdout/stderr are streamed through as they arrive.
package tool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Tool invokes the external run CLI (show, replay, judge, gate_judge,
// compare_judge). Zero timeouts and zero retries: a hung invocation blocks
// until the context is cancelled.
type Tool struct {
	Command []string  // argv prefix, e.g. ["python3", "-m", "autoops.tools.runs"]
	Dir     string    // working directory for the subprocess, "" = inherit
	Env     []string  // extra KEY=VALUE entries appended to the inherited env
	Out     io.Writer // collaborator stdout destination, nil = os.Stdout
	Err     io.Writer // collaborator stderr destination, nil = os.Stderr
}

// New creates a Tool with the given argv prefix.
func New(command []string) *Tool {
	return &Tool{Command: command}
}

// Probe invokes the tool's help mode. Output is discarded; only the exit
// status matters.
func (t *Tool) Probe(ctx context.Context) error {
	return t.run(ctx, io.Discard, io.Discard, "--help")
}

// Show streams the stored run record for runID.
func (t *Tool) Show(ctx context.Context, runID string) error {
	return t.run(ctx, t.out(), t.err(), "show", runID)
}

// ReplayDryRun exercises the replay path without side effects.
func (t *Tool) ReplayDryRun(ctx context.Context, runID string) error {
	return t.run(ctx, t.out(), t.err(), "replay", runID, "--dry_run")
}

// Replay executes a real replay. Stdout is streamed and captured; the
// captured text is returned for new-run-id extraction.
func (t *Tool) Replay(ctx context.Context, runID string) (string, error) {
	var buf bytes.Buffer
	err := t.run(ctx, io.MultiWriter(t.out(), &buf), t.err(), "replay", runID)
	return buf.String(), err
}

// Judge streams a judging pass over runID.
func (t *Tool) Judge(ctx context.Context, runID string) error {
	return t.run(ctx, t.out(), t.err(), "judge", runID)
}

// GateJudge applies the judge-based gate to runID. A non-zero exit means
// the run was rejected.
func (t *Tool) GateJudge(ctx context.Context, runID string, minScore float64, maxCriticals int) error {
	return t.run(ctx, t.out(), t.err(), "gate_judge", runID,
		"--min_score", strconv.FormatFloat(minScore, 'f', -1, 64),
		"--max_criticals", strconv.Itoa(maxCriticals))
}

// CompareJudge streams a judged-outcome comparison between two runs.
func (t *Tool) CompareJudge(ctx context.Context, oldID, newID string) error {
	return t.run(ctx, t.out(), t.err(), "compare_judge", oldID, newID)
}

func (t *Tool) run(ctx context.Context, stdout, stderr io.Writer, args ...string) error {
	if len(t.Command) == 0 {
		return fmt.Errorf("tool command is not configured")
	}

	argv := append(append([]string{}, t.Command...), args...)
	slog.Debug("spawning tool", "argv", strings.Join(argv, " "))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = t.Dir
	if len(t.Env) > 0 {
		cmd.Env = append(os.Environ(), t.Env...)
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", subcommand(args), err)
	}
	return nil
}

func (t *Tool) out() io.Writer {
	if t.Out != nil {
		return t.Out
	}
	return os.Stdout
}

func (t *Tool) err() io.Writer {
	if t.Err != nil {
		return t.Err
	}
	return os.Stderr
}

// subcommand names the invocation for error messages: the first non-flag
// argument, or the raw args when there is none.
func subcommand(args []string) string {
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			return a
		}
	}
	return strings.Join(args, " ")
}
