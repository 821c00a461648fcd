package accept

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Gate thresholds applied to every acceptance run. The gate step always
// receives exactly these values.
const (
	MinScore     = 0.7
	MaxCriticals = 0
)

// Step names, in execution order.
const (
	StepProbe        = "probe"
	StepShow         = "show"
	StepReplayDry    = "replay-dry-run"
	StepReplayReal   = "replay-real"
	StepJudge        = "judge"
	StepGateJudge    = "gate-judge"
	StepCompareJudge = "compare-judge"
)

// ErrNoNewRunID means the real replay finished but its output carried no
// new run identifier. Distinct from a tool failure: the subprocess exited
// zero yet violated the replay output contract.
var ErrNoNewRunID = errors.New("replay did not return NEW_RUN_ID")

// GateError means gate_judge rejected the replayed run. Callers map it to
// a dedicated exit code.
type GateError struct {
	RunID string
	Err   error
}

func (e *GateError) Error() string {
	return fmt.Sprintf("gate_judge rejected run %s: %v", e.RunID, e.Err)
}

func (e *GateError) Unwrap() error { return e.Err }

// Invoker is the surface of the external run CLI consumed by the
// acceptance sequence. Implemented by tool.Tool; faked in tests.
type Invoker interface {
	Probe(ctx context.Context) error
	Show(ctx context.Context, runID string) error
	ReplayDryRun(ctx context.Context, runID string) error
	// Replay executes a real replay and returns the captured stdout.
	Replay(ctx context.Context, runID string) (string, error)
	Judge(ctx context.Context, runID string) error
	GateJudge(ctx context.Context, runID string, minScore float64, maxCriticals int) error
	CompareJudge(ctx context.Context, oldID, newID string) error
}

// Observer receives progress notifications as steps execute.
// Implemented by reporter.TextReporter.
type Observer interface {
	StepStarted(name string)
	StepFinished(name string, err error, d time.Duration)
	NewRunID(id string)
}

// Runner drives the external tool through the fixed acceptance sequence:
// probe, show, replay dry-run, replay real, judge, gate_judge,
// compare_judge. Any step failure aborts the run; nothing is retried.
type Runner struct {
	tool Invoker
	obs  Observer
}

// NewRunner creates an acceptance runner. obs may be nil.
func NewRunner(tool Invoker, obs Observer) *Runner {
	if obs == nil {
		obs = nopObserver{}
	}
	return &Runner{tool: tool, obs: obs}
}

// Run executes the acceptance sequence for runID. The returned report is
// never nil and describes every step that started, including the failing
// one.
func (r *Runner) Run(ctx context.Context, runID string) (*Report, error) {
	if strings.TrimSpace(runID) == "" {
		return &Report{}, fmt.Errorf("run id is required")
	}

	rep := &Report{RunID: runID, StartedAt: time.Now()}

	step := func(name string, fn func(context.Context) error) error {
		r.obs.StepStarted(name)
		start := time.Now()
		err := fn(ctx)
		d := time.Since(start)
		sr := StepResult{Name: name, StartedAt: start, Duration: d}
		if err != nil {
			sr.Error = err.Error()
		}
		rep.Steps = append(rep.Steps, sr)
		r.obs.StepFinished(name, err, d)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}

	if err := step(StepProbe, r.tool.Probe); err != nil {
		return r.failed(rep, err)
	}
	if err := step(StepShow, func(ctx context.Context) error {
		return r.tool.Show(ctx, runID)
	}); err != nil {
		return r.failed(rep, err)
	}
	if err := step(StepReplayDry, func(ctx context.Context) error {
		return r.tool.ReplayDryRun(ctx, runID)
	}); err != nil {
		return r.failed(rep, err)
	}

	var replayOut string
	if err := step(StepReplayReal, func(ctx context.Context) error {
		out, err := r.tool.Replay(ctx, runID)
		replayOut = out
		return err
	}); err != nil {
		return r.failed(rep, err)
	}

	newID := ParseNewRunID(replayOut)
	if newID == "" {
		return r.failed(rep, fmt.Errorf("%s: %w", StepReplayReal, ErrNoNewRunID))
	}
	rep.NewRunID = newID
	r.obs.NewRunID(newID)
	slog.Debug("replay produced new run", "run_id", runID, "new_run_id", newID)

	if err := step(StepJudge, func(ctx context.Context) error {
		return r.tool.Judge(ctx, newID)
	}); err != nil {
		return r.failed(rep, err)
	}
	if err := step(StepGateJudge, func(ctx context.Context) error {
		if err := r.tool.GateJudge(ctx, newID, MinScore, MaxCriticals); err != nil {
			return &GateError{RunID: newID, Err: err}
		}
		return nil
	}); err != nil {
		return r.failed(rep, err)
	}
	if err := step(StepCompareJudge, func(ctx context.Context) error {
		return r.tool.CompareJudge(ctx, runID, newID)
	}); err != nil {
		return r.failed(rep, err)
	}

	rep.Passed = true
	rep.FinishedAt = time.Now()
	rep.Duration = rep.FinishedAt.Sub(rep.StartedAt)
	return rep, nil
}

func (r *Runner) failed(rep *Report, err error) (*Report, error) {
	rep.Error = err.Error()
	rep.FinishedAt = time.Now()
	rep.Duration = rep.FinishedAt.Sub(rep.StartedAt)
	return rep, err
}

type nopObserver struct{}

func (nopObserver) StepStarted(string)                        {}
func (nopObserver) StepFinished(string, error, time.Duration) {}
func (nopObserver) NewRunID(string)                           {}
