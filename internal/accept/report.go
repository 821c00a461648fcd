package accept

import "time"

// StepResult records one executed step of the acceptance sequence.
type StepResult struct {
	Name      string        `json:"name"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Report is the outcome of a full acceptance run.
type Report struct {
	RunID      string        `json:"run_id"`
	NewRunID   string        `json:"new_run_id,omitempty"`
	Passed     bool          `json:"passed"`
	Error      string        `json:"error,omitempty"`
	Steps      []StepResult  `json:"steps"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}

// StepsCompleted counts steps that finished without error.
func (r *Report) StepsCompleted() int {
	n := 0
	for _, s := range r.Steps {
		if s.Error == "" {
			n++
		}
	}
	return n
}
