package reporter

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ppiankov/rungate/internal/accept"
)

// WriteJSONReport writes the acceptance report as JSON to the given path.
func WriteJSONReport(report *accept.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

// ReadJSONReport loads an acceptance report written by WriteJSONReport.
func ReadJSONReport(path string) (*accept.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	var report accept.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}

	return &report, nil
}
