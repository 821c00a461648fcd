package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadSettings_Valid(t *testing.T) {
	content := `
tool_command: ["python3", "-m", "autoops.tools.runs"]
tool_dir: /srv/autoops
run_dir: /var/lib/rungate
history_db: /var/lib/rungate/history.db
drop_dir: /srv/drops
poll_mode: true
`
	path := writeTemp(t, content)
	s, err := LoadSettings(path)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"python3", "-m", "autoops.tools.runs"}
	if !reflect.DeepEqual(s.ToolCommand, want) {
		t.Errorf("tool_command: got %v, want %v", s.ToolCommand, want)
	}
	if s.ToolDir != "/srv/autoops" {
		t.Errorf("tool_dir: got %q", s.ToolDir)
	}
	if s.RunDir != "/var/lib/rungate" {
		t.Errorf("run_dir: got %q", s.RunDir)
	}
	if s.DropDir != "/srv/drops" {
		t.Errorf("drop_dir: got %q", s.DropDir)
	}
	if !s.PollMode {
		t.Error("poll_mode: got false, want true")
	}
}

func TestLoadSettings_MissingFile(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "nonexistent.yml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(s.ToolCommand) != 0 {
		t.Errorf("expected zero-value settings, got tool_command=%v", s.ToolCommand)
	}
}

func TestLoadSettings_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "tool_command: [invalid\n")
	_, err := LoadSettings(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestResolvedDefaults(t *testing.T) {
	s := &Settings{}

	if got := s.ResolvedToolCommand(); got[0] != "python3" {
		t.Errorf("default tool command: got %v", got)
	}
	if got := s.ResolvedRunDir(); got != ".rungate" {
		t.Errorf("default run dir: got %q", got)
	}
	if got := s.ResolvedHistoryDB(); got != filepath.Join(".rungate", "history.db") {
		t.Errorf("default history db: got %q", got)
	}
}

func TestResolvedHistoryDBFollowsRunDir(t *testing.T) {
	s := &Settings{RunDir: "/tmp/gate"}
	if got := s.ResolvedHistoryDB(); got != filepath.Join("/tmp/gate", "history.db") {
		t.Errorf("history db: got %q", got)
	}
}

func TestEnvSlice(t *testing.T) {
	s := &Settings{ToolEnv: map[string]string{
		"OPENAI_API_KEY": "x",
		"AUTOOPS_DATA":   "/data",
	}}
	got := s.EnvSlice()
	want := []string{"AUTOOPS_DATA=/data", "OPENAI_API_KEY=x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("env slice: got %v, want %v", got, want)
	}

	if (&Settings{}).EnvSlice() != nil {
		t.Error("empty env should yield nil")
	}
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".rungate.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
