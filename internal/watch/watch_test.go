package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeRunIDFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{AcceptFn: func(context.Context, string) error { return nil }}); err == nil {
		t.Error("expected error for missing drop dir")
	}
	if _, err := New(Config{DropDir: t.TempDir()}); err == nil {
		t.Error("expected error for missing accept function")
	}
}

func TestReadRunID(t *testing.T) {
	dir := t.TempDir()

	path := writeRunIDFile(t, dir, "a.runid", "\n  run-42  \nignored\n")
	id, err := ReadRunID(path)
	if err != nil {
		t.Fatalf("ReadRunID failed: %v", err)
	}
	if id != "run-42" {
		t.Errorf("got %q, want run-42", id)
	}

	empty := writeRunIDFile(t, dir, "b.runid", "\n\n   \n")
	if _, err := ReadRunID(empty); err == nil {
		t.Error("expected error for empty file")
	}
}

func TestScanExistingProcessesAndMoves(t *testing.T) {
	drop := t.TempDir()
	writeRunIDFile(t, drop, "ok.runid", "run-1\n")
	writeRunIDFile(t, drop, "bad.runid", "run-2\n")
	writeRunIDFile(t, drop, "notes.txt", "run-3\n") // not a runid file

	var accepted []string
	w, err := New(Config{
		DropDir: drop,
		AcceptFn: func(ctx context.Context, runID string) error {
			accepted = append(accepted, runID)
			if runID == "run-2" {
				return errors.New("gate rejected")
			}
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := EnsureDirs(w.dirs); err != nil {
		t.Fatal(err)
	}

	if err := w.scanExisting(context.Background()); err != nil {
		t.Fatalf("scanExisting failed: %v", err)
	}

	if len(accepted) != 2 {
		t.Fatalf("accepted %v, want run-1 and run-2", accepted)
	}

	if _, err := os.Stat(filepath.Join(w.dirs.Processed, "ok.runid")); err != nil {
		t.Error("passed file not moved to processed/")
	}
	if _, err := os.Stat(filepath.Join(w.dirs.Failed, "bad.runid")); err != nil {
		t.Error("failed file not moved to failed/")
	}
	if _, err := os.Stat(filepath.Join(drop, "notes.txt")); err != nil {
		t.Error("non-runid file should be left alone")
	}
}

func TestProcessInvalidFileGoesToFailed(t *testing.T) {
	drop := t.TempDir()
	path := writeRunIDFile(t, drop, "empty.runid", "   \n")

	w, err := New(Config{
		DropDir: drop,
		AcceptFn: func(ctx context.Context, runID string) error {
			t.Errorf("accept should not run for empty file, got %q", runID)
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := EnsureDirs(w.dirs); err != nil {
		t.Fatal(err)
	}

	w.process(context.Background(), path)

	if _, err := os.Stat(filepath.Join(w.dirs.Failed, "empty.runid")); err != nil {
		t.Error("invalid file not moved to failed/")
	}
}

func TestProcessVanishedFileIsSkipped(t *testing.T) {
	drop := t.TempDir()
	w, err := New(Config{
		DropDir: drop,
		AcceptFn: func(ctx context.Context, runID string) error {
			t.Error("accept should not run for a vanished file")
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := EnsureDirs(w.dirs); err != nil {
		t.Fatal(err)
	}

	w.process(context.Background(), filepath.Join(drop, "gone.runid"))
}

func TestDirsLayout(t *testing.T) {
	d := NewDirs("/srv/drops")
	if d.Processed != filepath.Join("/srv/drops", "processed") {
		t.Errorf("processed: got %q", d.Processed)
	}
	if d.Failed != filepath.Join("/srv/drops", "failed") {
		t.Errorf("failed: got %q", d.Failed)
	}
}
