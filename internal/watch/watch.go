// Package watch turns rungate into a small daemon: it watches a drop
// directory for *.runid files and runs the acceptance sequence for each
// run id that lands there.
package watch

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDefault is the debounce interval for file events.
const debounceDefault = 200 * time.Millisecond

// pollDefault is the polling interval when fsnotify is unavailable.
const pollDefault = 5 * time.Second

// AcceptFunc runs the acceptance sequence for one run id.
// Injected from the CLI layer to break the import cycle with the accept
// command plumbing.
type AcceptFunc func(ctx context.Context, runID string) error

// Config holds watcher configuration.
type Config struct {
	DropDir  string     // directory watched for *.runid files
	PollMode bool       // poll instead of fsnotify
	AcceptFn AcceptFunc // injected acceptance execution
}

// Dirs holds the drop directory layout.
type Dirs struct {
	Drop      string // source: *.runid files land here
	Processed string // files whose acceptance passed
	Failed    string // files whose acceptance failed
}

// NewDirs creates a Dirs rooted at the drop directory.
func NewDirs(drop string) Dirs {
	return Dirs{
		Drop:      drop,
		Processed: filepath.Join(drop, "processed"),
		Failed:    filepath.Join(drop, "failed"),
	}
}

// EnsureDirs creates the processed/ and failed/ directories.
func EnsureDirs(d Dirs) error {
	for _, dir := range []string{d.Drop, d.Processed, d.Failed} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// Watcher processes dropped run-id files sequentially: acceptance runs
// never overlap, matching the strictly serial acceptance flow.
type Watcher struct {
	cfg  Config
	dirs Dirs
}

// New creates a watcher with validated configuration.
func New(cfg Config) (*Watcher, error) {
	if cfg.DropDir == "" {
		return nil, fmt.Errorf("drop directory is required")
	}
	if cfg.AcceptFn == nil {
		return nil, fmt.Errorf("accept function is required")
	}
	return &Watcher{cfg: cfg, dirs: NewDirs(cfg.DropDir)}, nil
}

// Run starts the watcher. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := EnsureDirs(w.dirs); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	slog.Info("watch starting", "drop_dir", w.dirs.Drop, "poll", w.cfg.PollMode)

	// Process any run-id files already present.
	if err := w.scanExisting(ctx); err != nil {
		return fmt.Errorf("scan existing: %w", err)
	}

	if w.cfg.PollMode {
		return w.runPollWatcher(ctx)
	}
	return w.runFSWatcher(ctx)
}

// scanExisting processes any .runid files already in the drop directory.
func (w *Watcher) scanExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dirs.Drop)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !isRunIDFile(e.Name()) {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		w.process(ctx, filepath.Join(w.dirs.Drop, e.Name()))
	}
	return nil
}

// runFSWatcher watches the drop directory using fsnotify. Events are
// debounced, then funneled into the select loop so processing stays
// sequential.
func (w *Watcher) runFSWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dirs.Drop); err != nil {
		return fmt.Errorf("watch dir: %w", err)
	}

	slog.Info("watching for run ids", "mode", "fsnotify", "dir", w.dirs.Drop)

	jobs := make(chan string, 64)
	var mu sync.Mutex
	pending := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, t := range pending {
				t.Stop()
			}
			mu.Unlock()
			slog.Info("watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !isRunIDFile(filepath.Base(event.Name)) {
				continue
			}

			path := event.Name
			mu.Lock()
			if t, exists := pending[path]; exists {
				t.Stop()
			}
			pending[path] = time.AfterFunc(debounceDefault, func() {
				mu.Lock()
				delete(pending, path)
				mu.Unlock()
				select {
				case jobs <- path:
				case <-ctx.Done():
				}
			})
			mu.Unlock()

		case path := <-jobs:
			w.process(ctx, path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

// runPollWatcher watches the drop directory using polling.
func (w *Watcher) runPollWatcher(ctx context.Context) error {
	slog.Info("watching for run ids", "mode", "poll", "dir", w.dirs.Drop, "interval", pollDefault)

	ticker := time.NewTicker(pollDefault)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("watch stopped")
			return nil
		case <-ticker.C:
			if err := w.scanExisting(ctx); err != nil {
				slog.Error("poll scan", "error", err)
			}
		}
	}
}

// process reads one dropped file, runs acceptance for the run id it names,
// and moves the file to processed/ or failed/. A file that vanished (picked
// up by an earlier cycle) is skipped silently.
func (w *Watcher) process(ctx context.Context, path string) {
	name := filepath.Base(path)

	runID, err := ReadRunID(path)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		slog.Error("invalid run-id file", "file", name, "error", err)
		w.moveTo(path, w.dirs.Failed)
		return
	}

	slog.Info("processing dropped run id", "file", name, "run_id", runID)

	start := time.Now()
	if err := w.cfg.AcceptFn(ctx, runID); err != nil {
		slog.Warn("acceptance failed", "run_id", runID, "error", err,
			"duration", time.Since(start).Round(time.Second))
		w.moveTo(path, w.dirs.Failed)
		return
	}

	slog.Info("acceptance passed", "run_id", runID,
		"duration", time.Since(start).Round(time.Second))
	w.moveTo(path, w.dirs.Processed)
}

func (w *Watcher) moveTo(path, dir string) {
	dst := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, dst); err != nil {
		slog.Error("move run-id file", "file", filepath.Base(path), "error", err)
	}
}

// ReadRunID returns the first non-empty line of a dropped file, trimmed.
func ReadRunID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no run id in %s", filepath.Base(path))
}

func isRunIDFile(name string) bool {
	return strings.HasSuffix(name, ".runid")
}
