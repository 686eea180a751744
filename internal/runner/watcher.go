package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/haasonsaas/confrag/internal/eval"
	"github.com/haasonsaas/confrag/internal/observability"
)

// Watch event outcomes.
const (
	OutcomeGraded  = "graded"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

// DefaultPattern matches JSON records regardless of extension case.
const DefaultPattern = "*.{json,JSON}"

// WatchOptions configures a Watcher.
type WatchOptions struct {
	// Inbox is the directory received records are dropped into.
	Inbox string
	// TruthDir holds <name>.json ground truth for every inbox/<name>.json.
	TruthDir string
	// Pattern selects record files by base name (doublestar syntax).
	Pattern  string
	Debounce time.Duration

	Logger  *slog.Logger
	Metrics *observability.Metrics
	// OnReport is called after each graded record.
	OnReport func(*eval.Report)
}

// Watcher grades received records as they land in an inbox directory.
type Watcher struct {
	runner  *Runner
	options WatchOptions

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
}

// NewWatcher validates the directories and returns a watcher.
func NewWatcher(runner *Runner, opts WatchOptions) (*Watcher, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	for name, dir := range map[string]string{"inbox": opts.Inbox, "truth dir": opts.TruthDir} {
		if strings.TrimSpace(dir) == "" {
			return nil, fmt.Errorf("%s is required", name)
		}
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s %s is not a directory", name, dir)
		}
	}
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(opts.Pattern) {
		return nil, fmt.Errorf("invalid file pattern %q", opts.Pattern)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 250 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Watcher{runner: runner, options: opts, timers: make(map[string]*time.Timer)}, nil
}

// Run watches the inbox until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(w.options.Inbox); err != nil {
		return fmt.Errorf("watch %s: %w", w.options.Inbox, err)
	}
	w.options.Logger.Info("watching inbox", "inbox", w.options.Inbox, "truth_dir", w.options.TruthDir)

	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isRecordFile(w.options.Pattern, event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.options.Logger.Warn("inbox watch error", "error", err)
		}
	}
}

// schedule debounces events per file so a record written in several chunks is graded once.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.options.Debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.timers[path] != timer {
			w.mu.Unlock()
			return
		}
		delete(w.timers, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		_, _ = w.Process(ctx, path)
	})
	if previous, ok := w.timers[path]; ok && previous.Stop() {
		w.wg.Done()
	}
	w.timers[path] = timer
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for path, timer := range w.timers {
		if timer.Stop() {
			w.wg.Done()
		}
		delete(w.timers, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

// Process grades one received record against the ground truth of the same name.
func (w *Watcher) Process(ctx context.Context, receivedPath string) (*eval.Report, error) {
	name := strings.TrimSuffix(filepath.Base(receivedPath), filepath.Ext(receivedPath))
	truthPath := filepath.Join(w.options.TruthDir, name+".json")
	logger := w.options.Logger.With("received", receivedPath, "truth", truthPath)

	if _, err := os.Stat(truthPath); err != nil {
		w.options.Metrics.RecordWatchEvent(OutcomeSkipped)
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("no ground truth for received record")
		} else {
			logger.Warn("cannot read ground truth", "error", err)
		}
		return nil, err
	}

	report, err := w.runner.GradePair(ctx, name, truthPath, receivedPath)
	if err != nil {
		w.options.Metrics.RecordWatchEvent(OutcomeError)
		logger.Error("grading failed", "error", err)
		return report, err
	}
	outcome := OutcomeGraded
	if report.Summary.Graded == 0 {
		outcome = OutcomeError
	}
	w.options.Metrics.RecordWatchEvent(outcome)
	if w.options.OnReport != nil {
		w.options.OnReport(report)
	}
	return report, nil
}

func isRecordFile(pattern, path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ok, err := doublestar.Match(pattern, base)
	return err == nil && ok
}
