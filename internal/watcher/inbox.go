package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// InboxWatcher feeds passage files from an inbox directory to an Ingester.
type InboxWatcher struct {
	dir      string
	opts     Options
	ingester *Ingester
	results  chan Result
}

// New creates a watcher for dir. The directory is created if missing.
func New(dir string, ingester *Ingester, opts Options) (*InboxWatcher, error) {
	if dir == "" {
		return nil, errors.New("inbox directory is required")
	}
	if ingester == nil {
		return nil, errors.New("inbox watcher requires an ingester")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve inbox path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create inbox: %w", err)
	}
	return &InboxWatcher{
		dir:      abs,
		opts:     opts.WithDefaults(),
		ingester: ingester,
		results:  make(chan Result, 64),
	}, nil
}

// Dir returns the absolute inbox path.
func (w *InboxWatcher) Dir() string {
	return w.dir
}

// Results reports every handled file. Results are dropped when nobody reads.
func (w *InboxWatcher) Results() <-chan Result {
	return w.results
}

// Run ingests files already in the inbox, then watches for new ones until
// ctx is done. It returns nil on cancellation.
func (w *InboxWatcher) Run(ctx context.Context) error {
	debouncer := NewDebouncer(w.opts.DebounceWindow)
	defer debouncer.Stop()

	sourceErr := make(chan error, 1)
	go func() {
		sourceErr <- w.watch(ctx, debouncer.Add)
	}()

	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sourceErr:
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		case batch := <-debouncer.Output():
			for _, e := range batch {
				if ctx.Err() != nil {
					return nil
				}
				if e.Operation == OpDelete {
					continue
				}
				w.handle(ctx, e.Path)
			}
		}
	}
}

// sweep ingests matching files present before the watch started, oldest name first.
func (w *InboxWatcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		slog.Warn("inbox_sweep_failed", slog.String("dir", w.dir), slog.String("error", err.Error()))
		return
	}
	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() && w.opts.matches(entry.Name()) {
			paths = append(paths, filepath.Join(w.dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	for _, p := range paths {
		if ctx.Err() != nil {
			return
		}
		w.handle(ctx, p)
	}
}

func (w *InboxWatcher) handle(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		// already moved by the sweep or removed by the user
		return
	}
	res := w.ingester.IngestFile(ctx, path)
	select {
	case w.results <- res:
	default:
	}
}

// watch feeds inbox events to emit, using fsnotify unless it is unavailable.
func (w *InboxWatcher) watch(ctx context.Context, emit func(FileEvent)) error {
	if !w.opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			if err = fsw.Add(w.dir); err == nil {
				slog.Info("inbox_watch_started", slog.String("dir", w.dir), slog.String("mode", "fsnotify"))
				return w.watchFsnotify(ctx, fsw, emit)
			}
			_ = fsw.Close()
		}
		slog.Warn("inbox_fsnotify_unavailable", slog.String("error", err.Error()))
	}
	slog.Info("inbox_watch_started", slog.String("dir", w.dir), slog.String("mode", "polling"),
		slog.Duration("interval", w.opts.PollInterval))
	return newPoller(w.dir, w.opts).run(ctx, emit)
}

func (w *InboxWatcher) watchFsnotify(ctx context.Context, fsw *fsnotify.Watcher, emit func(FileEvent)) error {
	defer fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.opts.matches(event.Name) {
				continue
			}
			var op Operation
			switch {
			case event.Op&fsnotify.Create != 0:
				op = OpCreate
			case event.Op&fsnotify.Write != 0:
				op = OpModify
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				op = OpDelete
			default:
				continue
			}
			emit(FileEvent{Path: event.Name, Operation: op, Timestamp: time.Now()})
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("inbox_watch_error", slog.String("error", err.Error()))
		}
	}
}
