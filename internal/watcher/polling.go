package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// poller detects inbox changes by listing the directory on an interval.
// It is the fallback when fsnotify cannot be initialised.
type poller struct {
	dir      string
	opts     Options
	interval time.Duration
	state    map[string]fileSnapshot
}

func newPoller(dir string, opts Options) *poller {
	return &poller{
		dir:      dir,
		opts:     opts,
		interval: opts.PollInterval,
		state:    make(map[string]fileSnapshot),
	}
}

// run emits events until ctx is done. The first scan only records a
// baseline; files present at start are handled by the watcher's sweep.
func (p *poller) run(ctx context.Context, emit func(FileEvent)) error {
	if _, err := p.scan(); err != nil {
		return err
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			events, err := p.scan()
			if err != nil {
				return err
			}
			for _, e := range events {
				emit(e)
			}
		}
	}
}

// scan lists matching files and diffs them against the previous scan.
func (p *poller) scan() ([]FileEvent, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("scan inbox: %w", err)
	}

	now := time.Now()
	current := make(map[string]fileSnapshot, len(entries))
	var events []FileEvent
	for _, entry := range entries {
		if entry.IsDir() || !p.opts.matches(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(p.dir, entry.Name())
		snap := fileSnapshot{modTime: info.ModTime(), size: info.Size()}
		current[path] = snap

		prev, seen := p.state[path]
		switch {
		case !seen:
			events = append(events, FileEvent{Path: path, Operation: OpCreate, Timestamp: now})
		case prev != snap:
			events = append(events, FileEvent{Path: path, Operation: OpModify, Timestamp: now})
		}
	}
	for path := range p.state {
		if _, ok := current[path]; !ok {
			events = append(events, FileEvent{Path: path, Operation: OpDelete, Timestamp: now})
		}
	}

	p.state = current
	return events, nil
}
