package watcher

import (
	"path/filepath"
	"time"
)

// Operation is a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file appeared in the inbox.
	OpCreate Operation = iota
	// OpModify indicates an inbox file was written to.
	OpModify
	// OpDelete indicates an inbox file disappeared.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one observed change to an inbox file.
type FileEvent struct {
	// Path is the absolute path of the file.
	Path      string
	Operation Operation
	Timestamp time.Time
}

const (
	// ProcessedDir receives successfully ingested files.
	ProcessedDir = "processed"
	// FailedDir receives files that could not be decoded.
	FailedDir = "failed"
)

// Options configures the inbox watcher.
type Options struct {
	// Pattern is the file name glob that selects passage files.
	// Default: *.jsonl
	Pattern string

	// DebounceWindow is how long a file must be quiet before it is ingested.
	// Default: 500ms
	DebounceWindow time.Duration

	// PollInterval is the scan interval when fsnotify is unavailable.
	// Default: 5s
	PollInterval time.Duration

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		Pattern:        "*.jsonl",
		DebounceWindow: 500 * time.Millisecond,
		PollInterval:   5 * time.Second,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.Pattern == "" {
		o.Pattern = defaults.Pattern
	}
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	return o
}

// matches reports whether path names a passage file.
func (o Options) matches(path string) bool {
	ok, err := filepath.Match(o.Pattern, filepath.Base(path))
	return err == nil && ok
}
