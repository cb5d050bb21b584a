package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	amanerrors "github.com/Aman-CERP/amanrag/internal/errors"
)

// LockFileName is the lock file created inside the data directory.
const LockFileName = ".amanrag.lock"

// DataDirLock guards a data directory against a second writer process.
// Readers (ask, sources) do not take it.
type DataDirLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewDataDirLock creates a lock for dir. Nothing is acquired until TryLock.
func NewDataDirLock(dir string) *DataDirLock {
	path := filepath.Join(dir, LockFileName)
	return &DataDirLock{
		path:  path,
		flock: flock.New(path),
	}
}

// Path returns the lock file path.
func (l *DataDirLock) Path() string {
	return l.path
}

// TryLock acquires the lock without blocking. A lock held by another process
// yields ERR_204_DATA_DIR_LOCKED.
func (l *DataDirLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire data dir lock: %w", err)
	}
	if !acquired {
		return amanerrors.New(amanerrors.ErrCodeDataDirLocked,
			"data directory is in use by another amanrag process", nil).
			WithDetail("lock", l.path).
			WithSuggestion("Stop the other 'amanrag serve' or 'amanrag mcp' process, or use a different data_dir")
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Calling it on an unheld lock is a no-op.
func (l *DataDirLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release data dir lock: %w", err)
	}
	l.locked = false
	return nil
}

// Locked reports whether this handle holds the lock.
func (l *DataDirLock) Locked() bool {
	return l.locked
}
