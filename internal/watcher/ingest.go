package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	amanerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/store"
)

// Adder stores passages; *index.Coordinator implements it.
type Adder interface {
	Add(ctx context.Context, passages []store.Passage) ([]store.StoredPassage, error)
}

// Result describes the handling of one inbox file.
type Result struct {
	Path     string
	Passages int
	// MovedTo is where the file ended up; empty when it was left in place.
	MovedTo string
	Err     error
}

// Ingester decodes inbox files and hands their passages to an Adder.
type Ingester struct {
	adder     Adder
	processed string
	failed    string
	now       func() time.Time
}

// NewIngester creates an ingester moving handled files under inboxDir.
func NewIngester(adder Adder, inboxDir string) *Ingester {
	return &Ingester{
		adder:     adder,
		processed: filepath.Join(inboxDir, ProcessedDir),
		failed:    filepath.Join(inboxDir, FailedDir),
		now:       time.Now,
	}
}

// IngestFile reads path as JSONL passages and adds them.
//   - success: moved to processed
//   - decode or validation error: moved to failed
//   - any other error (embedding, storage): left in place for the next sweep
func (i *Ingester) IngestFile(ctx context.Context, path string) Result {
	res := Result{Path: path}

	passages, err := readFile(path)
	if err != nil {
		res.Err = err
		if amanerrors.GetCode(err) == amanerrors.ErrCodeInvalidInput {
			res.MovedTo = i.move(path, i.failed)
		}
		i.log(res)
		return res
	}

	if len(passages) > 0 {
		if _, err := i.adder.Add(ctx, passages); err != nil {
			res.Err = err
			i.log(res)
			return res
		}
	}
	res.Passages = len(passages)
	res.MovedTo = i.move(path, i.processed)
	i.log(res)
	return res
}

func readFile(path string) ([]store.Passage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, amanerrors.New(amanerrors.ErrCodeFileNotFound, "open inbox file", err).
			WithDetail("path", path)
	}
	defer f.Close()
	return store.ReadJSONL(f)
}

// move renames path into dir, suffixing a timestamp when the name is taken.
// It returns the new path, or "" when the move failed.
func (i *Ingester) move(path, dir string) string {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("inbox_move_failed", slog.String("path", path), slog.String("error", err.Error()))
		return ""
	}
	name := filepath.Base(path)
	dest := filepath.Join(dir, name)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(name)
		dest = filepath.Join(dir, fmt.Sprintf("%s-%s%s",
			strings.TrimSuffix(name, ext), i.now().Format("20060102-150405.000"), ext))
	}
	if err := os.Rename(path, dest); err != nil {
		slog.Warn("inbox_move_failed", slog.String("path", path), slog.String("error", err.Error()))
		return ""
	}
	return dest
}

func (i *Ingester) log(res Result) {
	if res.Err != nil {
		slog.Warn("inbox_file_failed",
			append([]any{slog.String("path", res.Path), slog.String("moved_to", res.MovedTo)},
				amanerrors.LogAttrs(res.Err)...)...)
		return
	}
	slog.Info("inbox_file_ingested",
		slog.String("path", res.Path),
		slog.Int("passages", res.Passages),
		slog.String("moved_to", res.MovedTo))
}
