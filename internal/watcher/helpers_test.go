package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanrag/internal/store"
)

// recordingAdder stores every batch it receives.
type recordingAdder struct {
	mu      sync.Mutex
	batches [][]store.Passage
	err     error
}

func (a *recordingAdder) Add(_ context.Context, passages []store.Passage) ([]store.StoredPassage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	a.batches = append(a.batches, passages)
	out := make([]store.StoredPassage, len(passages))
	for i, p := range passages {
		out[i] = store.StoredPassage{ID: p.Metadata.SourceID, Passage: p}
	}
	return out, nil
}

func (a *recordingAdder) total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, b := range a.batches {
		n += len(b)
	}
	return n
}

const twoPassages = `{"text":"Cats purr when content.","source":"cats.pdf","page":1}
{"text":"Kittens sleep most of the day.","source":"cats.pdf","page":2}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// waitResult reads one result or fails after timeout.
func waitResult(t *testing.T, w *InboxWatcher, timeout time.Duration) Result {
	t.Helper()
	select {
	case res := <-w.Results():
		return res
	case <-time.After(timeout):
		t.Fatal("timeout waiting for inbox result")
		return Result{}
	}
}

func processedPath(inbox, name string) string {
	return filepath.Join(inbox, ProcessedDir, name)
}
