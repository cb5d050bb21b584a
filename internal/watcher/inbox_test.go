package watcher

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, inbox string, adder Adder, opts Options) *InboxWatcher {
	t.Helper()
	w, err := New(inbox, NewIngester(adder, inbox), opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	return w
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", NewIngester(&recordingAdder{}, "x"), DefaultOptions())
	assert.Error(t, err)

	_, err = New(t.TempDir(), nil, DefaultOptions())
	assert.Error(t, err)
}

func TestInboxWatcher_SweepsExistingFiles(t *testing.T) {
	// Given: a file already waiting in the inbox
	inbox := t.TempDir()
	writeFile(t, filepath.Join(inbox, "waiting.jsonl"), twoPassages)
	adder := &recordingAdder{}

	// When: the watcher starts
	w := startWatcher(t, inbox, adder, Options{DebounceWindow: 20 * time.Millisecond})

	// Then: the file is ingested without any new event
	res := waitResult(t, w, 2*time.Second)
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Passages)
	assert.FileExists(t, processedPath(inbox, "waiting.jsonl"))
}

func TestInboxWatcher_IngestsNewFiles(t *testing.T) {
	modes := []struct {
		name string
		opts Options
	}{
		{"fsnotify", Options{DebounceWindow: 20 * time.Millisecond}},
		{"polling", Options{DebounceWindow: 20 * time.Millisecond, PollInterval: 20 * time.Millisecond, ForcePolling: true}},
	}

	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			// Given: a running watcher on an empty inbox
			inbox := t.TempDir()
			adder := &recordingAdder{}
			w := startWatcher(t, inbox, adder, mode.opts)
			time.Sleep(50 * time.Millisecond)

			// When: a passage file and an unrelated file are dropped in
			writeFile(t, filepath.Join(inbox, "notes.txt"), "not passages")
			writeFile(t, filepath.Join(inbox, "cats.jsonl"), twoPassages)

			// Then: only the passage file is ingested
			res := waitResult(t, w, 3*time.Second)
			require.NoError(t, res.Err)
			assert.Equal(t, filepath.Join(w.Dir(), "cats.jsonl"), res.Path)
			assert.Equal(t, 2, adder.total())
			assert.FileExists(t, filepath.Join(inbox, "notes.txt"))
		})
	}
}
