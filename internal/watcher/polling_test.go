package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_ScanDetectsChanges(t *testing.T) {
	// Given: a baseline scan of an inbox holding one file
	dir := t.TempDir()
	existing := filepath.Join(dir, "old.jsonl")
	writeFile(t, existing, twoPassages)
	p := newPoller(dir, DefaultOptions())
	events, err := p.scan()
	require.NoError(t, err)
	require.Len(t, events, 1)

	// When: a file is added, the old one modified and a non-matching file dropped
	added := filepath.Join(dir, "new.jsonl")
	writeFile(t, added, twoPassages)
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(existing, later, later))

	events, err = p.scan()
	require.NoError(t, err)

	// Then: one create and one modify are reported
	ops := map[string]Operation{}
	for _, e := range events {
		ops[e.Path] = e.Operation
	}
	assert.Equal(t, map[string]Operation{added: OpCreate, existing: OpModify}, ops)

	// And: removal is reported as delete
	require.NoError(t, os.Remove(added))
	events, err = p.scan()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, OpDelete, events[0].Operation)
}

func TestPoller_MissingDir(t *testing.T) {
	p := newPoller(filepath.Join(t.TempDir(), "missing"), DefaultOptions())

	_, err := p.scan()

	assert.Error(t, err)
}
