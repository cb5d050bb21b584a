package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, d *Debouncer) []FileEvent {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced batch")
		return nil
	}
}

func TestDebouncer_SingleEventPassesThrough(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	// When: one event is added
	d.Add(FileEvent{Path: "/inbox/a.jsonl", Operation: OpCreate})

	// Then: it comes out after the window
	batch := receive(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpCreate, batch[0].Operation)
}

func TestDebouncer_Merging(t *testing.T) {
	tests := []struct {
		name  string
		first Operation
		then  Operation
		want  Operation
	}{
		{"create then modify", OpCreate, OpModify, OpCreate},
		{"modify then delete", OpModify, OpDelete, OpDelete},
		{"delete then create", OpDelete, OpCreate, OpModify},
		{"modify then modify", OpModify, OpModify, OpModify},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDebouncer(20 * time.Millisecond)
			defer d.Stop()

			d.Add(FileEvent{Path: "/inbox/a.jsonl", Operation: tt.first})
			d.Add(FileEvent{Path: "/inbox/a.jsonl", Operation: tt.then})

			batch := receive(t, d)
			require.Len(t, batch, 1)
			assert.Equal(t, tt.want, batch[0].Operation)
		})
	}
}

func TestDebouncer_CreateThenDeleteEmitsNothing(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "/inbox/tmp.jsonl", Operation: OpCreate})
	d.Add(FileEvent{Path: "/inbox/tmp.jsonl", Operation: OpDelete})

	select {
	case batch := <-d.Output():
		t.Fatalf("unexpected batch: %v", batch)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncer_BatchIsSortedByPath(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	for _, p := range []string{"/inbox/c.jsonl", "/inbox/a.jsonl", "/inbox/b.jsonl"} {
		d.Add(FileEvent{Path: p, Operation: OpCreate})
	}

	batch := receive(t, d)
	require.Len(t, batch, 3)
	assert.Equal(t, "/inbox/a.jsonl", batch[0].Path)
	assert.Equal(t, "/inbox/b.jsonl", batch[1].Path)
	assert.Equal(t, "/inbox/c.jsonl", batch[2].Path)
}

func TestDebouncer_StopClosesOutput(t *testing.T) {
	d := NewDebouncer(time.Second)
	d.Add(FileEvent{Path: "/inbox/a.jsonl", Operation: OpCreate})

	d.Stop()
	d.Stop()

	_, ok := <-d.Output()
	assert.False(t, ok)
}

func TestOperation_String(t *testing.T) {
	assert.Equal(t, "CREATE", OpCreate.String())
	assert.Equal(t, "MODIFY", OpModify.String())
	assert.Equal(t, "DELETE", OpDelete.String())
	assert.Equal(t, "UNKNOWN", Operation(42).String())
}

func TestOptions_WithDefaults(t *testing.T) {
	opts := Options{}.WithDefaults()

	assert.Equal(t, "*.jsonl", opts.Pattern)
	assert.Equal(t, 500*time.Millisecond, opts.DebounceWindow)
	assert.Equal(t, 5*time.Second, opts.PollInterval)
	assert.True(t, opts.matches("/inbox/batch.jsonl"))
	assert.False(t, opts.matches("/inbox/notes.txt"))
}
