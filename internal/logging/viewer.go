package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
)

// maxLineSize bounds a single log line read by the viewer.
const maxLineSize = 1 << 20

// Entry is one parsed log line.
type Entry struct {
	Time  time.Time
	Level string
	Msg   string
	Attrs map[string]any
	Raw   string
	Valid bool
}

// Filter selects entries.
type Filter struct {
	// Level is the minimum level; empty accepts all.
	Level string
	// Pattern must match the raw line when set.
	Pattern *regexp.Regexp
}

// Viewer reads, filters and formats log files.
type Viewer struct {
	filter Filter
	color  bool
	out    io.Writer

	levelStyles map[string]lipgloss.Style
	timeStyle   lipgloss.Style
	attrStyle   lipgloss.Style
}

// NewViewer creates a viewer writing formatted entries to out.
func NewViewer(filter Filter, color bool, out io.Writer) *Viewer {
	return &Viewer{
		filter: filter,
		color:  color,
		out:    out,
		levelStyles: map[string]lipgloss.Style{
			"DEBUG": lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
			"INFO":  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
			"WARN":  lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
			"ERROR": lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		},
		timeStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		attrStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

// Tail returns the matching entries among the last n lines of path.
func (v *Viewer) Tail(path string, n int) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ring := make([]string, 0, n)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		if n <= 0 {
			continue
		}
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	entries := make([]Entry, 0, len(ring))
	for _, line := range ring {
		if e := ParseLine(line); v.Match(e) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Follow sends entries appended to path until ctx is done.
func (v *Viewer) Follow(ctx context.Context, path string, entries chan<- Entry) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek log file: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watch log file: %w", err)
	}

	reader := bufio.NewReaderSize(f, 64*1024)
	var partial string
	drain := func() error {
		for {
			chunk, err := reader.ReadString('\n')
			if err == io.EOF {
				partial += chunk
				return nil
			}
			if err != nil {
				return err
			}
			line := strings.TrimRight(partial+chunk, "\r\n")
			partial = ""
			if e := ParseLine(line); v.Match(e) {
				select {
				case entries <- e:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write) {
				if err := drain(); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return fmt.Errorf("read log file: %w", err)
				}
			}
			// Rotation renames the file away; stop following it.
			if ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch log file: %w", err)
		}
	}
}

// ParseLine parses one JSON log line. Lines that are not JSON are kept raw.
func ParseLine(line string) Entry {
	e := Entry{Raw: line}
	var data map[string]any
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return e
	}
	e.Valid = true

	if s, ok := data[slog.TimeKey].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			e.Time = t
		}
	}
	e.Level, _ = data[slog.LevelKey].(string)
	e.Msg, _ = data[slog.MessageKey].(string)

	delete(data, slog.TimeKey)
	delete(data, slog.LevelKey)
	delete(data, slog.MessageKey)
	e.Attrs = data
	return e
}

// Match reports whether e passes the filter. Unparseable lines pass the
// level filter.
func (v *Viewer) Match(e Entry) bool {
	if v.filter.Level != "" && e.Valid && ParseLevel(e.Level) < ParseLevel(v.filter.Level) {
		return false
	}
	if v.filter.Pattern != nil && !v.filter.Pattern.MatchString(e.Raw) {
		return false
	}
	return true
}

// Format renders e as one line with attributes sorted by key.
func (v *Viewer) Format(e Entry) string {
	if !e.Valid {
		return e.Raw
	}

	level := strings.ToUpper(e.Level)
	ts := e.Time.Local().Format("15:04:05.000")
	attrs := make([]string, 0, len(e.Attrs))
	for _, k := range slices.Sorted(maps.Keys(e.Attrs)) {
		attrs = append(attrs, fmt.Sprintf("%s=%v", k, e.Attrs[k]))
	}
	tail := strings.Join(attrs, " ")

	if v.color {
		ts = v.timeStyle.Render(ts)
		if st, ok := v.levelStyles[level]; ok {
			level = st.Render(fmt.Sprintf("%-5s", level))
		}
		if tail != "" {
			tail = v.attrStyle.Render(tail)
		}
	} else {
		level = fmt.Sprintf("%-5s", level)
	}

	if tail == "" {
		return fmt.Sprintf("%s %s %s", ts, level, e.Msg)
	}
	return fmt.Sprintf("%s %s %s %s", ts, level, e.Msg, tail)
}

// Print writes the formatted entries.
func (v *Viewer) Print(entries []Entry) {
	for _, e := range entries {
		_, _ = fmt.Fprintln(v.out, v.Format(e))
	}
}
