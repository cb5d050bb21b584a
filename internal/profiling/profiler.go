// Package profiling writes pprof profiles for one CLI invocation.
package profiling

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
)

// Profile file names written into the session directory.
const (
	CPUFile       = "cpu.pprof"
	HeapFile      = "heap.pprof"
	AllocsFile    = "allocs.pprof"
	GoroutineFile = "goroutine.pprof"
)

// Session records a CPU profile from Start until Stop, then snapshots the
// heap, allocations and goroutines.
type Session struct {
	dir     string
	cpuFile *os.File
}

// Start creates dir and begins CPU profiling into it.
func Start(dir string) (*Session, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, CPUFile))
	if err != nil {
		return nil, fmt.Errorf("create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("start CPU profile: %w", err)
	}
	return &Session{dir: dir, cpuFile: f}, nil
}

// Dir returns the directory profiles are written to.
func (s *Session) Dir() string {
	return s.dir
}

// Stop ends the CPU profile and writes the snapshot profiles. It is safe to
// call more than once.
func (s *Session) Stop() error {
	if s.cpuFile == nil {
		return nil
	}
	pprof.StopCPUProfile()
	errs := []error{s.cpuFile.Close()}
	s.cpuFile = nil

	runtime.GC()
	errs = append(errs,
		s.write(HeapFile, "heap", 0),
		s.write(AllocsFile, "allocs", 0),
		s.write(GoroutineFile, "goroutine", 1),
	)
	return errors.Join(errs...)
}

func (s *Session) write(name, profile string, debug int) error {
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("create %s profile: %w", profile, err)
	}
	defer func() { _ = f.Close() }()
	if err := pprof.Lookup(profile).WriteTo(f, debug); err != nil {
		return fmt.Errorf("write %s profile: %w", profile, err)
	}
	return nil
}
