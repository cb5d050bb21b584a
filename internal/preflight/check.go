package preflight

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Aman-CERP/amanrag/internal/config"
	"github.com/Aman-CERP/amanrag/internal/index"
	"github.com/Aman-CERP/amanrag/internal/ui"
)

// Status is the outcome of one check.
type Status int

// Check outcomes, from best to worst.
const (
	Pass Status = iota
	Warn
	Fail
)

var statusNames = [...]string{Pass: "PASS", Warn: "WARN", Fail: "FAIL"}

func (s Status) String() string {
	if s < Pass || s > Fail {
		return "UNKNOWN"
	}
	return statusNames[s]
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the outcome of one named check. A Required check that fails
// blocks startup; any other failure is reported as a warning.
type Result struct {
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Message  string `json:"message"`
	Details  string `json:"details,omitempty"`
	Required bool   `json:"required"`
}

// IsCritical reports a failed required check.
func (r Result) IsCritical() bool {
	return r.Required && r.Status == Fail
}

func pass(name, msg string) Result { return Result{Name: name, Status: Pass, Message: msg} }

// Checker runs the checks and prints their report.
type Checker struct {
	verbose bool
	out     io.Writer
	client  *http.Client
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose prints check details.
func WithVerbose(v bool) Option {
	return func(c *Checker) { c.verbose = v }
}

// WithOutput sets where PrintResults writes. Default: stdout.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) { c.out = w }
}

// WithHTTPClient sets the client used to reach Ollama.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) { c.client = client }
}

// New creates a Checker.
func New(opts ...Option) *Checker {
	c := &Checker{out: os.Stdout, client: &http.Client{Timeout: 3 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check against cfg, in report order.
func (c *Checker) RunAll(ctx context.Context, cfg *config.Config) []Result {
	dataDir := cfg.Paths.DataDir
	return []Result{
		c.CheckWritePermissions(dataDir),
		c.CheckDiskSpace(dataDir),
		c.CheckFileDescriptors(),
		c.CheckDataDirLock(dataDir),
		c.CheckEmbeddings(ctx, cfg.Embeddings),
		c.CheckLLM(ctx, cfg.LLM),
	}
}

// HasCriticalFailures reports whether any required check failed.
func (c *Checker) HasCriticalFailures(results []Result) bool {
	return slices.ContainsFunc(results, Result.IsCritical)
}

// SummaryStatus is "failed", "ready_with_warnings" or "ready".
func (c *Checker) SummaryStatus(results []Result) string {
	switch {
	case c.HasCriticalFailures(results):
		return "failed"
	case slices.ContainsFunc(results, func(r Result) bool { return r.Status != Pass }):
		return "ready_with_warnings"
	default:
		return "ready"
	}
}

// PrintResults writes one line per check and the summary.
func (c *Checker) PrintResults(results []Result) {
	styles := ui.GetStyles(!ui.ColorEnabled(c.out))
	label := map[Status]lipgloss.Style{Pass: styles.Success, Warn: styles.Warning, Fail: styles.Error}

	_, _ = fmt.Fprintf(c.out, "%s\n\n", styles.Header.Render("amanrag system check"))
	for _, r := range results {
		_, _ = fmt.Fprintf(c.out, "[%s] %s: %s\n", label[r.Status].Render(r.Status.String()), r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.out, "       %s\n", styles.Dim.Render(r.Details))
		}
	}
	_, _ = fmt.Fprintf(c.out, "\nStatus: %s\n", strings.ToUpper(c.SummaryStatus(results)))
}

// CheckWritePermissions creates the data directory if needed and probes it
// with a temporary file.
func (c *Checker) CheckWritePermissions(dir string) Result {
	const name = "write_permissions"
	fail := func(msg string) Result {
		return Result{Name: name, Status: Fail, Message: msg, Details: dir, Required: true}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail(fmt.Sprintf("cannot create data dir: %v", err))
	}
	probe, err := os.CreateTemp(dir, ".amanrag-preflight-*")
	if err != nil {
		return fail(fmt.Sprintf("data dir not writable: %v", err))
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	r := pass(name, "OK")
	r.Details, r.Required = dir, true
	return r
}

// CheckDataDirLock warns when another amanrag process holds the data dir.
func (c *Checker) CheckDataDirLock(dir string) Result {
	lock := index.NewDataDirLock(dir)
	if err := lock.TryLock(); err != nil {
		return Result{Name: "data_dir_lock", Status: Warn, Message: "in use by another amanrag process", Details: lock.Path()}
	}
	_ = lock.Unlock()
	return pass("data_dir_lock", "free")
}
