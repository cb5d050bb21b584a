package index

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// InconsistencyType categorizes detected issues.
type InconsistencyType int

const (
	// InconsistencyOrphanVector is a vector without a stored passage.
	InconsistencyOrphanVector InconsistencyType = iota
	// InconsistencyMissingVector is a stored passage without a vector.
	InconsistencyMissingVector
	// InconsistencyLexicalDrift means the lexical snapshot does not cover the stored passage set.
	InconsistencyLexicalDrift
)

// String returns the log name of the inconsistency type.
func (t InconsistencyType) String() string {
	switch t {
	case InconsistencyOrphanVector:
		return "orphan_vector"
	case InconsistencyMissingVector:
		return "missing_vector"
	case InconsistencyLexicalDrift:
		return "lexical_drift"
	default:
		return "unknown"
	}
}

// Inconsistency is one detected cross-store issue.
type Inconsistency struct {
	Type      InconsistencyType
	PassageID string
	Details   string
}

// CheckResult is the outcome of a consistency check.
type CheckResult struct {
	Checked         int
	Inconsistencies []Inconsistency
	Duration        time.Duration
}

// Consistent reports whether no issue was found.
func (r *CheckResult) Consistent() bool {
	return len(r.Inconsistencies) == 0
}

// Count returns the number of issues of type t.
func (r *CheckResult) Count(t InconsistencyType) int {
	n := 0
	for _, issue := range r.Inconsistencies {
		if issue.Type == t {
			n++
		}
	}
	return n
}

// IDs returns the passage IDs of issues of type t.
func (r *CheckResult) IDs(t InconsistencyType) []string {
	var ids []string
	for _, issue := range r.Inconsistencies {
		if issue.Type == t {
			ids = append(ids, issue.PassageID)
		}
	}
	return ids
}

type idLister interface {
	IDs() []string
}

type documentCounter interface {
	Len() int
}

// ConsistencyChecker compares the passage store, the source of truth, with
// the vector graph and the lexical snapshot.
type ConsistencyChecker struct {
	passages Passages
	vectors  idLister
	lexical  documentCounter
}

// NewConsistencyChecker creates a checker over the given stores.
func NewConsistencyChecker(passages Passages, vectors idLister, lexical documentCounter) *ConsistencyChecker {
	return &ConsistencyChecker{passages: passages, vectors: vectors, lexical: lexical}
}

// Check scans every store. It is O(n) in the number of passages.
func (c *ConsistencyChecker) Check(ctx context.Context) (*CheckResult, error) {
	start := time.Now()

	all, err := c.passages.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list passages: %w", err)
	}
	stored := make(map[string]bool, len(all))
	for _, p := range all {
		stored[p.ID] = true
	}

	vectorIDs := c.vectors.IDs()
	sort.Strings(vectorIDs)
	indexed := make(map[string]bool, len(vectorIDs))

	var issues []Inconsistency
	for _, id := range vectorIDs {
		indexed[id] = true
		if !stored[id] {
			issues = append(issues, Inconsistency{
				Type:      InconsistencyOrphanVector,
				PassageID: id,
				Details:   "vector without stored passage",
			})
		}
	}
	for _, p := range all {
		if !indexed[p.ID] {
			issues = append(issues, Inconsistency{
				Type:      InconsistencyMissingVector,
				PassageID: p.ID,
				Details:   "stored passage without vector",
			})
		}
	}
	if n := c.lexical.Len(); n != len(all) {
		issues = append(issues, Inconsistency{
			Type:    InconsistencyLexicalDrift,
			Details: fmt.Sprintf("lexical index holds %d of %d passages", n, len(all)),
		})
	}

	return &CheckResult{
		Checked:         len(all),
		Inconsistencies: issues,
		Duration:        time.Since(start),
	}, nil
}
