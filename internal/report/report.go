// Package report assembles per-target results into one shippable report.
package report

import (
	"time"

	"github.com/lowsky/happo.io/internal/target"
)

// Report is the ordered collection of target results for one run. It is
// built only when execution is synchronous; async submissions are reconciled
// by a later pass outside the orchestrator.
type Report struct {
	Project   string          `json:"project"`
	SHA       string          `json:"sha"`
	CreatedAt time.Time       `json:"createdAt"`
	Results   []target.Result `json:"results"`
}

// New constructs a report preserving the supplied result order; it never
// re-sorts. Deterministic given identical inputs apart from the CreatedAt
// stamp.
func New(project, sha string, results []target.Result) *Report {
	copied := make([]target.Result, len(results))
	copy(copied, results)
	return &Report{
		Project:   project,
		SHA:       sha,
		CreatedAt: time.Now().UTC(),
		Results:   copied,
	}
}

// TargetNames returns result target names in report order.
func (r *Report) TargetNames() []string {
	names := make([]string, len(r.Results))
	for i, res := range r.Results {
		names[i] = res.Name
	}
	return names
}
