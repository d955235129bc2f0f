// internal/syncer/report.go
package syncer

import (
	"time"

	"github.com/google/uuid"

	custom_errors "github-metadata-updater/internal/errors"
)

// Outcome is the result of processing one candidate.
type Outcome struct {
	PackageName   string             `json:"package"`
	PackageID     int64              `json:"package_id"`
	RepositoryURL string             `json:"repository_url"`
	Repo          string             `json:"repo,omitempty"`
	Kind          custom_errors.Kind `json:"kind"`
	Err           error              `json:"-"`
	Error         string             `json:"error,omitempty"`
}

// Report collects the outcomes of a single pass.
type Report struct {
	PassID      uuid.UUID `json:"pass_id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Interrupted bool      `json:"interrupted"`
	Outcomes    []Outcome `json:"outcomes"`
}

// Counts tallies outcomes by kind.
func (r *Report) Counts() map[custom_errors.Kind]int {
	counts := make(map[custom_errors.Kind]int)
	for _, o := range r.Outcomes {
		counts[o.Kind]++
	}
	return counts
}

// Succeeded returns the number of packages whose metadata was stored.
func (r *Report) Succeeded() int {
	return r.Counts()[custom_errors.KindNone]
}

// Failed returns the number of packages that could not be updated.
func (r *Report) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
