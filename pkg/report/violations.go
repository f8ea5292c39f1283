// Package report collects constraint failures into a Solution's violation
// report and renders explain/stats views from already-computed solutions.
package report

import (
	"github.com/arnavshah/roster-engine/pkg/models"
)

// DefaultSoftSampleLimit bounds the soft failures kept in a report
const DefaultSoftSampleLimit = 200

// Reporter accumulates violations during a solve
type Reporter struct {
	limit   int
	hard    []models.Violation
	soft    []models.Violation
	dropped int
}

// NewReporter keeps every hard failure and at most softLimit soft failures.
// A non-positive limit uses DefaultSoftSampleLimit.
func NewReporter(softLimit int) *Reporter {
	if softLimit <= 0 {
		softLimit = DefaultSoftSampleLimit
	}
	return &Reporter{limit: softLimit}
}

// Hard records a hard failure
func (r *Reporter) Hard(v models.Violation) {
	r.hard = append(r.hard, v)
}

// Soft records a soft failure if the sample has room, else counts it as dropped
func (r *Reporter) Soft(v models.Violation) {
	if len(r.soft) >= r.limit {
		r.dropped++
		return
	}
	r.soft = append(r.soft, v)
}

// HardCount returns the number of hard failures so far
func (r *Reporter) HardCount() int {
	return len(r.hard)
}

// Report returns the collected violations. Slices are never nil so the wire
// shape always carries both lists.
func (r *Reporter) Report() models.Violations {
	out := models.Violations{
		Hard:        make([]models.Violation, len(r.hard)),
		Soft:        make([]models.Violation, len(r.soft)),
		SoftDropped: r.dropped,
	}
	copy(out.Hard, r.hard)
	copy(out.Soft, r.soft)
	return out
}
