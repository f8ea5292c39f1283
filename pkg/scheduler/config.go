package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/arnavshah/roster-engine/pkg/metrics"
	"github.com/arnavshah/roster-engine/pkg/models"
	"github.com/arnavshah/roster-engine/pkg/predicates"
	"github.com/arnavshah/roster-engine/pkg/report"
)

// Solver identity recorded in solution metadata
const (
	SolverName     = "greedy"
	SolverStrategy = "chronological-role-by-role"
)

// Config is the immutable per-solve configuration. Organization-wide weights
// are passed here rather than read from ambient state.
type Config struct {
	Mode string
	// Relax lists constraint categories skipped when Mode is relaxed
	Relax           []string
	FairnessWeight  float64
	ChangeMinWeight float64
	ChangeMin       bool
	SoftSampleLimit int
	Health          metrics.HealthPolicy

	// SolutionID fixes the solution id; empty generates a random one
	SolutionID string
	// Clock stamps generation time and measures duration; nil uses time.Now
	Clock    func() time.Time
	Logger   *slog.Logger
	Registry *predicates.Registry
}

// DefaultConfig returns strict mode with unit weights
func DefaultConfig() Config {
	return Config{
		Mode:            models.ModeStrict,
		FairnessWeight:  1,
		ChangeMinWeight: 1,
		SoftSampleLimit: report.DefaultSoftSampleLimit,
		Health:          metrics.DefaultHealthPolicy(),
	}
}

func (c Config) validate() error {
	switch c.Mode {
	case models.ModeStrict, models.ModeRelaxed:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.FairnessWeight < 0 {
		return fmt.Errorf("%w: fairness weight must not be negative", ErrInvalidConfig)
	}
	if c.ChangeMinWeight < 0 {
		return fmt.Errorf("%w: change-min weight must not be negative", ErrInvalidConfig)
	}
	return nil
}

// skipped returns the categories this mode ignores
func (c Config) skipped() []string {
	if c.Mode != models.ModeRelaxed {
		return nil
	}
	return c.Relax
}

func (c Config) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}
