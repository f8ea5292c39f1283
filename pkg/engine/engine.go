// Package engine ties the solver to its stores: it loads the baseline a
// change-minimizing solve needs, runs the solve and keeps the result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arnavshah/roster-engine/pkg/baseline"
	"github.com/arnavshah/roster-engine/pkg/constraints"
	"github.com/arnavshah/roster-engine/pkg/logging"
	"github.com/arnavshah/roster-engine/pkg/models"
	"github.com/arnavshah/roster-engine/pkg/predicates"
	"github.com/arnavshah/roster-engine/pkg/scheduler"
	"github.com/arnavshah/roster-engine/pkg/telemetry"
)

// SolutionRepository keeps solved schedules
type SolutionRepository interface {
	Save(ctx context.Context, sol *models.Solution) error
	Load(ctx context.Context, id string) (*models.Solution, error)
}

// Engine runs solves against configured stores. It is safe for concurrent use;
// every solve gets its own scheduler.
type Engine struct {
	cfg       scheduler.Config
	solutions SolutionRepository
	baselines baseline.Store
	publisher *baseline.Publisher
	metrics   telemetry.Collector
	log       *slog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithSolutions persists every solve
func WithSolutions(r SolutionRepository) Option {
	return func(e *Engine) { e.solutions = r }
}

// WithBaselines enables change minimization and publishing
func WithBaselines(s baseline.Store) Option {
	return func(e *Engine) { e.baselines = s }
}

// WithMetrics sets the telemetry collector
func WithMetrics(c telemetry.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

// WithLogger sets the engine's logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New returns an engine whose solves start from cfg
func New(cfg scheduler.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		metrics: telemetry.Nop{},
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.baselines != nil {
		e.publisher = baseline.NewPublisher(e.baselines,
			baseline.WithLogger(e.log),
			baseline.WithMetrics(e.metrics),
		)
	}
	return e
}

// Options are the per-request overrides of the engine's configuration
type Options struct {
	Mode      string   `json:"mode,omitempty"`
	ChangeMin bool     `json:"change_min,omitempty"`
	Relax     []string `json:"relax,omitempty"`
	// BaselineTag picks a published tag; empty means the latest snapshot
	BaselineTag    string   `json:"baseline_tag,omitempty"`
	FairnessWeight *float64 `json:"fairness_weight,omitempty"`
}

// Config returns the scheduler configuration for one request
func (e *Engine) Config(opts Options) scheduler.Config {
	cfg := e.cfg
	if opts.Mode != "" {
		cfg.Mode = opts.Mode
	}
	if len(opts.Relax) > 0 {
		cfg.Relax = opts.Relax
	}
	if opts.FairnessWeight != nil {
		cfg.FairnessWeight = *opts.FairnessWeight
	}
	cfg.ChangeMin = opts.ChangeMin
	if cfg.Logger == nil {
		cfg.Logger = e.log
	}
	return cfg
}

// Solve runs one solve. Load-time errors are returned; shortfalls are not
// errors and only show up in the solution's violations.
func (e *Engine) Solve(ctx context.Context, p *scheduler.Problem, opts Options) (*models.Solution, error) {
	cfg := e.Config(opts)

	var snap *models.PublishedSnapshot
	if cfg.ChangeMin && e.baselines != nil && p.Org != "" {
		var err error
		snap, err = baseline.Resolve(ctx, e.baselines, p.Org, opts.BaselineTag)
		switch {
		case errors.Is(err, baseline.ErrNoSnapshot):
			snap = nil
		case err != nil:
			return nil, fmt.Errorf("load baseline: %w", err)
		}
	}

	sol, err := scheduler.Solve(p, snap, cfg)
	if err != nil {
		e.metrics.IncLoadError(ErrorKind(err))
		return nil, err
	}
	e.metrics.ObserveSolve(p.Org, cfg.Mode, time.Duration(sol.Metrics.SolveMS)*time.Millisecond, sol.Metrics.HardViolations, sol.Metrics.HealthScore)

	if e.solutions != nil {
		if err := e.solutions.Save(ctx, sol); err != nil {
			return nil, err
		}
	}
	return sol, nil
}

// Solution loads a stored solution
func (e *Engine) Solution(ctx context.Context, id string) (*models.Solution, error) {
	if e.solutions == nil {
		return nil, errors.New("no solution store configured")
	}
	return e.solutions.Load(ctx, id)
}

// Publish tags a stored solution as the org's newest baseline
func (e *Engine) Publish(ctx context.Context, solutionID, org, tag string) (*models.PublishedSnapshot, error) {
	if e.publisher == nil {
		return nil, errors.New("no baseline store configured")
	}
	sol, err := e.Solution(ctx, solutionID)
	if err != nil {
		return nil, err
	}
	if org == "" {
		org = sol.Generation.Org
	}
	return e.publisher.Publish(ctx, org, tag, sol)
}

// PublishSolution tags an in-memory solution
func (e *Engine) PublishSolution(ctx context.Context, sol *models.Solution, org, tag string) (*models.PublishedSnapshot, error) {
	if e.publisher == nil {
		return nil, errors.New("no baseline store configured")
	}
	if org == "" {
		org = sol.Generation.Org
	}
	return e.publisher.Publish(ctx, org, tag, sol)
}

// Validation is the result of checking a problem without solving it
type Validation struct {
	Valid bool            `json:"valid"`
	Error string          `json:"error,omitempty"`
	Kind  string          `json:"kind,omitempty"`
	Stats ValidationStats `json:"stats"`
}

// ValidationStats counts the entities of a problem
type ValidationStats struct {
	People      int `json:"person_count"`
	Teams       int `json:"team_count"`
	Events      int `json:"event_count"`
	Slots       int `json:"slot_count"`
	Constraints int `json:"constraint_count"`
	Pinned      int `json:"pinned_count"`
}

// Validate runs every load-time check a solve would run
func (e *Engine) Validate(p *scheduler.Problem) Validation {
	v := Validation{Valid: true, Stats: ValidationStats{
		People:      len(p.People),
		Teams:       len(p.Teams),
		Events:      len(p.Events),
		Constraints: len(p.Constraints),
		Pinned:      len(p.Pinned),
	}}
	for _, ev := range p.Events {
		for _, r := range ev.Requirements {
			v.Stats.Slots += r.Count
		}
	}

	err := p.Validate()
	if err == nil {
		_, err = constraints.Compile(e.cfg.Registry, p.Constraints)
	}
	if err != nil {
		v.Valid = false
		v.Error = err.Error()
		v.Kind = ErrorKind(err)
	}
	return v
}

// ErrorKind classifies load-time errors for metrics and HTTP responses
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, scheduler.ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, scheduler.ErrDanglingReference):
		return "dangling_reference"
	case errors.Is(err, constraints.ErrUnknownPredicate):
		return "unknown_predicate"
	case errors.Is(err, predicates.ErrInvalidParams):
		return "invalid_params"
	case errors.Is(err, constraints.ErrInvalidConstraint):
		return "invalid_constraint"
	case errors.Is(err, scheduler.ErrInvalidEntity):
		return "invalid_entity"
	case errors.Is(err, scheduler.ErrInvalidConfig):
		return "invalid_config"
	default:
		return "other"
	}
}

// IsLoadError reports whether err is a caller mistake rather than a failure
func IsLoadError(err error) bool {
	return ErrorKind(err) != "other"
}
