// Package baseline stores published snapshots and serves them to solves as
// the change-minimization reference.
//
// Publishing is the only writer and is serialized per organization. Solves
// only ever read.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arnavshah/roster-engine/pkg/models"
	"github.com/arnavshah/roster-engine/pkg/telemetry"
)

// ErrNoSnapshot is returned when nothing has been published for the org or tag
var ErrNoSnapshot = errors.New("no published snapshot")

// ErrOrgMismatch is returned when a solution is published under another organization
var ErrOrgMismatch = errors.New("solution belongs to another organization")

// Reader is the read side a solve depends on
type Reader interface {
	Latest(ctx context.Context, org string) (*models.PublishedSnapshot, error)
	ByTag(ctx context.Context, org, tag string) (*models.PublishedSnapshot, error)
}

// Store is the full baseline store used by the publish command
type Store interface {
	Reader
	Save(ctx context.Context, snap *models.PublishedSnapshot) error
	Tags(ctx context.Context, org string) ([]string, error)
}

// Resolve returns the snapshot tagged tag, or the latest one when tag is empty
func Resolve(ctx context.Context, r Reader, org, tag string) (*models.PublishedSnapshot, error) {
	if tag == "" {
		return r.Latest(ctx, org)
	}
	return r.ByTag(ctx, org, tag)
}

// Publisher writes snapshots, one writer per organization at a time
type Publisher struct {
	store   Store
	locks   *xsync.Map[string, *sync.Mutex]
	clock   func() time.Time
	log     *slog.Logger
	metrics telemetry.Collector
}

// PublisherOption configures a Publisher
type PublisherOption func(*Publisher)

// WithClock overrides the publish timestamp source
func WithClock(clock func() time.Time) PublisherOption {
	return func(p *Publisher) { p.clock = clock }
}

// WithLogger sets the publisher's logger
func WithLogger(l *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.log = l }
}

// WithMetrics sets the telemetry collector
func WithMetrics(c telemetry.Collector) PublisherOption {
	return func(p *Publisher) { p.metrics = c }
}

// NewPublisher wraps a store
func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:   store,
		locks:   xsync.NewMap[string, *sync.Mutex](),
		clock:   time.Now,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: telemetry.Nop{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish records the solution's assignments under tag as the org's newest baseline
func (p *Publisher) Publish(ctx context.Context, org, tag string, sol *models.Solution) (*models.PublishedSnapshot, error) {
	org, tag = strings.TrimSpace(org), strings.TrimSpace(tag)
	if org == "" {
		return nil, errors.New("publish: org is required")
	}
	if tag == "" {
		return nil, errors.New("publish: tag is required")
	}
	if sol == nil || sol.ID == "" {
		return nil, errors.New("publish: solution is required")
	}
	if owner := sol.Generation.Org; owner != "" && owner != org {
		return nil, fmt.Errorf("%w: %s is from %q, not %q", ErrOrgMismatch, sol.ID, owner, org)
	}

	mu, _ := p.locks.LoadOrStore(org, &sync.Mutex{})
	mu.Lock()
	defer mu.Unlock()

	snap := &models.PublishedSnapshot{
		ID:          uuid.NewString(),
		Org:         org,
		Tag:         tag,
		SolutionID:  sol.ID,
		PublishedAt: p.clock().UTC(),
		Assignments: make([]models.Assignment, 0, len(sol.Assignments)),
	}
	for _, a := range sol.Assignments {
		a.SolutionID = sol.ID
		snap.Assignments = append(snap.Assignments, a)
	}
	if err := p.store.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("publish %s/%s: %w", org, tag, err)
	}
	p.metrics.IncPublish(org)
	p.log.Info("published baseline", "org", org, "tag", tag, "solution", sol.ID, "assignments", len(snap.Assignments))
	return snap, nil
}
