package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/roster-engine/pkg/codec"
	"github.com/arnavshah/roster-engine/pkg/models"
)

// ErrSolutionNotFound is returned when no solution has the requested id
var ErrSolutionNotFound = errors.New("solution not found")

// SolutionStore persists solutions in their wire shape
type SolutionStore struct {
	db *gorm.DB
}

// NewSolutionStore wraps an open database
func NewSolutionStore(db *gorm.DB) *SolutionStore {
	return &SolutionStore{db: db}
}

// Save stores a solution. Solutions are immutable, so saving an id twice keeps the first copy.
func (s *SolutionStore) Save(ctx context.Context, sol *models.Solution) error {
	payload, err := codec.Marshal(sol)
	if err != nil {
		return fmt.Errorf("encode solution %s: %w", sol.ID, err)
	}
	rec := SolutionRecord{
		ID:             sol.ID,
		Org:            sol.Generation.Org,
		GeneratedAt:    sol.Generation.GeneratedAt,
		Mode:           sol.Generation.Mode,
		HealthScore:    sol.Metrics.HealthScore,
		HardViolations: sol.Metrics.HardViolations,
		Fingerprint:    sol.Generation.Fingerprint,
		Payload:        payload,
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error; err != nil {
		return fmt.Errorf("save solution %s: %w", sol.ID, err)
	}
	return nil
}

// Load reads a solution back by id
func (s *SolutionStore) Load(ctx context.Context, id string) (*models.Solution, error) {
	var rec SolutionRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSolutionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return codec.Unmarshal(rec.Payload)
}

// List returns the most recent solution summaries for an org
func (s *SolutionStore) List(ctx context.Context, org string, limit int) ([]SolutionRecord, error) {
	if limit <= 0 {
		limit = 30
	}
	var recs []SolutionRecord
	err := s.db.WithContext(ctx).
		Select("id", "org", "generated_at", "mode", "health_score", "hard_violations", "fingerprint", "created_at").
		Where("org = ?", org).
		Order("generated_at desc").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}
