package baseline

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/arnavshah/roster-engine/pkg/database"
	"github.com/arnavshah/roster-engine/pkg/models"
)

// GormStore implements Store on the database package's snapshot tables
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore creates a new GORM-backed store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Save writes a snapshot and its assignments in one transaction
func (s *GormStore) Save(ctx context.Context, snap *models.PublishedSnapshot) error {
	rec := database.SnapshotRecord{
		ID:          snap.ID,
		Org:         snap.Org,
		Tag:         snap.Tag,
		SolutionID:  snap.SolutionID,
		PublishedAt: snap.PublishedAt,
	}
	for _, a := range snap.Assignments {
		rec.Assignments = append(rec.Assignments, database.SnapshotAssignment{
			EventID:  a.EventID,
			PersonID: a.PersonID,
			Role:     a.Role,
		})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to save snapshot %s: %w", snap.ID, err)
		}
		return nil
	})
}

// Latest returns the most recently published snapshot for the org
func (s *GormStore) Latest(ctx context.Context, org string) (*models.PublishedSnapshot, error) {
	return s.first(ctx, s.db.WithContext(ctx).Where("org = ?", org), org)
}

// ByTag returns the most recent snapshot published under tag
func (s *GormStore) ByTag(ctx context.Context, org, tag string) (*models.PublishedSnapshot, error) {
	return s.first(ctx, s.db.WithContext(ctx).Where("org = ? AND tag = ?", org, tag), org+"/"+tag)
}

// Tags lists the org's tags, newest publish first
func (s *GormStore) Tags(ctx context.Context, org string) ([]string, error) {
	var recs []database.SnapshotRecord
	if err := s.db.WithContext(ctx).Select("seq", "tag").Where("org = ?", org).Order("seq desc").Find(&recs).Error; err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var tags []string
	for _, r := range recs {
		if !seen[r.Tag] {
			seen[r.Tag] = true
			tags = append(tags, r.Tag)
		}
	}
	return tags, nil
}

func (s *GormStore) first(ctx context.Context, q *gorm.DB, what string) (*models.PublishedSnapshot, error) {
	var rec database.SnapshotRecord
	err := q.Preload("Assignments", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).Order("seq desc").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, what)
	}
	if err != nil {
		return nil, err
	}
	snap := &models.PublishedSnapshot{
		ID:          rec.ID,
		Org:         rec.Org,
		Tag:         rec.Tag,
		SolutionID:  rec.SolutionID,
		PublishedAt: rec.PublishedAt,
		Assignments: make([]models.Assignment, 0, len(rec.Assignments)),
	}
	for _, a := range rec.Assignments {
		snap.Assignments = append(snap.Assignments, models.Assignment{
			EventID:    a.EventID,
			PersonID:   a.PersonID,
			Role:       a.Role,
			SolutionID: rec.SolutionID,
		})
	}
	return snap, nil
}
