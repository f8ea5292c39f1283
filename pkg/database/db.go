package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SolutionRecord represents the solutions table
type SolutionRecord struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	Org            string    `gorm:"index;not null" json:"org"`
	GeneratedAt    time.Time `json:"generated_at"`
	Mode           string    `json:"mode"`
	HealthScore    float64   `json:"health_score"`
	HardViolations int       `json:"hard_violations"`
	Fingerprint    string    `json:"fingerprint"`
	Payload        []byte    `gorm:"not null" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// SnapshotRecord represents the published_snapshots table. Seq orders
// publishes so "latest" never depends on clock resolution.
type SnapshotRecord struct {
	Seq         uint                 `gorm:"primaryKey;autoIncrement" json:"seq"`
	ID          string               `gorm:"uniqueIndex;size:64;not null" json:"id"`
	Org         string               `gorm:"index:idx_snapshot_org_tag;not null" json:"org"`
	Tag         string               `gorm:"index:idx_snapshot_org_tag;not null" json:"tag"`
	SolutionID  string               `gorm:"size:64;not null" json:"solution_id"`
	PublishedAt time.Time            `json:"published_at"`
	Assignments []SnapshotAssignment `gorm:"foreignKey:SnapshotSeq;references:Seq" json:"assignments"`
}

// TableName keeps the table name stable across gorm naming strategies
func (SnapshotRecord) TableName() string { return "published_snapshots" }

// SnapshotAssignment represents one (event, person) pair of a published snapshot
type SnapshotAssignment struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	SnapshotSeq uint   `gorm:"index;not null" json:"snapshot_seq"`
	EventID     string `gorm:"not null" json:"event_id"`
	PersonID    string `gorm:"not null" json:"person_id"`
	Role        string `json:"role"`
}

// Options selects and tunes the database connection
type Options struct {
	// DSN selects postgres when set
	DSN string
	// Path is the sqlite file used when DSN is empty
	Path    string
	Verbose bool
}

// Open connects to postgres or sqlite and migrates the schema
func Open(opts Options) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if opts.Verbose {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var (
		db  *gorm.DB
		err error
	)
	if opts.DSN != "" {
		cfg.PrepareStmt = false
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  opts.DSN,
			PreferSimpleProtocol: true,
		}), cfg)
	} else {
		path := opts.Path
		if path == "" {
			path = "roster.db"
		}
		db, err = gorm.Open(sqlite.Open(path), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := db.AutoMigrate(&SolutionRecord{}, &SnapshotRecord{}, &SnapshotAssignment{}); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}
	return db, nil
}
