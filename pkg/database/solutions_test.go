package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/roster-engine/pkg/models"
)

func openTestDB(t *testing.T) *SolutionStore {
	t.Helper()
	db, err := Open(Options{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	return NewSolutionStore(db)
}

func solution(id, org string, at time.Time) *models.Solution {
	return &models.Solution{
		ID:          id,
		Generation:  models.Generation{GeneratedAt: at, Org: org, Mode: models.ModeStrict, Fingerprint: "f-" + id},
		Assignments: []models.Assignment{{EventID: "e1", PersonID: "p1", Role: "usher", SolutionID: id}},
		Metrics:     models.Metrics{HealthScore: 90, HardViolations: 1},
	}
}

func TestSolutionStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)
	at := time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, solution("s1", "acme", at)))
	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Generation.Org)
	assert.Equal(t, solution("s1", "acme", at).Assignments, got.Assignments)

	// solutions are immutable; a second save is ignored
	changed := solution("s1", "other", at)
	require.NoError(t, store.Save(ctx, changed))
	got, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Generation.Org)

	_, err = store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrSolutionNotFound)
}

func TestSolutionStore_List(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)
	at := time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, solution("old", "acme", at)))
	require.NoError(t, store.Save(ctx, solution("new", "acme", at.Add(time.Hour))))
	require.NoError(t, store.Save(ctx, solution("elsewhere", "other", at)))

	recs, err := store.List(ctx, "acme", 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "new", recs[0].ID)
	assert.Equal(t, "old", recs[1].ID)
	assert.Equal(t, 90.0, recs[0].HealthScore)
	assert.Equal(t, 1, recs[0].HardViolations)
	assert.Equal(t, "f-new", recs[0].Fingerprint)
	assert.Empty(t, recs[0].Payload, "listing skips payloads")

	recs, err = store.List(ctx, "acme", 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
