package baseline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/roster-engine/pkg/database"
	"github.com/arnavshah/roster-engine/pkg/models"
)

func newStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := database.Open(database.Options{Path: filepath.Join(t.TempDir(), "baseline.db")})
	require.NoError(t, err)
	return NewGormStore(db)
}

func solution(id string, pairs ...string) *models.Solution {
	sol := &models.Solution{ID: id}
	for i := 0; i+1 < len(pairs); i += 2 {
		sol.Assignments = append(sol.Assignments, models.Assignment{EventID: pairs[i], PersonID: pairs[i+1], Role: "usher"})
	}
	return sol
}

func TestPublish_LatestAndByTag(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	pub := NewPublisher(store, WithClock(func() time.Time { return now }))

	_, err := store.Latest(ctx, "acme")
	assert.ErrorIs(t, err, ErrNoSnapshot)

	first, err := pub.Publish(ctx, "acme", "week-9", solution("s1", "e1", "p1", "e2", "p2"))
	require.NoError(t, err)
	assert.Equal(t, now, first.PublishedAt)
	assert.NotEmpty(t, first.ID)

	_, err = pub.Publish(ctx, "acme", "week-10", solution("s2", "e3", "p1"))
	require.NoError(t, err)
	_, err = pub.Publish(ctx, "other", "week-10", solution("s3", "e9", "p9"))
	require.NoError(t, err)

	latest, err := store.Latest(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "week-10", latest.Tag)
	assert.Equal(t, "s2", latest.SolutionID)
	assert.Equal(t, map[models.Pair]bool{{EventID: "e3", PersonID: "p1"}: true}, latest.Pairs())

	tagged, err := Resolve(ctx, store, "acme", "week-9")
	require.NoError(t, err)
	require.Len(t, tagged.Assignments, 2)
	assert.Equal(t, models.Assignment{EventID: "e1", PersonID: "p1", Role: "usher", SolutionID: "s1"}, tagged.Assignments[0])

	_, err = Resolve(ctx, store, "acme", "week-1")
	assert.ErrorIs(t, err, ErrNoSnapshot)

	tags, err := store.Tags(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"week-10", "week-9"}, tags)
}

func TestPublish_RejectsForeignSolution(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	pub := NewPublisher(store)

	sol := solution("s1", "e1", "p1")
	sol.Generation.Org = "acme"
	_, err := pub.Publish(ctx, "other", "week-10", sol)
	assert.ErrorIs(t, err, ErrOrgMismatch)
	_, err = store.Latest(ctx, "other")
	assert.ErrorIs(t, err, ErrNoSnapshot)

	snap, err := pub.Publish(ctx, "acme", "week-10", sol)
	require.NoError(t, err)
	assert.Equal(t, "acme", snap.Org)
}

func TestPublish_Validation(t *testing.T) {
	pub := NewPublisher(newStore(t))
	ctx := context.Background()

	_, err := pub.Publish(ctx, "", "t", solution("s1"))
	assert.Error(t, err)
	_, err = pub.Publish(ctx, "acme", " ", solution("s1"))
	assert.Error(t, err)
	_, err = pub.Publish(ctx, "acme", "t", nil)
	assert.Error(t, err)
}

func TestPublish_ConcurrentPerOrg(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	pub := NewPublisher(store)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := pub.Publish(ctx, "acme", fmt.Sprintf("t%d", i), solution(fmt.Sprintf("s%d", i), "e1", "p1"))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	tags, err := store.Tags(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, tags, 8)
}
