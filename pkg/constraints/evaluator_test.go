package constraints

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/roster-engine/pkg/models"
	"github.com/arnavshah/roster-engine/pkg/predicates"
)

var monday = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

func evalFor(p *models.Person) *predicates.EvalContext {
	e := &models.Event{ID: "e1", Start: monday, End: monday.Add(time.Hour)}
	return predicates.NewBuilder().Event(e).Person(p).Role("usher").Build()
}

func TestCompile_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		decls []models.Constraint
		want  error
	}{
		{"missing key", []models.Constraint{{Kind: models.Hard, Predicate: "holiday"}}, ErrInvalidConstraint},
		{"duplicate key", []models.Constraint{
			{Key: "a", Kind: models.Hard, Predicate: "holiday"},
			{Key: "a", Kind: models.Soft, Predicate: "holiday", Weight: 1},
		}, ErrInvalidConstraint},
		{"unknown predicate", []models.Constraint{{Key: "a", Kind: models.Hard, Predicate: "moon_phase"}}, ErrUnknownPredicate},
		{"negated measure", []models.Constraint{{Key: "a", Kind: models.Hard, Predicate: "min_rest_hours", Negate: true, Params: map[string]any{"hours": 8}}}, ErrInvalidConstraint},
		{"bad params", []models.Constraint{{Key: "a", Kind: models.Hard, Predicate: "min_rest_hours"}}, predicates.ErrInvalidParams},
		{"weighted hard", []models.Constraint{{Key: "a", Kind: models.Hard, Predicate: "holiday", Weight: 2}}, ErrInvalidConstraint},
		{"negative weight", []models.Constraint{{Key: "a", Kind: models.Soft, Predicate: "holiday", Weight: -1}}, ErrInvalidConstraint},
		{"unknown kind", []models.Constraint{{Key: "a", Kind: "maybe", Predicate: "holiday"}}, ErrInvalidConstraint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(nil, tt.decls)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSet_Evaluate(t *testing.T) {
	set, err := Compile(nil, []models.Constraint{
		{Key: "must_usher", Kind: models.Hard, Predicate: "has_role"},
		{Key: "not_blocked", Kind: models.Hard, Predicate: "blocked_dates", Negate: true, Category: "availability"},
		{Key: "prefer_friday", Kind: models.Soft, Predicate: "day_of_week", Params: map[string]any{"day": "friday"}, Weight: 3},
		{Key: "avoid_monday", Kind: models.Soft, Predicate: "day_of_week", Params: map[string]any{"day": "monday"}, Negate: true, Weight: 0.5},
	})
	require.NoError(t, err)
	assert.Len(t, set.Hard(), 2)
	assert.Len(t, set.Soft(), 2)
	assert.Equal(t, []string{"availability"}, set.Categories())

	usher := &models.Person{ID: "p1", Roles: []string{"usher"}}
	v := set.Evaluate(evalFor(usher), nil)
	assert.True(t, v.Admissible)
	assert.Equal(t, 3.5, v.SoftPenalty)
	require.Len(t, v.SoftFailed, 2)
	assert.Equal(t, "expected event falls on Monday", v.SoftFailed[0].Reason)
	assert.Equal(t, "event falls on Monday", v.SoftFailed[1].Reason)

	blocked := &models.Person{ID: "p2", Roles: []string{"lead"}, Blocked: []models.DateSpan{
		{From: models.MustDate("2024-03-01"), To: models.MustDate("2024-03-31")},
	}}
	v = set.Evaluate(evalFor(blocked), nil)
	assert.False(t, v.Admissible)
	assert.Zero(t, v.SoftPenalty, "soft constraints are not scored for inadmissible candidates")
	require.Len(t, v.Failed, 2)
	assert.Equal(t, "must_usher", v.Failed[0].Key)
	assert.Equal(t, "not_blocked", v.Failed[1].Key)

	v = set.Evaluate(evalFor(blocked), []string{"availability"})
	require.Len(t, v.Failed, 1, "skipped categories are not evaluated")
	assert.Equal(t, "must_usher", v.Failed[0].Key)
}

func TestBound_MeasuredSeverity(t *testing.T) {
	set, err := Compile(nil, []models.Constraint{
		{Key: "rest", Kind: models.Soft, Predicate: "min_rest_hours", Params: map[string]any{"hours": 10}, Weight: 2},
	})
	require.NoError(t, err)

	prev := &models.Event{ID: "prev", Start: monday.Add(-6 * time.Hour), End: monday.Add(-4 * time.Hour)}
	e := &models.Event{ID: "e1", Start: monday, End: monday.Add(time.Hour)}
	ec := predicates.NewBuilder().
		Event(e).
		Person(&models.Person{ID: "p1"}).
		History(predicates.HistoryIndex{"p1": {prev}}).
		Build()

	r := set.Soft()[0].Evaluate(ec)
	assert.False(t, r.Satisfied)
	// 4h of rest against 10h: shortfall 6/10, weighted by 2
	assert.InDelta(t, 1.2, r.Penalty, 1e-9)
	assert.Equal(t, "rest gap 4.0h below minimum 10.0h", r.Reason)
}
