package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate(t *testing.T) {
	d, err := ParseDate("2024-02-28")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", d.AddDays(2).String(), "leap year")
	assert.Equal(t, 2, d.DaysUntil(d.AddDays(2)))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.False(t, d.After(d))

	_, err = ParseDate("2024-13-01")
	assert.Error(t, err)
	assert.Equal(t, "", Date{}.String())
}

func TestDate_JSON(t *testing.T) {
	var span DateSpan
	require.NoError(t, json.Unmarshal([]byte(`{"from": "2024-03-01", "to": "2024-03-03"}`), &span))
	assert.True(t, span.Contains(MustDate("2024-03-02")))
	assert.False(t, span.Contains(MustDate("2024-03-04")))
	assert.True(t, span.Intersects(MustDate("2024-03-03"), MustDate("2024-03-09")))
	assert.False(t, span.Intersects(MustDate("2024-03-04"), MustDate("2024-03-09")))

	b, err := json.Marshal(span)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from": "2024-03-01", "to": "2024-03-03"}`, string(b))
}

func TestEvent_LocalDates(t *testing.T) {
	e := Event{
		ID:       "night",
		Start:    time.Date(2024, time.March, 5, 3, 0, 0, 0, time.UTC),
		End:      time.Date(2024, time.March, 5, 8, 0, 0, 0, time.UTC),
		Timezone: "America/Chicago",
	}
	assert.Equal(t, MustDate("2024-03-04"), e.LocalDate())
	first, last := e.LocalSpan(nil)
	assert.Equal(t, MustDate("2024-03-04"), first)
	assert.Equal(t, MustDate("2024-03-05"), last)
	first, last = e.LocalSpan(time.UTC)
	assert.Equal(t, MustDate("2024-03-05"), first)
	assert.Equal(t, MustDate("2024-03-05"), last)

	e.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, e.Location())
	assert.Equal(t, MustDate("2024-03-05"), e.LocalDate())
}

func TestPerson_EligibleFor(t *testing.T) {
	p := Person{ID: "p1", Roles: []string{"usher", "lead"}, Eligibility: map[string]bool{"lead": false}}
	assert.True(t, p.EligibleFor("usher"))
	assert.False(t, p.EligibleFor("lead"), "eligibility override removes a held role")
	assert.False(t, p.EligibleFor("organist"))

	p.Status = StatusInactive
	assert.False(t, p.EligibleFor("usher"))
}

func TestSolution_Views(t *testing.T) {
	s := &Solution{Assignments: []Assignment{
		{EventID: "e2", PersonID: "p1"},
		{EventID: "e1", PersonID: "p2"},
		{EventID: "e1", PersonID: "p1"},
	}}
	assert.Equal(t, []Pair{{"e1", "p1"}, {"e1", "p2"}, {"e2", "p1"}}, s.SortedPairs())
	assert.Len(t, s.AssignedTo("e1"), 2)
	assert.Len(t, s.AssignmentsOf("p1"), 2)

	snap := PublishedSnapshot{Assignments: s.Assignments}
	assert.True(t, snap.Pairs()[Pair{"e2", "p1"}])
	assert.False(t, snap.Pairs()[Pair{"e2", "p2"}])
}

func TestTimeRange(t *testing.T) {
	start := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	r := TimeRange{Start: start, End: start.Add(24 * time.Hour)}
	assert.True(t, r.Valid())
	assert.True(t, r.Contains(start))
	assert.False(t, r.Contains(r.End))
	assert.False(t, TimeRange{Start: start, End: start}.Valid())
}
