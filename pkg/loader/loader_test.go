package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/roster-engine/pkg/models"
)

const yamlDataset = `
org: acme
range:
  from: 2024-03-04
  to: 2024-03-10
people:
  - id: p1
    name: Ada
    roles: [usher, reader]
    blocked:
      - from: 2024-03-05
        to: 2024-03-06
  - id: p2
    roles: [usher]
    timezone: Europe/London
teams:
  - id: core
    members: [p1]
events:
  - id: e1
    start: 2024-03-04T09:00:00Z
    end: 2024-03-04T11:00:00Z
    requirements:
      - role: usher
        count: 2
  - id: e2
    start: "2024-03-05T10:00"
    end: "2024-03-05T12:00"
    timezone: America/New_York
constraints:
  - key: cap
    kind: soft
    predicate: max_in_period
    weight: 2
    params:
      max: 3
      period: range
      from: 2024-03-04
      to: 2024-03-10
holidays: [2024-03-08]
busy:
  p2:
    - from: 2024-03-04T08:00:00Z
      to: 2024-03-04T10:00:00Z
pinned:
  - event_id: e1
    person_id: p1
    role: usher
`

func TestParse_YAML(t *testing.T) {
	doc, err := Parse([]byte(yamlDataset), FormatYAML)
	require.NoError(t, err)

	// unquoted YAML dates in params come back as strings
	assert.Equal(t, "2024-03-04", doc.Constraints[0].Params["from"])
	assert.Equal(t, 3, doc.Constraints[0].Params["max"])

	p, err := doc.Problem()
	require.NoError(t, err)

	assert.Equal(t, "acme", p.Org)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), p.Range.Start)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), p.Range.End, "bare end date covers the whole day")

	require.Len(t, p.People, 2)
	assert.Equal(t, []models.DateSpan{{From: models.MustDate("2024-03-05"), To: models.MustDate("2024-03-06")}}, p.People[0].Blocked)

	require.Len(t, p.Events, 2)
	assert.Equal(t, time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), p.Events[0].Start)
	assert.Equal(t, []models.RoleRequirement{{Role: "usher", Count: 2}}, p.Events[0].Requirements)
	// zone-less times are read in the event's timezone (EST, UTC-5)
	assert.Equal(t, time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC), p.Events[1].Start)

	assert.Equal(t, []models.Date{models.MustDate("2024-03-08")}, p.Holidays)
	require.Len(t, p.Busy["p2"], 1)
	assert.Equal(t, 2.0, p.Busy["p2"][0].Hours())
	require.Len(t, p.Pinned, 1)
	assert.Equal(t, "p1", p.Pinned[0].PersonID)

	require.NoError(t, p.Validate())
}

func TestParse_JSON(t *testing.T) {
	data := `{
		"range": {"from": "2024-03-04T00:00:00Z", "to": "2024-03-05T00:00:00Z"},
		"people": [{"id": "p1", "roles": ["usher"]}],
		"events": [{"id": "e1", "start": "2024-03-04T09:00:00Z", "end": "2024-03-04T10:00:00Z",
			"requirements": [{"role": "usher", "count": 1}]}],
		"constraints": [{"key": "cap", "kind": "hard", "predicate": "max_in_period", "params": {"max": 1}}]
	}`
	doc, err := Parse([]byte(data), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 1.0, doc.Constraints[0].Params["max"])

	p, err := doc.Problem()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), p.Range.End)
	require.NoError(t, p.Validate())
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(`{"people": [], "unknown": 1}`), FormatJSON)
	assert.ErrorIs(t, err, ErrFormat)

	_, err = Parse([]byte("people: [\n"), FormatYAML)
	assert.ErrorIs(t, err, ErrFormat)

	_, err = Parse([]byte(`{}`), Format("toml"))
	assert.ErrorIs(t, err, ErrFormat)

	doc, err := Parse([]byte(`{"events": [{"id": "e1", "start": "tomorrow", "end": "2024-03-04T10:00:00Z"}]}`), FormatJSON)
	require.NoError(t, err)
	_, err = doc.Problem()
	assert.ErrorIs(t, err, ErrFormat)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlDataset), 0o600))

	doc, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, doc.People, 2)

	_, err = ReadFile(filepath.Join(dir, "data.txt"))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestReadPeopleCSV(t *testing.T) {
	in := "id,name,roles,timezone,status,blocked\n" +
		"p1,Ada,usher|reader,,active,2024-03-05..2024-03-06|2024-03-09\n" +
		"p2,Bo,usher,Europe/London,inactive,\n"
	people, err := ReadPeopleCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, people, 2)

	assert.Equal(t, []string{"usher", "reader"}, people[0].Roles)
	assert.Equal(t, []models.DateSpan{
		{From: models.MustDate("2024-03-05"), To: models.MustDate("2024-03-06")},
		{From: models.MustDate("2024-03-09"), To: models.MustDate("2024-03-09")},
	}, people[0].Blocked)
	assert.False(t, people[1].Active())

	// legacy column names
	legacy, err := ReadPeopleCSV(strings.NewReader("id,name,group,max_hours\nv1,Cy,usher,10\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"usher"}, legacy[0].Roles)

	_, err = ReadPeopleCSV(strings.NewReader("name\nAda\n"))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestReadEventsCSV(t *testing.T) {
	in := "id,start,end,required_roles,team_id\n" +
		"e1,2024-03-04T09:00:00Z,2024-03-04T11:00:00Z,usher:2|reader:1,core\n" +
		"e2,2024-03-05T09:00,2024-03-05T10:00,,\n"
	events, err := ReadEventsCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, []models.RoleRequirement{{Role: "usher", Count: 2}, {Role: "reader", Count: 1}}, events[0].Requirements)
	assert.Equal(t, "core", events[0].TeamID)
	assert.Equal(t, time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), events[1].Start)
	assert.Empty(t, events[1].Requirements)

	_, err = ReadEventsCSV(strings.NewReader("id,start,end,required_roles\ne1,2024-03-04T09:00:00Z,2024-03-04T11:00:00Z,usher\n"))
	assert.ErrorIs(t, err, ErrFormat)

	_, err = ReadEventsCSV(strings.NewReader("id,start\ne1,2024-03-04T09:00:00Z\n"))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestReadPinnedCSV(t *testing.T) {
	pins, err := ReadPinnedCSV(strings.NewReader("shift_id,volunteer_id\ne1,p1\n"))
	require.NoError(t, err)
	assert.Equal(t, []models.Assignment{{EventID: "e1", PersonID: "p1", Pinned: true}}, pins)

	_, err = ReadPinnedCSV(strings.NewReader("event_id,person_id\ne1,\n"))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestParseRequirements(t *testing.T) {
	reqs, err := ParseRequirements(" usher : 2 | reader:0 ")
	require.NoError(t, err)
	assert.Equal(t, []models.RoleRequirement{{Role: "usher", Count: 2}, {Role: "reader", Count: 0}}, reqs)

	_, err = ParseRequirements("usher:-1")
	assert.Error(t, err)
}
