package codec

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/roster-engine/pkg/models"
)

func sample() *models.Solution {
	start := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	return &models.Solution{
		ID: "sol-1",
		Generation: models.Generation{
			GeneratedAt: start,
			Range:       models.TimeRange{Start: start, End: start.AddDate(0, 0, 7)},
			Mode:        models.ModeStrict,
			Org:         "acme",
		},
		Assignments: []models.Assignment{{EventID: "e1", PersonID: "p1", Role: "usher", SolutionID: "sol-1"}},
		Violations: models.Violations{
			Hard: []models.Violation{},
			Soft: []models.Violation{},
		},
		Metrics: models.Metrics{
			HealthScore: 100,
			Fairness:    models.Fairness{PerPerson: map[string]int{"p1": 1}},
		},
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sol.json")
	require.NoError(t, WriteFile(path, sample()))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)
}

func TestMarshal_CarriesSchemaVersion(t *testing.T) {
	b, err := Marshal(sample())
	require.NoError(t, err)
	assert.Contains(t, string(b), `"schema_version": 1`)
	assert.Contains(t, string(b), `"violations"`)
}

func TestDecode_Rejects(t *testing.T) {
	tests := map[string]string{
		"not json":      `{"id": `,
		"unknown field": `{"schema_version": 1, "id": "s", "surprise": true}`,
		"newer schema":  `{"schema_version": 2, "id": "s"}`,
		"missing id":    `{"schema_version": 1}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc))
			assert.ErrorIs(t, err, ErrMalformedSolution)
		})
	}
}

func TestDecode_FillsEmptyCollections(t *testing.T) {
	sol, err := Unmarshal([]byte(`{"schema_version": 1, "id": "s", "decisions": [{"event_id": "e1", "role": "usher"}]}`))
	require.NoError(t, err)
	assert.NotNil(t, sol.Assignments)
	assert.NotNil(t, sol.Violations.Hard)
	assert.NotNil(t, sol.Violations.Soft)
	assert.NotNil(t, sol.Metrics.Fairness.PerPerson)
	assert.NotNil(t, sol.Decisions[0].Assigned)
}
