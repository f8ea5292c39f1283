// Package codec reads and writes the on-wire Solution shape consumed by
// reporting and export collaborators.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/arnavshah/roster-engine/pkg/models"
)

// SchemaVersion is bumped on any breaking change to the wire shape
const SchemaVersion = 1

// ErrMalformedSolution is returned when a document does not hold a solution
var ErrMalformedSolution = errors.New("malformed solution document")

type envelope struct {
	SchemaVersion int `json:"schema_version"`
	*models.Solution
}

// Encode writes the solution as indented JSON
func Encode(w io.Writer, s *models.Solution) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(envelope{SchemaVersion: SchemaVersion, Solution: s})
}

// Marshal returns the solution document as bytes
func Marshal(s *models.Solution) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a solution document, rejecting unknown fields and newer schemas
func Decode(r io.Reader) (*models.Solution, error) {
	env := envelope{Solution: &models.Solution{}}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSolution, err)
	}
	if env.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("%w: schema version %d is newer than %d", ErrMalformedSolution, env.SchemaVersion, SchemaVersion)
	}
	if env.Solution.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformedSolution)
	}
	normalize(env.Solution)
	return env.Solution, nil
}

// Unmarshal decodes a solution document from bytes
func Unmarshal(b []byte) (*models.Solution, error) {
	return Decode(bytes.NewReader(b))
}

// ReadFile loads a solution document from disk
func ReadFile(path string) (*models.Solution, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// WriteFile stores a solution document on disk
func WriteFile(path string, s *models.Solution) error {
	b, err := Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// normalize restores the non-nil collections the solver always emits
func normalize(s *models.Solution) {
	if s.Assignments == nil {
		s.Assignments = []models.Assignment{}
	}
	if s.Violations.Hard == nil {
		s.Violations.Hard = []models.Violation{}
	}
	if s.Violations.Soft == nil {
		s.Violations.Soft = []models.Violation{}
	}
	if s.Metrics.Fairness.PerPerson == nil {
		s.Metrics.Fairness.PerPerson = map[string]int{}
	}
	for i := range s.Decisions {
		if s.Decisions[i].Assigned == nil {
			s.Decisions[i].Assigned = []string{}
		}
	}
}
