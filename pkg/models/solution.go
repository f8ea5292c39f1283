package models

import (
	"sort"
	"time"
)

// Solve modes
const (
	ModeStrict  = "strict"
	ModeRelaxed = "relaxed"
)

// SolverInfo names the algorithm that produced a solution
type SolverInfo struct {
	Name     string `json:"name"`
	Strategy string `json:"strategy"`
}

// Generation is the metadata recorded when a solution is produced
type Generation struct {
	GeneratedAt time.Time  `json:"generated_at"`
	Range       TimeRange  `json:"range"`
	Mode        string     `json:"mode"`
	ChangeMin   bool       `json:"change_min"`
	Solver      SolverInfo `json:"solver"`
	Org         string     `json:"org,omitempty"`
	// Relaxed lists the constraint categories skipped by a non-strict mode
	Relaxed     []string `json:"relaxed,omitempty"`
	BaselineTag string   `json:"baseline_tag,omitempty"`
	// Churn counts baseline pairs for solved events that this solution dropped
	Churn       int    `json:"churn"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Fairness is the workload spread across the eligible pool
type Fairness struct {
	Stdev     float64        `json:"stdev"`
	PerPerson map[string]int `json:"per_person"`
}

// Metrics summarises a solution
type Metrics struct {
	SolveMS        int64    `json:"solve_ms"`
	HardViolations int      `json:"hard_violations"`
	SoftScore      float64  `json:"soft_score"`
	Fairness       Fairness `json:"fairness"`
	HealthScore    float64  `json:"health_score"`
}

// Violation is one constraint failure attached to a solution
type Violation struct {
	ConstraintKey string `json:"constraint_key"`
	Message       string `json:"message"`
	EventID       string `json:"event_id,omitempty"`
	Role          string `json:"role,omitempty"`
	PersonID      string `json:"person_id,omitempty"`
}

// Violations is the report of hard failures and sampled soft failures
type Violations struct {
	Hard []Violation `json:"hard"`
	Soft []Violation `json:"soft"`
	// SoftDropped counts soft failures left out of the sample
	SoftDropped int `json:"soft_dropped,omitempty"`
}

// Exclusion records why a candidate was not admissible for a slot
type Exclusion struct {
	PersonID      string `json:"person_id"`
	ConstraintKey string `json:"constraint_key"`
	Reason        string `json:"reason,omitempty"`
}

// SlotDecision records how one (event, role) slot was filled
type SlotDecision struct {
	EventID   string      `json:"event_id"`
	Role      string      `json:"role"`
	Required  int         `json:"required"`
	Assigned  []string    `json:"assigned"`
	Pool      int         `json:"pool"`
	Excluded  []Exclusion `json:"excluded,omitempty"`
	Shortfall int         `json:"shortfall,omitempty"`
}

// Solution is the immutable result of one solve
type Solution struct {
	ID          string         `json:"id"`
	Generation  Generation     `json:"generation"`
	Assignments []Assignment   `json:"assignments"`
	Metrics     Metrics        `json:"metrics"`
	Violations  Violations     `json:"violations"`
	Decisions   []SlotDecision `json:"decisions,omitempty"`
}

// AssignedTo returns the people assigned to an event, in commit order
func (s *Solution) AssignedTo(eventID string) []Assignment {
	var out []Assignment
	for _, a := range s.Assignments {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}
	return out
}

// AssignmentsOf returns the assignments of one person, in commit order
func (s *Solution) AssignmentsOf(personID string) []Assignment {
	var out []Assignment
	for _, a := range s.Assignments {
		if a.PersonID == personID {
			out = append(out, a)
		}
	}
	return out
}

// SortedPairs returns the assignment identities in event, person order
func (s *Solution) SortedPairs() []Pair {
	out := make([]Pair, 0, len(s.Assignments))
	for _, a := range s.Assignments {
		out = append(out, a.Pair())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventID != out[j].EventID {
			return out[i].EventID < out[j].EventID
		}
		return out[i].PersonID < out[j].PersonID
	})
	return out
}
