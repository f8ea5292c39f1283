package models

import (
	"slices"
	"strings"
	"time"
)

// PersonStatus flags whether a person can still be scheduled
type PersonStatus string

const (
	StatusActive   PersonStatus = "active"
	StatusInactive PersonStatus = "inactive"
)

// Person represents someone who can be assigned to events
type Person struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Roles    []string `json:"roles" yaml:"roles"`
	Timezone string   `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	// Blocked holds inclusive time-off spans
	Blocked []DateSpan `json:"blocked,omitempty" yaml:"blocked,omitempty"`
	// Eligibility overrides role eligibility per role label; a false entry
	// removes the person from that role's pool even if they hold the role.
	Eligibility map[string]bool `json:"eligibility,omitempty" yaml:"eligibility,omitempty"`
	Status      PersonStatus    `json:"status,omitempty" yaml:"status,omitempty"`
}

// HasRole reports whether the role label is in the person's role set
func (p *Person) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// Active reports whether the person is schedulable
func (p *Person) Active() bool {
	return p.Status == "" || p.Status == StatusActive
}

// EligibleFor reports whether the person may fill the role at all
func (p *Person) EligibleFor(role string) bool {
	if !p.Active() || !p.HasRole(role) {
		return false
	}
	if ok, set := p.Eligibility[role]; set {
		return ok
	}
	return true
}

// Location resolves the person's timezone, falling back to UTC
func (p *Person) Location() *time.Location {
	return loadLocation(p.Timezone)
}

// Team represents a named set of people
type Team struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Members []string `json:"members" yaml:"members"`
}

// HasMember reports whether the person belongs to the team
func (t *Team) HasMember(personID string) bool {
	return slices.Contains(t.Members, personID)
}

// RoleRequirement is the headcount needed for one role at an event
type RoleRequirement struct {
	Role  string `json:"role" yaml:"role"`
	Count int    `json:"count" yaml:"count"`
}

// Event represents a time slot that needs people
type Event struct {
	ID         string    `json:"id" yaml:"id"`
	Type       string    `json:"type,omitempty" yaml:"type,omitempty"`
	Start      time.Time `json:"start" yaml:"start"`
	End        time.Time `json:"end" yaml:"end"`
	ResourceID string    `json:"resource_id,omitempty" yaml:"resource_id,omitempty"`
	TeamID     string    `json:"team_id,omitempty" yaml:"team_id,omitempty"`
	Timezone   string    `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	// Requirements keeps the declared order; the solver fills roles in it
	Requirements []RoleRequirement `json:"requirements,omitempty" yaml:"requirements,omitempty"`
}

// Interval returns the event's [start, end) interval
func (e *Event) Interval() Interval {
	return Interval{Start: e.Start, End: e.End}
}

// Location resolves the event's timezone, falling back to UTC
func (e *Event) Location() *time.Location {
	return loadLocation(e.Timezone)
}

// LocalDate returns the calendar date the event starts on, in its own zone
func (e *Event) LocalDate() Date {
	return DateOf(e.Start.In(e.Location()))
}

// LocalSpan returns the calendar dates of the first and last instant of the
// event as seen in loc, or in the event's own zone when loc is nil
func (e *Event) LocalSpan(loc *time.Location) (first, last Date) {
	if loc == nil {
		loc = e.Location()
	}
	end := e.End.In(loc)
	if end.After(e.Start) {
		end = end.Add(-time.Nanosecond)
	}
	return DateOf(e.Start.In(loc)), DateOf(end)
}

// Required returns the headcount declared for a role, or 0
func (e *Event) Required(role string) int {
	for _, r := range e.Requirements {
		if r.Role == role {
			return r.Count
		}
	}
	return 0
}

// Normalize stores start and end in UTC
func (e *Event) Normalize() {
	e.Start = e.Start.UTC()
	e.End = e.End.UTC()
}

// ConstraintKind separates admissibility rules from preferences
type ConstraintKind string

const (
	Hard ConstraintKind = "hard"
	Soft ConstraintKind = "soft"
)

// Constraint binds a predicate from the library to parameters and a weight
type Constraint struct {
	Key       string         `json:"key" yaml:"key"`
	Kind      ConstraintKind `json:"kind" yaml:"kind"`
	Predicate string         `json:"predicate" yaml:"predicate"`
	Params    map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Weight    float64        `json:"weight,omitempty" yaml:"weight,omitempty"`
	// Category groups constraints that relaxed solve modes may skip
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	// Negate inverts a boolean predicate
	Negate      bool   `json:"negate,omitempty" yaml:"negate,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Assignment represents a person placed in a role at an event
type Assignment struct {
	EventID    string `json:"event_id" yaml:"event_id"`
	PersonID   string `json:"person_id" yaml:"person_id"`
	Role       string `json:"role,omitempty" yaml:"role,omitempty"`
	SolutionID string `json:"solution_id,omitempty" yaml:"solution_id,omitempty"`
	Pinned     bool   `json:"pinned,omitempty" yaml:"pinned,omitempty"`
}

// Pair is the (event, person) identity of an assignment
type Pair struct {
	EventID  string `json:"event_id"`
	PersonID string `json:"person_id"`
}

// Pair returns the assignment's identity
func (a Assignment) Pair() Pair {
	return Pair{EventID: a.EventID, PersonID: a.PersonID}
}

// PublishedSnapshot is an operator-published copy of a solution's assignments
type PublishedSnapshot struct {
	ID          string       `json:"id"`
	Org         string       `json:"org"`
	Tag         string       `json:"tag"`
	SolutionID  string       `json:"solution_id"`
	PublishedAt time.Time    `json:"published_at"`
	Assignments []Assignment `json:"assignments"`
}

// Pairs indexes the snapshot's (event, person) pairs
func (s *PublishedSnapshot) Pairs() map[Pair]bool {
	out := make(map[Pair]bool, len(s.Assignments))
	for _, a := range s.Assignments {
		out[a.Pair()] = true
	}
	return out
}

func loadLocation(name string) *time.Location {
	if strings.TrimSpace(name) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
