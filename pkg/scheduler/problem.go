package scheduler

import (
	"fmt"
	"time"

	"github.com/arnavshah/roster-engine/pkg/models"
)

// Problem is the in-memory snapshot of one organization's calendar that a
// solve runs over
type Problem struct {
	Org         string
	Range       models.TimeRange
	People      []models.Person
	Teams       []models.Team
	Events      []models.Event
	Constraints []models.Constraint
	Holidays    []models.Date
	// Busy holds external busy periods per person id
	Busy map[string][]models.Interval
	// Pinned are existing commitments the solver keeps as-is
	Pinned []models.Assignment
	// PastEvents and History describe earlier assignments used by rest and cooldown checks
	PastEvents []models.Event
	History    []models.Assignment
}

// Validate checks referential integrity and entity invariants. It does not
// compile constraints; see constraints.Compile.
func (p *Problem) Validate() error {
	if !p.Range.Valid() {
		return fmt.Errorf("%w: start %s is not before end %s", ErrInvalidRange,
			p.Range.Start.Format(time.RFC3339), p.Range.End.Format(time.RFC3339))
	}

	people := make(map[string]bool, len(p.People))
	for _, person := range p.People {
		if person.ID == "" {
			return fmt.Errorf("%w: person with empty id", ErrInvalidEntity)
		}
		if people[person.ID] {
			return fmt.Errorf("%w: duplicate person id %q", ErrInvalidEntity, person.ID)
		}
		people[person.ID] = true
		if person.Timezone != "" {
			if _, err := time.LoadLocation(person.Timezone); err != nil {
				return fmt.Errorf("%w: person %q timezone: %v", ErrInvalidEntity, person.ID, err)
			}
		}
		for _, span := range person.Blocked {
			if span.From.IsZero() || span.To.IsZero() || span.To.Before(span.From) {
				return fmt.Errorf("%w: person %q has blocked span %s..%s", ErrInvalidEntity, person.ID, span.From, span.To)
			}
		}
	}

	teams := make(map[string]bool, len(p.Teams))
	for _, team := range p.Teams {
		if team.ID == "" {
			return fmt.Errorf("%w: team with empty id", ErrInvalidEntity)
		}
		if teams[team.ID] {
			return fmt.Errorf("%w: duplicate team id %q", ErrInvalidEntity, team.ID)
		}
		teams[team.ID] = true
		for _, m := range team.Members {
			if !people[m] {
				return fmt.Errorf("%w: team %q member %q", ErrDanglingReference, team.ID, m)
			}
		}
	}

	events := make(map[string]*models.Event, len(p.Events)+len(p.PastEvents))
	for _, group := range [][]models.Event{p.Events, p.PastEvents} {
		for i := range group {
			e := &group[i]
			if err := validateEvent(e, teams); err != nil {
				return err
			}
			if events[e.ID] != nil {
				return fmt.Errorf("%w: duplicate event id %q", ErrInvalidEntity, e.ID)
			}
			events[e.ID] = e
		}
	}

	for personID := range p.Busy {
		if !people[personID] {
			return fmt.Errorf("%w: busy periods for unknown person %q", ErrDanglingReference, personID)
		}
	}

	solved := make(map[string]bool, len(p.Events))
	for _, e := range p.Events {
		solved[e.ID] = true
	}

	for _, a := range p.History {
		if events[a.EventID] == nil {
			return fmt.Errorf("%w: history references event %q", ErrDanglingReference, a.EventID)
		}
		if !people[a.PersonID] {
			return fmt.Errorf("%w: history references person %q", ErrDanglingReference, a.PersonID)
		}
		// history only describes past events; commitments on solved events are pins
		if solved[a.EventID] {
			return fmt.Errorf("%w: history assigns %q to event %q which is being solved; pin it instead", ErrInvalidEntity, a.PersonID, a.EventID)
		}
	}
	for _, a := range p.Pinned {
		if !solved[a.EventID] {
			return fmt.Errorf("%w: pinned assignment references event %q", ErrDanglingReference, a.EventID)
		}
		if !people[a.PersonID] {
			return fmt.Errorf("%w: pinned assignment references person %q", ErrDanglingReference, a.PersonID)
		}
		if events[a.EventID].Required(a.Role) == 0 {
			return fmt.Errorf("%w: pinned assignment of %q to %q uses undeclared role %q", ErrInvalidEntity, a.PersonID, a.EventID, a.Role)
		}
	}
	return nil
}

func validateEvent(e *models.Event, teams map[string]bool) error {
	if e.ID == "" {
		return fmt.Errorf("%w: event with empty id", ErrInvalidEntity)
	}
	if e.Start.IsZero() || e.End.IsZero() || !e.Start.Before(e.End) {
		return fmt.Errorf("%w: event %q must start before it ends", ErrInvalidEntity, e.ID)
	}
	if e.TeamID != "" && !teams[e.TeamID] {
		return fmt.Errorf("%w: event %q team %q", ErrDanglingReference, e.ID, e.TeamID)
	}
	if e.Timezone != "" {
		if _, err := time.LoadLocation(e.Timezone); err != nil {
			return fmt.Errorf("%w: event %q timezone: %v", ErrInvalidEntity, e.ID, err)
		}
	}
	roles := make(map[string]bool, len(e.Requirements))
	for _, r := range e.Requirements {
		if r.Role == "" || r.Count < 0 {
			return fmt.Errorf("%w: event %q has requirement %q:%d", ErrInvalidEntity, e.ID, r.Role, r.Count)
		}
		if roles[r.Role] {
			return fmt.Errorf("%w: event %q declares role %q twice", ErrInvalidEntity, e.ID, r.Role)
		}
		roles[r.Role] = true
	}
	return nil
}
