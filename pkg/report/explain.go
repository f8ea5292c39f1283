package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/arnavshah/roster-engine/pkg/models"
)

var (
	// ErrExplainSubject is returned unless exactly one of event or person is given
	ErrExplainSubject = errors.New("explain needs exactly one of event or person")
	// ErrNotInSolution is returned when the subject never appears in the solution
	ErrNotInSolution = errors.New("subject not found in solution")
)

// SlotExplanation describes how one role at an event was filled
type SlotExplanation struct {
	Role      string   `json:"role"`
	Required  int      `json:"required"`
	Assigned  []string `json:"assigned"`
	Pool      int      `json:"pool"`
	Shortfall int      `json:"shortfall,omitempty"`
	// ExcludedBy maps a constraint key to the people it ruled out
	ExcludedBy map[string][]string `json:"excluded_by,omitempty"`
}

// EventExplanation answers "why does this event look the way it does"
type EventExplanation struct {
	EventID    string             `json:"event_id"`
	Slots      []SlotExplanation  `json:"slots"`
	Violations []models.Violation `json:"violations"`
}

// PersonExclusion is one slot a person was ruled out of
type PersonExclusion struct {
	EventID       string `json:"event_id"`
	Role          string `json:"role"`
	ConstraintKey string `json:"constraint_key"`
	Reason        string `json:"reason,omitempty"`
}

// PersonExplanation answers "why was this person (not) scheduled"
type PersonExplanation struct {
	PersonID    string              `json:"person_id"`
	Load        int                 `json:"load"`
	Assignments []models.Assignment `json:"assignments"`
	Excluded    []PersonExclusion   `json:"excluded"`
	Violations  []models.Violation  `json:"violations"`
}

// Explanation is the result of Explain; exactly one side is set
type Explanation struct {
	SolutionID string             `json:"solution_id"`
	Event      *EventExplanation  `json:"event,omitempty"`
	Person     *PersonExplanation `json:"person,omitempty"`
}

// Explain answers from the solution's recorded decisions without re-solving
func Explain(sol *models.Solution, eventID, personID string) (*Explanation, error) {
	if (eventID == "") == (personID == "") {
		return nil, ErrExplainSubject
	}
	out := &Explanation{SolutionID: sol.ID}
	if eventID != "" {
		ev := explainEvent(sol, eventID)
		if ev == nil {
			return nil, fmt.Errorf("%w: event %q", ErrNotInSolution, eventID)
		}
		out.Event = ev
		return out, nil
	}
	pe := explainPerson(sol, personID)
	if pe == nil {
		return nil, fmt.Errorf("%w: person %q", ErrNotInSolution, personID)
	}
	out.Person = pe
	return out, nil
}

func explainEvent(sol *models.Solution, eventID string) *EventExplanation {
	ev := &EventExplanation{EventID: eventID, Slots: []SlotExplanation{}}
	found := false
	for _, d := range sol.Decisions {
		if d.EventID != eventID {
			continue
		}
		found = true
		slot := SlotExplanation{
			Role:      d.Role,
			Required:  d.Required,
			Assigned:  append([]string{}, d.Assigned...),
			Pool:      d.Pool,
			Shortfall: d.Shortfall,
		}
		for _, ex := range d.Excluded {
			if slot.ExcludedBy == nil {
				slot.ExcludedBy = make(map[string][]string)
			}
			slot.ExcludedBy[ex.ConstraintKey] = append(slot.ExcludedBy[ex.ConstraintKey], ex.PersonID)
		}
		ev.Slots = append(ev.Slots, slot)
	}
	ev.Violations = filterViolations(sol, func(v models.Violation) bool { return v.EventID == eventID })
	if !found && len(ev.Violations) == 0 && len(sol.AssignedTo(eventID)) == 0 {
		return nil
	}
	return ev
}

func explainPerson(sol *models.Solution, personID string) *PersonExplanation {
	pe := &PersonExplanation{
		PersonID:    personID,
		Load:        sol.Metrics.Fairness.PerPerson[personID],
		Assignments: sol.AssignmentsOf(personID),
		Excluded:    []PersonExclusion{},
	}
	if pe.Assignments == nil {
		pe.Assignments = []models.Assignment{}
	}
	for _, d := range sol.Decisions {
		for _, ex := range d.Excluded {
			if ex.PersonID == personID {
				pe.Excluded = append(pe.Excluded, PersonExclusion{
					EventID:       d.EventID,
					Role:          d.Role,
					ConstraintKey: ex.ConstraintKey,
					Reason:        ex.Reason,
				})
			}
		}
	}
	pe.Violations = filterViolations(sol, func(v models.Violation) bool { return v.PersonID == personID })

	_, inPool := sol.Metrics.Fairness.PerPerson[personID]
	if !inPool && len(pe.Assignments) == 0 && len(pe.Excluded) == 0 && len(pe.Violations) == 0 {
		return nil
	}
	return pe
}

func filterViolations(sol *models.Solution, keep func(models.Violation) bool) []models.Violation {
	out := []models.Violation{}
	for _, group := range [][]models.Violation{sol.Violations.Hard, sol.Violations.Soft} {
		for _, v := range group {
			if keep(v) {
				out = append(out, v)
			}
		}
	}
	return out
}

// Render writes a human-readable explanation
func (e *Explanation) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	switch {
	case e.Event != nil:
		fmt.Fprintf(tw, "Event %s\n", e.Event.EventID)
		for _, s := range e.Event.Slots {
			fmt.Fprintf(tw, "  %s\tfilled %d/%d\tpool %d\t%s\n", s.Role, len(s.Assigned), s.Required, s.Pool, joinOrDash(s.Assigned))
			for _, key := range sortedKeys(s.ExcludedBy) {
				fmt.Fprintf(tw, "    excluded by %s\t%s\n", key, strings.Join(s.ExcludedBy[key], ", "))
			}
		}
		renderViolations(tw, e.Event.Violations)
	case e.Person != nil:
		fmt.Fprintf(tw, "Person %s\tload %d\n", e.Person.PersonID, e.Person.Load)
		for _, a := range e.Person.Assignments {
			tag := ""
			if a.Pinned {
				tag = "pinned"
			}
			fmt.Fprintf(tw, "  assigned\t%s\t%s\t%s\n", a.EventID, a.Role, tag)
		}
		for _, ex := range e.Person.Excluded {
			fmt.Fprintf(tw, "  excluded\t%s\t%s\t%s: %s\n", ex.EventID, ex.Role, ex.ConstraintKey, ex.Reason)
		}
		renderViolations(tw, e.Person.Violations)
	}
	return tw.Flush()
}

func renderViolations(w io.Writer, vs []models.Violation) {
	for _, v := range vs {
		fmt.Fprintf(w, "  violation\t%s\t%s\n", v.ConstraintKey, v.Message)
	}
}

func joinOrDash(ss []string) string {
	if len(ss) == 0 {
		return "-"
	}
	return strings.Join(ss, ", ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
