// Package predicates holds the pure functions constraints are built from and
// the registry that binds them to constraint declarations by name.
//
// Every function here is a pure read of an EvalContext. Missing optional
// context (no holidays, no history, no busy periods) yields the neutral
// answer rather than an error.
package predicates

import (
	"sort"
	"strings"
	"time"

	"github.com/arnavshah/roster-engine/pkg/models"
)

// DayOfWeekMatches compares the event's local weekday name to day, ignoring case
func DayOfWeekMatches(ec *EvalContext, day string) bool {
	e := ec.Event()
	if e == nil {
		return false
	}
	weekday := e.Start.In(e.Location()).Weekday().String()
	return strings.EqualFold(weekday, strings.TrimSpace(day))
}

// OnHoliday reports whether the event's local date is flagged in the holiday lookup
func OnHoliday(ec *EvalContext) bool {
	e := ec.Event()
	if e == nil {
		return false
	}
	return ec.IsHoliday(e.LocalDate())
}

// OverlapsExternal reports whether the event intersects any external busy period
func OverlapsExternal(ec *EvalContext) bool {
	e := ec.Event()
	if e == nil {
		return false
	}
	iv := e.Interval()
	for _, b := range ec.Busy() {
		if iv.Overlaps(b) {
			return true
		}
	}
	return false
}

// HasRole reports whether the person under test holds the role
func HasRole(ec *EvalContext, role string) bool {
	p := ec.Person()
	return p != nil && p.HasRole(role)
}

// OnBlockedDate reports whether the event touches any of the person's time-off spans.
// Dates are read in the person's zone when they declare one, else the event's.
func OnBlockedDate(ec *EvalContext) bool {
	e, p := ec.Event(), ec.Person()
	if e == nil || p == nil || len(p.Blocked) == 0 {
		return false
	}
	var loc *time.Location
	if p.Timezone != "" {
		loc = p.Location()
	}
	from, to := e.LocalSpan(loc)
	for _, span := range p.Blocked {
		if span.Intersects(from, to) {
			return true
		}
	}
	return false
}

// PeriodAssignmentCount counts a person's known events whose local date falls
// inside the inclusive range [from, to]
func PeriodAssignmentCount(ec *EvalContext, personID string, from, to models.Date) int {
	n := 0
	for _, e := range ec.History(personID) {
		d := e.LocalDate()
		if !d.Before(from) && !d.After(to) {
			n++
		}
	}
	return n
}

// PeriodHours sums the hours of a person's known events dated inside [from, to]
func PeriodHours(ec *EvalContext, personID string, from, to models.Date) float64 {
	var h float64
	for _, e := range ec.History(personID) {
		d := e.LocalDate()
		if !d.Before(from) && !d.After(to) {
			h += e.Interval().Hours()
		}
	}
	return h
}

// RestShortfall places candidate among the person's events and returns the
// worst shortfall in hours against its immediate neighbours, or 0 when both
// adjacent gaps reach the threshold.
func RestShortfall(ec *EvalContext, personID string, candidate *models.Event, hours float64) float64 {
	events := sortedByStart(append(append([]*models.Event(nil), ec.History(personID)...), candidate))
	var worst float64
	for i, e := range events {
		if e != candidate {
			continue
		}
		if i > 0 {
			worst = max(worst, hours-gapHours(events[i-1], e))
		}
		if i+1 < len(events) {
			worst = max(worst, hours-gapHours(e, events[i+1]))
		}
		break
	}
	return worst
}

// DaysSinceLast finds the person's event with the latest end at or before asOf
// and returns the whole calendar days between them. ok is false when the person
// has no such event; callers treat that as nothing to violate.
func DaysSinceLast(ec *EvalContext, personID string, asOf time.Time) (days int, ok bool) {
	var last *models.Event
	for _, e := range ec.History(personID) {
		if e.End.After(asOf) {
			continue
		}
		if last == nil || e.End.After(last.End) {
			last = e
		}
	}
	if last == nil {
		return 0, false
	}
	return models.DateOf(last.End.UTC()).DaysUntil(models.DateOf(asOf.UTC())), true
}

// IsTeamMember reports whether the person under test belongs to the team
func IsTeamMember(ec *EvalContext, teamID string) bool {
	p := ec.Person()
	if p == nil {
		return false
	}
	t, ok := ec.Universe().Team(teamID)
	return ok && t.HasMember(p.ID)
}

func gapHours(prev, next *models.Event) float64 {
	return next.Start.Sub(prev.End).Hours()
}

func sortedByStart(events []*models.Event) []*models.Event {
	out := append([]*models.Event(nil), events...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
