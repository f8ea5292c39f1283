package predicates

import (
	"github.com/arnavshah/roster-engine/pkg/models"
)

// HolidayLookup flags calendar dates as holidays. A nil lookup flags nothing.
type HolidayLookup map[models.Date]bool

// IsHoliday reports whether the date is flagged
func (h HolidayLookup) IsHoliday(d models.Date) bool {
	return h[d]
}

// HistoryIndex maps a person id to their events sorted by start time
type HistoryIndex map[string][]*models.Event

// EvalContext is the read-only view a predicate evaluates against. It is built
// for one evaluation call and must not be retained after the call returns.
type EvalContext struct {
	event     *models.Event
	person    *models.Person
	role      string
	team      *models.Team
	universe  *models.Universe
	holidays  HolidayLookup
	busy      []models.Interval
	committed []models.Assignment
	history   HistoryIndex
	window    models.TimeRange
}

// Builder assembles an EvalContext. It is a value type so a partially
// configured builder can be reused as a template for many candidates.
type Builder struct {
	ec EvalContext
}

// NewBuilder starts an empty context
func NewBuilder() Builder {
	return Builder{}
}

func (b Builder) Event(e *models.Event) Builder {
	b.ec.event = e
	return b
}

func (b Builder) Person(p *models.Person) Builder {
	b.ec.person = p
	return b
}

func (b Builder) Role(role string) Builder {
	b.ec.role = role
	return b
}

func (b Builder) Team(t *models.Team) Builder {
	b.ec.team = t
	return b
}

func (b Builder) Universe(u *models.Universe) Builder {
	b.ec.universe = u
	return b
}

func (b Builder) Holidays(h HolidayLookup) Builder {
	b.ec.holidays = h
	return b
}

// Busy sets the external busy periods of the person under test
func (b Builder) Busy(busy []models.Interval) Builder {
	b.ec.busy = busy
	return b
}

func (b Builder) Committed(c []models.Assignment) Builder {
	b.ec.committed = c
	return b
}

func (b Builder) History(h HistoryIndex) Builder {
	b.ec.history = h
	return b
}

// Window sets the requested solve range
func (b Builder) Window(w models.TimeRange) Builder {
	b.ec.window = w
	return b
}

// Build returns the finished context
func (b Builder) Build() *EvalContext {
	ec := b.ec
	return &ec
}

func (ec *EvalContext) Event() *models.Event       { return ec.event }
func (ec *EvalContext) Person() *models.Person     { return ec.person }
func (ec *EvalContext) Role() string               { return ec.role }
func (ec *EvalContext) Team() *models.Team         { return ec.team }
func (ec *EvalContext) Universe() *models.Universe { return ec.universe }
func (ec *EvalContext) Window() models.TimeRange   { return ec.window }

// Busy returns the external busy periods of the person under test
func (ec *EvalContext) Busy() []models.Interval { return ec.busy }

// Committed returns the assignments committed so far in this solve
func (ec *EvalContext) Committed() []models.Assignment { return ec.committed }

// IsHoliday consults the holiday lookup; an absent lookup yields false
func (ec *EvalContext) IsHoliday(d models.Date) bool {
	return ec.holidays.IsHoliday(d)
}

// History returns a person's known events in start order
func (ec *EvalContext) History(personID string) []*models.Event {
	if ec.history == nil {
		return nil
	}
	return ec.history[personID]
}

// PersonID returns the id of the person under test, or ""
func (ec *EvalContext) PersonID() string {
	if ec.person == nil {
		return ""
	}
	return ec.person.ID
}
