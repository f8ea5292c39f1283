package predicates

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/arnavshah/roster-engine/pkg/models"
)

// Outcome is what a registered predicate reports for one candidate.
// Severity is only meaningful when Satisfied is false. Boolean predicates
// describe the positive statement in Detail regardless of the answer.
type Outcome struct {
	Satisfied bool
	Severity  float64
	Detail    string
}

// CheckFunc is the single function shape every registered predicate implements
type CheckFunc func(ec *EvalContext, p Params) Outcome

// ValidateFunc checks a parameter bag when constraints are loaded
type ValidateFunc func(p Params) error

// Predicate is a registry entry
type Predicate struct {
	Name string
	// Boolean predicates answer yes/no and may be negated by a constraint
	Boolean  bool
	Validate ValidateFunc
	Check    CheckFunc
}

// Registry maps predicate names to implementations
type Registry struct {
	preds map[string]Predicate
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{preds: make(map[string]Predicate)}
}

// Register adds a predicate; names are unique
func (r *Registry) Register(p Predicate) error {
	if p.Name == "" || p.Check == nil {
		return fmt.Errorf("predicate needs a name and a check function")
	}
	if _, exists := r.preds[p.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePredicate, p.Name)
	}
	if p.Validate == nil {
		p.Validate = func(Params) error { return nil }
	}
	r.preds[p.Name] = p
	return nil
}

// Lookup resolves a predicate by name
func (r *Registry) Lookup(name string) (Predicate, bool) {
	p, ok := r.preds[name]
	return p, ok
}

// Names lists registered predicates in sorted order
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.preds))
	for name := range r.preds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Built-in predicate names
const (
	DayOfWeek        = "day_of_week"
	Holiday          = "holiday"
	ExternalOverlap  = "external_overlap"
	BlockedDates     = "blocked_dates"
	RoleMembership   = "has_role"
	TeamMember       = "team_member"
	MaxInPeriod      = "max_in_period"
	MaxHoursInPeriod = "max_hours_in_period"
	MinRestHours     = "min_rest_hours"
	CooldownDays     = "cooldown_days"
)

// Default returns a registry holding every built-in predicate
func Default() *Registry {
	r := NewRegistry()
	for _, p := range builtins() {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

func builtins() []Predicate {
	return []Predicate{
		{
			Name:     DayOfWeek,
			Boolean:  true,
			Validate: validateDayOfWeek,
			Check: func(ec *EvalContext, p Params) Outcome {
				day, _, _ := p.String("day")
				return boolOutcome(DayOfWeekMatches(ec, day), "event falls on "+weekdayOf(ec))
			},
		},
		{
			Name:    Holiday,
			Boolean: true,
			Check: func(ec *EvalContext, _ Params) Outcome {
				return boolOutcome(OnHoliday(ec), "event date "+ec.Event().LocalDate().String()+" is a holiday")
			},
		},
		{
			Name:    ExternalOverlap,
			Boolean: true,
			Check: func(ec *EvalContext, _ Params) Outcome {
				return boolOutcome(OverlapsExternal(ec), "event overlaps an external busy period")
			},
		},
		{
			Name:    BlockedDates,
			Boolean: true,
			Check: func(ec *EvalContext, _ Params) Outcome {
				return boolOutcome(OnBlockedDate(ec), "event falls on blocked dates")
			},
		},
		{
			Name:     RoleMembership,
			Boolean:  true,
			Validate: optionalString("role"),
			Check: func(ec *EvalContext, p Params) Outcome {
				role, ok, _ := p.String("role")
				if !ok {
					role = ec.Role()
				}
				return boolOutcome(HasRole(ec, role), "person holds role "+role)
			},
		},
		{
			Name:     TeamMember,
			Boolean:  true,
			Validate: optionalString("team"),
			Check: func(ec *EvalContext, p Params) Outcome {
				team, ok, _ := p.String("team")
				if !ok {
					if ec.Event() == nil || ec.Event().TeamID == "" {
						return Outcome{Satisfied: true}
					}
					team = ec.Event().TeamID
				}
				return boolOutcome(IsTeamMember(ec, team), "person is a member of team "+team)
			},
		},
		{
			Name:     MaxInPeriod,
			Validate: validatePeriodLimit("max"),
			Check:    checkMaxInPeriod,
		},
		{
			Name:     MaxHoursInPeriod,
			Validate: validatePeriodLimit("hours"),
			Check:    checkMaxHoursInPeriod,
		},
		{
			Name: MinRestHours,
			Validate: func(p Params) error {
				_, err := p.requireNonNegative("hours")
				return err
			},
			Check: checkMinRest,
		},
		{
			Name: CooldownDays,
			Validate: func(p Params) error {
				if _, err := p.requireNonNegative("days"); err != nil {
					return err
				}
				_, _, err := p.Int("days")
				return err
			},
			Check: checkCooldown,
		},
	}
}

func checkMaxInPeriod(ec *EvalContext, p Params) Outcome {
	limit := p.mustFloat("max")
	from, to := periodBounds(ec, p)
	n := float64(PeriodAssignmentCount(ec, ec.PersonID(), from, to))
	if d := ec.Event().LocalDate(); !d.Before(from) && !d.After(to) {
		n++
	}
	if n <= limit {
		return Outcome{Satisfied: true}
	}
	return Outcome{
		Severity: (n - limit) / max(limit, 1),
		Detail:   fmt.Sprintf("%d assignments between %s and %s exceeds %d", int(n), from, to, int(limit)),
	}
}

func checkMaxHoursInPeriod(ec *EvalContext, p Params) Outcome {
	limit := p.mustFloat("hours")
	from, to := periodBounds(ec, p)
	h := PeriodHours(ec, ec.PersonID(), from, to)
	if d := ec.Event().LocalDate(); !d.Before(from) && !d.After(to) {
		h += ec.Event().Interval().Hours()
	}
	if h <= limit {
		return Outcome{Satisfied: true}
	}
	return Outcome{
		Severity: (h - limit) / max(limit, 1),
		Detail:   fmt.Sprintf("%.1f hours between %s and %s exceeds %.1f", h, from, to, limit),
	}
}

func checkMinRest(ec *EvalContext, p Params) Outcome {
	hours := p.mustFloat("hours")
	if hours == 0 {
		return Outcome{Satisfied: true}
	}
	short := RestShortfall(ec, ec.PersonID(), ec.Event(), hours)
	if short <= 0 {
		return Outcome{Satisfied: true}
	}
	return Outcome{
		Severity: min(short/hours, 1),
		Detail:   fmt.Sprintf("rest gap %.1fh below minimum %.1fh", hours-short, hours),
	}
}

func checkCooldown(ec *EvalContext, p Params) Outcome {
	days := p.mustFloat("days")
	since, ok := DaysSinceLast(ec, ec.PersonID(), ec.Event().Start)
	if !ok || days == 0 || float64(since) >= days {
		return Outcome{Satisfied: true}
	}
	return Outcome{
		Severity: (days - float64(since)) / days,
		Detail:   fmt.Sprintf("%d days since last assignment, cooldown is %d", since, int(days)),
	}
}

// periodBounds resolves the inclusive date range a period limit applies to
func periodBounds(ec *EvalContext, p Params) (models.Date, models.Date) {
	from, hasFrom, _ := p.Date("from")
	to, hasTo, _ := p.Date("to")
	if hasFrom && hasTo {
		return from, to
	}
	anchor := ec.Event().LocalDate()
	period, _, _ := p.String("period")
	switch strings.ToLower(period) {
	case "week":
		offset := (int(anchor.Midnight(time.UTC).Weekday()) + 6) % 7
		start := anchor.AddDays(-offset)
		return start, start.AddDays(6)
	case "month":
		start := models.Date{Year: anchor.Year, Month: anchor.Month, Day: 1}
		next := models.DateOf(start.Midnight(time.UTC).AddDate(0, 1, 0))
		return start, next.AddDays(-1)
	}
	w := ec.Window()
	if w.Valid() {
		return models.DateOf(w.Start.UTC()), models.DateOf(w.End.UTC().Add(-time.Nanosecond))
	}
	return models.Date{Year: 1, Month: time.January, Day: 1}, models.Date{Year: 9999, Month: time.December, Day: 31}
}

func validatePeriodLimit(limitKey string) ValidateFunc {
	return func(p Params) error {
		if _, err := p.requireNonNegative(limitKey); err != nil {
			return err
		}
		period, _, err := p.String("period")
		if err != nil {
			return err
		}
		switch strings.ToLower(period) {
		case "", "range", "week", "month":
		default:
			return fmt.Errorf("%w: unknown period %q", ErrInvalidParams, period)
		}
		from, hasFrom, err := p.Date("from")
		if err != nil {
			return err
		}
		to, hasTo, err := p.Date("to")
		if err != nil {
			return err
		}
		if hasFrom != hasTo {
			return fmt.Errorf("%w: from and to must be given together", ErrInvalidParams)
		}
		if hasFrom && to.Before(from) {
			return fmt.Errorf("%w: to %s is before from %s", ErrInvalidParams, to, from)
		}
		return nil
	}
}

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

func validateDayOfWeek(p Params) error {
	day, ok, err := p.String("day")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q is required", ErrInvalidParams, "day")
	}
	if !weekdays[strings.ToLower(strings.TrimSpace(day))] {
		return fmt.Errorf("%w: %q is not a weekday", ErrInvalidParams, day)
	}
	return nil
}

func optionalString(key string) ValidateFunc {
	return func(p Params) error {
		_, _, err := p.String(key)
		return err
	}
}

func boolOutcome(ok bool, detail string) Outcome {
	if ok {
		return Outcome{Satisfied: true, Detail: detail}
	}
	return Outcome{Severity: 1, Detail: detail}
}

func weekdayOf(ec *EvalContext) string {
	e := ec.Event()
	if e == nil {
		return ""
	}
	return e.Start.In(e.Location()).Weekday().String()
}
