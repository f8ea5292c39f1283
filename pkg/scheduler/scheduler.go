// Package scheduler assigns people to events with a deterministic greedy solver.
//
// Events are filled in chronological order and, within an event, role by role
// in declared order. Each open seat goes to the admissible candidate with the
// lowest cost:
//
//	cost = soft penalty
//	     + fairness weight × (projected load − mean load)
//	     + change-min weight × [pair absent from baseline]
//
// ties going to the person with fewer assignments, then the smaller id.
// A seat nobody can take is reported as a hard violation; the solve itself
// still succeeds.
package scheduler

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/arnavshah/roster-engine/pkg/constraints"
	"github.com/arnavshah/roster-engine/pkg/metrics"
	"github.com/arnavshah/roster-engine/pkg/models"
	"github.com/arnavshah/roster-engine/pkg/predicates"
	"github.com/arnavshah/roster-engine/pkg/report"
)

// Reserved constraint keys for violations the solver raises itself
const (
	ShortfallKey     = "insufficient_eligible_people"
	DoubleBookingKey = "no_double_booking"
)

const costEpsilon = 1e-9

// Scheduler holds the running state of a single solve. It is not safe for
// concurrent use; separate solves use separate Schedulers.
type Scheduler struct {
	cfg         Config
	log         *slog.Logger
	problem     *Problem
	universe    *models.Universe
	constraints *constraints.Set
	skip        []string
	solutionID  string

	events   []*models.Event
	people   []*models.Person
	holidays predicates.HolidayLookup
	baseline map[models.Pair]bool

	load      map[string]int
	history   predicates.HistoryIndex
	committed []models.Assignment
	onEvent   map[string]map[string]bool
	pool      map[string]bool
	softScore float64
	reporter  *report.Reporter
	decisions []models.SlotDecision
}

// NewScheduler validates the problem, compiles its constraints and prepares
// a scheduler. Every load-time error surfaces here.
func NewScheduler(p *Problem, cfg Config) (*Scheduler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	set, err := constraints.Compile(cfg.Registry, p.Constraints)
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	id := cfg.SolutionID
	if id == "" {
		id = uuid.NewString()
	}

	// Work on copies so the caller's entities are never touched.
	cp := *p
	cp.People = slices.Clone(p.People)
	cp.Teams = slices.Clone(p.Teams)
	cp.Events = slices.Clone(p.Events)
	cp.PastEvents = slices.Clone(p.PastEvents)
	p = &cp
	for i := range p.Events {
		p.Events[i].Normalize()
	}
	for i := range p.PastEvents {
		p.PastEvents[i].Normalize()
	}

	s := &Scheduler{
		cfg:         cfg,
		log:         log.With("org", p.Org, "solution", id),
		problem:     p,
		universe:    models.NewUniverse(p.People, p.Teams, p.Events, p.PastEvents),
		constraints: set,
		skip:        slices.Sorted(slices.Values(cfg.skipped())),
		solutionID:  id,
		load:        make(map[string]int),
		history:     make(predicates.HistoryIndex),
		onEvent:     make(map[string]map[string]bool),
		pool:        make(map[string]bool),
		reporter:    report.NewReporter(cfg.SoftSampleLimit),
	}

	for i := range p.Events {
		e := &p.Events[i]
		if p.Range.Contains(e.Start) {
			s.events = append(s.events, e)
		}
	}
	sort.SliceStable(s.events, func(i, j int) bool {
		a, b := s.events[i], s.events[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if !a.End.Equal(b.End) {
			return a.End.Before(b.End)
		}
		return a.ID < b.ID
	})

	declared := set.Categories()
	for _, c := range s.skip {
		if !slices.Contains(declared, c) {
			s.log.Warn("relaxed category matches no constraint", "category", c)
		}
	}

	for i := range p.People {
		s.people = append(s.people, &p.People[i])
	}
	sort.SliceStable(s.people, func(i, j int) bool { return s.people[i].ID < s.people[j].ID })

	if len(p.Holidays) > 0 {
		s.holidays = make(predicates.HolidayLookup, len(p.Holidays))
		for _, d := range p.Holidays {
			s.holidays[d] = true
		}
	}

	for _, a := range p.History {
		e, _ := s.universe.Event(a.EventID)
		s.addHistory(a.PersonID, e)
	}
	return s, nil
}

// Solve runs the solver once and returns a new Solution. The baseline is only
// consulted when change-minimization is requested and may be nil.
func Solve(p *Problem, baseline *models.PublishedSnapshot, cfg Config) (*models.Solution, error) {
	s, err := NewScheduler(p, cfg)
	if err != nil {
		return nil, err
	}
	return s.Run(baseline)
}

// Run fills every slot and assembles the Solution
func (s *Scheduler) Run(baseline *models.PublishedSnapshot) (*models.Solution, error) {
	started := s.cfg.now()

	gen := models.Generation{
		GeneratedAt: started.UTC(),
		Range:       s.problem.Range,
		Mode:        s.cfg.Mode,
		ChangeMin:   s.cfg.ChangeMin,
		Solver:      models.SolverInfo{Name: SolverName, Strategy: SolverStrategy},
		Org:         s.problem.Org,
		Relaxed:     s.skip,
	}
	if s.cfg.ChangeMin {
		if baseline != nil {
			s.baseline = baseline.Pairs()
			gen.BaselineTag = baseline.Tag
		} else {
			s.log.Warn("change minimization requested without a published baseline")
		}
	}

	if err := s.Prefill(s.problem.Pinned); err != nil {
		return nil, err
	}
	s.AssignGreedy()

	hard := s.reporter.HardCount()
	solution := &models.Solution{
		ID:          s.solutionID,
		Generation:  gen,
		Assignments: append([]models.Assignment{}, s.committed...),
		Violations:  s.reporter.Report(),
		Decisions:   s.decisions,
	}
	solution.Generation.Churn = s.churn(baseline)
	solution.Generation.Fingerprint = Fingerprint(solution.Assignments)
	solution.Metrics = metrics.Calculate(metrics.Input{
		Assignments:    solution.Assignments,
		Pool:           s.poolIDs(),
		SoftScore:      s.softScore,
		HardViolations: hard,
		Duration:       s.cfg.now().Sub(started),
		Policy:         s.cfg.Health,
	})

	s.log.Info("solve complete",
		"events", len(s.events),
		"assignments", len(solution.Assignments),
		"hard_violations", hard,
		"soft_score", solution.Metrics.SoftScore,
		"health", solution.Metrics.HealthScore,
	)
	return solution, nil
}

// Prefill commits existing assignments before solving
func (s *Scheduler) Prefill(assignments []models.Assignment) error {
	perRole := make(map[string]map[string]int)
	for _, a := range assignments {
		e, _ := s.universe.Event(a.EventID)
		if s.onEvent[e.ID][a.PersonID] {
			return fmt.Errorf("%w: %q pinned twice to %q", ErrInvalidEntity, a.PersonID, e.ID)
		}
		if s.WouldOverlap(a.PersonID, e) {
			return fmt.Errorf("%w: pinned assignment double-books %q at %q", ErrInvalidEntity, a.PersonID, e.ID)
		}
		if perRole[e.ID] == nil {
			perRole[e.ID] = make(map[string]int)
		}
		perRole[e.ID][a.Role]++
		if perRole[e.ID][a.Role] > e.Required(a.Role) {
			return fmt.Errorf("%w: pinned assignments exceed headcount for %q at %q", ErrInvalidEntity, a.Role, e.ID)
		}
		s.commit(e, a.Role, a.PersonID, true)
	}
	return nil
}

// Overlap checks if two time ranges overlap
func Overlap(a, b models.Interval) bool {
	return a.Overlaps(b)
}

// WouldOverlap checks if any event the person already holds overlaps the new one.
// This holds in every mode; relaxed solves never double-book.
func (s *Scheduler) WouldOverlap(personID string, e *models.Event) bool {
	iv := e.Interval()
	for _, held := range s.history[personID] {
		if held.ID != e.ID && Overlap(held.Interval(), iv) {
			return true
		}
	}
	return false
}

// Allows checks whether a person belongs in the pool for a role at an event
func (s *Scheduler) Allows(e *models.Event, p *models.Person, role string) bool {
	if !p.EligibleFor(role) {
		return false
	}
	if e.TeamID != "" {
		team, ok := s.universe.Team(e.TeamID)
		if !ok || !team.HasMember(p.ID) {
			return false
		}
	}
	return true
}

// GroupByRole returns the active holders of each role, sorted by id
func (s *Scheduler) GroupByRole() map[string][]*models.Person {
	byRole := make(map[string][]*models.Person)
	for _, p := range s.people {
		if !p.Active() {
			continue
		}
		for _, r := range p.Roles {
			byRole[r] = append(byRole[r], p)
		}
	}
	return byRole
}

// AssignGreedy fills every (event, role) slot in chronological, declared order
func (s *Scheduler) AssignGreedy() {
	byRole := s.GroupByRole()
	for _, e := range s.events {
		base := predicates.NewBuilder().
			Event(e).
			Universe(s.universe).
			Holidays(s.holidays).
			History(s.history).
			Window(s.problem.Range)
		if e.TeamID != "" {
			team, _ := s.universe.Team(e.TeamID)
			base = base.Team(team)
		}
		for _, req := range e.Requirements {
			s.fillSlot(e, req, byRole[req.Role], base.Role(req.Role))
		}
	}
}

type candidate struct {
	person  *models.Person
	cost    float64
	verdict constraints.Verdict
}

func (s *Scheduler) fillSlot(e *models.Event, req models.RoleRequirement, holders []*models.Person, base predicates.Builder) {
	decision := models.SlotDecision{
		EventID:  e.ID,
		Role:     req.Role,
		Required: req.Count,
		Assigned: []string{},
	}
	for _, a := range s.committed {
		if a.EventID == e.ID && a.Role == req.Role {
			decision.Assigned = append(decision.Assigned, a.PersonID)
		}
	}

	var pool []*models.Person
	for _, p := range holders {
		if s.Allows(e, p, req.Role) {
			pool = append(pool, p)
			s.pool[p.ID] = true
		}
	}
	decision.Pool = len(pool)

	var excluded map[string][]models.Exclusion
	for len(decision.Assigned) < req.Count {
		excluded = make(map[string][]models.Exclusion)
		var best *candidate
		mean := s.meanLoad()
		for _, p := range pool {
			if s.onEvent[e.ID][p.ID] {
				continue
			}
			if s.WouldOverlap(p.ID, e) {
				excluded[p.ID] = []models.Exclusion{{
					PersonID:      p.ID,
					ConstraintKey: DoubleBookingKey,
					Reason:        "already assigned to an overlapping event",
				}}
				continue
			}
			ec := base.Person(p).Busy(s.problem.Busy[p.ID]).Committed(s.committed).Build()
			v := s.constraints.Evaluate(ec, s.skip)
			if !v.Admissible {
				for _, f := range v.Failed {
					excluded[p.ID] = append(excluded[p.ID], models.Exclusion{
						PersonID:      p.ID,
						ConstraintKey: f.Key,
						Reason:        f.Reason,
					})
				}
				continue
			}
			c := &candidate{person: p, verdict: v, cost: s.cost(e, p, v.SoftPenalty, mean)}
			if best == nil || s.better(c, best) {
				best = c
			}
		}
		if best == nil {
			break
		}
		s.log.Debug("assigned", "event", e.ID, "role", req.Role, "person", best.person.ID, "cost", best.cost)
		s.commit(e, req.Role, best.person.ID, false)
		decision.Assigned = append(decision.Assigned, best.person.ID)
		s.softScore += best.verdict.SoftPenalty
		for _, f := range best.verdict.SoftFailed {
			s.reporter.Soft(models.Violation{
				ConstraintKey: f.Key,
				Message:       fmt.Sprintf("%s for %s as %s at event %s: %s", f.Key, best.person.ID, req.Role, e.ID, f.Reason),
				EventID:       e.ID,
				Role:          req.Role,
				PersonID:      best.person.ID,
			})
		}
	}

	decision.Excluded = flattenExclusions(excluded)
	if missing := req.Count - len(decision.Assigned); missing > 0 {
		decision.Shortfall = missing
		s.reportShortfall(e, req, decision)
	}
	s.decisions = append(s.decisions, decision)
}

func (s *Scheduler) reportShortfall(e *models.Event, req models.RoleRequirement, d models.SlotDecision) {
	blocked := make(map[string]int)
	var keys []string
	for _, x := range d.Excluded {
		if blocked[x.ConstraintKey] == 0 {
			keys = append(keys, x.ConstraintKey)
		}
		blocked[x.ConstraintKey]++
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.reporter.Hard(models.Violation{
			ConstraintKey: k,
			Message:       fmt.Sprintf("could not satisfy %s for role %s at event %s: %d candidate(s) excluded", k, req.Role, e.ID, blocked[k]),
			EventID:       e.ID,
			Role:          req.Role,
		})
	}
	s.reporter.Hard(models.Violation{
		ConstraintKey: ShortfallKey,
		Message: fmt.Sprintf("insufficient eligible people for role %s at event %s: required %d, assigned %d, pool %d",
			req.Role, e.ID, req.Count, len(d.Assigned), d.Pool),
		EventID: e.ID,
		Role:    req.Role,
	})
	s.log.Debug("slot short", "event", e.ID, "role", req.Role, "missing", d.Shortfall)
}

// cost is the objective for placing p at e; lower is better
func (s *Scheduler) cost(e *models.Event, p *models.Person, soft, mean float64) float64 {
	c := soft + s.cfg.FairnessWeight*(float64(s.load[p.ID]+1)-mean)
	if s.cfg.ChangeMin && s.baseline != nil && !s.baseline[models.Pair{EventID: e.ID, PersonID: p.ID}] {
		c += s.cfg.ChangeMinWeight
	}
	return c
}

func (s *Scheduler) better(a, b *candidate) bool {
	if math.Abs(a.cost-b.cost) > costEpsilon {
		return a.cost < b.cost
	}
	if la, lb := s.load[a.person.ID], s.load[b.person.ID]; la != lb {
		return la < lb
	}
	return a.person.ID < b.person.ID
}

// meanLoad is the organization-wide mean of assignments per active person
func (s *Scheduler) meanLoad() float64 {
	var active, total int
	for _, p := range s.people {
		if p.Active() {
			active++
			total += s.load[p.ID]
		}
	}
	if active == 0 {
		return 0
	}
	return float64(total) / float64(active)
}

func (s *Scheduler) commit(e *models.Event, role, personID string, pinned bool) {
	s.committed = append(s.committed, models.Assignment{
		EventID:    e.ID,
		PersonID:   personID,
		Role:       role,
		SolutionID: s.solutionID,
		Pinned:     pinned,
	})
	s.load[personID]++
	if s.onEvent[e.ID] == nil {
		s.onEvent[e.ID] = make(map[string]bool)
	}
	s.onEvent[e.ID][personID] = true
	s.addHistory(personID, e)
}

// addHistory inserts e into the person's history keeping start order. A fresh
// slice is built so contexts handed out earlier never see the change.
func (s *Scheduler) addHistory(personID string, e *models.Event) {
	prev := s.history[personID]
	i := sort.Search(len(prev), func(i int) bool {
		if prev[i].Start.Equal(e.Start) {
			return prev[i].ID > e.ID
		}
		return prev[i].Start.After(e.Start)
	})
	next := make([]*models.Event, 0, len(prev)+1)
	next = append(next, prev[:i]...)
	next = append(next, e)
	next = append(next, prev[i:]...)
	s.history[personID] = next
}

func (s *Scheduler) churn(baseline *models.PublishedSnapshot) int {
	if baseline == nil {
		return 0
	}
	solved := make(map[string]bool, len(s.events))
	for _, e := range s.events {
		solved[e.ID] = true
	}
	n := 0
	for _, a := range baseline.Assignments {
		if solved[a.EventID] && !s.onEvent[a.EventID][a.PersonID] {
			n++
		}
	}
	return n
}

func (s *Scheduler) poolIDs() []string {
	ids := make([]string, 0, len(s.pool))
	for id := range s.pool {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func flattenExclusions(byPerson map[string][]models.Exclusion) []models.Exclusion {
	ids := make([]string, 0, len(byPerson))
	for id := range byPerson {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []models.Exclusion
	for _, id := range ids {
		out = append(out, byPerson[id]...)
	}
	return out
}
