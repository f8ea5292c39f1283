// Package constraints binds declared constraints to the predicate registry
// and evaluates them against a candidate assignment.
package constraints

import (
	"errors"
	"fmt"
	"slices"

	"github.com/arnavshah/roster-engine/pkg/models"
	"github.com/arnavshah/roster-engine/pkg/predicates"
)

var (
	// ErrUnknownPredicate is returned when a constraint names an unregistered predicate
	ErrUnknownPredicate = errors.New("unknown predicate")

	// ErrInvalidConstraint is returned for malformed constraint declarations
	ErrInvalidConstraint = errors.New("invalid constraint")
)

// Result is the evaluation of one constraint for one candidate
type Result struct {
	Key       string
	Kind      models.ConstraintKind
	Category  string
	Satisfied bool
	// Penalty is weight × severity for a failed soft constraint, else 0
	Penalty float64
	Reason  string
}

// Bound is a constraint resolved against its predicate
type Bound struct {
	models.Constraint
	pred   predicates.Predicate
	params predicates.Params
}

// Evaluate applies the predicate and converts its outcome into a Result
func (b *Bound) Evaluate(ec *predicates.EvalContext) Result {
	out := b.pred.Check(ec, b.params)
	satisfied := out.Satisfied
	if b.Negate {
		satisfied = !satisfied
	}
	res := Result{
		Key:       b.Key,
		Kind:      b.Kind,
		Category:  b.Category,
		Satisfied: satisfied,
	}
	if satisfied {
		return res
	}
	res.Reason = b.reason(out)
	if b.Kind == models.Soft {
		severity := out.Severity
		if b.pred.Boolean || severity <= 0 {
			severity = 1
		}
		res.Penalty = b.Weight * severity
	}
	return res
}

func (b *Bound) reason(out predicates.Outcome) string {
	switch {
	case !b.pred.Boolean:
		return out.Detail
	case b.Negate:
		return out.Detail
	default:
		return "expected " + out.Detail
	}
}

// Set is a compiled, ordered list of constraints
type Set struct {
	hard []*Bound
	soft []*Bound
}

// Compile resolves every constraint against the registry. Unknown predicates,
// duplicate keys and invalid parameters fail here rather than during a solve.
func Compile(reg *predicates.Registry, decls []models.Constraint) (*Set, error) {
	if reg == nil {
		reg = predicates.Default()
	}
	set := &Set{}
	seen := make(map[string]bool, len(decls))
	for _, c := range decls {
		if c.Key == "" {
			return nil, fmt.Errorf("%w: constraint with predicate %q has no key", ErrInvalidConstraint, c.Predicate)
		}
		if seen[c.Key] {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidConstraint, c.Key)
		}
		seen[c.Key] = true

		pred, ok := reg.Lookup(c.Predicate)
		if !ok {
			return nil, fmt.Errorf("constraint %q: %w %q", c.Key, ErrUnknownPredicate, c.Predicate)
		}
		if c.Negate && !pred.Boolean {
			return nil, fmt.Errorf("%w: %q negates measured predicate %q", ErrInvalidConstraint, c.Key, c.Predicate)
		}
		params := predicates.Params(c.Params)
		if err := pred.Validate(params); err != nil {
			return nil, fmt.Errorf("constraint %q: %w", c.Key, err)
		}

		b := &Bound{Constraint: c, pred: pred, params: params}
		switch c.Kind {
		case models.Hard:
			if c.Weight != 0 {
				return nil, fmt.Errorf("%w: hard constraint %q carries a weight", ErrInvalidConstraint, c.Key)
			}
			set.hard = append(set.hard, b)
		case models.Soft:
			if c.Weight < 0 {
				return nil, fmt.Errorf("%w: soft constraint %q has negative weight", ErrInvalidConstraint, c.Key)
			}
			set.soft = append(set.soft, b)
		default:
			return nil, fmt.Errorf("%w: %q has kind %q", ErrInvalidConstraint, c.Key, c.Kind)
		}
	}
	return set, nil
}

// Hard returns the hard constraints in declared order
func (s *Set) Hard() []*Bound { return s.hard }

// Soft returns the soft constraints in declared order
func (s *Set) Soft() []*Bound { return s.soft }

// Verdict is the combined evaluation of a candidate
type Verdict struct {
	Admissible  bool
	Failed      []Result
	SoftPenalty float64
	SoftFailed  []Result
}

// Evaluate checks hard constraints first and stops scoring soft ones once the
// candidate is inadmissible. Constraints whose category is listed in skip are ignored.
func (s *Set) Evaluate(ec *predicates.EvalContext, skip []string) Verdict {
	v := Verdict{Admissible: true}
	for _, b := range s.hard {
		if skipped(b.Category, skip) {
			continue
		}
		if r := b.Evaluate(ec); !r.Satisfied {
			v.Admissible = false
			v.Failed = append(v.Failed, r)
		}
	}
	if !v.Admissible {
		return v
	}
	for _, b := range s.soft {
		if skipped(b.Category, skip) {
			continue
		}
		if r := b.Evaluate(ec); !r.Satisfied {
			v.SoftPenalty += r.Penalty
			v.SoftFailed = append(v.SoftFailed, r)
		}
	}
	return v
}

// Categories returns the distinct categories declared across the set
func (s *Set) Categories() []string {
	var out []string
	for _, b := range append(append([]*Bound(nil), s.hard...), s.soft...) {
		if b.Category != "" && !slices.Contains(out, b.Category) {
			out = append(out, b.Category)
		}
	}
	slices.Sort(out)
	return out
}

func skipped(category string, skip []string) bool {
	return category != "" && slices.Contains(skip, category)
}
