package predicates

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/arnavshah/roster-engine/pkg/models"
)

// Params is a constraint's parameter bag as declared in the dataset
type Params map[string]any

// String returns a string parameter
func (p Params) String(key string) (string, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, isStr := v.(string)
	if !isStr {
		return "", true, fmt.Errorf("%w: %q must be a string, got %T", ErrInvalidParams, key, v)
	}
	return s, true, nil
}

// Float returns a numeric parameter. YAML ints, JSON numbers and numeric
// strings are accepted.
func (p Params) Float(key string) (float64, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, true, fmt.Errorf("%w: %q: %v", ErrInvalidParams, key, err)
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, true, fmt.Errorf("%w: %q must be numeric, got %q", ErrInvalidParams, key, n)
		}
		f = parsed
	default:
		return 0, true, fmt.Errorf("%w: %q must be numeric, got %T", ErrInvalidParams, key, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, true, fmt.Errorf("%w: %q must be finite", ErrInvalidParams, key)
	}
	return f, true, nil
}

// Int returns a whole-number parameter
func (p Params) Int(key string) (int, bool, error) {
	f, ok, err := p.Float(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	if f != math.Trunc(f) {
		return 0, true, fmt.Errorf("%w: %q must be a whole number, got %v", ErrInvalidParams, key, f)
	}
	return int(f), true, nil
}

// Date returns a YYYY-MM-DD parameter
func (p Params) Date(key string) (models.Date, bool, error) {
	s, ok, err := p.String(key)
	if err != nil || !ok {
		return models.Date{}, ok, err
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return models.Date{}, true, fmt.Errorf("%w: %q: %v", ErrInvalidParams, key, err)
	}
	return d, true, nil
}

// requireNonNegative validates a mandatory numeric parameter at load time
func (p Params) requireNonNegative(key string) (float64, error) {
	f, ok, err := p.Float(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %q is required", ErrInvalidParams, key)
	}
	if f < 0 {
		return 0, fmt.Errorf("%w: %q must not be negative, got %v", ErrInvalidParams, key, f)
	}
	return f, nil
}

// mustFloat reads a parameter already checked at load time
func (p Params) mustFloat(key string) float64 {
	f, _, _ := p.Float(key)
	return f
}
