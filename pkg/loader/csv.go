package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/arnavshah/roster-engine/pkg/models"
)

// csvTable indexes a CSV header so rows can be read by column name
type csvTable struct {
	name string
	cols map[string]int
	r    *csv.Reader
	line int
}

func newCSVTable(name string, r io.Reader) (*csvTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s header: %v", ErrFormat, name, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return &csvTable{name: name, cols: cols, r: cr, line: 1}, nil
}

func (t *csvTable) require(names ...string) error {
	for _, n := range names {
		if _, ok := t.cols[n]; !ok {
			return fmt.Errorf("%w: %s is missing column %q", ErrFormat, t.name, n)
		}
	}
	return nil
}

// next returns the next row, or io.EOF
func (t *csvTable) next() ([]string, error) {
	rec, err := t.r.Read()
	t.line++
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s line %d: %v", ErrFormat, t.name, t.line, err)
	}
	return rec, err
}

// get returns the first present column among names
func (t *csvTable) get(rec []string, names ...string) string {
	for _, n := range names {
		if i, ok := t.cols[n]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
	}
	return ""
}

func (t *csvTable) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s line %d: %s", ErrFormat, t.name, t.line, fmt.Sprintf(format, args...))
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ReadPeopleCSV reads people from columns id, name, roles, timezone, status
// and blocked. Lists are "|" separated; a blocked entry is a date or "from..to".
// The legacy "group" column is read as a single role.
func ReadPeopleCSV(r io.Reader) ([]models.Person, error) {
	t, err := newCSVTable("people", r)
	if err != nil {
		return nil, err
	}
	if err := t.require("id"); err != nil {
		return nil, err
	}

	var people []models.Person
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		p := models.Person{
			ID:       t.get(rec, "id"),
			Name:     t.get(rec, "name"),
			Roles:    splitList(t.get(rec, "roles", "group")),
			Timezone: t.get(rec, "timezone"),
			Status:   models.PersonStatus(t.get(rec, "status")),
		}
		for _, entry := range splitList(t.get(rec, "blocked")) {
			from, to, _ := strings.Cut(entry, "..")
			span, err := ParseSpan(strings.TrimSpace(from), strings.TrimSpace(to))
			if err != nil {
				return nil, t.errorf("blocked %q: %v", entry, err)
			}
			p.Blocked = append(p.Blocked, span)
		}
		people = append(people, p)
	}
	return people, nil
}

// ReadEventsCSV reads events from columns id, type, start, end, team_id,
// resource_id, timezone and required_roles ("role:count|role:count").
func ReadEventsCSV(r io.Reader) ([]models.Event, error) {
	t, err := newCSVTable("events", r)
	if err != nil {
		return nil, err
	}
	if err := t.require("id", "start", "end"); err != nil {
		return nil, err
	}

	var events []models.Event
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		reqs, err := ParseRequirements(t.get(rec, "required_roles", "required_groups"))
		if err != nil {
			return nil, t.errorf("%v", err)
		}
		e, err := EventDoc{
			ID:           t.get(rec, "id"),
			Type:         t.get(rec, "type"),
			Start:        t.get(rec, "start"),
			End:          t.get(rec, "end"),
			ResourceID:   t.get(rec, "resource_id"),
			TeamID:       t.get(rec, "team_id"),
			Timezone:     t.get(rec, "timezone"),
			Requirements: reqs,
		}.Event()
		if err != nil {
			return nil, t.errorf("%v", err)
		}
		events = append(events, e)
	}
	return events, nil
}

// ReadPinnedCSV reads existing commitments from columns event_id, person_id
// and role. The legacy shift_id and volunteer_id names are also accepted.
func ReadPinnedCSV(r io.Reader) ([]models.Assignment, error) {
	t, err := newCSVTable("pinned", r)
	if err != nil {
		return nil, err
	}

	var out []models.Assignment
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		a := models.Assignment{
			EventID:  t.get(rec, "event_id", "shift_id"),
			PersonID: t.get(rec, "person_id", "volunteer_id"),
			Role:     t.get(rec, "role"),
			Pinned:   true,
		}
		if a.EventID == "" || a.PersonID == "" {
			return nil, t.errorf("event and person are required")
		}
		out = append(out, a)
	}
	return out, nil
}

// ParseRequirements parses "role:count|role:count", keeping the declared order
func ParseRequirements(s string) ([]models.RoleRequirement, error) {
	var reqs []models.RoleRequirement
	for _, part := range splitList(s) {
		role, count, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("requirement %q is not role:count", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("requirement %q has a bad count", part)
		}
		reqs = append(reqs, models.RoleRequirement{Role: strings.TrimSpace(role), Count: n})
	}
	return reqs, nil
}
