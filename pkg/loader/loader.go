// Package loader reads datasets from JSON, YAML and CSV into solver problems.
//
// Times are carried as strings in documents and parsed here so both
// encodings accept the same spellings: RFC 3339, or a zone-less
// "2006-01-02T15:04[:05]" read in the event's timezone (UTC by default).
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arnavshah/roster-engine/pkg/models"
	"github.com/arnavshah/roster-engine/pkg/scheduler"
)

// ErrFormat is returned for documents that cannot be parsed
var ErrFormat = errors.New("malformed dataset")

// Format names a document encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Document is the on-disk shape of a dataset
type Document struct {
	Org         string               `json:"org,omitempty" yaml:"org,omitempty"`
	Range       RangeDoc             `json:"range" yaml:"range"`
	People      []PersonDoc          `json:"people" yaml:"people"`
	Teams       []models.Team        `json:"teams,omitempty" yaml:"teams,omitempty"`
	Events      []EventDoc           `json:"events" yaml:"events"`
	Constraints []models.Constraint  `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Holidays    []string             `json:"holidays,omitempty" yaml:"holidays,omitempty"`
	Busy        map[string][]SpanDoc `json:"busy,omitempty" yaml:"busy,omitempty"`
	Pinned      []models.Assignment  `json:"pinned,omitempty" yaml:"pinned,omitempty"`
	PastEvents  []EventDoc           `json:"past_events,omitempty" yaml:"past_events,omitempty"`
	History     []models.Assignment  `json:"history,omitempty" yaml:"history,omitempty"`
}

// RangeDoc bounds the solve. A bare date in To means the end of that day.
type RangeDoc struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// SpanDoc is a from/to pair of dates or times
type SpanDoc struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// PersonDoc describes one person
type PersonDoc struct {
	ID          string              `json:"id" yaml:"id"`
	Name        string              `json:"name,omitempty" yaml:"name,omitempty"`
	Roles       []string            `json:"roles,omitempty" yaml:"roles,omitempty"`
	Timezone    string              `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	Blocked     []SpanDoc           `json:"blocked,omitempty" yaml:"blocked,omitempty"`
	Eligibility map[string]bool     `json:"eligibility,omitempty" yaml:"eligibility,omitempty"`
	Status      models.PersonStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// EventDoc describes one event
type EventDoc struct {
	ID           string                   `json:"id" yaml:"id"`
	Type         string                   `json:"type,omitempty" yaml:"type,omitempty"`
	Start        string                   `json:"start" yaml:"start"`
	End          string                   `json:"end" yaml:"end"`
	ResourceID   string                   `json:"resource_id,omitempty" yaml:"resource_id,omitempty"`
	TeamID       string                   `json:"team_id,omitempty" yaml:"team_id,omitempty"`
	Timezone     string                   `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	Requirements []models.RoleRequirement `json:"requirements,omitempty" yaml:"requirements,omitempty"`
}

// FormatOf picks the encoding from a file extension
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unsupported extension %q", ErrFormat, filepath.Ext(path))
	}
}

// ReadFile decodes the dataset at path
func ReadFile(path string) (*Document, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, format)
}

// Parse decodes a dataset document
func Parse(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		for i := range doc.Constraints {
			doc.Constraints[i].Params = normalizeParams(doc.Constraints[i].Params)
		}
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrFormat, format)
	}
	return &doc, nil
}

// normalizeParams turns YAML timestamps back into the strings JSON would carry
func normalizeParams(params map[string]any) map[string]any {
	for k, v := range params {
		if t, ok := v.(time.Time); ok {
			if t.Equal(models.DateOf(t).Midnight(t.Location())) {
				params[k] = models.DateOf(t).String()
			} else {
				params[k] = t.Format(time.RFC3339)
			}
		}
	}
	return params
}

// Problem converts the document into a solver problem
func (d *Document) Problem() (*scheduler.Problem, error) {
	p := &scheduler.Problem{
		Org:         d.Org,
		Teams:       d.Teams,
		Constraints: d.Constraints,
		Pinned:      d.Pinned,
		History:     d.History,
	}

	var err error
	if d.Range.From != "" || d.Range.To != "" {
		if p.Range, err = ParseRange(d.Range.From, d.Range.To); err != nil {
			return nil, err
		}
	}

	for _, pd := range d.People {
		person, err := pd.Person()
		if err != nil {
			return nil, err
		}
		p.People = append(p.People, person)
	}
	if p.Events, err = convertEvents(d.Events); err != nil {
		return nil, err
	}
	if p.PastEvents, err = convertEvents(d.PastEvents); err != nil {
		return nil, err
	}

	for _, h := range d.Holidays {
		day, err := models.ParseDate(h)
		if err != nil {
			return nil, fmt.Errorf("%w: holiday %q: %v", ErrFormat, h, err)
		}
		p.Holidays = append(p.Holidays, day)
	}

	if len(d.Busy) > 0 {
		p.Busy = make(map[string][]models.Interval, len(d.Busy))
		for personID, spans := range d.Busy {
			for _, s := range spans {
				iv, err := parseInterval(s.From, s.To, time.UTC)
				if err != nil {
					return nil, fmt.Errorf("%w: busy period of %q: %v", ErrFormat, personID, err)
				}
				p.Busy[personID] = append(p.Busy[personID], iv)
			}
		}
	}
	return p, nil
}

// Person converts a person document
func (pd PersonDoc) Person() (models.Person, error) {
	person := models.Person{
		ID:          pd.ID,
		Name:        pd.Name,
		Roles:       pd.Roles,
		Timezone:    pd.Timezone,
		Eligibility: pd.Eligibility,
		Status:      pd.Status,
	}
	for _, s := range pd.Blocked {
		span, err := ParseSpan(s.From, s.To)
		if err != nil {
			return models.Person{}, fmt.Errorf("%w: person %q blocked: %v", ErrFormat, pd.ID, err)
		}
		person.Blocked = append(person.Blocked, span)
	}
	return person, nil
}

// Event converts an event document
func (ed EventDoc) Event() (models.Event, error) {
	loc := time.UTC
	if ed.Timezone != "" {
		l, err := time.LoadLocation(ed.Timezone)
		if err != nil {
			return models.Event{}, fmt.Errorf("%w: event %q timezone: %v", ErrFormat, ed.ID, err)
		}
		loc = l
	}
	iv, err := parseInterval(ed.Start, ed.End, loc)
	if err != nil {
		return models.Event{}, fmt.Errorf("%w: event %q: %v", ErrFormat, ed.ID, err)
	}
	return models.Event{
		ID:           ed.ID,
		Type:         ed.Type,
		Start:        iv.Start,
		End:          iv.End,
		ResourceID:   ed.ResourceID,
		TeamID:       ed.TeamID,
		Timezone:     ed.Timezone,
		Requirements: ed.Requirements,
	}, nil
}

func convertEvents(docs []EventDoc) ([]models.Event, error) {
	var events []models.Event
	for _, ed := range docs {
		e, err := ed.Event()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// ParseSpan parses an inclusive date span; an empty To means a single day
func ParseSpan(from, to string) (models.DateSpan, error) {
	f, err := models.ParseDate(from)
	if err != nil {
		return models.DateSpan{}, err
	}
	if to == "" {
		return models.DateSpan{From: f, To: f}, nil
	}
	t, err := models.ParseDate(to)
	if err != nil {
		return models.DateSpan{}, err
	}
	return models.DateSpan{From: f, To: t}, nil
}

// ParseRange parses solve bounds. Bare dates cover whole UTC days, so
// "2024-03-01".."2024-03-31" spans all of March.
func ParseRange(from, to string) (models.TimeRange, error) {
	start, err := parseBound(from, false)
	if err != nil {
		return models.TimeRange{}, fmt.Errorf("%w: range from: %v", ErrFormat, err)
	}
	end, err := parseBound(to, true)
	if err != nil {
		return models.TimeRange{}, fmt.Errorf("%w: range to: %v", ErrFormat, err)
	}
	return models.TimeRange{Start: start, End: end}, nil
}

func parseBound(s string, endOfDay bool) (time.Time, error) {
	if d, err := models.ParseDate(s); err == nil {
		if endOfDay {
			d = d.AddDays(1)
		}
		return d.Midnight(time.UTC), nil
	}
	return ParseTime(s, time.UTC)
}

func parseInterval(start, end string, loc *time.Location) (models.Interval, error) {
	s, err := ParseTime(start, loc)
	if err != nil {
		return models.Interval{}, fmt.Errorf("start: %v", err)
	}
	e, err := ParseTime(end, loc)
	if err != nil {
		return models.Interval{}, fmt.Errorf("end: %v", err)
	}
	return models.Interval{Start: s.UTC(), End: e.UTC()}, nil
}

var localLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"}

// ParseTime accepts RFC 3339 or a zone-less local time in loc
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty time")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", s)
}
