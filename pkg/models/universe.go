package models

// Universe indexes every entity a solve can reference
type Universe struct {
	People map[string]*Person
	Teams  map[string]*Team
	Events map[string]*Event
}

// NewUniverse indexes the given entities by id. Later duplicates win; callers
// that need duplicate detection validate before indexing.
func NewUniverse(people []Person, teams []Team, events ...[]Event) *Universe {
	u := &Universe{
		People: make(map[string]*Person, len(people)),
		Teams:  make(map[string]*Team, len(teams)),
		Events: make(map[string]*Event),
	}
	for i := range people {
		u.People[people[i].ID] = &people[i]
	}
	for i := range teams {
		u.Teams[teams[i].ID] = &teams[i]
	}
	for _, group := range events {
		for i := range group {
			u.Events[group[i].ID] = &group[i]
		}
	}
	return u
}

// Person looks up a person by id
func (u *Universe) Person(id string) (*Person, bool) {
	if u == nil {
		return nil, false
	}
	p, ok := u.People[id]
	return p, ok
}

// Team looks up a team by id
func (u *Universe) Team(id string) (*Team, bool) {
	if u == nil {
		return nil, false
	}
	t, ok := u.Teams[id]
	return t, ok
}

// Event looks up an event by id
func (u *Universe) Event(id string) (*Event, bool) {
	if u == nil {
		return nil, false
	}
	e, ok := u.Events[id]
	return e, ok
}
