package board

import "github.com/airyra/taskboard/internal/domain"

// ExpansionSet holds the ids of expanded rows.
type ExpansionSet map[domain.TaskID]struct{}

// NewExpansionSet returns a set containing ids.
func NewExpansionSet(ids ...domain.TaskID) ExpansionSet {
	s := make(ExpansionSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is expanded.
func (s ExpansionSet) Has(id domain.TaskID) bool {
	_, ok := s[id]
	return ok
}

// Add marks id as expanded.
func (s ExpansionSet) Add(id domain.TaskID) {
	s[id] = struct{}{}
}

// Remove marks id as collapsed.
func (s ExpansionSet) Remove(id domain.TaskID) {
	delete(s, id)
}

// Clear collapses every row.
func (s ExpansionSet) Clear() {
	clear(s)
}
