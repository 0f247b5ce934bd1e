package board

import "github.com/airyra/taskboard/internal/domain"

// Row is one visible line of the board.
type Row struct {
	Task        *domain.Task
	Depth       int
	Expanded    bool
	HasChildren bool
}

// Materialize flattens roots into display rows. A row is followed by its
// children, depth first, when it is expanded and its children are cached;
// an expanded id without a cache entry renders collapsed.
//
// Materialize does not modify its inputs, so equal inputs give equal rows.
func Materialize(roots []*domain.Task, cache *Cache, expanded ExpansionSet) []Row {
	if cache == nil {
		cache = NewCache()
	}

	rootSet := make(map[domain.TaskID]struct{}, len(roots))
	for _, r := range roots {
		if r != nil {
			rootSet[r.ID] = struct{}{}
		}
	}

	m := materializer{
		rootSet:  rootSet,
		cache:    cache,
		expanded: expanded,
		visited:  make(map[domain.TaskID]struct{}),
		rows:     make([]Row, 0, len(roots)),
	}
	for _, r := range roots {
		if r != nil {
			m.emit(r)
		}
	}
	return m.rows
}

type materializer struct {
	rootSet  map[domain.TaskID]struct{}
	cache    *Cache
	expanded ExpansionSet
	visited  map[domain.TaskID]struct{}
	rows     []Row
}

func (m *materializer) emit(t *domain.Task) {
	if _, seen := m.visited[t.ID]; seen {
		return
	}
	m.visited[t.ID] = struct{}{}

	children, cached := m.cache.Get(t.ID)
	open := cached && m.expanded.Has(t.ID)

	m.rows = append(m.rows, Row{
		Task:        t,
		Depth:       m.depth(t),
		Expanded:    open,
		HasChildren: t.HasChildren() || len(children) > 0,
	})

	if !open {
		return
	}
	for _, child := range children {
		m.emit(child)
	}
}

// depth walks the parent chain: a parent on the root page counts one level,
// a cached parent adds one and continues from it, and a parent found nowhere
// counts one level.
func (m *materializer) depth(t *domain.Task) int {
	hops := 0
	seen := map[domain.TaskID]struct{}{t.ID: {}}
	cur := t
	for {
		if cur.Parent.IsZero() {
			return hops
		}
		if _, ok := m.rootSet[cur.Parent]; ok {
			return hops + 1
		}
		parent, ok := m.cache.Find(cur.Parent)
		if !ok {
			return hops + 1
		}
		if _, loop := seen[parent.ID]; loop {
			return hops + 1
		}
		seen[parent.ID] = struct{}{}
		hops++
		cur = parent
	}
}
