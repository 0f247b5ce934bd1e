package board

import "github.com/airyra/taskboard/internal/domain"

// Cache maps a parent id to its ordered children. A key is present once the
// children were fetched since the last full reload; presence says nothing
// about whether the row is expanded.
//
// Every cached child is also indexed by id and by parent, so ancestor walks
// cost one map lookup per level.
type Cache struct {
	children map[domain.TaskID][]*domain.Task
	parentOf map[domain.TaskID]domain.TaskID
	nodes    map[domain.TaskID]*domain.Task
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		children: make(map[domain.TaskID][]*domain.Task),
		parentOf: make(map[domain.TaskID]domain.TaskID),
		nodes:    make(map[domain.TaskID]*domain.Task),
	}
}

// Put stores the children of parent, replacing any previous entry.
func (c *Cache) Put(parent domain.TaskID, children []*domain.Task) {
	c.unindex(parent)

	stored := make([]*domain.Task, 0, len(children))
	for _, child := range children {
		if child == nil {
			continue
		}
		stored = append(stored, child)
		c.parentOf[child.ID] = parent
		c.nodes[child.ID] = child
	}
	c.children[parent] = stored
}

// Get returns the cached children of parent.
func (c *Cache) Get(parent domain.TaskID) ([]*domain.Task, bool) {
	children, ok := c.children[parent]
	return children, ok
}

// Has reports whether children of parent are cached.
func (c *Cache) Has(parent domain.TaskID) bool {
	_, ok := c.children[parent]
	return ok
}

// Delete drops the entry of parent. Entries of deeper descendants stay.
func (c *Cache) Delete(parent domain.TaskID) {
	c.unindex(parent)
	delete(c.children, parent)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	clear(c.children)
	clear(c.parentOf)
	clear(c.nodes)
}

// Len returns the number of cached parents.
func (c *Cache) Len() int {
	return len(c.children)
}

// Find returns a cached child by id.
func (c *Cache) Find(id domain.TaskID) (*domain.Task, bool) {
	t, ok := c.nodes[id]
	return t, ok
}

// ParentOf returns the parent a cached child was stored under.
func (c *Cache) ParentOf(id domain.TaskID) (domain.TaskID, bool) {
	p, ok := c.parentOf[id]
	return p, ok
}

// Replace swaps the cached snapshot of task.ID for task. It reports whether
// the task was cached.
func (c *Cache) Replace(task *domain.Task) bool {
	parent, ok := c.parentOf[task.ID]
	if !ok {
		return false
	}
	siblings := c.children[parent]
	for i, s := range siblings {
		if s.ID == task.ID {
			siblings[i] = task
			c.nodes[task.ID] = task
			return true
		}
	}
	return false
}

func (c *Cache) unindex(parent domain.TaskID) {
	for _, child := range c.children[parent] {
		if c.parentOf[child.ID] == parent {
			delete(c.parentOf, child.ID)
			delete(c.nodes, child.ID)
		}
	}
}
