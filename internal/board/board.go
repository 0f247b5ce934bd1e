package board

import (
	"context"
	"log/slog"

	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/logging"
	"github.com/airyra/taskboard/internal/metrics"
)

// Ticket identifies one in-flight fetch. Generation is the reload count at
// the time the fetch began; Seq distinguishes fetches of the same row.
type Ticket struct {
	ID         domain.TaskID
	Generation uint64
	Seq        uint64
}

// Board holds the root page, the subtree cache and the expansion set of one
// query. It is not safe for concurrent use.
type Board struct {
	gateway *Gateway
	logger  *slog.Logger
	metrics *metrics.Collector

	query domain.Query
	roots []*domain.Task
	total int

	cache    *Cache
	expanded ExpansionSet
	pending  map[domain.TaskID]uint64

	generation uint64
	seq        uint64
}

// Option configures a Board.
type Option func(*Board)

// WithLogger sets the board logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Board) {
		b.logger = logging.OrDiscard(l)
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(b *Board) {
		b.metrics = m
	}
}

// New creates an empty board for q. Call Reload to fetch the first page.
func New(gw *Gateway, q domain.Query, opts ...Option) *Board {
	b := &Board{
		gateway:  gw,
		logger:   logging.Discard(),
		query:    q,
		cache:    NewCache(),
		expanded: NewExpansionSet(),
		pending:  make(map[domain.TaskID]uint64),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Gateway returns the gateway the board fetches through.
func (b *Board) Gateway() *Gateway { return b.gateway }

// Query returns the current query.
func (b *Board) Query() domain.Query { return b.query }

// SetQuery replaces the query. The rows keep showing the previous result
// until the next reload.
func (b *Board) SetQuery(q domain.Query) { b.query = q }

// Generation returns the number of reloads begun so far.
func (b *Board) Generation() uint64 { return b.generation }

// Total returns the number of roots the server reported for the query.
func (b *Board) Total() int { return b.total }

// TotalPages returns the page count for the current query.
func (b *Board) TotalPages() int { return b.query.TotalPages(b.total) }

// Roots returns the tasks on the current root page.
func (b *Board) Roots() []*domain.Task {
	return append([]*domain.Task(nil), b.roots...)
}

// Rows materializes the visible rows.
func (b *Board) Rows() []Row {
	return Materialize(b.roots, b.cache, b.expanded)
}

// IsExpanded reports whether the row of id is expanded.
func (b *Board) IsExpanded(id domain.TaskID) bool {
	return b.expanded.Has(id) && b.cache.Has(id)
}

// IsLoading reports whether a child fetch for id is in flight.
func (b *Board) IsLoading(id domain.TaskID) bool {
	_, ok := b.pending[id]
	return ok
}

// =============================================================================
// Reload
// =============================================================================

// Reload clears every cached subtree and expansion, then fetches the root
// page of the current query.
func (b *Board) Reload(ctx context.Context) error {
	t := b.BeginReload()
	page, err := b.gateway.Roots(ctx, b.query)
	return b.CompleteReload(t, page, err)
}

// BeginReload invalidates the cache, the expansion set and in-flight child
// fetches. The returned ticket must be passed to CompleteReload.
func (b *Board) BeginReload() Ticket {
	b.generation++
	b.cache.Clear()
	b.expanded.Clear()
	clear(b.pending)

	b.logger.Debug("reload started", "generation", b.generation, "page", b.query.Page())
	return Ticket{Generation: b.generation}
}

// CompleteReload installs the result of a root fetch. On a fetch error the
// board shows no rows and the error is returned.
func (b *Board) CompleteReload(t Ticket, page *domain.TaskPage, err error) error {
	if t.Generation != b.generation {
		return b.stale("reload", t)
	}
	if err != nil {
		b.roots = nil
		b.total = 0
		return err
	}
	if page == nil {
		page = &domain.TaskPage{}
	}
	b.roots = append([]*domain.Task(nil), page.Results...)
	b.total = page.Count
	return nil
}

// =============================================================================
// Expand / collapse
// =============================================================================

// Toggle expands or collapses the row of id, fetching its children when
// they are not cached. On a fetch error the row stays collapsed.
func (b *Board) Toggle(ctx context.Context, id domain.TaskID) error {
	t, fetch := b.BeginToggle(id)
	if !fetch {
		return nil
	}
	children, err := b.gateway.Children(ctx, id, b.query.Department())
	return b.CompleteToggle(t, children, err)
}

// BeginToggle applies a toggle locally. It reports true when the children
// must be fetched; the result is then handed to CompleteToggle with the
// returned ticket.
//
// Toggling a row whose fetch is still in flight cancels the expansion.
func (b *Board) BeginToggle(id domain.TaskID) (Ticket, bool) {
	if _, ok := b.pending[id]; ok {
		delete(b.pending, id)
		b.logger.Debug("expansion cancelled", "task", id)
		return Ticket{}, false
	}
	if b.expanded.Has(id) {
		b.expanded.Remove(id)
		return Ticket{}, false
	}
	if b.cache.Has(id) {
		b.metrics.RecordCacheHit()
		b.expanded.Add(id)
		return Ticket{}, false
	}
	return b.beginFetch(id), true
}

// CompleteToggle installs fetched children. The result of a cancelled or
// superseded fetch is dropped with domain.ErrStaleResponse; a newer fetch
// or refresh of the same row owns the cache entry.
func (b *Board) CompleteToggle(t Ticket, children []*domain.Task, err error) error {
	if t.Generation != b.generation {
		return b.stale("children", t)
	}

	seq, ok := b.pending[t.ID]
	current := ok && seq == t.Seq
	if current {
		delete(b.pending, t.ID)
	}

	if !current {
		return b.stale("children", t)
	}
	if err != nil {
		return err
	}

	b.cache.Put(t.ID, children)
	b.expanded.Add(t.ID)
	return nil
}

// RefreshChildren drops the cached children of parent, typically after
// subtasks were added, and refetches them when the row was expanded.
func (b *Board) RefreshChildren(ctx context.Context, parent domain.TaskID) error {
	t, fetch := b.BeginRefresh(parent)
	if !fetch {
		return nil
	}
	children, err := b.gateway.Children(ctx, parent, b.query.Department())
	return b.CompleteToggle(t, children, err)
}

// BeginRefresh invalidates the cache entry of parent. It reports true when
// the row was expanded and must be refetched through CompleteToggle.
func (b *Board) BeginRefresh(parent domain.TaskID) (Ticket, bool) {
	wasOpen := b.expanded.Has(parent) || b.IsLoading(parent)
	b.cache.Delete(parent)
	b.expanded.Remove(parent)
	delete(b.pending, parent)
	if !wasOpen {
		return Ticket{}, false
	}
	return b.beginFetch(parent), true
}

func (b *Board) beginFetch(id domain.TaskID) Ticket {
	b.seq++
	b.pending[id] = b.seq
	return Ticket{ID: id, Generation: b.generation, Seq: b.seq}
}

func (b *Board) stale(kind string, t Ticket) error {
	b.metrics.RecordStale()
	b.logger.Debug("stale response discarded", "kind", kind, "task", t.ID, "generation", t.Generation, "current", b.generation)
	return domain.ErrStaleResponse
}

// =============================================================================
// Snapshots
// =============================================================================

// Lookup returns the local snapshot of id from the root page or the cache.
func (b *Board) Lookup(id domain.TaskID) (*domain.Task, bool) {
	for _, r := range b.roots {
		if r.ID == id {
			return r, true
		}
	}
	return b.cache.Find(id)
}

// Apply replaces the local snapshot of task.ID with task wherever it
// appears. It reports whether the task was on the board.
func (b *Board) Apply(task *domain.Task) bool {
	if task == nil {
		return false
	}
	found := false
	for i, r := range b.roots {
		if r.ID == task.ID {
			b.roots[i] = task
			found = true
		}
	}
	if b.cache.Replace(task) {
		found = true
	}
	return found
}
