package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airyra/taskboard/internal/domain"
)

func depths(rows []Row) map[domain.TaskID]int {
	out := make(map[domain.TaskID]int, len(rows))
	for _, r := range rows {
		out[r.Task.ID] = r.Depth
	}
	return out
}

func ids(rows []Row) []domain.TaskID {
	out := make([]domain.TaskID, len(rows))
	for i, r := range rows {
		out[i] = r.Task.ID
	}
	return out
}

func TestMaterialize_Depth(t *testing.T) {
	roots := []*domain.Task{task(1, 0, 1)}
	cache := NewCache()
	cache.Put(tid(1), []*domain.Task{task(2, 1, 1)})
	cache.Put(tid(2), []*domain.Task{task(3, 2, 0)})

	rows := Materialize(roots, cache, NewExpansionSet(tid(1), tid(2)))

	require.Equal(t, []domain.TaskID{tid(1), tid(2), tid(3)}, ids(rows))
	assert.Equal(t, map[domain.TaskID]int{tid(1): 0, tid(2): 1, tid(3): 2}, depths(rows))
	assert.True(t, rows[0].Expanded)
	assert.True(t, rows[1].Expanded)
	assert.False(t, rows[2].Expanded)
}

func TestMaterialize_UnlocatedParentIsDepthOne(t *testing.T) {
	orphan := task(7, 99, 0)

	rows := Materialize([]*domain.Task{orphan}, NewCache(), NewExpansionSet())

	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Depth)
}

func TestMaterialize_Pure(t *testing.T) {
	roots := []*domain.Task{task(1, 0, 2), task(4, 0, 0)}
	cache := NewCache()
	cache.Put(tid(1), []*domain.Task{task(2, 1, 0), task(3, 1, 0)})
	expanded := NewExpansionSet(tid(1))

	first := Materialize(roots, cache, expanded)
	second := Materialize(roots, cache, expanded)

	assert.Equal(t, first, second)
	assert.Len(t, roots, 2, "roots are not modified")
	assert.Equal(t, 1, cache.Len(), "cache is not modified")
	assert.Len(t, expanded, 1, "expansion set is not modified")
}

func TestMaterialize_ExpandedWithoutCacheRendersCollapsed(t *testing.T) {
	roots := []*domain.Task{task(1, 0, 3)}

	rows := Materialize(roots, NewCache(), NewExpansionSet(tid(1)))

	require.Len(t, rows, 1)
	assert.False(t, rows[0].Expanded)
	assert.True(t, rows[0].HasChildren)
}

func TestMaterialize_CachedButCollapsedHidesChildren(t *testing.T) {
	roots := []*domain.Task{task(1, 0, 1)}
	cache := NewCache()
	cache.Put(tid(1), []*domain.Task{task(2, 1, 0)})

	rows := Materialize(roots, cache, NewExpansionSet())

	assert.Equal(t, []domain.TaskID{tid(1)}, ids(rows))
}

func TestMaterialize_CycleGuard(t *testing.T) {
	roots := []*domain.Task{task(1, 0, 1)}
	cache := NewCache()
	cache.Put(tid(1), []*domain.Task{task(2, 1, 1)})
	// corrupt server data: 2 lists 1 as its child
	cache.Put(tid(2), []*domain.Task{task(1, 2, 1)})

	rows := Materialize(roots, cache, NewExpansionSet(tid(1), tid(2)))

	assert.Equal(t, []domain.TaskID{tid(1), tid(2)}, ids(rows))
}

func TestMaterialize_HasChildren(t *testing.T) {
	leaf := task(1, 0, 0)
	parent := task(2, 0, 2)

	rows := Materialize([]*domain.Task{leaf, parent}, nil, nil)

	require.Len(t, rows, 2)
	assert.False(t, rows[0].HasChildren)
	assert.True(t, rows[1].HasChildren)
}

func TestMaterialize_SyntheticIDs(t *testing.T) {
	root := task(1, 0, 1)
	part := &domain.Task{ID: domain.SyntheticID("part-9"), Parent: tid(1), TaskType: domain.TaskTypeCNCPart}
	cache := NewCache()
	cache.Put(tid(1), []*domain.Task{part})

	rows := Materialize([]*domain.Task{root}, cache, NewExpansionSet(domain.ParseTaskID("1")))

	require.Len(t, rows, 2, "a string id and a numeric id of the same task are one key")
	assert.Equal(t, 1, rows[1].Depth)
}
