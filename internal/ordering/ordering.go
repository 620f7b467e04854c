// Package ordering implements the dense zero-based position bookkeeping for
// drag-and-drop reordering of the task list.
package ordering

import (
	"sort"

	"github.com/daymark/core/internal/domain/entities"
)

// OrderUpdate is one (id, newOrder) pair produced by Reindex.
type OrderUpdate struct {
	ID    string
	Order int
}

// Reindex assigns order i to the task at position i and returns the pairs
// whose order actually changed. It never mutates its input and is
// idempotent for an unchanged sequence: reindexing an already dense
// sequence returns no updates.
func Reindex(tasks []entities.Task) []OrderUpdate {
	var updates []OrderUpdate
	for i, t := range tasks {
		if t.Order != i {
			updates = append(updates, OrderUpdate{ID: t.ID, Order: i})
		}
	}
	return updates
}

// Apply sets the orders from updates on a copy of tasks, leaving positions
// untouched. Used for the optimistic in-memory apply before persistence.
func Apply(tasks []entities.Task, updates []OrderUpdate) []entities.Task {
	byID := make(map[string]int, len(updates))
	for _, u := range updates {
		byID[u.ID] = u.Order
	}
	out := make([]entities.Task, len(tasks))
	copy(out, tasks)
	for i := range out {
		if o, ok := byID[out[i].ID]; ok {
			out[i].Order = o
		}
	}
	return out
}

// Move returns a new sequence with the element at position from removed and
// reinserted at position to. The relative order of all other elements is
// preserved. Out-of-range positions are clamped.
func Move(tasks []entities.Task, from, to int) []entities.Task {
	n := len(tasks)
	if n == 0 {
		return nil
	}
	from = clamp(from, n-1)
	to = clamp(to, n-1)

	out := make([]entities.Task, 0, n)
	out = append(out, tasks[:from]...)
	out = append(out, tasks[from+1:]...)

	moved := tasks[from]
	out = append(out, entities.Task{})
	copy(out[to+1:], out[to:])
	out[to] = moved
	return out
}

// SortByOrder returns a copy of tasks sorted by ascending order value. The
// sort is stable so equal order values (possible after a delete gap is
// backfilled by an add) keep their incoming relative positions.
func SortByOrder(tasks []entities.Task) []entities.Task {
	out := make([]entities.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// NextOrder returns the order value for a task appended to the collection:
// one past the current maximum, or zero when the collection is empty. The
// maximum is used rather than the length because deletes leave gaps.
func NextOrder(tasks []entities.Task) int {
	if len(tasks) == 0 {
		return 0
	}
	max := tasks[0].Order
	for _, t := range tasks[1:] {
		if t.Order > max {
			max = t.Order
		}
	}
	return max + 1
}

func clamp(i, max int) int {
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}
