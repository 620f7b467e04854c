package ordering

import (
	"testing"

	"github.com/daymark/core/internal/domain/entities"
)

func tasksWithOrders(orders ...int) []entities.Task {
	out := make([]entities.Task, len(orders))
	for i, o := range orders {
		out[i] = entities.Task{ID: string(rune('a' + i)), Order: o}
	}
	return out
}

func TestReindex_Dense(t *testing.T) {
	tests := []struct {
		name   string
		orders []int
		want   map[string]int // id -> new order, only changed pairs
	}{
		{
			name:   "already dense",
			orders: []int{0, 1, 2},
			want:   map[string]int{},
		},
		{
			name:   "reversed",
			orders: []int{2, 1, 0},
			want:   map[string]int{"a": 0, "c": 2},
		},
		{
			name:   "sparse after deletes",
			orders: []int{3, 7, 12},
			want:   map[string]int{"a": 0, "b": 1, "c": 2},
		},
		{
			name:   "empty",
			orders: nil,
			want:   map[string]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updates := Reindex(tasksWithOrders(tt.orders...))
			if len(updates) != len(tt.want) {
				t.Fatalf("got %d updates, want %d (%v)", len(updates), len(tt.want), updates)
			}
			for _, u := range updates {
				want, ok := tt.want[u.ID]
				if !ok {
					t.Errorf("unexpected update for id %q", u.ID)
					continue
				}
				if u.Order != want {
					t.Errorf("id %q: order = %d, want %d", u.ID, u.Order, want)
				}
			}
		})
	}
}

func TestReindex_Idempotent(t *testing.T) {
	tasks := tasksWithOrders(5, 2, 9, 0)
	reindexed := Apply(tasks, Reindex(tasks))

	for i, task := range reindexed {
		if task.Order != i {
			t.Fatalf("position %d has order %d after reindex", i, task.Order)
		}
	}
	if again := Reindex(reindexed); len(again) != 0 {
		t.Fatalf("second reindex produced updates: %v", again)
	}
}

func TestMove(t *testing.T) {
	tests := []struct {
		name     string
		ids      []string
		from, to int
		want     []string
	}{
		{"forward", []string{"a", "b", "c", "d"}, 0, 2, []string{"b", "c", "a", "d"}},
		{"backward", []string{"a", "b", "c", "d"}, 3, 1, []string{"a", "d", "b", "c"}},
		{"adjacent", []string{"a", "b"}, 0, 1, []string{"b", "a"}},
		{"same position", []string{"a", "b", "c"}, 1, 1, []string{"a", "b", "c"}},
		{"clamped", []string{"a", "b", "c"}, 0, 99, []string{"b", "c", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := make([]entities.Task, len(tt.ids))
			for i, id := range tt.ids {
				tasks[i] = entities.Task{ID: id, Order: i}
			}

			got := Move(tasks, tt.from, tt.to)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d tasks, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("position %d: got %q, want %q", i, got[i].ID, id)
				}
			}

			// After reindexing, the moved entity's order equals the drop
			// position and all others keep their relative order.
			reindexed := Apply(got, Reindex(got))
			for i := range reindexed {
				if reindexed[i].Order != i {
					t.Errorf("position %d: order %d not dense", i, reindexed[i].Order)
				}
			}
		})
	}
}

func TestMove_DoesNotMutateInput(t *testing.T) {
	tasks := tasksWithOrders(0, 1, 2)
	_ = Move(tasks, 0, 2)
	for i, task := range tasks {
		if task.Order != i {
			t.Fatalf("input mutated at %d: %+v", i, task)
		}
	}
}

func TestNextOrder(t *testing.T) {
	if got := NextOrder(nil); got != 0 {
		t.Errorf("NextOrder(empty) = %d, want 0", got)
	}
	// Max plus one, not length: deletes leave gaps.
	if got := NextOrder(tasksWithOrders(0, 7)); got != 8 {
		t.Errorf("NextOrder = %d, want 8", got)
	}
}

func TestSortByOrder_Stable(t *testing.T) {
	tasks := []entities.Task{
		{ID: "x", Order: 1},
		{ID: "y", Order: 0},
		{ID: "z", Order: 1},
	}
	sorted := SortByOrder(tasks)
	wantIDs := []string{"y", "x", "z"}
	for i, id := range wantIDs {
		if sorted[i].ID != id {
			t.Fatalf("position %d: got %q, want %q", i, sorted[i].ID, id)
		}
	}
}
