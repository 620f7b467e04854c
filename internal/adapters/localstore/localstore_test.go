package localstore

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/daymark/core/internal/domain/entities"
	"github.com/daymark/core/internal/infrastructure/logger"
)

func newTestTaskStore(t *testing.T) (*TaskStore, string) {
	t.Helper()
	dir := t.TempDir()
	return NewTaskStore(dir, logger.NewNop()), dir
}

func TestTaskStore_RoundTrip(t *testing.T) {
	store, _ := newTestTaskStore(t)

	due := int64(1767225600000)
	tasks := []entities.Task{
		{ID: "1", Text: "Buy milk", Completed: false, CreatedAt: 1735689600000, Priority: entities.PriorityMedium, DueDate: nil, Order: 0},
		{ID: "2", Text: "Call dentist", Completed: true, CreatedAt: 1735689600001, Priority: entities.PriorityHigh, DueDate: &due, Order: 1},
	}

	if err := store.SaveAll(tasks); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	loaded := store.Load()
	if !reflect.DeepEqual(loaded, tasks) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", loaded, tasks)
	}
}

func TestTaskStore_LoadMissing(t *testing.T) {
	store, _ := newTestTaskStore(t)
	if got := store.Load(); got != nil {
		t.Fatalf("Load on missing blob = %+v, want nil", got)
	}
}

func TestTaskStore_LoadMalformed(t *testing.T) {
	store, dir := newTestTaskStore(t)

	path := filepath.Join(dir, TasksKey+".json")
	if err := os.WriteFile(path, []byte(`{"not": "an array"`), 0o644); err != nil {
		t.Fatalf("write malformed blob: %v", err)
	}

	// Malformed blobs are treated as empty, never as an error.
	if got := store.Load(); got != nil {
		t.Fatalf("Load on malformed blob = %+v, want nil", got)
	}
}

func TestTaskStore_SaveOverwrites(t *testing.T) {
	store, _ := newTestTaskStore(t)

	first := []entities.Task{{ID: "1", Text: "a", Priority: entities.PriorityLow}}
	second := []entities.Task{{ID: "2", Text: "b", Priority: entities.PriorityHigh}}

	if err := store.SaveAll(first); err != nil {
		t.Fatalf("SaveAll(first): %v", err)
	}
	if err := store.SaveAll(second); err != nil {
		t.Fatalf("SaveAll(second): %v", err)
	}

	loaded := store.Load()
	if len(loaded) != 1 || loaded[0].ID != "2" {
		t.Fatalf("Load = %+v, want only second collection", loaded)
	}
}

func TestTaskStore_MillisStayNumeric(t *testing.T) {
	store, dir := newTestTaskStore(t)

	if err := store.SaveAll([]entities.Task{{ID: "1", Text: "t", CreatedAt: 42, Priority: entities.PriorityLow}}); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, TasksKey+".json"))
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	// The blob carries instants as plain numbers, not formatted strings.
	want := `"createdAt":42`
	if !strings.Contains(string(raw), want) {
		t.Fatalf("blob %s does not contain %s", raw, want)
	}
}

func TestNoteStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewNoteStore(dir, logger.NewNop())

	notes := []entities.Note{
		{ID: "n1", Title: "Groceries", Content: "milk, eggs", Tags: []string{"home"}, Color: "amber", IsPinned: true, CreatedAt: 10, UpdatedAt: 20},
	}
	if err := store.SaveAll(notes); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	loaded := store.Load()
	if !reflect.DeepEqual(loaded, notes) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", loaded, notes)
	}
}

func TestStoresAreIsolated(t *testing.T) {
	dir := t.TempDir()
	tasks := NewTaskStore(dir, logger.NewNop())
	notes := NewNoteStore(dir, logger.NewNop())

	if err := tasks.SaveAll([]entities.Task{{ID: "1", Text: "t", Priority: entities.PriorityLow}}); err != nil {
		t.Fatalf("SaveAll tasks: %v", err)
	}
	if got := notes.Load(); got != nil {
		t.Fatalf("note store sees task data: %+v", got)
	}
}
