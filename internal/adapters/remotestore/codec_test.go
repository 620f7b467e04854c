package remotestore

import (
	"reflect"
	"testing"
	"time"

	"github.com/daymark/core/internal/domain/entities"
)

func TestTaskCodec_RoundTrip(t *testing.T) {
	due := int64(1767225600000)
	tests := []struct {
		name string
		task entities.Task
	}{
		{
			name: "with due date",
			task: entities.Task{
				Text:      "Call dentist",
				Completed: false,
				CreatedAt: 1735689600000,
				Priority:  entities.PriorityHigh,
				DueDate:   &due,
				Order:     3,
			},
		},
		{
			name: "without due date",
			task: entities.Task{
				Text:      "Buy milk",
				Completed: true,
				CreatedAt: 1735689600500,
				Priority:  entities.PriorityMedium,
				Order:     0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := taskToDoc(tt.task)
			if err != nil {
				t.Fatalf("taskToDoc: %v", err)
			}

			// Temporal fields are stored in the native temporal type with
			// millisecond precision intact.
			if got := doc.CreatedAt.UnixMilli(); got != tt.task.CreatedAt {
				t.Errorf("created_at = %d ms, want %d", got, tt.task.CreatedAt)
			}
			if tt.task.DueDate == nil && doc.DueDate != nil {
				t.Errorf("due_date = %v, want nil", doc.DueDate)
			}

			doc.ID = "server-assigned"
			back, err := docToTask(doc)
			if err != nil {
				t.Fatalf("docToTask: %v", err)
			}

			want := tt.task
			want.ID = "server-assigned"
			if !reflect.DeepEqual(back, want) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", back, want)
			}
		})
	}
}

func TestNoteCodec_RoundTrip(t *testing.T) {
	note := entities.Note{
		Title:     "Groceries",
		Content:   "milk, eggs",
		Tags:      []string{"home", "errands", "home"},
		Color:     "amber",
		IsPinned:  true,
		CreatedAt: 1735689600000,
		UpdatedAt: 1735693200000,
	}

	doc, err := noteToDoc(note)
	if err != nil {
		t.Fatalf("noteToDoc: %v", err)
	}
	doc.ID = "abc"

	back, err := docToNote(doc)
	if err != nil {
		t.Fatalf("docToNote: %v", err)
	}

	if back.ID != "abc" || back.Title != note.Title || back.Content != note.Content {
		t.Fatalf("round trip mismatch: %+v", back)
	}
	// Tags are de-duplicated on write.
	if !reflect.DeepEqual(back.Tags, []string{"home", "errands"}) {
		t.Fatalf("tags = %v, want deduped", back.Tags)
	}
	if back.CreatedAt != note.CreatedAt || back.UpdatedAt != note.UpdatedAt {
		t.Fatalf("instants changed: created %d updated %d", back.CreatedAt, back.UpdatedAt)
	}
}

func TestDocToTask_Malformed(t *testing.T) {
	doc := document{ID: "x", Data: []byte(`{`), CreatedAt: time.Now()}
	if _, err := docToTask(doc); err == nil {
		t.Fatal("expected error for malformed document data")
	}
}

func TestLayouts(t *testing.T) {
	flat := FlatLayout{Collection: "todos"}
	if got := flat.CollectionFor("u1"); got != "todos" {
		t.Errorf("flat collection = %q", got)
	}
	if !flat.FilterByOwner() {
		t.Error("flat layout must filter by owner")
	}

	sub := SubcollectionLayout{Parent: "users", Name: "notes"}
	if got := sub.CollectionFor("u1"); got != "users/u1/notes" {
		t.Errorf("subcollection = %q", got)
	}
	if sub.FilterByOwner() {
		t.Error("subcollection layout must not filter by owner")
	}

	// Change-notification keys are scoped per owner under both layouts.
	if k1, k2 := notifyKey(flat, "u1"), notifyKey(flat, "u2"); k1 == k2 {
		t.Errorf("flat notify keys collide across owners: %q", k1)
	}
	if k1, k2 := notifyKey(sub, "u1"), notifyKey(sub, "u2"); k1 == k2 {
		t.Errorf("subcollection notify keys collide across owners: %q", k1)
	}
}

func TestLayoutFor(t *testing.T) {
	if _, err := LayoutFor("flat", "todos"); err != nil {
		t.Errorf("flat: %v", err)
	}
	if _, err := LayoutFor("subcollection", "notes"); err != nil {
		t.Errorf("subcollection: %v", err)
	}
	if _, err := LayoutFor("sharded", "todos"); err == nil {
		t.Error("expected error for unknown layout")
	}
}
