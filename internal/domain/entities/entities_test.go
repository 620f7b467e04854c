package entities

import (
	"reflect"
	"testing"
	"time"
)

func TestPriorityIsValid(t *testing.T) {
	tests := []struct {
		priority Priority
		want     bool
	}{
		{PriorityHigh, true},
		{PriorityMedium, true},
		{PriorityLow, true},
		{Priority(""), false},
		{Priority("urgent"), false},
		{Priority("High"), false},
	}

	for _, tt := range tests {
		if got := tt.priority.IsValid(); got != tt.want {
			t.Errorf("Priority(%q).IsValid() = %v, want %v", tt.priority, got, tt.want)
		}
	}
}

func TestTaskValidate(t *testing.T) {
	tests := []struct {
		name    string
		task    Task
		wantErr error
	}{
		{"valid", Task{Text: "buy milk", Priority: PriorityMedium}, nil},
		{"empty text", Task{Text: "", Priority: PriorityLow}, ErrEmptyText},
		{"whitespace text", Task{Text: "   ", Priority: PriorityLow}, ErrEmptyText},
		{"bad priority", Task{Text: "x", Priority: "urgent"}, ErrInvalidPriority},
		{"missing priority", Task{Text: "x"}, ErrInvalidPriority},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.task.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskIsOverdue(t *testing.T) {
	past := time.Now().Add(-time.Hour).UnixMilli()
	future := time.Now().Add(time.Hour).UnixMilli()

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"no due date", Task{}, false},
		{"due in future", Task{DueDate: &future}, false},
		{"due in past", Task{DueDate: &past}, true},
		{"past but completed", Task{DueDate: &past, Completed: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.IsOverdue(); got != tt.want {
				t.Errorf("IsOverdue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, nil},
		{"empty", []string{}, nil},
		{"no duplicates", []string{"a", "b"}, []string{"a", "b"}},
		{"duplicates keep first position", []string{"a", "b", "a", "c", "b"}, []string{"a", "b", "c"}},
		{"case sensitive", []string{"Work", "work"}, []string{"Work", "work"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTags(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeTags(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNoteTouch(t *testing.T) {
	n := Note{CreatedAt: 100, UpdatedAt: 100}
	n.Touch(250)

	if n.UpdatedAt != 250 {
		t.Errorf("UpdatedAt = %d, want 250", n.UpdatedAt)
	}
	if n.CreatedAt != 100 {
		t.Errorf("CreatedAt = %d, should not change", n.CreatedAt)
	}
}

func TestNoteHasTag(t *testing.T) {
	n := Note{Tags: []string{"work", "ideas"}}

	if !n.HasTag("work") {
		t.Error("HasTag(work) = false")
	}
	if n.HasTag("Work") {
		t.Error("HasTag should be case sensitive")
	}
	if n.HasTag("missing") {
		t.Error("HasTag(missing) = true")
	}
}

func TestNewLocalIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewLocalID()
		if id == "" {
			t.Fatal("empty id")
		}
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}
