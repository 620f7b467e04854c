package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrNoteNotFound    = errors.New("note not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmptyText       = errors.New("task text must not be empty")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNoSession       = errors.New("no active session")
)

// Priority is the display priority of a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Task represents a single item on the task list. Instants are carried as
// epoch milliseconds everywhere outside the remote store, matching the
// persisted guest blob and the API payloads.
type Task struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Completed bool     `json:"completed"`
	CreatedAt int64    `json:"createdAt"`
	Priority  Priority `json:"priority"`
	DueDate   *int64   `json:"dueDate"`
	Order     int      `json:"order"`
}

// Note represents a single note. CreatedAt is immutable after creation;
// every content mutation bumps UpdatedAt.
type Note struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	Color     string   `json:"color"`
	IsPinned  bool     `json:"isPinned"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
}

// User represents an account with the identity provider.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	DisplayName  *string    `json:"display_name" db:"display_name"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at" db:"last_login_at"`
}

// NowMillis returns the current instant in the representation entities use.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// NewLocalID returns an identifier for entities created in guest mode.
// The ported behavior derived ids from the wall clock; that collides under
// rapid successive creation, so a random identifier is used instead. Ids
// stay opaque strings to every consumer.
func NewLocalID() string {
	return uuid.NewString()
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// IsOverdue reports whether the task's due date has passed. Tasks without a
// due date or already completed are never overdue.
func (t *Task) IsOverdue() bool {
	if t.DueDate == nil || t.Completed {
		return false
	}
	return time.Now().UnixMilli() > *t.DueDate
}

// Validate checks the fields a caller controls at creation time.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Text) == "" {
		return ErrEmptyText
	}
	if !t.Priority.IsValid() {
		return ErrInvalidPriority
	}
	return nil
}

// NormalizeTags de-duplicates tags preserving first-seen order. Tags are
// case-sensitive.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Touch bumps UpdatedAt to the given instant.
func (n *Note) Touch(nowMillis int64) {
	n.UpdatedAt = nowMillis
}

// HasTag reports whether the note carries the given tag.
func (n *Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
