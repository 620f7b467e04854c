package ports

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daymark/core/internal/domain/entities"
)

// TaskLocalStore is the guest-mode store for tasks: one JSON blob under a
// fixed key. Load never fails; an absent or unreadable blob is an empty
// collection. SaveAll rewrites the entire collection.
type TaskLocalStore interface {
	Load() []entities.Task
	SaveAll(tasks []entities.Task) error
}

// NoteLocalStore is the guest-mode store for notes.
type NoteLocalStore interface {
	Load() []entities.Note
	SaveAll(notes []entities.Note) error
}

// UnsubscribeFunc tears down a live subscription. Safe to call more than
// once.
type UnsubscribeFunc func()

// TaskRemoteStore is the authenticated-mode store for tasks. Subscribe
// invokes fn with the full current collection snapshot, once immediately
// and again after every change to the owner's collection, until the
// returned handle is called.
type TaskRemoteStore interface {
	Subscribe(ctx context.Context, ownerID string, fn func([]entities.Task)) (UnsubscribeFunc, error)
	Add(ctx context.Context, ownerID string, task entities.Task) (string, error)
	Update(ctx context.Context, ownerID, id string, patch TaskPatch) error
	Delete(ctx context.Context, ownerID, id string) error
	// BulkDelete issues independent parallel deletes; partial failure is
	// reported per id via BulkError and already-deleted records stay gone.
	BulkDelete(ctx context.Context, ownerID string, ids []string) error
}

// NoteRemoteStore is the authenticated-mode store for notes.
type NoteRemoteStore interface {
	Subscribe(ctx context.Context, ownerID string, fn func([]entities.Note)) (UnsubscribeFunc, error)
	Add(ctx context.Context, ownerID string, note entities.Note) (string, error)
	Update(ctx context.Context, ownerID, id string, patch NotePatch) error
	Delete(ctx context.Context, ownerID, id string) error
}

// TaskPatch is a partial field-level update. Nil fields are left untouched.
// ClearDueDate distinguishes "set due date to null" from "leave due date
// alone", which a nil pointer alone cannot express.
type TaskPatch struct {
	Text         *string            `json:"text"`
	Completed    *bool              `json:"completed"`
	Priority     *entities.Priority `json:"priority"`
	DueDate      *int64             `json:"dueDate"`
	ClearDueDate bool               `json:"clearDueDate"`
	Order        *int               `json:"order"`
}

// NotePatch is a partial field-level update for notes.
type NotePatch struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	Tags     *[]string `json:"tags"`
	Color    *string   `json:"color"`
	IsPinned *bool     `json:"isPinned"`
}

// ApplyTo merges the patch into the task.
func (p TaskPatch) ApplyTo(t *entities.Task) {
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
}

// ApplyTo merges the patch into the note. Touching UpdatedAt is the
// caller's responsibility since only content mutations bump it.
func (p NotePatch) ApplyTo(n *entities.Note) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Tags != nil {
		n.Tags = entities.NormalizeTags(*p.Tags)
	}
	if p.Color != nil {
		n.Color = *p.Color
	}
	if p.IsPinned != nil {
		n.IsPinned = *p.IsPinned
	}
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Text == nil && p.Completed == nil && p.Priority == nil &&
		p.DueDate == nil && !p.ClearDueDate && p.Order == nil
}

// BulkError reports which ids of a parallel bulk operation failed. The
// operations that succeeded are not rolled back; callers that care which
// entities were left untouched inspect Failed.
type BulkError struct {
	Op     string
	Failed map[string]error
}

func (e *BulkError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fmt.Sprintf("%s failed for %d of the requested entities: %s",
		e.Op, len(e.Failed), strings.Join(ids, ", "))
}

// FailedIDs returns the failed ids in deterministic order.
func (e *BulkError) FailedIDs() []string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UserRepository defines the interface for user account storage.
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AuthRepository defines the interface for refresh-token storage.
type AuthRepository interface {
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
	CleanupExpiredTokens(ctx context.Context) error
}

// RefreshToken is a stored, hashed refresh token.
type RefreshToken struct {
	ID        int        `db:"id"`
	UserID    uuid.UUID  `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
	CreatedAt time.Time  `db:"created_at"`
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}
