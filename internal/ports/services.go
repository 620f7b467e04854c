package ports

import (
	"github.com/daymark/core/internal/domain/entities"
)

// AddTaskRequest carries the caller-controlled fields of a new task. The
// facade assigns id, creation instant and order.
type AddTaskRequest struct {
	Text     string            `json:"text" validate:"required"`
	Priority entities.Priority `json:"priority" validate:"required,oneof=high medium low"`
	DueDate  *int64            `json:"dueDate"`
}

// AddNoteRequest carries the caller-controlled fields of a new note.
type AddNoteRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Color    string   `json:"color"`
	IsPinned bool     `json:"isPinned"`
}

// RegisterRequest is a new-account request for the identity provider.
type RegisterRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=8"`
	DisplayName *string `json:"display_name"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register, login and refresh.
type AuthResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int64          `json:"expires_in"`
	User         *entities.User `json:"user"`
}

// Claims is the validated identity carried by an access token.
type Claims struct {
	UserID string
	Email  string
}
