package database

import (
	"context"
	"errors"

	"kontur-content-bot/internal/database/models"
)

// ErrStateNotFound is returned when a chat is not bound to an account.
var ErrStateNotFound = errors.New("chat state not found")

// StateRepository stores the chat to account binding.
type StateRepository interface {
	// StateByChatID returns ErrStateNotFound if the chat was never bound.
	StateByChatID(ctx context.Context, chatID int64) (*models.ChatState, error)
	SaveState(ctx context.Context, state *models.ChatState) error
	DeleteState(ctx context.Context, chatID int64) error
}

// UserActionLogger defines the interface for logging user actions.
type UserActionLogger interface {
	// LogUserAction logs an action performed by a user.
	LogUserAction(userID int64, action string, details interface{}) error
}

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	// UpdateUser updates or creates a user record in the database.
	UpdateUser(ctx context.Context, userID int64, username, firstName, lastName string, action string) error
}

// AuditLogger records committed edits and terminal actions.
type AuditLogger interface {
	LogEdits(ctx context.Context, entries []models.EditLog) error
	LogTransition(ctx context.Context, entry models.TransitionLog) error
}
