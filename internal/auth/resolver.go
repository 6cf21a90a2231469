package auth

import (
	"context"
	"errors"
	"fmt"
	"log"

	"kontur-content-bot/internal/backend"
	"kontur-content-bot/internal/database"
	"kontur-content-bot/internal/database/models"
)

// ErrNotLinked is returned when a chat has not been linked to an account yet.
var ErrNotLinked = errors.New("chat is not linked to an account")

// Identity is who is behind a chat.
type Identity struct {
	ChatID         int64
	AccountID      int64
	OrganizationID int64
	Employee       backend.Employee
}

// EmployeeDirectory looks up employees by platform account.
type EmployeeDirectory interface {
	EmployeeByAccountID(ctx context.Context, accountID int64) (backend.Employee, error)
}

// IdentityResolver is the interface used by handlers and workflows.
type IdentityResolver interface {
	Resolve(ctx context.Context, chatID int64) (*Identity, error)
	Link(ctx context.Context, chatID, accountID int64, languageCode string) (*Identity, error)
	Unlink(ctx context.Context, chatID int64) error
}

// Resolver binds chats to employees through the chat state repository.
type Resolver struct {
	states    database.StateRepository
	employees EmployeeDirectory
}

// NewResolver creates a new Resolver.
// It requires a non-nil state repository and employee directory.
func NewResolver(states database.StateRepository, employees EmployeeDirectory) (*Resolver, error) {
	if states == nil {
		return nil, fmt.Errorf("state repository cannot be nil")
	}
	if employees == nil {
		return nil, fmt.Errorf("employee directory cannot be nil")
	}
	return &Resolver{states: states, employees: employees}, nil
}

// Resolve returns the identity of the chat. Unlinked chats yield ErrNotLinked.
func (r *Resolver) Resolve(ctx context.Context, chatID int64) (*Identity, error) {
	state, err := r.states.StateByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, database.ErrStateNotFound) {
			return nil, ErrNotLinked
		}
		return nil, fmt.Errorf("failed to load chat state: %w", err)
	}
	employee, err := r.employees.EmployeeByAccountID(ctx, state.AccountID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			log.Printf("[Auth Chat:%d] Account %d is no longer an employee", chatID, state.AccountID)
			return nil, ErrNotLinked
		}
		return nil, fmt.Errorf("failed to get employee for account %d: %w", state.AccountID, err)
	}
	return &Identity{
		ChatID:         chatID,
		AccountID:      state.AccountID,
		OrganizationID: employee.OrganizationID,
		Employee:       employee,
	}, nil
}

// Link binds chatID to accountID. The account must belong to an employee.
func (r *Resolver) Link(ctx context.Context, chatID, accountID int64, languageCode string) (*Identity, error) {
	employee, err := r.employees.EmployeeByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, ErrNotLinked
		}
		return nil, fmt.Errorf("failed to get employee for account %d: %w", accountID, err)
	}
	state := &models.ChatState{
		ChatID:         chatID,
		AccountID:      accountID,
		OrganizationID: employee.OrganizationID,
		LanguageCode:   languageCode,
	}
	if err := r.states.SaveState(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save chat state: %w", err)
	}
	log.Printf("[Auth Chat:%d] Linked to account %d (organization %d)", chatID, accountID, employee.OrganizationID)
	return &Identity{
		ChatID:         chatID,
		AccountID:      accountID,
		OrganizationID: employee.OrganizationID,
		Employee:       employee,
	}, nil
}

// Unlink removes the binding of chatID. Unlinking an unlinked chat is not an error.
func (r *Resolver) Unlink(ctx context.Context, chatID int64) error {
	if err := r.states.DeleteState(ctx, chatID); err != nil && !errors.Is(err, database.ErrStateNotFound) {
		return fmt.Errorf("failed to delete chat state: %w", err)
	}
	return nil
}
