// Package session holds the typed per-conversation context and its storage.
package session

import (
	"context"
	"errors"
	"time"

	"kontur-content-bot/internal/content"
)

// ErrNotFound is returned by Store.Load for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Flow is the workflow a conversation is in.
type Flow string

const (
	FlowNone             Flow = ""
	FlowModeration       Flow = "moderation"
	FlowDrafts           Flow = "drafts"
	FlowVideoCuts        Flow = "video_cuts"
	FlowGenerate         Flow = "generate"
	FlowGenerateVideoCut Flow = "generate_video_cut"
)

// Session is everything a conversation carries between two updates.
type Session struct {
	ChatID             int64  `json:"chat_id"`
	UserID             int64  `json:"user_id"`
	AccountID          int64  `json:"account_id"`
	OrganizationID     int64  `json:"organization_id"`
	EmployeeID         int64  `json:"employee_id"`
	RequiredModeration bool   `json:"required_moderation"`
	Language           string `json:"language,omitempty"`

	Flow      Flow               `json:"flow"`
	State     content.State      `json:"state"`
	Workspace *content.Workspace `json:"workspace,omitempty"`

	// Generation is set while a new publication is being generated.
	Generation *Generation `json:"generation,omitempty"`

	// Networks are the connected social networks offered while selecting.
	Networks []string `json:"networks,omitempty"`
	// SettingsBackup restores the selection when network selection is cancelled.
	SettingsBackup *content.PublishSettings `json:"settings_backup,omitempty"`

	// CardMessageIDs are the messages of the last rendered card, removed on re-render.
	CardMessageIDs []int     `json:"card_message_ids,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Generation is the state of the publication generator.
type Generation struct {
	CategoryID   int64  `json:"category_id"`
	CategoryName string `json:"category_name,omitempty"`
	Reference    string `json:"reference,omitempty"`
}

// New returns an idle session for a chat.
func New(chatID, userID int64) *Session {
	return &Session{ChatID: chatID, UserID: userID, State: content.StateIdle}
}

// Reset leaves the current workflow. Identity fields and the ids of the
// rendered card are kept so that the card can still be removed.
func (s *Session) Reset() {
	s.Flow = FlowNone
	s.State = content.StateIdle
	s.Workspace = nil
	s.Generation = nil
	s.Networks = nil
	s.SettingsBackup = nil
}

// Active reports whether the session is inside a workflow.
func (s *Session) Active() bool { return s.Flow != FlowNone }

// Store persists sessions between updates.
type Store interface {
	Load(ctx context.Context, chatID int64) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, chatID int64) error
}
