package models

import "time"

// ChatState binds a Telegram chat to a platform account and organization.
type ChatState struct {
	ChatID         int64     `bson:"chat_id"`
	AccountID      int64     `bson:"account_id"`
	OrganizationID int64     `bson:"organization_id"`
	LanguageCode   string    `bson:"language_code,omitempty"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}
