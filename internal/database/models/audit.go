package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EditLog stores the field edits that were committed for one item.
type EditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	CommitID  string             `bson:"commit_id"`
	ChatID    int64              `bson:"chat_id"`
	AccountID int64              `bson:"account_id"`
	ItemKind  string             `bson:"item_kind"`
	ItemID    int64              `bson:"item_id"`
	Field     string             `bson:"field"`
	OldValue  string             `bson:"old_value"`
	NewValue  string             `bson:"new_value"`
	EditedAt  time.Time          `bson:"edited_at"`
	SavedAt   time.Time          `bson:"saved_at"`
}

// TransitionLog stores a terminal action applied to an item.
type TransitionLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	ChatID    int64              `bson:"chat_id"`
	AccountID int64              `bson:"account_id"`
	ItemKind  string             `bson:"item_kind"`
	ItemID    int64              `bson:"item_id"`
	Action    string             `bson:"action"`
	Comment   string             `bson:"comment,omitempty"`
	Saved     bool               `bson:"saved"` // pending edits were committed first
	Succeeded bool               `bson:"succeeded"`
	Error     string             `bson:"error,omitempty"`
	At        time.Time          `bson:"at"`
}
