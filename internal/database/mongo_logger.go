package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"kontur-content-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	userActionsCollectionName = "user_actions"
	usersCollectionName       = "users"
	editLogCollectionName     = "edit_logs"
	transitionCollectionName  = "transition_logs"
)

// MongoLogger implements the user, action and audit loggers on MongoDB.
type MongoLogger struct {
	db *mongo.Database
}

// NewMongoLogger creates and returns a new MongoLogger instance.
func NewMongoLogger(db *mongo.Database) *MongoLogger {
	return &MongoLogger{db: db}
}

// LogUserAction writes a user action log entry to the database.
func (m *MongoLogger) LogUserAction(userID int64, action string, details interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := m.db.Collection(userActionsCollectionName).InsertOne(ctx, bson.M{
		"user_id": userID,
		"action":  action,
		"details": details,
		"time":    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to insert user action log for user %d: %w", userID, err)
	}
	return nil
}

// UpdateUser upserts the user's profile and bumps the action counter.
func (m *MongoLogger) UpdateUser(ctx context.Context, userID int64, username, firstName, lastName string, action string) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"username":    username,
			"first_name":  firstName,
			"last_name":   lastName,
			"last_seen":   now,
			"last_action": action,
		},
		"$inc": bson.M{
			"actions_count": 1,
		},
		"$setOnInsert": bson.M{
			"first_seen": now,
			"user_id":    userID,
		},
	}

	_, err := m.db.Collection(usersCollectionName).UpdateOne(ctx, bson.M{"user_id": userID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", userID, err)
	}
	return nil
}

// LogEdits stores the committed edits of one save.
func (m *MongoLogger) LogEdits(ctx context.Context, entries []models.EditLog) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, e)
	}
	if _, err := m.db.Collection(editLogCollectionName).InsertMany(ctx, docs); err != nil {
		wrappedErr := fmt.Errorf("failed to insert %d edit log entries into '%s': %w", len(entries), editLogCollectionName, err)
		log.Printf("%v", wrappedErr)
		return wrappedErr
	}
	return nil
}

// LogTransition stores a terminal action.
func (m *MongoLogger) LogTransition(ctx context.Context, entry models.TransitionLog) error {
	if _, err := m.db.Collection(transitionCollectionName).InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert transition log for %s %d: %w", entry.ItemKind, entry.ItemID, err)
	}
	return nil
}
