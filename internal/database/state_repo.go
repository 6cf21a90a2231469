package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kontur-content-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const chatStateCollectionName = "chat_states"

// MongoStateRepository implements StateRepository for MongoDB.
type MongoStateRepository struct {
	collection *mongo.Collection
}

// NewMongoStateRepository creates a new MongoDB chat state repository.
func NewMongoStateRepository(db *mongo.Database) *MongoStateRepository {
	return &MongoStateRepository{collection: db.Collection(chatStateCollectionName)}
}

// StateByChatID returns the binding of chatID, or ErrStateNotFound.
func (r *MongoStateRepository) StateByChatID(ctx context.Context, chatID int64) (*models.ChatState, error) {
	var state models.ChatState
	err := r.collection.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&state)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to find state for chat %d: %w", chatID, err)
	}
	return &state, nil
}

// SaveState upserts the binding of state.ChatID.
func (r *MongoStateRepository) SaveState(ctx context.Context, state *models.ChatState) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"account_id":      state.AccountID,
			"organization_id": state.OrganizationID,
			"language_code":   state.LanguageCode,
			"updated_at":      now,
		},
		"$setOnInsert": bson.M{
			"chat_id":    state.ChatID,
			"created_at": now,
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"chat_id": state.ChatID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save state for chat %d: %w", state.ChatID, err)
	}
	state.UpdatedAt = now
	return nil
}

// DeleteState removes the binding of chatID. Deleting a missing binding
// returns ErrStateNotFound.
func (r *MongoStateRepository) DeleteState(ctx context.Context, chatID int64) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"chat_id": chatID})
	if err != nil {
		return fmt.Errorf("failed to delete state for chat %d: %w", chatID, err)
	}
	if res.DeletedCount == 0 {
		return ErrStateNotFound
	}
	return nil
}
