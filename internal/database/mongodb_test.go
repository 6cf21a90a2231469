package database

import (
	"context"
	"testing"
	"time"

	"kontur-content-bot/internal/database/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// setupTestDB starts a throwaway MongoDB container.
func setupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate MongoDB container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, db, err := ConnectDB(ctx, uri, "kontur_bot_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	require.NoError(t, EnsureIndexes(ctx, db))
	return db
}

func TestMongoRepositories(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("StateLifecycle", func(t *testing.T) {
		repo := NewMongoStateRepository(db)

		_, err := repo.StateByChatID(ctx, 100)
		assert.ErrorIs(t, err, ErrStateNotFound)

		require.NoError(t, repo.SaveState(ctx, &models.ChatState{ChatID: 100, AccountID: 7, OrganizationID: 3}))
		require.NoError(t, repo.SaveState(ctx, &models.ChatState{ChatID: 100, AccountID: 8, OrganizationID: 3}))

		state, err := repo.StateByChatID(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(8), state.AccountID)
		assert.False(t, state.CreatedAt.IsZero())

		count, err := db.Collection(chatStateCollectionName).CountDocuments(ctx, bson.M{"chat_id": 100})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		require.NoError(t, repo.DeleteState(ctx, 100))
		assert.ErrorIs(t, repo.DeleteState(ctx, 100), ErrStateNotFound)
	})

	t.Run("AuditLog", func(t *testing.T) {
		logger := NewMongoLogger(db)
		now := time.Now().UTC().Truncate(time.Millisecond)

		require.NoError(t, logger.LogEdits(ctx, nil))
		require.NoError(t, logger.LogEdits(ctx, []models.EditLog{
			{CommitID: "c1", ItemKind: "publication", ItemID: 5, Field: "name", OldValue: "A", NewValue: "B", EditedAt: now, SavedAt: now},
			{CommitID: "c1", ItemKind: "publication", ItemID: 5, Field: "tags", OldValue: "x", NewValue: "x, y", EditedAt: now, SavedAt: now},
		}))
		require.NoError(t, logger.LogTransition(ctx, models.TransitionLog{ItemKind: "publication", ItemID: 5, Action: "approve", Succeeded: true, At: now}))

		count, err := db.Collection(editLogCollectionName).CountDocuments(ctx, bson.M{"item_id": 5, "commit_id": "c1"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		var tr models.TransitionLog
		require.NoError(t, db.Collection(transitionCollectionName).FindOne(ctx, bson.M{"item_id": 5}).Decode(&tr))
		assert.Equal(t, "approve", tr.Action)
		assert.True(t, tr.Succeeded)
	})

	t.Run("UserActivity", func(t *testing.T) {
		logger := NewMongoLogger(db)

		require.NoError(t, logger.UpdateUser(ctx, 42, "anna", "Anna", "", "command_start"))
		require.NoError(t, logger.UpdateUser(ctx, 42, "anna", "Anna", "", "command_drafts"))
		require.NoError(t, logger.LogUserAction(42, "command_drafts", map[string]interface{}{"chat_id": 42}))

		var user models.User
		require.NoError(t, db.Collection(usersCollectionName).FindOne(ctx, bson.M{"user_id": 42}).Decode(&user))
		assert.Equal(t, 2, user.ActionsCount)
		assert.Equal(t, "command_drafts", user.LastAction)
	})
}
