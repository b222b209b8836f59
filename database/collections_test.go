package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionsNewCollectionsDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewCollectionsDBHandler", func(t *testing.T) {
		collectionsDbHandler, err := NewCollectionsDBHandler(database, true)
		assert.NoError(t, err, "Expected NewCollectionsDBHandler to not return an error")
		require.NotNil(t, collectionsDbHandler, "Expected NewCollectionsDBHandler to return a non-nil instance")
		require.NotNil(t, collectionsDbHandler.db, "Expected NewCollectionsDBHandler to have a non-nil database instance")
	})

	t.Run("Invalid call NewCollectionsDBHandler with nil database", func(t *testing.T) {
		_, err := NewCollectionsDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating CollectionsDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestCollectionsLifecycle(t *testing.T) {
	collectionsDbHandler, _ := initChunkHandlers(t)
	ctx := context.Background()
	name := "doc_" + uuid.NewString()

	t.Run("Insert collection", func(t *testing.T) {
		collection, err := collectionsDbHandler.InsertCollection(ctx, name, testDimension)
		require.NoError(t, err, "Expected InsertCollection to not return an error")
		assert.NotZero(t, collection.ID, "Expected inserted collection to have an ID")
		assert.NotEqual(t, uuid.Nil, collection.RID, "Expected inserted collection to have a RID")
		assert.Equal(t, name, collection.Name)
		assert.Equal(t, testDimension, collection.Dimension)
		assert.Zero(t, collection.ChunkCount)
		assert.WithinDuration(t, time.Now(), collection.CreatedAt, 5*time.Second, "Expected CreatedAt to be set")
	})

	t.Run("Insert duplicate name fails", func(t *testing.T) {
		_, err := collectionsDbHandler.InsertCollection(ctx, name, testDimension)
		assert.Error(t, err, "Expected duplicate collection name to fail")
	})

	t.Run("Select collection by name", func(t *testing.T) {
		collection, err := collectionsDbHandler.SelectCollectionByName(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, name, collection.Name)
	})

	t.Run("Select missing collection returns no rows", func(t *testing.T) {
		_, err := collectionsDbHandler.SelectCollectionByName(ctx, "doc_missing")
		require.Error(t, err)
		assert.True(t, errors.Is(err, sql.ErrNoRows), "Expected sql.ErrNoRows to be wrapped")
	})

	t.Run("Select all collections contains the collection", func(t *testing.T) {
		collections, err := collectionsDbHandler.SelectAllCollections(ctx)
		require.NoError(t, err)

		var names []string
		for _, collection := range collections {
			names = append(names, collection.Name)
		}
		assert.Contains(t, names, name)
	})

	t.Run("Delete collection", func(t *testing.T) {
		deleted, err := collectionsDbHandler.DeleteCollectionByName(ctx, name)
		require.NoError(t, err)
		assert.True(t, deleted, "Expected existing collection to be deleted")

		deleted, err = collectionsDbHandler.DeleteCollectionByName(ctx, name)
		require.NoError(t, err)
		assert.False(t, deleted, "Expected deleting a missing collection to report false")
	})
}
