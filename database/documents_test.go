package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/tmsrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentsNewDocumentsDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewDocumentsDBHandler", func(t *testing.T) {
		documentsDbHandler, err := NewDocumentsDBHandler(database, true)
		assert.NoError(t, err, "Expected NewDocumentsDBHandler to not return an error")
		require.NotNil(t, documentsDbHandler, "Expected NewDocumentsDBHandler to return a non-nil instance")
	})

	t.Run("Invalid call NewDocumentsDBHandler with nil database", func(t *testing.T) {
		_, err := NewDocumentsDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating DocumentsDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil")
	})
}

func TestDocumentsLifecycle(t *testing.T) {
	database := initDB(t)
	documentsDbHandler, err := NewDocumentsDBHandler(database, true)
	require.NoError(t, err)
	ctx := context.Background()

	doc := model.NewDocument("rate_confirmation.txt")
	doc.FilePath = "/uploads/" + doc.StoredFilename()
	doc.ChunkCount = 4

	t.Run("Insert document", func(t *testing.T) {
		err := documentsDbHandler.InsertDocument(ctx, doc)
		require.NoError(t, err, "Expected InsertDocument to not return an error")
		assert.NotZero(t, doc.ID)
		assert.False(t, doc.CreatedAt.IsZero(), "Expected CreatedAt to be set")
		assert.NotNil(t, doc.Metadata)
	})

	t.Run("Insert same RID replaces the entry", func(t *testing.T) {
		doc.ChunkCount = 5
		err := documentsDbHandler.InsertDocument(ctx, doc)
		require.NoError(t, err)

		selected, err := documentsDbHandler.SelectDocument(ctx, doc.RID)
		require.NoError(t, err)
		assert.Equal(t, 5, selected.ChunkCount)
	})

	t.Run("Select document", func(t *testing.T) {
		selected, err := documentsDbHandler.SelectDocument(ctx, doc.RID)
		require.NoError(t, err)
		assert.Equal(t, doc.RID, selected.RID)
		assert.Equal(t, "rate_confirmation.txt", selected.Filename)
		assert.Equal(t, doc.CollectionName, selected.CollectionName)
		assert.Equal(t, doc.FilePath, selected.FilePath)
	})

	t.Run("Select missing document returns no rows", func(t *testing.T) {
		_, err := documentsDbHandler.SelectDocument(ctx, uuid.New())
		require.Error(t, err)
		assert.True(t, errors.Is(err, sql.ErrNoRows))
	})

	t.Run("Select all documents with pagination", func(t *testing.T) {
		second := model.NewDocument("bill_of_lading.md")
		require.NoError(t, documentsDbHandler.InsertDocument(ctx, second))

		documents, err := documentsDbHandler.SelectAllDocuments(ctx, nil, 100)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(documents), 2)

		page, err := documentsDbHandler.SelectAllDocuments(ctx, &doc.CreatedAt, 100)
		require.NoError(t, err)
		for _, d := range page {
			assert.True(t, d.CreatedAt.After(doc.CreatedAt), "Expected only newer documents")
		}

		limited, err := documentsDbHandler.SelectAllDocuments(ctx, nil, 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("Delete document", func(t *testing.T) {
		deleted, err := documentsDbHandler.DeleteDocument(ctx, doc.RID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = documentsDbHandler.DeleteDocument(ctx, doc.RID)
		require.NoError(t, err)
		assert.False(t, deleted, "Expected deleting a missing document to report false")
	})
}
