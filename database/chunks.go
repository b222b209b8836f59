package database

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/tmsrag/helper"
	"github.com/siherrmann/tmsrag/model"
	loadSql "github.com/siherrmann/tmsrag/sql"
)

// ChunksDBHandlerFunctions defines the interface for Chunks database operations.
type ChunksDBHandlerFunctions interface {
	InsertCollectionWithChunks(ctx context.Context, name string, chunks []*model.Chunk) (*model.Collection, error)
	SelectChunksByCollection(ctx context.Context, collectionID int64) ([]*model.Chunk, error)
	SelectChunksByDistance(ctx context.Context, collectionID int64, embedding []float32, limit int) ([]model.RetrievedChunk, error)
	ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error
}

// ChunksDBHandler handles chunk-related database operations
type ChunksDBHandler struct {
	db           *helper.Database
	embeddingDim int
}

// NewChunksDBHandler creates a new chunks database handler.
// The collections table must exist, chunks reference it.
// If force is true, it will reload the SQL functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if embeddingDim <= 0 {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("embedding dimension must be positive, got %d", embeddingDim))
	}

	chunksDbHandler := &ChunksDBHandler{
		db:           db,
		embeddingDim: embeddingDim,
	}

	err := loadSql.LoadChunksSql(chunksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	err = chunksDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return chunksDbHandler, nil
}

// CreateTable creates the 'chunks' table with a vector column of the handler's dimension.
// No approximate index is created, similarity search is exact until ChangeIndexType is called.
func (h *ChunksDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chunks($1);`, h.embeddingDim)
	if err != nil {
		return helper.NewError("init chunks", err)
	}

	h.db.Logger.Info("Checked/created table chunks")

	return nil
}

// InsertCollectionWithChunks creates the named collection and all its chunks in one transaction.
// Every chunk must carry an embedding of the handler's dimension.
func (h *ChunksDBHandler) InsertCollectionWithChunks(ctx context.Context, name string, chunks []*model.Chunk) (*model.Collection, error) {
	for i, chunk := range chunks {
		if len(chunk.Embedding) != h.embeddingDim {
			return nil, helper.NewError("embedding validation", fmt.Errorf("chunk %d has %d dimensions, expected %d", i, len(chunk.Embedding), h.embeddingDim))
		}
	}

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return nil, helper.NewError("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	collection := &model.Collection{}
	err = scanCollection(tx.QueryRowContext(
		ctx,
		`SELECT * FROM insert_collection($1, $2)`,
		name,
		h.embeddingDim,
	), collection)
	if err != nil {
		return nil, helper.NewError("insert collection", err)
	}

	for _, chunk := range chunks {
		if chunk.Metadata == nil {
			chunk.Metadata = model.Metadata{}
		}

		row := tx.QueryRowContext(
			ctx,
			`SELECT * FROM insert_chunk($1, $2, $3, $4, $5)`,
			collection.ID,
			chunk.Content,
			chunk.ChunkIndex,
			chunk.Metadata,
			pgvector.NewVector(chunk.Embedding),
		)

		err = row.Scan(
			&chunk.ID,
			&chunk.CollectionID,
			&chunk.Content,
			&chunk.ChunkIndex,
			&chunk.Metadata,
			&chunk.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("insert chunk", err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return nil, helper.NewError("commit transaction", err)
	}

	collection.ChunkCount = len(chunks)

	return collection, nil
}

// SelectChunksByCollection returns the chunks of a collection in document order, without embeddings.
func (h *ChunksDBHandler) SelectChunksByCollection(ctx context.Context, collectionID int64) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_chunks_by_collection($1)`,
		collectionID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		err := rows.Scan(
			&chunk.ID,
			&chunk.CollectionID,
			&chunk.Content,
			&chunk.ChunkIndex,
			&chunk.Metadata,
			&chunk.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		chunks = append(chunks, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}

// SelectChunksByDistance returns up to limit chunks of the collection nearest to embedding,
// ordered by ascending cosine distance.
func (h *ChunksDBHandler) SelectChunksByDistance(ctx context.Context, collectionID int64, embedding []float32, limit int) ([]model.RetrievedChunk, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_chunks_by_distance($1, $2, $3)`,
		collectionID,
		pgvector.NewVector(embedding),
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var retrieved []model.RetrievedChunk
	for rows.Next() {
		chunk := &model.Chunk{}
		var distance float64
		err := rows.Scan(
			&chunk.ID,
			&chunk.CollectionID,
			&chunk.Content,
			&chunk.ChunkIndex,
			&chunk.Metadata,
			&chunk.CreatedAt,
			&distance,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		retrieved = append(retrieved, model.RetrievedChunk{Chunk: chunk, Distance: distance})
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return retrieved, nil
}
