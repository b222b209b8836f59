package database

import (
	"context"
	"fmt"
	"time"

	"github.com/siherrmann/tmsrag/helper"
	"github.com/siherrmann/tmsrag/model"
	loadSql "github.com/siherrmann/tmsrag/sql"
)

// CollectionsDBHandlerFunctions defines the interface for Collections database operations.
type CollectionsDBHandlerFunctions interface {
	InsertCollection(ctx context.Context, name string, dimension int) (*model.Collection, error)
	SelectCollectionByName(ctx context.Context, name string) (*model.Collection, error)
	SelectAllCollections(ctx context.Context) ([]*model.Collection, error)
	DeleteCollectionByName(ctx context.Context, name string) (bool, error)
}

// CollectionsDBHandler handles collection-related database operations
type CollectionsDBHandler struct {
	db *helper.Database
}

// NewCollectionsDBHandler creates a new collections database handler.
// It loads the collection SQL functions and creates the table.
// If force is true, it will reload the SQL functions even if they already exist.
func NewCollectionsDBHandler(db *helper.Database, force bool) (*CollectionsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	collectionsDbHandler := &CollectionsDBHandler{
		db: db,
	}

	err := loadSql.LoadCollectionsSql(collectionsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load collections sql", err)
	}

	err = collectionsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized CollectionsDBHandler")

	return collectionsDbHandler, nil
}

// CreateTable creates the 'collections' table if it does not exist.
func (h *CollectionsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_collections();`)
	if err != nil {
		return helper.NewError("init collections", err)
	}

	h.db.Logger.Info("Checked/created table collections")

	return nil
}

// InsertCollection creates an empty collection.
func (h *CollectionsDBHandler) InsertCollection(ctx context.Context, name string, dimension int) (*model.Collection, error) {
	collection := &model.Collection{}
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_collection($1, $2)`,
		name,
		dimension,
	)

	err := scanCollection(row, collection)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return collection, nil
}

// SelectCollectionByName returns the collection with its current chunk count.
// A missing collection yields an error wrapping sql.ErrNoRows.
func (h *CollectionsDBHandler) SelectCollectionByName(ctx context.Context, name string) (*model.Collection, error) {
	collection := &model.Collection{}
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_collection_by_name($1)`,
		name,
	)

	err := scanCollection(row, collection)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return collection, nil
}

// SelectAllCollections returns all collections, oldest first.
func (h *CollectionsDBHandler) SelectAllCollections(ctx context.Context) ([]*model.Collection, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_all_collections()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var collections []*model.Collection
	for rows.Next() {
		collection := &model.Collection{}
		err := scanCollection(rows, collection)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		collections = append(collections, collection)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return collections, nil
}

// DeleteCollectionByName deletes the collection and its chunks.
// It reports false if no collection had that name.
func (h *CollectionsDBHandler) DeleteCollectionByName(ctx context.Context, name string) (bool, error) {
	var deleted bool
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT delete_collection_by_name($1)`,
		name,
	).Scan(&deleted)
	if err != nil {
		return false, helper.NewError("scan", err)
	}
	return deleted, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCollection(row scanner, collection *model.Collection) error {
	return row.Scan(
		&collection.ID,
		&collection.RID,
		&collection.Name,
		&collection.Dimension,
		&collection.ChunkCount,
		&collection.CreatedAt,
	)
}
