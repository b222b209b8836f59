package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/tmsrag/database"
	"github.com/siherrmann/tmsrag/helper"
	"github.com/siherrmann/tmsrag/model"
)

const listPageSize = 100

// PostgresRegistry persists documents in the documents table so the mapping
// survives restarts together with the collections.
type PostgresRegistry struct {
	documents database.DocumentsDBHandlerFunctions
}

// NewPostgresRegistry creates a registry over the documents handler.
func NewPostgresRegistry(documents database.DocumentsDBHandlerFunctions) (*PostgresRegistry, error) {
	if documents == nil {
		return nil, helper.NewError("registry validation", fmt.Errorf("documents handler must not be nil"))
	}
	return &PostgresRegistry{documents: documents}, nil
}

func (r *PostgresRegistry) Put(ctx context.Context, doc *model.Document) error {
	if doc == nil || doc.RID == uuid.Nil {
		return helper.NewError("put document", fmt.Errorf("%w: document id is required", model.ErrInvalidInput))
	}
	if err := r.documents.InsertDocument(ctx, doc); err != nil {
		return helper.NewError("put document", err)
	}
	return nil
}

func (r *PostgresRegistry) Get(ctx context.Context, rid uuid.UUID) (*model.Document, error) {
	doc, err := r.documents.SelectDocument(ctx, rid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, helper.NewError("get document", fmt.Errorf("%w: %s", model.ErrDocumentNotFound, rid))
		}
		return nil, helper.NewError("get document", err)
	}
	return doc, nil
}

func (r *PostgresRegistry) Delete(ctx context.Context, rid uuid.UUID) (bool, error) {
	deleted, err := r.documents.DeleteDocument(ctx, rid)
	if err != nil {
		return false, helper.NewError("delete document", err)
	}
	return deleted, nil
}

func (r *PostgresRegistry) List(ctx context.Context) ([]*model.Document, error) {
	var documents []*model.Document
	var lastCreatedAt *time.Time
	for {
		page, err := r.documents.SelectAllDocuments(ctx, lastCreatedAt, listPageSize)
		if err != nil {
			return nil, helper.NewError("list documents", err)
		}
		documents = append(documents, page...)
		if len(page) < listPageSize {
			break
		}
		last := page[len(page)-1].CreatedAt
		lastCreatedAt = &last
	}
	if documents == nil {
		documents = []*model.Document{}
	}
	return documents, nil
}
