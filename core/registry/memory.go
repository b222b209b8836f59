package registry

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/siherrmann/tmsrag/helper"
	"github.com/siherrmann/tmsrag/model"
)

// MemoryRegistry keeps documents in process memory. Entries never expire.
type MemoryRegistry struct {
	documents *cache.Cache
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{documents: cache.New(cache.NoExpiration, 0)}
}

func (r *MemoryRegistry) Put(ctx context.Context, doc *model.Document) error {
	if doc == nil || doc.RID == uuid.Nil {
		return helper.NewError("put document", fmt.Errorf("%w: document id is required", model.ErrInvalidInput))
	}

	now := time.Now()
	stored := copyDocument(doc)
	if existing, ok := r.documents.Get(doc.RID.String()); ok {
		stored.CreatedAt = existing.(*model.Document).CreatedAt
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	r.documents.Set(doc.RID.String(), stored, cache.NoExpiration)
	doc.CreatedAt = stored.CreatedAt
	doc.UpdatedAt = stored.UpdatedAt

	return nil
}

func (r *MemoryRegistry) Get(ctx context.Context, rid uuid.UUID) (*model.Document, error) {
	value, ok := r.documents.Get(rid.String())
	if !ok {
		return nil, helper.NewError("get document", fmt.Errorf("%w: %s", model.ErrDocumentNotFound, rid))
	}
	return copyDocument(value.(*model.Document)), nil
}

func (r *MemoryRegistry) Delete(ctx context.Context, rid uuid.UUID) (bool, error) {
	if _, ok := r.documents.Get(rid.String()); !ok {
		return false, nil
	}
	r.documents.Delete(rid.String())
	return true, nil
}

func (r *MemoryRegistry) List(ctx context.Context) ([]*model.Document, error) {
	items := r.documents.Items()
	documents := make([]*model.Document, 0, len(items))
	for _, item := range items {
		documents = append(documents, copyDocument(item.Object.(*model.Document)))
	}

	sort.Slice(documents, func(i, j int) bool {
		if documents[i].CreatedAt.Equal(documents[j].CreatedAt) {
			return documents[i].RID.String() < documents[j].RID.String()
		}
		return documents[i].CreatedAt.Before(documents[j].CreatedAt)
	})

	return documents, nil
}

func copyDocument(doc *model.Document) *model.Document {
	c := *doc
	c.Metadata = maps.Clone(doc.Metadata)
	return &c
}
