package registry

import (
	"context"

	"github.com/google/uuid"
	"github.com/siherrmann/tmsrag/model"
)

// Registry maps document ids to their collection, filename and chunk count.
// Instances are passed explicitly so every caller and test can hold its own.
type Registry interface {
	// Put registers or replaces a document.
	Put(ctx context.Context, doc *model.Document) error
	// Get returns model.ErrDocumentNotFound for unknown ids.
	Get(ctx context.Context, rid uuid.UUID) (*model.Document, error)
	// Delete reports whether the document was registered.
	Delete(ctx context.Context, rid uuid.UUID) (bool, error)
	// List returns all documents, oldest first.
	List(ctx context.Context) ([]*model.Document, error)
}
