package model

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Document is a registry entry mapping an uploaded document to its collection.
type Document struct {
	ID             int64     `json:"-"`
	RID            uuid.UUID `json:"document_id"`
	Filename       string    `json:"filename"`
	FilePath       string    `json:"file_path,omitempty"`
	CollectionName string    `json:"collection_name"`
	ChunkCount     int       `json:"num_chunks"`
	Metadata       Metadata  `json:"metadata,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewDocument creates a registry entry with a fresh document id.
// The collection name is derived from the id so every upload gets its own collection.
func NewDocument(filename string) *Document {
	rid := uuid.New()
	return &Document{
		RID:            rid,
		Filename:       filename,
		CollectionName: CollectionNameFor(rid),
		Metadata:       Metadata{},
	}
}

// CollectionNameFor returns the collection name used for a document id.
func CollectionNameFor(rid uuid.UUID) string {
	return "doc_" + rid.String()
}

// StoredFilename is the name the upload is saved under.
func (d *Document) StoredFilename() string {
	return fmt.Sprintf("%s_%s", d.RID, filepath.Base(d.Filename))
}

// ParseDocumentID parses a caller supplied document identifier.
func ParseDocumentID(id string) (uuid.UUID, error) {
	if strings.TrimSpace(id) == "" {
		return uuid.Nil, fmt.Errorf("%w: document_id is required", ErrInvalidInput)
	}
	rid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: document_id %q is not a valid id", ErrInvalidInput, id)
	}
	return rid, nil
}

// ValidateUpload checks the filename extension and size against the upload limits.
func ValidateUpload(filename string, size int64, config UploadConfig) error {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if !slices.Contains(config.AllowedExtensions, ext) {
		return fmt.Errorf("%w: file type %q not allowed, allowed types: %s", ErrInvalidInput, ext, strings.Join(config.AllowedExtensions, ", "))
	}

	if size == 0 {
		return fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	if size > config.MaxBytes {
		return fmt.Errorf("%w: file size exceeds maximum of %d MB", ErrInvalidInput, config.MaxBytes/(1024*1024))
	}

	return nil
}
