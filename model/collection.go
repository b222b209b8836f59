package model

import (
	"time"

	"github.com/google/uuid"
)

// Collection is a named, independently addressable set of embedded chunks.
// A loaded collection is the store handle passed to the answer engine and extractor.
type Collection struct {
	ID         int64     `json:"id"`
	RID        uuid.UUID `json:"rid"`
	Name       string    `json:"name"`
	Dimension  int       `json:"dimension"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}
