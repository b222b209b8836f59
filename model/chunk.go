package model

import (
	"math"
	"time"
)

// Metadata keys attached to every chunk at ingestion.
const (
	MetadataDocumentID  = "document_id"
	MetadataFilename    = "filename"
	MetadataChunkIndex  = "chunk_index"
	MetadataTotalChunks = "total_chunks"
)

// Chunk is a unit of retrievable text belonging to one collection.
type Chunk struct {
	ID           int64     `json:"id"`
	CollectionID int64     `json:"collection_id"`
	Content      string    `json:"content"`
	ChunkIndex   int       `json:"chunk_index"`
	Metadata     Metadata  `json:"metadata,omitempty"`
	Embedding    []float32 `json:"embedding,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RetrievedChunk pairs a chunk with its distance to the query.
// Lower distance means more similar.
type RetrievedChunk struct {
	Chunk    *Chunk  `json:"chunk"`
	Distance float64 `json:"distance"`
}

// Similarity returns 1 - distance. The value is not clamped.
func (r RetrievedChunk) Similarity() float64 {
	return 1 - r.Distance
}

// Source is the display form of a retrieved chunk in an answer.
type Source struct {
	Content         string   `json:"content"`
	SimilarityScore float64  `json:"similarity_score"`
	Metadata        Metadata `json:"metadata"`
}

// NewSource converts a retrieved chunk, rounding the similarity to three places.
func NewSource(r RetrievedChunk) Source {
	source := Source{
		SimilarityScore: Round(r.Similarity(), 3),
		Metadata:        Metadata{},
	}
	if r.Chunk != nil {
		source.Content = r.Chunk.Content
		if r.Chunk.Metadata != nil {
			source.Metadata = r.Chunk.Metadata
		}
	}
	return source
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
