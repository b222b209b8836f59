package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/siherrmann/tmsrag/model"
)

// ChunkFunc is a function that splits document text into chunk contents, in document order
type ChunkFunc func(text string) ([]string, error)

// EmbedFunc is a function that generates an embedding for text.
// It must be deterministic for identical input.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Pipeline turns document text into chunks ready for the chunk store.
// Embedding happens in the store so it can be retried per chunk.
type Pipeline struct {
	Chunker  ChunkFunc
	Embedder EmbedFunc
}

// NewPipeline creates a new processing pipeline
func NewPipeline(chunker ChunkFunc, embedder EmbedFunc) *Pipeline {
	return &Pipeline{
		Chunker:  chunker,
		Embedder: embedder,
	}
}

// Process splits text into chunks carrying the document id, filename,
// chunk index and total chunk count as metadata.
func (p *Pipeline) Process(text string, documentID string, filename string) ([]*model.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: document contains no text", model.ErrInvalidInput)
	}

	contents, err := p.Chunker(text)
	if err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("%w: document produced no chunks", model.ErrInvalidInput)
	}

	chunks := make([]*model.Chunk, 0, len(contents))
	for i, content := range contents {
		chunks = append(chunks, &model.Chunk{
			Content:    content,
			ChunkIndex: i,
			Metadata: model.Metadata{
				model.MetadataDocumentID:  documentID,
				model.MetadataFilename:    filename,
				model.MetadataChunkIndex:  i,
				model.MetadataTotalChunks: len(contents),
			},
		})
	}

	return chunks, nil
}
