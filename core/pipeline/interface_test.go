package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/siherrmann/tmsrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockEmbedFunc(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1, 0}, nil
}

func TestNewPipeline(t *testing.T) {
	p := NewPipeline(RecursiveChunker(100, 0), mockEmbedFunc)
	require.NotNil(t, p)
	assert.NotNil(t, p.Chunker)
	assert.NotNil(t, p.Embedder)
}

func TestPipelineProcess(t *testing.T) {
	t.Run("Chunks carry document metadata", func(t *testing.T) {
		p := NewPipeline(ParagraphChunker(100), mockEmbedFunc)

		chunks, err := p.Process("Shipper: Northwind\n\nConsignee: Contoso\n\nRate: 1500 USD", "doc-1", "bol.txt")
		require.NoError(t, err)
		require.Len(t, chunks, 3)

		for i, chunk := range chunks {
			assert.Equal(t, i, chunk.ChunkIndex)
			assert.Equal(t, "doc-1", chunk.Metadata[model.MetadataDocumentID])
			assert.Equal(t, "bol.txt", chunk.Metadata[model.MetadataFilename])
			assert.Equal(t, i, chunk.Metadata[model.MetadataChunkIndex])
			assert.Equal(t, 3, chunk.Metadata[model.MetadataTotalChunks])
			assert.Nil(t, chunk.Embedding, "Expected embedding to be left to the store")
		}
		assert.Equal(t, "Rate: 1500 USD", chunks[2].Content)
	})

	t.Run("Empty text is invalid input", func(t *testing.T) {
		p := NewPipeline(ParagraphChunker(100), mockEmbedFunc)

		_, err := p.Process("   ", "doc-1", "empty.txt")
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrInvalidInput))
	})

	t.Run("Chunker error is returned", func(t *testing.T) {
		p := NewPipeline(func(text string) ([]string, error) { return nil, errors.New("chunker failed") }, mockEmbedFunc)

		_, err := p.Process("text", "doc-1", "a.txt")
		assert.EqualError(t, err, "chunker failed")
	})
}
