package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/siherrmann/tmsrag/model"
)

// DefaultSeparators are tried in order, from paragraphs down to single characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// NewChunker returns the chunker selected by the chunking configuration.
func NewChunker(config model.ChunkingConfig) (ChunkFunc, error) {
	switch config.Strategy {
	case model.ChunkingRecursive, "":
		return RecursiveChunker(config.Size, config.Overlap), nil
	case model.ChunkingParagraph:
		return ParagraphChunker(config.Size), nil
	default:
		return nil, fmt.Errorf("unknown chunking strategy %q", config.Strategy)
	}
}

// RecursiveChunker splits on the first separator found in the text and merges the
// pieces back into chunks of at most chunkSize characters, carrying up to
// chunkOverlap characters of the previous chunk into the next one. Pieces that are
// still too long are split again with the next separator.
func RecursiveChunker(chunkSize int, chunkOverlap int) ChunkFunc {
	return func(text string) ([]string, error) {
		if chunkSize <= 0 {
			return nil, fmt.Errorf("chunk size must be positive")
		}
		if chunkOverlap < 0 || chunkOverlap >= chunkSize {
			return nil, fmt.Errorf("chunk overlap must be between 0 and chunk size")
		}

		if strings.TrimSpace(text) == "" {
			return []string{}, nil
		}

		return splitRecursive(text, DefaultSeparators, chunkSize, chunkOverlap), nil
	}
}

// ParagraphChunker creates a chunker that splits by paragraphs.
// Paragraphs longer than maxChunkSize are split recursively without overlap.
func ParagraphChunker(maxChunkSize int) ChunkFunc {
	return func(text string) ([]string, error) {
		if maxChunkSize <= 0 {
			return nil, fmt.Errorf("max chunk size must be positive")
		}

		var chunks []string
		for _, para := range strings.Split(text, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}

			if length(para) <= maxChunkSize {
				chunks = append(chunks, para)
				continue
			}
			chunks = append(chunks, splitRecursive(para, DefaultSeparators[1:], maxChunkSize, 0)...)
		}

		return chunks, nil
	}
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}

func splitRecursive(text string, separators []string, chunkSize int, chunkOverlap int) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			next = separators[i+1:]
			break
		}
	}

	var pieces []string
	if separator == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
	} else {
		pieces = strings.Split(text, separator)
	}

	var chunks []string
	var small []string
	for _, piece := range pieces {
		if piece == "" {
			continue
		}
		if length(piece) < chunkSize {
			small = append(small, piece)
			continue
		}

		if len(small) > 0 {
			chunks = append(chunks, mergePieces(small, separator, chunkSize, chunkOverlap)...)
			small = nil
		}
		if len(next) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, splitRecursive(piece, next, chunkSize, chunkOverlap)...)
		}
	}
	if len(small) > 0 {
		chunks = append(chunks, mergePieces(small, separator, chunkSize, chunkOverlap)...)
	}

	return chunks
}

// mergePieces joins pieces with separator into chunks no longer than chunkSize.
// When a chunk is emitted, pieces are dropped from its front until at most
// chunkOverlap characters remain to start the next chunk.
func mergePieces(pieces []string, separator string, chunkSize int, chunkOverlap int) []string {
	separatorLength := length(separator)

	var chunks []string
	var current []string
	total := 0

	joined := func() {
		chunk := strings.TrimSpace(strings.Join(current, separator))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, piece := range pieces {
		pieceLength := length(piece)
		extra := 0
		if len(current) > 0 {
			extra = separatorLength
		}

		if total+pieceLength+extra > chunkSize && len(current) > 0 {
			joined()

			for total > chunkOverlap || (total > 0 && total+pieceLength+extra > chunkSize) {
				removed := length(current[0])
				if len(current) > 1 {
					removed += separatorLength
				}
				total -= removed
				current = current[1:]
				if len(current) == 0 {
					extra = 0
				}
			}
		}

		current = append(current, piece)
		if len(current) > 1 {
			total += separatorLength
		}
		total += pieceLength
	}

	if len(current) > 0 {
		joined()
	}

	return chunks
}
