package tmsrag

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/siherrmann/tmsrag/core/extraction"
	"github.com/siherrmann/tmsrag/core/llm"
	"github.com/siherrmann/tmsrag/core/pipeline"
	"github.com/siherrmann/tmsrag/core/registry"
	"github.com/siherrmann/tmsrag/core/retrieval"
	"github.com/siherrmann/tmsrag/core/retry"
	"github.com/siherrmann/tmsrag/core/store"
	"github.com/siherrmann/tmsrag/database"
	"github.com/siherrmann/tmsrag/helper"
	"github.com/siherrmann/tmsrag/model"
	loadSql "github.com/siherrmann/tmsrag/sql"
)

// Service ties ingestion, the chunk store, the answer engine, the extractor
// and the document registry together.
type Service struct {
	DB          *helper.Database
	Collections *database.CollectionsDBHandler
	Chunks      *database.ChunksDBHandler
	Documents   *database.DocumentsDBHandler
	Pipeline    *pipeline.Pipeline
	Store       *store.Store
	Engine      *retrieval.Engine
	Extractor   *extraction.Extractor
	Registry    registry.Registry

	config *model.Config
	log    *slog.Logger
}

// New creates a service with all handlers initialized. Documents are
// registered in Postgres unless SetRegistry replaces the registry.
func New(config *model.Config, dbConfig *helper.DatabaseConfiguration, embed pipeline.EmbedFunc, generate llm.GenerateFunc) (*Service, error) {
	if config == nil {
		return nil, helper.NewError("service validation", fmt.Errorf("config is nil"))
	}

	// Logger
	logger := helper.NewLogger(os.Stdout, helper.ParseLogLevel(config.LogLevel))

	chunker, err := pipeline.NewChunker(config.Chunking)
	if err != nil {
		return nil, helper.NewError("create chunker", err)
	}

	// Initialize database
	db, err := helper.NewDatabase("tmsrag", dbConfig, logger)
	if err != nil {
		return nil, helper.NewError("connect database", err)
	}
	err = loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Collections first, chunks reference them.
	// force=false to not reload if functions already exist
	collections, err := database.NewCollectionsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create collections handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, config.Embedding.Dimension, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	policy := retry.NewPolicy(config.Retry, logger)
	processing := pipeline.NewPipeline(chunker, embed)

	chunkStore, err := store.NewStore(collections, chunks, processing.Embedder, policy, logger)
	if err != nil {
		return nil, helper.NewError("create chunk store", err)
	}

	engine, err := retrieval.NewEngine(chunkStore, generate, config.Retrieval, policy, logger)
	if err != nil {
		return nil, helper.NewError("create answer engine", err)
	}

	extractor, err := extraction.NewExtractor(chunkStore, generate, config.Retrieval.ExtractionTopK, policy, logger)
	if err != nil {
		return nil, helper.NewError("create extractor", err)
	}

	documentRegistry, err := registry.NewPostgresRegistry(documents)
	if err != nil {
		return nil, helper.NewError("create registry", err)
	}

	return &Service{
		DB:          db,
		Collections: collections,
		Chunks:      chunks,
		Documents:   documents,
		Pipeline:    processing,
		Store:       chunkStore,
		Engine:      engine,
		Extractor:   extractor,
		Registry:    documentRegistry,
		config:      config,
		log:         logger,
	}, nil
}

// Close closes the database connection
func (s *Service) Close() error {
	return s.DB.Close()
}

// SetRegistry replaces the document registry.
func (s *Service) SetRegistry(r registry.Registry) {
	s.Registry = r
}

// UploadDocument saves a plain text document, chunks and indexes it into a
// fresh collection and registers it. Nothing is kept when a step fails.
func (s *Service) UploadDocument(ctx context.Context, filename string, content []byte) (*model.Document, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	err := model.ValidateUpload(filename, int64(len(content)), s.config.Upload)
	if err != nil {
		return nil, helper.NewError("validate upload", err)
	}
	if !utf8.Valid(content) {
		return nil, helper.NewError("validate upload", fmt.Errorf("%w: file is not valid UTF-8 text", model.ErrInvalidInput))
	}

	doc := model.NewDocument(filename)

	err = os.MkdirAll(s.config.Upload.Dir, 0o750)
	if err != nil {
		return nil, helper.NewError("create upload directory", err)
	}
	doc.FilePath = filepath.Join(s.config.Upload.Dir, doc.StoredFilename())
	err = os.WriteFile(doc.FilePath, content, 0o600)
	if err != nil {
		return nil, helper.NewError("save upload", err)
	}

	s.log.Info("Saved document", slog.String("document_id", doc.RID.String()), slog.String("filename", filename))

	chunks, err := s.Pipeline.Process(string(content), doc.RID.String(), filename)
	if err != nil {
		s.removeFile(doc.FilePath)
		return nil, helper.NewError("process document", err)
	}

	s.log.Info("Processed document into chunks", slog.Int("num_chunks", len(chunks)), slog.String("document_id", doc.RID.String()))

	collection, err := s.Store.Create(ctx, chunks, doc.CollectionName)
	if err != nil {
		s.removeFile(doc.FilePath)
		return nil, helper.NewError("index document", err)
	}
	doc.ChunkCount = collection.ChunkCount

	err = s.Registry.Put(ctx, doc)
	if err != nil {
		s.Store.Delete(ctx, doc.CollectionName)
		s.removeFile(doc.FilePath)
		return nil, helper.NewError("register document", err)
	}

	return doc, nil
}

// Ask answers a question about an uploaded document.
func (s *Service) Ask(ctx context.Context, documentID string, question string) (*model.AnswerResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, helper.NewError("ask", fmt.Errorf("%w: question is required", model.ErrInvalidInput))
	}

	doc, collection, err := s.open(ctx, documentID)
	if err != nil {
		return nil, err
	}

	s.log.Info("Answering question", slog.String("document_id", doc.RID.String()))

	return s.Engine.AnswerQuestion(ctx, collection, question)
}

// Extract pulls the shipment record out of an uploaded document. Only lookup
// failures are returned as errors, extraction failures show in the status.
func (s *Service) Extract(ctx context.Context, documentID string) (*model.ExtractionResult, error) {
	doc, collection, err := s.open(ctx, documentID)
	if err != nil {
		return nil, err
	}

	result := s.Extractor.Extract(ctx, collection, doc.RID.String())
	return &result, nil
}

// DocumentChunks returns the indexed chunks of a document in document order.
func (s *Service) DocumentChunks(ctx context.Context, documentID string) ([]*model.Chunk, error) {
	_, collection, err := s.open(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return s.Store.Chunks(ctx, collection)
}

// ListDocuments returns all registered documents, oldest first.
func (s *Service) ListDocuments(ctx context.Context) ([]*model.Document, error) {
	return s.Registry.List(ctx)
}

// DeleteDocument removes the saved file, the collection and the registry entry.
func (s *Service) DeleteDocument(ctx context.Context, documentID string) error {
	rid, err := model.ParseDocumentID(documentID)
	if err != nil {
		return helper.NewError("delete document", err)
	}

	doc, err := s.Registry.Get(ctx, rid)
	if err != nil {
		return helper.NewError("delete document", err)
	}

	if !s.Store.Delete(ctx, doc.CollectionName) {
		s.log.Warn("Collection of deleted document was already gone", slog.String("collection", doc.CollectionName))
	}
	if doc.FilePath != "" {
		s.removeFile(doc.FilePath)
	}

	_, err = s.Registry.Delete(ctx, rid)
	if err != nil {
		return helper.NewError("delete document", err)
	}

	s.log.Info("Deleted document", slog.String("document_id", rid.String()))

	return nil
}

// ChangeIndexType switches the vector index between exact, hnsw and ivfflat.
func (s *Service) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return s.Chunks.ChangeIndexType(ctx, indexType, params)
}

// open resolves a document id to its registry entry and collection.
func (s *Service) open(ctx context.Context, documentID string) (*model.Document, *model.Collection, error) {
	rid, err := model.ParseDocumentID(documentID)
	if err != nil {
		return nil, nil, helper.NewError("open document", err)
	}

	doc, err := s.Registry.Get(ctx, rid)
	if err != nil {
		return nil, nil, helper.NewError("open document", err)
	}

	collection, ok := s.Store.Load(ctx, doc.CollectionName)
	if !ok {
		return nil, nil, helper.NewError("open document", fmt.Errorf("%w: %s", model.ErrStoreNotFound, doc.CollectionName))
	}

	return doc, collection, nil
}

func (s *Service) removeFile(path string) {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("Error removing file", slog.String("path", path), slog.String("error", err.Error()))
	}
}
