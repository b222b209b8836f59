package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/siherrmann/tmsrag/model"
)

// Service is the document service the handlers delegate to.
type Service interface {
	UploadDocument(ctx context.Context, filename string, content []byte) (*model.Document, error)
	Ask(ctx context.Context, documentID string, question string) (*model.AnswerResult, error)
	Extract(ctx context.Context, documentID string) (*model.ExtractionResult, error)
	DocumentChunks(ctx context.Context, documentID string) ([]*model.Chunk, error)
	ListDocuments(ctx context.Context) ([]*model.Document, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

// Handler serves the document endpoints.
type Handler struct {
	service  Service
	maxBytes int64
	logger   *slog.Logger
}

// NewHandler creates the handler. maxBytes is the upload limit.
func NewHandler(service Service, maxBytes int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, maxBytes: maxBytes, logger: logger}
}

// RegisterRoutes adds all endpoints to mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /{$}", h.HandleInfo)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("POST /upload", h.HandleUpload)
	mux.HandleFunc("POST /ask", h.HandleAsk)
	mux.HandleFunc("POST /extract", h.HandleExtract)
	mux.HandleFunc("GET /documents", h.HandleListDocuments)
	mux.HandleFunc("GET /documents/{id}/chunks", h.HandleDocumentChunks)
	mux.HandleFunc("DELETE /documents/{id}", h.HandleDeleteDocument)
	mux.HandleFunc("DELETE /document/{id}", h.HandleDeleteDocument)
}

func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, map[string]any{
		"name":    "TMS AI Document Processing API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"upload":    "/upload",
			"ask":       "/ask",
			"extract":   "/extract",
			"documents": "/documents",
		},
		"status": "operational",
	})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	// Multipart framing needs some room above the file limit.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.fail(w, r, &HTTPError{Code: http.StatusBadRequest, Message: fmt.Sprintf("File too large. Max size: %d MB", h.maxBytes>>20)})
			return
		}
		h.fail(w, r, &HTTPError{Code: http.StatusBadRequest, Message: "multipart field \"file\" is required"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		h.fail(w, r, &HTTPError{Code: http.StatusBadRequest, Message: "could not read uploaded file"})
		return
	}

	doc, err := h.service.UploadDocument(r.Context(), header.Filename, content)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.respond(w, r, http.StatusOK, UploadResponse{
		Success:    true,
		DocumentID: doc.RID.String(),
		Filename:   doc.Filename,
		Message:    "Document uploaded and processed successfully",
		NumChunks:  doc.ChunkCount,
	})
}

func (h *Handler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		h.fail(w, r, &HTTPError{Code: http.StatusUnsupportedMediaType, Message: "Content-Type must be application/json"})
		return
	}

	var request AskRequest
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&request)
	if err != nil {
		h.fail(w, r, &HTTPError{Code: http.StatusBadRequest, Message: "Invalid JSON payload: " + err.Error()})
		return
	}

	result, err := h.service.Ask(r.Context(), request.DocumentID, request.Question)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response := AskResponse{
		Success:            true,
		Answer:             result.Answer,
		ConfidenceScore:    model.Round(result.Confidence.Score, 3),
		ConfidenceCategory: string(result.Confidence.Category),
		PassesGuardrails:   result.PassesGuardrails,
		Sources:            result.Sources,
	}
	if response.Sources == nil {
		response.Sources = []model.Source{}
	}
	if !result.PassesGuardrails {
		response.Message = "Low confidence, the answer could not be verified against the document"
	}

	h.respond(w, r, http.StatusOK, response)
}

func (h *Handler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	documentID := r.URL.Query().Get("document_id")

	result, err := h.service.Extract(r.Context(), documentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.respond(w, r, http.StatusOK, ExtractResponse{
		Success:      result.Status != model.ExtractionFailed,
		DocumentID:   documentID,
		ShipmentData: result.Record,
		Status:       result.Status,
		Message:      extractionMessage(result.Status),
	})
}

func (h *Handler) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	documents, err := h.service.ListDocuments(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if documents == nil {
		documents = []*model.Document{}
	}

	h.respond(w, r, http.StatusOK, DocumentsResponse{Success: true, Documents: documents})
}

func (h *Handler) HandleDocumentChunks(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")

	chunks, err := h.service.DocumentChunks(r.Context(), documentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	for _, chunk := range chunks {
		chunk.Embedding = nil
	}

	h.respond(w, r, http.StatusOK, ChunksResponse{Success: true, DocumentID: documentID, Chunks: chunks})
}

func (h *Handler) HandleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.respond(w, r, http.StatusOK, MessageResponse{Success: true, Message: "Document deleted successfully"})
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, data any) {
	err := JSONResponse(w, status, data)
	if err != nil {
		h.logger.Error("Error sending response", slog.String("request_id", RequestID(r.Context())), slog.String("error", err.Error()))
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := StatusFor(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "Request failed",
		slog.String("request_id", RequestID(r.Context())),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	h.respond(w, r, status, ErrorResponse{Success: false, Error: http.StatusText(status), Message: message})
}
