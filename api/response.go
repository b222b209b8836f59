package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/siherrmann/tmsrag/core/retry"
	"github.com/siherrmann/tmsrag/model"
)

const (
	notFoundMessage    = "Document not found. Please upload the document first."
	unavailableMessage = "The service is temporarily unavailable, please try again shortly."
	internalMessage    = "Internal server error"
)

// HTTPError is an error with the status it should be answered with.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type UploadResponse struct {
	Success    bool   `json:"success"`
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Message    string `json:"message"`
	NumChunks  int    `json:"num_chunks"`
}

type AskRequest struct {
	DocumentID string `json:"document_id"`
	Question   string `json:"question"`
}

type AskResponse struct {
	Success            bool           `json:"success"`
	Answer             string         `json:"answer"`
	ConfidenceScore    float64        `json:"confidence_score"`
	ConfidenceCategory string         `json:"confidence_category"`
	PassesGuardrails   bool           `json:"passes_guardrails"`
	Sources            []model.Source `json:"sources"`
	Message            string         `json:"message,omitempty"`
}

type ExtractResponse struct {
	Success      bool                   `json:"success"`
	DocumentID   string                 `json:"document_id"`
	ShipmentData model.ShipmentRecord   `json:"shipment_data"`
	Status       model.ExtractionStatus `json:"status"`
	Message      string                 `json:"message"`
}

type DocumentsResponse struct {
	Success   bool              `json:"success"`
	Documents []*model.Document `json:"documents"`
}

type ChunksResponse struct {
	Success    bool           `json:"success"`
	DocumentID string         `json:"document_id"`
	Chunks     []*model.Chunk `json:"chunks"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// JSONResponse writes data as JSON with the given status.
func JSONResponse(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// JSONError writes an error body with the given status.
func JSONError(w http.ResponseWriter, status int, message string) error {
	return JSONResponse(w, status, ErrorResponse{
		Success: false,
		Error:   http.StatusText(status),
		Message: message,
	})
}

// StatusFor maps a service error to the status and message shown to the caller.
// Internal details of unexpected errors are not exposed.
func StatusFor(err error) (int, string) {
	var httpErr *HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code, httpErr.Message
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, model.ErrDocumentNotFound), errors.Is(err, model.ErrStoreNotFound):
		return http.StatusNotFound, notFoundMessage
	case retry.IsRetriable(err):
		return http.StatusServiceUnavailable, unavailableMessage
	default:
		return http.StatusInternalServerError, internalMessage
	}
}

func extractionMessage(status model.ExtractionStatus) string {
	switch status {
	case model.ExtractionComplete:
		return "Structured data extracted successfully"
	case model.ExtractionPartial:
		return "Structured data partially extracted, missing fields are null"
	case model.ExtractionEmpty:
		return "No shipment data found in the document"
	default:
		return "Structured data could not be extracted, all fields are null"
	}
}
