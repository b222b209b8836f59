package model

import "errors"

var (
	// ErrInvalidInput marks malformed or missing caller input. Never retried.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDocumentNotFound is returned when a document id is not registered.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrStoreNotFound is returned when a registered document's collection cannot be opened.
	ErrStoreNotFound = errors.New("chunk store not found")
	ErrStoreCreate   = errors.New("chunk store create failed")
	ErrStoreQuery    = errors.New("chunk store query failed")
	ErrRetrieval     = errors.New("retrieval failed")
	ErrGeneration    = errors.New("generation failed")
)
