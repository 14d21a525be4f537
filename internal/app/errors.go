package app

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrDocumentNotFound = errors.New("document not found")
	ErrNothingEmbedded  = errors.New("document processing failed: no chunk could be embedded")
	ErrJobNotFound      = errors.New("ingest job not found")
	ErrIngestEnqueue    = errors.New("ingest job enqueue failed")
	ErrLLMConfig        = errors.New("llm config is invalid")
)
