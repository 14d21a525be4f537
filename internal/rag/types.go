package rag

import (
	"context"
	"errors"
	"fmt"
)

// VectorChunk is one embedded segment of a document. The JSON shape matches the
// flat array persisted by the UI shell.
type VectorChunk struct {
	ID        string    `json:"id"`
	DocID     string    `json:"docId"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// ScoredChunk pairs a chunk with its cosine similarity to a query.
type ScoredChunk struct {
	Chunk VectorChunk `json:"chunk"`
	Score float64     `json:"score"`
}

// Provider turns one text into a vector. No batching: one call per text.
type Provider interface {
	Embed(ctx context.Context, apiKey, text string) ([]float32, error)
}

// Credentials resolves the embedding provider key. An empty string means none is configured.
type Credentials interface {
	APIKey() string
}

// ProgressFunc receives an integer percentage after each chunk attempt.
type ProgressFunc func(percent int)

type ConfigurationKind string

const KindMissingCredential ConfigurationKind = "missing_credential"

var ErrMissingCredential = errors.New("embedding provider credential is not configured")

// ConfigurationError means the whole operation cannot proceed.
type ConfigurationError struct {
	Kind ConfigurationKind
}

func (e *ConfigurationError) Error() string {
	if e.Kind == KindMissingCredential {
		return ErrMissingCredential.Error()
	}
	return fmt.Sprintf("configuration error: %s", e.Kind)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrMissingCredential && e.Kind == KindMissingCredential
}

type FailureReason string

const (
	FailureProvider    FailureReason = "provider_error"
	FailureEmptyVector FailureReason = "empty_vector"
)

// ChunkFailure records a chunk that was skipped during a batch.
type ChunkFailure struct {
	Index  int
	Text   string
	Reason FailureReason
	Err    error
}

// BatchResult is the folded outcome of one EmbedChunksDetailed call.
type BatchResult struct {
	Succeeded []VectorChunk
	Failed    []ChunkFailure
}
