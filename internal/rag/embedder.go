package rag

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
)

// DefaultEmbedDelay is the pause after every provider call in a batch. Chunks are
// embedded one by one so a rate-limited provider is never hit in parallel.
const DefaultEmbedDelay = 50 * time.Millisecond

var errEmptyVector = errors.New("provider returned an empty vector")

// Embedder vectorizes document chunks through a Provider.
type Embedder struct {
	provider Provider
	creds    Credentials
	delay    time.Duration

	newID func() string
	sleep func(ctx context.Context, d time.Duration)
}

func NewEmbedder(provider Provider, creds Credentials, delay time.Duration) *Embedder {
	if delay < 0 {
		delay = 0
	}
	return &Embedder{
		provider: provider,
		creds:    creds,
		delay:    delay,
		newID:    uuid.NewString,
		sleep:    sleepContext,
	}
}

// EmbedChunks returns the chunks that were embedded successfully, in input order.
// Only a missing credential fails the call; per-chunk failures are dropped.
func (e *Embedder) EmbedChunks(ctx context.Context, docID string, chunks []string, onProgress ProgressFunc) ([]VectorChunk, error) {
	result, err := e.EmbedChunksDetailed(ctx, docID, chunks, onProgress)
	if err != nil {
		return nil, err
	}
	return result.Succeeded, nil
}

// EmbedChunksDetailed is EmbedChunks with the skipped chunks reported as well.
func (e *Embedder) EmbedChunksDetailed(ctx context.Context, docID string, chunks []string, onProgress ProgressFunc) (BatchResult, error) {
	apiKey := ""
	if e.creds != nil {
		apiKey = e.creds.APIKey()
	}
	if apiKey == "" {
		return BatchResult{}, &ConfigurationError{Kind: KindMissingCredential}
	}

	result := BatchResult{Succeeded: make([]VectorChunk, 0, len(chunks))}
	total := len(chunks)
	for i, text := range chunks {
		vec, err := e.provider.Embed(ctx, apiKey, text)
		switch {
		case err != nil:
			log.Printf("rag: embed chunk %d/%d of %s failed: %v", i+1, total, docID, err)
			result.Failed = append(result.Failed, ChunkFailure{Index: i, Text: text, Reason: FailureProvider, Err: err})
		case len(vec) == 0:
			log.Printf("rag: embed chunk %d/%d of %s returned no vector", i+1, total, docID)
			result.Failed = append(result.Failed, ChunkFailure{Index: i, Text: text, Reason: FailureEmptyVector, Err: errEmptyVector})
		default:
			result.Succeeded = append(result.Succeeded, VectorChunk{
				ID:        e.newID(),
				DocID:     docID,
				Text:      text,
				Embedding: vec,
			})
		}

		if e.delay > 0 {
			e.sleep(ctx, e.delay)
		}
		if onProgress != nil {
			onProgress(progressPercent(i+1, total))
		}
	}
	return result, nil
}

func progressPercent(done, total int) int {
	return int(math.Round(float64(done) / float64(total) * 100))
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
