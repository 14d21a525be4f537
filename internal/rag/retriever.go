package rag

import (
	"context"
	"log"
	"strings"
)

// Retriever embeds a query and ranks a knowledge base against it. Retrieval is
// best effort: every failure degrades to an empty result.
type Retriever struct {
	provider Provider
	creds    Credentials
}

func NewRetriever(provider Provider, creds Credentials) *Retriever {
	return &Retriever{provider: provider, creds: creds}
}

// FindRelevantChunks returns up to topK chunks ordered by similarity to query.
func (r *Retriever) FindRelevantChunks(ctx context.Context, query string, kb []VectorChunk, topK int) []VectorChunk {
	scored := r.FindRelevantScored(ctx, query, kb, topK)
	if len(scored) == 0 {
		return nil
	}
	out := make([]VectorChunk, len(scored))
	for i := range scored {
		out[i] = scored[i].Chunk
	}
	return out
}

// FindRelevantScored is FindRelevantChunks with the similarity scores kept.
func (r *Retriever) FindRelevantScored(ctx context.Context, query string, kb []VectorChunk, topK int) []ScoredChunk {
	if len(kb) == 0 {
		return nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	apiKey := ""
	if r.creds != nil {
		apiKey = r.creds.APIKey()
	}
	if apiKey == "" {
		log.Printf("rag: query embedding skipped: %v", ErrMissingCredential)
		return nil
	}

	vec, err := r.provider.Embed(ctx, apiKey, query)
	if err != nil {
		log.Printf("rag: query embedding failed: %v", err)
		return nil
	}
	if len(vec) == 0 {
		log.Printf("rag: query embedding returned no vector")
		return nil
	}
	return Rank(vec, kb, topK)
}
