package rag

import (
	"context"
	"strings"
	"unicode/utf8"
)

// DefaultMinMessageLength: messages this short or shorter ("ok", "thanks") skip retrieval.
const DefaultMinMessageLength = 5

const contextSeparator = "\n\n"

// Orchestrator turns a chat message into a RAG context block.
type Orchestrator struct {
	retriever *Retriever
	kb        *KnowledgeBase
	topK      int
	minLength int
}

func NewOrchestrator(retriever *Retriever, kb *KnowledgeBase, topK, minLength int) *Orchestrator {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if minLength < 0 {
		minLength = DefaultMinMessageLength
	}
	return &Orchestrator{retriever: retriever, kb: kb, topK: topK, minLength: minLength}
}

// BuildContext returns the retrieved chunk texts joined by blank lines, or "" when
// retrieval was skipped or found nothing.
func (o *Orchestrator) BuildContext(ctx context.Context, message string) string {
	chunks := o.Retrieve(ctx, message)
	if len(chunks) == 0 {
		return ""
	}
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	return strings.Join(texts, contextSeparator)
}

// Retrieve applies the engagement rule and runs the retriever.
func (o *Orchestrator) Retrieve(ctx context.Context, message string) []VectorChunk {
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) <= o.minLength {
		return nil
	}
	snapshot := o.kb.Snapshot()
	if len(snapshot) == 0 {
		return nil
	}
	return o.retriever.FindRelevantChunks(ctx, message, snapshot, o.topK)
}
