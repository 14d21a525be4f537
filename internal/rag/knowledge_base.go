package rag

import "sync"

// KnowledgeBase is the in-memory, insertion-ordered collection of embedded chunks.
// Writes replace the whole backing slice, so a Snapshot is never modified afterwards.
type KnowledgeBase struct {
	mu     sync.RWMutex
	chunks []VectorChunk
}

func NewKnowledgeBase(chunks ...VectorChunk) *KnowledgeBase {
	kb := &KnowledgeBase{}
	kb.Replace(chunks)
	return kb
}

// Append adds chunks at the end.
func (kb *KnowledgeBase) Append(chunks ...VectorChunk) {
	if len(chunks) == 0 {
		return
	}
	kb.mu.Lock()
	defer kb.mu.Unlock()
	next := make([]VectorChunk, 0, len(kb.chunks)+len(chunks))
	next = append(next, kb.chunks...)
	next = append(next, chunks...)
	kb.chunks = next
}

// RemoveDocument drops every chunk owned by docID and returns how many were removed.
func (kb *KnowledgeBase) RemoveDocument(docID string) int {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	next := make([]VectorChunk, 0, len(kb.chunks))
	for _, c := range kb.chunks {
		if c.DocID != docID {
			next = append(next, c)
		}
	}
	removed := len(kb.chunks) - len(next)
	kb.chunks = next
	return removed
}

// Replace swaps the whole collection, e.g. after loading from storage.
func (kb *KnowledgeBase) Replace(chunks []VectorChunk) {
	next := make([]VectorChunk, len(chunks))
	copy(next, chunks)
	kb.mu.Lock()
	kb.chunks = next
	kb.mu.Unlock()
}

func (kb *KnowledgeBase) Snapshot() []VectorChunk {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.chunks
}

func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.chunks)
}
