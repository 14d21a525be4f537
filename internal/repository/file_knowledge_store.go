package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/model"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/pkg/atomicfile"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/rag"
)

const (
	knowledgeBaseFile = "knowledge_base.json"
	documentsFile     = "documents.json"
)

// FileKnowledgeStore keeps the knowledge base as one flat JSON array of chunks,
// the same shape the desktop shell persists locally, plus a small documents index.
type FileKnowledgeStore struct {
	chunksPath string
	docsPath   string

	mu sync.Mutex
}

func NewFileKnowledgeStore(dataDir string) *FileKnowledgeStore {
	return &FileKnowledgeStore{
		chunksPath: filepath.Join(dataDir, knowledgeBaseFile),
		docsPath:   filepath.Join(dataDir, documentsFile),
	}
}

func (s *FileKnowledgeStore) LoadChunks(ctx context.Context) ([]rag.VectorChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readChunks()
}

func (s *FileKnowledgeStore) ListDocuments(ctx context.Context) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.readDocuments()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	return docs, nil
}

func (s *FileKnowledgeStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.readDocuments()
	if err != nil {
		return nil, err
	}
	for i := range docs {
		if docs[i].ID == id {
			return &docs[i], nil
		}
	}
	return nil, nil
}

// SaveDocument appends the chunks first and the index entry second; a crash in
// between leaves orphan chunks rather than a document without vectors.
func (s *FileKnowledgeStore) SaveDocument(ctx context.Context, doc model.Document, chunks []rag.VectorChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readChunks()
	if err != nil {
		return err
	}
	if err := atomicfile.WriteJSON(s.chunksPath, append(existing, chunks...)); err != nil {
		return fmt.Errorf("save knowledge base failed: %w", err)
	}

	docs, err := s.readDocuments()
	if err != nil {
		return err
	}
	if err := atomicfile.WriteJSON(s.docsPath, append(docs, doc)); err != nil {
		return fmt.Errorf("save documents index failed: %w", err)
	}
	return nil
}

func (s *FileKnowledgeStore) DeleteDocument(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.readDocuments()
	if err != nil {
		return false, err
	}
	keptDocs := docs[:0]
	found := false
	for _, d := range docs {
		if d.ID == id {
			found = true
			continue
		}
		keptDocs = append(keptDocs, d)
	}

	chunks, err := s.readChunks()
	if err != nil {
		return false, err
	}
	keptChunks := chunks[:0]
	for _, c := range chunks {
		if c.DocID == id {
			found = true
			continue
		}
		keptChunks = append(keptChunks, c)
	}
	if !found {
		return false, nil
	}

	if err := atomicfile.WriteJSON(s.docsPath, keptDocs); err != nil {
		return false, fmt.Errorf("save documents index failed: %w", err)
	}
	if err := atomicfile.WriteJSON(s.chunksPath, keptChunks); err != nil {
		return false, fmt.Errorf("save knowledge base failed: %w", err)
	}
	return true, nil
}

func (s *FileKnowledgeStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.readDocuments()
	return err
}

func (s *FileKnowledgeStore) readChunks() ([]rag.VectorChunk, error) {
	var chunks []rag.VectorChunk
	if _, err := atomicfile.ReadJSON(s.chunksPath, &chunks); err != nil {
		return nil, fmt.Errorf("load knowledge base failed: %w", err)
	}
	return chunks, nil
}

func (s *FileKnowledgeStore) readDocuments() ([]model.Document, error) {
	var docs []model.Document
	if _, err := atomicfile.ReadJSON(s.docsPath, &docs); err != nil {
		return nil, fmt.Errorf("load documents index failed: %w", err)
	}
	return docs, nil
}
