package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/model"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/rag"
)

// KnowledgeStore persists documents and their embedded chunks.
type KnowledgeStore interface {
	LoadChunks(ctx context.Context) ([]rag.VectorChunk, error)
	ListDocuments(ctx context.Context) ([]model.Document, error)
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	SaveDocument(ctx context.Context, doc model.Document, chunks []rag.VectorChunk) error
	DeleteDocument(ctx context.Context, id string) (bool, error)
}

type LibraryOptions struct {
	ChunkSize    int
	ChunkOverlap int
	TopK         int
}

// LibraryService owns the document library: ingest, listing, deletion and search.
type LibraryService struct {
	store     KnowledgeStore
	kb        *rag.KnowledgeBase
	embedder  *rag.Embedder
	retriever *rag.Retriever
	creds     rag.Credentials
	opts      LibraryOptions

	now   func() time.Time
	newID func() string
}

func NewLibraryService(
	store KnowledgeStore,
	kb *rag.KnowledgeBase,
	embedder *rag.Embedder,
	retriever *rag.Retriever,
	creds rag.Credentials,
	opts LibraryOptions,
) *LibraryService {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = rag.DefaultChunkSize
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = rag.DefaultChunkOverlap
	}
	if opts.TopK <= 0 {
		opts.TopK = rag.DefaultTopK
	}
	return &LibraryService{
		store:     store,
		kb:        kb,
		embedder:  embedder,
		retriever: retriever,
		creds:     creds,
		opts:      opts,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

type IngestInput struct {
	Name   string
	Source string
	Text   string
}

type IngestResult struct {
	Document     model.Document `json:"document"`
	ChunkCount   int            `json:"chunkCount"`
	TotalChunks  int            `json:"totalChunks"`
	FailedChunks int            `json:"failedChunks"`
}

// LoadKnowledgeBase replaces the in-memory knowledge base with the persisted chunks.
func (s *LibraryService) LoadKnowledgeBase(ctx context.Context) (int, error) {
	chunks, err := s.store.LoadChunks(ctx)
	if err != nil {
		return 0, err
	}
	s.kb.Replace(chunks)
	return len(chunks), nil
}

// Ingest chunks and embeds the text, then persists the document and makes its
// chunks searchable. A document is kept when at least one chunk was embedded.
func (s *LibraryService) Ingest(ctx context.Context, input IngestInput, onProgress rag.ProgressFunc) (*IngestResult, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, ErrInvalidInput
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = "Untitled"
	}
	source := input.Source
	if source == "" {
		source = model.SourceText
	}

	pieces := rag.ChunkText(text, s.opts.ChunkSize, s.opts.ChunkOverlap)
	if len(pieces) == 0 {
		return nil, ErrInvalidInput
	}

	docID := s.newID()
	batch, err := s.embedder.EmbedChunksDetailed(ctx, docID, pieces, onProgress)
	if err != nil {
		return nil, err
	}
	// Chunks after a cancellation fail with ctx.Err(); a truncated document is not kept.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ingest %s interrupted: %w", name, err)
	}
	if len(batch.Succeeded) == 0 {
		return nil, ErrNothingEmbedded
	}

	doc := model.Document{
		ID:         docID,
		Name:       name,
		Source:     source,
		ChunkCount: len(batch.Succeeded),
		CreatedAt:  s.now(),
	}
	if err := s.store.SaveDocument(ctx, doc, batch.Succeeded); err != nil {
		return nil, fmt.Errorf("persist document failed: %w", err)
	}
	s.kb.Append(batch.Succeeded...)

	if len(batch.Failed) > 0 {
		log.Printf("library: %s ingested with %d/%d chunks skipped", name, len(batch.Failed), len(pieces))
	}
	return &IngestResult{
		Document:     doc,
		ChunkCount:   len(batch.Succeeded),
		TotalChunks:  len(pieces),
		FailedChunks: len(batch.Failed),
	}, nil
}

func (s *LibraryService) ListDocuments(ctx context.Context) ([]model.Document, error) {
	return s.store.ListDocuments(ctx)
}

func (s *LibraryService) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidInput
	}
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func (s *LibraryService) DeleteDocument(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidInput
	}
	found, err := s.store.DeleteDocument(ctx, id)
	if err != nil {
		return err
	}
	removed := s.kb.RemoveDocument(id)
	if !found && removed == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// Search ranks the knowledge base against query. Unlike chat retrieval, a missing
// credential is reported so the UI can prompt for a key.
func (s *LibraryService) Search(ctx context.Context, query string, topK int) ([]rag.ScoredChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	if topK <= 0 {
		topK = s.opts.TopK
	}
	if s.creds == nil || s.creds.APIKey() == "" {
		return nil, &rag.ConfigurationError{Kind: rag.KindMissingCredential}
	}
	return s.retriever.FindRelevantScored(ctx, query, s.kb.Snapshot(), topK), nil
}

func (s *LibraryService) KnowledgeBaseSize() int {
	return s.kb.Len()
}
