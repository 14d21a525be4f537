package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/model"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/rag"
)

type GormKnowledgeStore struct {
	db *gorm.DB
}

func NewGormKnowledgeStore(db *gorm.DB) *GormKnowledgeStore {
	return &GormKnowledgeStore{db: db}
}

func (s *GormKnowledgeStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&model.Document{}, &model.KnowledgeChunk{}); err != nil {
		return fmt.Errorf("auto migrate knowledge tables failed: %w", err)
	}
	return nil
}

// LoadChunks returns chunks grouped by document in ingest order.
func (s *GormKnowledgeStore) LoadChunks(ctx context.Context) ([]rag.VectorChunk, error) {
	var rows []model.KnowledgeChunk
	err := s.db.WithContext(ctx).
		Joins("JOIN documents ON documents.id = knowledge_chunks.document_id").
		Order("documents.created_at ASC, knowledge_chunks.seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list knowledge chunks failed: %w", err)
	}

	chunks := make([]rag.VectorChunk, 0, len(rows))
	for i := range rows {
		chunks = append(chunks, rag.VectorChunk{
			ID:        rows[i].ID,
			DocID:     rows[i].DocumentID,
			Text:      rows[i].Content,
			Embedding: rows[i].EmbeddingVector(),
		})
	}
	return chunks, nil
}

func (s *GormKnowledgeStore) ListDocuments(ctx context.Context) ([]model.Document, error) {
	var list []model.Document
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

func (s *GormKnowledgeStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (s *GormKnowledgeStore) SaveDocument(ctx context.Context, doc model.Document, chunks []rag.VectorChunk) error {
	rows := make([]model.KnowledgeChunk, 0, len(chunks))
	for i, c := range chunks {
		row := model.KnowledgeChunk{
			ID:         c.ID,
			DocumentID: doc.ID,
			Seq:        i,
			Content:    c.Text,
		}
		row.SetEmbedding(c.Embedding)
		rows = append(rows, row)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&doc).Error; err != nil {
			return fmt.Errorf("create document failed: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&rows, 100).Error; err != nil {
			return fmt.Errorf("create knowledge chunks batch failed: %w", err)
		}
		return nil
	})
}

func (s *GormKnowledgeStore) DeleteDocument(ctx context.Context, id string) (bool, error) {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&model.KnowledgeChunk{}).Error; err != nil {
			return fmt.Errorf("delete knowledge chunks by document failed: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&model.Document{})
		if res.Error != nil {
			return fmt.Errorf("delete document failed: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}

func (s *GormKnowledgeStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get mysql sql db failed: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping mysql failed: %w", err)
	}
	return nil
}
