package model

import (
	"encoding/json"
	"time"
)

// KnowledgeChunk is the relational row for one embedded chunk.
// Embedding is stored as a JSON array of float32.
type KnowledgeChunk struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	DocumentID string    `gorm:"size:64;not null;index:idx_doc_seq,priority:1" json:"documentId"`
	Seq        int       `gorm:"not null;index:idx_doc_seq,priority:2" json:"seq"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Embedding  string    `gorm:"type:mediumtext" json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (c *KnowledgeChunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(c.Embedding), &v)
	return v
}

func (c *KnowledgeChunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}
