package model

import "time"

// Document is one ingested source in the knowledge library.
type Document struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	Name       string    `gorm:"size:256;not null" json:"name"`
	Source     string    `gorm:"size:32;not null" json:"source"`
	ChunkCount int       `gorm:"not null" json:"chunkCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

const (
	SourceText = "text"
	SourcePDF  = "pdf"
)
