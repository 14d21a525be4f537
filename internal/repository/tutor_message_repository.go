package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/model"
)

// TutorMessageRepository keeps tutor history in MySQL when redis is disabled and
// the relational store is selected.
type TutorMessageRepository struct {
	db *gorm.DB
}

func NewTutorMessageRepository(db *gorm.DB) *TutorMessageRepository {
	return &TutorMessageRepository{db: db}
}

func (r *TutorMessageRepository) AutoMigrate() error {
	if err := r.db.AutoMigrate(&model.TutorMessage{}); err != nil {
		return fmt.Errorf("auto migrate tutor messages failed: %w", err)
	}
	return nil
}

func (r *TutorMessageRepository) Append(ctx context.Context, sessionID string, messages ...model.TutorMessage) error {
	if len(messages) == 0 {
		return nil
	}
	rows := make([]model.TutorMessage, len(messages))
	for i, m := range messages {
		m.ID = 0
		m.SessionID = sessionID
		rows[i] = m
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("create tutor messages failed: %w", err)
	}
	return nil
}

// Recent returns up to limit newest messages, oldest first.
func (r *TutorMessageRepository) Recent(ctx context.Context, sessionID string, limit int) ([]model.TutorMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}

	var messages []model.TutorMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list tutor messages failed: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *TutorMessageRepository) Clear(ctx context.Context, sessionID string) error {
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&model.TutorMessage{}).Error; err != nil {
		return fmt.Errorf("delete tutor messages failed: %w", err)
	}
	return nil
}
