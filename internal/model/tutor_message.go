package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TutorMessage is one turn in a tutor conversation. ID and SessionID are only
// used by the relational history store.
type TutorMessage struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	SessionID string    `gorm:"size:128;not null;index" json:"-"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
