package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a direct message between two users. Only the sender may
// edit or delete it.
type ChatMessage struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SenderID    uuid.UUID `gorm:"type:uuid;not null;index"`
	RecipientID uuid.UUID `gorm:"type:uuid;not null;index"`
	Body        string    `gorm:"not null"`
	Edited      bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
}
