package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Notification struct {
	ID        string    `gorm:"primaryKey;size:36;not null" json:"id"`
	UserID    string    `gorm:"size:36;index;not null" json:"user"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Message   string    `gorm:"not null" json:"message"`
	Status    string    `gorm:"size:16;not null;default:unread" json:"status"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
