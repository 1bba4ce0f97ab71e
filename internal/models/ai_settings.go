package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/mailsift/mailsift/internal/utils"
)

// AISettings is the per-mailbox classification configuration. At most one
// row exists per mailbox; absent rows fall back to environment defaults.
type AISettings struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey"`
	MailboxID string `gorm:"column:mailbox_id;type:varchar(50);not null;uniqueIndex"`

	Mode string `gorm:"column:mode;type:varchar(20);not null;default:'local'"`

	// Local engine (Ollama)
	LocalModel string `gorm:"column:local_model;type:varchar(100)"`
	LocalHost  string `gorm:"column:local_host;type:varchar(255)"`

	// Cloud engine
	APIProvider string `gorm:"column:api_provider;type:varchar(50)"`
	APIModel    string `gorm:"column:api_model;type:varchar(100)"`
	APIKey      string `gorm:"column:api_key;type:varchar(255)"`

	ConfirmBeforeAPI bool `gorm:"column:confirm_before_api;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (AISettings) TableName() string {
	return "ai_settings"
}

func (s *AISettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = utils.GenerateNanoIDWithPrefix("aiset", 21)
	}
	s.CreatedAt = utils.Now()
	return nil
}
