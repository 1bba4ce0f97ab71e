package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mailsift/mailsift/internal/enum"
	"github.com/mailsift/mailsift/internal/utils"
)

// SyncSession records one sync run against a mailbox. Counters only ever
// grow while the session is open; Status flips to a terminal value exactly
// once, at which point the row is frozen.
type SyncSession struct {
	ID        string `gorm:"column:id;type:uuid;primaryKey"`
	MailboxID string `gorm:"column:mailbox_id;type:varchar(50);not null;index"`

	// Parameters the run was started with
	Mode       enum.SyncMode `gorm:"column:mode;type:varchar(20);not null"`
	DaysWindow int           `gorm:"column:days_window;not null"`
	BatchSize  int           `gorm:"column:batch_size;not null"`
	DelayMs    int           `gorm:"column:delay_ms;not null"`

	// Progress counters, monotonically increasing while the run is open
	Discovered int `gorm:"column:discovered;default:0"`
	Fetched    int `gorm:"column:fetched;default:0"`
	Classified int `gorm:"column:classified;default:0"`

	Status       enum.SyncStatus `gorm:"column:status;type:varchar(20);not null;index"`
	ErrorMessage string          `gorm:"column:error_message;type:text"`

	StartedAt   time.Time  `gorm:"column:started_at;type:timestamp;not null"`
	CompletedAt *time.Time `gorm:"column:completed_at;type:timestamp"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (SyncSession) TableName() string {
	return "sync_sessions"
}

func (s *SyncSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = utils.Now()
	}
	s.CreatedAt = utils.Now()
	return nil
}
