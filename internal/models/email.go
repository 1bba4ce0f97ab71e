package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/mailsift/mailsift/internal/enum"
	"github.com/mailsift/mailsift/internal/utils"
)

// Email is one synced message together with its classification. Rows are
// written exactly once per provider UID; the pipeline never re-fetches a
// stored message.
type Email struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey"`
	MailboxID string `gorm:"column:mailbox_id;type:varchar(50);not null;index;uniqueIndex:idx_emails_mailbox_folder_uid"`
	Folder    string `gorm:"column:folder;type:varchar(100);not null;uniqueIndex:idx_emails_mailbox_folder_uid"`
	ImapUID   uint32 `gorm:"column:imap_uid;uniqueIndex:idx_emails_mailbox_folder_uid"`
	MessageID string `gorm:"column:message_id;type:varchar(255);index"`

	// Core email metadata
	Subject     string         `gorm:"column:subject;type:varchar(1000)"`
	FromAddress string         `gorm:"column:from_address;type:varchar(255);index"`
	FromName    string         `gorm:"column:from_name;type:varchar(255)"`
	ToAddresses pq.StringArray `gorm:"column:to_addresses;type:text[]"`

	// Time information
	SentAt     *time.Time `gorm:"column:sent_at;type:timestamp;index"`
	ReceivedAt *time.Time `gorm:"column:received_at;type:timestamp;index"`

	// Content
	BodyText      string `gorm:"column:body_text;type:text"`
	BodyHTML      string `gorm:"column:body_html;type:text"`
	Snippet       string `gorm:"column:snippet;type:varchar(255)"`
	HasAttachment bool   `gorm:"column:has_attachment;default:false"`

	// Classification
	Priority      enum.Priority  `gorm:"column:priority;type:varchar(20);index"`
	Summary       string         `gorm:"column:summary;type:text"`
	Deadline      *time.Time     `gorm:"column:deadline;type:timestamp;index"`
	Tags          pq.StringArray `gorm:"column:tags;type:text[]"`
	ClassifiedBy  string         `gorm:"column:classified_by;type:varchar(255)"`
	ClassifyError string         `gorm:"column:classify_error;type:text"`

	// Reader state
	IsRead     bool `gorm:"column:is_read;default:false;index"`
	IsArchived bool `gorm:"column:is_archived;default:false;index"`

	// Raw data
	RawHeaders JSONMap `gorm:"column:raw_headers;type:jsonb"`

	// Standard timestamps
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Email) TableName() string {
	return "emails"
}

func (e *Email) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateNanoIDWithPrefix("email", 24)
	}
	e.CreatedAt = utils.Now()
	return nil
}
