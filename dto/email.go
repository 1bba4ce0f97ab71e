package dto

import (
	"time"

	"github.com/mailsift/mailsift/internal/enum"
	"github.com/mailsift/mailsift/internal/models"
)

// EmailFilter narrows email list queries. Zero values mean "no filter";
// Archived is a tri-state pointer so callers can ask for archived-only,
// unarchived-only, or both.
type EmailFilter struct {
	MailboxID  string
	Folder     string
	Priority   enum.Priority
	UnreadOnly bool
	Archived   *bool
	Search     string
	Limit      int
	Offset     int
}

type EmailResponse struct {
	ID            string        `json:"id"`
	MailboxID     string        `json:"mailboxId"`
	Folder        string        `json:"folder"`
	Subject       string        `json:"subject"`
	FromAddress   string        `json:"fromAddress"`
	FromName      string        `json:"fromName"`
	ToAddresses   []string      `json:"toAddresses,omitempty"`
	SentAt        *time.Time    `json:"sentAt,omitempty"`
	ReceivedAt    *time.Time    `json:"receivedAt,omitempty"`
	Snippet       string        `json:"snippet"`
	BodyText      string        `json:"bodyText,omitempty"`
	BodyHTML      string        `json:"bodyHtml,omitempty"`
	HasAttachment bool          `json:"hasAttachment"`
	Priority      enum.Priority `json:"priority"`
	Summary       string        `json:"summary"`
	Deadline      *time.Time    `json:"deadline,omitempty"`
	Tags          []string      `json:"tags,omitempty"`
	ClassifiedBy  string        `json:"classifiedBy"`
	ClassifyError string        `json:"classifyError,omitempty"`
	IsRead        bool          `json:"isRead"`
	IsArchived    bool          `json:"isArchived"`
}

type EmailListResponse struct {
	Emails []*EmailResponse `json:"emails"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// EmailResponseFromModel converts a stored email for the wire.
// includeBody keeps list payloads light: bodies only appear on the
// single-message endpoint.
func EmailResponseFromModel(email *models.Email, includeBody bool) *EmailResponse {
	if email == nil {
		return nil
	}
	response := &EmailResponse{
		ID:            email.ID,
		MailboxID:     email.MailboxID,
		Folder:        email.Folder,
		Subject:       email.Subject,
		FromAddress:   email.FromAddress,
		FromName:      email.FromName,
		ToAddresses:   email.ToAddresses,
		SentAt:        email.SentAt,
		ReceivedAt:    email.ReceivedAt,
		Snippet:       email.Snippet,
		HasAttachment: email.HasAttachment,
		Priority:      email.Priority,
		Summary:       email.Summary,
		Deadline:      email.Deadline,
		Tags:          email.Tags,
		ClassifiedBy:  email.ClassifiedBy,
		ClassifyError: email.ClassifyError,
		IsRead:        email.IsRead,
		IsArchived:    email.IsArchived,
	}
	if includeBody {
		response.BodyText = email.BodyText
		response.BodyHTML = email.BodyHTML
	}
	return response
}

type EmailStats struct {
	Total      int64            `json:"total"`
	Unread     int64            `json:"unread"`
	Archived   int64            `json:"archived"`
	ByPriority map[string]int64 `json:"byPriority"`
}

type DeadlineEntry struct {
	EmailID  string    `json:"emailId"`
	Subject  string    `json:"subject"`
	Deadline time.Time `json:"deadline"`
	DaysLeft int       `json:"daysLeft"`
}

type EmailStatsResponse struct {
	Stats             *EmailStats      `json:"stats"`
	UpcomingDeadlines []*DeadlineEntry `json:"upcomingDeadlines"`
}
