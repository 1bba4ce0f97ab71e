package dto

import (
	"time"

	"github.com/mailsift/mailsift/internal/enum"
	"github.com/mailsift/mailsift/internal/models"
)

type SyncRequest struct {
	MailboxID   string `json:"mailboxId"`
	Days        int    `json:"days"`
	ForceFirst  bool   `json:"forceFirst"`
	HeadersOnly bool   `json:"headersOnly"`
}

type StartSyncResponse struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type ConfirmRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Approved  bool   `json:"approved"`
}

type SyncSessionResponse struct {
	ID           string          `json:"id"`
	MailboxID    string          `json:"mailboxId"`
	Mode         enum.SyncMode   `json:"mode"`
	DaysWindow   int             `json:"daysWindow"`
	BatchSize    int             `json:"batchSize"`
	Discovered   int             `json:"discovered"`
	Fetched      int             `json:"fetched"`
	Classified   int             `json:"classified"`
	Status       enum.SyncStatus `json:"status"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	StartedAt    time.Time       `json:"startedAt"`
	CompletedAt  *time.Time      `json:"completedAt,omitempty"`
}

func SyncSessionResponseFromModel(session *models.SyncSession) *SyncSessionResponse {
	if session == nil {
		return nil
	}
	return &SyncSessionResponse{
		ID:           session.ID,
		MailboxID:    session.MailboxID,
		Mode:         session.Mode,
		DaysWindow:   session.DaysWindow,
		BatchSize:    session.BatchSize,
		Discovered:   session.Discovered,
		Fetched:      session.Fetched,
		Classified:   session.Classified,
		Status:       session.Status,
		ErrorMessage: session.ErrorMessage,
		StartedAt:    session.StartedAt,
		CompletedAt:  session.CompletedAt,
	}
}
