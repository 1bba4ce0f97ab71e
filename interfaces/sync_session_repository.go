package interfaces

import (
	"context"

	"github.com/mailsift/mailsift/internal/enum"
	"github.com/mailsift/mailsift/internal/models"
)

type SyncSessionRepository interface {
	Create(ctx context.Context, session *models.SyncSession) error
	GetByID(ctx context.Context, id string) (*models.SyncSession, error)
	// GetLastCompleted returns the most recent session that finished
	// with status completed, or nil when the mailbox has none.
	GetLastCompleted(ctx context.Context, mailboxID string) (*models.SyncSession, error)
	// IncrementCounters applies monotonic deltas to the progress
	// counters of an open session.
	IncrementCounters(ctx context.Context, id string, discovered, fetched, classified int) error
	// SetTerminalStatus moves an in_progress session to a terminal
	// status. Returns the number of rows updated: zero means the
	// session was missing or already closed.
	SetTerminalStatus(ctx context.Context, id string, status enum.SyncStatus, errorMessage string) (int64, error)
	ListRecent(ctx context.Context, mailboxID string, limit int) ([]*models.SyncSession, error)
}
