package interfaces

import (
	"context"

	"github.com/mailsift/mailsift/dto"
	"github.com/mailsift/mailsift/internal/models"
)

// SyncService runs sync sessions against configured mailboxes. One
// active run per mailbox; StartSync returns ErrSyncInProgress while a
// run is live.
type SyncService interface {
	StartSync(ctx context.Context, request dto.SyncRequest) (string, error)
	CancelSync(mailboxID string) bool
	GetSession(ctx context.Context, sessionID string) (*models.SyncSession, error)
	ListSessions(ctx context.Context, mailboxID string, limit int) ([]*models.SyncSession, error)
	ActiveMailboxes() []string
	// Stop cancels every active run and waits for the run goroutines to
	// drain. Used on shutdown.
	Stop()
}
