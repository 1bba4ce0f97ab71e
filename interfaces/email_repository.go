package interfaces

import (
	"context"

	"github.com/mailsift/mailsift/dto"
	"github.com/mailsift/mailsift/internal/models"
)

type EmailRepository interface {
	Create(ctx context.Context, email *models.Email) error
	Update(ctx context.Context, email *models.Email) error
	GetByID(ctx context.Context, id string) (*models.Email, error)
	GetByUID(ctx context.Context, mailboxID, folder string, uid uint32) (*models.Email, error)
	// ExistingUIDs reports which of the given UIDs are already stored
	// for the mailbox+folder, in one query.
	ExistingUIDs(ctx context.Context, mailboxID, folder string, uids []uint32) (map[uint32]bool, error)
	List(ctx context.Context, filter dto.EmailFilter) ([]*models.Email, int64, error)
	MarkRead(ctx context.Context, id string, read bool) error
	SetArchived(ctx context.Context, id string, archived bool) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, mailboxID string) (*dto.EmailStats, error)
	UpcomingDeadlines(ctx context.Context, mailboxID string, withinDays int) ([]*models.Email, error)
}
