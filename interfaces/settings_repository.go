package interfaces

import (
	"context"

	"github.com/mailsift/mailsift/internal/models"
)

type SettingsRepository interface {
	GetByMailbox(ctx context.Context, mailboxID string) (*models.AISettings, error)
	Save(ctx context.Context, settings *models.AISettings) error
}
