package interfaces

import (
	"context"

	"github.com/mailsift/mailsift/dto"
)

// SettingsService resolves the effective AI configuration: the stored
// per-mailbox row when one exists, environment defaults otherwise.
type SettingsService interface {
	GetAIConfig(ctx context.Context, mailboxID string) (*dto.AIConfig, error)
	UpdateAIConfig(ctx context.Context, mailboxID string, update dto.AIConfigUpdate) (*dto.AIConfig, error)
}
