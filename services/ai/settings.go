package ai

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/mailsift/mailsift/config"
	"github.com/mailsift/mailsift/dto"
	"github.com/mailsift/mailsift/interfaces"
	"github.com/mailsift/mailsift/internal/enum"
	"github.com/mailsift/mailsift/internal/models"
	"github.com/mailsift/mailsift/internal/tracing"
	"github.com/mailsift/mailsift/internal/utils"
)

type settingsService struct {
	cfg  *config.AIConfig
	repo interfaces.SettingsRepository
}

func NewSettingsService(cfg *config.AIConfig, repo interfaces.SettingsRepository) interfaces.SettingsService {
	return &settingsService{
		cfg:  cfg,
		repo: repo,
	}
}

// AIConfigFromEnv maps the environment defaults into the effective-config
// shape used everywhere else.
func AIConfigFromEnv(cfg *config.AIConfig) *dto.AIConfig {
	return &dto.AIConfig{
		Mode:             cfg.Mode,
		LocalModel:       cfg.LocalModel,
		LocalHost:        cfg.LocalHost,
		APIProvider:      cfg.APIProvider,
		APIModel:         cfg.APIModel,
		APIKey:           cfg.APIKey,
		ConfirmBeforeAPI: cfg.ConfirmBeforeAPI,
	}
}

// GetAIConfig returns the stored per-mailbox settings overlaid on the env
// defaults, or the defaults alone when no row exists. The API key is
// returned unmasked; handlers mask before serializing.
func (s *settingsService) GetAIConfig(ctx context.Context, mailboxID string) (*dto.AIConfig, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "settingsService.GetAIConfig")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("mailboxId", mailboxID)

	row, err := s.repo.GetByMailbox(ctx, mailboxID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if row == nil {
		return AIConfigFromEnv(s.cfg), nil
	}

	return &dto.AIConfig{
		Mode:             utils.FirstNonEmpty(row.Mode, s.cfg.Mode),
		LocalModel:       utils.FirstNonEmpty(row.LocalModel, s.cfg.LocalModel),
		LocalHost:        utils.FirstNonEmpty(row.LocalHost, s.cfg.LocalHost),
		APIProvider:      utils.FirstNonEmpty(row.APIProvider, s.cfg.APIProvider),
		APIModel:         row.APIModel,
		APIKey:           utils.FirstNonEmpty(row.APIKey, s.cfg.APIKey),
		ConfirmBeforeAPI: row.ConfirmBeforeAPI,
	}, nil
}

// UpdateAIConfig applies a partial update on top of the current effective
// config and persists the merged row. A masked API key keeps what is
// stored.
func (s *settingsService) UpdateAIConfig(ctx context.Context, mailboxID string, update dto.AIConfigUpdate) (*dto.AIConfig, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "settingsService.UpdateAIConfig")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("mailboxId", mailboxID)

	current, err := s.GetAIConfig(ctx, mailboxID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if update.Mode != nil {
		mode := *update.Mode
		if mode != enum.AIModeLocal.String() && mode != enum.AIModeAPI.String() && mode != enum.AIModeHybrid.String() {
			err = errors.Errorf("invalid AI mode: %s", mode)
			tracing.TraceErr(span, err)
			return nil, err
		}
		current.Mode = mode
	}
	if update.LocalModel != nil {
		current.LocalModel = *update.LocalModel
	}
	if update.LocalHost != nil {
		current.LocalHost = *update.LocalHost
	}
	if update.APIProvider != nil {
		if _, _, err := ResolveProvider(*update.APIProvider); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		current.APIProvider = *update.APIProvider
	}
	if update.APIModel != nil {
		current.APIModel = *update.APIModel
	}
	if update.APIKey != nil && !dto.IsMaskedSecret(*update.APIKey) {
		current.APIKey = *update.APIKey
	}
	if update.ConfirmBeforeAPI != nil {
		current.ConfirmBeforeAPI = *update.ConfirmBeforeAPI
	}

	err = s.repo.Save(ctx, &models.AISettings{
		MailboxID:        mailboxID,
		Mode:             current.Mode,
		LocalModel:       current.LocalModel,
		LocalHost:        current.LocalHost,
		APIProvider:      current.APIProvider,
		APIModel:         current.APIModel,
		APIKey:           current.APIKey,
		ConfirmBeforeAPI: current.ConfirmBeforeAPI,
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return current, nil
}
