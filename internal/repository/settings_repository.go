package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/mailsift/mailsift/interfaces"
	"github.com/mailsift/mailsift/internal/models"
	"github.com/mailsift/mailsift/internal/tracing"
	"github.com/mailsift/mailsift/internal/utils"
)

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) interfaces.SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetByMailbox(ctx context.Context, mailboxID string) (*models.AISettings, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "settingsRepository.GetByMailbox")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var settings models.AISettings
	if err := r.db.WithContext(ctx).Where("mailbox_id = ?", mailboxID).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &settings, nil
}

// Save upserts the mailbox settings row.
func (r *settingsRepository) Save(ctx context.Context, settings *models.AISettings) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "settingsRepository.Save")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).
		Model(&models.AISettings{}).
		Where("mailbox_id = ?", settings.MailboxID).
		Updates(map[string]interface{}{
			"mode":               settings.Mode,
			"local_model":        settings.LocalModel,
			"local_host":         settings.LocalHost,
			"api_provider":       settings.APIProvider,
			"api_model":          settings.APIModel,
			"api_key":            settings.APIKey,
			"confirm_before_api": settings.ConfirmBeforeAPI,
			"updated_at":         utils.Now(),
		})

	if result.RowsAffected == 0 && result.Error == nil {
		result = r.db.WithContext(ctx).Create(settings)
	}

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	return nil
}
