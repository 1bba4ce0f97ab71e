package repository

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/mailsift/mailsift/interfaces"
	"github.com/mailsift/mailsift/internal/enum"
	"github.com/mailsift/mailsift/internal/models"
	"github.com/mailsift/mailsift/internal/tracing"
	"github.com/mailsift/mailsift/internal/utils"
)

type syncSessionRepository struct {
	db *gorm.DB
}

func NewSyncSessionRepository(db *gorm.DB) interfaces.SyncSessionRepository {
	return &syncSessionRepository{db: db}
}

func (r *syncSessionRepository) Create(ctx context.Context, session *models.SyncSession) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncSessionRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to create sync session: %w", err)
	}
	return nil
}

func (r *syncSessionRepository) GetByID(ctx context.Context, id string) (*models.SyncSession, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncSessionRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var session models.SyncSession
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&session)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get sync session: %w", result.Error)
	}
	return &session, nil
}

// GetLastCompleted returns the newest completed session for the
// mailbox. Sessions that ended failed or are still open do not count:
// only a completed run proves the mailbox has been synced before.
func (r *syncSessionRepository) GetLastCompleted(ctx context.Context, mailboxID string) (*models.SyncSession, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncSessionRepository.GetLastCompleted")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var session models.SyncSession
	result := r.db.WithContext(ctx).
		Where("mailbox_id = ? AND status = ?", mailboxID, enum.SyncStatusCompleted).
		Order("started_at DESC").
		First(&session)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get last completed session: %w", result.Error)
	}
	return &session, nil
}

// IncrementCounters applies additive deltas so counters only move
// forward regardless of who reads the row in between.
func (r *syncSessionRepository) IncrementCounters(ctx context.Context, id string, discovered, fetched, classified int) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncSessionRepository.IncrementCounters")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	updates := map[string]interface{}{
		"updated_at": utils.Now(),
	}
	if discovered > 0 {
		updates["discovered"] = gorm.Expr("discovered + ?", discovered)
	}
	if fetched > 0 {
		updates["fetched"] = gorm.Expr("fetched + ?", fetched)
	}
	if classified > 0 {
		updates["classified"] = gorm.Expr("classified + ?", classified)
	}

	result := r.db.WithContext(ctx).
		Model(&models.SyncSession{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to advance sync session: %w", result.Error)
	}
	return nil
}

// SetTerminalStatus closes a session. The status guard in the WHERE
// clause makes the close atomic: zero rows affected means the session
// was already terminal (or never existed) and the caller must treat
// the close as failed, not overwrite the first outcome.
func (r *syncSessionRepository) SetTerminalStatus(ctx context.Context, id string, status enum.SyncStatus, errorMessage string) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncSessionRepository.SetTerminalStatus")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	now := utils.Now()
	result := r.db.WithContext(ctx).
		Model(&models.SyncSession{}).
		Where("id = ? AND status = ?", id, enum.SyncStatusInProgress).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errorMessage,
			"completed_at":  now,
			"updated_at":    now,
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return 0, fmt.Errorf("failed to close sync session: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *syncSessionRepository) ListRecent(ctx context.Context, mailboxID string, limit int) ([]*models.SyncSession, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncSessionRepository.ListRecent")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	query := r.db.WithContext(ctx).Model(&models.SyncSession{})
	if mailboxID != "" {
		query = query.Where("mailbox_id = ?", mailboxID)
	}

	var sessions []*models.SyncSession
	if err := query.Order("started_at DESC").Limit(limit).Find(&sessions).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list sync sessions: %w", err)
	}
	return sessions, nil
}
