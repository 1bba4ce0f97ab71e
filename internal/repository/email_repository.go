package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/mailsift/mailsift/dto"
	"github.com/mailsift/mailsift/interfaces"
	"github.com/mailsift/mailsift/internal/models"
	"github.com/mailsift/mailsift/internal/tracing"
)

type emailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) interfaces.EmailRepository {
	return &emailRepository{
		db: db,
	}
}

func (r *emailRepository) Create(ctx context.Context, email *models.Email) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	// Same UID landing twice in one window is a no-op, not an error
	existing, err := r.GetByUID(ctx, email.MailboxID, email.Folder, email.ImapUID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if existing != nil {
		span.SetTag("duplicate", true)
		return nil
	}

	result := r.db.WithContext(ctx).Create(email)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}

	return nil
}

func (r *emailRepository) Update(ctx context.Context, email *models.Email) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Update")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	return r.db.WithContext(ctx).Save(email).Error
}

// GetByID retrieves an email by its ID
func (r *emailRepository) GetByID(ctx context.Context, id string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var email models.Email
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

// GetByUID retrieves an email by its IMAP UID within a mailbox folder
func (r *emailRepository) GetByUID(ctx context.Context, mailboxID, folder string, uid uint32) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByUID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var email models.Email
	if err := r.db.WithContext(ctx).
		Where("mailbox_id = ? AND folder = ? AND imap_uid = ?", mailboxID, folder, uid).
		First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

// ExistingUIDs reports which of the given UIDs already have rows, in a
// single query. Used by the reconciler to skip stored messages.
func (r *emailRepository) ExistingUIDs(ctx context.Context, mailboxID, folder string, uids []uint32) (map[uint32]bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.ExistingUIDs")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	existing := make(map[uint32]bool, len(uids))
	if len(uids) == 0 {
		return existing, nil
	}

	var stored []uint32
	if err := r.db.WithContext(ctx).Model(&models.Email{}).
		Where("mailbox_id = ? AND folder = ? AND imap_uid IN ?", mailboxID, folder, uids).
		Pluck("imap_uid", &stored).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	for _, uid := range stored {
		existing[uid] = true
	}
	return existing, nil
}

// List retrieves emails matching the filter with pagination
func (r *emailRepository) List(ctx context.Context, filter dto.EmailFilter) ([]*models.Email, int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.List")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	query := r.db.WithContext(ctx).Model(&models.Email{})

	if filter.MailboxID != "" {
		query = query.Where("mailbox_id = ?", filter.MailboxID)
	}
	if filter.Folder != "" {
		query = query.Where("folder = ?", filter.Folder)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if filter.Archived != nil {
		query = query.Where("is_archived = ?", *filter.Archived)
	}
	if filter.Search != "" {
		searchParam := "%" + filter.Search + "%"
		query = query.Where(
			"subject ILIKE ? OR body_text ILIKE ? OR from_address ILIKE ? OR from_name ILIKE ?",
			searchParam, searchParam, searchParam, searchParam,
		)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	var emails []*models.Email
	if err := query.
		Order("received_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&emails).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	return emails, count, nil
}

func (r *emailRepository) MarkRead(ctx context.Context, id string, read bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.MarkRead")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).Model(&models.Email{}).
		Where("id = ?", id).
		Update("is_read", read)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *emailRepository) SetArchived(ctx context.Context, id string, archived bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.SetArchived")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).Model(&models.Email{}).
		Where("id = ?", id).
		Update("is_archived", archived)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete soft-deletes an email
func (r *emailRepository) Delete(ctx context.Context, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Email{})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Stats aggregates message counts for the mailbox
func (r *emailRepository) Stats(ctx context.Context, mailboxID string) (*dto.EmailStats, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Stats")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	stats := &dto.EmailStats{
		ByPriority: make(map[string]int64),
	}

	base := r.db.WithContext(ctx).Model(&models.Email{}).Where("mailbox_id = ?", mailboxID)

	if err := base.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("is_read = ?", false).Count(&stats.Unread).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("is_archived = ?", true).Count(&stats.Archived).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	type priorityCount struct {
		Priority string
		Count    int64
	}
	var counts []priorityCount
	if err := base.Session(&gorm.Session{}).
		Select("priority, count(*) as count").
		Group("priority").
		Scan(&counts).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	for _, c := range counts {
		if c.Priority != "" {
			stats.ByPriority[c.Priority] = c.Count
		}
	}

	return stats, nil
}

// UpcomingDeadlines returns unarchived emails whose deadline falls
// within the next withinDays days, soonest first
func (r *emailRepository) UpcomingDeadlines(ctx context.Context, mailboxID string, withinDays int) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.UpcomingDeadlines")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var emails []*models.Email
	if err := r.db.WithContext(ctx).
		Where("mailbox_id = ? AND deadline IS NOT NULL AND is_archived = ?", mailboxID, false).
		Where("deadline >= CURRENT_DATE AND deadline < CURRENT_DATE + make_interval(days => ?)", withinDays).
		Order("deadline ASC").
		Find(&emails).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return emails, nil
}
