package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/mailsift/mailsift/config"
	"github.com/mailsift/mailsift/dto"
	"github.com/mailsift/mailsift/interfaces"
	"github.com/mailsift/mailsift/internal/enum"
	"github.com/mailsift/mailsift/internal/repository"
	"github.com/mailsift/mailsift/internal/tracing"
	"github.com/mailsift/mailsift/internal/utils"
)

const (
	defaultListLimit    = 50
	maxListLimit        = 200
	defaultDeadlineDays = 7
)

type EmailsHandler struct {
	emailRepository interfaces.EmailRepository
	storageService  interfaces.StorageService
	cfg             *config.Config
}

func NewEmailsHandler(repos *repository.Repositories, storageService interfaces.StorageService, cfg *config.Config) *EmailsHandler {
	return &EmailsHandler{
		emailRepository: repos.EmailRepository,
		storageService:  storageService,
		cfg:             cfg,
	}
}

// mailboxOrDefault falls back to the configured mailbox when the caller
// does not name one.
func (h *EmailsHandler) mailboxOrDefault(mailboxID string) string {
	if mailboxID != "" {
		return mailboxID
	}
	return h.cfg.IMAPConfig.MailboxID
}

// ListEmails lists stored messages, newest first. Bodies are omitted
// from list payloads; fetch a single message for those.
func (h *EmailsHandler) ListEmails() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.ListEmails")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		filter := dto.EmailFilter{
			MailboxID:  c.Query("mailboxId"),
			Folder:     c.Query("folder"),
			Search:     c.Query("search"),
			UnreadOnly: c.Query("unread") == "true",
		}
		if priority := c.Query("priority"); priority != "" {
			filter.Priority = enum.GetPriority(priority)
		}
		if raw, ok := c.GetQuery("archived"); ok {
			archived := raw == "true"
			filter.Archived = &archived
		}
		filter.Limit, _ = strconv.Atoi(c.Query("limit"))
		if filter.Limit <= 0 {
			filter.Limit = defaultListLimit
		}
		if filter.Limit > maxListLimit {
			filter.Limit = maxListLimit
		}
		filter.Offset, _ = strconv.Atoi(c.Query("offset"))
		if filter.Offset < 0 {
			filter.Offset = 0
		}

		emails, total, err := h.emailRepository.List(ctx, filter)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		responses := make([]*dto.EmailResponse, 0, len(emails))
		for _, email := range emails {
			responses = append(responses, dto.EmailResponseFromModel(email, false))
		}
		c.JSON(http.StatusOK, dto.EmailListResponse{
			Emails: responses,
			Total:  total,
			Limit:  filter.Limit,
			Offset: filter.Offset,
		})
	}
}

// GetEmail returns a single message including bodies.
func (h *EmailsHandler) GetEmail() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.GetEmail")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		id := c.Param("id")
		email, err := h.emailRepository.GetByID(ctx, id)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if email == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
			return
		}

		c.JSON(http.StatusOK, dto.EmailResponseFromModel(email, true))
	}
}

// EmailStats returns counts by priority and read state plus deadlines
// falling due within the requested number of days.
func (h *EmailsHandler) EmailStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.EmailStats")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		mailboxID := h.mailboxOrDefault(c.Query("mailboxId"))
		tracing.TagMailbox(span, mailboxID)

		days, _ := strconv.Atoi(c.Query("days"))
		if days <= 0 {
			days = defaultDeadlineDays
		}

		stats, err := h.emailRepository.Stats(ctx, mailboxID)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		upcoming, err := h.emailRepository.UpcomingDeadlines(ctx, mailboxID, days)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		deadlines := make([]*dto.DeadlineEntry, 0, len(upcoming))
		for _, email := range upcoming {
			if email.Deadline == nil {
				continue
			}
			deadlines = append(deadlines, &dto.DeadlineEntry{
				EmailID:  email.ID,
				Subject:  email.Subject,
				Deadline: *email.Deadline,
				DaysLeft: utils.DaysUntil(*email.Deadline),
			})
		}

		c.JSON(http.StatusOK, dto.EmailStatsResponse{
			Stats:             stats,
			UpcomingDeadlines: deadlines,
		})
	}
}

type markReadRequest struct {
	Read *bool `json:"read"`
}

// MarkRead flips the read flag. Defaults to read; send {"read": false}
// to mark unread again.
func (h *EmailsHandler) MarkRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.MarkRead")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		read := true
		if c.Request.ContentLength > 0 {
			var request markReadRequest
			if err := c.ShouldBindJSON(&request); err != nil {
				tracing.TraceErr(span, err)
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if request.Read != nil {
				read = *request.Read
			}
		}

		id := c.Param("id")
		if err := h.emailRepository.MarkRead(ctx, id, read); err != nil {
			h.writeRepoError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": id, "isRead": read})
	}
}

// Archive moves a message out of the working set without deleting it.
func (h *EmailsHandler) Archive() gin.HandlerFunc {
	return h.setArchived("EmailsHandler.Archive", true)
}

// Unarchive restores an archived message.
func (h *EmailsHandler) Unarchive() gin.HandlerFunc {
	return h.setArchived("EmailsHandler.Unarchive", false)
}

func (h *EmailsHandler) setArchived(operationName string, archived bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), operationName)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		id := c.Param("id")
		if err := h.emailRepository.SetArchived(ctx, id, archived); err != nil {
			h.writeRepoError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": id, "isArchived": archived})
	}
}

// DeleteEmail soft deletes the stored row and drops the archived raw
// copy when one exists. The raw delete is best effort: the row is the
// source of truth and an orphaned object costs nothing but space.
func (h *EmailsHandler) DeleteEmail() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.DeleteEmail")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		id := c.Param("id")
		email, err := h.emailRepository.GetByID(ctx, id)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if email == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
			return
		}

		if err := h.emailRepository.Delete(ctx, id); err != nil {
			h.writeRepoError(c, span, err)
			return
		}

		if h.storageService != nil && email.ImapUID != 0 {
			key := fmt.Sprintf("%s/%s/%d.eml", email.MailboxID, email.Folder, email.ImapUID)
			if err := h.storageService.Delete(ctx, key); err != nil {
				tracing.TraceErr(span, errors.Wrapf(err, "failed to delete raw copy %s", key))
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "email deleted", "id": id})
	}
}

func (h *EmailsHandler) writeRepoError(c *gin.Context, span opentracing.Span, err error) {
	tracing.TraceErr(span, err)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
