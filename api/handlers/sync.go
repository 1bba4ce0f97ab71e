package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/mailsift/mailsift/dto"
	"github.com/mailsift/mailsift/interfaces"
	"github.com/mailsift/mailsift/internal/enum"
	er "github.com/mailsift/mailsift/internal/errors"
	"github.com/mailsift/mailsift/internal/models"
	"github.com/mailsift/mailsift/internal/tracing"
	"github.com/mailsift/mailsift/internal/utils"
	"github.com/mailsift/mailsift/services"
)

type SyncHandler struct {
	syncService interfaces.SyncService
	aiService   interfaces.AIService
	progressHub interfaces.ProgressEmitter
}

func NewSyncHandler(s *services.Services) *SyncHandler {
	return &SyncHandler{
		syncService: s.SyncService,
		aiService:   s.AIService,
		progressHub: s.ProgressHub,
	}
}

// StartSync kicks off a sync run for a mailbox. The body is optional;
// an empty request syncs the configured default mailbox with the
// parameters the session tracker picks.
func (h *SyncHandler) StartSync() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.StartSync")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var request dto.SyncRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&request); err != nil {
				tracing.TraceErr(span, err)
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		sessionID, err := h.syncService.StartSync(ctx, request)
		if err != nil {
			tracing.TraceErr(span, err)
			if errors.Is(err, er.ErrSyncInProgress) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, dto.StartSyncResponse{
			SessionID: sessionID,
			Message:   "sync started",
		})
	}
}

// CancelSync requests cancellation of the active run for a mailbox.
// Cancellation is cooperative: the run finishes its in-flight batch
// before it stops, so the response only acknowledges the request.
func (h *SyncHandler) CancelSync() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.CancelSync")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		mailboxID := c.Query("mailboxId")
		tracing.TagMailbox(span, mailboxID)

		cancelled := h.syncService.CancelSync(mailboxID)
		c.JSON(http.StatusAccepted, gin.H{"cancelled": cancelled})
	}
}

// GetSession returns a session snapshot, the polling fallback for
// clients that lost the progress stream.
func (h *SyncHandler) GetSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.GetSession")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		sessionID := c.Param("id")
		tracing.TagSession(span, sessionID)

		session, err := h.syncService.GetSession(ctx, sessionID)
		if err != nil {
			tracing.TraceErr(span, err)
			if errors.Is(err, er.ErrSessionNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, dto.SyncSessionResponseFromModel(session))
	}
}

// ListSessions returns recent sessions for a mailbox, newest first.
func (h *SyncHandler) ListSessions() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.ListSessions")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		mailboxID := c.Query("mailboxId")
		limit, _ := strconv.Atoi(c.Query("limit"))

		sessions, err := h.syncService.ListSessions(ctx, mailboxID, limit)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		responses := make([]*dto.SyncSessionResponse, 0, len(sessions))
		for _, session := range sessions {
			responses = append(responses, dto.SyncSessionResponseFromModel(session))
		}
		c.JSON(http.StatusOK, gin.H{"sessions": responses})
	}
}

// StreamProgress serves the session's progress events over SSE. The
// stream ends after the terminal event; there is no resume, clients
// that reconnect late get a single snapshot frame and should poll
// GetSession for anything older.
func (h *SyncHandler) StreamProgress() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.StreamProgress")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		sessionID := c.Param("id")
		tracing.TagSession(span, sessionID)

		// Subscribe before the snapshot read so no event can slip
		// through the gap between the two.
		events, unsubscribe := h.progressHub.Subscribe(sessionID)
		defer unsubscribe()

		session, err := h.syncService.GetSession(ctx, sessionID)
		if err != nil {
			tracing.TraceErr(span, err)
			if errors.Is(err, er.ErrSessionNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		if session.Status.Terminal() {
			event := terminalSnapshot(session)
			c.SSEvent(event.Type.String(), event)
			c.Writer.Flush()
			return
		}

		clientGone := c.Request.Context().Done()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				c.SSEvent(event.Type.String(), event)
				c.Writer.Flush()
			case <-clientGone:
				return
			}
		}
	}
}

// terminalSnapshot rebuilds the terminal frame for a session that
// finished before the client connected.
func terminalSnapshot(session *models.SyncSession) dto.ProgressEvent {
	event := dto.ProgressEvent{
		SessionID:  session.ID,
		Timestamp:  utils.Now(),
		Synced:     session.Fetched,
		Classified: session.Classified,
	}
	if session.Status == enum.SyncStatusFailed {
		event.Type = enum.ProgressEventError
		event.Message = session.ErrorMessage
		return event
	}
	event.Type = enum.ProgressEventComplete
	if session.Discovered == 0 {
		event.Message = "mailbox already up to date"
	} else {
		event.Message = fmt.Sprintf("synced %d new messages, classified %d", session.Fetched, session.Classified)
	}
	return event
}

// ConfirmCloudDispatch answers a pending hybrid-mode confirmation. 404
// means no run is waiting on an answer for that session, which also
// covers confirmations that already timed out.
func (h *SyncHandler) ConfirmCloudDispatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.ConfirmCloudDispatch")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var request dto.ConfirmRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		tracing.TagSession(span, request.SessionID)

		if !h.aiService.Confirm(request.SessionID, request.Approved) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no confirmation pending for this session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"accepted": true, "approved": request.Approved})
	}
}
