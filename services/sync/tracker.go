package sync

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/mailsift/mailsift/interfaces"
	"github.com/mailsift/mailsift/internal/enum"
	er "github.com/mailsift/mailsift/internal/errors"
	"github.com/mailsift/mailsift/internal/models"
	"github.com/mailsift/mailsift/internal/tracing"
)

// sessionTracker owns the durable per-run records. Sessions open
// in_progress, advance through monotonic counter increments, and close
// into a terminal status exactly once.
type sessionTracker struct {
	sessions interfaces.SyncSessionRepository
}

func newSessionTracker(sessions interfaces.SyncSessionRepository) *sessionTracker {
	return &sessionTracker{sessions: sessions}
}

// Open creates the session row with the run parameters frozen in.
func (t *sessionTracker) Open(ctx context.Context, mailboxID string, mode enum.SyncMode, params SyncParameters) (*models.SyncSession, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "sessionTracker.Open")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, mailboxID)
	span.SetTag("mode", mode.String())

	session := &models.SyncSession{
		MailboxID:  mailboxID,
		Mode:       mode,
		DaysWindow: params.DaysWindow,
		BatchSize:  params.BatchSize,
		DelayMs:    params.DelayMs,
		Status:     enum.SyncStatusInProgress,
	}
	if err := t.sessions.Create(ctx, session); err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to create sync session")
	}
	tracing.TagSession(span, session.ID)
	return session, nil
}

// Advance applies counter deltas to an open session. Counters only ever
// grow; callers pass what just happened, never absolute values.
func (t *sessionTracker) Advance(ctx context.Context, sessionID string, discovered, fetched, classified int) error {
	if discovered < 0 || fetched < 0 || classified < 0 {
		return errors.Errorf("negative counter delta for session %s", sessionID)
	}
	if discovered == 0 && fetched == 0 && classified == 0 {
		return nil
	}
	return t.sessions.IncrementCounters(ctx, sessionID, discovered, fetched, classified)
}

// Close moves the session to a terminal status. Closing twice is a
// programming error and fails loudly with ErrSessionAlreadyClosed
// rather than silently overwriting the first outcome.
func (t *sessionTracker) Close(ctx context.Context, sessionID string, status enum.SyncStatus, errorMessage string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "sessionTracker.Close")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagSession(span, sessionID)
	span.SetTag("status", status.String())

	if !status.Terminal() {
		err := errors.Errorf("close requires a terminal status, got %s", status)
		tracing.TraceErr(span, err)
		return err
	}

	rows, err := t.sessions.SetTerminalStatus(ctx, sessionID, status, errorMessage)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if rows == 0 {
		existing, err := t.sessions.GetByID(ctx, sessionID)
		if err != nil {
			tracing.TraceErr(span, err)
			return err
		}
		if existing == nil {
			tracing.TraceErr(span, er.ErrSessionNotFound)
			return er.ErrSessionNotFound
		}
		err = errors.Wrapf(er.ErrSessionAlreadyClosed, "session %s is already %s", sessionID, existing.Status)
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// ModeFor decides whether the next run is a first or an incremental
// sync. Only completed runs count: a string of failures leaves the
// mailbox on the first-sync profile until one run actually finishes.
func (t *sessionTracker) ModeFor(ctx context.Context, mailboxID string) (enum.SyncMode, error) {
	last, err := t.sessions.GetLastCompleted(ctx, mailboxID)
	if err != nil {
		return "", err
	}
	if last == nil {
		return enum.SyncModeFirst, nil
	}
	return enum.SyncModeIncremental, nil
}
