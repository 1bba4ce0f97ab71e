package sync

import (
	"context"
	"fmt"
	"sync"

	"github.com/lib/pq"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/mailsift/mailsift/config"
	"github.com/mailsift/mailsift/dto"
	"github.com/mailsift/mailsift/interfaces"
	"github.com/mailsift/mailsift/internal/enum"
	er "github.com/mailsift/mailsift/internal/errors"
	"github.com/mailsift/mailsift/internal/logger"
	"github.com/mailsift/mailsift/internal/models"
	"github.com/mailsift/mailsift/internal/tracing"
	"github.com/mailsift/mailsift/internal/utils"
)

// classificationWorkers bounds the in-flight classification calls per
// batch. Results are still stored in fetch order once the whole batch
// has been classified.
const classificationWorkers = 3

type syncService struct {
	cfg        *config.Config
	log        logger.Logger
	imap       interfaces.IMAPClient
	ai         interfaces.AIService
	emails     interfaces.EmailRepository
	sessions   interfaces.SyncSessionRepository
	progress   interfaces.ProgressEmitter
	events     interfaces.EventPublisher
	storage    interfaces.StorageService
	tracker    *sessionTracker
	reconciler *reconciler

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncService builds the sync orchestrator. events and storage may
// be nil when the deployment runs without a queue or raw archival;
// everything else is required.
func NewSyncService(
	cfg *config.Config,
	log logger.Logger,
	imapClient interfaces.IMAPClient,
	aiService interfaces.AIService,
	emailRepository interfaces.EmailRepository,
	sessionRepository interfaces.SyncSessionRepository,
	progress interfaces.ProgressEmitter,
	events interfaces.EventPublisher,
	storage interfaces.StorageService,
) interfaces.SyncService {
	return &syncService{
		cfg:        cfg,
		log:        log,
		imap:       imapClient,
		ai:         aiService,
		emails:     emailRepository,
		sessions:   sessionRepository,
		progress:   progress,
		events:     events,
		storage:    storage,
		tracker:    newSessionTracker(sessionRepository),
		reconciler: newReconciler(emailRepository),
		active:     make(map[string]context.CancelFunc),
	}
}

// StartSync opens a session and launches the run in the background.
// Only one run per mailbox may be live; a second start while one is
// running returns ErrSyncInProgress without touching any state.
func (s *syncService) StartSync(ctx context.Context, request dto.SyncRequest) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncService.StartSync")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	mailboxID := request.MailboxID
	if mailboxID == "" {
		mailboxID = s.cfg.IMAPConfig.MailboxID
	}
	tracing.TagMailbox(span, mailboxID)

	runCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if _, running := s.active[mailboxID]; running {
		s.mu.Unlock()
		cancel()
		tracing.TraceErr(span, er.ErrSyncInProgress)
		return "", er.ErrSyncInProgress
	}
	s.active[mailboxID] = cancel
	s.mu.Unlock()

	session, err := s.openSession(ctx, mailboxID, request)
	if err != nil {
		s.release(mailboxID)
		cancel()
		tracing.TraceErr(span, err)
		return "", err
	}
	tracing.TagSession(span, session.ID)

	s.wg.Add(1)
	go s.run(runCtx, session, request.HeadersOnly)

	s.log.Infof("sync session %s started for mailbox %s (%s, %d days)", session.ID, mailboxID, session.Mode, session.DaysWindow)
	return session.ID, nil
}

// openSession resolves the mode and parameters for the run and creates
// the session row. A forced first sync skips the mode lookup; an
// explicit day count overrides the profile window.
func (s *syncService) openSession(ctx context.Context, mailboxID string, request dto.SyncRequest) (*models.SyncSession, error) {
	mode := enum.SyncModeFirst
	if !request.ForceFirst {
		resolved, err := s.tracker.ModeFor(ctx, mailboxID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve sync mode")
		}
		mode = resolved
	}

	params := ProfileFor(mode, s.cfg.SyncConfig)
	if request.Days > 0 {
		params.DaysWindow = request.Days
	}
	return s.tracker.Open(ctx, mailboxID, mode, params)
}

// CancelSync requests cancellation of the mailbox's active run. The
// run notices at the next batch boundary, finishes the batch in
// flight, and closes the session as failed with a cancellation marker.
func (s *syncService) CancelSync(mailboxID string) bool {
	if mailboxID == "" {
		mailboxID = s.cfg.IMAPConfig.MailboxID
	}
	s.mu.Lock()
	cancel, running := s.active[mailboxID]
	s.mu.Unlock()
	if !running {
		return false
	}
	s.log.Infof("cancellation requested for mailbox %s", mailboxID)
	cancel()
	return true
}

func (s *syncService) GetSession(ctx context.Context, sessionID string) (*models.SyncSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, er.ErrSessionNotFound
	}
	return session, nil
}

func (s *syncService) ListSessions(ctx context.Context, mailboxID string, limit int) ([]*models.SyncSession, error) {
	if mailboxID == "" {
		mailboxID = s.cfg.IMAPConfig.MailboxID
	}
	if limit <= 0 {
		limit = 20
	}
	return s.sessions.ListRecent(ctx, mailboxID, limit)
}

func (s *syncService) ActiveMailboxes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	mailboxes := make([]string, 0, len(s.active))
	for mailboxID := range s.active {
		mailboxes = append(mailboxes, mailboxID)
	}
	return mailboxes
}

// Stop cancels every active run and waits for the run goroutines to
// finish their terminal bookkeeping.
func (s *syncService) Stop() {
	s.mu.Lock()
	for _, cancel := range s.active {
		cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *syncService) release(mailboxID string) {
	s.mu.Lock()
	delete(s.active, mailboxID)
	s.mu.Unlock()
}

// runTotals carries the per-run counters the terminal event reports.
// The session row tracks the same numbers durably via the tracker.
type runTotals struct {
	discovered int
	fetched    int
	classified int
}

// run executes one sync session end to end and always leaves the
// session in a terminal state, whatever happens, including panics.
func (s *syncService) run(ctx context.Context, session *models.SyncSession, headersOnly bool) {
	defer s.wg.Done()
	defer tracing.RecoverAndLogToJaeger(s.log)
	defer s.release(session.MailboxID)
	defer s.ai.ReleaseSession(session.ID)

	span, ctx := opentracing.StartSpanFromContext(ctx, "syncService.run")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, session.MailboxID)
	tracing.TagSession(span, session.ID)

	totals := &runTotals{}
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("panic during sync run: %v", r)
				s.log.Errorf("panic during sync session %s: %v", session.ID, r)
			}
		}()
		return s.execute(ctx, session, headersOnly, totals)
	}()
	if err != nil {
		tracing.TraceErr(span, err)
	}

	s.finish(session, totals, err)
}

// execute runs the pipeline phases in order: connect, reconcile the
// window, then fetch and classify batch by batch.
func (s *syncService) execute(ctx context.Context, session *models.SyncSession, headersOnly bool, totals *runTotals) error {
	folder := s.cfg.IMAPConfig.Folder

	s.progress.EmitStatus(session.ID, enum.SyncPhaseConnecting, fmt.Sprintf("connecting to %s", s.cfg.IMAPConfig.Server))
	imapSession, err := s.imap.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := imapSession.Close(); closeErr != nil {
			s.log.Warnf("failed to close imap session: %v", closeErr)
		}
	}()

	s.progress.EmitStatus(session.ID, enum.SyncPhaseListing, fmt.Sprintf("listing messages from the last %d days", session.DaysWindow))
	since := utils.Now().AddDate(0, 0, -session.DaysWindow)
	missing, err := s.reconciler.MissingUIDs(ctx, imapSession, session.MailboxID, folder, since)
	if err != nil {
		return err
	}

	totals.discovered = len(missing)
	if err := s.tracker.Advance(ctx, session.ID, len(missing), 0, 0); err != nil {
		return err
	}

	scheduler := newBatchScheduler(SyncParameters{
		DaysWindow: session.DaysWindow,
		BatchSize:  session.BatchSize,
		DelayMs:    session.DelayMs,
	}, s.cfg.SyncConfig.MaxEmailsPerSync, s.log)

	planned := scheduler.Plan(missing)
	if len(planned) == 0 {
		return nil
	}
	if len(planned) < len(missing) {
		s.log.Infof("capping sync session %s at %d of %d new messages", session.ID, len(planned), len(missing))
	}

	s.progress.EmitStatus(session.ID, enum.SyncPhaseFetching, fmt.Sprintf("fetching %d new messages", len(planned)))

	total := len(planned)
	err = scheduler.Run(ctx, imapSession, folder, planned, headersOnly, func(messages []*interfaces.FetchedMessage) error {
		return s.handleBatch(ctx, session, messages, headersOnly, totals, total)
	})
	if err != nil {
		return err
	}

	s.progress.EmitStatus(session.ID, enum.SyncPhaseFinalizing, "wrapping up")
	return nil
}

// handleBatch classifies and stores one fetched batch. Rows are written
// in fetch order before the batch's progress event goes out, so a
// subscriber never sees progress for a message that is not stored yet.
func (s *syncService) handleBatch(ctx context.Context, session *models.SyncSession, messages []*interfaces.FetchedMessage, headersOnly bool, totals *runTotals, total int) error {
	var results []*dto.ClassificationResult
	if !headersOnly {
		var err error
		results, err = s.classifyBatch(ctx, session, messages)
		if err != nil {
			return err
		}
	}

	classifiedDelta := 0
	for i, message := range messages {
		var result *dto.ClassificationResult
		if results != nil {
			result = results[i]
		}
		if err := s.storeMessage(ctx, session, message, result); err != nil {
			return errors.Wrapf(err, "failed to store message uid %d", message.UID)
		}
		totals.fetched++
		if result != nil && result.Error == "" {
			totals.classified++
			classifiedDelta++
		}
	}

	if err := s.tracker.Advance(ctx, session.ID, 0, len(messages), classifiedDelta); err != nil {
		return err
	}
	s.progress.EmitProgress(session.ID, totals.fetched, total, totals.fetched, totals.classified,
		fmt.Sprintf("processed %d of %d", totals.fetched, total))
	return nil
}

// classifyBatch runs the router over a batch with a small worker pool.
// Classification failures degrade inside the router and come back as
// results; the only error out of here is cancellation, which drops the
// whole batch so the next run can pick it up again.
func (s *syncService) classifyBatch(ctx context.Context, session *models.SyncSession, messages []*interfaces.FetchedMessage) ([]*dto.ClassificationResult, error) {
	results := make([]*dto.ClassificationResult, len(messages))
	sem := make(chan struct{}, classificationWorkers)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := range messages {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			mu.Lock()
			aborted := firstErr != nil
			mu.Unlock()
			if aborted {
				return
			}

			result, err := s.ai.ProcessMessage(ctx, classifyRequest(session, messages[i]))
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			results[i] = result
		}(i)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func classifyRequest(session *models.SyncSession, message *interfaces.FetchedMessage) dto.ClassifyEmailRequest {
	return dto.ClassifyEmailRequest{
		SessionID:   session.ID,
		MailboxID:   session.MailboxID,
		Folder:      message.Folder,
		Subject:     message.Subject,
		FromAddress: message.FromAddress,
		FromName:    message.FromName,
		BodyText:    message.BodyText,
		BodyHTML:    message.BodyHTML,
	}
}

// storeMessage writes the email row, then archives the raw message and
// publishes the classification event. Archival and publishing are best
// effort and never fail the run.
func (s *syncService) storeMessage(ctx context.Context, session *models.SyncSession, message *interfaces.FetchedMessage, result *dto.ClassificationResult) error {
	email := &models.Email{
		MailboxID:     session.MailboxID,
		Folder:        message.Folder,
		ImapUID:       message.UID,
		MessageID:     message.MessageID,
		Subject:       message.Subject,
		FromAddress:   message.FromAddress,
		FromName:      message.FromName,
		ToAddresses:   pq.StringArray(message.ToAddresses),
		SentAt:        message.SentAt,
		ReceivedAt:    message.ReceivedAt,
		BodyText:      message.BodyText,
		BodyHTML:      message.BodyHTML,
		Snippet:       utils.Snippet(message.BodyText, 200),
		HasAttachment: message.HasAttachment,
		RawHeaders:    headersToJSONMap(message.Headers),
	}
	if result != nil {
		email.Priority = result.Priority
		email.Summary = result.Summary
		email.Deadline = result.Deadline
		email.Tags = pq.StringArray(result.Tags)
		email.ClassifiedBy = result.ClassifiedBy
		email.ClassifyError = result.Error
	} else {
		email.Priority = enum.PriorityNormal
		email.ClassifiedBy = dto.AttributionNone
	}

	if err := s.emails.Create(ctx, email); err != nil {
		return err
	}

	s.archiveRaw(ctx, session, message)
	s.publishClassified(ctx, email)
	return nil
}

func headersToJSONMap(headers map[string]string) models.JSONMap {
	if len(headers) == 0 {
		return nil
	}
	out := make(models.JSONMap, len(headers))
	for key, value := range headers {
		out[key] = value
	}
	return out
}

func (s *syncService) archiveRaw(ctx context.Context, session *models.SyncSession, message *interfaces.FetchedMessage) {
	if s.storage == nil || len(message.Raw) == 0 {
		return
	}
	key := fmt.Sprintf("%s/%s/%d.eml", session.MailboxID, message.Folder, message.UID)
	if err := s.storage.Upload(ctx, key, message.Raw, "message/rfc822"); err != nil {
		s.log.Warnf("failed to archive raw message %s: %v", key, err)
	}
}

func (s *syncService) publishClassified(ctx context.Context, email *models.Email) {
	if s.events == nil {
		return
	}
	event := dto.EmailClassifiedEvent{
		EmailID:      email.ID,
		MailboxID:    email.MailboxID,
		Priority:     email.Priority.String(),
		ClassifiedBy: email.ClassifiedBy,
		HasDeadline:  email.Deadline != nil,
	}
	if err := s.events.PublishDirectEvent(ctx, email.ID, enum.EMAIL, "email-classified", event); err != nil {
		s.log.Warnf("failed to publish email-classified event for %s: %v", email.ID, err)
	}
}

// finish closes the session and emits exactly one terminal event. The
// terminal writes run on a fresh context so a cancelled run can still
// record its own end.
func (s *syncService) finish(session *models.SyncSession, totals *runTotals, runErr error) {
	ctx := context.Background()

	if runErr == nil {
		if err := s.tracker.Close(ctx, session.ID, enum.SyncStatusCompleted, ""); err != nil {
			s.log.Errorf("failed to close sync session %s: %v", session.ID, err)
		}
		message := fmt.Sprintf("synced %d new messages, classified %d", totals.fetched, totals.classified)
		if totals.discovered == 0 {
			message = "mailbox already up to date"
		}
		s.progress.EmitComplete(session.ID, totals.fetched, totals.classified, message)
		s.publishRunFinished(ctx, session, enum.SyncStatusCompleted, totals)
		s.log.Infof("sync session %s completed: %d discovered, %d synced, %d classified",
			session.ID, totals.discovered, totals.fetched, totals.classified)
		return
	}

	message := runErr.Error()
	if er.IsCancellation(runErr) {
		message = er.ErrSyncCancelled.Error()
	}
	if er.IsQuotaError(runErr) {
		s.log.Warnf("provider throttled sync session %s, wait 15 to 60 minutes before retrying: %v", session.ID, runErr)
	}
	if err := s.tracker.Close(ctx, session.ID, enum.SyncStatusFailed, message); err != nil {
		s.log.Errorf("failed to close sync session %s: %v", session.ID, err)
	}
	s.progress.EmitError(session.ID, message)
	s.publishRunFinished(ctx, session, enum.SyncStatusFailed, totals)
	s.log.Warnf("sync session %s failed after %d of %d messages: %s", session.ID, totals.fetched, totals.discovered, message)
}

func (s *syncService) publishRunFinished(ctx context.Context, session *models.SyncSession, status enum.SyncStatus, totals *runTotals) {
	if s.events == nil {
		return
	}
	event := dto.SyncCompletedEvent{
		SessionID:  session.ID,
		MailboxID:  session.MailboxID,
		Status:     status.String(),
		Synced:     totals.fetched,
		Classified: totals.classified,
	}
	if err := s.events.PublishDirectEvent(ctx, session.ID, enum.SYNC_SESSION, "sync-completed", event); err != nil {
		s.log.Warnf("failed to publish sync-completed event for %s: %v", session.ID, err)
	}
}
