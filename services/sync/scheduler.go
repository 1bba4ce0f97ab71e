package sync

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/mailsift/mailsift/interfaces"
	er "github.com/mailsift/mailsift/internal/errors"
	"github.com/mailsift/mailsift/internal/logger"
	"github.com/mailsift/mailsift/internal/tracing"
)

// batchScheduler pulls message content for a planned UID list in
// fixed-size batches, strictly one at a time, pausing between batches
// to stay under provider throttling thresholds. Batches never run
// concurrently and never reorder.
type batchScheduler struct {
	batchSize int
	delay     time.Duration
	maxPerRun int
	log       logger.Logger
}

func newBatchScheduler(params SyncParameters, maxPerRun int, log logger.Logger) *batchScheduler {
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	return &batchScheduler{
		batchSize: batchSize,
		delay:     time.Duration(params.DelayMs) * time.Millisecond,
		maxPerRun: maxPerRun,
		log:       log,
	}
}

// Plan truncates the UID list to the per-run cap. The cap applies to
// the whole list before batching, so a capped run processes the oldest
// messages and leaves the newest for the next run.
func (s *batchScheduler) Plan(uids []uint32) []uint32 {
	if s.maxPerRun > 0 && len(uids) > s.maxPerRun {
		return uids[:s.maxPerRun]
	}
	return uids
}

// Run fetches the planned UIDs batch by batch and hands each fetched
// batch to handleBatch in order. A transient fetch failure is retried
// once against the same batch; quota rejections, connectivity failures
// and handler errors abort the run immediately. Messages already handed
// to handleBatch stay handled regardless of how the run ends.
func (s *batchScheduler) Run(ctx context.Context, session interfaces.IMAPSession, folder string, uids []uint32, headersOnly bool, handleBatch func(messages []*interfaces.FetchedMessage) error) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "batchScheduler.Run")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("planned", len(uids))
	span.SetTag("batchSize", s.batchSize)

	for start := 0; start < len(uids); start += s.batchSize {
		// Cancellation is honored at batch boundaries only; a batch in
		// flight always finishes.
		if err := ctx.Err(); err != nil {
			tracing.TraceErr(span, err)
			return err
		}

		end := start + s.batchSize
		if end > len(uids) {
			end = len(uids)
		}
		batch := uids[start:end]

		messages, err := s.fetchBatch(ctx, session, folder, batch, headersOnly)
		if err != nil {
			tracing.TraceErr(span, err)
			return err
		}
		if err := handleBatch(messages); err != nil {
			tracing.TraceErr(span, err)
			return err
		}

		if end < len(uids) {
			if err := s.pause(ctx); err != nil {
				tracing.TraceErr(span, err)
				return err
			}
		}
	}
	return nil
}

// fetchBatch issues one fetch for the batch, retrying exactly once on a
// transient failure. Everything else is passed through untouched so the
// orchestrator can map it to the right terminal state.
func (s *batchScheduler) fetchBatch(ctx context.Context, session interfaces.IMAPSession, folder string, batch []uint32, headersOnly bool) ([]*interfaces.FetchedMessage, error) {
	messages, err := session.Fetch(ctx, folder, batch, headersOnly)
	if err == nil {
		return messages, nil
	}
	if !er.IsTransientError(err) {
		return nil, err
	}

	s.log.Warnf("transient failure fetching batch of %d, retrying once: %v", len(batch), err)
	messages, err = session.Fetch(ctx, folder, batch, headersOnly)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// pause waits out the inter-batch delay. The delay is unconditional
// between batches, but cancellation cuts it short.
func (s *batchScheduler) pause(ctx context.Context) error {
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
