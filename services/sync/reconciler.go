package sync

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/mailsift/mailsift/interfaces"
	"github.com/mailsift/mailsift/internal/tracing"
)

// reconciler works out which messages in the sync window are not stored
// yet. It is strictly read-only: one identifier search against the
// server, one membership query against the store, no writes on either
// side.
type reconciler struct {
	emails interfaces.EmailRepository
}

func newReconciler(emails interfaces.EmailRepository) *reconciler {
	return &reconciler{emails: emails}
}

// MissingUIDs returns the UIDs present on the server within the window
// but absent from the store, oldest first. A second run over an
// unchanged window returns an empty slice. Errors from either side are
// fatal to the run; a missed message is recovered by the next run, a
// duplicate is not recoverable at all.
func (r *reconciler) MissingUIDs(ctx context.Context, session interfaces.IMAPSession, mailboxID, folder string, since time.Time) ([]uint32, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "reconciler.MissingUIDs")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, mailboxID)
	span.SetTag("folder", folder)
	span.SetTag("since", since.Format(time.RFC3339))

	uids, err := session.SearchSince(ctx, folder, since)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	span.SetTag("window.size", len(uids))
	if len(uids) == 0 {
		return nil, nil
	}

	existing, err := r.emails.ExistingUIDs(ctx, mailboxID, folder, uids)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	// SearchSince returns ascending UIDs, so filtering in place keeps
	// the oldest-first order the scheduler depends on.
	missing := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		if !existing[uid] {
			missing = append(missing, uid)
		}
	}
	span.SetTag("missing", len(missing))
	return missing, nil
}
