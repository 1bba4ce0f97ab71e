package imap

import (
	"bytes"
	"context"
	"io"
	"log"
	"sort"
	"time"

	"github.com/customeros/mailsherpa/mailvalidate"
	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/jhillyerd/enmime"
	"github.com/opentracing/opentracing-go"

	"github.com/mailsift/mailsift/interfaces"
	"github.com/mailsift/mailsift/internal/tracing"
	"github.com/mailsift/mailsift/internal/utils"
)

type imapSession struct {
	client    *client.Client
	mailboxID string
}

// SearchSince lists UIDs received on or after the given time, oldest
// first. Read-only select; nothing about the messages is touched.
func (s *imapSession) SearchSince(ctx context.Context, folder string, since time.Time) ([]uint32, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "imapSession.SearchSince")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("folder", folder)
	span.SetTag("since", since.Format(time.RFC3339))

	if _, err := s.client.Select(folder, true); err != nil {
		tracing.TraceErr(span, err)
		return nil, classifyListError(err)
	}

	criteria := goimap.NewSearchCriteria()
	criteria.Since = since

	s.client.Timeout = 30 * time.Second
	uids, err := s.client.UidSearch(criteria)
	s.client.Timeout = 0
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, classifyListError(err)
	}

	// Oldest first; UIDs ascend with arrival order within a folder
	sort.SliceStable(uids, func(i, j int) bool {
		return uids[i] < uids[j]
	})

	span.SetTag("found", len(uids))
	return uids, nil
}

// Fetch pulls exactly the given UIDs in one round trip. Full mode
// retrieves the complete RFC822 body with BODY.PEEK so read flags stay
// untouched; headers-only mode stops at envelope and structure.
func (s *imapSession) Fetch(ctx context.Context, folder string, uids []uint32, headersOnly bool) ([]*interfaces.FetchedMessage, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "imapSession.Fetch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("folder", folder)
	span.SetTag("count", len(uids))
	span.SetTag("headers_only", headersOnly)

	if len(uids) == 0 {
		return nil, nil
	}

	if _, err := s.client.Select(folder, true); err != nil {
		tracing.TraceErr(span, err)
		return nil, classifyFetchError(err)
	}

	seqSet := new(goimap.SeqSet)
	for _, uid := range uids {
		seqSet.AddNum(uid)
	}

	bodySection := &goimap.BodySectionName{Peek: true}
	items := []goimap.FetchItem{
		goimap.FetchEnvelope,
		goimap.FetchFlags,
		goimap.FetchInternalDate,
		goimap.FetchBodyStructure,
		goimap.FetchUid,
	}
	if !headersOnly {
		items = append(items, bodySection.FetchItem())
	}

	messages := make(chan *goimap.Message, len(uids))
	done := make(chan error, 1)

	s.client.Timeout = 60 * time.Second
	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	fetched := make([]*interfaces.FetchedMessage, 0, len(uids))
	for msg := range messages {
		fetched = append(fetched, s.buildMessage(msg, folder, bodySection, headersOnly))
	}

	s.client.Timeout = 0

	if err := <-done; err != nil {
		tracing.TraceErr(span, err)
		return nil, classifyFetchError(err)
	}

	// The server streams in its own order; callers depend on oldest
	// first
	sort.SliceStable(fetched, func(i, j int) bool {
		return fetched[i].UID < fetched[j].UID
	})

	span.SetTag("fetched", len(fetched))
	return fetched, nil
}

func (s *imapSession) Close() error {
	logoutWithTimeout(s.mailboxID, s.client)
	return nil
}

func (s *imapSession) buildMessage(msg *goimap.Message, folder string, bodySection *goimap.BodySectionName, headersOnly bool) *interfaces.FetchedMessage {
	fetched := &interfaces.FetchedMessage{
		UID:    msg.Uid,
		Folder: folder,
	}

	if !msg.InternalDate.IsZero() {
		receivedAt := msg.InternalDate
		fetched.ReceivedAt = &receivedAt
	}

	applyEnvelope(fetched, msg.Envelope)

	if headersOnly {
		fetched.HasAttachment = structureHasAttachment(msg.BodyStructure)
		return fetched
	}

	raw := readBodySection(msg, bodySection)
	if len(raw) == 0 {
		log.Printf("[%s][%s] Empty body for UID %d", s.mailboxID, folder, msg.Uid)
		fetched.HasAttachment = structureHasAttachment(msg.BodyStructure)
		return fetched
	}
	fetched.Raw = raw

	parseRawMessage(fetched, raw)
	if !fetched.HasAttachment {
		fetched.HasAttachment = structureHasAttachment(msg.BodyStructure)
	}

	return fetched
}

func applyEnvelope(fetched *interfaces.FetchedMessage, envelope *goimap.Envelope) {
	if envelope == nil {
		return
	}

	if !envelope.Date.IsZero() {
		sentAt := envelope.Date
		fetched.SentAt = &sentAt
	}

	fetched.Subject = envelope.Subject
	fetched.MessageID = utils.NormalizeMessageID(envelope.MessageId)

	if len(envelope.From) > 0 {
		sender := envelope.From[0]
		fetched.FromName = sender.PersonalName
		syntaxValidation := mailvalidate.ValidateEmailSyntax(sender.Address())
		if syntaxValidation.IsValid {
			fetched.FromAddress = syntaxValidation.CleanEmail
		} else {
			fetched.FromAddress = sender.Address()
		}
	}

	for _, addr := range envelope.To {
		if addr.MailboxName == "" || addr.HostName == "" {
			continue
		}
		validation := mailvalidate.ValidateEmailSyntax(addr.Address())
		if validation.IsValid {
			fetched.ToAddresses = append(fetched.ToAddresses, validation.CleanEmail)
		}
	}
}

func readBodySection(msg *goimap.Message, section *goimap.BodySectionName) []byte {
	literal := msg.GetBody(section)
	if literal == nil {
		return nil
	}
	data, err := io.ReadAll(literal)
	if err != nil {
		return nil
	}
	return data
}

// parseRawMessage fills body text, HTML, headers and the attachment
// flag from the raw RFC822 bytes.
func parseRawMessage(fetched *interfaces.FetchedMessage, raw []byte) {
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return
	}

	headers := make(map[string]string)
	for _, key := range envelope.GetHeaderKeys() {
		if values := envelope.GetHeaderValues(key); len(values) > 0 {
			headers[key] = values[0]
		}
	}
	fetched.Headers = headers

	fetched.BodyText = envelope.Text
	fetched.BodyHTML = envelope.HTML
	if fetched.BodyText == "" && fetched.BodyHTML != "" {
		fetched.BodyText = utils.HTMLToText(fetched.BodyHTML)
	}

	if len(envelope.Attachments) > 0 || len(envelope.Inlines) > 0 {
		fetched.HasAttachment = true
	}
}

func structureHasAttachment(bs *goimap.BodyStructure) bool {
	if bs == nil {
		return false
	}
	if bs.Disposition == "attachment" {
		return true
	}
	for _, part := range bs.Parts {
		if structureHasAttachment(part) {
			return true
		}
	}
	return false
}
