package interfaces

import (
	"context"
	"time"
)

// IMAPClient is the mailbox transport the sync pipeline runs against.
// One Connect per sync run; the returned session carries the live
// connection for the run's duration.
type IMAPClient interface {
	Connect(ctx context.Context) (IMAPSession, error)
	TestConnection(ctx context.Context, creds *IMAPCredentials) (*IMAPCheck, error)
}

type IMAPSession interface {
	// SearchSince returns the UIDs of messages received on or after the
	// given time, ascending. Identifier-only; no headers, no bodies.
	SearchSince(ctx context.Context, folder string, since time.Time) ([]uint32, error)
	// Fetch retrieves exactly the given UIDs in one server round trip.
	// With headersOnly set only the envelope and structure are pulled.
	Fetch(ctx context.Context, folder string, uids []uint32, headersOnly bool) ([]*FetchedMessage, error)
	Close() error
}

type IMAPCredentials struct {
	Server   string
	Port     int
	Username string
	Password string
}

// IMAPCheck is the result of a connection probe.
type IMAPCheck struct {
	Folders       []string
	InboxMessages uint32
}

// FetchedMessage is one message pulled off the wire, parsed far enough
// for classification and storage. Raw holds the original RFC822 bytes
// for archival; nil in headers-only mode.
type FetchedMessage struct {
	UID           uint32
	Folder        string
	MessageID     string
	Subject       string
	FromAddress   string
	FromName      string
	ToAddresses   []string
	SentAt        *time.Time
	ReceivedAt    *time.Time
	BodyText      string
	BodyHTML      string
	HasAttachment bool
	Headers       map[string]string
	Raw           []byte
}
