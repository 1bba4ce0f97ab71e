package dto

import "github.com/mailsift/mailsift/internal/enum"

// Event is the queue message envelope.
type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id         string          `json:"id"`
	EntityId   string          `json:"entityId"`
	EntityType enum.EntityType `json:"entityType"`
	EventType  string          `json:"eventType"`
	Data       interface{}     `json:"data"`
}

type EventMetadata struct {
	UberTraceId string `json:"uber-trace-id"`
	AppSource   string `json:"appSource"`
	Timestamp   string `json:"timestamp"`
}

// EmailClassifiedEvent is published after a classified message is
// stored.
type EmailClassifiedEvent struct {
	EmailID      string `json:"emailId"`
	MailboxID    string `json:"mailboxId"`
	Priority     string `json:"priority"`
	ClassifiedBy string `json:"classifiedBy"`
	HasDeadline  bool   `json:"hasDeadline"`
}

// SyncCompletedEvent is published once per terminal sync session.
type SyncCompletedEvent struct {
	SessionID  string `json:"sessionId"`
	MailboxID  string `json:"mailboxId"`
	Status     string `json:"status"`
	Synced     int    `json:"synced"`
	Classified int    `json:"classified"`
}
