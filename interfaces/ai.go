package interfaces

import (
	"golang.org/x/net/context"

	"github.com/mailsift/mailsift/dto"
)

// AIService classifies individual messages. ProcessMessage always
// returns a usable result: when every backend fails the result degrades
// to rule-based priority with the raw error recorded, so a single bad
// message never takes down a sync run. The only error returned is
// context cancellation.
type AIService interface {
	ProcessMessage(ctx context.Context, request dto.ClassifyEmailRequest) (*dto.ClassificationResult, error)
	TestLocalConnection(ctx context.Context, host, model string) (*dto.AIProbeResult, error)
	TestAPIConnection(ctx context.Context, provider, apiKey, model string) (*dto.AIProbeResult, error)
	// Confirm answers a pending cloud-dispatch confirmation for the
	// session. Returns false when no request is waiting.
	Confirm(sessionID string, approved bool) bool
	// ReleaseSession drops confirmation state once a run reaches a
	// terminal status.
	ReleaseSession(sessionID string)
}

// PrivacyPolicy decides whether a message may leave the machine and how
// complex it is. Sensitive content is never sent to a cloud backend in
// hybrid mode regardless of complexity.
type PrivacyPolicy interface {
	IsSensitive(subject, body string) bool
	IsComplex(subject, body string) bool
}
