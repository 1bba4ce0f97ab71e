package errors

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// orchestration errors
	ErrSyncInProgress       = errors.New("sync already in progress for this mailbox")
	ErrSessionNotFound      = errors.New("sync session not found")
	ErrSessionAlreadyClosed = errors.New("sync session already closed")
	ErrMailboxNotConfigured = errors.New("mailbox not configured")
	ErrSyncCancelled        = errors.New("sync cancelled")

	// transport errors
	ErrQuotaExceeded  = errors.New("provider quota exceeded")
	ErrConnectivity   = errors.New("connectivity failure")
	ErrTransientFetch = errors.New("transient fetch failure")

	// classification errors
	ErrClassification = errors.New("classification failed")

	// settings errors
	ErrSettingsNotFound = errors.New("settings not found")
)

// IsQuotaError reports whether err is, or wraps, a provider quota rejection.
func IsQuotaError(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// IsConnectivityError reports whether err is, or wraps, a fatal
// connection or authentication failure.
func IsConnectivityError(err error) bool {
	return errors.Is(err, ErrConnectivity)
}

// IsTransientError reports whether err is, or wraps, a network hiccup
// worth a single same-batch retry.
func IsTransientError(err error) bool {
	return errors.Is(err, ErrTransientFetch)
}

// IsCancellation reports whether err marks a cooperative cancellation,
// either the explicit sync marker or a cancelled context.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrSyncCancelled) || errors.Is(err, context.Canceled)
}
