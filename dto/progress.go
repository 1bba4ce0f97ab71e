package dto

import (
	"time"

	"github.com/mailsift/mailsift/internal/enum"
)

// ProgressEvent is one frame on a sync progress stream. Seq increases
// monotonically within a session; exactly one event per session has a
// terminal Type (complete or error).
type ProgressEvent struct {
	Type      enum.ProgressEventType `json:"type"`
	SessionID string                 `json:"sessionId"`
	Seq       uint64                 `json:"seq"`
	Timestamp time.Time              `json:"timestamp"`

	// status
	Phase enum.SyncPhase `json:"phase,omitempty"`

	// progress
	Current         int `json:"current,omitempty"`
	Total           int `json:"total,omitempty"`
	NewlySynced     int `json:"newlySynced,omitempty"`
	NewlyClassified int `json:"newlyClassified,omitempty"`

	// complete
	Synced     int `json:"synced,omitempty"`
	Classified int `json:"classified,omitempty"`

	Message string `json:"message,omitempty"`
}
