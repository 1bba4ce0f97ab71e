package interfaces

import (
	"github.com/mailsift/mailsift/dto"
	"github.com/mailsift/mailsift/internal/enum"
)

// ProgressEmitter fans sync progress out to stream subscribers. Emits
// never block: slow subscribers are dropped. Exactly one terminal event
// (complete or error) is delivered per session, after which the
// session's subscriber channels are closed.
type ProgressEmitter interface {
	EmitStatus(sessionID string, phase enum.SyncPhase, message string)
	EmitProgress(sessionID string, current, total, newlySynced, newlyClassified int, message string)
	EmitComplete(sessionID string, synced, classified int, message string)
	EmitError(sessionID string, message string)
	// Subscribe registers a listener for the session's events. The
	// returned cancel func detaches the subscriber; the channel is
	// closed either way once the session finishes.
	Subscribe(sessionID string) (<-chan dto.ProgressEvent, func())
}
