package progress

import (
	"sync"

	"github.com/mailsift/mailsift/dto"
	"github.com/mailsift/mailsift/interfaces"
	"github.com/mailsift/mailsift/internal/enum"
	"github.com/mailsift/mailsift/internal/logger"
	"github.com/mailsift/mailsift/internal/utils"
)

// subscriberBuffer is how many undelivered events a subscriber may lag
// before newer events are dropped for it. A closed channel, not a final
// event, is the reliable end-of-stream signal for laggards.
const subscriberBuffer = 64

type sessionStream struct {
	seq    uint64
	nextID int
	subs   map[int]chan dto.ProgressEvent
}

// hub fans sync progress out to per-session subscribers. Emits never
// block. A session accepts exactly one terminal event; everything after
// it is discarded.
type hub struct {
	mu       sync.Mutex
	sessions map[string]*sessionStream
	done     map[string]struct{}
	log      logger.Logger
}

func NewProgressHub(log logger.Logger) interfaces.ProgressEmitter {
	return &hub{
		sessions: make(map[string]*sessionStream),
		done:     make(map[string]struct{}),
		log:      log,
	}
}

func (h *hub) EmitStatus(sessionID string, phase enum.SyncPhase, message string) {
	h.emit(dto.ProgressEvent{
		Type:      enum.ProgressEventStatus,
		SessionID: sessionID,
		Phase:     phase,
		Message:   message,
	})
}

func (h *hub) EmitProgress(sessionID string, current, total, newlySynced, newlyClassified int, message string) {
	h.emit(dto.ProgressEvent{
		Type:            enum.ProgressEventProgress,
		SessionID:       sessionID,
		Current:         current,
		Total:           total,
		NewlySynced:     newlySynced,
		NewlyClassified: newlyClassified,
		Message:         message,
	})
}

func (h *hub) EmitComplete(sessionID string, synced, classified int, message string) {
	h.emit(dto.ProgressEvent{
		Type:       enum.ProgressEventComplete,
		SessionID:  sessionID,
		Synced:     synced,
		Classified: classified,
		Message:    message,
	})
}

func (h *hub) EmitError(sessionID string, message string) {
	h.emit(dto.ProgressEvent{
		Type:      enum.ProgressEventError,
		SessionID: sessionID,
		Message:   message,
	})
}

func (h *hub) emit(event dto.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, finished := h.done[event.SessionID]; finished {
		h.log.Warnf("progress event %s for finished session %s dropped", event.Type, event.SessionID)
		return
	}

	stream := h.ensureLocked(event.SessionID)
	stream.seq++
	event.Seq = stream.seq
	event.Timestamp = utils.Now()

	for _, ch := range stream.subs {
		select {
		case ch <- event:
		default:
			// Subscriber is not keeping up. Skip it rather than stall
			// the sync loop.
		}
	}

	if event.Type.Terminal() {
		for id, ch := range stream.subs {
			delete(stream.subs, id)
			close(ch)
		}
		delete(h.sessions, event.SessionID)
		h.done[event.SessionID] = struct{}{}
	}
}

// Subscribe registers a listener for the session. Subscribing to a
// finished session yields an already closed channel: streams do not
// resume.
func (h *hub) Subscribe(sessionID string) (<-chan dto.ProgressEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, finished := h.done[sessionID]; finished {
		ch := make(chan dto.ProgressEvent)
		close(ch)
		return ch, func() {}
	}

	stream := h.ensureLocked(sessionID)
	id := stream.nextID
	stream.nextID++
	ch := make(chan dto.ProgressEvent, subscriberBuffer)
	stream.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		s, ok := h.sessions[sessionID]
		if !ok {
			// Terminal event already closed every subscriber.
			return
		}
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (h *hub) ensureLocked(sessionID string) *sessionStream {
	stream, ok := h.sessions[sessionID]
	if !ok {
		stream = &sessionStream{subs: make(map[int]chan dto.ProgressEvent)}
		h.sessions[sessionID] = stream
	}
	return stream
}
