package ai

import (
	"context"
	"sync"
)

// confirmationGate parks hybrid-mode cloud dispatch until the caller answers
// via the confirm endpoint. One answer covers the whole session: asking per
// message would flood the caller with prompts for a single run. The pending
// channel is closed rather than sent on so every parked classifier wakes.
type confirmationGate struct {
	mu      sync.Mutex
	pending map[string]chan struct{}
	decided map[string]bool
}

func newConfirmationGate() *confirmationGate {
	return &confirmationGate{
		pending: make(map[string]chan struct{}),
		decided: make(map[string]bool),
	}
}

// Await blocks until the session has a decision or ctx is cancelled. The
// error return is the ctx error on cancellation; callers treat it as
// run-fatal.
func (g *confirmationGate) Await(ctx context.Context, sessionID string) (bool, error) {
	g.mu.Lock()
	if decision, ok := g.decided[sessionID]; ok {
		g.mu.Unlock()
		return decision, nil
	}
	ch, ok := g.pending[sessionID]
	if !ok {
		ch = make(chan struct{})
		g.pending[sessionID] = ch
	}
	g.mu.Unlock()

	select {
	case <-ch:
		g.mu.Lock()
		decision := g.decided[sessionID]
		g.mu.Unlock()
		return decision, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Decided returns the recorded decision for the session and whether one
// exists yet.
func (g *confirmationGate) Decided(sessionID string) (bool, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	decision, known := g.decided[sessionID]
	return decision, known
}

// Answer records the decision and wakes any parked classifiers. It returns
// false when nothing for the session ever asked for confirmation.
func (g *confirmationGate) Answer(sessionID string, approved bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	ch, parked := g.pending[sessionID]
	_, known := g.decided[sessionID]
	if !parked && !known {
		return false
	}

	g.decided[sessionID] = approved
	if parked {
		delete(g.pending, sessionID)
		close(ch)
	}
	return true
}

// Release drops all state for a finished session.
func (g *confirmationGate) Release(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, sessionID)
	delete(g.decided, sessionID)
}
