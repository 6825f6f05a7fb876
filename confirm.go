package main

import (
	"context"
	"sync"
	"time"
)

// ConfirmResult is the terminal state of a confirmation workflow. Expiry is
// reported distinctly from an explicit decline.
type ConfirmResult int

const (
	ConfirmApproved ConfirmResult = iota
	ConfirmDeclined
	ConfirmExpired
)

const (
	emojiConfirm = "✅" // white heavy check mark
	emojiDecline = "❌" // cross mark

	confirmTimeout = 30 * time.Second
)

// signalWaiter is a generic await-external-signal-with-timeout primitive.
// One goroutine parks in Await; the gateway event handler calls Deliver when
// the expected user reacts. The relay pipeline never touches it.
type signalWaiter struct {
	mu      sync.Mutex
	pending map[string]*pendingSignal
}

type pendingSignal struct {
	userID string
	ch     chan string
}

func newSignalWaiter() *signalWaiter {
	return &signalWaiter{pending: make(map[string]*pendingSignal)}
}

// Await blocks until a signal arrives for the key from the expected user, or
// until the timeout elapses. The second return value is false on timeout.
func (w *signalWaiter) Await(ctx context.Context, key, userID string, timeout time.Duration) (string, bool) {
	p := &pendingSignal{userID: userID, ch: make(chan string, 1)}

	w.mu.Lock()
	w.pending[key] = p
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.pending, key)
		w.mu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case sig := <-p.ch:
		return sig, true
	case <-timer.C:
		return "", false
	case <-ctx.Done():
		return "", false
	}
}

// Deliver hands a signal to the goroutine waiting on key. Signals from other
// users, or for keys nobody waits on, are dropped.
func (w *signalWaiter) Deliver(key, userID, signal string) bool {
	w.mu.Lock()
	p, ok := w.pending[key]
	w.mu.Unlock()

	if !ok || p.userID != userID {
		return false
	}
	select {
	case p.ch <- signal:
		return true
	default:
		return false
	}
}

// awaitConfirmation runs the two-state confirmation workflow for a prompt
// message: awaiting_confirmation -> approved | declined | expired.
func awaitConfirmation(ctx context.Context, w *signalWaiter, messageID, userID string) ConfirmResult {
	sig, ok := w.Await(ctx, messageID, userID, confirmTimeout)
	if !ok {
		return ConfirmExpired
	}
	if sig == emojiConfirm {
		return ConfirmApproved
	}
	return ConfirmDeclined
}
