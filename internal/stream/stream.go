// Package stream holds the plumbing shared by provider variants: running a
// call in its own goroutine with a guaranteed terminal event, tracking the
// conversation a call creates, and detaching cleanup work.
package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/spetersoncode/answer"
)

// Emit delivers an intermediate event to the caller. It returns false when
// ctx is done and the event was dropped; the call should then stop.
type Emit func(answer.Event) bool

// Start runs fn in a new goroutine and returns the Call observing it.
//
// Events passed to emit are delivered in order. When fn returns, exactly one
// EventDone carrying fn's error is delivered and the channel is closed. If
// opts.AutoCleanup is set, cleanup is scheduled after EventDone is delivered.
func Start(ctx context.Context, opts *answer.Options, cleanup func(), fn func(ctx context.Context, emit Emit) error) *answer.Call {
	ch := make(chan answer.Event)
	call := answer.NewCall(ch, cleanup)

	emit := func(ev answer.Event) bool {
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(ch)
		err := fn(ctx, emit)
		ch <- answer.DoneEvent(err)
		if opts != nil && opts.AutoCleanup {
			call.Cleanup()
		}
	}()

	return call
}

// Conversation is the handle for the upstream conversation a call creates.
// It is written by the call goroutine and read by cleanup.
type Conversation struct {
	mu sync.Mutex
	id string
}

// Begin returns the conversation id, creating a fresh one on first use.
func (c *Conversation) Begin() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.id == "" {
		c.id = answer.NewID()
	}
	return c.id
}

// Set records an id assigned by the upstream. Empty ids are ignored.
func (c *Conversation) Set(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
}

// ID returns the conversation id, or "" if none was established.
func (c *Conversation) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Detach runs fn in the background on a context that survives cancellation
// of parent but is bounded by timeout. A failure is logged as a
// CleanupError and never returned. The returned channel is closed when fn
// finishes.
func Detach(parent context.Context, logger *slog.Logger, timeout time.Duration, conversationID string, fn func(ctx context.Context) error) <-chan struct{} {
	done := make(chan struct{})
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), timeout)

	detached.Add(1)
	go func() {
		defer detached.Done()
		defer close(done)
		defer cancel()

		if err := fn(ctx); err != nil {
			logger.Warn("conversation cleanup failed",
				"conversation_id", conversationID,
				"error", &answer.CleanupError{ConversationID: conversationID, Cause: err},
			)
			return
		}
		logger.Debug("conversation cleaned up", "conversation_id", conversationID)
	}()

	return done
}

// detached tracks work started by Detach that has not finished yet.
var detached sync.WaitGroup

// WaitDetached blocks until all detached work has finished or ctx is done.
// Short-lived processes call it before exiting so cleanup is not lost.
func WaitDetached(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		detached.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
