package retry

import (
	"context"
	"time"
)

// Do runs fn until it succeeds, fails with a non-transient error, or the
// attempts are exhausted. It returns the last error in the latter cases, or
// ctx.Err() when ctx ends during a backoff wait.
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	return DoWithEvents(ctx, cfg, nil, fn)
}

// DoWithEvents is like Do but reports progress on events. Events are sent
// non-blocking and dropped when the channel is full; nil disables them.
func DoWithEvents[T any](ctx context.Context, cfg Config, events chan<- Event, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	limit := cfg.attempts()

	for attempt := 1; attempt <= limit; attempt++ {
		emit(events, Event{Type: EventAttemptStart, Attempt: attempt, MaxAttempts: limit})

		result, err := fn()
		if err == nil {
			emit(events, Event{Type: EventSuccess, Attempt: attempt, MaxAttempts: limit})
			return result, nil
		}

		lastErr = err
		retryable := IsTransient(err)
		emit(events, Event{
			Type:        EventAttemptFailed,
			Attempt:     attempt,
			MaxAttempts: limit,
			Error:       err,
			Retryable:   retryable,
		})
		if !retryable {
			return zero, err
		}
		if attempt == limit {
			break
		}

		delay := effectiveDelay(cfg.Delay(attempt-1), err)
		emit(events, Event{Type: EventRetrying, Attempt: attempt, MaxAttempts: limit, Delay: delay})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	emit(events, Event{Type: EventExhausted, Attempt: limit, MaxAttempts: limit, Error: lastErr})
	return zero, lastErr
}
