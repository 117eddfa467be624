package client

import "github.com/spetersoncode/answer/internal/retry"

// RetryConfig controls how many times a call that fails before its first
// answer is reissued, and the backoff between attempts.
type RetryConfig = retry.Config

// RetryEvent is the retry progress carried by an EventRetry.
type RetryEvent = retry.Event

// RetryEventRetrying marks a RetryEvent emitted just before the backoff
// delay that precedes the next attempt.
const RetryEventRetrying = retry.EventRetrying

// DisabledRetryConfig returns a configuration that makes exactly one attempt.
// It is the default when Config.RetryConfig is nil.
func DisabledRetryConfig() RetryConfig {
	return retry.Disabled()
}
