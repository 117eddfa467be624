package retry

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/spetersoncode/answer"
)

// statusCoder is implemented by SDK errors that carry an HTTP status code.
type statusCoder interface {
	StatusCode() int
}

// IsTransient reports whether err is worth retrying. Categorized errors
// decide for themselves; aborts never retry; otherwise status codes and
// network failures are inspected.
func IsTransient(err error) bool {
	if err == nil || answer.IsAborted(err) {
		return false
	}

	var ce answer.CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == answer.ErrorTransient
	}

	var sc statusCoder
	if errors.As(err, &sc) && answer.CategorizeStatus(sc.StatusCode()) == answer.ErrorTransient {
		return true
	}

	return isTransientNetworkError(err)
}

// retryAfter returns the server-requested delay carried by err, or 0.
func retryAfter(err error) time.Duration {
	var e *answer.Error
	if errors.As(err, &e) {
		return e.RetryDelay
	}
	return 0
}

// effectiveDelay honors the server's Retry-After when it is longer.
func effectiveDelay(configured time.Duration, err error) time.Duration {
	if server := retryAfter(err); server > configured {
		return server
	}
	return configured
}

var transientPatterns = []string{
	"connection reset",
	"connection refused",
	"timeout",
	"temporary failure",
	"service unavailable",
	"too many requests",
	"bad gateway",
	"gateway timeout",
}

func isTransientNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ETIMEDOUT:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
