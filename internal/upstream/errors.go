package upstream

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// HTTPError is a non-2xx upstream response. The body is kept for
// diagnosis and for failover error matching.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d upstream error: %s", e.Status, e.Body)
}

// TimeoutError is a request that exceeded its deadline.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream request timed out after %s", e.Timeout)
}

var leadingStatus = regexp.MustCompile(`^(\d{3})`)

// ErrorCode condenses an upstream failure for failover logs: the HTTP
// status when known, else a leading 3-digit number in the message, else
// the error kind.
func ErrorCode(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return strconv.Itoa(httpErr.Status)
	}

	if match := leadingStatus.FindString(err.Error()); match != "" {
		return match
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return "timeout"
	}

	return fmt.Sprintf("%T", err)
}

// ClassifyCause maps upstream error text onto a small set of human
// readable causes for diagnostic logs.
func ClassifyCause(message string) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "unsupported_country") ||
		strings.Contains(lower, "country, region, or territory") ||
		strings.Contains(lower, "unsupported region"):
		return "unsupported region"
	case strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "incorrect api key") ||
		strings.Contains(lower, "authentication_error") ||
		strings.Contains(lower, "unauthorized"):
		return "invalid API key"
	case strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "rate_limit") ||
		strings.Contains(lower, "too many requests"):
		return "rate limit"
	case strings.Contains(lower, "model_not_found") ||
		strings.Contains(lower, "does not exist") ||
		strings.Contains(lower, "unknown model"):
		return "model not found"
	case strings.Contains(lower, "billing") ||
		strings.Contains(lower, "insufficient_quota") ||
		strings.Contains(lower, "exceeded your current quota"):
		return "billing issue"
	default:
		return "unknown"
	}
}
