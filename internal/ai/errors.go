package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrQuotaExhausted = errors.New("payment required")
	ErrNotConfigured  = errors.New("remote scorer is not configured")
	ErrBadReply       = errors.New("unparsable reply")
)

// StatusError is a non-2xx reply from the remote service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote scorer returned status %d", e.Code)
	}
	return fmt.Sprintf("remote scorer returned status %d: %s", e.Code, e.Body)
}

// Unwrap exposes the sentinel matching the status code.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusPaymentRequired:
		return ErrQuotaExhausted
	}
	return nil
}

// StatusCode maps err to the HTTP status reported to callers: 429, 402 or 500.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrQuotaExhausted):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// IsServiceWide reports whether err will fail every following request too.
func IsServiceWide(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrQuotaExhausted) ||
		errors.Is(err, ErrNotConfigured)
}

// Reason is a short label for err, used in metrics and notices.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrQuotaExhausted):
		return "quota"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, ErrBadReply):
		return "bad_reply"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}
