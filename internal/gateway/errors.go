package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds surfaced by Complete. Callers match them with errors.Is.
var (
	ErrRateLimited   = errors.New("upstream rate limited")
	ErrQuotaExceeded = errors.New("upstream quota exceeded")
	ErrUpstream      = errors.New("upstream failure")
)

// StatusError is a non-200 answer from the gateway. It unwraps to the error
// kind matching its status code.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("gateway returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("gateway returned HTTP %d: %s", e.Status, e.Body)
}

func (e *StatusError) Unwrap() error {
	switch e.Status {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusPaymentRequired:
		return ErrQuotaExceeded
	default:
		return ErrUpstream
	}
}

func isRateLimit(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusTooManyRequests
}
