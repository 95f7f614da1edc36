package provider

import (
	"fmt"
	"net/http"

	"github.com/apresai/podcraft/internal/retry"
)

// StatusError is a non-2xx HTTP response from a provider API.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// Retryable reports whether a request that failed with status code may
// succeed when repeated: rate limiting and server errors.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// ClassifyStatus wraps err so retry stops on client errors other than 429.
func ClassifyStatus(err error, status int) error {
	if err == nil || status == 0 || Retryable(status) {
		return err
	}
	if status >= 400 {
		return retry.Permanent(err)
	}
	return err
}
