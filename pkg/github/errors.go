package github

import (
	"fmt"

	apperrors "stargazers/pkg/errors"
	"stargazers/pkg/ratelimit"
)

// APIError is a non-2xx response from the REST API
type APIError struct {
	StatusCode       int
	Message          string
	DocumentationURL string
	URL              string
	RateLimit        ratelimit.Status
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.StatusCode, e.Message)
}

// RateLimitStatus exposes the quota headers of the failed response
func (e *APIError) RateLimitStatus() ratelimit.Status {
	return e.RateLimit
}

// Is makes API errors match the transport sentinel
func (e *APIError) Is(target error) bool {
	t, ok := target.(*apperrors.Error)
	return ok && t.Type == apperrors.ErrorTypeTransport
}
