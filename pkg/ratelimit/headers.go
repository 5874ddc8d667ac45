package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// Header names GitHub uses to report quota state
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Status is the quota state reported on a response. Known is false when the
// response carried no remaining-count header.
type Status struct {
	Limit     int
	Remaining int
	Reset     time.Time
	Known     bool
}

// ParseHeaders reads the rate-limit headers of a response
func ParseHeaders(h http.Header) Status {
	var s Status

	remaining := h.Get(HeaderRemaining)
	if remaining == "" {
		return s
	}
	n, err := strconv.Atoi(remaining)
	if err != nil {
		return s
	}
	s.Remaining = n
	s.Known = true

	if limit, err := strconv.Atoi(h.Get(HeaderLimit)); err == nil {
		s.Limit = limit
	}
	if reset, err := strconv.ParseInt(h.Get(HeaderReset), 10, 64); err == nil {
		s.Reset = time.Unix(reset, 0)
	}
	return s
}

// Exhausted reports whether the response said no requests remain
func (s Status) Exhausted() bool {
	return s.Known && s.Remaining == 0
}
