package ratelimit

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "stargazers/pkg/errors"
	"stargazers/pkg/logger"
)

type statusError struct {
	status Status
}

func (e *statusError) Error() string           { return "403 Forbidden" }
func (e *statusError) RateLimitStatus() Status { return e.status }

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    Status
	}{
		{
			name: "exhausted",
			headers: map[string]string{
				HeaderLimit:     "60",
				HeaderRemaining: "0",
				HeaderReset:     "1700000000",
			},
			want: Status{Limit: 60, Remaining: 0, Reset: time.Unix(1700000000, 0), Known: true},
		},
		{
			name:    "remaining without reset",
			headers: map[string]string{HeaderRemaining: "42"},
			want:    Status{Remaining: 42, Known: true},
		},
		{
			name:    "missing",
			headers: map[string]string{},
			want:    Status{},
		},
		{
			name:    "garbage",
			headers: map[string]string{HeaderRemaining: "none"},
			want:    Status{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			got := ParseHeaders(h)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify(t *testing.T) {
	exhausted := &statusError{status: Status{Remaining: 0, Known: true, Reset: time.Unix(1700000000, 0)}}
	plenty := &statusError{status: Status{Remaining: 10, Known: true}}
	unknown := &statusError{status: Status{}}

	assert.Equal(t, ClassRateLimited, Classify(exhausted).Class)
	assert.Equal(t, ClassRateLimited, Classify(fmt.Errorf("page 3: %w", exhausted)).Class)
	assert.Equal(t, ClassOther, Classify(plenty).Class)
	assert.Equal(t, ClassOther, Classify(unknown).Class)
	assert.Equal(t, ClassOther, Classify(errors.New("connection reset")).Class)
	assert.Equal(t, ClassOther, Classify(nil).Class)
	assert.Equal(t, "rate_limited", ClassRateLimited.String())
}

func TestClassifierHandleRateLimited(t *testing.T) {
	tl := logger.NewTestLogger()
	var notified *apperrors.RateLimitError
	c := NewClassifier(false, tl, func(e *apperrors.RateLimitError) { notified = e })

	reset := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	cause := &statusError{status: Status{Limit: 60, Remaining: 0, Known: true, Reset: reset}}

	err := c.Handle(cause)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrRateLimit))
	assert.True(t, errors.Is(err, cause))

	var rl *apperrors.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, reset, rl.ResetAt)
	assert.False(t, rl.Authenticated)

	require.NotNil(t, notified)
	assert.True(t, tl.HasMessage("Rate limit reached"))
	assert.True(t, tl.HasMessage(TokenAdvice))

	// handling an already classified error is a no-op
	assert.Same(t, err, c.Handle(err))
}

func TestClassifierHandleAuthenticatedSkipsAdvice(t *testing.T) {
	tl := logger.NewTestLogger()
	c := NewClassifier(true, tl, nil)

	err := c.Handle(&statusError{status: Status{Remaining: 0, Known: true}})
	require.Error(t, err)
	assert.True(t, tl.HasMessage("Rate limit reached"))
	assert.False(t, tl.HasMessage(TokenAdvice))
}

func TestClassifierHandleOtherUnchanged(t *testing.T) {
	c := NewClassifier(false, nil, nil)
	cause := apperrors.New(apperrors.ErrorTypeTransport, "connection refused")

	assert.Same(t, cause, c.Handle(cause))
	assert.NoError(t, c.Handle(nil))
}
