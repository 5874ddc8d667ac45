package ratelimit

import (
	"errors"

	"github.com/dustin/go-humanize"

	apperrors "stargazers/pkg/errors"
	"stargazers/pkg/logger"
)

// TokenAdvice is shown when an unauthenticated run hits the limit
const TokenAdvice = "Set GITHUB_PERSONAL_ACCESS_TOKEN to raise the rate limit. " +
	"Generate a token at https://github.com/settings/tokens (no permission scopes needed)."

type Class int

const (
	ClassOther Class = iota
	ClassRateLimited
)

func (c Class) String() string {
	if c == ClassRateLimited {
		return "rate_limited"
	}
	return "other"
}

// StatusCarrier is implemented by API errors that know the quota state of
// the failed response.
type StatusCarrier interface {
	RateLimitStatus() Status
}

type Classification struct {
	Class  Class
	Status Status
}

// Classify decides whether a failed request was rejected for quota reasons.
// Only a remaining count of exactly zero counts as rate limited.
func Classify(err error) Classification {
	var carrier StatusCarrier
	if err != nil && errors.As(err, &carrier) {
		if status := carrier.RateLimitStatus(); status.Exhausted() {
			return Classification{Class: ClassRateLimited, Status: status}
		}
	}
	return Classification{Class: ClassOther}
}

// Notifier receives rate-limit aborts, typically to print a terminal notice
type Notifier func(*apperrors.RateLimitError)

// Classifier turns failed requests into the errors a stage aborts with.
// It never waits or retries.
type Classifier struct {
	authenticated bool
	logger        logger.Logger
	notify        Notifier
}

func NewClassifier(authenticated bool, log logger.Logger, notify Notifier) *Classifier {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Classifier{
		authenticated: authenticated,
		logger:        log.WithField("component", "classifier"),
		notify:        notify,
	}
}

// Handle returns a *errors.RateLimitError for quota failures after reporting
// the reset time. Any other error is returned unchanged.
func (c *Classifier) Handle(err error) error {
	if err == nil {
		return nil
	}
	var existing *apperrors.RateLimitError
	if errors.As(err, &existing) {
		return err
	}

	cl := Classify(err)
	if cl.Class != ClassRateLimited {
		return err
	}

	rl := &apperrors.RateLimitError{
		ResetAt:       cl.Status.Reset,
		Authenticated: c.authenticated,
		Err:           err,
	}

	fields := map[string]interface{}{
		"limit":         cl.Status.Limit,
		"authenticated": c.authenticated,
	}
	if !cl.Status.Reset.IsZero() {
		fields["reset_at"] = cl.Status.Reset.Format("2006-01-02 15:04:05 MST")
		fields["resets"] = humanize.Time(cl.Status.Reset)
	}
	c.logger.WarnWithFields("Rate limit reached", fields)
	if !c.authenticated {
		c.logger.Warn(TokenAdvice)
	}
	if c.notify != nil {
		c.notify(rl)
	}
	return rl
}
