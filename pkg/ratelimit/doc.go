// Package ratelimit reads GitHub quota headers, classifies failed requests
// and paces outgoing calls.
//
// A failed request is RateLimited when its response reported
// X-RateLimit-Remaining: 0. Classifier.Handle converts such failures into a
// fatal *errors.RateLimitError carrying the reset time; the crawl is expected
// to stop and be resumed by the user after the reset.
package ratelimit
