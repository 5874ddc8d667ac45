// Package github is the REST collaborator of the crawler: it lists a
// repository's stargazers page by page and fetches individual user profiles.
//
// Non-2xx responses come back as *APIError, which carries the response's
// X-RateLimit-* state so the ratelimit package can classify it.
package github
