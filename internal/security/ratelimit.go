package security

import "context"

// RateLimiter is the extension point for request throttling. Callers that
// need rate limiting impose it before invoking the orchestrator; the core
// pipeline itself ships only the pass-through implementation.
type RateLimiter interface {
	Allow(ctx context.Context, userID string) bool
}

type allowAll struct{}

// NewAllowAllLimiter returns a limiter that admits every request.
func NewAllowAllLimiter() RateLimiter {
	return allowAll{}
}

func (allowAll) Allow(context.Context, string) bool {
	return true
}
