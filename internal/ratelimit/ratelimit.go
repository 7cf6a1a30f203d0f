// Package ratelimit decides whether a keyed request fits its quota. Keys
// are user ids for message writes and client IPs for auth attempts.
package ratelimit

import "context"

// Limiter reports whether one more request for key is within quota.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}
