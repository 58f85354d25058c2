// Package ratelimit throttles MCP transport requests per client IP with an
// in-process token bucket.
package ratelimit

import "context"

// Limiter reports whether the request identified by key may proceed.
// A non-nil error means the limiter itself broke; Middleware lets such
// requests through.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}
