// Package ratelimits stores fixed-window request counters.
package ratelimits

import "context"

type Repository interface {
	// Hit atomically counts one request for key and returns the count within
	// the current window. A window older than windowSeconds (relative to
	// now, Unix seconds) restarts at 1.
	Hit(ctx context.Context, key string, now, windowSeconds int64) (int64, error)
}
