// Package ratelimit throttles backup endpoint calls with a fixed-window
// counter keyed by caller address and owner key.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/dmitrijs2005/everkeep/internal/logging"
)

const (
	DefaultLimit  = 120
	DefaultWindow = 300 * time.Second
)

// Store counts one hit for key and returns the post-increment count within
// the current window.
type Store interface {
	Hit(ctx context.Context, key string, now, windowSeconds int64) (int64, error)
}

type Limiter struct {
	store  Store
	limit  int64
	window time.Duration
	now    func() time.Time
	logger logging.Logger
}

func New(store Store, limit int, window time.Duration, logger logging.Logger) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window < time.Second {
		window = DefaultWindow
	}
	return &Limiter{
		store:  store,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
		logger: logger.With("module", "ratelimit"),
	}
}

// Key derives the opaque counter key for a caller.
func Key(ip, ownerKey string) string {
	sum := sha256.Sum256([]byte(ip + ":" + ownerKey))
	return hex.EncodeToString(sum[:])
}

// Allow records the request and reports whether it is within the limit.
// Denied requests still count. Store failures let the request through.
func (l *Limiter) Allow(ctx context.Context, ip, ownerKey string) bool {
	count, err := l.store.Hit(ctx, Key(ip, ownerKey), l.now().Unix(), int64(l.window/time.Second))
	if err != nil {
		l.logger.Warn(ctx, "rate limit store unavailable, allowing request", "error", err)
		return true
	}
	return count <= l.limit
}
