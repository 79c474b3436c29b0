// Package ratelimit caps submissions per tenant per clock hour.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Counter is the store behind the limiter. The redis client implements it.
type Counter interface {
	IncrWithExpire(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed bool
	Count   int64
	Limit   int
}

// Limiter counts submissions in fixed hourly windows.
type Limiter struct {
	counter Counter
	now     func() time.Time
	logger  *zap.Logger
}

// NewLimiter returns a limiter backed by counter. A nil counter disables
// limiting.
func NewLimiter(counter Counter, logger *zap.Logger) *Limiter {
	return &Limiter{counter: counter, now: time.Now, logger: logger}
}

// Key is the counter key for tenantID in the hour containing t.
func Key(tenantID string, t time.Time) string {
	return fmt.Sprintf("ratelimit:submit:%s:%s", tenantID, t.UTC().Format("2006010215"))
}

// Allow counts one submission for tenantID. limit <= 0 means unlimited.
// Store failures are logged and the submission is allowed.
func (l *Limiter) Allow(ctx context.Context, tenantID string, limit int) Decision {
	if l == nil || l.counter == nil || limit <= 0 {
		return Decision{Allowed: true, Limit: limit}
	}

	key := Key(tenantID, l.now())
	n, err := l.counter.IncrWithExpire(ctx, key, time.Hour)
	if err != nil {
		l.logger.Warn("Rate limiter unavailable, allowing submission",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		return Decision{Allowed: true, Limit: limit}
	}

	return Decision{Allowed: n <= int64(limit), Count: n, Limit: limit}
}
