package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter enforces a minimum spacing between outbound generation calls. It
// is safe for concurrent use; waiting callers are admitted one at a time.
type Limiter struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// NewLimiter allows one call per interval. A non-positive interval disables limiting.
func NewLimiter(interval time.Duration) *Limiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Limiter{limiter: rate.NewLimiter(limit, 1), interval: interval}
}

// Acquire blocks until a call is permitted or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Interval returns the configured spacing.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// RateLimited acquires from a shared Limiter before every call to the wrapped generator.
type RateLimited struct {
	next    Generator
	limiter *Limiter
	logger  *zap.Logger
}

// NewRateLimited wraps next. Several generators may share one limiter.
func NewRateLimited(next Generator, limiter *Limiter, logger *zap.Logger) *RateLimited {
	return &RateLimited{next: next, limiter: limiter, logger: logger}
}

// Generate waits for the limiter, then delegates. A wait cut short by ctx is
// reported as a generation failure.
func (r *RateLimited) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	start := time.Now()
	if err := r.limiter.Acquire(ctx); err != nil {
		return "", failed(err)
	}
	if waited := time.Since(start); r.logger != nil && waited > 10*time.Millisecond {
		r.logger.Debug("rate limited generation call", zap.Duration("waited", waited))
	}
	text, err := r.next.Generate(ctx, prompt, opts)
	if err != nil && r.logger != nil {
		r.logger.Warn("generation call failed", zap.Error(err))
	}
	return text, err
}
