// Package ratelimit counts requests per caller key against a fixed budget.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/bomanihosts/backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// Rule allows Limit requests per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

func PerHour(n int) Rule   { return Rule{Limit: n, Window: time.Hour} }
func PerMinute(n int) Rule { return Rule{Limit: n, Window: time.Minute} }

// Disabled reports whether the rule lets everything through.
func (r Rule) Disabled() bool {
	return r.Limit <= 0 || r.Window <= 0
}

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type Limiter interface {
	// Allow consumes one unit for key. An error means the backend could not
	// decide; callers choose whether to fail open.
	Allow(ctx context.Context, key string, rule Rule) (Decision, error)
	Close() error
}

// New builds the limiter selected by cfg.Backend.
func New(cfg config.RateLimitConfig) (Limiter, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryLimiter(), nil
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return NewRedisLimiter(redis.NewClient(opts)), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend %q", cfg.Backend)
	}
}
