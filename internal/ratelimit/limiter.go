// Package ratelimit implements fixed-window request counting per client key.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

var ErrBackendUnavailable = errors.New("rate limit backend unavailable")

// Limiter counts a hit for key and reports whether the caller is over budget.
// Implementations must make the increment atomic with respect to concurrent
// hits on the same key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type Decision struct {
	Allowed   bool
	Count     int
	Remaining int
	ResetAt   time.Time
}

type Config struct {
	Window time.Duration
	Max    int
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.Max <= 0 {
		c.Max = 100
	}
	return c
}

func decide(count int, max int, resetAt time.Time) Decision {
	remaining := max - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= max,
		Count:     count,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
