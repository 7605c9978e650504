// Package ratelimit counts requests per caller over fixed windows.
//
// The first increment in a window sets its expiry; the count only grows
// until the window expires and a fresh one starts at 1.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Defaults applied when Config leaves fields unset.
const (
	DefaultWindow      = 60 * time.Second
	DefaultMaxRequests = 5

	keyPrefix = "rl:"
)

// ErrUnavailable wraps counter store failures. The gate fails closed on it.
var ErrUnavailable = errors.New("ratelimit: counter store unavailable")

// CounterStore increments a windowed counter atomically. It returns the
// post-increment count and the time left in the window.
type CounterStore interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// Decision is the outcome of Allow.
type Decision struct {
	Allowed    bool
	Count      int64
	Limit      int64
	RetryAfter time.Duration
}

type Config struct {
	Window      time.Duration
	MaxRequests int
}

// Limiter enforces Config over a CounterStore.
type Limiter struct {
	store  CounterStore
	window time.Duration
	max    int64
}

func New(store CounterStore, cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	return &Limiter{
		store:  store,
		window: cfg.Window,
		max:    int64(cfg.MaxRequests),
	}
}

// Allow records one request for key and reports whether it fits the window.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	count, ttl, err := l.store.IncrWindow(ctx, keyPrefix+key, l.window)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return Decision{}, err
		}
		return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	d := Decision{
		Allowed: count <= l.max,
		Count:   count,
		Limit:   l.max,
	}
	if !d.Allowed {
		d.RetryAfter = ttl
		if d.RetryAfter <= 0 {
			d.RetryAfter = l.window
		}
	}
	return d, nil
}

// Window reports the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }
