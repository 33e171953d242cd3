// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/pdiddy/travel-recommender/internal/metrics"
)

const (
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second
)

// breakerBackend fails fast once the wrapped backend has failed failures
// times in a row, until cooldown has passed.
type breakerBackend struct {
	next Backend
	cb   *gobreaker.CircuitBreaker[[]byte]
}

// WithBreaker wraps next in a circuit breaker. Zero values select 5
// consecutive failures and a 30 second cooldown. Cancelled calls do not count
// as failures.
func WithBreaker(next Backend, failures uint32, cooldown time.Duration, logger zerolog.Logger) Backend {
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}
	name := next.Name()
	metrics.BreakerState.WithLabelValues(name).Set(0)

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn().Str("backend", name).Stringer("from", from).Stringer("to", to).Msg("circuit breaker state changed")
		},
	}
	return &breakerBackend{next: next, cb: gobreaker.NewCircuitBreaker[[]byte](settings)}
}

func (b *breakerBackend) Name() string { return b.next.Name() }

func (b *breakerBackend) Invoke(ctx context.Context, p Prompt) ([]byte, error) {
	out, err := b.cb.Execute(func() ([]byte, error) {
		return b.next.Invoke(ctx, p)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w", b.next.Name(), ErrBackendUnavailable)
	}
	return out, err
}
