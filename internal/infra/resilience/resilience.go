// Package resilience guards outbound calls to the completion API:
// bounded retries, a shared circuit breaker and a concurrency bulkhead.
package resilience

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// defaultMaxBackoff caps a single wait when Config.MaxBackoff is zero.
const defaultMaxBackoff = 5 * time.Second

// Config holds the retry and bulkhead parameters of one upstream.
type Config struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxConcurrency int

	// OnRetry, when set, is called before each wait with the attempt that
	// just failed (0-based), its error and the wait that follows.
	OnRetry func(attempt int, err error, wait time.Duration)
}

func (c Config) wait(attempt int) time.Duration {
	if c.InitialBackoff <= 0 {
		return 0
	}
	limit := c.MaxBackoff
	if limit <= 0 {
		limit = defaultMaxBackoff
	}

	d := c.InitialBackoff << attempt
	if d <= 0 || d > limit {
		d = limit
	}
	// Up to 50% jitter.
	if half := int64(d / 2); half > 0 {
		d += time.Duration(rand.Int63n(half))
	}
	if d > limit {
		d = limit
	}
	return d
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. RetryWithBackoff returns the
// wrapped cause immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryWithBackoff runs fn up to MaxRetries+1 times, waiting an exponential,
// jittered and capped delay between attempts. Context cancellation ends the
// loop with ctx.Err().
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = fn(); err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt >= cfg.MaxRetries {
			return err
		}

		wait := cfg.wait(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, wait)
		}
		if wait == 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// ============================================================
// Circuit breaker
// ============================================================

// BreakerSettings controls when the breaker trips and how it recovers.
type BreakerSettings struct {
	// MinRequests is the sample size before the ratio is considered.
	MinRequests  uint32
	FailureRatio float64
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests uint32
	// Interval resets the closed-state counters; zero never resets.
	Interval time.Duration
}

// DefaultBreakerSettings trips after 5 calls with at least 60% failures
// and probes again after 10s.
var DefaultBreakerSettings = BreakerSettings{
	MinRequests:      5,
	FailureRatio:     0.6,
	OpenTimeout:      10 * time.Second,
	HalfOpenRequests: 3,
	Interval:         30 * time.Second,
}

// NewCircuitBreaker creates a breaker with DefaultBreakerSettings.
func NewCircuitBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return NewCircuitBreakerWith(name, DefaultBreakerSettings, logger)
}

// NewCircuitBreakerWith creates a breaker that logs every state transition.
func NewCircuitBreakerWith(name string, s BreakerSettings, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.HalfOpenRequests,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fields := []zap.Field{
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			}
			if to == gobreaker.StateOpen {
				logger.Warn("circuit breaker opened", fields...)
				return
			}
			logger.Info("circuit breaker state changed", fields...)
		},
	})
}

// ============================================================
// Bulkhead
// ============================================================

// Bulkhead caps the number of in-flight calls to one upstream.
type Bulkhead struct {
	slots chan struct{}
}

// NewBulkhead creates a bulkhead; a non-positive size means one slot.
func NewBulkhead(size int) *Bulkhead {
	if size <= 0 {
		size = 1
	}
	return &Bulkhead{slots: make(chan struct{}, size)}
}

// Acquire waits for a free slot or for ctx to end.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot taken by Acquire.
func (b *Bulkhead) Release() {
	<-b.slots
}

// InUse is the number of slots currently taken.
func (b *Bulkhead) InUse() int {
	return len(b.slots)
}
