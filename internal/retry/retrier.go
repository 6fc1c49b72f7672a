// Package retry wraps single remote calls in a bounded, classified retry
// policy. Every remote mutation and paged read in this tool goes through a
// Retrier; there is deliberately no unbounded retry path anywhere.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Policy configures attempt and backoff behavior.
type Policy struct {
	// MaxAttempts is the total number of tries, first call included.
	MaxAttempts int
	// BaseDelay is the sleep after the first failed attempt.
	BaseDelay time.Duration
	// Multiplier scales the delay after each further failure.
	Multiplier float64
	// MaxDelay caps a single backoff sleep. Zero means no cap.
	MaxDelay time.Duration
}

// DefaultPolicy is the bulk-mutation policy: 5 attempts, delays 1s 2s 4s 8s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		Multiplier:  2,
		MaxDelay:    2 * time.Minute,
	}
}

// SlowPolicy backs off much harder between attempts. Used by long-running
// jobs that would rather wait out a rate limit than burn their attempt
// budget: delays 1s 8s 64s (capped).
func SlowPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		Multiplier:  8,
		MaxDelay:    5 * time.Minute,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultPolicy().MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultPolicy().BaseDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = DefaultPolicy().Multiplier
	}
	return p
}

// ExhaustedError reports that every attempt failed. It wraps the last
// observed cause.
type ExhaustedError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: retries exhausted after %d attempts: %v", e.Op, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// IsExhausted reports whether err is a retries-exhausted failure.
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}

// Classifier decides whether an error is worth another attempt. Different
// call sites want different boundaries, so the predicate is injected rather
// than hardcoded.
type Classifier func(error) bool

// Retrier applies a Policy around remote operations.
type Retrier struct {
	policy    Policy
	retryable Classifier
	sleep     func(context.Context, time.Duration) error
	log       *zap.Logger
	breaker   *gobreaker.CircuitBreaker
}

// Option customizes a Retrier.
type Option func(*Retrier)

// WithClassifier replaces the retryable predicate.
func WithClassifier(c Classifier) Option {
	return func(r *Retrier) { r.retryable = c }
}

// WithSleeper replaces the backoff sleep, letting tests record the schedule
// instead of waiting it out.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(r *Retrier) { r.sleep = sleep }
}

// WithBreaker routes every attempt through a circuit breaker so a remote
// outage fails the batch fast instead of spending full backoff schedules on
// every remaining item.
func WithBreaker(name string) Option {
	return func(r *Retrier) {
		r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: name,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 10
			},
		})
	}
}

// New builds a Retrier. The default classifier retries everything, which is
// only correct for callers that pre-filter fatal errors; real call sites
// install a classifier.
func New(policy Policy, log *zap.Logger, opts ...Option) *Retrier {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Retrier{
		policy:    policy.normalized(),
		retryable: func(err error) bool { return err != nil },
		sleep:     sleepCtx,
		log:       log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs fn up to MaxAttempts times, sleeping the backoff schedule between
// failed attempts. A non-retryable error is returned immediately; exhaustion
// returns an *ExhaustedError wrapping the last cause.
func (r *Retrier) Do(ctx context.Context, op string, fn func() error) error {
	delay := r.policy.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := r.call(fn)
		if err == nil {
			return nil
		}
		// An open breaker rejects without invoking fn; backing off against
		// it would spend the full schedule on a call that never runs.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return err
		}
		if !r.retryable(err) {
			return err
		}
		lastErr = err

		if attempt == r.policy.MaxAttempts {
			break
		}

		r.log.Warn("remote call failed, backing off",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.policy.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err))

		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
		delay = time.Duration(float64(delay) * r.policy.Multiplier)
		if r.policy.MaxDelay > 0 && delay > r.policy.MaxDelay {
			delay = r.policy.MaxDelay
		}
	}

	return &ExhaustedError{Op: op, Attempts: r.policy.MaxAttempts, Last: lastErr}
}

func (r *Retrier) call(fn func() error) error {
	if r.breaker == nil {
		return fn()
	}
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// Do runs a value-returning operation through the retrier.
func Do[T any](ctx context.Context, r *Retrier, op string, fn func() (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, op, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
