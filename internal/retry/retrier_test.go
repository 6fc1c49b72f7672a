package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingSleeper captures backoff delays instead of sleeping.
func recordingSleeper(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	var delays []time.Duration
	r := New(DefaultPolicy(), zap.NewNop(), WithSleeper(recordingSleeper(&delays)))

	calls := 0
	err := r.Do(context.Background(), "op", func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestDo_ExhaustsAfterMaxAttempts(t *testing.T) {
	var delays []time.Duration
	r := New(DefaultPolicy(), zap.NewNop(), WithSleeper(recordingSleeper(&delays)))

	boom := errors.New("service unavailable")
	calls := 0
	err := r.Do(context.Background(), "op", func() error {
		calls++
		return boom
	})

	assert.Equal(t, 5, calls)
	require.Error(t, err)
	assert.True(t, IsExhausted(err))
	assert.ErrorIs(t, err, boom)

	var ee *ExhaustedError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "op", ee.Op)
	assert.Equal(t, 5, ee.Attempts)

	// Doubling schedule from the 1s base: one sleep per failed attempt
	// except the last.
	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
	}, delays)
}

func TestDo_SlowPolicyMultiplier(t *testing.T) {
	var delays []time.Duration
	p := SlowPolicy()
	p.MaxAttempts = 4
	r := New(p, zap.NewNop(), WithSleeper(recordingSleeper(&delays)))

	_ = r.Do(context.Background(), "op", func() error { return errors.New("x") })

	assert.Equal(t, []time.Duration{
		1 * time.Second,
		8 * time.Second,
		64 * time.Second,
	}, delays)
}

func TestDo_MaxDelayCapsSchedule(t *testing.T) {
	var delays []time.Duration
	p := Policy{MaxAttempts: 5, BaseDelay: time.Second, Multiplier: 8, MaxDelay: 10 * time.Second}
	r := New(p, zap.NewNop(), WithSleeper(recordingSleeper(&delays)))

	_ = r.Do(context.Background(), "op", func() error { return errors.New("x") })

	assert.Equal(t, []time.Duration{
		1 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}, delays)
}

func TestDo_FatalErrorReturnsImmediately(t *testing.T) {
	var delays []time.Duration
	fatal := errors.New("invalid parameter")
	r := New(DefaultPolicy(), zap.NewNop(),
		WithSleeper(recordingSleeper(&delays)),
		WithClassifier(func(err error) bool { return !errors.Is(err, fatal) }))

	calls := 0
	err := r.Do(context.Background(), "op", func() error {
		calls++
		return fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.False(t, IsExhausted(err))
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestDo_RecoversMidSchedule(t *testing.T) {
	var delays []time.Duration
	r := New(DefaultPolicy(), zap.NewNop(), WithSleeper(recordingSleeper(&delays)))

	calls := 0
	err := r.Do(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, delays)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(DefaultPolicy(), zap.NewNop(), WithSleeper(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	err := r.Do(ctx, "op", func() error { return errors.New("x") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_ZeroPolicyFallsBackToDefaults(t *testing.T) {
	var delays []time.Duration
	r := New(Policy{}, zap.NewNop(), WithSleeper(recordingSleeper(&delays)))

	calls := 0
	_ = r.Do(context.Background(), "op", func() error {
		calls++
		return errors.New("x")
	})

	// MaxAttempts 0 never means "retry forever".
	assert.Equal(t, DefaultPolicy().MaxAttempts, calls)
}

func TestDo_OpenBreakerFailsFast(t *testing.T) {
	var delays []time.Duration
	r := New(DefaultPolicy(), zap.NewNop(),
		WithSleeper(recordingSleeper(&delays)),
		WithBreaker("test"))

	// Two exhausted runs make ten consecutive failures, tripping the breaker.
	boom := errors.New("service unavailable")
	for i := 0; i < 2; i++ {
		err := r.Do(context.Background(), "op", func() error { return boom })
		require.True(t, IsExhausted(err))
	}

	delays = delays[:0]
	calls := 0
	err := r.Do(context.Background(), "op", func() error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.False(t, IsExhausted(err))
	assert.Equal(t, 0, calls)
	assert.Empty(t, delays)
}

func TestDoGeneric_ReturnsValue(t *testing.T) {
	r := New(DefaultPolicy(), zap.NewNop(), WithSleeper(recordingSleeper(new([]time.Duration))))

	calls := 0
	v, err := Do(context.Background(), r, "op", func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
