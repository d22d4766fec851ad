package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-printshop/internal/resilience"
)

var errDown = errors.New("db down")

func fail(context.Context) error { return errDown }
func ok(context.Context) error   { return nil }

func TestBreakerTransitions(t *testing.T) {
	resilience.MustRegisterMetrics("test", prometheus.NewRegistry())
	now := time.Now()
	b := resilience.NewBreaker(resilience.BreakerConfig{
		Target:       "transitions",
		MinRequests:  2,
		FailureRatio: 0.5,
		OpenFor:      50 * time.Millisecond,
	}, zerolog.Nop()).WithNow(func() time.Time { return now })
	ctx := context.Background()

	require.ErrorIs(t, b.Do(ctx, fail, nil), errDown)
	require.Equal(t, resilience.Closed, b.State())
	require.ErrorIs(t, b.Do(ctx, fail, nil), errDown)
	require.Equal(t, resilience.Open, b.State())
	require.Equal(t, 1.0, testutil.ToFloat64(resilience.BreakerState.WithLabelValues("transitions")))

	calls := 0
	err := b.Do(ctx, func(context.Context) error { calls++; return nil }, nil)
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Zero(t, calls)

	now = now.Add(60 * time.Millisecond)
	require.ErrorIs(t, b.Do(ctx, fail, nil), errDown)
	require.Equal(t, resilience.Open, b.State())

	now = now.Add(60 * time.Millisecond)
	require.NoError(t, b.Do(ctx, ok, nil))
	require.Equal(t, resilience.Closed, b.State())
	require.Equal(t, 0.0, testutil.ToFloat64(resilience.BreakerState.WithLabelValues("transitions")))
	require.Equal(t, 2.0, testutil.ToFloat64(resilience.BreakerTransitions.WithLabelValues("transitions", "open", "half_open")))
	require.Equal(t, 1.0, testutil.ToFloat64(resilience.BreakerTransitions.WithLabelValues("transitions", "half_open", "closed")))
}

func TestBreakerIgnoredErrorsCountAsHealthy(t *testing.T) {
	b := resilience.NewBreaker(resilience.BreakerConfig{MinRequests: 1}, zerolog.Nop())
	ignore := func(err error) bool { return errors.Is(err, errDown) }

	for i := 0; i < 5; i++ {
		require.ErrorIs(t, b.Do(context.Background(), fail, ignore), errDown)
	}
	require.Equal(t, resilience.Closed, b.State())
}

func TestBreakerHalfOpenAdmitsSingleProbe(t *testing.T) {
	now := time.Now()
	b := resilience.NewBreaker(resilience.BreakerConfig{MinRequests: 1, OpenFor: time.Second}, zerolog.Nop()).
		WithNow(func() time.Time { return now })
	ctx := context.Background()
	require.Error(t, b.Do(ctx, fail, nil))
	require.Equal(t, resilience.Open, b.State())

	now = now.Add(2 * time.Second)
	probeErr := b.Do(ctx, func(ctx context.Context) error {
		require.Equal(t, resilience.HalfOpen, b.State())
		require.ErrorIs(t, b.Do(ctx, ok, nil), resilience.ErrOpenCircuit)
		return nil
	}, nil)
	require.NoError(t, probeErr)
	require.Equal(t, resilience.Closed, b.State())
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	b := resilience.NewBreaker(resilience.BreakerConfig{MinRequests: 1}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.Do(ctx, func(ctx context.Context) error { return ctx.Err() }, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, resilience.Closed, b.State())
}
