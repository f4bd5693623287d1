package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/resumerag/pkg/utils/retry"
)

var errUnavailable = goerr.New("backend unavailable")

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    4 * time.Millisecond,
	}
}

func TestDoSucceedsAfterRetry(t *testing.T) {
	calls := 0
	v, err := retry.Do(context.Background(), fastPolicy(3), errUnavailable, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", goerr.Wrap(errUnavailable, "flaky")
		}
		return "ok", nil
	})
	gt.NoError(t, err)
	gt.Equal(t, v, "ok")
	gt.Equal(t, calls, 3)
}

func TestDoExhausted(t *testing.T) {
	calls := 0
	_, err := retry.Do(context.Background(), fastPolicy(4), errUnavailable, func(ctx context.Context) (int, error) {
		calls++
		return 0, goerr.Wrap(errUnavailable, "down")
	})
	gt.True(t, errors.Is(err, errUnavailable))
	gt.Equal(t, calls, 4)
}

func TestDoNonRetryable(t *testing.T) {
	errBad := errors.New("bad input")
	calls := 0
	_, err := retry.Do(context.Background(), fastPolicy(5), errUnavailable, func(ctx context.Context) (int, error) {
		calls++
		return 0, errBad
	})
	gt.True(t, errors.Is(err, errBad))
	gt.Equal(t, calls, 1)
}

func TestDoPermanent(t *testing.T) {
	errAuth := errors.New("permission denied")
	p := fastPolicy(5)
	p.Permanent = func(err error) bool { return errors.Is(err, errAuth) }

	calls := 0
	_, err := retry.Do(context.Background(), p, errUnavailable, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.Join(errUnavailable, errAuth)
	})
	gt.True(t, errors.Is(err, errUnavailable))
	gt.Equal(t, calls, 1)
}

func TestDoAttemptTimeoutIsUnavailable(t *testing.T) {
	p := fastPolicy(2)
	p.Timeout = 10 * time.Millisecond

	calls := 0
	_, err := retry.Do(context.Background(), p, errUnavailable, func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})
	gt.True(t, errors.Is(err, errUnavailable))
	gt.True(t, errors.Is(err, context.DeadlineExceeded))
	gt.Equal(t, calls, 2)
}

func TestDoCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := fastPolicy(10)
	p.BaseDelay = time.Hour
	p.MaxDelay = time.Hour

	calls := 0
	_, err := retry.Do(ctx, p, errUnavailable, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, errUnavailable
	})
	gt.True(t, errors.Is(err, context.Canceled))
	gt.False(t, errors.Is(err, errUnavailable))
	gt.Equal(t, calls, 1)
}

func TestDoCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := fastPolicy(10)
	p.BaseDelay = time.Hour
	p.MaxDelay = time.Hour

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := retry.Do(ctx, p, errUnavailable, func(ctx context.Context) (int, error) {
		return 0, errUnavailable
	})
	gt.True(t, errors.Is(err, context.Canceled))
	gt.True(t, time.Since(start) < time.Minute)
}

func TestBackoff(t *testing.T) {
	p := retry.Policy{BaseDelay: 200 * time.Millisecond, MaxDelay: time.Second}
	bo := p.Backoff()
	gt.V(t, bo).NotNil()
	gt.Equal(t, bo.Initial, 200*time.Millisecond)
	gt.Equal(t, bo.Max, time.Second)

	for range 20 {
		d := bo.Pause()
		gt.True(t, d > 0)
		gt.True(t, d <= time.Second)
	}

	gt.Nil(t, retry.Policy{}.Backoff())
	gt.Equal(t, retry.Policy{BaseDelay: time.Second}.Backoff().Max, time.Second)
}

func TestZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, _ = retry.Do(context.Background(), retry.Policy{}, errUnavailable, func(ctx context.Context) (int, error) {
		calls++
		return 0, errUnavailable
	})
	gt.Equal(t, calls, 1)
}
