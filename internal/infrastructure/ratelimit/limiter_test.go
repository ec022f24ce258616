package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"arbscan/internal/application/port"
)

// fastConfig keeps backoff delays negligible so tests run quickly.
func fastConfig() Config {
	return Config{
		BaseDelay:    time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Jitter:       -1, // disabled
		MaxRetries:   5,
		GroupStagger: time.Millisecond,
	}
}

func TestExecuteSuccessResetsState(t *testing.T) {
	l := New(fastConfig())
	ctx := context.Background()

	calls := 0
	v, err := l.Execute(ctx, "binance", func(ctx context.Context) (any, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if v != "ok" {
		t.Errorf("expected result ok, got %v", v)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}

	st := l.State("binance")
	if st.RetryCount != 0 || st.ConsecutiveErrors != 0 {
		t.Errorf("success should reset state, got %+v", st)
	}
	if st.LastSuccessAt.IsZero() {
		t.Error("success time not recorded")
	}
}

func TestExecuteMaxRetriesExhausted(t *testing.T) {
	l := New(fastConfig())
	ctx := context.Background()

	calls := 0
	cause := errors.New("rate limit exceeded")
	_, err := l.Execute(ctx, "bybit", func(ctx context.Context) (any, error) {
		calls++
		return nil, cause
	})
	if err == nil {
		t.Fatal("expected terminal error")
	}

	var mre *MaxRetriesError
	if !errors.As(err, &mre) {
		t.Fatalf("expected MaxRetriesError, got %T: %v", err, err)
	}
	if mre.Venue != "bybit" {
		t.Errorf("terminal error should name the venue, got %q", mre.Venue)
	}
	if !errors.Is(err, cause) {
		t.Error("terminal error should wrap the last underlying cause")
	}
	// First attempt plus one per retry up to the ceiling.
	if calls != 6 {
		t.Errorf("expected 6 attempts (1 + 5 retries), got %d", calls)
	}

	// State is reset: the next call starts with no initial delay.
	if st := l.State("bybit"); st.RetryCount != 0 {
		t.Errorf("retry count should reset after exhaustion, got %d", st.RetryCount)
	}

	start := time.Now()
	_, _ = l.Execute(ctx, "bybit", func(ctx context.Context) (any, error) {
		return "recovered", nil
	})
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("subsequent call should start immediately, took %s", elapsed)
	}
}

func TestExecuteNonRetryablePropagatesImmediately(t *testing.T) {
	l := New(fastConfig())
	ctx := context.Background()

	calls := 0
	_, err := l.Execute(ctx, "okx", func(ctx context.Context) (any, error) {
		calls++
		return nil, fmt.Errorf("fetch: %w", ErrAuthFailed)
	})
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected auth error to propagate, got %v", err)
	}
	if calls != 1 {
		t.Errorf("non-retryable error must not be retried: %d attempts", calls)
	}
}

func TestExecuteNonRetryableByMessage(t *testing.T) {
	l := New(fastConfig())
	ctx := context.Background()

	calls := 0
	_, err := l.Execute(ctx, "okx", func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("binance: Invalid symbol BTCXYZ")
	})
	if err == nil {
		t.Fatal("expected propagated error")
	}
	if calls != 1 {
		t.Errorf("message-classified terminal error must not be retried: %d attempts", calls)
	}
}

func TestRetryableClassifier(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("connection reset by peer"), true},
		{errors.New("429 too many requests"), true},
		{ErrAuthFailed, false},
		{ErrInvalidSymbol, false},
		{ErrMethodUnsupported, false},
		{errors.New("API key invalid"), false},
		{errors.New("permission denied"), false},
		{errors.New("method not supported by exchange"), false},
		{context.Canceled, false},
	}
	for _, tc := range cases {
		if got := Retryable(tc.err); got != tc.want {
			t.Errorf("Retryable(%v): expected %v, got %v", tc.err, tc.want, got)
		}
	}
}

func TestExecuteRespectsContextCancel(t *testing.T) {
	cfg := fastConfig()
	cfg.BaseDelay = time.Minute // force a long backoff sleep
	l := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	done := make(chan error, 1)
	go func() {
		_, err := l.Execute(ctx, "binance", func(ctx context.Context) (any, error) {
			calls++
			return nil, errors.New("transient")
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Execute did not return after cancellation")
	}
}

func TestExecuteBatchSettlesMixedResults(t *testing.T) {
	l := New(fastConfig())
	ctx := context.Background()

	boom := errors.New("invalid symbol")
	reqs := []port.BatchRequest{
		{Venue: "x", Op: func(ctx context.Context) (any, error) { return "x-ok", nil }},
		{Venue: "x", Op: func(ctx context.Context) (any, error) { return nil, boom }},
		{Venue: "y", Op: func(ctx context.Context) (any, error) { return nil, boom }},
		{Venue: "y", Op: func(ctx context.Context) (any, error) { return "y-ok", nil }},
	}

	results := l.ExecuteBatch(ctx, reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	succeeded, failed := 0, 0
	for i, res := range results {
		if res.Success {
			succeeded++
			if res.Err != nil {
				t.Errorf("result %d: success with error %v", i, res.Err)
			}
		} else {
			failed++
			if res.Err == nil {
				t.Errorf("result %d: failure without error", i)
			}
		}
	}
	if succeeded != 2 || failed != 2 {
		t.Errorf("expected 2 successes and 2 failures, got %d / %d", succeeded, failed)
	}

	// Results stay aligned with request order.
	if results[0].Value != "x-ok" || results[3].Value != "y-ok" {
		t.Errorf("results misaligned with requests: %+v", results)
	}
}

func TestStateSnapshotUnderConcurrentExecution(t *testing.T) {
	l := New(fastConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, _ = l.Execute(ctx, "binance", func(ctx context.Context) (any, error) {
				if i%2 == 0 {
					return nil, errors.New("connection reset")
				}
				return "ok", nil
			})
		}
	}()

	for i := 0; i < 200; i++ {
		st := l.State("binance")
		if st.RetryCount < 0 || st.RetryCount > 6 {
			t.Errorf("snapshot observed impossible retry count %d", st.RetryCount)
		}
	}
	wg.Wait()
}

func TestExecuteBatchStaggersVenueGroups(t *testing.T) {
	cfg := fastConfig()
	cfg.GroupStagger = 30 * time.Millisecond
	l := New(cfg)
	ctx := context.Background()

	var order []string
	op := func(venue string) port.Operation {
		return func(ctx context.Context) (any, error) {
			order = append(order, venue)
			return nil, nil
		}
	}

	start := time.Now()
	l.ExecuteBatch(ctx, []port.BatchRequest{
		{Venue: "a", Op: op("a")},
		{Venue: "b", Op: op("b")},
		{Venue: "c", Op: op("c")},
	})
	elapsed := time.Since(start)

	// Two staggers between three venue groups.
	if elapsed < 60*time.Millisecond {
		t.Errorf("expected at least 60ms of stagger, took %s", elapsed)
	}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("serialized groups should run in request order, got %v", order)
	}
}

func TestExecuteBatchStaggerFollowsSlowGroup(t *testing.T) {
	cfg := fastConfig()
	cfg.GroupStagger = 30 * time.Millisecond
	l := New(cfg)
	ctx := context.Background()

	var aDone, bStart time.Time
	l.ExecuteBatch(ctx, []port.BatchRequest{
		{Venue: "a", Op: func(ctx context.Context) (any, error) {
			time.Sleep(50 * time.Millisecond) // longer than the stagger
			aDone = time.Now()
			return nil, nil
		}},
		{Venue: "b", Op: func(ctx context.Context) (any, error) {
			bStart = time.Now()
			return nil, nil
		}},
	})

	// Serialized batches guarantee the gap after the previous group settles,
	// even when that group outlasts the stagger.
	if gap := bStart.Sub(aDone); gap < 30*time.Millisecond {
		t.Errorf("expected at least the full stagger after the slow group, got %s", gap)
	}
}
