package retry

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func recordingSleeper(record *[]time.Duration) Option {
	return WithSleeper(func(_ context.Context, d time.Duration) error {
		*record = append(*record, d)
		return nil
	})
}

func TestDoRetriesExactlyScheduleLength(t *testing.T) {
	var slept []time.Duration
	delays := []time.Duration{2 * time.Second, 5 * time.Second, 15 * time.Second}
	caller := New(delays, recordingSleeper(&slept))

	calls := 0
	err := caller.Do(context.Background(), "search", func(context.Context) error {
		calls++
		return errors.New("http 429 too many requests")
	})

	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if !strings.Contains(err.Error(), "retries exhausted after 4 attempts") {
		t.Fatalf("error = %v", err)
	}
	if calls != len(delays)+1 {
		t.Fatalf("calls = %d, want %d", calls, len(delays)+1)
	}
	if !reflect.DeepEqual(slept, delays) {
		t.Fatalf("slept = %v, want full schedule %v", slept, delays)
	}
}

func TestDoNonRetryablePropagatesImmediately(t *testing.T) {
	var slept []time.Duration
	caller := New(nil, recordingSleeper(&slept))

	fatal := errors.New("invalid api key")
	calls := 0
	err := caller.Do(context.Background(), "search", func(context.Context) error {
		calls++
		return fatal
	})

	if !errors.Is(err, fatal) {
		t.Fatalf("error = %v, want original", err)
	}
	if calls != 1 || len(slept) != 0 {
		t.Fatalf("calls = %d slept = %v, want no retries", calls, slept)
	}
}

func TestDoSucceedsAfterRetry(t *testing.T) {
	var slept []time.Duration
	caller := New([]time.Duration{time.Second}, recordingSleeper(&slept))

	calls := 0
	err := caller.Do(context.Background(), "search", func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("rate limit hit")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestDoContextCancelDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	caller := New([]time.Duration{time.Minute}, WithSleeper(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	err := caller.Do(ctx, "search", func(context.Context) error {
		return errors.New("quota exceeded")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestMaxAddedLatency(t *testing.T) {
	caller := New([]time.Duration{2 * time.Second, 5 * time.Second, 15 * time.Second})
	if got, want := caller.MaxAddedLatency(), 22*time.Second; got != want {
		t.Fatalf("MaxAddedLatency = %v, want %v", got, want)
	}
}
