package printer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	boom := errors.New("engine exploded")
	calls := 0

	err := withRetry(context.Background(), discardLogger(), "doc-1", func(context.Context) error {
		calls++
		return boom
	})

	if calls != maxAttempts {
		t.Errorf("fn called %d times, want %d", calls, maxAttempts)
	}
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want the original error", err)
	}
}

func TestWithRetry_SucceedsAfterFailure(t *testing.T) {
	calls := 0

	err := withRetry(context.Background(), discardLogger(), "doc-1", func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}
}

func TestWithRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0

	err := withRetry(ctx, discardLogger(), "doc-1", func(context.Context) error {
		calls++
		return errors.New("fail")
	})

	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
