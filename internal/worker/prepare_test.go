package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestUntilReadyRetriesFailedMigrations(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	calls := 0
	prepare := func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("relation does not exist")
		}
		return nil
	}

	if !UntilReady(context.Background(), prepare, time.Millisecond, logger) {
		t.Fatal("UntilReady() = false, want true")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestUntilReadyStopsOnCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	prepare := func(context.Context) error {
		calls++
		cancel()
		return errors.New("connection refused")
	}

	if UntilReady(ctx, prepare, time.Hour, logger) {
		t.Fatal("UntilReady() = true, want false")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
