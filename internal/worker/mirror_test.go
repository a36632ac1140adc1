package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/venom-hub/internal/config"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) RefreshLocal(context.Context) error {
	r.calls.Add(1)
	return r.err
}

func newTestWorker(r Refresher, interval time.Duration) *MirrorWorker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMirrorWorker(r, &config.MirrorConfig{Interval: interval, Enabled: true}, logger)
}

func waitCalls(t *testing.T, r *countingRefresher, n int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for r.calls.Load() < n {
		if time.Now().After(deadline) {
			t.Fatalf("calls = %d, want at least %d", r.calls.Load(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMirrorRefreshesOnStart(t *testing.T) {
	r := &countingRefresher{}
	w := newTestWorker(r, time.Hour)

	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitCalls(t, r, 1)
	if !w.IsRunning() {
		t.Fatal("worker not running")
	}
	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}
	if w.IsRunning() {
		t.Fatal("worker still running after Stop")
	}
}

func TestMirrorRefreshesEveryInterval(t *testing.T) {
	r := &countingRefresher{}
	w := newTestWorker(r, 10*time.Millisecond)

	_ = w.Start(context.Background())
	defer w.Stop()
	waitCalls(t, r, 3)
}

func TestMirrorKeepsRunningAfterFailure(t *testing.T) {
	r := &countingRefresher{err: errors.New("remote down")}
	w := newTestWorker(r, 10*time.Millisecond)

	_ = w.Start(context.Background())
	defer w.Stop()
	waitCalls(t, r, 2)
}

func TestStopWithoutStart(t *testing.T) {
	w := newTestWorker(&countingRefresher{}, time.Second)
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
}
