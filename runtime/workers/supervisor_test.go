package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelDebug)
}

type countingWorker struct {
	runs    atomic.Int32
	failure error
	panics  bool
}

func (w *countingWorker) Run(ctx context.Context) error {
	w.runs.Add(1)
	if w.panics {
		panic("boom")
	}
	if w.failure != nil {
		return w.failure
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestSupervisorStopsOnCancel(t *testing.T) {
	req := require.New(t)

	// Given a healthy worker under supervision
	sup := NewSupervisor(testLogger(), time.Millisecond)
	worker := &countingWorker{}
	sup.Add(worker)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	// When the context is cancelled
	time.Sleep(20 * time.Millisecond)
	cancel()

	// Then Run returns and the worker ran exactly once
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop")
	}
	req.Equal(int32(1), worker.runs.Load())
}

func TestSupervisorRestartsFailingWorker(t *testing.T) {
	req := require.New(t)

	sup := NewSupervisor(testLogger(), time.Millisecond)
	worker := &countingWorker{failure: fmt.Errorf("transient")}
	sup.Add(worker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	// Then the worker is restarted after each failure
	req.Eventually(func() bool {
		return worker.runs.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestSupervisorRecoversPanics(t *testing.T) {
	req := require.New(t)

	sup := NewSupervisor(testLogger(), time.Millisecond)
	worker := &countingWorker{panics: true}
	sup.Add(worker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	// A panicking worker never crashes the process and keeps restarting
	req.Eventually(func() bool {
		return worker.runs.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}
