// Package workers contains the long-running background units and the
// supervisor that keeps them alive.
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pairchat/contract"
	errs "pairchat/errors"
)

// Supervisor runs registered workers and restarts any that fail or panic,
// pausing between attempts. It stops restarting once the context is done.
type Supervisor struct {
	log             *slog.Logger
	restartInterval time.Duration
	mu              sync.Mutex
	workers         []contract.Worker
}

func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	return &Supervisor{log: log, restartInterval: restartInterval}
}

// Add registers workers. Must be called before Run.
func (s *Supervisor) Add(workers ...contract.Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, workers...)
}

// Run drives every registered worker until ctx is cancelled, then waits for
// all of them to return.
func (s *Supervisor) Run(ctx context.Context) {
	s.mu.Lock()
	workers := make([]contract.Worker, len(s.workers))
	copy(workers, s.workers)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, worker := range workers {
		wg.Add(1)
		go func(w contract.Worker) {
			defer wg.Done()
			s.keepAlive(ctx, w)
		}(worker)
	}
	wg.Wait()
}

func (s *Supervisor) keepAlive(ctx context.Context, worker contract.Worker) {
	name := contract.GetWorkerName(worker)
	for {
		err := s.runGuarded(ctx, worker)
		switch {
		case ctx.Err() != nil:
			s.log.Info("worker stopped", "worker", name)
			return
		case err != nil:
			s.log.Error("worker failed, restarting", "worker", name, "error", err)
		default:
			s.log.Warn("worker returned early, restarting", "worker", name)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.restartInterval):
		}
	}
}

// runGuarded converts a worker panic into an error so one bad worker never
// takes the process down.
func (s *Supervisor) runGuarded(ctx context.Context, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errs.ErrWorkerPanic, r)
		}
	}()
	return worker.Run(ctx)
}
