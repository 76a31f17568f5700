package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Telemetry periodically logs resource usage of the current process.
type Telemetry struct {
	log      *slog.Logger
	interval time.Duration
}

func NewTelemetry(log *slog.Logger, interval time.Duration) *Telemetry {
	return &Telemetry{log: log, interval: interval}
}

func (w *Telemetry) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.report(proc)
		}
	}
}

func (w *Telemetry) report(proc *process.Process) {
	attrs := []any{"pid", proc.Pid}
	if cpu, err := proc.CPUPercent(); err == nil {
		attrs = append(attrs, "cpu_percent", cpu)
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		attrs = append(attrs, "rss_bytes", mem.RSS)
	}
	if threads, err := proc.NumThreads(); err == nil {
		attrs = append(attrs, "threads", threads)
	}
	w.log.Info("process telemetry", attrs...)
}
