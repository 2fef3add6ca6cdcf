package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Observer receives each resource sample.
type Observer interface {
	ObserveProcess(cpuPercent float64, rssBytes uint64, goroutines int)
}

// Sample is one reading of process resource usage.
type Sample struct {
	CPUPercent float64
	RSSBytes   uint64
	Goroutines int
	NumGC      uint32
}

// Monitor periodically samples process resource usage.
type Monitor struct {
	interval time.Duration
	logger   *slog.Logger
	observer Observer
	wg       sync.WaitGroup
	proc     *process.Process
}

// New creates a monitor for the current process. observer may be nil.
func New(interval time.Duration, logger *slog.Logger, observer Observer) (*Monitor, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to get process handle: %w", err)
	}

	return &Monitor{
		interval: interval,
		logger:   logger,
		observer: observer,
		proc:     proc,
	}, nil
}

// Run starts the sampling loop in a background goroutine.
// The loop exits when ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.wg.Go(func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.collect()

		for {
			select {
			case <-ctx.Done():
				m.logger.Debug("monitor shutdown complete")
				return
			case <-ticker.C:
				m.collect()
			}
		}
	})
}

// Wait blocks until the monitor goroutine exits.
func (m *Monitor) Wait() {
	m.wg.Wait()
}

// Sample reads current resource usage.
func (m *Monitor) Sample() Sample {
	cpu, err := m.proc.CPUPercent()
	if err != nil {
		m.logger.Warn("failed to get CPU percent", "error", err)
		cpu = 0
	}

	var rss uint64
	if mem, err := m.proc.MemoryInfo(); err != nil {
		m.logger.Warn("failed to get memory info", "error", err)
	} else {
		rss = mem.RSS
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return Sample{
		CPUPercent: cpu,
		RSSBytes:   rss,
		Goroutines: runtime.NumGoroutine(),
		NumGC:      ms.NumGC,
	}
}

// collect takes a sample, logs it and forwards it to the observer.
func (m *Monitor) collect() {
	s := m.Sample()

	m.logger.LogAttrs(
		context.Background(),
		slog.LevelDebug,
		"resource",
		slog.String("cpu", fmt.Sprintf("%.2f%%", s.CPUPercent)),
		slog.String("rss", fmt.Sprintf("%.2fMB", float64(s.RSSBytes)/(1024*1024))),
		slog.Int("gor", s.Goroutines),
		slog.Uint64("gc", uint64(s.NumGC)),
	)

	if m.observer != nil {
		m.observer.ObserveProcess(s.CPUPercent, s.RSSBytes, s.Goroutines)
	}
}
