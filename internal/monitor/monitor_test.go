package monitor

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu      sync.Mutex
	samples int
	rss     uint64
	gor     int
}

func (o *recordingObserver) ObserveProcess(_ float64, rss uint64, goroutines int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.samples++
	o.rss = rss
	o.gor = goroutines
}

func (o *recordingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.samples
}

func TestMonitor_RunCollectsUntilCancelled(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := &recordingObserver{}

	m, err := New(10*time.Millisecond, logger, obs)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	m.Run(ctx)

	require.Eventually(t, func() bool { return obs.count() >= 2 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	m.Wait()

	assert.Positive(t, obs.gor)
	assert.Contains(t, logs.String(), "msg=resource")
}

func TestMonitor_Sample(t *testing.T) {
	m, err := New(time.Second, slog.Default(), nil)
	require.NoError(t, err)

	s := m.Sample()
	assert.Positive(t, s.Goroutines)
	assert.GreaterOrEqual(t, s.CPUPercent, 0.0)
}
