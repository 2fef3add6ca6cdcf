package exporter

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "decodeceph"

// Metrics holds the self-monitoring metrics of the decoder.
type Metrics struct {
	registry *prometheus.Registry

	operations prometheus.Counter
	sinkWrites *prometheus.CounterVec
	sinkErrors *prometheus.CounterVec
	processCPU prometheus.Gauge
	processRSS prometheus.Gauge
	goroutines prometheus.Gauge
}

// NewMetrics creates the metrics and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of decoded operations read from the input stream",
		}),
		sinkWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_writes_total",
			Help:      "Total number of operations written per sink",
		}, []string{"sink"}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Total number of failed writes per sink",
		}, []string{"sink"}),
		processCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_cpu_percent",
			Help:      "Process CPU usage as sampled by the resource monitor",
		}),
		processRSS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_resident_memory_bytes",
			Help:      "Process resident set size as sampled by the resource monitor",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "goroutines",
			Help:      "Number of goroutines as sampled by the resource monitor",
		}),
	}

	m.registry.MustRegister(
		m.operations,
		m.sinkWrites,
		m.sinkErrors,
		m.processCPU,
		m.processRSS,
		m.goroutines,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the registry backing the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Operation counts one decoded operation.
func (m *Metrics) Operation() {
	m.operations.Inc()
}

// SinkWrite counts a successful write to sink.
func (m *Metrics) SinkWrite(sink string) {
	m.sinkWrites.WithLabelValues(sink).Inc()
}

// SinkError counts a failed write to sink.
func (m *Metrics) SinkError(sink string) {
	m.sinkErrors.WithLabelValues(sink).Inc()
}

// ObserveProcess records a resource monitor sample.
func (m *Metrics) ObserveProcess(cpuPercent float64, rssBytes uint64, goroutines int) {
	m.processCPU.Set(cpuPercent)
	m.processRSS.Set(float64(rssBytes))
	m.goroutines.Set(float64(goroutines))
}

// Snapshot is a point-in-time copy of the self-monitoring metrics.
type Snapshot struct {
	Operations float64
	SinkWrites map[string]float64 // by sink name
	SinkErrors map[string]float64 // by sink name
	CPUPercent float64
	RSSBytes   float64
	Goroutines float64
}

// Snapshot gathers the current metric values from the registry.
func (m *Metrics) Snapshot() (Snapshot, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to gather metrics: %w", err)
	}

	s := Snapshot{
		SinkWrites: make(map[string]float64),
		SinkErrors: make(map[string]float64),
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch mf.GetName() {
			case namespace + "_operations_total":
				s.Operations = metric.GetCounter().GetValue()
			case namespace + "_sink_writes_total":
				s.SinkWrites[labelValue(metric, "sink")] = metric.GetCounter().GetValue()
			case namespace + "_sink_errors_total":
				s.SinkErrors[labelValue(metric, "sink")] = metric.GetCounter().GetValue()
			case namespace + "_process_cpu_percent":
				s.CPUPercent = metric.GetGauge().GetValue()
			case namespace + "_process_resident_memory_bytes":
				s.RSSBytes = metric.GetGauge().GetValue()
			case namespace + "_goroutines":
				s.Goroutines = metric.GetGauge().GetValue()
			}
		}
	}
	return s, nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}
