package audit

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/metrics"
)

// MetricsSink counts calls and observes their latency. It also implements
// ErrorSink so sink failures are counted per sink.
type MetricsSink struct {
	m *metrics.Metrics
}

func NewMetricsSink(m *metrics.Metrics) *MetricsSink {
	return &MetricsSink{m: m}
}

func (s *MetricsSink) Name() string { return "metrics" }

func (s *MetricsSink) Accept(_ context.Context, rec CallRecord) error {
	s.m.ObserveCall(rec.Method, rec.Outcome(), rec.Duration)
	return nil
}

func (s *MetricsSink) SinkFailed(f SinkFailure) {
	s.m.SinkFailed(f.Sink)
}
