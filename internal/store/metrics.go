package store

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/workflowd/internal/store"

// Metrics tracks store activity via OpenTelemetry.
type Metrics struct {
	meter  metric.Meter
	logger *zap.Logger

	hits    metric.Int64Counter
	misses  metric.Int64Counter
	size    metric.Int64ObservableGauge
	curSize atomic.Int64
}

// NewMetrics creates a Metrics instance registered against the global
// meter provider. Instrument creation failures are logged and the affected
// instrument is skipped; the store keeps working.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.hits, err = m.meter.Int64Counter(
		"workflowd.store.hits_total",
		metric.WithDescription("Total number of store reads that returned a live entry"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		m.logger.Warn("failed to create hits counter", zap.Error(err))
	}

	m.misses, err = m.meter.Int64Counter(
		"workflowd.store.misses_total",
		metric.WithDescription("Total number of store reads that found no live entry"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		m.logger.Warn("failed to create misses counter", zap.Error(err))
	}

	m.size, err = m.meter.Int64ObservableGauge(
		"workflowd.store.entries",
		metric.WithDescription("Current number of entries in the store"),
		metric.WithUnit("{entry}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(m.curSize.Load())
			return nil
		}),
	)
	if err != nil {
		m.logger.Warn("failed to create entries gauge", zap.Error(err))
	}
}

// RecordHit records a successful read.
func (m *Metrics) RecordHit() {
	if m.hits != nil {
		m.hits.Add(context.Background(), 1)
	}
}

// RecordMiss records a read that found nothing live.
func (m *Metrics) RecordMiss() {
	if m.misses != nil {
		m.misses.Add(context.Background(), 1)
	}
}

// SetSize updates the entry-count gauge.
func (m *Metrics) SetSize(n int) {
	m.curSize.Store(int64(n))
}
