package avmkit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hupe1980/avmkit/slotstore"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    dispatchCounter prometheus.Counter
//	    slotHistogram   prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordDispatch(handler string, duration time.Duration, err error) {
//	    p.dispatchCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordDispatch is called after each routed call.
	// handler is the resolved method or bare-action name, duration is the
	// total time taken, err is nil if successful.
	RecordDispatch(handler string, duration time.Duration, err error)

	// RecordSlotRead is called after each slot read issued through a
	// metered scope.
	RecordSlotRead(duration time.Duration, err error)

	// RecordSlotWrite is called after each slot write issued through a
	// metered scope.
	RecordSlotWrite(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordDispatch(string, time.Duration, error) {}
func (NoopMetricsCollector) RecordSlotRead(time.Duration, error)         {}
func (NoopMetricsCollector) RecordSlotWrite(time.Duration, error)        {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	DispatchCount       atomic.Int64
	DispatchErrors      atomic.Int64
	DispatchTotalNanos  atomic.Int64
	SlotReadCount       atomic.Int64
	SlotReadErrors      atomic.Int64
	SlotReadTotalNanos  atomic.Int64
	SlotWriteCount      atomic.Int64
	SlotWriteErrors     atomic.Int64
	SlotWriteTotalNanos atomic.Int64
}

// RecordDispatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDispatch(handler string, duration time.Duration, err error) {
	b.DispatchCount.Add(1)
	b.DispatchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.DispatchErrors.Add(1)
	}
}

// RecordSlotRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSlotRead(duration time.Duration, err error) {
	b.SlotReadCount.Add(1)
	b.SlotReadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SlotReadErrors.Add(1)
	}
}

// RecordSlotWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSlotWrite(duration time.Duration, err error) {
	b.SlotWriteCount.Add(1)
	b.SlotWriteTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SlotWriteErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		DispatchCount:    b.DispatchCount.Load(),
		DispatchErrors:   b.DispatchErrors.Load(),
		DispatchAvgNanos: b.avgDispatchNanos(),
		SlotReadCount:    b.SlotReadCount.Load(),
		SlotReadErrors:   b.SlotReadErrors.Load(),
		SlotWriteCount:   b.SlotWriteCount.Load(),
		SlotWriteErrors:  b.SlotWriteErrors.Load(),
	}
}

func (b *BasicMetricsCollector) avgDispatchNanos() int64 {
	count := b.DispatchCount.Load()
	if count == 0 {
		return 0
	}
	return b.DispatchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	DispatchCount    int64
	DispatchErrors   int64
	DispatchAvgNanos int64
	SlotReadCount    int64
	SlotReadErrors   int64
	SlotWriteCount   int64
	SlotWriteErrors  int64
}

// meteredStore decorates a slot store with per-call metrics. Delete passes
// through when the inner store supports it.
type meteredStore struct {
	inner slotstore.Store
	mc    MetricsCollector
}

// MeterStore wraps store so every slot read and write is reported to mc.
// Application.BindGlobal and BindLocal apply it automatically when a
// collector is configured.
func MeterStore(store slotstore.Store, mc MetricsCollector) slotstore.Store {
	if mc == nil {
		return store
	}
	if _, noop := mc.(NoopMetricsCollector); noop {
		return store
	}
	return &meteredStore{inner: store, mc: mc}
}

func (m *meteredStore) Get(ctx context.Context, key byte) ([]byte, error) {
	start := time.Now()
	value, err := m.inner.Get(ctx, key)
	m.mc.RecordSlotRead(time.Since(start), err)
	return value, err
}

func (m *meteredStore) Put(ctx context.Context, key byte, value []byte) error {
	start := time.Now()
	err := m.inner.Put(ctx, key, value)
	m.mc.RecordSlotWrite(time.Since(start), err)
	return err
}

func (m *meteredStore) Delete(ctx context.Context, key byte) error {
	d, ok := m.inner.(slotstore.Deleter)
	if !ok {
		return slotstore.ErrDeleteUnsupported
	}
	start := time.Now()
	err := d.Delete(ctx, key)
	m.mc.RecordSlotWrite(time.Since(start), err)
	return err
}
