package gsacache

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the metric
// package ships a Prometheus implementation.
type MetricsCollector interface {
	// RecordUpsert is called after each native record upsert.
	// created is false when an equal record already existed.
	RecordUpsert(duration time.Duration, created bool, err error)

	// RecordBatchUpsert is called after each batch upsert.
	// count is the number of records attempted, failed the number that failed.
	RecordBatchUpsert(count, failed int, duration time.Duration)

	// RecordResolve is called after each index resolution with the branch taken
	// ("has_real_record", "has_reservation", "needs_allocation", "no_app_id").
	RecordResolve(state string, duration time.Duration)

	// RecordLink is called after linking domain objects to a native record.
	RecordLink(count, failed int, duration time.Duration)

	// RecordRehome is called when real records force reservations to move.
	RecordRehome(count int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordUpsert(time.Duration, bool, error)   {}
func (NoopMetricsCollector) RecordBatchUpsert(int, int, time.Duration) {}
func (NoopMetricsCollector) RecordResolve(string, time.Duration)       {}
func (NoopMetricsCollector) RecordLink(int, int, time.Duration)        {}
func (NoopMetricsCollector) RecordRehome(int)                          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type BasicMetricsCollector struct {
	UpsertCount       atomic.Int64
	UpsertCreated     atomic.Int64
	UpsertErrors      atomic.Int64
	UpsertTotalNanos  atomic.Int64
	BatchUpsertCount  atomic.Int64
	BatchUpsertItems  atomic.Int64
	BatchUpsertFailed atomic.Int64
	ResolveCount      atomic.Int64
	ResolveAllocated  atomic.Int64
	ResolveTotalNanos atomic.Int64
	LinkCount         atomic.Int64
	LinkFailed        atomic.Int64
	RehomeCount       atomic.Int64
}

// RecordUpsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpsert(duration time.Duration, created bool, err error) {
	b.UpsertCount.Add(1)
	b.UpsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.UpsertErrors.Add(1)
		return
	}
	if created {
		b.UpsertCreated.Add(1)
	}
}

// RecordBatchUpsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatchUpsert(count, failed int, duration time.Duration) {
	b.BatchUpsertCount.Add(1)
	b.BatchUpsertItems.Add(int64(count))
	b.BatchUpsertFailed.Add(int64(failed))
}

// RecordResolve implements MetricsCollector.
func (b *BasicMetricsCollector) RecordResolve(state string, duration time.Duration) {
	b.ResolveCount.Add(1)
	b.ResolveTotalNanos.Add(duration.Nanoseconds())
	if state == "needs_allocation" || state == "no_app_id" {
		b.ResolveAllocated.Add(1)
	}
}

// RecordLink implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLink(count, failed int, duration time.Duration) {
	b.LinkCount.Add(int64(count))
	b.LinkFailed.Add(int64(failed))
}

// RecordRehome implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRehome(count int) {
	b.RehomeCount.Add(int64(count))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		UpsertCount:       b.UpsertCount.Load(),
		UpsertCreated:     b.UpsertCreated.Load(),
		UpsertErrors:      b.UpsertErrors.Load(),
		UpsertAvgNanos:    avg(b.UpsertTotalNanos.Load(), b.UpsertCount.Load()),
		BatchUpsertCount:  b.BatchUpsertCount.Load(),
		BatchUpsertItems:  b.BatchUpsertItems.Load(),
		BatchUpsertFailed: b.BatchUpsertFailed.Load(),
		ResolveCount:      b.ResolveCount.Load(),
		ResolveAllocated:  b.ResolveAllocated.Load(),
		ResolveAvgNanos:   avg(b.ResolveTotalNanos.Load(), b.ResolveCount.Load()),
		LinkCount:         b.LinkCount.Load(),
		LinkFailed:        b.LinkFailed.Load(),
		RehomeCount:       b.RehomeCount.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	UpsertCount       int64
	UpsertCreated     int64
	UpsertErrors      int64
	UpsertAvgNanos    int64
	BatchUpsertCount  int64
	BatchUpsertItems  int64
	BatchUpsertFailed int64
	ResolveCount      int64
	ResolveAllocated  int64
	ResolveAvgNanos   int64
	LinkCount         int64
	LinkFailed        int64
	RehomeCount       int64
}
