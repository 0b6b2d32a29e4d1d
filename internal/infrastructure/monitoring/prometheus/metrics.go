package prometheus

import (
	"strconv"
	"time"
)

// Buckets
var (
	DefaultItemDurationBuckets  = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultBatchDurationBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120}
	DefaultHTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
)

// statusValue maps connector statuses onto the gauge scale.
var statusValue = map[string]float64{
	"ok":          1,
	"degraded":    0.5,
	"unavailable": 0,
}

// AppMetrics holds every metric connprobe exports.
type AppMetrics struct {
	// Engine
	ItemsSubmittedTotal CounterVec
	ItemOutcomesTotal   CounterVec
	ItemDuration        HistogramVec

	// Batch
	BatchesTotal         CounterVec
	BatchDuration        HistogramVec
	ItemsResubmitted     CounterVec
	FallbackRecordsTotal CounterVec

	// Connectors
	ConnectorStatus  GaugeVec
	ConnectorLatency GaugeVec

	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec

	// gRPC
	GRPCRequestsTotal   CounterVec
	GRPCRequestDuration HistogramVec
}

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.ItemsSubmittedTotal = collector.RegisterCounter("engine_items_submitted_total", "Work items accepted by a pool", "pool")
	m.ItemOutcomesTotal = collector.RegisterCounter("engine_item_outcomes_total", "Work item outcomes by pool and kind", "pool", "outcome")
	m.ItemDuration = collector.RegisterHistogram("engine_item_duration_seconds", "Run or wait time per work item", DefaultItemDurationBuckets, "pool", "outcome")

	m.BatchesTotal = collector.RegisterCounter("batches_total", "Completed batches by number of passes", "passes")
	m.BatchDuration = collector.RegisterHistogram("batch_duration_seconds", "Wall time of a batch", DefaultBatchDurationBuckets)
	m.ItemsResubmitted = collector.RegisterCounter("batch_items_resubmitted_total", "Starved items sent to the second pass")
	m.FallbackRecordsTotal = collector.RegisterCounter("batch_fallback_records_total", "Fallback records by reason", "reason")

	m.ConnectorStatus = collector.RegisterGauge("connector_status", "Overall connector status (1 ok, 0.5 degraded, 0 unavailable)", "connector", "kind")
	m.ConnectorLatency = collector.RegisterGauge("connector_probe_latency_seconds", "Latency of the last probe", "connector", "kind")

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")

	m.GRPCRequestsTotal = collector.RegisterCounter("grpc_requests_total", "Total gRPC calls", "service", "method", "code")
	m.GRPCRequestDuration = collector.RegisterHistogram("grpc_request_duration_seconds", "gRPC call duration", DefaultHTTPDurationBuckets, "service", "method")

	return m
}

// ObserveSubmitted counts one item accepted by a pool.
func (m *AppMetrics) ObserveSubmitted(pool string) {
	m.ItemsSubmittedTotal.WithLabelValues(pool).Inc()
}

// ObserveOutcome counts one settled item.
func (m *AppMetrics) ObserveOutcome(pool, kind string, elapsed time.Duration) {
	m.ItemOutcomesTotal.WithLabelValues(pool, kind).Inc()
	m.ItemDuration.WithLabelValues(pool, kind).Observe(elapsed.Seconds())
}

// ObserveBatch records a finished batch.
func (m *AppMetrics) ObserveBatch(passes int, resubmitted int, elapsed time.Duration) {
	m.BatchesTotal.WithLabelValues(strconv.Itoa(passes)).Inc()
	m.BatchDuration.WithLabelValues().Observe(elapsed.Seconds())
	if resubmitted > 0 {
		m.ItemsResubmitted.WithLabelValues().Add(float64(resubmitted))
	}
}

// ObserveFallback counts one fallback record.
func (m *AppMetrics) ObserveFallback(reason string) {
	m.FallbackRecordsTotal.WithLabelValues(reason).Inc()
}

// SetConnectorHealth publishes the latest status and latency of a connector.
func (m *AppMetrics) SetConnectorHealth(name, kind, status string, latency time.Duration) {
	v, ok := statusValue[status]
	if !ok {
		v = 0
	}
	m.ConnectorStatus.WithLabelValues(name, kind).Set(v)
	m.ConnectorLatency.WithLabelValues(name, kind).Set(latency.Seconds())
}

// ForgetConnector drops the series of a connector that left the configuration.
func (m *AppMetrics) ForgetConnector(name, kind string) {
	m.ConnectorStatus.DeleteLabelValues(name, kind)
	m.ConnectorLatency.DeleteLabelValues(name, kind)
}

// RecordHTTPRequest records one served request.
func (m *AppMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordGRPCRequest records one served gRPC call or stream.
func (m *AppMetrics) RecordGRPCRequest(service, method, code string, duration time.Duration) {
	m.GRPCRequestsTotal.WithLabelValues(service, method, code).Inc()
	m.GRPCRequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

//Personal.AI order the ending
