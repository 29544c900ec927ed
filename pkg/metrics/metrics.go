// Package metrics provides the centralized Prometheus metrics registry for
// the surveillance dashboard. All metrics are defined in their respective
// packages (client, cache, batch) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the dashboard.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - cwd_source_requests_total{path, status} (Counter): Total requests by path and HTTP status
//   - cwd_source_request_duration_seconds{path} (Histogram): Request duration by path
//   - cwd_source_errors_total{class} (Counter): Errors by class (client, server, network)
//
// Retry Metrics (pkg/client):
//   - cwd_source_retries_total{error_class} (Counter): Retry attempts by error class
//   - cwd_source_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - cwd_source_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - cwd_page_cache_hits_total{layer="redis"} (Counter): Page cache hits by layer
//   - cwd_page_cache_misses_total (Counter): Page cache misses
//   - cwd_page_cache_size_bytes{layer="redis"} (Gauge): Current cache size in bytes
//   - cwd_page_cache_errors_total{operation} (Counter): Cache operation errors
//
// Batch Metrics (pkg/batch):
//   - cwd_batch_pages_fetched_total (Counter): Pages fetched successfully across all runs
//   - cwd_batch_pages_failed_total (Counter): Pages that exhausted their retry budget
//   - cwd_batch_fetches_in_flight (Gauge): Page fetches currently in flight
//   - cwd_batch_records_loaded (Gauge): Records aggregated in the current run
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(cwd_page_cache_hits_total[5m])) /
//   (sum(rate(cwd_page_cache_hits_total[5m])) + sum(rate(cwd_page_cache_misses_total[5m])))
//
//   # Page Failure Rate
//   rate(cwd_batch_pages_failed_total[5m])
//
//   # P95 Source Latency
//   histogram_quantile(0.95, rate(cwd_source_request_duration_seconds_bucket[5m]))
//
//   # Concurrency Saturation
//   cwd_batch_fetches_in_flight
