// Package metrics provides Prometheus metrics for the lookup batch.
// It exports four metrics on a dedicated registry:
//   - druginfo_upstream_requests_total: Counter with service, endpoint, and status labels
//   - druginfo_upstream_request_duration_seconds: Histogram with service and endpoint labels
//   - druginfo_lookups_total: Counter with service and outcome labels
//   - druginfo_batch_entries: Gauge with the size of the current batch
//
// The batch is a short-lived process, so the registry is dumped to a file in
// the node exporter textfile format instead of being scraped.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
)

// Registry holds every druginfo collector
var Registry = prometheus.NewRegistry()

var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "druginfo_upstream_requests_total",
			Help: "Total requests sent to reference services",
		},
		[]string{"service", "endpoint", "status"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "druginfo_upstream_request_duration_seconds",
			Help:    "Reference service request latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "endpoint"},
	)

	LookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "druginfo_lookups_total",
			Help: "Per entry lookup outcomes",
		},
		[]string{"service", "outcome"},
	)

	BatchEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "druginfo_batch_entries",
			Help: "Number of entries in the current batch",
		},
	)
)

func init() {
	Registry.MustRegister(UpstreamRequestsTotal)
	Registry.MustRegister(UpstreamRequestDuration)
	Registry.MustRegister(LookupsTotal)
	Registry.MustRegister(BatchEntries)
}

// Outcome returns the outcome label for a lookup
func Outcome(found bool) string {
	if found {
		return OutcomeFound
	}
	return OutcomeNotFound
}

// WriteTextfile writes the registry to path atomically
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
