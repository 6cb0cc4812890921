// Package metrics exposes Prometheus collectors for the report crawler.
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Page outcome labels.
const (
	StatusOK       = "ok"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

var (
	pagesTotal          *prometheus.CounterVec
	recordsTotal        *prometheus.CounterVec
	collisionsTotal     prometheus.Counter
	pageDurationSeconds *prometheus.HistogramVec
	aggregationSeconds  prometheus.Histogram
	lastReportRecords   prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asnreport_pages_total",
				Help: "Total number of country pages processed, labeled by country and status.",
			},
			[]string{"country", "status"},
		)

		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asnreport_records_total",
				Help: "Total number of AS records scraped, labeled by country.",
			},
			[]string{"country"},
		)

		collisionsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "asnreport_identifier_collisions_total",
				Help: "Total number of identifiers overwritten while merging country pages.",
			},
		)

		pageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "asnreport_page_duration_seconds",
				Help:    "Histogram of fetch and parse latency per country page.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"status"},
		)

		aggregationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "asnreport_aggregation_duration_seconds",
				Help:    "Histogram of end-to-end aggregation latency.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
		)

		lastReportRecords = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "asnreport_last_report_records",
				Help: "Number of records in the most recently aggregated report.",
			},
		)
	})
}

// SanitizeCountry normalizes a country code for use as a label value.
// It returns "unknown" for empty input.
func SanitizeCountry(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "unknown"
	}
	return code
}

// ObservePage records the outcome of one country page.
func ObservePage(country, status string, records int, duration time.Duration) {
	label := SanitizeCountry(country)
	pagesTotal.WithLabelValues(label, status).Inc()
	pageDurationSeconds.WithLabelValues(status).Observe(duration.Seconds())
	if records > 0 {
		recordsTotal.WithLabelValues(label).Add(float64(records))
	}
}

// ObserveCollisions increments the merge collision counter.
func ObserveCollisions(n int) {
	if n > 0 {
		collisionsTotal.Add(float64(n))
	}
}

// ObserveAggregation records a completed aggregation run.
func ObserveAggregation(records int, duration time.Duration) {
	aggregationSeconds.Observe(duration.Seconds())
	lastReportRecords.Set(float64(records))
}

// WriteTextfile dumps the default registry in the text exposition format,
// suitable for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
