// Package metrics exposes the Prometheus collectors for the tariff
// pipeline and the handler serving them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	wbAPIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wb_api_requests_total",
			Help: "Total number of requests to the WB tariffs API",
		},
		[]string{"status"},
	)

	wbAPIErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wb_api_errors_total",
			Help: "Total number of WB API errors by class",
		},
		[]string{"error_type"},
	)

	wbAPIDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wb_api_duration_seconds",
			Help:    "Duration of WB API fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	lastSuccessfulFetch = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "last_successful_fetch_timestamp",
			Help: "Unix timestamp of the last successful WB fetch",
		},
	)

	tariffsProcessedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tariffs_processed_total",
			Help: "Total number of tariff records transformed and persisted",
		},
	)

	coefficientParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tariff_coefficient_parse_failures_total",
			Help: "Upstream coefficient expressions that could not be parsed and were coerced to zero",
		},
	)

	sheetsExportTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheets_export_total",
			Help: "Total number of snapshot workbook exports",
		},
		[]string{"status"},
	)

	sheetsExportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sheets_export_duration_seconds",
			Help:    "Duration of snapshot exports in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30},
		},
	)

	lastSuccessfulExport = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "last_successful_export_timestamp",
			Help: "Unix timestamp of the last successful snapshot export",
		},
	)

	dbOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of tariff storage operations in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation"},
	)
)

// RecordWBAPIRequest counts one finished fetch call by outcome and, on
// success, refreshes the last-success gauge.
func RecordWBAPIRequest(status string) {
	wbAPIRequestsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		lastSuccessfulFetch.SetToCurrentTime()
	}
}

// RecordWBAPIError counts one failed WB attempt by error class
// ("network", "http_4xx", "http_5xx", "invalid_shape", "unknown").
func RecordWBAPIError(errorType string) {
	wbAPIErrorsTotal.WithLabelValues(errorType).Inc()
}

// ObserveWBAPIDuration records the wall time of one whole fetch call.
func ObserveWBAPIDuration(d time.Duration) {
	wbAPIDuration.Observe(d.Seconds())
}

// RecordTariffsProcessed counts persisted records.
func RecordTariffsProcessed(n int) {
	tariffsProcessedTotal.Add(float64(n))
}

// RecordCoefficientParseFailure counts one coerced-to-zero coefficient.
func RecordCoefficientParseFailure() {
	coefficientParseFailures.Inc()
}

// RecordSheetsExport counts one workbook export by outcome.
func RecordSheetsExport(status string) {
	sheetsExportTotal.WithLabelValues(status).Inc()
	if status == "success" {
		lastSuccessfulExport.SetToCurrentTime()
	}
}

// ObserveSheetsExportDuration records the wall time of one export run.
func ObserveSheetsExportDuration(d time.Duration) {
	sheetsExportDuration.Observe(d.Seconds())
}

// ObserveDBOperation records the wall time of one storage call.
func ObserveDBOperation(operation string, d time.Duration) {
	dbOperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// Handler returns the HTTP handler exporting all registered collectors.
func Handler() http.Handler {
	return promhttp.Handler()
}
