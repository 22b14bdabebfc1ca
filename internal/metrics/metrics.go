// Package metrics exports pipeline counters in Prometheus format.
//
// Every recovered irregularity the stages report through table.Notices has
// a counter here, so silent substitutions (attendee fallbacks, invalid
// dates, dropped bytes) stay visible in production.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/outreach/internal/loader"
	"github.com/JonMunkholm/outreach/internal/table"
)

const namespace = "outreach"

// Run outcomes.
const (
	StatusSuccess = "success"
	StatusNoInput = "no_input"
	StatusError   = "error"
)

// Drop reasons.
const (
	ReasonZeroDate   = "zero_date"
	ReasonIncomplete = "incomplete"
)

// Metrics holds the pipeline collectors and the registry they belong to.
type Metrics struct {
	registry *prometheus.Registry

	runs              *prometheus.CounterVec
	duration          prometheus.Histogram
	rowsLoaded        prometheus.Counter
	rowsDropped       *prometheus.CounterVec
	rowsOutput        prometheus.Counter
	attendeeFallbacks prometheus.Counter
	invalidDates      prometheus.Counter
	bytesDropped      prometheus.Counter
	rowsPublished     prometheus.Counter
}

// New creates a Metrics instance on a private registry that also carries
// the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Wall time of completed pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		rowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Records parsed from input files.",
		}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Records removed by the cleaner, by reason.",
		}, []string{"reason"}),
		rowsOutput: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_output_total",
			Help:      "Records in preprocessed output tables.",
		}),
		attendeeFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendee_fallbacks_total",
			Help:      "Attendee counts replaced by the fallback value.",
		}),
		invalidDates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_dates_total",
			Help:      "Date cells that could not be parsed.",
		}),
		bytesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decoding_bytes_dropped_total",
			Help:      "Invalid UTF-8 bytes discarded while reading input.",
		}),
		rowsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_published_total",
			Help:      "Records copied into the reporting database.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.runs,
		m.duration,
		m.rowsLoaded,
		m.rowsDropped,
		m.rowsOutput,
		m.attendeeFallbacks,
		m.invalidDates,
		m.bytesDropped,
		m.rowsPublished,
	)
	return m
}

// ObserveRun records the outcome of one pipeline run. On error only the
// run counter moves; notices of a failed run are not trusted.
func (m *Metrics) ObserveRun(notices table.Notices, outputRows int, elapsed time.Duration, err error) {
	switch {
	case errors.Is(err, loader.ErrNoInputFound):
		m.runs.WithLabelValues(StatusNoInput).Inc()
		return
	case err != nil:
		m.runs.WithLabelValues(StatusError).Inc()
		return
	}

	m.runs.WithLabelValues(StatusSuccess).Inc()
	m.duration.Observe(elapsed.Seconds())
	m.rowsLoaded.Add(float64(notices.RowsLoaded))
	m.rowsDropped.WithLabelValues(ReasonZeroDate).Add(float64(notices.ZeroDateRows))
	m.rowsDropped.WithLabelValues(ReasonIncomplete).Add(float64(notices.IncompleteRows))
	m.rowsOutput.Add(float64(outputRows))
	m.attendeeFallbacks.Add(float64(notices.AttendeeFallbacks))
	m.invalidDates.Add(float64(notices.InvalidDates))
	m.bytesDropped.Add(float64(notices.DecodingBytesDropped))
}

// ObservePublish records rows copied into the database.
func (m *Metrics) ObservePublish(rows int64) {
	m.rowsPublished.Add(float64(rows))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
