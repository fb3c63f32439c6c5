// Package metrics exposes Prometheus instruments for web search calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Search outcomes recorded in the requests_total counter.
const (
	OutcomeOK         = "ok"
	OutcomeEmpty      = "empty"
	OutcomeCredential = "credential"
	OutcomeTransport  = "transport"
	OutcomeHTTPStatus = "http_status"
	OutcomeUnexpected = "unexpected"
)

// Metrics groups the search instruments. A nil *Metrics is a valid no-op.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	results  *prometheus.HistogramVec
	upstream *prometheus.CounterVec
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "websearch",
				Subsystem: "search",
				Name:      "requests_total",
				Help:      "Total web search invocations by outcome",
			},
			[]string{"backend", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "websearch",
				Subsystem: "search",
				Name:      "duration_seconds",
				Help:      "Web search latency in seconds, including formatting",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"backend"},
		),
		results: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "websearch",
				Subsystem: "search",
				Name:      "results",
				Help:      "Number of results returned per successful search",
				Buckets:   []float64{0, 1, 5, 10, 20, 50},
			},
			[]string{"backend"},
		),
		upstream: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "websearch",
				Subsystem: "upstream",
				Name:      "responses_total",
				Help:      "HTTP responses received from the search provider by status code",
			},
			[]string{"backend", "code"},
		),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.results, m.upstream} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveSearch records one tool-level search invocation.
func (m *Metrics) ObserveSearch(backend, outcome string, resultCount int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(backend, outcome).Inc()
	m.duration.WithLabelValues(backend).Observe(elapsed.Seconds())
	if outcome == OutcomeOK || outcome == OutcomeEmpty {
		m.results.WithLabelValues(backend).Observe(float64(resultCount))
	}
}

// ObserveUpstream records the HTTP status code of a provider response.
func (m *Metrics) ObserveUpstream(backend string, statusCode int) {
	if m == nil {
		return
	}
	m.upstream.WithLabelValues(backend, strconv.Itoa(statusCode)).Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
