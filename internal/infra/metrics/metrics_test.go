package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSearchCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveSearch("querit", OutcomeOK, 3, 120*time.Millisecond)
	m.ObserveSearch("querit", OutcomeOK, 5, 80*time.Millisecond)
	m.ObserveSearch("querit", OutcomeCredential, 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("querit", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("querit", OutcomeCredential)))
	// Result counts are only observed for completed searches.
	assert.Equal(t, 1, testutil.CollectAndCount(m.results))
}

func TestObserveUpstream(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveUpstream("querit", 200)
	m.ObserveUpstream("querit", 401)
	m.ObserveUpstream("querit", 401)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstream.WithLabelValues("querit", "200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.upstream.WithLabelValues("querit", "401")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveSearch("querit", OutcomeOK, 1, time.Second)
	m.ObserveUpstream("querit", 500)
}

func TestNewDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err, "registering the same instruments twice should fail")
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.ObserveSearch("querit", OutcomeEmpty, 0, 10*time.Millisecond)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), `websearch_search_requests_total{backend="querit",outcome="empty"} 1`))
}
