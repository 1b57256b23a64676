package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.IncInFlight()
	m.ObserveRequest("GET", "/api/v1/products", 200, 25*time.Millisecond)
	m.ObserveRequest("GET", "/api/v1/products", 200, 40*time.Millisecond)
	m.ObserveRequest("POST", "", 500, 10*time.Millisecond)
	m.DecInFlight()

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]*dto.MetricFamily{}
	for _, fam := range families {
		byName[fam.GetName()] = fam
	}

	requests := byName["http_requests_total"]
	require.NotNil(t, requests)
	require.Len(t, requests.GetMetric(), 2)

	var getTotal float64
	for _, metric := range requests.GetMetric() {
		labels := map[string]string{}
		for _, pair := range metric.GetLabel() {
			labels[pair.GetName()] = pair.GetValue()
		}
		if labels["method"] == "GET" {
			getTotal = metric.GetCounter().GetValue()
			require.Equal(t, "/api/v1/products", labels["route"])
			require.Equal(t, "200", labels["status"])
		} else {
			// empty route labels collapse to a stable placeholder
			require.Equal(t, "unknown", labels["route"])
		}
	}
	require.Equal(t, float64(2), getTotal)

	duration := byName["http_request_duration_seconds"]
	require.NotNil(t, duration)
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var m *HTTPMetrics
	m.ObserveRequest("GET", "/", 200, time.Millisecond)
	m.IncInFlight()
	m.DecInFlight()

	unregistered := NewHTTPMetrics(nil)
	unregistered.ObserveRequest("GET", "/", 200, time.Millisecond)
}
