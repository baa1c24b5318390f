package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTransition(t *testing.T) {
	m := New()
	m.RecordTransition("request", "", "PENDING")
	m.RecordTransition("request", "PENDING", "APPROVED")
	m.RecordTransition("request", "PENDING", "APPROVED")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("request", "none", "PENDING")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("request", "PENDING", "APPROVED")))
}

func TestSetInventory_Resets(t *testing.T) {
	m := New()
	m.SetInventory(map[string]int{"AVAILABLE": 3, "ASSIGNED": 1}, map[string]int{"PENDING": 2})
	assert.Equal(t, 3.0, testutil.ToFloat64(m.assetsByStatus.WithLabelValues("AVAILABLE")))

	m.SetInventory(map[string]int{"AVAILABLE": 4}, nil)
	assert.Equal(t, 1, testutil.CollectAndCount(m.assetsByStatus))
	assert.Equal(t, 0, testutil.CollectAndCount(m.requestsByStatus))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTP("get", "/api/assets", 200, 10*time.Millisecond)
	m.RecordJob("refresh-inventory", time.Second, true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `assettracker_http_requests_total{method="GET",route="/api/assets",status="200"} 1`)
	assert.Contains(t, string(body), `assettracker_jobs_runs_total{job="refresh-inventory",success="true"} 1`)
}

func TestPushJobMetrics(t *testing.T) {
	var (
		method, path string
		body         []byte
	)
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer gw.Close()

	m := New()
	m.SetInventory(map[string]int{"AVAILABLE": 3}, map[string]int{"PENDING": 1})
	m.RecordJob("refresh-inventory", time.Second, true)

	require.NoError(t, m.PushJobMetrics(context.Background(), gw.URL, "assettracker_cronjob"))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/assettracker_cronjob", path)
	assert.Contains(t, string(body), "assettracker_inventory_assets")
	assert.Contains(t, string(body), "assettracker_jobs_runs_total")
	assert.NotContains(t, string(body), "assettracker_http_requests_total")
}

func TestPushJobMetrics_GatewayError(t *testing.T) {
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer gw.Close()

	assert.Error(t, New().PushJobMetrics(context.Background(), gw.URL, "assettracker_cronjob"))
}
