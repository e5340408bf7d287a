package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ClanOp("create", "created")
	m.ClanOp("create", "conflict")
	m.ClanOp("create", "conflict")
	m.SeedRow("inserted")
	m.ObserveRequest(http.MethodPost, "/clans", http.StatusCreated, 3*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.clanOps.WithLabelValues("create", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.seedRows.WithLabelValues("inserted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "/clans", "201")))

	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	assert.Contains(t, string(body), `clans_operations_total{op="create",outcome="conflict"} 2`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ClanOp("list", "ok")
		m.SeedRow("error")
		m.ObserveRequest("GET", "/clans", 200, time.Millisecond)
	})
}
