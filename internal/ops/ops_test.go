package ops

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.ObserveFeedTick("event")
	m.ObserveFeedTick("event")
	m.ObserveFeedTick("empty")
	m.ObserveDelivery("big", "ok")
	m.ObservePruned(3)
	m.ObservePruned(0)
	m.ObserveESIRequest("system", "ok")
	m.ObserveESICacheHit("system")
	m.ObserveCommand("killmail", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.feedTicks.WithLabelValues("event")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.feedTicks.WithLabelValues("empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("big", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.pruned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.esiRequests.WithLabelValues("system", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.esiCacheHits.WithLabelValues("system")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("killmail", "ok")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveFeedTick("error")
		m.ObserveDelivery("normal", "failed")
		m.ObservePruned(1)
		m.ObserveESIRequest("type", "error")
		m.ObserveESICacheHit("type")
		m.ObserveCommand("help", "ok")
	})
	assert.Nil(t, m.Registry())
}

func TestHealthz(t *testing.T) {
	var down error
	r := NewEngine(NewMetrics(), func() error { return down })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	down = errors.New("gateway disconnected")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "gateway disconnected")
}

func TestMetricsEndpoint(t *testing.T) {
	m := NewMetrics()
	m.ObserveDelivery("loss", "ok")

	srv := httptest.NewServer(NewEngine(m, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `killbot_deliveries_total{mode="loss",result="ok"} 1`)
}

func TestServerStartStop(t *testing.T) {
	s := NewServer("127.0.0.1:0", NewMetrics(), nil, nil)
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop(context.Background()))
}
