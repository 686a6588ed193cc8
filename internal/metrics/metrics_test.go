package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CallLifecycle(t *testing.T) {
	m := New()

	m.CallStarted()
	m.CallStarted()
	m.CallEnded("hangup")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.callsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeCalls))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.callsEnded.WithLabelValues("hangup")))
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ConnectionOpened()
		m.CallStarted()
		m.CallEnded("hangup")
		m.Dropped(DropUnknownCall)
		m.Relayed("offer")
		m.Undelivered()
		m.SetBindings(3)
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_HandlerExposesCounters(t *testing.T) {
	m := New()
	m.Dropped(DropUnknownCall)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `skycalling_events_dropped_total{reason="unknown_call"} 1`), body)
}
