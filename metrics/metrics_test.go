package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.PumpCycle(3)
	m.PumpError("trap")
	m.Message("in", "SetTitle")
	m.SignalBatch(4)
	m.TimerFired(1)
	m.Timers(0)
	m.Sockets(2)
	m.Reconnect()
	m.Sent(10)
	m.Spawned("worker")
	m.SpawnFailed("capability")
	m.Input("down")
	assert.Nil(t, m.Registry())
}

func TestPumpDepthKeepsMaximum(t *testing.T) {
	m := New()
	m.PumpCycle(1)
	m.PumpCycle(3)
	m.PumpCycle(2)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.PumpCycles))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PumpDepthMax))
}

func TestSignalBatch(t *testing.T) {
	m := New()
	m.SignalBatch(5)
	m.SignalBatch(2)

	assert.Equal(t, 7.0, testutil.ToFloat64(m.SignalsReceived))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SignalBatches))
}

func TestPrivateRegistries(t *testing.T) {
	a, b := New(), New()
	a.Spawned("worker")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.ContextsSpawned.WithLabelValues("worker")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ContextsSpawned.WithLabelValues("worker")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Input("scroll")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `bridge_input_events_total{kind="scroll"} 1`), body)
}
