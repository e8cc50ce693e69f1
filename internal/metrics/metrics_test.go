package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := New()

	r.ObserveSignal("BUY")
	r.ObserveSignal("BUY")
	r.ObserveSignal("STOP_LOSS")
	r.SymbolSkipped("not_found")
	r.NotificationFailed()
	r.SetOpenPositions(3)
	r.ObserveRun(1500*time.Millisecond, time.Unix(1700000000, 0))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.signals.WithLabelValues("BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.signals.WithLabelValues("STOP_LOSS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.skipped.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.notificationsFailed))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.openPositions))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(r.lastRunTimestamp))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.ObserveSignal("BUY")

	path := filepath.Join(t.TempDir(), "signal_bot.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `signal_bot_signals_total{action="BUY"} 1`)
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.SetOpenPositions(2)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "signal_bot_open_positions 2")
}
