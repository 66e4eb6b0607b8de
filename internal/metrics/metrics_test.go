package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestNewMetrics(t *testing.T) {
	// Use a custom registry to avoid duplicate registration issues in tests
	reg := prometheus.NewRegistry()
	m := newMetricsWithRegistry(reg, Config{})
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}

	if m.chunksSentTotal == nil {
		t.Error("chunksSentTotal is nil")
	}
	if m.cullCyclesTotal == nil {
		t.Error("cullCyclesTotal is nil")
	}
}

func TestMetrics_RecordChunkSent(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetricsWithRegistry(reg, Config{})

	m.RecordChunkSent(context.Background(), "write", 65536, 10*time.Millisecond)
	m.RecordChunkSent(context.Background(), "read", 65536, 10*time.Millisecond)
}

func TestMetrics_RecordCullCycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetricsWithRegistry(reg, Config{})

	m.RecordCullCycle(nil, 2*time.Second, 42)
	m.RecordCullCycle(errTest, time.Second, 0)
}

func TestMetrics_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetricsWithRegistry(reg, Config{})

	m.RecordChunkSent(context.Background(), "write", 1024, 5*time.Millisecond)
	m.RecordCullCycle(nil, time.Second, 7)

	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	if handler == nil {
		t.Fatal("Handler returned nil")
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	for _, metric := range []string{"chunks_sent_total", "cull_cycles_total", "cull_live_chunks"} {
		if !strings.Contains(body, metric) {
			t.Errorf("expected metrics output to contain %q", metric)
		}
	}
}

var errTest = &testError{"cull failed"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
