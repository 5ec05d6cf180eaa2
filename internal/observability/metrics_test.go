package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordGeneration(t *testing.T) {
	m := NewMetrics()
	m.ObserveGeneration("success", 2*time.Second, 3)
	m.ObserveGeneration("rejected", 0, -1)
	m.ObserveScene("COMPLETED")
	m.ObserveScene("FAILED")
	m.ObserveScene("FAILED")
	m.AddSwept(4)
	m.AddSwept(0)

	if got := testutil.ToFloat64(m.generations.WithLabelValues("success")); got != 1 {
		t.Fatalf("success generations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.generations.WithLabelValues("rejected")); got != 1 {
		t.Fatalf("rejected generations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.sceneOutcomes.WithLabelValues("FAILED")); got != 2 {
		t.Fatalf("failed scenes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.sweptRows); got != 4 {
		t.Fatalf("swept = %v, want 4", got)
	}
}

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	m := NewMetrics()
	m.ObserveHTTP(http.MethodPost, "/animations", http.StatusOK, 150*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `shortshive_http_requests_total{code="200",method="POST",route="/animations"} 1`) {
		t.Fatalf("expected request counter in output:\n%s", body)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveGeneration("success", time.Second, 1)
	m.ObserveScene("COMPLETED")
	m.AddSwept(1)
	m.ObserveHTTP(http.MethodGet, "/", 200, time.Millisecond)
	if m.Registry() != nil {
		t.Fatalf("nil metrics should expose no registry")
	}
}
