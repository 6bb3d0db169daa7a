package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveIndicator(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveIndicator("SMA_20", 2*time.Millisecond)
	m.ObserveIndicator("RSI_14", time.Millisecond)

	if got := testutil.ToFloat64(m.IndicatorsTotal); got != 2 {
		t.Errorf("IndicatorsTotal = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(m.IndicatorComputeDur); n != 2 {
		t.Errorf("histogram series = %d, want 2", n)
	}
}

func TestObserveBreaker(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveBreaker(1)
	m.ObserveBreaker(2)
	m.ObserveBreaker(0)

	if got := testutil.ToFloat64(m.RedisCircuitBreakerState); got != 0 {
		t.Errorf("state = %v", got)
	}
	if got := testutil.ToFloat64(m.RedisCircuitBreakerTrips); got != 1 {
		t.Errorf("trips = %v", got)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.BacktestRunsTotal.WithLabelValues("ok").Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rec.Body.String(), `backtest_runs_total{result="ok"} 1`) {
		t.Errorf("metrics output missing run counter:\n%s", rec.Body.String())
	}
}

func TestHealth_SQLiteRequired(t *testing.T) {
	h := NewHealthStatus(false)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status before any check = %d", rec.Code)
	}

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "h.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	h.Check(context.Background(), nil, db)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status after check = %d", rec.Code)
	}
	var report Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Status != "healthy" || !report.SQLiteOK {
		t.Errorf("report = %+v", report)
	}
}

func TestHealth_RedisDownDegrades(t *testing.T) {
	h := NewHealthStatus(true)
	h.SQLiteOK = true

	report, healthy := h.Snapshot()
	if !healthy || report.Status != "degraded" {
		t.Errorf("got %q healthy=%v, want degraded and healthy", report.Status, healthy)
	}
}
