package stats

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/caronae/caronae-dw/loader"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
)

func TestRunStatsKeepStepOrder(t *testing.T) {
	m := NewRunStats(logrus.New(), SetStatsDumpFrequency(0))
	a := m.AddStepWatcher("dim_user")
	b := m.AddStepWatcher("fato_carona")
	m.AddStepWatcher("fato_interacao_carona")
	a.StartWatching()
	a.StopWatching(loader.Result{RowsSupplied: 3, RowsLoaded: 3, Batches: 1}, nil)
	b.StartWatching()
	b.StopWatching(loader.Result{}, errors.New("boom"))
	got := m.GetStats()
	if len(got) != 3 {
		t.Fatalf("expected 3 steps, got %v", len(got))
	}
	if got[0].StepName != "dim_user" || got[0].StatusText != StatusComplete || got[0].RowsLoaded != 3 {
		t.Fatalf("unexpected stats %+v", got[0])
	}
	if got[1].StatusText != StatusFailed || got[1].Error != "boom" {
		t.Fatalf("unexpected stats %+v", got[1])
	}
	if got[2].StatusText != StatusPending || got[2].ElapsedTimeSec != 0 {
		t.Fatalf("unexpected stats %+v", got[2])
	}
	if !strings.Contains(got[0].String(), "rowsLoaded=3") {
		t.Fatalf("unexpected text %v", got[0].String())
	}
}

func TestStartStopDumping(t *testing.T) {
	m := NewRunStats(logrus.New(), SetStatsDumpFrequency(1))
	m.AddStepWatcher("dim_user").StartWatching()
	m.StartDumping()
	m.StartDumping()
	m.StopDumping()
	m.StopDumping()
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObserveStep(Stats{StepName: "fato_carona", StatusText: StatusComplete, RowsSupplied: 5, RowsLoaded: 4}, time.Second)
	m.ObserveStep(Stats{StepName: "fato_carona", StatusText: StatusFailed, RowsSupplied: 1}, time.Second)
	m.AddFallbacks(map[string]int{"user": 2})
	m.AddFallbacks(map[string]int{"user": 1, "hub": 1})
	m.CountRun(RunOutcomeSuccess)
	m.SetWatermark(time.Unix(1700000000, 0))
	if v := testutil.ToFloat64(m.rowsLoaded.WithLabelValues("fato_carona")); v != 4 {
		t.Fatalf("unexpected rows loaded %v", v)
	}
	if v := testutil.ToFloat64(m.rowsSupplied.WithLabelValues("fato_carona")); v != 6 {
		t.Fatalf("unexpected rows extracted %v", v)
	}
	if v := testutil.ToFloat64(m.stepFailures.WithLabelValues("fato_carona")); v != 1 {
		t.Fatalf("unexpected failures %v", v)
	}
	if v := testutil.ToFloat64(m.fallbacks.WithLabelValues("user")); v != 3 {
		t.Fatalf("unexpected fallbacks %v", v)
	}
	if v := testutil.ToFloat64(m.watermark); v != 1700000000 {
		t.Fatalf("unexpected watermark %v", v)
	}
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "caronae_dw_runs_total{outcome=\"success\"} 1") {
		t.Fatalf("unexpected exposition:\n%v", rec.Body.String())
	}
}

func TestNilMetricsIgnoresCalls(t *testing.T) {
	var m *Metrics
	m.ObserveStep(Stats{}, 0)
	m.AddFallbacks(map[string]int{"user": 1})
	m.CountRun(RunOutcomeFailure)
	if err := m.Push(context.Background(), "http://localhost:9091", "job"); err != nil {
		t.Fatal(err)
	}
}

func TestPushToGateway(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	m := NewMetrics()
	m.CountRun(RunOutcomeSuccess)
	if err := m.Push(context.Background(), srv.URL, "caronae-dw"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/metrics/job/caronae-dw" {
		t.Fatalf("unexpected push path %v", gotPath)
	}
	if err := m.Push(context.Background(), "", "caronae-dw"); err == nil {
		t.Fatal("expected an error without a url")
	}
}
