package monitoring_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rushairer/kumpel"
	"github.com/rushairer/kumpel/monitoring"
)

func TestPrometheusReporter_Metrics(t *testing.T) {
	pr := monitoring.NewPrometheusReporter("postgres")

	pr.ObserveExecuteDuration("public.users", 10, 5*time.Millisecond, "success")
	pr.ObserveExecuteDuration("public.users", 10, 7*time.Millisecond, "success")
	pr.ObserveExecuteDuration("public.users", 4, time.Millisecond, "fail")
	pr.ObserveBatchSize(10)
	pr.AddRowsWritten("public.users", 20)
	pr.IncError("public.users", "execute")

	expected := `
# HELP kumpel_batch_execute_total Total number of batch statement executions
# TYPE kumpel_batch_execute_total counter
kumpel_batch_execute_total{database="postgres",status="fail",table="public.users"} 1
kumpel_batch_execute_total{database="postgres",status="success",table="public.users"} 2
# HELP kumpel_errors_total Total number of errors by reason
# TYPE kumpel_errors_total counter
kumpel_errors_total{database="postgres",reason="execute",table="public.users"} 1
# HELP kumpel_rows_written_total Total number of committed rows
# TYPE kumpel_rows_written_total counter
kumpel_rows_written_total{database="postgres",table="public.users"} 20
`
	if err := testutil.GatherAndCompare(pr.Registry(), strings.NewReader(expected),
		"kumpel_batch_execute_total", "kumpel_errors_total", "kumpel_rows_written_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}

	if n, err := testutil.GatherAndCount(pr.Registry(), "kumpel_batch_execute_duration_seconds"); err != nil || n != 2 {
		t.Fatalf("duration series = %d, %v; want 2", n, err)
	}
}

// 与写入路径联动：写入 25 行、批次 10，应上报 3 个批次与 25 行
func TestPrometheusReporter_WithTable(t *testing.T) {
	pr := monitoring.NewPrometheusReporter("mysql")
	table := kumpel.NewTable(okSession{}, kumpel.DefaultMySQLDriver, kumpel.NewTarget("app", "events")).
		WithBatchSize(10).
		WithMetricsReporter(pr).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	rows := make([]*kumpel.Row, 25)
	for i := range rows {
		rows[i] = kumpel.NewRow().SetInt64("id", int64(i))
	}
	if _, err := table.Insert(context.Background(), kumpel.SliceRows(rows)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	expected := `
# HELP kumpel_rows_written_total Total number of committed rows
# TYPE kumpel_rows_written_total counter
kumpel_rows_written_total{database="mysql",table="app.events"} 25
`
	if err := testutil.GatherAndCompare(pr.Registry(), strings.NewReader(expected), "kumpel_rows_written_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestRouter(t *testing.T) {
	pr := monitoring.NewPrometheusReporter("sqlite3")
	pr.IncError("main.users", "validate")
	router := monitoring.NewRouter(pr.Registry())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `kumpel_errors_total{database="sqlite3",reason="validate",table="main.users"} 1`) {
		t.Fatalf("metrics body missing error counter:\n%s", rec.Body.String())
	}
}

func TestStartStopServer(t *testing.T) {
	pr := monitoring.NewPrometheusReporter("sqlite3")
	if err := pr.StartServer(0); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := pr.StartServer(0); err == nil {
		t.Fatalf("expected error when already running")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := pr.StopServer(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := pr.StopServer(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	// 运行时指标重复注册不报错
	if err := pr.StartServer(0); err != nil {
		t.Fatalf("restart: %v", err)
	}
	_ = pr.StopServer(ctx)
}
