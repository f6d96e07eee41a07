package monitoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rushairer/kumpel"
)

var _ kumpel.MetricsReporter = (*PrometheusReporter)(nil)

// PrometheusReporter Prometheus指标收集器，实现 kumpel.MetricsReporter 接口
type PrometheusReporter struct {
	database string

	executeDuration *prometheus.HistogramVec
	executeTotal    *prometheus.CounterVec
	batchSize       *prometheus.HistogramVec
	rowsWritten     *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec

	registry *prometheus.Registry
	server   *http.Server
	mu       sync.Mutex
}

// NewPrometheusReporter 创建指标收集器；database 作为所有指标的 database 标签
func NewPrometheusReporter(database string) *PrometheusReporter {
	registry := prometheus.NewRegistry()

	pr := &PrometheusReporter{
		database: database,

		executeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kumpel_batch_execute_duration_seconds",
				Help:    "Duration of batch statement execution in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
			},
			[]string{"database", "table", "status"},
		),

		executeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kumpel_batch_execute_total",
				Help: "Total number of batch statement executions",
			},
			[]string{"database", "table", "status"},
		),

		batchSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kumpel_batch_size",
				Help:    "Rows per executed batch",
				Buckets: prometheus.ExponentialBuckets(1, 2, 15), // 1 to ~16k
			},
			[]string{"database"},
		),

		rowsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kumpel_rows_written_total",
				Help: "Total number of committed rows",
			},
			[]string{"database", "table"},
		),

		errorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kumpel_errors_total",
				Help: "Total number of errors by reason",
			},
			[]string{"database", "table", "reason"},
		),

		registry: registry,
	}

	registry.MustRegister(
		pr.executeDuration,
		pr.executeTotal,
		pr.batchSize,
		pr.rowsWritten,
		pr.errorTotal,
	)

	return pr
}

// Registry 指标注册表
func (pr *PrometheusReporter) Registry() *prometheus.Registry {
	return pr.registry
}

func (pr *PrometheusReporter) ObserveExecuteDuration(table string, n int, d time.Duration, status string) {
	pr.executeDuration.WithLabelValues(pr.database, table, status).Observe(d.Seconds())
	pr.executeTotal.WithLabelValues(pr.database, table, status).Inc()
}

func (pr *PrometheusReporter) ObserveBatchSize(n int) {
	pr.batchSize.WithLabelValues(pr.database).Observe(float64(n))
}

func (pr *PrometheusReporter) IncError(table string, reason string) {
	pr.errorTotal.WithLabelValues(pr.database, table, reason).Inc()
}

func (pr *PrometheusReporter) AddRowsWritten(table string, n int) {
	pr.rowsWritten.WithLabelValues(pr.database, table).Add(float64(n))
}

// NewRouter 暴露 /metrics 与 /health
func NewRouter(registry *prometheus.Registry) *gin.Engine {
	// 设置 Gin 为发布模式，减少日志输出
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: false,
	})
	router.GET("/metrics", gin.WrapH(metricsHandler))
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	return router
}

// StartServer 启动指标 HTTP 服务器，附带 Go 运行时指标
func (pr *PrometheusReporter) StartServer(port int) error {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if pr.server != nil {
		return fmt.Errorf("prometheus server already running")
	}

	// 重复启动时运行时指标已注册
	for _, c := range []prometheus.Collector{
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		var are prometheus.AlreadyRegisteredError
		if err := pr.registry.Register(c); err != nil && !errors.As(err, &are) {
			return err
		}
	}

	pr.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewRouter(pr.registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	server := pr.server
	go func() {
		slog.Info("prometheus metrics server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("prometheus server error", "error", err)
		}
	}()
	return nil
}

// StopServer 停止指标 HTTP 服务器
func (pr *PrometheusReporter) StopServer(ctx context.Context) error {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if pr.server == nil {
		return nil
	}
	err := pr.server.Shutdown(ctx)
	pr.server = nil
	return err
}
