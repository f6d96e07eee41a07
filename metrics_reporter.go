package kumpel

import "time"

// MetricsReporter 性能监控报告器接口
type MetricsReporter interface {
	// ObserveExecuteDuration 单批次执行耗时；status 为 success / fail
	ObserveExecuteDuration(table string, n int, d time.Duration, status string)
	// ObserveBatchSize 单批次行数
	ObserveBatchSize(n int)
	// IncError 错误计数，reason 如 execute / begin / commit / validate
	IncError(table string, reason string)
	// AddRowsWritten 已提交行数
	AddRowsWritten(table string, n int)
}

var _ MetricsReporter = NoopMetricsReporter{}

// NoopMetricsReporter 默认的空实现
type NoopMetricsReporter struct{}

func (NoopMetricsReporter) ObserveExecuteDuration(string, int, time.Duration, string) {}
func (NoopMetricsReporter) ObserveBatchSize(int)                                      {}
func (NoopMetricsReporter) IncError(string, string)                                   {}
func (NoopMetricsReporter) AddRowsWritten(string, int)                                {}
