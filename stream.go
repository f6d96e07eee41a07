package kumpel

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gopipeline "github.com/rushairer/go-pipeline/v2"
)

// SinkConfig 异步写入配置
type SinkConfig struct {
	BufferSize    uint32
	FlushSize     uint32
	FlushInterval time.Duration
	// Options 每次 flush 调用 Table.Write 时使用的冲突配置
	Options WriteOptions
}

// DefaultSinkConfig 默认异步写入配置
func DefaultSinkConfig() SinkConfig {
	return SinkConfig{
		BufferSize:    1000,
		FlushSize:     1000,
		FlushInterval: time.Second,
	}
}

// Sink 推送式行写入器
//
// 架构层次：
// Application -> Sink -> gopipeline -> Table.Write -> Database
//
// 每次 flush 按列清单分组，每组调用一次 Table.Write。
// 创建时的 ctx 结束或调用 Close 后停止接收新行，已接收的行仍会写入。
type Sink struct {
	pipeline *gopipeline.StandardPipeline[*Row]
	table    *Table
	opts     WriteOptions
	written  atomic.Int64

	mu       sync.RWMutex // 保护 closed 与向 DataChan 的发送
	closed   bool
	done     <-chan struct{} // 创建时上下文结束后拒绝后续提交
	finished chan struct{}   // 管道最后一次 flush 完成后关闭
}

// NewSink 创建并启动 Sink，ctx 结束时等同于调用 Close
func NewSink(ctx context.Context, table *Table, config SinkConfig) *Sink {
	defaults := DefaultSinkConfig()
	if config.BufferSize == 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.FlushSize == 0 {
		config.FlushSize = defaults.FlushSize
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = defaults.FlushInterval
	}

	s := &Sink{
		table:    table,
		opts:     config.Options,
		done:     ctx.Done(),
		finished: make(chan struct{}),
	}

	s.pipeline = gopipeline.NewStandardPipeline(
		gopipeline.PipelineConfig{
			BufferSize:    config.BufferSize,
			FlushSize:     config.FlushSize,
			FlushInterval: config.FlushInterval,
		},
		s.flush,
	)
	s.pipeline.WithMetrics(pipelineMetricsAdapter{
		reporter: table.reporter,
		table:    table.target.QualifiedName(),
	})

	// 管道只在数据通道关闭后退出，保证缓冲中的行全部 flush
	go func() {
		defer close(s.finished)
		_ = s.pipeline.AsyncPerform(context.WithoutCancel(ctx))
	}()
	go func() {
		select {
		case <-ctx.Done():
			s.stop()
		case <-s.finished:
		}
	}()

	return s
}

// flush 使用不可取消的上下文，关闭后的最后一次 flush 也能完成写入
func (s *Sink) flush(ctx context.Context, rows []*Row) error {
	ctx = context.WithoutCancel(ctx)

	type group struct {
		rows []*Row
	}
	var order []string
	groups := make(map[string]*group)
	for _, row := range rows {
		if row == nil {
			continue
		}
		key := strings.Join(row.columns, "\x00")
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, row)
	}

	var errs []error
	for _, key := range order {
		n, err := s.table.Write(ctx, SliceRows(groups[key].rows), s.opts)
		s.written.Add(int64(n))
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Submit 提交一行
func (s *Sink) Submit(ctx context.Context, row *Row) error {
	// 优先尊重取消
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.done:
		return ErrSinkClosed
	default:
	}
	if row == nil {
		return ErrNilRow
	}
	if row.Len() == 0 {
		return ErrNoColumns
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	select {
	case s.pipeline.DataChan() <- row:
		return nil
	case <-s.done:
		return ErrSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 停止接收新行并等待已接收的行写入完成
// ctx 只限制等待时间，超时后剩余的写入仍在后台继续
func (s *Sink) Close(ctx context.Context) error {
	s.stop()
	select {
	case <-s.finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sink) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.pipeline.DataChan())
}

// ErrorChan 获取 flush 错误通道
func (s *Sink) ErrorChan(size int) <-chan error {
	return s.pipeline.ErrorChan(size)
}

// Written 已提交写入的行数
func (s *Sink) Written() int64 {
	return s.written.Load()
}

// pipelineMetricsAdapter 实现 go-pipeline 的 MetricsHook
// 批次耗时与大小由 Table.Write 上报，这里只处理错误丢弃
type pipelineMetricsAdapter struct {
	reporter MetricsReporter
	table    string
}

func (a pipelineMetricsAdapter) Flush(items int, duration time.Duration) {}

func (a pipelineMetricsAdapter) Error(err error) {}

// ErrorDropped 错误通道已满
func (a pipelineMetricsAdapter) ErrorDropped() {
	if a.reporter != nil {
		a.reporter.IncError(a.table, "error_dropped")
	}
}
