package kumpel

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"
)

// Write 将行序列分批写入目标表，返回写入的总行数
//
// rows 只遍历一次。首行决定列清单与语句模板，之后每攒满一个批次执行一次多行
// INSERT，输入结束后执行剩余的不完整批次。事务在第一次执行前才开启，空输入
// 返回 ErrEmptyInput 且不会触碰数据库。
//
// CommitPerCall（默认）：所有批次在同一事务内，失败时整体回滚并返回 0。
// CommitPerBatch：每批次单独提交，后续批次失败时返回 *PartialWriteError。
func (t *Table) Write(ctx context.Context, rows iter.Seq2[*Row, error], opts WriteOptions) (int, error) {
	w := &batchWriter{table: t, opts: opts, startTime: time.Now()}
	defer w.release()

	for row, err := range rows {
		if err != nil {
			t.reporter.IncError(t.target.QualifiedName(), "source")
			return w.abort(ctx, fmt.Errorf("read rows: %w", err))
		}
		if err := ctx.Err(); err != nil {
			return w.abort(ctx, err)
		}
		if err := w.add(ctx, row); err != nil {
			return w.abort(ctx, err)
		}
	}
	return w.finish(ctx)
}

// Insert 普通插入
func (t *Table) Insert(ctx context.Context, rows iter.Seq2[*Row, error]) (int, error) {
	return t.Write(ctx, rows, WriteOptions{})
}

// InsertTuples 按表头写入值元组；给出 conflictOn 时按冲突列更新
func (t *Table) InsertTuples(ctx context.Context, header []string, tuples iter.Seq[[]any], conflictOn ...string) (int, error) {
	return t.Write(ctx, TupleRows(header, tuples), WriteOptions{ConflictOn: conflictOn})
}

// Upsert 按冲突列插入或更新
func (t *Table) Upsert(ctx context.Context, rows iter.Seq2[*Row, error], conflictOn ...string) (int, error) {
	return t.Write(ctx, rows, WriteOptions{ConflictOn: conflictOn, Strategy: ConflictUpdate})
}

// effectiveBatchSize 批次行数不超过驱动的参数上限
func effectiveBatchSize(batchSize, maxParameters, columnCount int) int {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if maxParameters > 0 && columnCount > 0 {
		if limit := maxParameters / columnCount; limit < batchSize {
			batchSize = max(limit, 1)
		}
	}
	return batchSize
}

// batchWriter 单次 Write 调用的状态
type batchWriter struct {
	table     *Table
	opts      WriteOptions
	startTime time.Time

	stmt    *Statement
	columns []string
	limit   int

	params  []any
	pending int // 当前批次行数
	seen    int // 已接收行数
	batch   int // 下一个批次序号

	tx        Tx
	written   int // 当前事务中已执行未提交的行数
	committed int
}

func (w *batchWriter) add(ctx context.Context, row *Row) error {
	if row == nil {
		return fmt.Errorf("%w at position %d", ErrNilRow, w.seen)
	}
	if w.stmt == nil {
		if err := w.prepare(row); err != nil {
			return err
		}
	}

	var err error
	w.params, err = w.appendValues(w.params, row)
	if err != nil {
		return err
	}
	w.pending++
	w.seen++

	if w.pending >= w.limit {
		return w.flush(ctx)
	}
	return nil
}

// prepare 用首行构建本次调用的语句模板
func (w *batchWriter) prepare(first *Row) error {
	t := w.table
	if first.Len() == 0 {
		return ErrNoColumns
	}
	stmt, err := t.driver.BuildInsert(t.target, first.Columns(), w.opts)
	if err != nil {
		return err
	}
	w.stmt = stmt
	w.columns = first.Columns()
	w.limit = effectiveBatchSize(t.batchSize, t.driver.MaxParameters(), len(w.columns))
	w.stmt.batchRows = w.limit
	w.params = make([]any, 0, w.limit*len(w.columns))
	return nil
}

// appendValues 严格模式要求列名与顺序完全一致；非严格模式按列名对齐
func (w *batchWriter) appendValues(params []any, row *Row) ([]any, error) {
	if row.hasColumns(w.columns) {
		return append(params, row.values...), nil
	}
	if !w.table.strict && row.Len() == len(w.columns) {
		for _, col := range w.columns {
			v, ok := row.Get(col)
			if !ok {
				return params, w.mismatch(row)
			}
			params = append(params, v)
		}
		return params, nil
	}
	return params, w.mismatch(row)
}

func (w *batchWriter) mismatch(row *Row) error {
	w.table.reporter.IncError(w.table.target.QualifiedName(), "validate")
	return fmt.Errorf("%w: row %d has columns %v, want %v", ErrColumnMismatch, w.seen, row.columns, w.columns)
}

// flush 执行当前批次
func (w *batchWriter) flush(ctx context.Context) error {
	if w.pending == 0 {
		return nil
	}
	t := w.table
	table := t.target.QualifiedName()

	if w.tx == nil {
		tx, err := t.session.BeginTx(ctx)
		if err != nil {
			t.reporter.IncError(table, "begin")
			return fmt.Errorf("begin transaction on %s: %w", table, err)
		}
		w.tx = tx
	}

	execCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeoutCause(ctx, t.timeout,
			fmt.Errorf("batch %d on %s exceeded execution timeout %s", w.batch, table, t.timeout))
		defer cancel()
	}

	rows := w.pending
	startTime := time.Now()
	_, err := w.tx.ExecContext(execCtx, w.stmt.Render(rows), w.params...)
	duration := time.Since(startTime)

	t.reporter.ObserveBatchSize(rows)
	if err != nil {
		t.reporter.ObserveExecuteDuration(table, rows, duration, "fail")
		t.reporter.IncError(table, "execute")
		if ctx.Err() == nil && execCtx.Err() != nil {
			err = fmt.Errorf("%w: %w", context.Cause(execCtx), err)
		}
		return &StatementError{
			Table:     table,
			Batch:     w.batch,
			BatchRows: rows,
			Code:      driverErrorCode(err),
			Err:       err,
		}
	}
	t.reporter.ObserveExecuteDuration(table, rows, duration, "success")
	t.logger.DebugContext(ctx, "batch executed",
		"table", table, "batch", w.batch, "rows", rows, "duration", duration)

	w.written += rows
	w.batch++
	w.pending = 0
	w.params = make([]any, 0, w.limit*len(w.columns))

	if t.commitMode == CommitPerBatch {
		return w.commit(ctx)
	}
	return nil
}

func (w *batchWriter) commit(ctx context.Context) error {
	if w.tx == nil {
		return nil
	}
	t := w.table
	table := t.target.QualifiedName()

	tx := w.tx
	w.tx = nil
	if err := tx.Commit(); err != nil {
		t.reporter.IncError(table, "commit")
		_ = tx.Rollback()
		return fmt.Errorf("commit %d rows on %s: %w", w.written, table, err)
	}
	t.reporter.AddRowsWritten(table, w.written)
	w.committed += w.written
	w.written = 0
	return nil
}

func (w *batchWriter) finish(ctx context.Context) (int, error) {
	t := w.table
	if w.stmt == nil {
		return 0, ErrEmptyInput
	}
	if err := w.flush(ctx); err != nil {
		return w.abort(ctx, err)
	}
	if err := w.commit(ctx); err != nil {
		return w.abort(ctx, err)
	}
	t.logger.InfoContext(ctx, "write completed",
		"table", t.target.QualifiedName(),
		"rows", w.committed,
		"batches", w.batch,
		"commit_mode", t.commitMode.String(),
		"duration", time.Since(w.startTime))
	return w.committed, nil
}

// abort 回滚未提交的工作；逐批提交模式下若已有提交则返回 PartialWriteError
func (w *batchWriter) abort(ctx context.Context, err error) (int, error) {
	t := w.table
	if w.tx != nil {
		rbErr := w.tx.Rollback()
		w.tx = nil
		t.logger.WarnContext(ctx, "write rolled back",
			"table", t.target.QualifiedName(),
			"rows", w.written,
			"error", err)
		if rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}
	w.written = 0
	if w.committed > 0 {
		return w.committed, &PartialWriteError{Committed: w.committed, Err: err}
	}
	return 0, err
}

// release 兜底：任何退出路径上都不留下未结束的事务
func (w *batchWriter) release() {
	if w.tx != nil {
		_ = w.tx.Rollback()
		w.tx = nil
	}
}
