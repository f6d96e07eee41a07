package kumpel

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"log/slog"
	"strconv"
	"time"
)

// Table 目标表及其写入配置
type Table struct {
	target  Target
	driver  SQLDriver
	session Session

	batchSize  int
	commitMode CommitMode
	timeout    time.Duration
	strict     bool

	reporter MetricsReporter
	logger   *slog.Logger
}

// NewTable 创建 Table
// 参数：
// - session: 执行协作者（通常是 NewDBSession(db)）
// - driver: 数据库特定的SQL生成器
// - target: schema + 表名
func NewTable(session Session, driver SQLDriver, target Target) *Table {
	return &Table{
		target:     target,
		driver:     driver,
		session:    session,
		batchSize:  DefaultBatchSize,
		commitMode: CommitPerCall,
		strict:     true,
		reporter:   NoopMetricsReporter{},
		logger:     slog.Default(),
	}
}

// WithConfig 应用 Config 中的写入配置
func (t *Table) WithConfig(cfg *Config) *Table {
	if cfg == nil {
		return t
	}
	return t.WithBatchSize(cfg.BatchSize).
		WithCommitMode(cfg.CommitMode).
		WithTimeout(cfg.ExecutionTimeout).
		WithStrict(cfg.Strict)
}

// WithBatchSize 设置批次行数，<= 0 时使用默认值
func (t *Table) WithBatchSize(n int) *Table {
	if n <= 0 {
		n = DefaultBatchSize
	}
	t.batchSize = n
	return t
}

func (t *Table) WithCommitMode(mode CommitMode) *Table {
	t.commitMode = mode
	return t
}

// WithTimeout 单批次执行超时，0 表示不限制
func (t *Table) WithTimeout(d time.Duration) *Table {
	t.timeout = d
	return t
}

// WithStrict 严格模式下每行的列名与顺序必须与首行一致
func (t *Table) WithStrict(strict bool) *Table {
	t.strict = strict
	return t
}

// WithMetricsReporter 设置性能监控报告器
func (t *Table) WithMetricsReporter(reporter MetricsReporter) *Table {
	if reporter == nil {
		reporter = NoopMetricsReporter{}
	}
	t.reporter = reporter
	return t
}

func (t *Table) WithLogger(logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	t.logger = logger
	return t
}

func (t *Table) Target() Target    { return t.target }
func (t *Table) Driver() SQLDriver { return t.driver }
func (t *Table) BatchSize() int    { return t.batchSize }

// Create 执行建表语句；dropIfExists 时先删除旧表，两者在同一事务内
func (t *Table) Create(ctx context.Context, createSQL string, dropIfExists bool) error {
	if err := t.target.Validate(); err != nil {
		return err
	}
	err := inTx(ctx, t.session, func(tx Tx) error {
		if dropIfExists {
			if _, err := tx.ExecContext(ctx, t.dropSQL()); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, createSQL)
		return err
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", t.target, err)
	}
	t.logger.InfoContext(ctx, "table created", "table", t.target.QualifiedName(), "dropped", dropIfExists)
	return nil
}

// CreateFromScript 从 SQL 脚本建表，脚本中的 {schema} {table} 会被替换
func (t *Table) CreateFromScript(ctx context.Context, path string, dropIfExists bool) error {
	createSQL, err := ReadSQL(path, map[string]any{
		"schema": t.target.Schema,
		"table":  t.target.Name,
	})
	if err != nil {
		return err
	}
	return t.Create(ctx, createSQL, dropIfExists)
}

func (t *Table) dropSQL() string {
	return "DROP TABLE IF EXISTS " + t.target.QualifiedName()
}

// Drop 删除表（不存在时忽略）
func (t *Table) Drop(ctx context.Context) error {
	return t.exec(ctx, "drop table", t.dropSQL())
}

// Truncate 清空表
func (t *Table) Truncate(ctx context.Context) error {
	return t.exec(ctx, "truncate table", t.driver.TruncateSQL(t.target))
}

// AddColumn 新增列；colType 原样拼入语句
func (t *Table) AddColumn(ctx context.Context, name, colType string) error {
	if err := validateIdentifier(name); err != nil {
		return err
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", t.target.QualifiedName(), name, colType)
	return t.exec(ctx, "add column", stmt)
}

func (t *Table) exec(ctx context.Context, op, stmt string) error {
	if err := t.target.Validate(); err != nil {
		return err
	}
	if _, err := t.session.ExecContext(ctx, stmt); err != nil {
		t.reporter.IncError(t.target.QualifiedName(), "ddl")
		return fmt.Errorf("%s %s: %w", op, t.target, err)
	}
	t.logger.DebugContext(ctx, op, "table", t.target.QualifiedName())
	return nil
}

// Update 按 keyColumn 逐行 UPDATE，所有行在同一事务内，返回处理的行数
// 每行除 keyColumn 外的列都会被更新，各行的列可以不同
func (t *Table) Update(ctx context.Context, rows iter.Seq2[*Row, error], keyColumn string) (int, error) {
	if err := t.target.Validate(); err != nil {
		return 0, err
	}
	if err := validateIdentifier(keyColumn); err != nil {
		return 0, err
	}

	n := 0
	err := inTx(ctx, t.session, func(tx Tx) error {
		for row, err := range rows {
			if err != nil {
				return fmt.Errorf("read rows: %w", err)
			}
			if row == nil {
				return fmt.Errorf("%w at position %d", ErrNilRow, n)
			}
			key, ok := row.Get(keyColumn)
			if !ok {
				return fmt.Errorf("%w: row %d has no %q", ErrConflictColumn, n, keyColumn)
			}

			setColumns := make([]string, 0, row.Len()-1)
			args := make([]any, 0, row.Len())
			for i, col := range row.columns {
				if col == keyColumn {
					continue
				}
				setColumns = append(setColumns, col)
				args = append(args, row.values[i])
			}
			if len(setColumns) == 0 {
				return fmt.Errorf("%w: row %d has nothing to update", ErrNoColumns, n)
			}
			if err := validateIdentifiers(setColumns); err != nil {
				return err
			}
			args = append(args, key)

			if _, err := tx.ExecContext(ctx, buildUpdateSQL(t.driver, t.target, setColumns, keyColumn), args...); err != nil {
				return &StatementError{
					Table:     t.target.QualifiedName(),
					Batch:     n,
					BatchRows: 1,
					Code:      driverErrorCode(err),
					Err:       err,
				}
			}
			n++
		}
		return nil
	})
	if err != nil {
		t.reporter.IncError(t.target.QualifiedName(), "update")
		return 0, err
	}
	t.logger.InfoContext(ctx, "update completed", "table", t.target.QualifiedName(), "rows", n)
	return n, nil
}

// ReadOptions 读取配置
type ReadOptions struct {
	// SQL 自定义查询；为空时读取整表
	SQL string
	// Limit 仅在读取整表时生效，<= 0 不限制
	Limit int
}

// Read 惰性读取查询结果；session 需实现 Queryer
func (t *Table) Read(ctx context.Context, opts ReadOptions) iter.Seq2[*Row, error] {
	stmt := opts.SQL
	if stmt == "" {
		stmt = "SELECT * FROM " + t.target.QualifiedName()
		if opts.Limit > 0 {
			stmt += " LIMIT " + strconv.Itoa(opts.Limit)
		}
	}
	queryer, ok := t.session.(Queryer)
	if !ok {
		return errorRows(fmt.Errorf("%w: session does not support queries", ErrUnsupported))
	}
	if err := t.target.Validate(); err != nil && opts.SQL == "" {
		return errorRows(err)
	}
	return queryRows(ctx, queryer, stmt)
}

func errorRows(err error) iter.Seq2[*Row, error] {
	return func(yield func(*Row, error) bool) {
		yield(nil, err)
	}
}

// queryRows 执行查询并逐行产出；遍历结束或提前停止时关闭结果集
func queryRows(ctx context.Context, q Queryer, stmt string, args ...any) iter.Seq2[*Row, error] {
	return func(yield func(*Row, error) bool) {
		rows, err := q.QueryContext(ctx, stmt, args...)
		if err != nil {
			yield(nil, err)
			return
		}
		defer rows.Close()

		columns, err := rows.Columns()
		if err != nil {
			yield(nil, err)
			return
		}
		for rows.Next() {
			row, err := scanRow(rows, columns)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

func scanRow(rows *sql.Rows, columns []string) (*Row, error) {
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	row := &Row{
		columns: make([]string, 0, len(columns)),
		values:  make([]any, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		v := values[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		row.Set(col, v)
	}
	return row, nil
}
