package kumpel

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// SQLDriver 数据库特定的SQL生成器接口
type SQLDriver interface {
	// Name database/sql 驱动名
	Name() string
	// Placeholder 第 n 个参数占位符（从 1 开始）
	Placeholder(n int) string
	// MaxParameters 单条语句允许绑定的参数上限
	MaxParameters() int
	// BuildInsert 生成一次写入使用的语句模板
	BuildInsert(target Target, columns []string, opts WriteOptions) (*Statement, error)
	// TruncateSQL 清空表
	TruncateSQL(target Target) string
	// SupportsSchemas 是否支持 CREATE SCHEMA
	SupportsSchemas() bool
}

// Statement 多行 INSERT 语句模板：前缀 + VALUES 元组 + 冲突子句
type Statement struct {
	prefix       string
	suffix       string
	columnCount  int
	placeholders *placeholderCache
	batchRows    int // 满批次行数，仅此行数的占位符进入驱动级缓存
}

// Render 渲染 rows 行的完整语句
func (s *Statement) Render(rows int) string {
	if rows == s.batchRows {
		return s.prefix + s.placeholders.values(s.columnCount, rows) + s.suffix
	}
	return s.prefix + s.placeholders.build(s.columnCount, rows) + s.suffix
}

// ColumnCount 每行参数个数
func (s *Statement) ColumnCount() int {
	return s.columnCount
}

// placeholderCache 按 (列数, 行数) 缓存 VALUES 占位符串
// 只缓存满批次，尾部不完整批次每次现场生成
type placeholderCache struct {
	numbered bool     // $1, $2 ... 形式
	cache    sync.Map // key: (colCount<<32)|rowCount  value: string
}

func (c *placeholderCache) values(columnCount, rowCount int) string {
	if columnCount <= 0 || rowCount <= 0 {
		return ""
	}
	key := (uint64(columnCount) << 32) | uint64(rowCount)
	if v, ok := c.cache.Load(key); ok {
		return v.(string)
	}
	out := c.build(columnCount, rowCount)
	c.cache.Store(key, out)
	return out
}

// build 生成占位符串，不经过缓存
func (c *placeholderCache) build(columnCount, rowCount int) string {
	if columnCount <= 0 || rowCount <= 0 {
		return ""
	}
	var out string
	if c.numbered {
		var b strings.Builder
		for i := 0; i < rowCount; i++ {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('(')
			for j := 0; j < columnCount; j++ {
				if j > 0 {
					b.WriteString(", ")
				}
				b.WriteByte('$')
				b.WriteString(strconv.Itoa(i*columnCount + j + 1))
			}
			b.WriteByte(')')
		}
		out = b.String()
	} else {
		singleRow := "(" + strings.Repeat("?, ", columnCount-1) + "?)"
		rows := make([]string, rowCount)
		for i := range rows {
			rows[i] = singleRow
		}
		out = strings.Join(rows, ", ")
	}
	return out
}

// prepareInsert 公共校验：目标、列名、冲突列
func prepareInsert(target Target, columns []string, opts WriteOptions) error {
	if err := target.Validate(); err != nil {
		return err
	}
	if len(columns) == 0 {
		return ErrNoColumns
	}
	if err := validateIdentifiers(columns); err != nil {
		return err
	}
	if err := validateIdentifiers(opts.ConflictOn); err != nil {
		return err
	}
	return validateConflictColumns(columns, opts.ConflictOn)
}

func assignments(columns []string, format string) string {
	pairs := make([]string, len(columns))
	for i, col := range columns {
		pairs[i] = fmt.Sprintf(format, col, col)
	}
	return strings.Join(pairs, ", ")
}

// buildUpdateSQL UPDATE schema.table SET a = ?, b = ? WHERE key = ?
func buildUpdateSQL(d SQLDriver, target Target, setColumns []string, keyColumn string) string {
	pairs := make([]string, len(setColumns))
	for i, col := range setColumns {
		pairs[i] = col + " = " + d.Placeholder(i+1)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		target.QualifiedName(), strings.Join(pairs, ", "), keyColumn, d.Placeholder(len(setColumns)+1))
}

var DefaultPostgreSQLDriver = NewPostgreSQLDriver()

type PostgreSQLDriver struct {
	placeholders placeholderCache
}

func NewPostgreSQLDriver() *PostgreSQLDriver {
	return &PostgreSQLDriver{placeholders: placeholderCache{numbered: true}}
}

func (d *PostgreSQLDriver) Name() string             { return "postgres" }
func (d *PostgreSQLDriver) Placeholder(n int) string { return "$" + strconv.Itoa(n) }
func (d *PostgreSQLDriver) MaxParameters() int       { return 65535 }
func (d *PostgreSQLDriver) SupportsSchemas() bool    { return true }

func (d *PostgreSQLDriver) TruncateSQL(target Target) string {
	return "TRUNCATE " + target.QualifiedName()
}

// BuildInsert 生成PostgreSQL批量插入模板
func (d *PostgreSQLDriver) BuildInsert(target Target, columns []string, opts WriteOptions) (*Statement, error) {
	if err := prepareInsert(target, columns, opts); err != nil {
		return nil, err
	}

	stmt := &Statement{
		prefix:       fmt.Sprintf("INSERT INTO %s (%s) VALUES ", target.QualifiedName(), strings.Join(columns, ", ")),
		columnCount:  len(columns),
		placeholders: &d.placeholders,
	}

	switch opts.strategy() {
	case ConflictUpdate:
		if len(opts.ConflictOn) == 0 {
			return nil, fmt.Errorf("%w: upsert requires a conflict target", ErrConflictColumn)
		}
		stmt.suffix = fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s",
			strings.Join(opts.ConflictOn, ", "), assignments(columns, "%s = EXCLUDED.%s"))
	case ConflictIgnore:
		if len(opts.ConflictOn) == 0 {
			stmt.suffix = " ON CONFLICT DO NOTHING"
		} else {
			stmt.suffix = fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(opts.ConflictOn, ", "))
		}
	}
	return stmt, nil
}

var DefaultMySQLDriver = NewMySQLDriver()

type MySQLDriver struct {
	placeholders placeholderCache
}

func NewMySQLDriver() *MySQLDriver {
	return &MySQLDriver{}
}

func (d *MySQLDriver) Name() string           { return "mysql" }
func (d *MySQLDriver) Placeholder(int) string { return "?" }
func (d *MySQLDriver) MaxParameters() int     { return 65535 }
func (d *MySQLDriver) SupportsSchemas() bool  { return true }

func (d *MySQLDriver) TruncateSQL(target Target) string {
	return "TRUNCATE TABLE " + target.QualifiedName()
}

// BuildInsert 生成MySQL批量插入模板；冲突目标由表上的唯一索引决定
func (d *MySQLDriver) BuildInsert(target Target, columns []string, opts WriteOptions) (*Statement, error) {
	if err := prepareInsert(target, columns, opts); err != nil {
		return nil, err
	}

	columnsStr := strings.Join(columns, ", ")
	stmt := &Statement{
		prefix:       fmt.Sprintf("INSERT INTO %s (%s) VALUES ", target.QualifiedName(), columnsStr),
		columnCount:  len(columns),
		placeholders: &d.placeholders,
	}

	switch opts.strategy() {
	case ConflictUpdate:
		stmt.suffix = " ON DUPLICATE KEY UPDATE " + assignments(columns, "%s = VALUES(%s)")
	case ConflictIgnore:
		stmt.prefix = fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES ", target.QualifiedName(), columnsStr)
	}
	return stmt, nil
}

var DefaultSQLiteDriver = NewSQLiteDriver()

type SQLiteDriver struct {
	placeholders placeholderCache
}

func NewSQLiteDriver() *SQLiteDriver {
	return &SQLiteDriver{}
}

func (d *SQLiteDriver) Name() string           { return "sqlite3" }
func (d *SQLiteDriver) Placeholder(int) string { return "?" }
func (d *SQLiteDriver) MaxParameters() int     { return 32766 }
func (d *SQLiteDriver) SupportsSchemas() bool  { return false }

// TruncateSQL SQLite 没有 TRUNCATE
func (d *SQLiteDriver) TruncateSQL(target Target) string {
	return "DELETE FROM " + target.QualifiedName()
}

// BuildInsert 生成SQLite批量插入模板
func (d *SQLiteDriver) BuildInsert(target Target, columns []string, opts WriteOptions) (*Statement, error) {
	if err := prepareInsert(target, columns, opts); err != nil {
		return nil, err
	}

	stmt := &Statement{
		prefix:       fmt.Sprintf("INSERT INTO %s (%s) VALUES ", target.QualifiedName(), strings.Join(columns, ", ")),
		columnCount:  len(columns),
		placeholders: &d.placeholders,
	}

	switch opts.strategy() {
	case ConflictUpdate:
		if len(opts.ConflictOn) == 0 {
			return nil, fmt.Errorf("%w: upsert requires a conflict target", ErrConflictColumn)
		}
		stmt.suffix = fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s",
			strings.Join(opts.ConflictOn, ", "), assignments(columns, "%s = excluded.%s"))
	case ConflictIgnore:
		if len(opts.ConflictOn) == 0 {
			stmt.suffix = " ON CONFLICT DO NOTHING"
		} else {
			stmt.suffix = fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(opts.ConflictOn, ", "))
		}
	}
	return stmt, nil
}
