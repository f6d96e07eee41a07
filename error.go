package kumpel

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrEmptyInput 写入时输入行为空
	ErrEmptyInput = errors.New("empty input: no rows to write")

	// ErrNilRow 输入序列中出现 nil 行
	ErrNilRow = errors.New("nil row")

	// ErrNoColumns 行没有任何列
	ErrNoColumns = errors.New("row has no columns")

	// ErrColumnMismatch 行的列与首行不一致
	ErrColumnMismatch = errors.New("row columns do not match first row")

	// ErrConflictColumn 冲突列缺失或不在列清单中
	ErrConflictColumn = errors.New("invalid conflict column")

	// ErrInvalidIdentifier 非法的 schema/表/列名
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrInvalidTarget 无效的目标表
	ErrInvalidTarget = errors.New("invalid table target")

	// ErrUnsupported 当前数据库不支持的操作
	ErrUnsupported = errors.New("unsupported operation")

	// ErrUnknownDriver 未知的数据库驱动名
	ErrUnknownDriver = errors.New("unknown database driver")

	// ErrSinkClosed Sink 生命周期已结束
	ErrSinkClosed = errors.New("sink closed")
)

// StatementError 批次语句执行失败
type StatementError struct {
	Table     string // schema.table
	Batch     int    // 批次序号，从 0 开始
	BatchRows int    // 该批次行数
	Code      string // 驱动错误码（SQLSTATE / MySQL 错误号 / SQLite 扩展码）
	Err       error
}

func (e *StatementError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("execute batch %d (%d rows) on %s failed [%s]: %v", e.Batch, e.BatchRows, e.Table, e.Code, e.Err)
	}
	return fmt.Sprintf("execute batch %d (%d rows) on %s failed: %v", e.Batch, e.BatchRows, e.Table, e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

// PartialWriteError 逐批提交模式下，部分批次已提交后失败
type PartialWriteError struct {
	Committed int // 已提交的行数
	Err       error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial write: %d rows committed before failure: %v", e.Committed, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

// driverErrorCode 从驱动错误中提取错误码，无法识别时返回空串
func driverErrorCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return strconv.Itoa(int(myErr.Number))
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return strconv.Itoa(int(liteErr.ExtendedCode))
	}
	return ""
}
