package kumpel

import (
	"context"
	"database/sql"
)

// Execer 语句执行接口
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Queryer 查询接口
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Tx 事务
type Tx interface {
	Execer
	Commit() error
	Rollback() error
}

// Session 写入使用的执行协作者：可直接执行，也可开启事务
type Session interface {
	Execer
	BeginTx(ctx context.Context) (Tx, error)
}

var (
	_ Session = (*DBSession)(nil)
	_ Queryer = (*DBSession)(nil)
)

// DBSession 基于 *sql.DB 的 Session
// 连接池由调用方管理
type DBSession struct {
	db *sql.DB
}

// NewDBSession 创建 DBSession
func NewDBSession(db *sql.DB) *DBSession {
	return &DBSession{db: db}
}

func (s *DBSession) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

func (s *DBSession) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

func (s *DBSession) BeginTx(ctx context.Context) (Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// DB 底层连接
func (s *DBSession) DB() *sql.DB {
	return s.db
}

// inTx 在单个事务中执行 fn；fn 失败或 panic 时回滚
func inTx(ctx context.Context, session Session, fn func(tx Tx) error) (err error) {
	tx, err := session.BeginTx(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
