package monitoring_test

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"github.com/rushairer/kumpel"
)

// okSession 所有语句都成功
type okSession struct{}

func (okSession) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return driver.RowsAffected(len(args)), nil
}

func (okSession) BeginTx(ctx context.Context) (kumpel.Tx, error) {
	return okTx{}, nil
}

type okTx struct{ okSession }

func (okTx) Commit() error   { return nil }
func (okTx) Rollback() error { return nil }
