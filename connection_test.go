package kumpel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rushairer/kumpel"
)

func TestOpen_SQLite(t *testing.T) {
	db, driver, err := kumpel.Open(context.Background(), &kumpel.ConnectionConfig{
		DriverName:      "sqlite3",
		ConnectionURL:   ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if driver != kumpel.DefaultSQLiteDriver {
		t.Fatalf("driver = %s, want sqlite3", driver.Name())
	}
	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("max open conns = %d, want 1", got)
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, _, err := kumpel.Open(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	if _, _, err := kumpel.Open(context.Background(), &kumpel.ConnectionConfig{DriverName: "oracle"}); !errors.Is(err, kumpel.ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}

	// 无法连接时关闭句柄并返回 ping 错误
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := kumpel.Open(ctx, &kumpel.ConnectionConfig{
		DriverName:      "postgres",
		ConnectionURL:   "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1",
		ApplicationName: "kumpel-test",
	})
	if err == nil {
		t.Fatalf("expected ping failure")
	}
}
