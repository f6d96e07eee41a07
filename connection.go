package kumpel

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ConnectionConfig 连接配置
type ConnectionConfig struct {
	DriverName      string        `json:"driver_name"` // postgres | mysql | sqlite3
	ConnectionURL   string        `json:"connection_url"`
	ApplicationName string        `json:"application_name"` // 仅 PostgreSQL
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

// DriverFor 根据 database/sql 驱动名返回对应的SQL生成器
func DriverFor(driverName string) (SQLDriver, error) {
	switch driverName {
	case "postgres", "postgresql":
		return DefaultPostgreSQLDriver, nil
	case "mysql":
		return DefaultMySQLDriver, nil
	case "sqlite3", "sqlite":
		return DefaultSQLiteDriver, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driverName)
	}
}

// Open 打开并验证数据库连接，返回的 *sql.DB 由调用方关闭
func Open(ctx context.Context, config *ConnectionConfig) (*sql.DB, SQLDriver, error) {
	if config == nil {
		return nil, nil, fmt.Errorf("connection config is nil")
	}
	driver, err := DriverFor(config.DriverName)
	if err != nil {
		return nil, nil, err
	}

	dsn := config.ConnectionURL
	if driver == DefaultPostgreSQLDriver && config.ApplicationName != "" {
		dsn, err = withApplicationName(dsn, config.ApplicationName)
		if err != nil {
			return nil, nil, err
		}
	}

	db, err := sql.Open(driver.Name(), dsn)
	if err != nil {
		return nil, nil, err
	}

	// 配置连接池
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	// 测试连接
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, driver, nil
}

// withApplicationName 为 PostgreSQL 连接串追加 application_name
// 支持 URL 形式（postgres://...）与 key=value 形式
func withApplicationName(dsn, name string) (string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse connection url: %w", err)
		}
		q := u.Query()
		q.Set("application_name", name)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}
	pair := "application_name='" + strings.ReplaceAll(name, "'", `\'`) + "'"
	if strings.TrimSpace(dsn) == "" {
		return pair, nil
	}
	return dsn + " " + pair, nil
}
