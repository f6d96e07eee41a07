package kumpel

import (
	"context"
	"fmt"
)

// Database 同一 schema 下的表集合
type Database struct {
	session Session
	driver  SQLDriver
	schema  string
	config  *Config
	opts    []func(*Table) *Table
}

// NewDatabase 创建 Database；schema 为空时表名不加限定
func NewDatabase(session Session, driver SQLDriver, schema string) *Database {
	return &Database{
		session: session,
		driver:  driver,
		schema:  schema,
	}
}

// WithConfig 之后创建的 Table 都应用该配置
func (d *Database) WithConfig(cfg *Config) *Database {
	d.config = cfg
	return d
}

// WithMetricsReporter 之后创建的 Table 都使用该报告器
func (d *Database) WithMetricsReporter(reporter MetricsReporter) *Database {
	d.opts = append(d.opts, func(t *Table) *Table { return t.WithMetricsReporter(reporter) })
	return d
}

func (d *Database) Schema() string { return d.schema }

// Table 返回 schema 下的表
func (d *Database) Table(name string) *Table {
	t := NewTable(d.session, d.driver, NewTarget(d.schema, name)).WithConfig(d.config)
	for _, opt := range d.opts {
		t = opt(t)
	}
	return t
}

// CreateSchema CREATE SCHEMA IF NOT EXISTS
func (d *Database) CreateSchema(ctx context.Context, name string) error {
	if !d.driver.SupportsSchemas() {
		return fmt.Errorf("%w: %s has no CREATE SCHEMA", ErrUnsupported, d.driver.Name())
	}
	if err := validateIdentifier(name); err != nil {
		return err
	}
	if _, err := d.session.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+name); err != nil {
		return fmt.Errorf("create schema %s: %w", name, err)
	}
	return nil
}
