package kumpel

import (
	"context"
	"fmt"
	"iter"
	"sync"
)

// ConnNameColumn 查询结果中标记来源连接的列
const ConnNameColumn = "__conn_name"

// Source 具名查询连接集合，按注册顺序保存
type Source struct {
	mu          sync.RWMutex
	names       []string
	connections map[string]Queryer
}

// NewSource 创建 Source
func NewSource() *Source {
	return &Source{connections: make(map[string]Queryer)}
}

// AddConnection 添加连接；同名连接会被替换并保持原位置
func (s *Source) AddConnection(name string, conn Queryer) error {
	if name == "" {
		return fmt.Errorf("connection name cannot be empty")
	}
	if conn == nil {
		return fmt.Errorf("connection %q is nil", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.connections[name]; !exists {
		s.names = append(s.names, name)
	}
	s.connections[name] = conn
	return nil
}

// Names 返回连接名（注册顺序）
func (s *Source) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

type namedConn struct {
	name string
	conn Queryer
}

func (s *Source) snapshot() []namedConn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]namedConn, len(s.names))
	for i, name := range s.names {
		out[i] = namedConn{name: name, conn: s.connections[name]}
	}
	return out
}

// Query 在 Source 的每个连接上执行同一条语句
type Query struct {
	source *Source
	sql    string
	args   []any
}

// NewQuery 创建 Query
func NewQuery(source *Source, sql string, args ...any) *Query {
	return &Query{source: source, sql: sql, args: args}
}

// NewQueryFromScript 从 SQL 脚本创建 Query
func NewQueryFromScript(source *Source, path string, vars map[string]any) (*Query, error) {
	sql, err := ReadSQL(path, vars)
	if err != nil {
		return nil, err
	}
	return NewQuery(source, sql), nil
}

func (q *Query) SQL() string { return q.sql }

// Run 依次在每个连接上执行查询并惰性产出行，每行追加 __conn_name 列
// 任一连接出错时产出错误并停止
func (q *Query) Run(ctx context.Context) iter.Seq2[*Row, error] {
	return func(yield func(*Row, error) bool) {
		for _, nc := range q.source.snapshot() {
			for row, err := range queryRows(ctx, nc.conn, q.sql, q.args...) {
				if err != nil {
					yield(nil, fmt.Errorf("query on %s: %w", nc.name, err))
					return
				}
				if !yield(row.Set(ConnNameColumn, nc.name), nil) {
					return
				}
			}
		}
	}
}
