package kumpel

import (
	"fmt"
	"iter"
	"sort"
	"strings"
	"time"
)

// Row 有序的一行数据：列名 -> 值，保持 Set 的先后顺序
// 零值可直接使用
type Row struct {
	columns []string
	values  []any
	index   map[string]int
}

// NewRow creates an empty row
func NewRow() *Row {
	return &Row{index: make(map[string]int)}
}

// RowFromMap 按给定列顺序从 map 构建行；未指定列时按列名排序
func RowFromMap(m map[string]any, columns ...string) *Row {
	if len(columns) == 0 {
		columns = make([]string, 0, len(m))
		for k := range m {
			columns = append(columns, k)
		}
		sort.Strings(columns)
	}
	r := &Row{
		columns: make([]string, 0, len(columns)),
		values:  make([]any, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, col := range columns {
		r.Set(col, m[col])
	}
	return r
}

// Set sets a value for the given column; an existing column keeps its position
func (r *Row) Set(column string, value any) *Row {
	if i, ok := r.index[column]; ok {
		r.values[i] = value
		return r
	}
	if r.index == nil {
		r.index = make(map[string]int)
	}
	r.index[column] = len(r.columns)
	r.columns = append(r.columns, column)
	r.values = append(r.values, value)
	return r
}

func (r *Row) SetString(column, value string) *Row {
	return r.Set(column, value)
}

func (r *Row) SetInt64(column string, value int64) *Row {
	return r.Set(column, value)
}

func (r *Row) SetFloat64(column string, value float64) *Row {
	return r.Set(column, value)
}

func (r *Row) SetBool(column string, value bool) *Row {
	return r.Set(column, value)
}

func (r *Row) SetTime(column string, value time.Time) *Row {
	return r.Set(column, value)
}

// SetNull 设置 SQL NULL
func (r *Row) SetNull(column string) *Row {
	return r.Set(column, nil)
}

// Get gets a value for the given column
func (r *Row) Get(column string) (any, bool) {
	i, ok := r.index[column]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// GetString gets a string value for the given column
func (r *Row) GetString(column string) string {
	value, ok := r.Get(column)
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return fmt.Sprintf("%v", value)
}

// GetInt64 gets an int64 value for the given column
func (r *Row) GetInt64(column string) int64 {
	value, _ := r.Get(column)
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// GetFloat64 gets a float64 value for the given column
func (r *Row) GetFloat64(column string) float64 {
	value, _ := r.Get(column)
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0.0
}

// GetBool gets a bool value for the given column
func (r *Row) GetBool(column string) bool {
	value, _ := r.Get(column)
	switch v := value.(type) {
	case bool:
		return v
	case int64:
		return v != 0
	}
	return false
}

// Columns 返回列名副本
func (r *Row) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Values 返回值副本，顺序与 Columns 一致
func (r *Row) Values() []any {
	out := make([]any, len(r.values))
	copy(out, r.values)
	return out
}

// Len 列数
func (r *Row) Len() int {
	return len(r.columns)
}

// hasColumns 列名与顺序完全一致
func (r *Row) hasColumns(columns []string) bool {
	if len(r.columns) != len(columns) {
		return false
	}
	for i, col := range columns {
		if r.columns[i] != col {
			return false
		}
	}
	return true
}

// Clone creates a copy of the row
func (r *Row) Clone() *Row {
	clone := &Row{
		columns: r.Columns(),
		values:  r.Values(),
		index:   make(map[string]int, len(r.index)),
	}
	for k, v := range r.index {
		clone.index[k] = v
	}
	return clone
}

// String returns a string representation of the row
func (r *Row) String() string {
	var b strings.Builder
	b.WriteString("Row{")
	for i, col := range r.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", col, r.values[i])
	}
	b.WriteString("}")
	return b.String()
}

// SliceRows 把切片包装成单次遍历的行序列
func SliceRows(rows []*Row) iter.Seq2[*Row, error] {
	return func(yield func(*Row, error) bool) {
		for _, row := range rows {
			if !yield(row, nil) {
				return
			}
		}
	}
}

// MapRows 把 map 切片按固定列顺序转换为行序列
// map 缺少任一声明列时产出 ErrColumnMismatch 并停止；值为 nil 的键写入 NULL
func MapRows(columns []string, data []map[string]any) iter.Seq2[*Row, error] {
	return func(yield func(*Row, error) bool) {
		for i, m := range data {
			for _, col := range columns {
				if _, ok := m[col]; !ok {
					yield(nil, fmt.Errorf("%w: map %d lacks column %q", ErrColumnMismatch, i, col))
					return
				}
			}
			if !yield(RowFromMap(m, columns...), nil) {
				return
			}
		}
	}
}

// TupleRows 按表头把值元组转换为行序列
// 元组长度与表头不一致时产出 ErrColumnMismatch 并停止
func TupleRows(header []string, tuples iter.Seq[[]any]) iter.Seq2[*Row, error] {
	return func(yield func(*Row, error) bool) {
		if len(header) == 0 {
			yield(nil, ErrNoColumns)
			return
		}
		seen := make(map[string]struct{}, len(header))
		for _, col := range header {
			if _, dup := seen[col]; dup {
				yield(nil, fmt.Errorf("%w: duplicate column %q in header", ErrColumnMismatch, col))
				return
			}
			seen[col] = struct{}{}
		}

		i := 0
		for tuple := range tuples {
			if len(tuple) != len(header) {
				yield(nil, fmt.Errorf("%w: tuple %d has %d values, header has %d",
					ErrColumnMismatch, i, len(tuple), len(header)))
				return
			}
			row := &Row{
				columns: make([]string, len(header)),
				values:  make([]any, len(header)),
				index:   make(map[string]int, len(header)),
			}
			copy(row.columns, header)
			copy(row.values, tuple)
			for j, col := range header {
				row.index[col] = j
			}
			if !yield(row, nil) {
				return
			}
			i++
		}
	}
}
