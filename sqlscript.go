package kumpel

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ReadSQL 读取 SQL 脚本并替换 {name} 占位；切片值以 ", " 连接
func ReadSQL(path string, vars map[string]any) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read sql script: %w", err)
	}
	return RenderSQL(string(content), vars), nil
}

// RenderSQL 对 SQL 文本做 {name} 替换
func RenderSQL(sql string, vars map[string]any) string {
	if len(vars) == 0 {
		return sql
	}
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	oldnew := make([]string, 0, 2*len(vars))
	for _, name := range names {
		oldnew = append(oldnew, "{"+name+"}", templateValue(vars[name]))
	}
	return strings.NewReplacer(oldnew...).Replace(sql)
}

func templateValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, len(val))
		for i, p := range val {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ", ")
	case []int:
		parts := make([]string, len(val))
		for i, p := range val {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}
