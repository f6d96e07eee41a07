package kumpel

import (
	"fmt"
	"regexp"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// Target 目标表：schema + 表名
type Target struct {
	Schema string
	Name   string
}

// NewTarget 创建 Target
func NewTarget(schema, name string) Target {
	return Target{Schema: schema, Name: name}
}

// QualifiedName 返回 schema.name；schema 为空时只返回表名
func (t Target) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Validate 验证 Target
func (t Target) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: table name cannot be empty", ErrInvalidTarget)
	}
	if err := validateIdentifier(t.Name); err != nil {
		return err
	}
	if t.Schema != "" {
		return validateIdentifier(t.Schema)
	}
	return nil
}

// String 字符串表示
func (t Target) String() string {
	return t.QualifiedName()
}

func validateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

func validateIdentifiers(names []string) error {
	for _, name := range names {
		if err := validateIdentifier(name); err != nil {
			return err
		}
	}
	return nil
}

// columnIndex 获取列的索引
func columnIndex(columns []string, column string) int {
	for i, col := range columns {
		if col == column {
			return i
		}
	}
	return -1
}

// validateConflictColumns 冲突列必须出现在列清单中
func validateConflictColumns(columns, conflictOn []string) error {
	for _, col := range conflictOn {
		if columnIndex(columns, col) < 0 {
			return fmt.Errorf("%w: %q is not among row columns %v", ErrConflictColumn, col, columns)
		}
	}
	return nil
}
