package kumpel

// ConflictStrategy defines how inserts behave on a uniqueness conflict
type ConflictStrategy int

const (
	// ConflictNone plain INSERT, conflicts fail the statement
	ConflictNone ConflictStrategy = iota
	// ConflictUpdate updates the existing row with the inserted values
	ConflictUpdate
	// ConflictIgnore skips conflicting rows
	ConflictIgnore
)

// String returns the string representation of ConflictStrategy
func (cs ConflictStrategy) String() string {
	switch cs {
	case ConflictNone:
		return "NONE"
	case ConflictUpdate:
		return "UPDATE"
	case ConflictIgnore:
		return "IGNORE"
	default:
		return "UNKNOWN"
	}
}

// CommitMode defines when a write commits
type CommitMode int

const (
	// CommitPerCall commits once after all batches of a write
	CommitPerCall CommitMode = iota
	// CommitPerBatch commits after every batch
	CommitPerBatch
)

// String returns the string representation of CommitMode
func (m CommitMode) String() string {
	switch m {
	case CommitPerCall:
		return "call"
	case CommitPerBatch:
		return "batch"
	default:
		return "unknown"
	}
}

// ParseCommitMode parses "call" or "batch"
func ParseCommitMode(s string) (CommitMode, bool) {
	switch s {
	case "call", "":
		return CommitPerCall, true
	case "batch":
		return CommitPerBatch, true
	default:
		return CommitPerCall, false
	}
}

// WriteOptions 单次写入的冲突配置
type WriteOptions struct {
	// ConflictOn 冲突列（唯一约束），非空时默认走 upsert
	ConflictOn []string
	// Strategy 冲突策略；ConflictOn 非空且为 ConflictNone 时按 ConflictUpdate 处理
	Strategy ConflictStrategy
}

func (o WriteOptions) strategy() ConflictStrategy {
	if o.Strategy == ConflictNone && len(o.ConflictOn) > 0 {
		return ConflictUpdate
	}
	return o.Strategy
}
