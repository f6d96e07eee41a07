package kumpel

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultBatchSize 默认批次行数
const DefaultBatchSize = 10000

// Config 写入配置
type Config struct {
	BatchSize        int           `json:"batch_size"`
	CommitMode       CommitMode    `json:"commit_mode"`
	ExecutionTimeout time.Duration `json:"execution_timeout"`
	// Strict 列名与顺序必须与首行完全一致；关闭后允许按列名对齐
	Strict bool `json:"strict"`
}

// DefaultConfig 默认写入配置
func DefaultConfig() *Config {
	return &Config{
		BatchSize:        DefaultBatchSize,
		CommitMode:       CommitPerCall,
		ExecutionTimeout: 0,
		Strict:           true,
	}
}

// LoadConfigFromEnv 从环境变量加载配置，未设置或无法解析的数值项使用默认值
//
//	KUMPEL_BATCH_SIZE         批次行数
//	KUMPEL_COMMIT_MODE        call | batch
//	KUMPEL_EXECUTION_TIMEOUT  单批次超时，如 30s
//	KUMPEL_STRICT             true | false
func LoadConfigFromEnv() (*Config, error) {
	cfg := DefaultConfig()
	cfg.BatchSize = parseIntEnv("KUMPEL_BATCH_SIZE", cfg.BatchSize)
	cfg.ExecutionTimeout = parseDurationEnv("KUMPEL_EXECUTION_TIMEOUT", cfg.ExecutionTimeout)
	cfg.Strict = parseBoolEnv("KUMPEL_STRICT", cfg.Strict)

	if value := os.Getenv("KUMPEL_COMMIT_MODE"); value != "" {
		mode, ok := ParseCommitMode(value)
		if !ok {
			return nil, fmt.Errorf("invalid KUMPEL_COMMIT_MODE %q: want call or batch", value)
		}
		cfg.CommitMode = mode
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.ExecutionTimeout < 0 {
		return fmt.Errorf("execution timeout must not be negative, got %s", c.ExecutionTimeout)
	}
	if c.CommitMode != CommitPerCall && c.CommitMode != CommitPerBatch {
		return fmt.Errorf("unknown commit mode %d", c.CommitMode)
	}
	return nil
}

func parseIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
