package kumpel_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/rushairer/kumpel"
)

func TestDefaultConfig(t *testing.T) {
	cfg := kumpel.DefaultConfig()
	want := &kumpel.Config{
		BatchSize:  10000,
		CommitMode: kumpel.CommitPerCall,
		Strict:     true,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("default config mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("KUMPEL_BATCH_SIZE", "500")
	t.Setenv("KUMPEL_COMMIT_MODE", "batch")
	t.Setenv("KUMPEL_EXECUTION_TIMEOUT", "30s")
	t.Setenv("KUMPEL_STRICT", "false")

	cfg, err := kumpel.LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := &kumpel.Config{
		BatchSize:        500,
		CommitMode:       kumpel.CommitPerBatch,
		ExecutionTimeout: 30 * time.Second,
		Strict:           false,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigFromEnv_Fallbacks(t *testing.T) {
	t.Setenv("KUMPEL_BATCH_SIZE", "not-a-number")
	t.Setenv("KUMPEL_EXECUTION_TIMEOUT", "soon")
	t.Setenv("KUMPEL_STRICT", "maybe")
	t.Setenv("KUMPEL_COMMIT_MODE", "")

	cfg, err := kumpel.LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if diff := cmp.Diff(kumpel.DefaultConfig(), cfg); diff != "" {
		t.Fatalf("expected defaults (-want +got):\n%s", diff)
	}
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"commit_mode": {"KUMPEL_COMMIT_MODE", "sometimes"},
		"batch_size":  {"KUMPEL_BATCH_SIZE", "0"},
		"timeout":     {"KUMPEL_EXECUTION_TIMEOUT", "-1s"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := kumpel.LoadConfigFromEnv(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

func TestParseCommitMode(t *testing.T) {
	tests := []struct {
		in   string
		want kumpel.CommitMode
		ok   bool
	}{
		{"", kumpel.CommitPerCall, true},
		{"call", kumpel.CommitPerCall, true},
		{"batch", kumpel.CommitPerBatch, true},
		{"tx", kumpel.CommitPerCall, false},
	}
	for _, tt := range tests {
		got, ok := kumpel.ParseCommitMode(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ParseCommitMode(%q) = %v,%v want %v,%v", tt.in, got, ok, tt.want, tt.ok)
		}
		if ok && tt.in != "" && got.String() != tt.in {
			t.Fatalf("String() = %q, want %q", got.String(), tt.in)
		}
	}
}
