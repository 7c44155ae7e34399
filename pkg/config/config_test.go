package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calc.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HOST", "PORT", "GRPC_PORT", "TRACE_FILE", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:8787" || cfg.GRPCAddr() != "0.0.0.0:8788" {
		t.Errorf("addresses: %s %s", cfg.Addr(), cfg.GRPCAddr())
	}
	if !cfg.TraceEnabled() || cfg.Trace.File != "./CalcTrace.txt" || cfg.Trace.PanelSize != 1000 {
		t.Errorf("trace defaults: %+v", cfg.Trace)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestFileOverlay(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
host: 127.0.0.1
port: 9000
trace:
  enabled: false
  panel_size: 20
log_level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Host != "127.0.0.1" || cfg.Port != 9000 {
		t.Errorf("host/port: %s %d", cfg.Host, cfg.Port)
	}
	if cfg.GRPCPort != 8788 {
		t.Errorf("unset grpc_port should keep default, got %d", cfg.GRPCPort)
	}
	if cfg.TraceEnabled() {
		t.Error("trace should be disabled by file")
	}
	if cfg.Trace.File != "./CalcTrace.txt" {
		t.Errorf("unset trace.file should keep default, got %q", cfg.Trace.File)
	}
	opts := cfg.TraceOptions()
	if !opts.Disabled || opts.PanelSize != 20 {
		t.Errorf("trace options: %+v", opts)
	}
	if lvl, _ := cfg.Level(); lvl != zerolog.DebugLevel {
		t.Errorf("level: got %s", lvl)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "port: 9000\nlog_level: debug\n")
	t.Setenv("PORT", "9100")
	t.Setenv("GRPC_PORT", "9101")
	t.Setenv("TRACE_FILE", "/tmp/trace.jsonl")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9100 || cfg.GRPCPort != 9101 {
		t.Errorf("ports: %d %d", cfg.Port, cfg.GRPCPort)
	}
	if cfg.Trace.File != "/tmp/trace.jsonl" || cfg.LogLevel != "warn" {
		t.Errorf("env overlay: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		path func(t *testing.T) string
		env  map[string]string
		want string
	}{
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") },
			want: "reading config",
		},
		{
			name: "bad yaml",
			path: func(t *testing.T) string { return writeConfig(t, "port: [1") },
			want: "parsing config",
		},
		{
			name: "bad port env",
			path: func(t *testing.T) string { return "" },
			env:  map[string]string{"PORT": "eighty"},
			want: "invalid PORT",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(tt.path(t))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		want   string
	}{
		{"port zero", func(c *Config) { c.Port = 0 }, "port 0 out of range"},
		{"grpc port high", func(c *Config) { c.GRPCPort = 70000 }, "grpc_port 70000"},
		{"same ports", func(c *Config) { c.GRPCPort = c.Port }, "must differ"},
		{"negative panel", func(c *Config) { c.Trace.PanelSize = -1 }, "negative"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestSetTraceEnabled(t *testing.T) {
	cfg := Default()
	cfg.SetTraceEnabled(false)
	if cfg.TraceEnabled() {
		t.Error("expected disabled")
	}
	if !Default().TraceEnabled() {
		t.Error("SetTraceEnabled must not leak into new defaults")
	}
}
