// Package config loads calculator settings from a YAML file and the
// environment. Command-line flags are layered on top by the caller.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/five-function-calculator/pkg/trace"
)

// Config holds every setting of the calculator server and CLI.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
	LogLevel string `yaml:"log_level"`
	Trace    Trace  `yaml:"trace"`
}

// Trace configures the diagnostic tracelog.
type Trace struct {
	// Enabled is a pointer so a file can distinguish "false" from "unset".
	Enabled   *bool  `yaml:"enabled"`
	File      string `yaml:"file"`
	PanelSize int    `yaml:"panel_size"`
}

// Default returns the built-in settings.
func Default() Config {
	enabled := true
	return Config{
		Host:     "0.0.0.0",
		Port:     8787,
		GRPCPort: 8788,
		LogLevel: "info",
		Trace: Trace{
			Enabled:   &enabled,
			File:      "./CalcTrace.txt",
			PanelSize: trace.DefaultPanelSize,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path (if path is
// not empty) and then with the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := cfg.overlayYAML(data); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := cfg.overlayEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) overlayYAML(data []byte) error {
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}
	if file.Host != "" {
		c.Host = file.Host
	}
	if file.Port != 0 {
		c.Port = file.Port
	}
	if file.GRPCPort != 0 {
		c.GRPCPort = file.GRPCPort
	}
	if file.LogLevel != "" {
		c.LogLevel = file.LogLevel
	}
	if file.Trace.Enabled != nil {
		c.Trace.Enabled = file.Trace.Enabled
	}
	if file.Trace.File != "" {
		c.Trace.File = file.Trace.File
	}
	if file.Trace.PanelSize != 0 {
		c.Trace.PanelSize = file.Trace.PanelSize
	}
	return nil
}

func (c *Config) overlayEnv(getenv func(string) string) error {
	if v := getenv("HOST"); v != "" {
		c.Host = v
	}
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v := getenv("GRPC_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GRPC_PORT %q: %w", v, err)
		}
		c.GRPCPort = port
	}
	if v := getenv("TRACE_FILE"); v != "" {
		c.Trace.File = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// TraceEnabled reports whether the tracelog starts switched on.
func (c Config) TraceEnabled() bool {
	return c.Trace.Enabled == nil || *c.Trace.Enabled
}

// SetTraceEnabled overrides the trace switch.
func (c *Config) SetTraceEnabled(on bool) {
	c.Trace.Enabled = &on
}

// Level parses LogLevel.
func (c Config) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// Validate checks ports, panel size and log level.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		errs = append(errs, fmt.Errorf("grpc_port %d out of range", c.GRPCPort))
	}
	if c.Port == c.GRPCPort {
		errs = append(errs, fmt.Errorf("port and grpc_port must differ (both %d)", c.Port))
	}
	if c.Trace.PanelSize < 0 {
		errs = append(errs, fmt.Errorf("trace.panel_size %d is negative", c.Trace.PanelSize))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// GRPCAddr is the gRPC listen address.
func (c Config) GRPCAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.GRPCPort))
}

// TraceOptions converts the trace settings for trace.Open.
func (c Config) TraceOptions() trace.Options {
	return trace.Options{
		Path:      c.Trace.File,
		PanelSize: c.Trace.PanelSize,
		Disabled:  !c.TraceEnabled(),
	}
}
