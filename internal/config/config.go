// Package config defines the configuration structures for connprobe. No I/O
// or parsing logic lives here, only plain data types and validation.
package config

import (
	"strings"
	"time"

	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/connprobe/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// EngineConfig tunes the batch coordinator.
type EngineConfig struct {
	// Concurrency is the worker count of the first pass.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`
	// Deadline bounds each item's wait, measured from when the wait starts.
	Deadline time.Duration `mapstructure:"deadline" yaml:"deadline" json:"deadline"`
	// Interval is the period of `serve` re-checks. Zero disables scheduling.
	Interval time.Duration `mapstructure:"interval" yaml:"interval" json:"interval"`
}

// MetricsConfig controls the Prometheus exporter.
type MetricsConfig struct {
	Enabled              bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Path                 string `mapstructure:"path" yaml:"path" json:"path"`
	Namespace            string `mapstructure:"namespace" yaml:"namespace" json:"namespace"`
	EnableProcessMetrics bool   `mapstructure:"enable_process_metrics" yaml:"enable_process_metrics" json:"enable_process_metrics"`
	EnableGoMetrics      bool   `mapstructure:"enable_go_metrics" yaml:"enable_go_metrics" json:"enable_go_metrics"`
}

// HTTPConfig holds HTTP server tunables.
type HTTPConfig struct {
	Host            string        `mapstructure:"host" yaml:"host" json:"host"`
	Port            int           `mapstructure:"port" yaml:"port" json:"port"`
	Mode            string        `mapstructure:"mode" yaml:"mode" json:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// GRPCConfig holds gRPC health server tunables.
type GRPCConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Host    string `mapstructure:"host" yaml:"host" json:"host"`
	Port    int    `mapstructure:"port" yaml:"port" json:"port"`
	// Reflection registers the gRPC reflection service.
	Reflection bool `mapstructure:"reflection" yaml:"reflection" json:"reflection"`
}

// ServerConfig groups the network surfaces started by `serve`.
type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http" yaml:"http" json:"http"`
	GRPC GRPCConfig `mapstructure:"grpc" yaml:"grpc" json:"grpc"`
}

// ConnectorConfig describes one endpoint to probe.
type ConnectorConfig struct {
	Name     string            `mapstructure:"name" yaml:"name" json:"name"`
	Kind     string            `mapstructure:"kind" yaml:"kind" json:"kind"`
	Endpoint string            `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	Username string            `mapstructure:"username" yaml:"username" json:"username"`
	Password string            `mapstructure:"password" yaml:"password" json:"-"`
	Database string            `mapstructure:"database" yaml:"database" json:"database"`
	TLS      bool              `mapstructure:"tls" yaml:"tls" json:"tls"`
	Timeout  time.Duration     `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	Options  map[string]string `mapstructure:"options" yaml:"options" json:"options"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Engine     EngineConfig       `mapstructure:"engine" yaml:"engine" json:"engine"`
	Log        logging.LogConfig  `mapstructure:"log" yaml:"log" json:"log"`
	Metrics    MetricsConfig      `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
	Server     ServerConfig       `mapstructure:"server" yaml:"server" json:"server"`
	Connectors []ConnectorConfig `mapstructure:"connectors" yaml:"connectors" json:"connectors"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

func invalid(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeConfigInvalid, format, args...)
}

// Validate performs semantic validation of the fully-populated Config and
// returns the first problem found.
func (c *Config) Validate() error {
	// Engine
	if c.Engine.Concurrency < 1 {
		return invalid("engine.concurrency must be >= 1, got %d", c.Engine.Concurrency)
	}
	if c.Engine.Deadline <= 0 {
		return invalid("engine.deadline must be positive, got %s", c.Engine.Deadline)
	}
	if c.Engine.Interval < 0 {
		return invalid("engine.interval must not be negative, got %s", c.Engine.Interval)
	}

	// Server
	if c.Server.HTTP.Port < 1 || c.Server.HTTP.Port > 65535 {
		return invalid("server.http.port %d is out of range [1, 65535]", c.Server.HTTP.Port)
	}
	switch c.Server.HTTP.Mode {
	case "debug", "release", "test":
	default:
		return invalid("server.http.mode %q is invalid; expected debug|release|test", c.Server.HTTP.Mode)
	}
	if c.Server.GRPC.Enabled {
		if c.Server.GRPC.Port < 1 || c.Server.GRPC.Port > 65535 {
			return invalid("server.grpc.port %d is out of range [1, 65535]", c.Server.GRPC.Port)
		}
		if c.Server.GRPC.Port == c.Server.HTTP.Port && c.Server.GRPC.Host == c.Server.HTTP.Host {
			return invalid("server.grpc.port %d collides with server.http.port", c.Server.GRPC.Port)
		}
	}

	// Log
	switch strings.ToLower(c.Log.Level) {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		return invalid("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return invalid("log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// Metrics
	if c.Metrics.Enabled {
		if c.Metrics.Namespace == "" {
			return invalid("metrics.namespace is required when metrics are enabled")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return invalid("metrics.path %q must start with /", c.Metrics.Path)
		}
	}

	// Connectors
	seen := make(map[string]int, len(c.Connectors))
	for i, cc := range c.Connectors {
		name := strings.TrimSpace(cc.Name)
		if name == "" {
			return invalid("connectors[%d].name is required", i)
		}
		key := strings.ToLower(name)
		if prev, dup := seen[key]; dup {
			return invalid("connectors[%d].name %q duplicates connectors[%d]", i, name, prev)
		}
		seen[key] = i
		if _, ok := connector.ParseKind(cc.Kind); !ok {
			return invalid("connectors[%d].kind %q is not supported", i, cc.Kind)
		}
		if strings.TrimSpace(cc.Endpoint) == "" {
			return invalid("connectors[%d].endpoint is required", i)
		}
		if cc.Timeout < 0 {
			return invalid("connectors[%d].timeout must not be negative", i)
		}
	}
	return nil
}

// ToSpecs converts the connector section into driver specs, in order.
func (c *Config) ToSpecs() []connector.Spec {
	specs := make([]connector.Spec, 0, len(c.Connectors))
	for _, cc := range c.Connectors {
		kind, ok := connector.ParseKind(cc.Kind)
		if !ok {
			kind = connector.Kind(strings.ToLower(strings.TrimSpace(cc.Kind)))
		}
		var opts map[string]string
		if len(cc.Options) > 0 {
			opts = make(map[string]string, len(cc.Options))
			for k, v := range cc.Options {
				opts[k] = v
			}
		}
		specs = append(specs, connector.Spec{
			Name:     strings.TrimSpace(cc.Name),
			Kind:     kind,
			Endpoint: strings.TrimSpace(cc.Endpoint),
			Username: cc.Username,
			Password: cc.Password,
			Database: cc.Database,
			TLS:      cc.TLS,
			Timeout:  cc.Timeout,
			Options:  opts,
		})
	}
	return specs
}

//Personal.AI order the ending
