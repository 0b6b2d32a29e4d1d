package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/turtacn/connprobe/internal/engine"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultDeadline = engine.DefaultDeadline
	DefaultInterval = 30 * time.Second

	DefaultHTTPHost        = "0.0.0.0"
	DefaultHTTPPort        = 8080
	DefaultHTTPMode        = "release"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	DefaultGRPCHost = "0.0.0.0"
	DefaultGRPCPort = 9090

	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "connprobe"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// setViperDefaults registers defaults on v so CONNPROBE_* variables can
// override keys that the file does not mention.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("engine.concurrency", engine.DefaultConcurrency())
	v.SetDefault("engine.deadline", DefaultDeadline)
	v.SetDefault("engine.interval", DefaultInterval)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", DefaultMetricsPath)
	v.SetDefault("metrics.namespace", DefaultMetricsNamespace)

	v.SetDefault("server.http.host", DefaultHTTPHost)
	v.SetDefault("server.http.port", DefaultHTTPPort)
	v.SetDefault("server.http.mode", DefaultHTTPMode)
	v.SetDefault("server.http.read_timeout", DefaultReadTimeout)
	v.SetDefault("server.http.write_timeout", DefaultWriteTimeout)
	v.SetDefault("server.http.shutdown_timeout", DefaultShutdownTimeout)

	v.SetDefault("server.grpc.enabled", true)
	v.SetDefault("server.grpc.host", DefaultGRPCHost)
	v.SetDefault("server.grpc.port", DefaultGRPCPort)
}

// ApplyDefaults fills every zero-value field in cfg with its default. Values
// already set by the caller are left unchanged. Booleans are not touched:
// false is a valid explicit value.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	if cfg.Engine.Concurrency == 0 {
		cfg.Engine.Concurrency = engine.DefaultConcurrency()
	}
	if cfg.Engine.Deadline == 0 {
		cfg.Engine.Deadline = DefaultDeadline
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.HTTP.Host == "" {
		cfg.Server.HTTP.Host = DefaultHTTPHost
	}
	if cfg.Server.HTTP.Port == 0 {
		cfg.Server.HTTP.Port = DefaultHTTPPort
	}
	if cfg.Server.HTTP.Mode == "" {
		cfg.Server.HTTP.Mode = DefaultHTTPMode
	}
	if cfg.Server.HTTP.ReadTimeout == 0 {
		cfg.Server.HTTP.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.HTTP.WriteTimeout == 0 {
		cfg.Server.HTTP.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.HTTP.ShutdownTimeout == 0 {
		cfg.Server.HTTP.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.GRPC.Host == "" {
		cfg.Server.GRPC.Host = DefaultGRPCHost
	}
	if cfg.Server.GRPC.Port == 0 {
		cfg.Server.GRPC.Port = DefaultGRPCPort
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

//Personal.AI order the ending
