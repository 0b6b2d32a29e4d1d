// Package cli implements the connprobe command tree.
package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/connprobe/internal/application/healthcheck"
	"github.com/turtacn/connprobe/internal/config"
	"github.com/turtacn/connprobe/internal/infrastructure/connectors"
	"github.com/turtacn/connprobe/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/connprobe/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/connprobe/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
	Timeout      time.Duration
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	ConfigPath   string
	Logger       logging.Logger
	Registry     *connectors.Registry
	OutputFormat string
	Verbose      bool
	Timeout      time.Duration
}

// RootOption customises NewRootCommand.
type RootOption func(*rootSettings)

type rootSettings struct {
	registry *connectors.Registry
}

// WithRegistry replaces the built-in driver registry.
func WithRegistry(r *connectors.Registry) RootOption {
	return func(s *rootSettings) {
		if r != nil {
			s.registry = r
		}
	}
}

// NewRootCommand creates the root command with its global flags and every
// subcommand.
func NewRootCommand(ropts ...RootOption) *cobra.Command {
	settings := &rootSettings{}
	for _, o := range ropts {
		o(settings)
	}
	if settings.registry == nil {
		settings.registry = connectors.DefaultRegistry()
	}
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "connprobe",
		Short: "connprobe checks the health of configured backend connectors",
		Long: "connprobe probes databases, caches, object stores, search engines, brokers\n" +
			"and RPC endpoints concurrently, with a per-connector deadline, and reports\n" +
			"connectivity, primary and secondary health for each of them.",
		Version: versionString(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts, settings.registry)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./connprobe.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "table", "output format (text, json, table)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose output")
	pf.DurationVar(&opts.Timeout, "timeout", 0, "overall timeout of one check (0 = none)")

	cmd.AddCommand(
		newCheckCmd(),
		newListCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return cmd
}

// persistentPreRun loads config and logger, then stores the CLIContext.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions, reg *connectors.Registry) error {
	switch strings.ToLower(opts.OutputFormat) {
	case "text", "json", "table":
	default:
		return errors.InvalidParam("unsupported output format").WithDetail(opts.OutputFormat)
	}

	cfg, path, err := initConfig(opts)
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg, opts)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "logger initialization failed")
	}
	logging.SetDefault(logger)

	cliCtx := &CLIContext{
		Config:       cfg,
		ConfigPath:   path,
		Logger:       logger,
		Registry:     reg,
		OutputFormat: strings.ToLower(opts.OutputFormat),
		Verbose:      opts.Verbose,
		Timeout:      opts.Timeout,
	}
	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// initConfig loads the explicit --config file, else the first file found on
// the search path, else environment variables and defaults.
func initConfig(opts *RootOptions) (*config.Config, string, error) {
	if opts.ConfigPath != "" {
		cfg, err := config.Load(opts.ConfigPath)
		return cfg, opts.ConfigPath, err
	}

	searchPaths := []string{"./connprobe.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".connprobe", "config.yaml"))
	}
	searchPaths = append(searchPaths, "/etc/connprobe/config.yaml")

	for _, p := range searchPaths {
		if _, statErr := os.Stat(p); statErr == nil {
			cfg, err := config.Load(p)
			return cfg, p, err
		}
	}

	cfg, err := config.LoadFromEnv()
	return cfg, "", err
}

// initLogger builds the logger from the log section. Entries go to stderr
// unless configured otherwise so stdout stays machine-readable.
func initLogger(cfg *config.Config, opts *RootOptions) (logging.Logger, error) {
	logCfg := cfg.Log
	if opts.LogLevel != "" {
		logCfg.Level = opts.LogLevel
	}
	if opts.Verbose {
		logCfg.Level = logging.LevelDebug
	}
	if logCfg.OutputPaths == nil {
		logCfg.OutputPaths = []string{"stderr"}
	}
	return logging.NewLogger(logCfg)
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Internal("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// newMetrics builds the Prometheus collector when metrics are enabled.
func (c *CLIContext) newMetrics() (prometheus.MetricsCollector, *prometheus.AppMetrics, error) {
	if !c.Config.Metrics.Enabled {
		return nil, nil, nil
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            c.Config.Metrics.Namespace,
		EnableProcessMetrics: c.Config.Metrics.EnableProcessMetrics,
		EnableGoMetrics:      c.Config.Metrics.EnableGoMetrics,
	}, c.Logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "metrics initialization failed")
	}
	return collector, prometheus.NewAppMetrics(collector), nil
}

// newService resolves the configured connectors and builds the health-check
// service. metrics may be nil.
func (c *CLIContext) newService(metrics *prometheus.AppMetrics) (*healthcheck.Service, error) {
	catalog, err := c.Registry.Build(c.Config.ToSpecs())
	if err != nil {
		return nil, err
	}

	svcOpts := []healthcheck.ServiceOption{healthcheck.WithServiceLogger(c.Logger)}
	coordOpts := []healthcheck.CoordinatorOption{
		healthcheck.WithConcurrency(c.Config.Engine.Concurrency),
		healthcheck.WithDeadline(c.Config.Engine.Deadline),
		healthcheck.WithCoordinatorLogger(c.Logger),
	}
	if metrics != nil {
		svcOpts = append(svcOpts, healthcheck.WithPublisher(metrics))
		coordOpts = append(coordOpts, healthcheck.WithBatchMetrics(metrics), healthcheck.WithEngineMetrics(metrics))
	}
	return healthcheck.NewService(catalog, svcOpts, coordOpts...), nil
}

// Execute runs the command tree and reports the error on stderr.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// ExitCode maps an Execute error onto a process exit status: 0 on success,
// 2 when connectors were unhealthy, 1 otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.IsCode(err, errors.ErrCodeServiceUnavailable):
		return 2
	default:
		return 1
	}
}

//Personal.AI order the ending
