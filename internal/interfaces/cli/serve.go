package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/connprobe/internal/config"
	"github.com/turtacn/connprobe/internal/infrastructure/monitoring/logging"
	grpcsrv "github.com/turtacn/connprobe/internal/interfaces/grpc"
	httpsrv "github.com/turtacn/connprobe/internal/interfaces/http"
	"github.com/turtacn/connprobe/internal/interfaces/http/handlers"
)

type serveOptions struct {
	interval time.Duration
	httpPort int
	grpcPort int
	noGRPC   bool
	noWatch  bool
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled checks and expose them over HTTP and gRPC",
		Long: "Run a full check every interval and serve the latest report on the REST\n" +
			"API, the Prometheus endpoint and the standard gRPC health service.\n" +
			"The config file is watched and connector changes apply to the next batch.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := *cliCtx.Config
			if cmd.Flags().Changed("interval") {
				cfg.Engine.Interval = opts.interval
			}
			if cmd.Flags().Changed("http-port") {
				cfg.Server.HTTP.Port = opts.httpPort
			}
			if cmd.Flags().Changed("grpc-port") {
				cfg.Server.GRPC.Port = opts.grpcPort
			}
			if opts.noGRPC {
				cfg.Server.GRPC.Enabled = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			cliCtx.Config = &cfg

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cliCtx, !opts.noWatch)
		},
	}
	f := cmd.Flags()
	f.DurationVar(&opts.interval, "interval", config.DefaultInterval, "time between scheduled checks")
	f.IntVar(&opts.httpPort, "http-port", config.DefaultHTTPPort, "HTTP listen port")
	f.IntVar(&opts.grpcPort, "grpc-port", config.DefaultGRPCPort, "gRPC listen port")
	f.BoolVar(&opts.noGRPC, "no-grpc", false, "do not start the gRPC health server")
	f.BoolVar(&opts.noWatch, "no-watch", false, "do not reload connectors when the config file changes")
	return cmd
}

// runServe blocks until ctx ends or a listener fails. Listener errors are
// returned; a clean shutdown returns nil.
func runServe(ctx context.Context, cliCtx *CLIContext, watch bool) error {
	cfg := cliCtx.Config
	logger := cliCtx.Logger.Named("serve")

	collector, metrics, err := cliCtx.newMetrics()
	if err != nil {
		return err
	}
	svc, err := cliCtx.newService(metrics)
	if err != nil {
		return err
	}

	var grpcServer *grpcsrv.Server
	if cfg.Server.GRPC.Enabled {
		gopts := []grpcsrv.Option{grpcsrv.WithLogger(cliCtx.Logger)}
		if metrics != nil {
			gopts = append(gopts, grpcsrv.WithMetrics(metrics))
		}
		grpcServer, err = grpcsrv.NewServer(&cfg.Server.GRPC, gopts...)
		if err != nil {
			return err
		}
		svc.OnReport(grpcServer.Publish)
	}

	routerCfg := httpsrv.RouterConfig{
		HealthHandler: handlers.NewHealthHandler(Version, svc),
		CheckHandler:  handlers.NewCheckHandler(svc, cfg.Server.HTTP.WriteTimeout),
		Logger:        cliCtx.Logger,
		Mode:          cfg.Server.HTTP.Mode,
	}
	if collector != nil {
		routerCfg.Metrics = metrics
		routerCfg.MetricsHandler = collector.Handler()
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	httpServer := httpsrv.NewServer(cfg.Server.HTTP, httpsrv.NewRouter(routerCfg), cliCtx.Logger)

	if watch && cliCtx.ConfigPath != "" {
		err := config.Watch(cliCtx.ConfigPath, func(next *config.Config) {
			catalog, err := cliCtx.Registry.Build(next.ToSpecs())
			if err != nil {
				logger.Warn("config reload rejected, keeping previous connectors", logging.Err(err))
				return
			}
			svc.SetCatalog(catalog)
			if grpcServer != nil {
				grpcServer.ForgetMissing(catalog.Names())
			}
			logger.Info("connectors reloaded", logging.Int("connectors", catalog.Len()))
		}, config.WithWatchErrorHandler(func(err error) {
			logger.Warn("config reload failed", logging.Err(err))
		}))
		if err != nil {
			logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	logger.Info("connprobe serving",
		logging.Int("connectors", len(cfg.Connectors)),
		logging.Duration("interval", cfg.Engine.Interval),
		logging.Bool("grpc", grpcServer != nil))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpServer.Start)
	if grpcServer != nil {
		g.Go(func() error {
			// Serve after a shutdown has begun reports ErrServerStopped.
			if err := grpcServer.Start(); err != nil && gctx.Err() == nil {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		svc.Schedule(gctx, cfg.Engine.Interval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		stopCtx := context.Background()
		if err := httpServer.Stop(stopCtx); err != nil {
			logger.Warn("HTTP shutdown", logging.Err(err))
		}
		if grpcServer != nil {
			if err := grpcServer.Stop(stopCtx); err != nil {
				logger.Warn("gRPC shutdown", logging.Err(err))
			}
		}
		return nil
	})
	runErr := g.Wait()

	logger.Info("connprobe stopped")
	return runErr
}

//Personal.AI order the ending
