package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/melih/lighthouse-executor/internal/adapters/docker"
	"github.com/melih/lighthouse-executor/internal/adapters/guarded"
	httpadapter "github.com/melih/lighthouse-executor/internal/adapters/http"
	"github.com/melih/lighthouse-executor/internal/breaker"
	"github.com/melih/lighthouse-executor/internal/config"
	"github.com/melih/lighthouse-executor/internal/core/executor"
	"github.com/melih/lighthouse-executor/internal/core/topology"
	"github.com/melih/lighthouse-executor/internal/logger"
	"github.com/melih/lighthouse-executor/internal/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the executor HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(os.Stdout, cfg.Log.Level)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	// 1. Observability
	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTEL.ServiceName, cfg.OTEL.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Warn("failed to shutdown tracer", "error", err)
		}
	}()

	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Warn("failed to shutdown metrics", "error", err)
		}
	}()

	// 2. Runtime, behind the shared breaker
	dockerAdapter, err := docker.NewAdapter(docker.Options{Host: cfg.Docker.Host, APIVersion: cfg.Docker.APIVersion})
	if err != nil {
		return fmt.Errorf("failed to initialize Docker adapter: %w", err)
	}
	defer dockerAdapter.Close()

	b := breaker.New(cfg.BreakerSettings(), breaker.OnStateChange(func(from, to breaker.State) {
		log.Warn("circuit breaker state changed", "from", from.String(), "to", to.String())
	}))
	runtime := guarded.New(dockerAdapter, b, log)

	// 3. Core
	resources, err := cfg.Resources()
	if err != nil {
		return err
	}
	topo := topology.NewStandard(topology.Options{
		Resources:  resources,
		Privileged: cfg.Executor.Privileged,
		Binds:      cfg.Executor.Binds,
	})
	svc, err := executor.New(runtime, topo, executor.Config{
		LauncherImage: cfg.LauncherImage(),
		Prefix:        cfg.Executor.Prefix,
	}, log)
	if err != nil {
		return err
	}

	if err := observability.RegisterStatsGauges(otel.Meter("lighthouse-executor"), svc.Stats); err != nil {
		log.Warn("failed to register stats metrics", "error", err)
	}

	// 4. HTTP
	app := httpadapter.NewApp(httpadapter.NewBuildHandler(svc, dockerAdapter, log), metricsHandler)
	return run(ctx, app, fmt.Sprintf(":%d", cfg.HTTP.Port), log)
}

// run serves app until SIGINT/SIGTERM or ctx cancellation, then shuts down
// gracefully.
func run(ctx context.Context, app *fiber.App, addr string, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", addr)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited properly")
	return nil
}
