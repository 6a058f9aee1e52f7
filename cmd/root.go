// Package cmd wires tetralog's components into a runnable cobra command:
// load config, stand up the Frame Decoder/Broker/Call Registry/Media
// Router/Control API/persistence/trace collaborators, and run until a
// shutdown signal arrives.
//
// Grounded on DMRHub's cmd/root.go: the same NewCommand/runRoot/loadConfig/
// setupLogger/setupTracing/startBackgroundServices shape,
// generalized from DMRHub's repeater-server graph to tetralog's
// collector->broker->registry->router->control graph.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/USA-RedDragon/configulator"
	"github.com/lmittmann/tint"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tetrahub/tetralog/internal/broker"
	"github.com/tetrahub/tetralog/internal/collector"
	"github.com/tetrahub/tetralog/internal/config"
	"github.com/tetrahub/tetralog/internal/control"
	"github.com/tetrahub/tetralog/internal/media"
	"github.com/tetrahub/tetralog/internal/metrics"
	"github.com/tetrahub/tetralog/internal/persistence"
	"github.com/tetrahub/tetralog/internal/pprof"
	"github.com/tetrahub/tetralog/internal/registry"
	"github.com/tetrahub/tetralog/internal/trace"
)

func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tetralog",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:              runRoot,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	cmd.PersistentFlags().Bool("open-console", false, "open the Control API's status page in a browser once it is listening")
	return cmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	fmt.Printf("tetralog - %s (%s)\n", cmd.Annotations["version"], cmd.Annotations["commit"])

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cleanup, err := setupTracing(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup tracing: %w", err)
	}
	defer func() {
		if err := cleanup(ctx); err != nil {
			slog.Error("Failed to shutdown tracer", "error", err)
		}
	}()

	startBackgroundServices(cfg)

	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.shutdown(ctx)

	if err := app.start(ctx); err != nil {
		return err
	}

	if openConsole, _ := cmd.Flags().GetBool("open-console"); openConsole {
		url := fmt.Sprintf("http://%s:%d/api/v1/ping", cfg.Control.Bind, cfg.Control.Port)
		if err := browser.OpenURL(url); err != nil {
			slog.Error("Failed to open browser, please open "+url+" manually", "error", err)
		}
	}

	setupShutdownHandlers(ctx, app)
	return nil
}

// app holds every running collaborator so shutdown can tear them down in
// the reverse order they were started.
type app struct {
	m              *metrics.Metrics
	b              broker.Broker
	reg            *registry.Registry
	router         *media.Router
	col            *collector.Collector
	controlServer  *control.Server
	persistSink    *persistence.GormSink
	traceFile      *trace.RotatingFile
	traceHub       *trace.Hub
	runCancel      context.CancelFunc
	sweepFrequency time.Duration
}

// buildApp constructs the full component graph without starting any
// network listeners beyond the ones Listen/Open require up front.
//
// The Call Registry's onRemove hook needs the Media Router, and the Media
// Router's constructor needs the Call Registry, so router is wired in via
// a forwarding closure captured by reference and assigned once both exist
// (the two are otherwise impossible to construct in either order).
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	m := metrics.NewMetrics()

	b, err := broker.Make(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to construct broker: %w", err)
	}

	var router *media.Router
	reg := registry.New(cfg.Media.CallInactivityPeriod, m, func(call *registry.LiveCall) {
		if router != nil {
			router.ReleaseCall(call)
		}
	})

	router, err = media.NewRouter(cfg.Media, b, reg, m)
	if err != nil {
		return nil, fmt.Errorf("failed to construct media router: %w", err)
	}

	col, err := collector.Listen(cfg.Collector)
	if err != nil {
		return nil, fmt.Errorf("failed to bind collector socket: %w", err)
	}
	col.Wire(b, reg, m)

	controlServer := control.NewServer(cfg.Control, cfg.Metrics.OTLPEndpoint != "", reg, router)

	a := &app{
		m:              m,
		b:              b,
		reg:            reg,
		router:         router,
		col:            col,
		controlServer:  controlServer,
		sweepFrequency: cfg.Media.MaintenanceFrequency,
	}

	if cfg.Persistence.Enabled {
		sink, err := persistence.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open persistence store: %w", err)
		}
		a.persistSink = sink
	}

	if cfg.Trace.Enabled {
		f, err := trace.OpenRotatingFile(cfg.Trace.Path, cfg.Trace.RotateMaxBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace file: %w", err)
		}
		a.traceFile = f
		a.traceHub = trace.NewHub()
	}

	return a, nil
}

// start launches every background loop and the Control API listener,
// supervised by one errgroup (mirroring DMRHub's g.Go server-start group,
// generalized here to long-running loops rather than one-shot starts). Only
// the Control API goroutine returns an error; the group's first error is
// logged once every goroutine in the group has returned, which for the
// context-bound loops means after shutdown cancels them.
func (a *app) start(ctx context.Context) error {
	collectorCtx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel

	g := new(errgroup.Group)

	g.Go(func() error {
		a.col.Run(collectorCtx)
		return nil
	})
	if err := a.col.ScheduleSweep(a.sweepFrequency); err != nil {
		slog.Error("Failed to schedule inactivity sweep", "error", err)
	}

	if a.persistSink != nil {
		g.Go(func() error {
			persistence.Run(collectorCtx, a.b, a.persistSink)
			return nil
		})
	}
	if a.traceFile != nil {
		g.Go(func() error {
			trace.Run(collectorCtx, a.b, a.traceFile, a.traceHub)
			return nil
		})
	}

	g.Go(func() error {
		if err := a.controlServer.Start(); err != nil {
			return fmt.Errorf("control API: %w", err)
		}
		return nil
	})

	go func() {
		if err := g.Wait(); err != nil {
			slog.Error("A background collaborator exited with an error", "error", err)
		}
	}()

	return nil
}

// shutdown tears down every collaborator, best-effort, logging failures
// rather than aborting partway through.
func (a *app) shutdown(ctx context.Context) {
	if a.runCancel != nil {
		a.runCancel()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := a.controlServer.Stop(shutdownCtx); err != nil {
		slog.Error("Failed to stop control API", "error", err)
	}
	if err := a.col.Close(); err != nil {
		slog.Error("Failed to close collector", "error", err)
	}
	if err := a.router.Close(); err != nil {
		slog.Error("Failed to close media router", "error", err)
	}
	if a.traceFile != nil {
		if err := a.traceFile.Close(); err != nil {
			slog.Error("Failed to close trace file", "error", err)
		}
	}
	if err := a.b.Close(); err != nil {
		slog.Error("Failed to close broker", "error", err)
	}
}

// loadConfig loads the configuration from context.
func loadConfig(ctx context.Context) (*config.Config, error) {
	c, err := configulator.FromContext[config.Config](ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get config from context: %w", err)
	}

	cfg, err := c.LoadWithoutValidation()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// setupLogger configures the structured logger.
func setupLogger(cfg *config.Config) {
	var logger *slog.Logger
	switch cfg.LogLevel {
	case config.LogLevelDebug:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug}))
	case config.LogLevelInfo:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	case config.LogLevelWarn:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))
	case config.LogLevelError:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelError}))
	default:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	}
	slog.SetDefault(logger)
}

// setupTracing initializes OpenTelemetry tracing if configured. When
// tracing is not configured it returns a no-op cleanup function.
func setupTracing(cfg *config.Config) (func(context.Context) error, error) {
	if cfg.Metrics.OTLPEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	return initTracer(cfg)
}

// startBackgroundServices starts the metrics and pprof servers.
func startBackgroundServices(cfg *config.Config) {
	go func() {
		if err := metrics.CreateMetricsServer(cfg); err != nil {
			slog.Error("Metrics server stopped", "error", err)
		}
	}()
	go pprof.CreatePProfServer(cfg)
}

// setupShutdownHandlers blocks until SIGINT/SIGTERM/SIGQUIT/SIGHUP is
// received, then runs app.shutdown itself and exits via os.Exit, so the
// calls deferred in runRoot do not run.
func setupShutdownHandlers(ctx context.Context, a *app) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	sig := <-sigCh
	slog.Error("Shutting down due to signal", "signal", sig)

	wg := new(sync.WaitGroup)
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.shutdown(ctx)
	}()

	const timeout = 15 * time.Second
	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()
	select {
	case <-done:
		slog.Info("All components stopped, shutting down gracefully")
		os.Exit(0)
	case <-time.After(timeout):
		slog.Error("Shutdown timed out, forcing exit")
		os.Exit(1)
	}
}

func initTracer(cfg *config.Config) (func(context.Context) error, error) {
	exporter, err := otlptrace.New(
		context.Background(),
		otlptracegrpc.NewClient(
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(cfg.Metrics.OTLPEndpoint),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	resources, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", "tetralog"),
			attribute.String("library.language", "go"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resources: %w", err)
	}

	otel.SetTracerProvider(
		sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(resources),
		),
	)
	return exporter.Shutdown, nil
}
