package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"content-gateway/internal/config"
	"content-gateway/internal/downstream"
	"content-gateway/internal/handler/http/proxy"
	"content-gateway/internal/handler/http/requestid"
	"content-gateway/internal/observability/logging"
	"content-gateway/internal/observability/tracing"
	"content-gateway/internal/prober"
	"content-gateway/internal/resilience"
	pkgconfig "content-gateway/pkg/config"
)

func main() {
	logger := initLogger()

	configPath := flag.String("config", pkgconfig.GetEnvString("GATEWAY_CONFIG", ""), "path to gateway config YAML")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if len(cfg.Destinations) == 0 {
		logger.Error("no destinations configured")
		os.Exit(1)
	}

	client, err := resilience.NewClient(cfg.ResilienceDefaults(), cfg.ResilienceOverrides())
	if err != nil {
		logger.Error("failed to build resilient client", slog.Any("error", err))
		os.Exit(1)
	}

	callers := make(map[string]*downstream.Caller, len(cfg.Destinations))
	for name, dest := range cfg.Destinations {
		callers[name] = downstream.NewCaller(name, dest.BaseURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gatewaySrv := newGatewayServer(cfg.ListenAddr, client, callers, logger)
	metricsSrv := newMetricsServer(cfg.MetricsAddr, client, getVersion())

	var destinationProber *prober.Prober
	if cfg.Probe.Enabled {
		targets := make(map[string]prober.Target, len(callers))
		for name, caller := range callers {
			targets[name] = prober.Target{
				Caller:     caller,
				HealthPath: cfg.HealthPathFor(name),
			}
		}
		destinationProber, err = prober.New(client, targets, prober.Config{
			Schedule:      cfg.Probe.Schedule,
			RatePerSecond: cfg.Probe.RatePerSecond,
			Burst:         cfg.Probe.Burst,
		}, logger)
		if err != nil {
			logger.Error("failed to build prober", slog.Any("error", err))
			os.Exit(1)
		}
		if err := destinationProber.Start(ctx); err != nil {
			logger.Error("failed to start prober", slog.Any("error", err))
			os.Exit(1)
		}
		defer destinationProber.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("gateway server starting", slog.String("addr", cfg.ListenAddr))
		if err := gatewaySrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("metrics server starting", slog.String("addr", cfg.MetricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := gatewaySrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("gateway shutdown failed", slog.Any("error", err))
		}
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("gateway stopped")
}

// initLogger initializes the process-wide structured logger.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// newGatewayServer builds the public-facing server: request ID and tracing
// middleware around the proxy handler.
func newGatewayServer(addr string, client *resilience.Client, callers map[string]*downstream.Caller, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/api/", proxy.NewHandler(client, callers, logger))

	handler := requestid.Middleware(tracing.Middleware(mux))

	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// getVersion returns the application version set at build time.
func getVersion() string {
	return pkgconfig.GetEnvString("APP_VERSION", "dev")
}
