package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	solanaapi "github.com/aegis-sign/solana-api/internal/api"
	"github.com/aegis-sign/solana-api/internal/config"
	"github.com/aegis-sign/solana-api/internal/infra/listener"
	"github.com/aegis-sign/solana-api/internal/infra/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

func main() {
	cfg, err := config.Load(os.Getenv("SOLANA_API_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tracer, err := tracing.Setup(cfg.Tracing, os.Stdout)
	if err != nil {
		return err
	}
	var closers []func()
	abort := func(err error) error {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		_ = tracer.Shutdown(context.Background())
		return err
	}

	// HTTP server wiring
	mux := http.NewServeMux()
	solanaapi.NewHTTPHandler(solanaapi.Options{
		Logger:           logger,
		Metrics:          solanaapi.NewMetrics(reg),
		TransferDecimals: cfg.Token.TransferDecimals,
		MaxBodyBytes:     cfg.HTTP.MaxBodyBytes,
	}).Register(mux)
	httpSrv := &http.Server{
		Handler:      otelhttp.NewHandler(mux, "solana-api", otelhttp.WithTracerProvider(tracer.TracerProvider())),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
	httpLis, err := listener.Listen(ctx, cfg.HTTP.Addr)
	if err != nil {
		return abort(fmt.Errorf("listen http %s: %w", cfg.HTTP.Addr, err))
	}
	closers = append(closers, func() { _ = httpLis.Close() })

	var metricsSrv *http.Server
	var metricsLis net.Listener
	if cfg.Metrics.Addr != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsSrv = &http.Server{Handler: metricsMux, ReadTimeout: cfg.HTTP.ReadTimeout}
		if metricsLis, err = listener.Listen(ctx, cfg.Metrics.Addr); err != nil {
			return abort(fmt.Errorf("listen metrics %s: %w", cfg.Metrics.Addr, err))
		}
		closers = append(closers, func() { _ = metricsLis.Close() })
	}

	// gRPC health wiring
	var grpcSrv *grpc.Server
	var grpcLis net.Listener
	var health *solanaapi.HealthServer
	if cfg.GRPC.Addr != "" {
		if grpcLis, err = listener.Listen(ctx, cfg.GRPC.Addr); err != nil {
			return abort(fmt.Errorf("listen grpc %s: %w", cfg.GRPC.Addr, err))
		}
		grpcSrv = grpc.NewServer()
		health = solanaapi.RegisterHealth(grpcSrv)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", httpLis.Addr().String())
		return serveHTTP(httpSrv, httpLis)
	})
	if metricsSrv != nil {
		g.Go(func() error {
			logger.Info("metrics server listening", "addr", metricsLis.Addr().String())
			return serveHTTP(metricsSrv, metricsLis)
		})
	}
	if grpcSrv != nil {
		g.Go(func() error {
			logger.Info("gRPC health server listening", "addr", grpcLis.Addr().String())
			return grpcSrv.Serve(grpcLis)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down servers")
		health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		var errs []error
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if metricsSrv != nil {
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
			}
		}
		if grpcSrv != nil {
			grpcSrv.GracefulStop()
		}
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}

func serveHTTP(srv *http.Server, lis net.Listener) error {
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
