package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/kevin07696/poynt-sync-service/internal/app"
	"github.com/kevin07696/poynt-sync-service/internal/config"
	ordersHandler "github.com/kevin07696/poynt-sync-service/internal/handlers/orders"
	"github.com/kevin07696/poynt-sync-service/internal/handlers/router"
	webhookHandler "github.com/kevin07696/poynt-sync-service/internal/handlers/webhook"
	"github.com/kevin07696/poynt-sync-service/pkg/middleware"
	"github.com/kevin07696/poynt-sync-service/pkg/observability"
	"github.com/kevin07696/poynt-sync-service/pkg/resilience"
	"github.com/kevin07696/poynt-sync-service/pkg/shutdown"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := app.NewLogger(cfg.Environment, cfg.Observability.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting poynt sync service",
		zap.String("version", version),
		zap.String("environment", cfg.Environment),
		zap.String("secret_manager", cfg.Secrets.Backend),
		zap.Bool("kafka_enabled", cfg.Kafka.Enabled()),
	)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize service", zap.Error(err))
		return err
	}

	// Components stop in reverse registration order.
	manager := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)
	manager.RegisterNoErr("database", a.DB.Close)
	if a.Producer != nil {
		manager.RegisterCloser("kafka producer", a.Producer)
	}

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	a.DB.StartPoolMonitoring(monitorCtx, 30*time.Second)
	manager.RegisterNoErr("pool monitor", stopMonitor)

	healthChecker := observability.NewHealthChecker(cfg.Observability.HealthTimeout)
	healthChecker.Register("postgres", a.DB.HealthCheck)
	healthChecker.Register("poynt", func(context.Context) error {
		if a.Breaker.State() == resilience.StateOpen {
			return resilience.ErrCircuitOpen
		}
		return nil
	})
	readiness := &observability.Readiness{}
	metricsServer := observability.StartMetricsServer(cfg.Observability.MetricsPort, healthChecker, readiness, logger)
	manager.Register("metrics server", func(ctx context.Context) error {
		return observability.ShutdownMetricsServer(ctx, metricsServer)
	})
	logger.Info("Metrics server listening", zap.String("port", cfg.Observability.MetricsPort))

	resync := shutdown.NewPeriodicWorker("sync-resync", cfg.Sync.ResyncInterval, logger)
	resync.Start(ctx, func(ctx context.Context) {
		report, err := a.Hooks.Resync(ctx, cfg.Sync.ResyncBatch)
		if err != nil {
			logger.Error("Resync run failed", zap.Error(err))
			return
		}
		if report.Resolved+report.Failed > 0 {
			logger.Info("Resync run finished",
				zap.Int("resolved", report.Resolved),
				zap.Int("failed", report.Failed),
			)
		}
	})
	manager.Register("resync worker", resync.Shutdown)

	grpcServer, healthServer := newGRPCServer(logger)
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		_ = manager.Shutdown(ctx)
		return fmt.Errorf("listen grpc: %w", err)
	}
	go func() {
		logger.Info("gRPC health server listening", zap.String("address", grpcListener.Addr().String()))
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()
	manager.RegisterNoErr("grpc server", func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
	})

	timeouts := resilience.DefaultTimeoutConfig()
	timeouts.Shutdown = cfg.Server.ShutdownTimeout

	limiterCfg := middleware.DefaultRateLimitConfig()
	limiterCfg.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
	limiterCfg.Burst = cfg.RateLimit.Burst
	limiterCfg.TrustForwardedFor = cfg.RateLimit.TrustForwardedFor
	limiter := middleware.NewRateLimiter(limiterCfg, logger)
	manager.RegisterNoErr("rate limiter", limiter.Shutdown)

	inFlight := shutdown.NewInFlightTracker("http", logger)
	httpServer := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: router.New(router.Deps{
			Webhook:     webhookHandler.NewHandler(a.Webhooks, timeouts, logger).WithMaxBody(cfg.Webhook.MaxBodyBytes),
			Orders:      ordersHandler.NewHandler(a.Lifecycle, cfg.Server.HostToken, logger),
			RateLimiter: limiter,
			InFlight:    inFlight,
			Timeouts:    timeouts,
			Logger:      logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	manager.Register("http server", httpServer.Shutdown)
	manager.Register("in-flight requests", inFlight.Shutdown)

	if cfg.Server.HostToken == "" {
		logger.Warn("HOST_API_TOKEN is empty, /orders endpoints are unauthenticated")
	}

	readiness.SetReady(true)
	manager.RegisterNoErr("readiness", func() { readiness.SetReady(false) })

	if err := manager.WaitForSignal(ctx); err != nil {
		logger.Error("Shutdown finished with errors", zap.Error(err))
		return err
	}
	logger.Info("Servers stopped")
	return nil
}

// newGRPCServer serves only the standard health service and reflection,
// for orchestrators that probe over gRPC.
func newGRPCServer(logger *zap.Logger) (*grpc.Server, *health.Server) {
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			observability.UnaryServerInterceptor(),
			recoveryInterceptor(logger),
		),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)

	return server, healthServer
}

func recoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic recovered in gRPC handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				err = status.Error(codes.Internal, "internal server error")
			}
		}()

		return handler(ctx, req)
	}
}
