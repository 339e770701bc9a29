// Package app builds the service's object graph from configuration. The
// server and the admin CLI share it so a replayed delivery runs through
// exactly the same engine as a live one.
package app

import (
	"context"
	"fmt"

	"github.com/kevin07696/poynt-sync-service/internal/adapters/database"
	"github.com/kevin07696/poynt-sync-service/internal/adapters/kafka"
	adapterports "github.com/kevin07696/poynt-sync-service/internal/adapters/ports"
	"github.com/kevin07696/poynt-sync-service/internal/adapters/postgres"
	"github.com/kevin07696/poynt-sync-service/internal/adapters/poynt"
	"github.com/kevin07696/poynt-sync-service/internal/config"
	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/services/events"
	"github.com/kevin07696/poynt-sync-service/internal/services/orders"
	"github.com/kevin07696/poynt-sync-service/internal/services/ordersync"
	"github.com/kevin07696/poynt-sync-service/internal/services/reconciliation"
	"github.com/kevin07696/poynt-sync-service/internal/services/resolver"
	"github.com/kevin07696/poynt-sync-service/internal/services/webhook"
	pkghttp "github.com/kevin07696/poynt-sync-service/pkg/http"
	"github.com/kevin07696/poynt-sync-service/pkg/resilience"
	"github.com/kevin07696/poynt-sync-service/pkg/security"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// App holds the wired services
type App struct {
	Config  *config.Config
	DB      *database.PostgreSQLAdapter
	Secrets adapterports.SecretManagerAdapter
	Gateway *poynt.Gateway
	Breaker *resilience.CircuitBreaker

	Orders     *postgres.OrderRepository
	Refunds    *postgres.RefundRepository
	Deliveries *postgres.DeliveryRepository
	Failures   *postgres.SyncFailureRepository

	Bus       *events.Bus
	Lifecycle *orders.Service
	Engine    *reconciliation.Engine
	Webhooks  *webhook.Service
	Sync      *ordersync.Service
	Hooks     *ordersync.HookAdapter

	// Producer is nil when Kafka forwarding is disabled
	Producer *kafka.Producer
}

// NewLogger returns a development logger outside production, else a JSON
// logger at the configured level.
func NewLogger(environment, level string) (*zap.Logger, error) {
	if environment != "production" {
		return zap.NewDevelopment()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapCfg.Build()
}

// New connects to the database and external services and wires every
// component. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg}

	dbCfg := database.DefaultPostgreSQLConfig(cfg.Database.URL())
	dbCfg.MaxConns = cfg.Database.MaxConns
	dbCfg.MinConns = cfg.Database.MinConns
	db, err := database.NewPostgreSQLAdapter(ctx, dbCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	a.DB = db

	sm, err := NewSecretManager(ctx, cfg.Secrets, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("secret manager: %w", err)
	}
	a.Secrets = sm

	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(kafka.Config{
			ClientID:    cfg.Kafka.ClientID,
			Brokers:     cfg.Kafka.Brokers,
			MaxAttempts: cfg.Kafka.MaxAttempts,
		}, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Producer = producer
	}

	a.wire(logger)
	return a, nil
}

func (a *App) wire(logger *zap.Logger) {
	cfg := a.Config
	exec := postgres.NewDBExecutor(a.DB.Pool())

	a.Orders = postgres.NewOrderRepository(exec)
	a.Refunds = postgres.NewRefundRepository(exec)
	a.Deliveries = postgres.NewDeliveryRepository(exec)
	a.Failures = postgres.NewSyncFailureRepository(exec)

	poyntCfg := poynt.DefaultConfig()
	poyntCfg.BaseURL = cfg.Poynt.BaseURL
	poyntCfg.BusinessID = cfg.Poynt.BusinessID
	poyntCfg.ApplicationID = cfg.Poynt.ApplicationID
	poyntCfg.PrivateKeyPath = cfg.Poynt.PrivateKeyPath
	poyntCfg.Timeout = cfg.Poynt.Timeout
	if cfg.Poynt.APIVersion != "" {
		poyntCfg.APIVersion = cfg.Poynt.APIVersion
	}

	httpClient := pkghttp.NewClient(pkghttp.WithTimeout(poyntCfg.Timeout))
	adapterLogger := security.NewZapLogger(logger)
	tokens := poynt.NewTokenSource(poyntCfg, httpClient, a.Secrets, adapterLogger)
	a.Breaker = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())
	a.Gateway = poynt.NewGateway(poyntCfg, httpClient, tokens, a.Breaker, adapterLogger)

	a.Bus = events.NewBus(logger)
	a.Lifecycle = orders.NewService(exec, a.Orders, a.Refunds, a.Bus, nil, logger)
	res := resolver.New(a.Orders, a.Refunds, domain.ProviderPoynt, logger)
	a.Engine = reconciliation.NewEngine(exec, a.Gateway, a.Orders, a.Lifecycle, res, a.Bus, logger)

	verifier := webhook.NewVerifier(a.Secrets, cfg.Webhook.SecretPath, cfg.Webhook.PreviousSecretVersion, logger)
	orderHandler := webhook.NewOrderHandler(a.Gateway, res, a.Lifecycle, a.Orders, logger)
	dispatcher := webhook.NewDispatcher(verifier, a.Engine, orderHandler, logger)
	journal := webhook.NewJournal(a.Deliveries, cfg.Dedup.TTL, logger)
	a.Webhooks = webhook.NewService(dispatcher, journal, logger)

	a.Sync = ordersync.NewService(exec, a.Gateway, a.Orders, a.Refunds, logger)
	a.Hooks = ordersync.NewHookAdapter(a.Sync, a.Failures, logger)
	a.Hooks.Register(a.Bus)

	if a.Producer != nil {
		events.NewForwarder(a.Producer, cfg.Kafka.Topic, logger).Register(a.Bus)
	}
}

// Close releases the producer and the pool
func (a *App) Close() {
	if a.Producer != nil {
		_ = a.Producer.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
