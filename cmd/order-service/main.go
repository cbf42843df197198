package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	sagasqlite "github.com/jcmexdev/storefront-orders/internal/coordinator/sagalog/sqlite"
	"github.com/jcmexdev/storefront-orders/internal/order-service/adapters/idempotency"
	"github.com/jcmexdev/storefront-orders/internal/order-service/adapters/memory"
	"github.com/jcmexdev/storefront-orders/internal/order-service/adapters/mongodb"
	"github.com/jcmexdev/storefront-orders/internal/order-service/adapters/notify"
	"github.com/jcmexdev/storefront-orders/internal/order-service/app"
	"github.com/jcmexdev/storefront-orders/internal/order-service/infra/httpx"
	paymentservice "github.com/jcmexdev/storefront-orders/internal/payment-service/app"
	"github.com/jcmexdev/storefront-orders/internal/pkg/config"
	"github.com/jcmexdev/storefront-orders/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := telemetry.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("order service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shutdown, err := telemetry.SetupTracer(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initialise tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", "error", err)
		}
	}()

	deps := app.Dependencies{Logger: logger}
	supportsTx, closeStore, err := openStore(ctx, cfg, &deps, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	bus := notify.NewBus(logger)
	g, gctx := errgroup.WithContext(ctx)

	sinks := []notify.Sink{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}

		deps.Claimer = idempotency.NewRedisClaimer(rdb, cfg.Tracing.ServiceName)
		sinks = append(sinks, notify.Sink{Name: "redis", Notifier: notify.NewRedisPublisher(rdb, cfg.Redis.Channel)})

		// Every replica relays the shared channel into its own bus, so SSE
		// clients see events placed on any instance.
		relay := notify.NewRedisRelay(rdb, cfg.Redis.Channel, bus, logger)
		g.Go(func() error { return relay.Run(gctx) })
		logger.Info("redis enabled", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
	} else {
		sinks = append(sinks, notify.Sink{Name: "bus", Notifier: bus})
	}
	if len(cfg.Kafka.Brokers) > 0 {
		writer := notify.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer writer.Close()
		sinks = append(sinks, notify.Sink{Name: "kafka", Notifier: notify.NewKafkaPublisher(writer)})
		logger.Info("kafka enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	deps.Notifier = notify.NewMulti(sinks...)

	stripe := paymentservice.NewStripeGateway(paymentservice.StripeConfig{
		SecretKey: cfg.Payment.StripeSecretKey,
		BaseURL:   cfg.Payment.StripeBaseURL,
		Timeout:   cfg.Payment.Timeout,
	})
	if stripe.Enabled() {
		deps.Gateway = paymentservice.NewBreakerGateway("stripe", stripe, logger)
	} else {
		deps.Gateway = paymentservice.Disabled{}
		logger.Warn("stripe secret key not set, online payments disabled")
	}

	if cfg.SagaLogPath != "" {
		repo, err := sagasqlite.Open(cfg.SagaLogPath)
		if err != nil {
			return fmt.Errorf("open saga log: %w", err)
		}
		defer repo.Close()
		deps.SagaLog = repo
	}

	svc := app.NewOrderService(deps, app.Config{
		SupportsTransactions: supportsTx,
		IdempotencyWindow:    cfg.Idempotency.Window,
		InFlightWait:         cfg.Idempotency.InFlightWait,
		NotifyTimeout:        cfg.NotifyTimeout,
		Currency:             cfg.Payment.Currency,
		Pricing:              app.Pricing{Shipping: cfg.Pricing.Shipping, TaxRate: cfg.Pricing.TaxRate},
	})

	router := httpx.NewRouter(
		httpx.NewHandler(svc, logger),
		httpx.NewEventsHandler(bus, httpx.DefaultHeartbeat, logger),
	)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, "order-service"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info("order service HTTP running", "addr", cfg.HTTPAddr, "mode", svc.Mode())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := svc.Flush(shutdownCtx); err != nil {
			logger.Warn("pending notifications dropped at shutdown", "error", err)
		}
		return nil
	})

	return g.Wait()
}

// openStore fills the inventory, order and transaction dependencies and
// decides whether placements run inside a transaction.
func openStore(ctx context.Context, cfg config.Config, deps *app.Dependencies, logger *slog.Logger) (bool, func(), error) {
	if cfg.Store == "memory" {
		store := memory.NewStore()
		deps.Inventory, deps.Orders, deps.Transactor = store, store, store
		return cfg.TxMode != config.TxOff, func() {}, nil
	}

	db, err := mongodb.ConnectMongoDB(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		return false, nil, err
	}
	closeFn := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Client().Disconnect(disconnectCtx); err != nil {
			logger.Error("mongodb disconnect error", "error", err)
		}
	}

	products := mongodb.NewProductStore(db)
	orders := mongodb.NewOrderStore(db)
	if err := products.CreateIndexes(ctx); err != nil {
		closeFn()
		return false, nil, fmt.Errorf("create product indexes: %w", err)
	}
	if err := orders.CreateIndexes(ctx); err != nil {
		closeFn()
		return false, nil, fmt.Errorf("create order indexes: %w", err)
	}
	deps.Inventory, deps.Orders, deps.Transactor = products, orders, mongodb.NewTransactor(db)

	supportsTx := cfg.TxMode == config.TxOn
	if cfg.TxMode == config.TxAuto {
		supportsTx, err = mongodb.SupportsTransactions(ctx, db)
		if err != nil {
			logger.Warn("transaction probe failed, using fallback placement", "error", err)
			supportsTx = false
		}
	}
	logger.Info("mongodb connected", "database", cfg.MongoDB.Database, "transactions", supportsTx)
	return supportsTx, closeFn, nil
}
