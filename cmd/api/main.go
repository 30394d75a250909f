package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-catalog-carts/internal/carts"
	"github.com/ariefcatur/go-catalog-carts/internal/catalog"
	"github.com/ariefcatur/go-catalog-carts/internal/config"
	"github.com/ariefcatur/go-catalog-carts/internal/httpx"
	kafkax "github.com/ariefcatur/go-catalog-carts/internal/kafka"
	"github.com/ariefcatur/go-catalog-carts/internal/logging"
	"github.com/ariefcatur/go-catalog-carts/internal/postgres"
	"github.com/ariefcatur/go-catalog-carts/internal/pricing"
	"github.com/ariefcatur/go-catalog-carts/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logging.New(cfg.AppEnv, cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers
	assembled := kafkax.NewProducer(cfg.KafkaBrokers, carts.TopicCartAssembled, 1024, log)
	assembled.Start(ctx)
	depleted := kafkax.NewProducer(cfg.KafkaBrokers, carts.TopicStockDepleted, 1024, log)
	depleted.Start(ctx)

	reader := &catalog.PGRepository{DB: db}
	cache := &redisx.CatalogCache{Next: reader, RDB: rdb, TTL: cfg.CacheTTL, Log: log}

	asm := &carts.Assembler{
		Catalog:  cache,
		Store:    &carts.PGUnitOfWork{Pool: db},
		Cache:    cache,
		Notifier: &carts.KafkaNotifier{Assembled: assembled, Depleted: depleted, Service: cfg.ServiceName},
		Retry: carts.RetryPolicy{
			MaxAttempts: cfg.AssemblyMaxAttempts,
			BaseDelay:   cfg.AssemblyBaseBackoff,
			MaxDelay:    cfg.AssemblyMaxBackoff,
			Retryable:   postgres.IsRetryable,
		},
		Log: log,
	}
	money := pricing.NewFormatter(cfg.CurrencySymbol)

	router := httpx.NewRouter(log)
	(&httpx.CartsHandler{
		Assembler: asm,
		Carts:     &carts.PGRepository{DB: db},
		Idem:      &redisx.Idempotency{RDB: rdb},
		Money:     money,
		Timeout:   cfg.AssemblyTimeout,
		Log:       log,
	}).Register(router)
	(&httpx.CatalogHandler{
		Service: catalog.NewService(&catalog.PGStore{Pool: db}, cache, log),
		Reader:  reader,
		Money:   money,
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	// outlast the router's request timeout so in-flight carts can publish
	ctx2, cancel2 := context.WithTimeout(context.Background(), httpx.RequestTimeout+5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warn("http shutdown incomplete", zap.Error(err))
	}
	assembled.Close()
	depleted.Close()
	assembled.WaitClosed()
	depleted.WaitClosed()
	cancel()
}
