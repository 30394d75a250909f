package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-catalog-carts/internal/carts"
	"github.com/ariefcatur/go-catalog-carts/internal/config"
	"github.com/ariefcatur/go-catalog-carts/internal/inventory"
	kafkax "github.com/ariefcatur/go-catalog-carts/internal/kafka"
	"github.com/ariefcatur/go-catalog-carts/internal/logging"
	"github.com/ariefcatur/go-catalog-carts/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	service := cfg.ServiceName + "-inventory"

	log, err := logging.New(cfg.AppEnv, cfg.LogLevel, service)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &inventory.Service{
		Cache: &redisx.CatalogCache{RDB: rdb, TTL: cfg.CacheTTL, Log: log},
		Dedup: &redisx.Dedup{RDB: rdb, Service: service},
		Log:   log,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.InventoryGroup, carts.TopicCartAssembled, cfg.InventoryWorkers, log)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("inventory consumer started",
			zap.String("group", cfg.InventoryGroup), zap.String("topic", carts.TopicCartAssembled),
			zap.Int("workers", cfg.InventoryWorkers))
		if err := cons.Start(ctx, svc.HandleCartAssembled); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer")
	cancel()
	<-done
}
