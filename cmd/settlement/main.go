package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/config"
	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/logx"
	"github.com/ariefcatur/go-marketplace/internal/orders"
	"github.com/ariefcatur/go-marketplace/internal/postgres"
	"github.com/ariefcatur/go-marketplace/internal/pricing"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
	"github.com/ariefcatur/go-marketplace/internal/settlement"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	name := cfg.ServiceName + "-settlement"
	log, err := logx.New(name, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	for _, w := range cfg.Warnings {
		log.Warn("config", zap.String("detail", w))
	}
	if cfg.StoreDriver != config.DriverPostgres {
		log.Fatal("settlement needs STORE_DRIVER=postgres", zap.String("driver", cfg.StoreDriver))
	}
	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("settlement needs KAFKA_BROKERS")
	}

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

	// Service
	store := &catalog.PGStore{DB: db}
	svc := &settlement.Service{
		Catalog: catalog.NewService(store, pricing.NewResolver(store), cfg.CatalogFetchBound, cfg.CatalogPageSize, log),
		Dedup:   &settlement.RedisDedup{RDB: rdb, Service: name},
		Log:     log,
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.SettlementGroup, orders.TopicOrderAccepted, cfg.SettlementWorkers, log)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("settlement consumer started", zap.String("group", cfg.SettlementGroup),
			zap.String("topic", orders.TopicOrderAccepted), zap.Int("workers", cfg.SettlementWorkers))
		if err := cons.Start(ctx, svc.HandleOrderAccepted); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info("shutting down consumer")
	case <-ctx.Done():
	}
	cancel()
	<-done
}
