package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/auth"
	"github.com/ariefcatur/go-marketplace/internal/cart"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/config"
	"github.com/ariefcatur/go-marketplace/internal/httpx"
	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/logx"
	"github.com/ariefcatur/go-marketplace/internal/memory"
	"github.com/ariefcatur/go-marketplace/internal/orders"
	"github.com/ariefcatur/go-marketplace/internal/postgres"
	"github.com/ariefcatur/go-marketplace/internal/pricing"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
	"github.com/ariefcatur/go-marketplace/internal/users"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// stores groups the backends chosen by STORE_DRIVER.
type stores struct {
	catalog  catalog.Store
	orders   orders.Repository
	profiles users.Store
	carts    cart.Store
	cache    orders.StatusCache
	close    func()
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logx.New(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	for _, w := range cfg.Warnings {
		log.Warn("config", zap.String("detail", w))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("open stores", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer st.close()

	// Kafka producer
	var (
		pub  orders.Publisher = kafkax.Discard{}
		prod *kafkax.Producer
	)
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
		prod.Start(ctx)
		pub = prod
	} else {
		log.Warn("no kafka brokers configured, lifecycle events are dropped")
	}

	// Services
	prices := pricing.NewResolver(st.catalog)
	catalogSvc := catalog.NewService(st.catalog, prices, cfg.CatalogFetchBound, cfg.CatalogPageSize, log)
	cartSvc := cart.NewService(st.carts, st.catalog, prices, log)
	orderSvc := orders.NewService(orders.Deps{
		Repo:      st.orders,
		Items:     st.catalog,
		Prices:    prices,
		Profiles:  st.profiles,
		Carts:     cartSvc,
		Publisher: pub,
		Cache:     st.cache,
		Logger:    log,
	}, orders.Options{
		Sweep:             orders.ParseSweepScope(cfg.SweepScope),
		TrustClientPrices: cfg.TrustClientPrices,
		ServiceName:       cfg.ServiceName,
	})

	// HTTP server
	router := httpx.NewRouter(log, cfg.CartTTL)
	httpx.Mount(router, auth.NewVerifier(cfg.JWTSecret), log,
		&httpx.CatalogHandler{Service: catalogSvc, Log: log},
		&httpx.CartHandler{Service: cartSvc, Log: log},
		&httpx.OrdersHandler{Service: orderSvc, Log: log},
		&httpx.ProfileHandler{Store: st.profiles, Log: log},
	)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("driver", cfg.StoreDriver),
			zap.Stringer("sweep", orders.ParseSweepScope(cfg.SweepScope)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	if prod != nil {
		prod.Close()      // tutup inbox -> flush & close writer
		cancel()          // stop producer loop
		prod.WaitClosed() // drain
	}
}

func openStores(ctx context.Context, cfg config.Config, log *zap.Logger) (stores, error) {
	if cfg.StoreDriver == config.DriverMemory {
		m := memory.New()
		memory.Seed(m)
		log.Warn("using in-memory store, data is lost on exit")
		return stores{
			catalog:  m.Catalog(),
			orders:   m.Orders(),
			profiles: m.Profiles(),
			carts:    m.Carts(),
			close:    func() {},
		}, nil
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return stores{}, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return stores{}, err
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	return stores{
		catalog:  &catalog.PGStore{DB: db},
		orders:   &orders.PGRepo{DB: db},
		profiles: &users.PGStore{DB: db},
		carts:    &cart.RedisStore{RDB: rdb, TTL: cfg.CartTTL},
		cache:    &orders.RedisStatusCache{RDB: rdb},
		close: func() {
			_ = rdb.Close()
			db.Close()
		},
	}, nil
}
