package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	_ "bouquet/docs"
	"bouquet/internal/config"
	"bouquet/internal/database"
	"bouquet/internal/events"
	httpapi "bouquet/internal/http"
	"bouquet/internal/lock"
	"bouquet/internal/repository"
	"bouquet/internal/service"
)

type repos struct {
	products  repository.ProductRepository
	cart      repository.CartRepository
	discounts interface {
		repository.DiscountRepository
		repository.DiscountSeeder
	}
	payments repository.PaymentRepository
	orders   repository.OrderRepository
	tx       repository.TxManager
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.Server.Env == "dev" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stdout)
	}
	return log.Level(level).With().Timestamp().Str("service", "bouquet").Logger()
}

func openRepos(cfg config.Config, log zerolog.Logger) (repos, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		store := repository.NewMemoryStore()
		return repos{
			products:  store,
			cart:      repository.NewMemoryCart(store),
			discounts: repository.NewMemoryDiscounts(store),
			payments:  repository.NewMemoryPayments(store),
			orders:    repository.NewMemoryOrders(store),
			tx:        repository.NewMemoryTx(store),
		}, func() {}, nil
	}

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return repos{}, nil, err
	}
	store := repository.NewGormStore(db)
	if cfg.Database.AutoMigrate {
		if err := store.InitMigrate(); err != nil {
			return repos{}, nil, err
		}
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return repos{
		products:  repository.NewGormProducts(store),
		cart:      repository.NewGormCart(store),
		discounts: repository.NewGormDiscounts(store),
		payments:  repository.NewGormPayments(store),
		orders:    repository.NewGormOrders(store),
		tx:        repository.NewGormTx(store),
	}, closeDB, nil
}

func newLocker(cfg config.Config, log zerolog.Logger) (lock.Locker, func()) {
	if cfg.Redis.Addr == "" {
		return lock.NewKeyedMutex(), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return lock.NewRedisLocker(client, cfg.Redis.LockTTL, log), func() { _ = client.Close() }
}

func newPublisher(cfg config.Config) (events.Publisher, func()) {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.NopPublisher{}, func() {}
	}
	pub := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
	return pub, func() { _ = pub.Close() }
}

// @title Bouquet API
// @version 1.0
// @description Cart, discount codes and checkout of the florist shop.
// @BasePath /api/v1
func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal := zerolog.New(os.Stderr)
		fatal.Fatal().Err(err).Msg("load config")
	}
	log := newLogger(*cfg)
	if cfg.Server.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r, closeDB, err := openRepos(*cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("open storage")
	}
	defer closeDB()

	locker, closeLocker := newLocker(*cfg, log)
	defer closeLocker()
	publisher, closePublisher := newPublisher(*cfg)
	defer closePublisher()

	if err := database.SeedDiscounts(context.Background(), r.discounts, cfg.Seed.Discounts, log); err != nil {
		log.Fatal().Err(err).Msg("seed discounts")
	}

	verifier := service.NewCodeVerifier(r.discounts)
	productsSvc := service.NewProductService(r.products)
	cartSvc := service.NewCartService(r.products, r.cart, r.tx, locker, verifier)
	checkoutSvc := service.NewCheckoutService(service.CheckoutDeps{
		Cart:      r.cart,
		Payments:  r.payments,
		Orders:    r.orders,
		Tx:        r.tx,
		Locker:    locker,
		Verifier:  verifier,
		Publisher: publisher,
		Logger:    log,
	})

	srv := httpapi.NewServer(productsSvc, cartSvc, checkoutSvc, httpapi.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      log.With().Str("component", "http").Logger(),
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Str("driver", cfg.Database.Driver).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
