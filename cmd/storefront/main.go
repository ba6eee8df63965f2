package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/natal_store/internal/auth"
	"github.com/fjod/natal_store/internal/cart"
	"github.com/fjod/natal_store/internal/catalog"
	"github.com/fjod/natal_store/internal/checkout"
	"github.com/fjod/natal_store/internal/config"
	"github.com/fjod/natal_store/internal/events"
	h "github.com/fjod/natal_store/internal/http"
	"github.com/fjod/natal_store/internal/inventory"
	"github.com/fjod/natal_store/internal/logger"
	"github.com/fjod/natal_store/internal/media"
	"github.com/fjod/natal_store/internal/notify"
	"github.com/fjod/natal_store/internal/orders"
	"github.com/fjod/natal_store/internal/payment"
	"github.com/fjod/natal_store/internal/promotion"
	"github.com/fjod/natal_store/internal/scheduler"
	"github.com/fjod/natal_store/internal/storage"
	"github.com/fjod/natal_store/internal/wishlist"
	"github.com/rs/zerolog/log"
)

const (
	promotionExpiryInterval = time.Minute
	inventorySyncInterval   = 5 * time.Minute
	loopbackBuffer          = 256
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	l := logger.Setup(cfg.Env, cfg.LogLevel)

	ctx := context.Background()

	// Postgres: users, orders, outbox, promotions, payment settings
	pg, err := storage.ConnectPostgres(ctx, cfg.Postgres)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pg.Close()
	if err := storage.MigratePostgres(pg.DB); err != nil {
		l.Fatal().Err(err).Msg("failed to migrate postgres")
	}
	l.Info().Str("host", cfg.Postgres.Host).Msg("connected to postgres")

	// SQLite: catalog
	catalogDB, err := storage.OpenSQLite(cfg.SQLite.Path)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to open catalog database")
	}
	defer catalogDB.Close()
	if err := storage.MigrateSQLite(catalogDB); err != nil {
		l.Fatal().Err(err).Msg("failed to migrate catalog database")
	}

	// Mongo: carts and wishlists
	mongoDB, err := storage.ConnectMongoDB(ctx, cfg.Mongo)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer mongoDB.Client().Disconnect(context.Background())
	l.Info().Str("uri", cfg.Mongo.URI).Msg("connected to mongodb")

	cartRepo := cart.NewMongoRepository(mongoDB)
	wishlistRepo := wishlist.NewMongoRepository(mongoDB)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		l.Fatal().Err(err).Msg("failed to create cart indexes")
	}
	if err := wishlistRepo.CreateIndexes(ctx); err != nil {
		l.Fatal().Err(err).Msg("failed to create wishlist indexes")
	}

	// Redis: cart cache, token blacklist, verification codes
	redisClient, err := storage.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	mailer := notify.NewMailer(cfg.SMTP)

	stock := inventory.NewMemoryStore(cfg.Checkout.ReservationTTL)
	defer stock.Close()

	catalogService := catalog.NewService(catalog.NewSQLiteRepository(catalogDB), stock)
	if err := catalogService.SyncInventory(ctx); err != nil {
		l.Fatal().Err(err).Msg("failed to seed inventory from catalog")
	}

	promotionService := promotion.NewService(promotion.NewPostgresRepository(pg), catalogService)
	cartService := cart.NewService(cartRepo, cart.NewRedisCache(redisClient),
		catalogService, promotionService, cfg.Checkout.ShippingFlatRate)
	wishlistService := wishlist.NewService(wishlistRepo, catalogService)

	authService := auth.NewService(
		auth.NewPostgresUserRepository(pg),
		auth.NewTokenManager(cfg.JWT),
		auth.NewRedisTokenBlacklist(redisClient),
		auth.NewRedisCodeStore(redisClient),
		mailer,
		notify.LogSMSSender{},
		auth.Options{Admin: cfg.Admin, VerificationTTL: cfg.Checkout.VerificationTTL, BaseURL: cfg.BaseURL},
	)
	if err := authService.SeedAdmin(ctx); err != nil {
		l.Fatal().Err(err).Msg("failed to seed administrator")
	}

	orderRepo := orders.NewPostgresRepository(pg)
	orderService := orders.NewService(orderRepo, catalogService)

	gateway := payment.NewGateway(payment.NewApprover(cfg.Payment.Approval), cfg.Payment.Timeout)
	settingsService := payment.NewSettingsService(payment.NewPostgresSettingsRepository(pg))

	checkoutService := checkout.NewService(cartService, orderRepo, stock, gateway, catalogService,
		authService, cfg.Checkout.ShippingFlatRate)

	imageStorage, err := media.NewStorage(ctx, cfg.S3)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to set up image storage")
	}

	// Order events: outbox -> Kafka -> email. Without brokers the same
	// pipeline runs over an in-process queue.
	var (
		writer events.MessageWriter
		reader events.MessageReader
	)
	if cfg.Kafka.Enabled() {
		kw := events.NewKafkaWriter(cfg.Kafka)
		defer kw.Close()
		writer, reader = kw, events.NewKafkaReader(cfg.Kafka)
		l.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing order events to kafka")
	} else {
		loop := events.NewLoopback(loopbackBuffer)
		writer, reader = loop, loop
		l.Info().Msg("kafka not configured, delivering order events in process")
	}
	poller := events.NewOutboxPoller(orderRepo, writer)
	consumer := events.NewOrderConsumer(reader, mailer)

	jobs, err := scheduler.New()
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create scheduler")
	}
	if err := jobs.Every("expire-promotions", promotionExpiryInterval, promotionService.ExpireFinished); err != nil {
		l.Fatal().Err(err).Msg("failed to schedule promotion expiry")
	}
	if err := jobs.Every("sync-inventory", inventorySyncInterval, catalogService.SyncInventory); err != nil {
		l.Fatal().Err(err).Msg("failed to schedule inventory sync")
	}

	router := h.NewRouter(h.Services{
		Auth:            authService,
		Catalog:         catalogService,
		Cart:            cartService,
		Wishlist:        wishlistService,
		Checkout:        checkoutService,
		Orders:          orderService,
		Promotions:      promotionService,
		PaymentSettings: settingsService,
		Uploads:         media.Uploader{Storage: imageStorage},
	}, cfg.HTTP, l)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		poller.Run(workerCtx)
	}()
	go func() {
		defer wg.Done()
		consumer.Run(workerCtx)
	}()
	jobs.Start()

	go func() {
		l.Info().Str("port", cfg.HTTP.Port).Msg("storefront starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := jobs.Shutdown(); err != nil {
		l.Error().Err(err).Msg("scheduler shutdown failed")
	}
	stopWorkers()
	if err := consumer.Close(); err != nil {
		l.Error().Err(err).Msg("failed to close event reader")
	}
	wg.Wait()

	l.Info().Msg("server exited")
}
