package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/groupbuy_api/internal/cache"
	"github.com/GTDGit/groupbuy_api/internal/config"
	"github.com/GTDGit/groupbuy_api/internal/datastore"
	"github.com/GTDGit/groupbuy_api/internal/events"
	"github.com/GTDGit/groupbuy_api/internal/handler"
	"github.com/GTDGit/groupbuy_api/internal/kafka"
	"github.com/GTDGit/groupbuy_api/internal/middleware"
	"github.com/GTDGit/groupbuy_api/internal/repository"
	"github.com/GTDGit/groupbuy_api/internal/service"
	"github.com/GTDGit/groupbuy_api/internal/sse"
	"github.com/GTDGit/groupbuy_api/internal/worker"
	"github.com/GTDGit/groupbuy_api/pkg/mailer"
)

// main is the application entrypoint for the group-buy storefront API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Str("datastore", cfg.Datastore.Driver).Msg("starting groupbuy api")

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid timezone: %v\n", err)
		os.Exit(1)
	}

	// 3. Open datastore
	store, err := openDatastore(cfg)
	if err != nil {
		log.Error().Err(err).Msg("datastore initialization failed")
		fmt.Fprintf(os.Stderr, "datastore initialization failed: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// 3a. Connect to Redis (optional)
	var idemCache *cache.IdempotencyCache
	if cfg.Redis.Host != "" {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis connection failed - idempotent submissions disabled")
		} else {
			defer redisClient.Close()
			idemCache = cache.NewIdempotencyCache(redisClient)
			log.Info().Msg("redis connected successfully")
		}
	}

	// 4. Event sinks
	hub := sse.NewHub()
	sinks := events.Fanout{hub}
	var producer *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.BufferSize)
		sinks = append(sinks, producer)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka event publishing enabled")
	}

	// 5. Notification dispatcher
	var mailClient service.Mailer
	if cfg.Mail.Enabled() {
		mailClient = mailer.NewClient(cfg.Mail.BaseURL, cfg.Mail.APIKey)
	} else {
		log.Warn().Msg("mail not configured - order and request notifications will be skipped")
	}
	dispatcher := service.NewNotificationDispatcher(mailClient, cfg.Mail)

	// 6. Initialize repositories
	productRepo := repository.NewProductRepository(store)
	orderRepo := repository.NewOrderRepository(store)
	requestRepo := repository.NewRequestRepository(store)
	userRepo := repository.NewUserRepository(store)
	categoryRepo := repository.NewCategoryRepository(store)

	// 7. Initialize services
	authSvc := service.NewAuthService(store, userRepo, cfg.JWTSecret, cfg.JWTTTL)
	userSvc := service.NewUserService(store, userRepo)
	catalogSvc := service.NewCatalogService(store, productRepo)
	categorySvc := service.NewCategoryService(store, categoryRepo)
	orderSvc := service.NewOrderService(store, orderRepo, idemCache, sinks, dispatcher)
	requestSvc := service.NewRequestService(store, requestRepo, idemCache, sinks, dispatcher)
	reportSvc := service.NewReportService(orderSvc, requestSvc, loc)

	// 7a. Bootstrap accounts and reference data
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := userSvc.EnsureAdmin(bootCtx, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("bootstrap admin failed")
	}
	if err := categorySvc.EnsureDefaults(bootCtx); err != nil {
		log.Fatal().Err(err).Msg("seeding categories failed")
	}
	bootCancel()

	// 8. Initialize handlers and middleware
	loginLimiter := middleware.NewLoginRateLimiter(cfg.Login.MaxAttempts, cfg.Login.Window)
	defer loginLimiter.Stop()

	handlers := &handler.Handlers{
		Health:   handler.NewHealthHandler(store.Driver(), idemCache != nil, producer != nil),
		Auth:     handler.NewAuthHandler(authSvc, loginLimiter),
		Product:  handler.NewProductHandler(catalogSvc),
		Order:    handler.NewOrderHandler(orderSvc),
		Request:  handler.NewRequestHandler(requestSvc),
		User:     handler.NewUserHandler(userSvc),
		Category: handler.NewCategoryHandler(categorySvc),
		Admin:    handler.NewAdminHandler(reportSvc),
		SSE:      handler.NewSSEHandler(hub),
	}
	jwtMw := middleware.NewJWTMiddleware(cfg.JWTSecret)

	// 9. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	router.Use(middleware.LoggingMiddleware())
	handler.SetupRoutes(router, handlers, jwtMw)

	// 10. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 11. Start workers
	var wg sync.WaitGroup
	startWorker := func(run func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(ctx)
		}()
	}
	startWorker(dispatcher.Start)
	if producer != nil {
		startWorker(producer.Start)
	}
	if cfg.S3.Bucket != "" {
		backupSvc, err := service.NewBackupService(ctx, store, cfg.S3)
		if err != nil {
			log.Warn().Err(err).Msg("S3 backup initialization failed - backups disabled")
		} else if backupWorker, err := worker.NewBackupWorker(backupSvc, cfg.Backup.Schedule, loc); err != nil {
			log.Warn().Err(err).Msg("backup worker disabled")
		} else {
			startWorker(backupWorker.Start)
		}
	}

	// 12. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 14. Close event streams, then shutdown HTTP server with timeout
	hub.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// 15. Stop workers after in-flight requests have queued their side effects
	cancel()
	wg.Wait()
	log.Info().Msg("Server exited")
}

// openDatastore opens the configured backend and, for postgres, applies migrations.
func openDatastore(cfg *config.Config) (datastore.Store, error) {
	switch cfg.Datastore.Driver {
	case "postgres":
		pg, err := datastore.OpenPostgres(&cfg.DB)
		if err != nil {
			return nil, err
		}
		if err := runMigrations(pg.DB()); err != nil {
			pg.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
		log.Info().Msg("migrations completed successfully")
		return pg, nil
	default:
		fs, err := datastore.OpenFile(cfg.Datastore.Path)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.Datastore.Path).Msg("file datastore opened")
		return fs, nil
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
