package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/config"
	"storefront-service/internal/api"
	"storefront-service/internal/broker"
	"storefront-service/internal/feed"
	"storefront-service/internal/models"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/service"
	"storefront-service/internal/storage"
	"storefront-service/internal/store"
	"storefront-service/internal/util"
	"storefront-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service")

	tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint, cfg.Server.Env, cfg.Observ.TraceSampleRatio)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := openStore(context.Background(), cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if db != nil {
		defer db.Close()
		logger.Info("Database connected")
	} else {
		logger.Warn("DATABASE_URL is not set: serving fallback filter options only, catalog, cart, checkout and admin routes answer 503")
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	bucket, uploadsDir, err := newBucket(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize image storage: %v", err)
	}
	logger.Info("Image storage initialized", zap.String("driver", cfg.Storage.Driver))

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicEvents))

	eventPublisher := broker.NewEventPublisher(producer)

	filterService := service.NewFilterService(taxonomyStore(db), redisClient, cfg.Shop.FiltersCacheTTL)
	services := api.Services{Filters: filterService}
	checks := map[string]api.Pinger{"redis": redisClient}
	caches := []service.Invalidator{filterService}

	if db != nil {
		catalogService := service.NewCatalogService(db, redisClient, service.CatalogConfig{
			StoreName:              cfg.Shop.Name,
			BaseURL:                cfg.Server.PublicBaseURL,
			AccessoryCategoryNames: cfg.Shop.AccessoryCategoryNames,
			HomeCacheTTL:           cfg.Shop.HomeCacheTTL,
		})
		services.Catalog = catalogService
		services.Cart = service.NewCartService(db, service.NewEnricher(db))
		services.Checkout = service.NewCheckoutService(db, redisClient, eventPublisher, models.BankInfo{
			BankName:      cfg.Shop.BankName,
			AccountNumber: cfg.Shop.BankAccountNumber,
			AccountHolder: cfg.Shop.BankAccountHolder,
		})
		services.Admin = service.NewAdminService(db, db, bucket, eventPublisher, catalogService, filterService)
		checks["postgres"] = db
		caches = append(caches, catalogService)
	}

	hub := feed.NewHub(cfg.Server.CORSOrigins)
	defer hub.Close()
	services.Feed = hub

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	// every instance holds its own websocket clients, so each needs every event
	feedConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup+"-feed-"+instanceID())
	feedWorker := worker.NewFeedWorker(feedConsumer, hub)
	go func() {
		if err := feedWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("Feed worker error", zap.Error(err))
		}
	}()

	catalogConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup+"-catalog")
	catalogWorker := worker.NewCatalogWorker(catalogConsumer, caches...)
	go func() {
		if err := catalogWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("Catalog worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = 16 << 20
	handler := api.NewHandler(services, api.Config{
		JWTSecret:   cfg.Auth.JWTSecret,
		CORSOrigins: cfg.Server.CORSOrigins,
		UploadsDir:  uploadsDir,
	}, checks)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := feedWorker.Stop(); err != nil {
		logger.Warn("Feed worker stop failed", zap.Error(err))
	}
	if err := catalogWorker.Stop(); err != nil {
		logger.Warn("Catalog worker stop failed", zap.Error(err))
	}

	logger.Info("Server exited")
}

// openStore connects to Postgres and applies the schema when asked. An empty
// URL is not an error: the process then runs without a database.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (*store.Store, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	db, err := store.NewStore(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	return db, nil
}

// taxonomyStore hands FilterService an untyped nil when there is no database,
// so its fallback check sees the store as absent.
func taxonomyStore(db *store.Store) service.TaxonomyStore {
	if db == nil {
		return nil
	}
	return db
}

// newBucket builds the configured image store. For the local driver it also
// returns the directory to serve at /uploads.
func newBucket(cfg config.StorageConfig) (service.ImageBucket, string, error) {
	switch cfg.Driver {
	case "s3":
		client, err := storage.NewS3Client(context.Background(), cfg.S3Region, cfg.S3Endpoint)
		if err != nil {
			return nil, "", err
		}
		return storage.NewS3Bucket(client, cfg.Bucket, cfg.PublicURL), "", nil
	case "local", "":
		b, err := storage.NewLocalBucket(cfg.LocalDir, cfg.PublicURL)
		if err != nil {
			return nil, "", err
		}
		return b, b.Dir(), nil
	default:
		return nil, "", fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func instanceID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return uuid.NewString()
}
