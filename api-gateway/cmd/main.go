package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/cartlink/api-gateway/internal/cache"
	"github.com/fjod/cartlink/api-gateway/internal/config"
	"github.com/fjod/cartlink/api-gateway/internal/domain"
	h "github.com/fjod/cartlink/api-gateway/internal/http"
	"github.com/fjod/cartlink/api-gateway/internal/metrics"
	"github.com/fjod/cartlink/api-gateway/internal/publisher"
	"github.com/fjod/cartlink/api-gateway/internal/qr"
	"github.com/fjod/cartlink/api-gateway/internal/repository"
	"github.com/fjod/cartlink/api-gateway/internal/service"
	gcs "github.com/fjod/cartlink/api-gateway/internal/storage"
	"github.com/fjod/cartlink/pkg/commercetools"
	"github.com/fjod/cartlink/pkg/events"
	"github.com/fjod/cartlink/pkg/logger"
	"github.com/fjod/cartlink/pkg/telemetry"
	"github.com/fjod/cartlink/pkg/warehouse"
)

const serviceName = "api-gateway"

// setup loads configuration and builds the service logger. When configuration
// fails the returned logger uses default settings so the error can still be logged.
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, logger.New(serviceName, "info", false), err
	}
	return cfg, logger.New(serviceName, cfg.LogLevel, cfg.LogPretty), nil
}

func main() {
	cfg, log, err := setup()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.OTelServiceName, cfg.OTelEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init telemetry")
	}

	commerce, err := commercetools.New(cfg.Commerce, commercetools.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create commerce client")
	}

	resolver := domain.NewCurrencyResolver(domain.DefaultRegions())
	if cfg.CurrencyFile != "" {
		resolver, err = domain.LoadCurrencyResolver(cfg.CurrencyFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.CurrencyFile).Msg("failed to load currency map")
		}
	}

	gcpOpts, err := cfg.GCP.ClientOptions()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid Google Cloud credentials")
	}

	storageClient, err := storage.NewClient(ctx, gcpOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create storage client")
	}
	defer storageClient.Close()

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP.ProjectID, gcpOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bigquery client")
	}
	defer bqClient.Close()

	var pub events.Publisher
	switch cfg.EventBus {
	case config.EventBusKafka:
		pub = events.NewKafkaPublisher(events.TopicLinkCreated, cfg.KafkaBrokers...)
	default:
		psClient, err := pubsub.NewClient(ctx, cfg.GCP.ProjectID, gcpOpts...)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub client")
		}
		defer psClient.Close()
		pub = events.NewPubSubPublisher(psClient, cfg.PubSubTopic)
	}
	defer pub.Close()

	deps := service.Deps{
		Commerce:  commerce,
		Builder:   domain.NewDraftBuilder(resolver, cfg.TaxCategoryID, cfg.CartTypeKey),
		QR:        qr.NewRenderer(qr.DefaultSize),
		Store:     gcs.NewQRStore(storageClient, cfg.Bucket, cfg.PublicURL),
		Publisher: pub,
		Customers: cache.NewCustomerCache(1024, 10*time.Minute),
	}

	if cfg.DB != nil {
		repo, err := repository.NewRepository(cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to link ledger")
		}
		defer repo.Close()
		if err := repo.RunMigrations(cfg.DB); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		deps.Ledger = repo

		poller := publisher.NewRecoveryPoller(repo, pub, log)
		go poller.Run(ctx)
	} else {
		log.Warn().Msg("DB_HOST not set, link ledger and event recovery disabled")
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, link lookups will not be cached")
		} else {
			deps.Links = cache.NewRedisCache(rdb)
		}
	}

	links := service.NewLinkService(service.Config{BaseURL: cfg.BaseURL, ApplicationKey: cfg.ApplicationKey}, deps)
	aggregator := metrics.NewAggregator(warehouse.NewReader(bqClient, cfg.BigQueryDataset))

	router := h.NewRouter(h.RouterConfig{
		Logger:             log,
		CORSOrigins:        cfg.CORSOrigins,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}, h.Handlers{
		Links:     h.NewLinkHandler(links, cfg.RequestTimeout),
		Checkout:  h.NewCheckoutHandler(links, cfg.RequestTimeout),
		Dashboard: h.NewDashboardHandler(aggregator, cfg.RequestTimeout),
		Catalog:   h.NewCatalogHandler(links, resolver, cfg.RequestTimeout),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "api-gateway"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("API Gateway starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to flush traces")
	}

	log.Info().Msg("server exited")
}
