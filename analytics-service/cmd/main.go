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

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/pubsub"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/cartlink/analytics-service/internal/config"
	"github.com/fjod/cartlink/analytics-service/internal/consumer"
	"github.com/fjod/cartlink/pkg/commercetools"
	"github.com/fjod/cartlink/pkg/logger"
	"github.com/fjod/cartlink/pkg/telemetry"
	"github.com/fjod/cartlink/pkg/warehouse"
)

const serviceName = "analytics-service"

// setup loads configuration and builds the service logger. When configuration
// fails the returned logger uses default settings so the error can still be logged.
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, logger.New(serviceName, "info", false), err
	}
	return cfg, logger.New(serviceName, cfg.LogLevel, cfg.LogPretty), nil
}

// newRouter serves the Pub/Sub push endpoints and the health check.
func newRouter(log zerolog.Logger, linkHandler, orderHandler consumer.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			l := log.With().Str("request_id", middleware.GetReqID(req.Context())).Logger()
			next.ServeHTTP(w, req.WithContext(l.WithContext(req.Context())))
		})
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Post("/pubsub/link-created", consumer.PushHandler(linkHandler))
	r.Post("/pubsub/order-created", consumer.PushHandler(orderHandler))
	return r
}

func main() {
	cfg, log, err := setup()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log.Info().Msg("analytics-service starting...")
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, cfg.OTelServiceName, cfg.OTelEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init telemetry")
	}

	commerce, err := commercetools.New(cfg.Commerce, commercetools.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create commerce client")
	}

	gcpOpts, err := cfg.GCP.ClientOptions()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid Google Cloud credentials")
	}

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP.ProjectID, gcpOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bigquery client")
	}
	defer bqClient.Close()

	writer := warehouse.NewWriter(bqClient, cfg.BigQueryDataset)
	if cfg.EnsureTables {
		if err := writer.EnsureTables(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to create warehouse tables")
		}
		log.Info().Str("dataset", cfg.BigQueryDataset).Msg("warehouse tables ready")
	}

	linkHandler := consumer.NewLinkCreatedHandler(writer)
	orderHandler := consumer.NewOrderConversionHandler(commerce, writer)

	// Start consumers
	switch cfg.EventBus {
	case config.EventBusKafka:
		for topic, handler := range map[string]consumer.Handler{cfg.LinkTopic: linkHandler, cfg.OrderTopic: orderHandler} {
			c := consumer.NewKafkaConsumer(topic, handler, log, cfg.KafkaBrokers...)
			defer c.Close()
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.Run(ctx)
			}()
		}
	default:
		psClient, err := pubsub.NewClient(ctx, cfg.GCP.ProjectID, gcpOpts...)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub client")
		}
		defer psClient.Close()

		if cfg.PullEnabled {
			for sub, handler := range map[string]consumer.Handler{cfg.LinkSubscription: linkHandler, cfg.OrderSubscription: orderHandler} {
				src := consumer.NewPubSubSource(psClient, sub, handler, log)
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := src.Run(ctx); err != nil {
						log.Error().Err(err).Msg("subscription stopped")
					}
				}()
			}
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(newRouter(log, linkHandler, orderHandler), serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("analytics service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down analytics service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		log.Info().Msg("consumers stopped cleanly")
	case <-shutdownCtx.Done():
		log.Warn().Msg("consumers didn't stop in time")
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to flush traces")
	}
	log.Info().Msg("analytics service stopped")
}
