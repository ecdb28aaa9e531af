package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/fjod/cartlink/pkg/commercetools"
	"github.com/fjod/cartlink/pkg/gcp"
)

const (
	EventBusPubSub = "pubsub"
	EventBusKafka  = "kafka"
)

type Config struct {
	HTTPPort        string
	LogLevel        string
	LogPretty       bool
	ShutdownTimeout time.Duration

	Commerce commercetools.Config

	GCP              gcp.Credentials
	BigQueryDataset  string
	EnsureTables     bool
	EventBus         string
	LinkSubscription string
	// OrderSubscription receives the commerce platform's OrderCreated messages.
	OrderSubscription string
	// PullEnabled turns off the subscription pullers when only push delivery is used.
	PullEnabled  bool
	KafkaBrokers []string
	LinkTopic    string
	OrderTopic   string

	OTelEndpoint    string
	OTelServiceName string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	region := getEnv("CTP_REGION", "europe-west1.gcp")
	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8081"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogPretty:       getBool("LOG_PRETTY", false),
		ShutdownTimeout: 10 * time.Second,

		Commerce: commercetools.Config{
			ProjectKey:   os.Getenv("CTP_PROJECT_KEY"),
			ClientID:     os.Getenv("CTP_CLIENT_ID"),
			ClientSecret: os.Getenv("CTP_CLIENT_SECRET"),
			AuthURL:      getEnv("CTP_AUTH_URL", "https://auth."+region+".commercetools.com"),
			APIURL:       getEnv("CTP_API_URL", "https://api."+region+".commercetools.com"),
			Scopes:       strings.Fields(os.Getenv("CTP_SCOPES")),
		},

		GCP: gcp.Credentials{
			JSON:        os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"),
			ClientEmail: os.Getenv("GOOGLE_CLOUD_CLIENT_EMAIL"),
			PrivateKey:  os.Getenv("GOOGLE_CLOUD_PRIVATE_KEY"),
			ProjectID:   os.Getenv("GOOGLE_CLOUD_PROJECT"),
		},
		BigQueryDataset:   getEnv("BIGQUERY_DATASET", "link_generator"),
		EnsureTables:      getBool("BIGQUERY_ENSURE_TABLES", false),
		EventBus:          strings.ToLower(getEnv("EVENT_BUS", EventBusPubSub)),
		LinkSubscription:  getEnv("PUBSUB_LINK_SUBSCRIPTION", "link-created-analytics"),
		OrderSubscription: getEnv("PUBSUB_ORDER_SUBSCRIPTION", "order-created-analytics"),
		PullEnabled:       getBool("PUBSUB_PULL", true),
		KafkaBrokers:      getList("KAFKA_BROKERS"),
		LinkTopic:         getEnv("KAFKA_LINK_TOPIC", "link-created-events"),
		OrderTopic:        getEnv("KAFKA_ORDER_TOPIC", "order-created-events"),

		OTelEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTelServiceName: getEnv("OTEL_SERVICE_NAME", "analytics-service"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	required := []struct{ name, value string }{
		{"CTP_PROJECT_KEY", c.Commerce.ProjectKey},
		{"CTP_CLIENT_ID", c.Commerce.ClientID},
		{"CTP_CLIENT_SECRET", c.Commerce.ClientSecret},
		{"GOOGLE_CLOUD_PROJECT", c.GCP.ProjectID},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("missing required environment variable %s", r.name)
		}
	}
	switch c.EventBus {
	case EventBusPubSub:
	case EventBusKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("missing required environment variable KAFKA_BROKERS for EVENT_BUS=kafka")
		}
	default:
		return fmt.Errorf("EVENT_BUS must be %q or %q, got %q", EventBusPubSub, EventBusKafka, c.EventBus)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
