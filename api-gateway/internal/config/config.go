package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/fjod/cartlink/api-gateway/internal/repository"
	"github.com/fjod/cartlink/pkg/commercetools"
	"github.com/fjod/cartlink/pkg/gcp"
)

const (
	EventBusPubSub = "pubsub"
	EventBusKafka  = "kafka"
)

type Config struct {
	HTTPPort           string
	LogLevel           string
	LogPretty          bool
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	CORSOrigins        []string

	Commerce       commercetools.Config
	ApplicationKey string
	BaseURL        string
	TaxCategoryID  string
	CartTypeKey    string
	CurrencyFile   string

	GCP             gcp.Credentials
	Bucket          string
	PublicURL       string
	EventBus        string
	PubSubTopic     string
	KafkaBrokers    []string
	BigQueryDataset string

	// DB is nil when DB_HOST is unset; the link ledger is then disabled.
	DB        *repository.Credentials
	RedisAddr string
	RedisPass string

	OTelEndpoint    string
	OTelServiceName string
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	region := getEnv("CTP_REGION", "europe-west1.gcp")
	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogPretty:          getBool("LOG_PRETTY", false),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 1 << 20, // 1MB
		CORSOrigins:        getList("CORS_ORIGINS"),

		Commerce: commercetools.Config{
			ProjectKey:   os.Getenv("CTP_PROJECT_KEY"),
			ClientID:     os.Getenv("CTP_CLIENT_ID"),
			ClientSecret: os.Getenv("CTP_CLIENT_SECRET"),
			AuthURL:      getEnv("CTP_AUTH_URL", "https://auth."+region+".commercetools.com"),
			APIURL:       getEnv("CTP_API_URL", "https://api."+region+".commercetools.com"),
			SessionURL:   getEnv("CTP_SESSION_URL", commercetools.SessionURLForRegion(region)),
			Scopes:       strings.Fields(os.Getenv("CTP_SCOPES")),
			Timeout:      getDuration("CTP_TIMEOUT", 10*time.Second),
		},
		ApplicationKey: os.Getenv("CTP_APPLICATION_KEY"),
		BaseURL:        getEnv("BASE_URL", "http://localhost:3000"),
		TaxCategoryID:  os.Getenv("TAX_CATEGORY_ID"),
		CartTypeKey:    getEnv("CART_TYPE_KEY", "link-cart-type"),
		CurrencyFile:   os.Getenv("CURRENCY_MAP_FILE"),

		GCP: gcp.Credentials{
			JSON:        os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"),
			ClientEmail: os.Getenv("GOOGLE_CLOUD_CLIENT_EMAIL"),
			PrivateKey:  os.Getenv("GOOGLE_CLOUD_PRIVATE_KEY"),
			ProjectID:   os.Getenv("GOOGLE_CLOUD_PROJECT"),
		},
		Bucket:          os.Getenv("GOOGLE_CLOUD_BUCKET_NAME"),
		PublicURL:       os.Getenv("STORAGE_PUBLIC_URL"),
		EventBus:        strings.ToLower(getEnv("EVENT_BUS", EventBusPubSub)),
		PubSubTopic:     getEnv("PUBSUB_TOPIC", "link-created-events"),
		KafkaBrokers:    getList("KAFKA_BROKERS"),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", "link_generator"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisPass: os.Getenv("REDIS_PASSWORD"),

		OTelEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTelServiceName: getEnv("OTEL_SERVICE_NAME", "api-gateway"),
	}

	if host := os.Getenv("DB_HOST"); host != "" {
		port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
		if err != nil {
			return nil, fmt.Errorf("DB_PORT: %w", err)
		}
		cfg.DB = &repository.Credentials{
			Host:              host,
			Port:              port,
			User:              getEnv("DB_USER", "postgres"),
			Password:          os.Getenv("DB_PASSWORD"),
			DBName:            getEnv("DB_NAME", "cartlink"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MigrationsDirPath: getEnv("MIGRATIONS_PATH", "file://api-gateway/internal/repository/migrations"),
		}
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
		{"GOOGLE_CLOUD_BUCKET_NAME", c.Bucket},
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

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
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
