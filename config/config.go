package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// HTTP configuration
	HTTPAddr           string
	CORSAllowedOrigins []string

	// Messaging configuration
	NATSURL    string
	NATSStream string

	// Notification configuration
	DiscordWebhookURL string

	// Household defaults
	DefaultSavingsTarget decimal.Decimal
	DefaultEquityRate    decimal.Decimal // Deprecated: reported only, never applied to equity

	// Logging configuration
	LogLevel  string
	LogFormat string // "text" or "json"

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables, reading a .env file first when present
func load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// HTTP
		HTTPAddr: ":8080",

		// Messaging
		NATSURL:    os.Getenv("NATS_URL"),
		NATSStream: "goldennest_events",

		// Notifications
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),

		// Household defaults
		DefaultSavingsTarget: decimal.NewFromInt(2000000),
		DefaultEquityRate:    decimal.RequireFromString("0.03"),

		// Logging
		LogLevel:  "info",
		LogFormat: "text",

		// OpenTelemetry
		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          "goldennest",
		OTelExporterType:         "console",
		OTelExportIntervalMillis: 30000,

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		config.HTTPAddr = addr
	}
	if stream := os.Getenv("NATS_STREAM"); stream != "" {
		config.NATSStream = stream
	}
	if target := os.Getenv("DEFAULT_SAVINGS_TARGET"); target != "" {
		if parsed, err := decimal.NewFromString(target); err == nil {
			config.DefaultSavingsTarget = parsed
		}
	}
	if rate := os.Getenv("DEFAULT_EQUITY_RATE"); rate != "" {
		if parsed, err := decimal.NewFromString(rate); err == nil {
			config.DefaultEquityRate = parsed
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.LogFormat = format
	}
	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		config.OTelServiceName = name
	}
	if exporter := os.Getenv("OTEL_EXPORTER_TYPE"); exporter != "" {
		config.OTelExporterType = exporter
	}
	config.OTelOTLPEndpoint = os.Getenv("OTEL_OTLP_ENDPOINT")
	if interval := os.Getenv("OTEL_EXPORT_INTERVAL_MS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.OTelExportIntervalMillis = parsed
		}
	}

	// Parse allowed CORS origins
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				config.CORSAllowedOrigins = append(config.CORSAllowedOrigins, origin)
			}
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.OTelEnabled && config.OTelExporterType == "otlp" && config.OTelOTLPEndpoint == "" {
			return nil, fmt.Errorf("OTEL_OTLP_ENDPOINT is required when OTEL_EXPORTER_TYPE is otlp")
		}
	}

	return config, nil
}
