package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	CatalogSourceBundled  = "bundled"
	CatalogSourceFile     = "file"
	CatalogSourceDatabase = "database"
)

type Config struct {
	Server struct {
		Port        string   `env:"PORT" envDefault:"5250"`
		LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
		CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:3000"`
		// Default map region when no listing can be placed
		Region string `env:"MAP_REGION" envDefault:"bay-area"`
	}

	Catalog struct {
		// One of bundled, file, database
		Source   string `env:"CATALOG_SOURCE" envDefault:"bundled"`
		Path     string `env:"CATALOG_PATH"`
		PageSize int    `env:"CATALOG_PAGE_SIZE" envDefault:"4"`
	}

	Database struct {
		Path string `env:"DATABASE_PATH" envDefault:"database/homekeys.db"`
	}

	Calls struct {
		APIKey    string        `env:"BLAND_API_KEY"`
		BaseURL   string        `env:"BLAND_BASE_URL" envDefault:"https://api.bland.ai"`
		PathwayID string        `env:"BLAND_PATHWAY_ID" envDefault:"9c28befe-308e-40eb-893f-c56503491b64"`
		Voice     string        `env:"BLAND_VOICE" envDefault:"june"`
		Timeout   time.Duration `env:"BLAND_TIMEOUT" envDefault:"15s"`

		// Sustained calls per second and burst size
		Rate  float64 `env:"CALLS_RATE" envDefault:"0.2"`
		Burst int     `env:"CALLS_BURST" envDefault:"3"`
	}

	Geocoding struct {
		Enabled           bool          `env:"GEOCODING_ENABLED" envDefault:"true"`
		BaseURL           string        `env:"GEOCODING_BASE_URL" envDefault:"https://nominatim.openstreetmap.org"`
		UserAgent         string        `env:"GEOCODING_USER_AGENT" envDefault:"HomeKeys Listing Server/1.0"`
		CacheDir          string        `env:"GEOCODING_CACHE_DIR" envDefault:"cache/geocode"`
		RequestsPerSecond float64       `env:"GEOCODING_RATE" envDefault:"1"`
		Timeout           time.Duration `env:"GEOCODING_TIMEOUT" envDefault:"10s"`
		RetryMax          int           `env:"GEOCODING_RETRY_MAX" envDefault:"3"`
		BackfillInterval  time.Duration `env:"GEOCODING_BACKFILL_INTERVAL" envDefault:"1h"`
	}

	Telegram struct {
		BotToken string `env:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `env:"TELEGRAM_CHAT_ID"`
		BaseURL  string `env:"TELEGRAM_BASE_URL" envDefault:"https://api.telegram.org"`
	}

	Conversation struct {
		Interval     time.Duration `env:"CONVERSATION_INTERVAL" envDefault:"2s"`
		JournalLimit int           `env:"CONVERSATION_JOURNAL_LIMIT" envDefault:"100"`
	}

	Sessions struct {
		IdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
		PruneInterval time.Duration `env:"SESSION_PRUNE_INTERVAL" envDefault:"5m"`
	}

	Events struct {
		BufferSize int `env:"EVENT_BUFFER_SIZE" envDefault:"256"`
	}

	// BatchProcessing configuration
	BatchProcessing struct {
		// Number of properties per import batch
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}
}

// LoadConfig reads an optional .env file and then the environment
func LoadConfig(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// A missing .env is fine; variables may come from the environment
		_ = godotenv.Load(f)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case CatalogSourceBundled, CatalogSourceDatabase:
	case CatalogSourceFile:
		if c.Catalog.Path == "" {
			return fmt.Errorf("CATALOG_PATH is required when CATALOG_SOURCE=%s", CatalogSourceFile)
		}
	default:
		return fmt.Errorf("unknown CATALOG_SOURCE %q", c.Catalog.Source)
	}
	if c.Catalog.PageSize < 1 {
		return fmt.Errorf("CATALOG_PAGE_SIZE must be positive, got %d", c.Catalog.PageSize)
	}
	if GetRegionByName(c.Server.Region) == nil {
		return fmt.Errorf("unknown MAP_REGION %q", c.Server.Region)
	}
	if c.BatchProcessing.MaxBatchSize < 1 {
		return fmt.Errorf("BATCH_MAX_SIZE must be positive, got %d", c.BatchProcessing.MaxBatchSize)
	}
	return nil
}

// NewLogger builds the JSON stdout logger at the configured level
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(c.Server.LogLevel)
	if err != nil {
		logger.WithField("log_level", c.Server.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
