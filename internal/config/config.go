// Package config loads and validates bookweaver configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	Enrich     EnrichConfig     `mapstructure:"enrich"`
	Headless   HeadlessConfig   `mapstructure:"headless"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	DB         DBConfig         `mapstructure:"db"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
}

// ServerConfig controls the query API HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// CatalogConfig points at the raw library exports.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
	// CrosswalkPath optionally names a second export whose identifiers are
	// authoritative; records are backfilled by exact tuple match.
	CrosswalkPath string `mapstructure:"crosswalk_path"`
}

// SourcesConfig governs the external description sources.
type SourcesConfig struct {
	UserAgent         string `mapstructure:"user_agent"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	DelayMs           int    `mapstructure:"delay_ms"`
	MinDescriptionLen int    `mapstructure:"min_description_len"`
	OpenLibraryURL    string `mapstructure:"openlibrary_url"`
	GoogleBooksURL    string `mapstructure:"googlebooks_url"`
	BookswagonURL     string `mapstructure:"bookswagon_url"`
	GoogleBooksAPIURL string `mapstructure:"googlebooks_api_url"`
}

// EnrichConfig governs the fetch orchestrator.
type EnrichConfig struct {
	Workers          int     `mapstructure:"workers"`
	MaxRetries       int     `mapstructure:"max_retries"`
	BackoffInitialMs int     `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int     `mapstructure:"backoff_max_ms"`
	SourceRPS        float64 `mapstructure:"source_rps"`
	SourceBurst      int     `mapstructure:"source_burst"`
}

// HeadlessConfig configures the optional JS re-fetch for scraped pages.
type HeadlessConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	MaxParallel   int      `mapstructure:"max_parallel"`
	NavTimeoutSec int      `mapstructure:"nav_timeout_seconds"`
	MinHTMLBytes  int      `mapstructure:"min_html_bytes"`
	Keywords      []string `mapstructure:"keywords"`
}

// CheckpointConfig controls durable progress snapshots.
type CheckpointConfig struct {
	Provider        string `mapstructure:"provider"`
	Dir             string `mapstructure:"dir"`
	GCSBucket       string `mapstructure:"gcs_bucket"`
	Prefix          string `mapstructure:"prefix"`
	EveryRecords    int    `mapstructure:"every_records"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for run-summary notifications.
type PubSubConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BOOKWEAVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("catalog.path", "data/catalog.csv")
	v.SetDefault("sources.user_agent", "bookweaver/1.0 (+https://github.com/rclib/bookweaver)")
	v.SetDefault("sources.timeout_seconds", 10)
	v.SetDefault("sources.delay_ms", 50)
	v.SetDefault("sources.min_description_len", 30)
	v.SetDefault("sources.openlibrary_url", "https://openlibrary.org")
	v.SetDefault("sources.googlebooks_url", "https://books.google.com")
	v.SetDefault("sources.bookswagon_url", "https://www.bookswagon.com")
	v.SetDefault("sources.googlebooks_api_url", "https://www.googleapis.com/books/v1")
	v.SetDefault("enrich.workers", 20)
	v.SetDefault("enrich.max_retries", 3)
	v.SetDefault("enrich.backoff_initial_ms", 250)
	v.SetDefault("enrich.backoff_max_ms", 5000)
	v.SetDefault("enrich.source_rps", 10)
	v.SetDefault("enrich.source_burst", 1)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.min_html_bytes", 2000)
	v.SetDefault("headless.keywords", []string{"__NEXT_DATA__", "data-reactroot", "window.__APOLLO_STATE__"})
	v.SetDefault("checkpoint.provider", "local")
	v.SetDefault("checkpoint.dir", "data/checkpoints")
	v.SetDefault("checkpoint.prefix", "enrich")
	v.SetDefault("checkpoint.every_records", 200)
	v.SetDefault("checkpoint.interval_seconds", 60)
	v.SetDefault("db.table", "books")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("pubsub.provider", "memory")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Enrich.Workers <= 0 {
		return fmt.Errorf("enrich.workers must be > 0")
	}
	if c.Enrich.MaxRetries < 0 {
		return fmt.Errorf("enrich.max_retries must be >= 0")
	}
	if c.Sources.TimeoutSeconds <= 0 {
		return fmt.Errorf("sources.timeout_seconds must be > 0")
	}
	if c.Sources.MinDescriptionLen < 0 {
		return fmt.Errorf("sources.min_description_len must be >= 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	switch c.Checkpoint.Provider {
	case "local", "gcs":
	default:
		return fmt.Errorf("checkpoint.provider must be local or gcs")
	}
	if c.Checkpoint.Provider == "gcs" && c.Checkpoint.GCSBucket == "" {
		return fmt.Errorf("checkpoint.gcs_bucket must be set when provider is gcs")
	}
	if c.Checkpoint.EveryRecords <= 0 && c.Checkpoint.IntervalSeconds <= 0 {
		return fmt.Errorf("checkpoint requires every_records or interval_seconds")
	}
	switch c.PubSub.Provider {
	case "memory", "pubsub":
	default:
		return fmt.Errorf("pubsub.provider must be memory or pubsub")
	}
	if c.PubSub.Provider == "pubsub" && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when provider is pubsub")
	}
	return nil
}

// SourceTimeout converts the per-call timeout config into a duration.
func (c Config) SourceTimeout() time.Duration {
	return time.Duration(c.Sources.TimeoutSeconds) * time.Second
}

// SourceDelay is the configured inter-call delay for a source.
func (c Config) SourceDelay() time.Duration {
	return time.Duration(c.Sources.DelayMs) * time.Millisecond
}

// CheckpointInterval is the elapsed-time checkpoint trigger.
func (c Config) CheckpointInterval() time.Duration {
	return time.Duration(c.Checkpoint.IntervalSeconds) * time.Second
}
