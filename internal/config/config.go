// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Selectors SelectorsConfig `mapstructure:"selectors"`
	Harvest   HarvestConfig   `mapstructure:"harvest"`
	Storage   StorageConfig   `mapstructure:"storage"`
	MongoDB   MongoDBConfig   `mapstructure:"mongodb"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls the optional health/metrics listener. Port 0 disables it.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlerConfig governs how listing pages are fetched.
type CrawlerConfig struct {
	StartURLs      []string `mapstructure:"start_urls"`
	AllowedDomains []string `mapstructure:"allowed_domains"`
	UserAgent      string   `mapstructure:"user_agent"`
	RespectRobots  bool     `mapstructure:"respect_robots"`
	Concurrency    int      `mapstructure:"concurrency"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

// SelectorsConfig holds the XPath expressions used to extract records.
type SelectorsConfig struct {
	Container string `mapstructure:"container"`
	Link      string `mapstructure:"link"`
}

// HarvestConfig tweaks record post-processing.
type HarvestConfig struct {
	ResolveURLs bool `mapstructure:"resolve_urls"`
}

// StorageConfig selects the document store.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

// MongoDBConfig locates the target collection.
type MongoDBConfig struct {
	Host                  string `mapstructure:"host"`
	Port                  int    `mapstructure:"port"`
	Database              string `mapstructure:"database"`
	Collection            string `mapstructure:"collection"`
	ConnectTimeoutSeconds int    `mapstructure:"connect_timeout_seconds"`
}

// PostgresConfig controls the alternative JSONB store.
type PostgresConfig struct {
	DSN                    string `mapstructure:"dsn"`
	Table                  string `mapstructure:"table"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MaxConnLifetimeSeconds int    `mapstructure:"max_conn_lifetime_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
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
	v.SetDefault("server.port", 0)
	v.SetDefault("crawler.start_urls", []string{"http://stackoverflow.com/questions?pagesize=50&sort=newest"})
	v.SetDefault("crawler.allowed_domains", []string{"stackoverflow.com"})
	v.SetDefault("crawler.user_agent", "listing-harvester/0.1")
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("crawler.concurrency", 1)
	v.SetDefault("crawler.timeout_seconds", 15)
	v.SetDefault("selectors.container", `//div[@class="summary"]/h3`)
	v.SetDefault("selectors.link", `a[@class="question-hyperlink"]`)
	v.SetDefault("harvest.resolve_urls", false)
	v.SetDefault("storage.backend", BackendMongo)
	v.SetDefault("mongodb.host", "localhost")
	v.SetDefault("mongodb.port", 27017)
	v.SetDefault("mongodb.database", "stackoverflow")
	v.SetDefault("mongodb.collection", "questions")
	v.SetDefault("mongodb.connect_timeout_seconds", 10)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.table", "questions")
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("postgres.max_conn_lifetime_seconds", 1800)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Selectors.Container == "" || c.Selectors.Link == "" {
		return fmt.Errorf("selectors.container and selectors.link must be set")
	}
	switch c.Storage.Backend {
	case BackendMongo:
		return c.MongoDB.validate()
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn must be set when storage.backend is postgres")
		}
		if c.Postgres.Table == "" {
			return fmt.Errorf("postgres.table must be set when storage.backend is postgres")
		}
		if c.Postgres.MaxConnLifetimeSeconds < 0 {
			return fmt.Errorf("postgres.max_conn_lifetime_seconds must be >= 0")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("storage.backend must be one of %s, %s, %s", BackendMongo, BackendPostgres, BackendMemory)
	}
	return nil
}

func (m MongoDBConfig) validate() error {
	if m.Host == "" {
		return fmt.Errorf("mongodb.host must be set")
	}
	if m.Port <= 0 || m.Port > 65535 {
		return fmt.Errorf("mongodb.port must be between 1 and 65535")
	}
	if m.Database == "" {
		return fmt.Errorf("mongodb.database must be set")
	}
	if m.Collection == "" {
		return fmt.Errorf("mongodb.collection must be set")
	}
	return nil
}

// RequestTimeout converts the crawler timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}

// ConnectTimeout converts the MongoDB connect timeout into a duration.
func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.MongoDB.ConnectTimeoutSeconds) * time.Second
}

// ConnLifetime converts the Postgres connection lifetime into a duration.
func (c Config) ConnLifetime() time.Duration {
	return time.Duration(c.Postgres.MaxConnLifetimeSeconds) * time.Second
}
