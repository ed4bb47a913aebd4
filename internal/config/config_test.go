package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Backend != BackendMongo {
		t.Fatalf("expected mongo backend, got %q", cfg.Storage.Backend)
	}
	if cfg.MongoDB.Host != "localhost" || cfg.MongoDB.Port != 27017 {
		t.Fatalf("unexpected mongodb address %s:%d", cfg.MongoDB.Host, cfg.MongoDB.Port)
	}
	if cfg.MongoDB.Database != "stackoverflow" || cfg.MongoDB.Collection != "questions" {
		t.Fatalf("unexpected mongodb target %s.%s", cfg.MongoDB.Database, cfg.MongoDB.Collection)
	}
	if len(cfg.Crawler.StartURLs) != 1 || !strings.Contains(cfg.Crawler.StartURLs[0], "stackoverflow.com/questions") {
		t.Fatalf("unexpected start urls %v", cfg.Crawler.StartURLs)
	}
	if cfg.Selectors.Container != `//div[@class="summary"]/h3` {
		t.Fatalf("unexpected container selector %q", cfg.Selectors.Container)
	}
	if got := cfg.RequestTimeout(); got != 15*time.Second {
		t.Fatalf("expected 15s request timeout, got %v", got)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
crawler:
  start_urls: ["https://example.com/list?page=1", "https://example.com/list?page=2"]
  allowed_domains: ["example.com"]
  user_agent: test-agent
  respect_robots: false
  concurrency: 3
  timeout_seconds: 5
selectors:
  container: //li[@class="entry"]
  link: a[@rel="bookmark"]
harvest:
  resolve_urls: true
storage:
  backend: mongo
mongodb:
  host: mongo.internal
  port: 27018
  database: listings
  collection: entries
  connect_timeout_seconds: 3
logging:
  development: false
  level: debug
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if len(cfg.Crawler.StartURLs) != 2 || cfg.Crawler.Concurrency != 3 || cfg.Crawler.RespectRobots {
		t.Fatalf("expected crawler overrides to apply: %+v", cfg.Crawler)
	}
	if cfg.Selectors.Link != `a[@rel="bookmark"]` || !cfg.Harvest.ResolveURLs {
		t.Fatalf("expected selector/harvest overrides: %+v %+v", cfg.Selectors, cfg.Harvest)
	}
	if cfg.MongoDB.Host != "mongo.internal" || cfg.MongoDB.Port != 27018 ||
		cfg.MongoDB.Database != "listings" || cfg.MongoDB.Collection != "entries" {
		t.Fatalf("expected mongodb overrides: %+v", cfg.MongoDB)
	}
	if got := cfg.ConnectTimeout(); got != 3*time.Second {
		t.Fatalf("expected 3s connect timeout, got %v", got)
	}
	if cfg.Logging.Development || cfg.Logging.Level != "debug" {
		t.Fatalf("expected logging overrides: %+v", cfg.Logging)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HARVESTER_MONGODB_HOST", "db.example")
	t.Setenv("HARVESTER_MONGODB_PORT", "27999")
	t.Setenv("HARVESTER_STORAGE_BACKEND", "memory")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MongoDB.Host != "db.example" || cfg.MongoDB.Port != 27999 {
		t.Fatalf("expected env overrides, got %+v", cfg.MongoDB)
	}
	if cfg.Storage.Backend != BackendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.Storage.Backend)
	}
}

func TestLoadPostgresOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
storage:
  backend: postgres
postgres:
  dsn: postgres://harvester@localhost:5432/listings
  table: entries
  max_conns: 8
  max_conn_lifetime_seconds: 60
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Postgres.Table != "entries" || cfg.Postgres.MaxConns != 8 {
		t.Fatalf("expected postgres overrides: %+v", cfg.Postgres)
	}
	if got := cfg.ConnLifetime(); got != time.Minute {
		t.Fatalf("expected 1m connection lifetime, got %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Crawler:   CrawlerConfig{Concurrency: 1, TimeoutSeconds: 10},
		Selectors: SelectorsConfig{Container: "//div", Link: "a"},
		Storage:   StorageConfig{Backend: BackendMongo},
		MongoDB:   MongoDBConfig{Host: "localhost", Port: 27017, Database: "db", Collection: "c"},
		Postgres:  PostgresConfig{Table: "questions"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = -1 }, want: "server.port"},
		{name: "invalid concurrency", mutate: func(c *Config) { c.Crawler.Concurrency = 0 }, want: "crawler.concurrency"},
		{name: "invalid timeout", mutate: func(c *Config) { c.Crawler.TimeoutSeconds = 0 }, want: "crawler.timeout_seconds"},
		{name: "missing selector", mutate: func(c *Config) { c.Selectors.Link = "" }, want: "selectors"},
		{name: "missing mongo host", mutate: func(c *Config) { c.MongoDB.Host = "" }, want: "mongodb.host"},
		{name: "bad mongo port", mutate: func(c *Config) { c.MongoDB.Port = 70000 }, want: "mongodb.port"},
		{name: "missing mongo database", mutate: func(c *Config) { c.MongoDB.Database = "" }, want: "mongodb.database"},
		{name: "missing mongo collection", mutate: func(c *Config) { c.MongoDB.Collection = "" }, want: "mongodb.collection"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Storage.Backend = BackendPostgres }, want: "postgres.dsn"},
		{name: "negative postgres lifetime", mutate: func(c *Config) {
			c.Storage.Backend = BackendPostgres
			c.Postgres.DSN = "postgres://localhost/db"
			c.Postgres.MaxConnLifetimeSeconds = -1
		}, want: "postgres.max_conn_lifetime_seconds"},
		{name: "unknown backend", mutate: func(c *Config) { c.Storage.Backend = "redis" }, want: "storage.backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
