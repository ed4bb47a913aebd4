// Package postgres provides a Postgres-backed document store.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/listing-harvester/internal/harvest"
)

const backendName = "postgres"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for document rows.
// The table is expected to look like:
//
//	CREATE TABLE questions (
//		id UUID PRIMARY KEY,
//		document JSONB NOT NULL,
//		created_at TIMESTAMPTZ DEFAULT NOW()
//	);
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Ping(context.Context) error
	Close()
}

// DocumentStore writes each document as one JSONB row.
type DocumentStore struct {
	pool  pool
	ids   harvest.IDGenerator
	query string
}

// NewDocumentStore creates a pool from cfg and pings it.
func NewDocumentStore(ctx context.Context, cfg Config, ids harvest.IDGenerator) (*DocumentStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres.dsn is required")
	}
	if err := validateTable(cfg.Table); err != nil {
		return nil, err
	}
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	addr := fmt.Sprintf("%s:%d", poolCfg.ConnConfig.Host, poolCfg.ConnConfig.Port)
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, &harvest.StorageConnectionError{Backend: backendName, Addr: addr, Err: err}
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, &harvest.StorageConnectionError{Backend: backendName, Addr: addr, Err: err}
	}
	return NewDocumentStoreWithPool(p, cfg.Table, ids)
}

func poolConfig(cfg Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	return poolCfg, nil
}

// NewDocumentStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewDocumentStoreWithPool(p pool, table string, ids harvest.IDGenerator) (*DocumentStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if ids == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if err := validateTable(table); err != nil {
		return nil, err
	}
	return &DocumentStore{
		pool:  p,
		ids:   ids,
		query: fmt.Sprintf(`INSERT INTO %s (id, document) VALUES ($1, $2)`, table),
	}, nil
}

func validateTable(table string) error {
	if !validTableName.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

// Insert writes one row holding the JSON-encoded document.
func (s *DocumentStore) Insert(ctx context.Context, doc harvest.Document) error {
	id, err := s.ids.NewID()
	if err != nil {
		return fmt.Errorf("generate row id: %w", err)
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if _, err := s.pool.Exec(ctx, s.query, id, payload); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Ping verifies a connection can be acquired.
func (s *DocumentStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *DocumentStore) Close(context.Context) error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
