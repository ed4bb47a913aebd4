// Package mongostore provides the MongoDB-backed document store.
package mongostore

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/JakeFAU/listing-harvester/internal/harvest"
)

const backendName = "mongodb"

// Config identifies the target collection.
type Config struct {
	Host           string
	Port           int
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) validate() error {
	switch {
	case c.Host == "":
		return fmt.Errorf("mongodb host is required")
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("mongodb port %d out of range", c.Port)
	case c.Database == "":
		return fmt.Errorf("mongodb database is required")
	case c.Collection == "":
		return fmt.Errorf("mongodb collection is required")
	}
	return nil
}

type collection interface {
	InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error)
}

type client interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
	Disconnect(ctx context.Context) error
}

// Store writes documents into a single collection. The underlying client is
// goroutine-safe, so one Store serves every page of a run.
type Store struct {
	client     client
	collection collection
}

// NewStore connects to MongoDB and verifies the server is reachable.
// Any failure is returned as *harvest.StorageConnectionError.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts := options.Client().
		ApplyURI("mongodb://" + cfg.Addr()).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	c, err := mongo.Connect(opts)
	if err != nil {
		return nil, &harvest.StorageConnectionError{Backend: backendName, Addr: cfg.Addr(), Err: err}
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := c.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, &harvest.StorageConnectionError{Backend: backendName, Addr: cfg.Addr(), Err: err}
	}
	return &Store{
		client:     c,
		collection: c.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// NewStoreWithCollection constructs a store from existing handles (primarily for testing).
func NewStoreWithCollection(c client, coll collection) (*Store, error) {
	if coll == nil {
		return nil, fmt.Errorf("collection is required")
	}
	return &Store{client: c, collection: coll}, nil
}

// Insert writes exactly one document.
func (s *Store) Insert(ctx context.Context, doc harvest.Document) error {
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongodb insert: %w", err)
	}
	return nil
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongodb ping: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongodb disconnect: %w", err)
	}
	return nil
}
