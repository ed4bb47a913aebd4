// Package main wires together the harvester binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/listing-harvester/internal/api"
	"github.com/JakeFAU/listing-harvester/internal/config"
	"github.com/JakeFAU/listing-harvester/internal/extract"
	collyfetcher "github.com/JakeFAU/listing-harvester/internal/fetcher/colly"
	"github.com/JakeFAU/listing-harvester/internal/harvest"
	"github.com/JakeFAU/listing-harvester/internal/id/uuid"
	"github.com/JakeFAU/listing-harvester/internal/logging"
	"github.com/JakeFAU/listing-harvester/internal/sink"
	memoryStorage "github.com/JakeFAU/listing-harvester/internal/storage/memory"
	mongostore "github.com/JakeFAU/listing-harvester/internal/storage/mongo"
	"github.com/JakeFAU/listing-harvester/internal/storage/postgres"
	"github.com/JakeFAU/listing-harvester/internal/worker"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("config", "", "Path to config file")
	dryRun := flag.Bool("dry-run", false, "Keep records in memory instead of writing to the configured store")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		return 1
	}
	if args := flag.Args(); len(args) > 0 {
		cfg.Crawler.StartURLs = args
	}
	if *dryRun {
		cfg.Storage.Backend = config.BackendMemory
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	idGen := uuid.New()
	store, err := openStore(ctx, cfg, idGen)
	if err != nil {
		logger.Error("document store unavailable", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("close document store", zap.Error(err))
		}
	}()
	logger.Info("document store ready", zap.String("backend", cfg.Storage.Backend))

	extractor, err := extract.NewExtractor(extract.Selectors{
		Container: cfg.Selectors.Container,
		Link:      cfg.Selectors.Link,
	})
	if err != nil {
		logger.Error("invalid selectors", zap.Error(err))
		return 1
	}
	active := extractor.Selectors()
	logger.Info("selectors compiled",
		zap.String("container", active.Container),
		zap.String("link", active.Link),
	)

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:      cfg.Crawler.UserAgent,
		RespectRobots:  cfg.Crawler.RespectRobots,
		Timeout:        cfg.RequestTimeout(),
		AllowedDomains: cfg.Crawler.AllowedDomains,
	})

	w := worker.New(
		fetcher,
		extractor,
		sink.New(store),
		idGen,
		worker.Config{
			Concurrency: cfg.Crawler.Concurrency,
			ResolveURLs: cfg.Harvest.ResolveURLs,
		},
		logger.Named("worker"),
	)

	var apiServer *api.Server
	if cfg.Server.Port > 0 {
		apiServer = api.NewServer(store, logger.Named("api"))
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           apiServer.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("http server started", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown error", zap.Error(err))
			}
		}()
	}

	if _, err := harvestAndServe(ctx, w, cfg.Crawler.StartURLs, apiServer, logger); err != nil {
		logger.Error("harvest completed with failures", zap.Error(err))
		return 1
	}
	return 0
}

type runner interface {
	Run(ctx context.Context, urls []string) (harvest.Summary, error)
}

// harvestAndServe runs one harvest and publishes its summary. With a side
// server attached it keeps serving until ctx is done so the summary stays
// reachable at /v1/runs/last.
func harvestAndServe(
	ctx context.Context,
	r runner,
	urls []string,
	apiServer *api.Server,
	logger *zap.Logger,
) (harvest.Summary, error) {
	summary, err := r.Run(ctx, urls)
	if apiServer == nil {
		return summary, err
	}
	apiServer.SetSummary(summary)
	logger.Info("harvest finished, serving until interrupted",
		zap.String("run_id", summary.RunID),
		zap.Int("stored", summary.Stored),
		zap.Int("dropped", summary.Dropped),
	)
	<-ctx.Done()
	return summary, err
}

func openStore(ctx context.Context, cfg config.Config, ids harvest.IDGenerator) (harvest.DocumentStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendMongo:
		store, err := mongostore.NewStore(ctx, mongostore.Config{
			Host:           cfg.MongoDB.Host,
			Port:           cfg.MongoDB.Port,
			Database:       cfg.MongoDB.Database,
			Collection:     cfg.MongoDB.Collection,
			ConnectTimeout: cfg.ConnectTimeout(),
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendPostgres:
		store, err := postgres.NewDocumentStore(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			Table:           cfg.Postgres.Table,
			MaxConns:        cfg.Postgres.MaxConns,
			MaxConnLifetime: cfg.ConnLifetime(),
		}, ids)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendMemory:
		return memoryStorage.NewDocumentStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
