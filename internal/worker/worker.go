// Package worker runs the harvest pipeline: fetch each listing page, extract
// its records, and hand them one at a time to the sink.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/listing-harvester/internal/extract"
	"github.com/JakeFAU/listing-harvester/internal/harvest"
	"github.com/JakeFAU/listing-harvester/internal/metrics"
)

// Page statuses reported to metrics.
const (
	pageStatusOK         = "ok"
	pageStatusFetchError = "fetch_error"
	pageStatusParseError = "parse_error"
	pageStatusShapeError = "shape_error"
	pageStatusStoreError = "store_error"
	pageStatusCanceled   = "canceled"
)

// Config controls Worker behavior.
type Config struct {
	// Concurrency caps the number of pages in flight.
	Concurrency int
	// ResolveURLs rewrites relative hrefs against the page URL before validation.
	ResolveURLs bool
}

// PageError reports a page whose processing was aborted.
type PageError struct {
	URL string
	Err error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %s: %v", e.URL, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// Worker wires a fetcher, an extractor and a sink together.
type Worker struct {
	fetcher   harvest.Fetcher
	extractor harvest.Extractor
	sink      harvest.Sink
	ids       harvest.IDGenerator
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// New constructs a Worker.
func New(
	fetcher harvest.Fetcher,
	extractor harvest.Extractor,
	sink harvest.Sink,
	ids harvest.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	metrics.Init()
	return &Worker{
		fetcher:   fetcher,
		extractor: extractor,
		sink:      sink,
		ids:       ids,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type tally struct {
	pages, pagesFailed, extracted, stored, dropped atomic.Int64
}

// Run harvests every URL once and returns the run summary. Failed pages do
// not stop the others; their errors are joined into the returned error.
func (w *Worker) Run(ctx context.Context, urls []string) (harvest.Summary, error) {
	runID, err := w.ids.NewID()
	if err != nil {
		return harvest.Summary{}, fmt.Errorf("generate run id: %w", err)
	}
	summary := harvest.Summary{RunID: runID, Started: w.now()}
	logger := w.logger.With(zap.String("run_id", runID))
	logger.Info("harvest started", zap.Int("pages", len(urls)), zap.Int("concurrency", w.cfg.Concurrency))

	var (
		counts  tally
		mu      sync.Mutex
		errs    []error
		g       errgroup.Group
		pageErr = func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	)
	g.SetLimit(w.cfg.Concurrency)

	for _, pageURL := range urls {
		if ctx.Err() != nil {
			pageErr(&PageError{URL: pageURL, Err: ctx.Err()})
			counts.pages.Add(1)
			counts.pagesFailed.Add(1)
			metrics.ObservePage(pageURL, pageStatusCanceled)
			continue
		}
		g.Go(func() error {
			counts.pages.Add(1)
			if err := w.harvestPage(ctx, runID, pageURL, &counts, logger); err != nil {
				counts.pagesFailed.Add(1)
				pageErr(&PageError{URL: pageURL, Err: err})
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.Pages = int(counts.pages.Load())
	summary.PagesFailed = int(counts.pagesFailed.Load())
	summary.Extracted = int(counts.extracted.Load())
	summary.Stored = int(counts.stored.Load())
	summary.Dropped = int(counts.dropped.Load())
	summary.Finished = w.now()

	logger.Info("harvest finished",
		zap.Int("pages", summary.Pages),
		zap.Int("pages_failed", summary.PagesFailed),
		zap.Int("extracted", summary.Extracted),
		zap.Int("stored", summary.Stored),
		zap.Int("dropped", summary.Dropped),
		zap.Duration("elapsed", summary.Finished.Sub(summary.Started)),
	)
	return summary, errors.Join(errs...)
}

func (w *Worker) harvestPage(
	ctx context.Context,
	runID string,
	pageURL string,
	counts *tally,
	logger *zap.Logger,
) error {
	logger = logger.With(zap.String("url", pageURL))

	resp, err := w.fetcher.Fetch(ctx, harvest.FetchRequest{RunID: runID, URL: pageURL})
	if err != nil {
		metrics.ObservePage(pageURL, pageStatusFetchError)
		logger.Error("fetch failed", zap.Error(err))
		return fmt.Errorf("fetch: %w", err)
	}
	logger.Debug("page fetched",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(resp.Body)),
		zap.Duration("duration", resp.Duration),
	)

	doc, err := extract.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		metrics.ObservePage(pageURL, pageStatusParseError)
		logger.Error("parse failed", zap.Error(err))
		return err
	}

	base := w.baseURL(resp.URL, pageURL)
	index := 0
	for rec, err := range w.extractor.Extract(doc) {
		if err != nil {
			metrics.ObservePage(pageURL, pageStatusShapeError)
			logger.Error("extraction aborted", zap.Int("index", index), zap.Error(err))
			return fmt.Errorf("extract: %w", err)
		}
		counts.extracted.Add(1)
		metrics.ObserveRecord(metrics.OutcomeExtracted)
		if base != nil {
			rec.URL = resolve(base, rec.URL)
		}

		if _, err := w.sink.Accept(ctx, rec); err != nil {
			var missing *harvest.MissingFieldError
			if errors.As(err, &missing) {
				counts.dropped.Add(1)
				metrics.ObserveDrop(missing.Field)
				logger.Info("record dropped", zap.Int("index", index), zap.String("field", missing.Field))
				index++
				continue
			}
			metrics.ObserveRecord(metrics.OutcomeFailed)
			metrics.ObservePage(pageURL, pageStatusStoreError)
			logger.Error("store failed", zap.Int("index", index), zap.Error(err))
			return fmt.Errorf("accept record %d: %w", index, err)
		}
		counts.stored.Add(1)
		metrics.ObserveRecord(metrics.OutcomeStored)
		index++
	}

	metrics.ObservePage(pageURL, pageStatusOK)
	logger.Info("page harvested", zap.Int("records", index))
	return nil
}

func (w *Worker) baseURL(final, requested string) *url.URL {
	if !w.cfg.ResolveURLs {
		return nil
	}
	raw := final
	if raw == "" {
		raw = requested
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return u
}

// resolve leaves empty and unparsable hrefs untouched so validation still sees them.
func resolve(base *url.URL, href string) string {
	if href == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
