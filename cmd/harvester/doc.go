// Package main hosts the listing harvester entrypoint.
//
// Architecture overview:
//   - Fetch: a Colly-based fetcher (internal/fetcher/colly) performs one GET per start URL, honoring robots.txt,
//     the allowed-domain list and the configured user agent.
//   - Extract: internal/extract parses the page with htmlquery and walks the container XPath lazily, yielding one
//     {title, url} record per listing entry in document order. A container without a link aborts that page.
//   - Sink: internal/sink drops records with an empty field (title is checked before url) and inserts the rest,
//     one document per record, into the configured store.
//   - Storage: MongoDB by default (host/port/database/collection), a Postgres JSONB table as an alternative, or an
//     in-memory store for -dry-run. The store is connected once at startup; failing to connect is fatal.
//   - Plumbing: Viper loads config from file and HARVESTER_* env vars; zap provides structured logging; Prometheus
//     counters track pages and record outcomes; an optional chi server exposes /healthz, /readyz, /metrics and
//     /v1/runs/last, and keeps serving after the run until SIGINT/SIGTERM.
//
// Quick checklist:
//   - Configure HARVESTER_MONGODB_HOST, HARVESTER_MONGODB_PORT, HARVESTER_MONGODB_DATABASE and
//     HARVESTER_MONGODB_COLLECTION (or a config file passed with -config).
//   - Run locally: go run ./cmd/harvester -dry-run
//   - Override the start URLs by passing them as arguments.
package main
