// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Record outcomes.
const (
	OutcomeExtracted = "extracted"
	OutcomeStored    = "stored"
	OutcomeDropped   = "dropped"
	OutcomeFailed    = "failed"
)

var (
	pagesTotal          *prometheus.CounterVec
	recordsTotal        *prometheus.CounterVec
	recordsDroppedTotal *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_pages_total",
				Help: "Total number of listing pages processed, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_records_total",
				Help: "Total number of records seen, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		recordsDroppedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_records_dropped_total",
				Help: "Total number of records dropped for a missing field, labeled by field.",
			},
			[]string{"field"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage increments the page counter.
func ObservePage(site string, status string) {
	Init()
	pagesTotal.WithLabelValues(SanitizeSite(site), status).Inc()
}

// ObserveRecord increments the record counter for the given outcome.
func ObserveRecord(outcome string) {
	Init()
	recordsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDrop counts a dropped record under its missing field.
func ObserveDrop(field string) {
	Init()
	recordsTotal.WithLabelValues(OutcomeDropped).Inc()
	recordsDroppedTotal.WithLabelValues(field).Inc()
}
