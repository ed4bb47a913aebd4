// Package harvest defines the record shape and the interfaces shared across the harvester.
package harvest

import (
	"net/http"
	"time"
)

// Field names in validation order.
const (
	FieldTitle = "title"
	FieldURL   = "url"
)

// Record is one listing entry extracted from a page.
type Record struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Field is a named record value.
type Field struct {
	Name  string
	Value string
}

// Fields returns the record's values in validation order.
func (r Record) Fields() []Field {
	return []Field{
		{Name: FieldTitle, Value: r.Title},
		{Name: FieldURL, Value: r.URL},
	}
}

// Document converts the record into its stored shape.
func (r Record) Document() Document {
	return Document{Title: r.Title, URL: r.URL}
}

// Document is the persisted form of a Record.
type Document struct {
	Title string `json:"title" bson:"title"`
	URL   string `json:"url" bson:"url"`
}

// FetchRequest captures everything needed to fetch a listing page.
type FetchRequest struct {
	RunID   string
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Summary reports the outcome of one harvest run.
type Summary struct {
	RunID       string    `json:"run_id"`
	Pages       int       `json:"pages"`
	PagesFailed int       `json:"pages_failed"`
	Extracted   int       `json:"extracted"`
	Stored      int       `json:"stored"`
	Dropped     int       `json:"dropped"`
	Started     time.Time `json:"started_at"`
	Finished    time.Time `json:"finished_at"`
}
