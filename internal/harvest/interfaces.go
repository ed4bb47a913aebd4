package harvest

import (
	"context"
	"iter"

	"golang.org/x/net/html"
)

// DocumentWriter inserts a single document.
type DocumentWriter interface {
	Insert(ctx context.Context, doc Document) error
}

// DocumentStore is a long-lived handle on the target collection.
// Implementations must be safe for concurrent use.
type DocumentStore interface {
	DocumentWriter
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Extractor maps a parsed page to a lazy sequence of records.
type Extractor interface {
	Extract(doc *html.Node) iter.Seq2[Record, error]
}

// Sink validates a record and persists it.
type Sink interface {
	Accept(ctx context.Context, rec Record) (Record, error)
}

// IDGenerator produces run and row IDs.
type IDGenerator interface {
	NewID() (string, error)
}
