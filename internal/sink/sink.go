// Package sink validates extracted records and writes complete ones to a document store.
package sink

import (
	"context"
	"fmt"

	"github.com/JakeFAU/listing-harvester/internal/harvest"
)

// Sink drops incomplete records and inserts the rest, one document per record.
// It is safe for concurrent use when the writer is.
type Sink struct {
	writer harvest.DocumentWriter
}

// New builds a Sink around an already connected writer.
func New(writer harvest.DocumentWriter) *Sink {
	return &Sink{writer: writer}
}

// Accept returns the record unchanged after a single insert. The first empty
// field, in title then url order, yields a *harvest.MissingFieldError and
// nothing is written.
func (s *Sink) Accept(ctx context.Context, rec harvest.Record) (harvest.Record, error) {
	for _, field := range rec.Fields() {
		if field.Value == "" {
			return harvest.Record{}, &harvest.MissingFieldError{Field: field.Name}
		}
	}
	if s.writer == nil {
		return harvest.Record{}, fmt.Errorf("sink has no document writer")
	}
	if err := s.writer.Insert(ctx, rec.Document()); err != nil {
		return harvest.Record{}, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}
