// Package extract maps listing pages to records using XPath selectors.
package extract

import (
	"fmt"
	"io"
	"iter"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/JakeFAU/listing-harvester/internal/harvest"
)

// Default selectors for a question listing page.
const (
	DefaultContainer = `//div[@class="summary"]/h3`
	DefaultLink      = `a[@class="question-hyperlink"]`
)

// Selectors locates listing entries and the link inside each one.
// Link is evaluated relative to each container.
type Selectors struct {
	Container string
	Link      string
}

// DefaultSelectors returns the question listing selectors.
func DefaultSelectors() Selectors {
	return Selectors{Container: DefaultContainer, Link: DefaultLink}
}

// Extractor holds compiled selectors. It is safe for concurrent use.
type Extractor struct {
	selectors Selectors
	container *xpath.Expr
	link      *xpath.Expr
}

var defaultExtractor = Must(DefaultSelectors())

// NewExtractor compiles the selectors.
func NewExtractor(selectors Selectors) (*Extractor, error) {
	if selectors.Container == "" {
		return nil, fmt.Errorf("container selector is required")
	}
	if selectors.Link == "" {
		return nil, fmt.Errorf("link selector is required")
	}
	container, err := xpath.Compile(selectors.Container)
	if err != nil {
		return nil, fmt.Errorf("compile container selector %q: %w", selectors.Container, err)
	}
	link, err := xpath.Compile(selectors.Link)
	if err != nil {
		return nil, fmt.Errorf("compile link selector %q: %w", selectors.Link, err)
	}
	return &Extractor{selectors: selectors, container: container, link: link}, nil
}

// Must is like NewExtractor but panics on invalid selectors.
func Must(selectors Selectors) *Extractor {
	e, err := NewExtractor(selectors)
	if err != nil {
		panic(err)
	}
	return e
}

// Selectors returns the source expressions the extractor was built from.
func (e *Extractor) Selectors() Selectors {
	return e.selectors
}

// Extract uses the default selectors.
func Extract(doc *html.Node) iter.Seq2[harvest.Record, error] {
	return defaultExtractor.Extract(doc)
}

// Extract yields one record per container in document order. Containers are
// matched as the sequence is consumed. A container without a link yields an
// *harvest.ExtractionShapeError and ends the sequence.
func (e *Extractor) Extract(doc *html.Node) iter.Seq2[harvest.Record, error] {
	return func(yield func(harvest.Record, error) bool) {
		if doc == nil {
			return
		}
		matches := e.container.Select(htmlquery.CreateXPathNavigator(doc))
		for i := 0; matches.MoveNext(); i++ {
			nav, ok := matches.Current().(*htmlquery.NodeNavigator)
			if !ok {
				yield(harvest.Record{}, fmt.Errorf("container %d: unexpected navigator %T", i, matches.Current()))
				return
			}
			link := htmlquery.QuerySelector(nav.Current(), e.link)
			if link == nil {
				yield(harvest.Record{}, &harvest.ExtractionShapeError{Index: i, Selector: e.selectors.Link})
				return
			}
			rec := harvest.Record{
				Title: htmlquery.InnerText(link),
				URL:   htmlquery.SelectAttr(link, "href"),
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Parse builds a DOM tree from an HTML document.
func Parse(r io.Reader) (*html.Node, error) {
	doc, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}
