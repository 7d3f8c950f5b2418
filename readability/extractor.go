// Package readability extracts the main content of event pages with
// go-readability. It serves as the fallback when trafilatura finds
// nothing.
package readability

import (
	"strings"

	"github.com/fwojciec/refinery"
	"github.com/go-shiori/go-readability"
)

// Ensure Extractor implements refinery.ContentExtractor at compile time.
var _ refinery.ContentExtractor = (*Extractor)(nil)

// Extractor wraps go-readability to extract main content from HTML.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractContent processes raw HTML and returns the main content.
func (e *Extractor) ExtractContent(rawHTML string) (*refinery.ContentResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, refinery.Errorf(refinery.EINVALID, "empty HTML input")
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), nil)
	if err != nil {
		return nil, err
	}

	return &refinery.ContentResult{
		Title:       strings.TrimSpace(article.Title),
		ContentHTML: article.Content,
	}, nil
}
