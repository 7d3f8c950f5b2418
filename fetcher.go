package refinery

import (
	"context"
	"time"
)

// Fetcher retrieves HTML from URLs.
// Implementations may use browser automation to handle JavaScript-rendered content.
type Fetcher interface {
	// Fetch retrieves the page and returns its HTML.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (html string, err error)

	// Close releases resources held by the fetcher.
	// Must be called when the Fetcher is no longer needed.
	Close() error
}

// SourceContent is the fetched text of a single page.
// It is immutable once fetched and owned by one pipeline run.
type SourceContent struct {
	URL string `json:"url"`

	// Text is the main content of the page rendered as Markdown.
	Text string `json:"text"`

	// Title is the page title taken from metadata, if any.
	Title string `json:"title,omitempty"`

	// Metadata holds structured hints found in the page head and JSON-LD,
	// keyed by refinery field name (e.g. "start_time", "location").
	Metadata map[string]string `json:"metadata,omitempty"`

	FetchedAt time.Time `json:"fetchedAt"`
}

// Validate returns an error if the content cannot be used for extraction.
func (c *SourceContent) Validate() error {
	if c.URL == "" {
		return Errorf(EINVALID, "content URL required")
	}
	return nil
}

// ContentFetcher retrieves a page and reduces it to SourceContent.
// Implementations hide HTTP vs browser selection, retry logic,
// boilerplate removal and markdown conversion.
type ContentFetcher interface {
	// FetchContent returns EFETCH when the page is unreachable,
	// blocked, or has no usable content.
	FetchContent(ctx context.Context, url string) (*SourceContent, error)
}

// DomainLimiter rate limits requests per domain.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}
