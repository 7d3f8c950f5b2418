// Package scrape turns event pages into refinery.SourceContent: it fetches
// raw HTML with retries and per-domain rate limiting, strips boilerplate,
// converts the main content to Markdown and reads page metadata.
package scrape

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/refinery"
)

// Ensure Fetcher implements refinery.ContentFetcher at compile time.
var _ refinery.ContentFetcher = (*Fetcher)(nil)

// Fetcher implements refinery.ContentFetcher on top of a raw HTML fetcher.
type Fetcher struct {
	Fetcher   refinery.Fetcher
	Converter refinery.Converter

	// Extractors are tried in order until one yields content.
	Extractors []refinery.ContentExtractor

	// Metadata, if set, reads structured fields from the raw HTML.
	Metadata refinery.MetadataReader

	// RateLimiter, if set, is waited on before every request.
	RateLimiter refinery.DomainLimiter

	// RetryDelays are the pauses between fetch attempts.
	// Nil means a single attempt.
	RetryDelays []time.Duration

	// Logger, if set, receives retry messages.
	Logger *slog.Logger

	// Now returns the fetch time. Defaults to time.Now.
	Now func() time.Time
}

// FetchContent fetches rawURL and reduces it to SourceContent.
// Every failure is returned as EFETCH.
func (f *Fetcher) FetchContent(ctx context.Context, rawURL string) (*refinery.SourceContent, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, refinery.Errorf(refinery.EFETCH, "invalid url %q", rawURL)
	}

	fetch := func(ctx context.Context, url string) (string, error) {
		if f.RateLimiter != nil {
			if err := f.RateLimiter.Wait(ctx, u.Hostname()); err != nil {
				return "", err
			}
		}
		return f.Fetcher.Fetch(ctx, url)
	}

	html, err := fetchWithRetry(ctx, rawURL, fetch, f.RetryDelays, f.Logger)
	if err != nil {
		return nil, refinery.Errorf(refinery.EFETCH, "fetching %s: %s", rawURL, message(err))
	}
	if strings.TrimSpace(html) == "" {
		return nil, refinery.Errorf(refinery.EFETCH, "empty page at %s", rawURL)
	}

	content := &refinery.SourceContent{
		URL:       rawURL,
		FetchedAt: f.now(),
	}

	if f.Metadata != nil {
		if meta, err := f.Metadata.ReadMetadata(html); err == nil && len(meta) > 0 {
			content.Metadata = meta
		}
	}

	main := f.extract(html)
	if main == nil {
		return nil, refinery.Errorf(refinery.EFETCH, "no main content found at %s", rawURL)
	}
	content.Title = main.Title

	text, err := f.Converter.Convert(main.ContentHTML)
	if err != nil {
		return nil, refinery.Errorf(refinery.EFETCH, "converting %s: %s", rawURL, message(err))
	}
	content.Text = strings.TrimSpace(text)
	if content.Text == "" {
		return nil, refinery.Errorf(refinery.EFETCH, "no text content at %s", rawURL)
	}

	return content, nil
}

// extract returns the first non-empty main content. A later extractor's
// title fills in when the winning one found none.
func (f *Fetcher) extract(html string) *refinery.ContentResult {
	var found *refinery.ContentResult
	var title string
	for _, e := range f.Extractors {
		result, err := e.ExtractContent(html)
		if err != nil || result == nil {
			continue
		}
		if title == "" {
			title = result.Title
		}
		if found == nil && strings.TrimSpace(result.ContentHTML) != "" {
			found = result
		}
		if found != nil && title != "" {
			break
		}
	}
	if found == nil {
		return nil
	}
	return &refinery.ContentResult{Title: title, ContentHTML: found.ContentHTML}
}

func (f *Fetcher) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// message returns the application message of err, or its text when err
// carries no code.
func message(err error) string {
	if refinery.ErrorCode(err) == refinery.EINTERNAL {
		return err.Error()
	}
	return refinery.ErrorMessage(err)
}
