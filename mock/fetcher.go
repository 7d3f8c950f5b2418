package mock

import (
	"context"

	"github.com/fwojciec/refinery"
)

var _ refinery.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of refinery.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (string, error)
	CloseFn func() error
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.FetchFn(ctx, url)
}

func (f *Fetcher) Close() error {
	return f.CloseFn()
}

var _ refinery.ContentFetcher = (*ContentFetcher)(nil)

// ContentFetcher is a mock implementation of refinery.ContentFetcher.
type ContentFetcher struct {
	FetchContentFn func(ctx context.Context, url string) (*refinery.SourceContent, error)
}

func (f *ContentFetcher) FetchContent(ctx context.Context, url string) (*refinery.SourceContent, error) {
	return f.FetchContentFn(ctx, url)
}
