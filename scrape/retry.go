package scrape

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/refinery"
)

// DefaultRetryDelays returns the backoff delays for fetch retries: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// fetchWithRetry calls fetch until it succeeds, the delays are spent or the
// error is permanent. Missing pages and invalid URLs are permanent.
func fetchWithRetry(ctx context.Context, url string, fetch func(ctx context.Context, url string) (string, error), delays []time.Duration, logger *slog.Logger) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= len(delays); attempt++ {
		html, err := fetch(ctx, url)
		if err == nil {
			return html, nil
		}
		lastErr = err

		if attempt == len(delays) || permanent(err) {
			break
		}
		if logger != nil {
			logger.Debug("retry", "url", url, "attempt", attempt+2, "err", err)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}
	return "", lastErr
}

func permanent(err error) bool {
	switch refinery.ErrorCode(err) {
	case refinery.ENOTFOUND, refinery.EINVALID:
		return true
	}
	return false
}
