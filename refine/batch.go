package refine

import (
	"context"

	"github.com/fwojciec/refinery"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of pipelines a Batch runs at once when
// none is configured.
const DefaultConcurrency = 4

// Runner processes a single URL.
type Runner interface {
	Run(ctx context.Context, url string, opts refinery.RunOptions) (*refinery.WorkflowResult, error)
}

// Ensure Pipeline implements Runner at compile time.
var _ Runner = (*Pipeline)(nil)

// ProgressEvent reports a finished URL during a batch.
type ProgressEvent struct {
	Completed int
	Total     int
	Result    *refinery.WorkflowResult
}

// ProgressFunc is a callback for reporting batch progress.
type ProgressFunc func(event ProgressEvent)

// Batch runs independent pipelines for many URLs concurrently.
type Batch struct {
	Runner      Runner
	Concurrency int
}

type batchResult struct {
	position int
	result   *refinery.WorkflowResult
}

// Run processes urls and returns one result per input URL, in input
// order. A URL that repeats an earlier one is processed once and shares
// its result. Failures of individual URLs never stop the batch.
// The progress callback, if provided, is called from the calling
// goroutine as each distinct URL finishes.
func (b *Batch) Run(ctx context.Context, urls []string, opts refinery.RunOptions, progress ProgressFunc) ([]*refinery.WorkflowResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	concurrency := b.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	seen := make(map[string]int, len(urls))
	aliases := make(map[int]int)
	var distinct []int
	for i, u := range urls {
		key := refinery.CanonicalURL(u)
		if first, ok := seen[key]; ok {
			aliases[i] = first
			continue
		}
		seen[key] = i
		distinct = append(distinct, i)
	}

	resultCh := make(chan batchResult, len(distinct))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	go func() {
		for _, i := range distinct {
			i := i
			g.Go(func() error {
				result, err := b.Runner.Run(gctx, urls[i], opts)
				if err != nil {
					result = &refinery.WorkflowResult{URL: urls[i], Errors: []error{err}}
				}
				resultCh <- batchResult{position: i, result: result}
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	results := make([]*refinery.WorkflowResult, len(urls))
	var completed int
	for r := range resultCh {
		completed++
		results[r.position] = r.result
		if progress != nil {
			progress(ProgressEvent{
				Completed: completed,
				Total:     len(distinct),
				Result:    r.result,
			})
		}
	}

	for i, first := range aliases {
		results[i] = results[first]
	}
	return results, nil
}
