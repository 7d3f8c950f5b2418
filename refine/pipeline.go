package refine

import (
	"context"
	"time"

	"github.com/fwojciec/refinery"
)

// Pipeline processes one URL end to end: fetch, refine, duplicate check
// and publish.
type Pipeline struct {
	Fetcher    refinery.ContentFetcher
	Controller *Controller
	Duplicates refinery.DuplicateStore
	Publisher  refinery.Publisher

	// TokenCounter, if set, counts tokens in the fetched content.
	TokenCounter refinery.TokenCounter

	// StepTimeout bounds fetch, duplicate check and publish calls.
	// Zero means calls are bounded only by the parent context.
	StepTimeout time.Duration
}

// Run processes url under opts and returns the result. Failures of
// individual steps are collected on the result; Run returns an error only
// when opts are invalid.
//
// The duplicate check happens once, after refinement is done. A failed
// duplicate check aborts publishing. Only acceptable records are
// published.
func (p *Pipeline) Run(ctx context.Context, url string, opts refinery.RunOptions) (*refinery.WorkflowResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	begin := time.Now()
	result := &refinery.WorkflowResult{URL: url}
	p.run(ctx, url, opts, result)
	result.Duration = time.Since(begin)
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, url string, opts refinery.RunOptions, result *refinery.WorkflowResult) {
	content, err := step(ctx, p.StepTimeout, func(ctx context.Context) (*refinery.SourceContent, error) {
		return p.Fetcher.FetchContent(ctx, url)
	})
	if err != nil || content == nil {
		result.Errors = append(result.Errors, asCode(err, refinery.EFETCH, "fetcher returned no content"))
		return
	}

	if p.TokenCounter != nil {
		tokens, err := p.TokenCounter.CountTokens(ctx, content.Text)
		if err != nil {
			result.Errors = append(result.Errors, err)
		} else {
			result.SourceTokens = tokens
		}
	}

	refinement, err := p.Controller.Refine(ctx, content, opts)
	if err != nil {
		result.Errors = append(result.Errors, err)
		return
	}
	result.Record = refinement.Record
	result.Score = refinement.Score
	result.Iterations = len(refinement.Iterations)
	result.Errors = append(result.Errors, refinement.Errors...)

	if result.Record == nil {
		result.Outcome = refinery.OutcomeRejected
		return
	}
	if !refinement.Acceptable() {
		result.Outcome = refinery.OutcomeRejected
		return
	}

	key := refinery.NewDedupKey(result.Record, content.URL)
	if err := key.Validate(); err != nil {
		result.Errors = append(result.Errors, refinery.Errorf(refinery.EDUPCHECK, "cannot derive dedup key: %s", refinery.ErrorMessage(err)))
		result.Outcome = refinery.OutcomeRejected
		return
	}

	existing, err := step(ctx, p.StepTimeout, func(ctx context.Context) (*refinery.PublishedRecord, error) {
		return p.Duplicates.FindDuplicate(ctx, key)
	})
	switch {
	case refinery.ErrorCode(err) == refinery.ENOTFOUND:
	case err != nil:
		result.Errors = append(result.Errors, asCode(err, refinery.EDUPCHECK, ""))
		return
	case existing != nil:
		result.Duplicate = true
		result.RecordID = existing.ID
	}

	switch {
	case result.Duplicate && !opts.Refresh:
		result.Outcome = refinery.OutcomeSkipped
		result.Success = true
		return
	case opts.DryRun:
		result.Success = true
		return
	}

	published, err := step(ctx, p.StepTimeout, func(ctx context.Context) (*refinery.PublishResult, error) {
		return p.Publisher.Upsert(ctx, key, result.Record, result.Score)
	})
	if err != nil || published == nil {
		result.Errors = append(result.Errors, asCode(err, refinery.EPUBLISH, "publisher returned no result"))
		return
	}
	result.Outcome = published.Operation
	result.RecordID = published.ID
	result.Success = true
}
