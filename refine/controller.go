// Package refine runs the extract/validate/refine loop and the per-URL
// pipeline built around it.
package refine

import (
	"context"
	"time"

	"github.com/fwojciec/refinery"
)

// Controller runs the bounded extract/validate loop over one piece of
// content. A Controller holds no per-run state and may be shared by
// concurrent runs.
type Controller struct {
	Extractor refinery.Extractor
	Validator refinery.Validator

	// StepTimeout bounds each extractor and validator call.
	// Zero means calls are bounded only by the parent context.
	StepTimeout time.Duration
}

// Refinement is the outcome of one refine loop.
type Refinement struct {
	// Record and Score come from the attempt with the highest overall
	// score. The earliest attempt wins ties. Both are nil when no attempt
	// was made.
	Record *refinery.EventRecord
	Score  *refinery.QualityScore

	Iterations []refinery.IterationRecord
	Errors     []error
}

// Acceptable reports whether the best attempt met the acceptance policy.
func (r *Refinement) Acceptable() bool {
	return r != nil && r.Score != nil && r.Score.Acceptable
}

// Refine extracts a record from content, validating and re-extracting with
// feedback until the record is acceptable or the attempt budget is spent.
// Extractor and validator failures are recorded and never stop the loop.
// Returns an error only when opts are invalid.
func (c *Controller) Refine(ctx context.Context, content *refinery.SourceContent, opts refinery.RunOptions) (*Refinement, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	r := &Refinement{}
	var (
		prior    *refinery.EventRecord
		feedback []string
		calls    int
	)
	best := -1

	for attempt := 1; attempt <= opts.MaxIterations; attempt++ {
		if err := ctx.Err(); err != nil {
			r.Errors = append(r.Errors, refinery.Errorf(refinery.ECANCELED, "refinement stopped before attempt %d: %v", attempt, err))
			break
		}
		if opts.MaxCalls > 0 && calls+2 > opts.MaxCalls {
			r.Errors = append(r.Errors, refinery.Errorf(refinery.EBUDGET, "call budget of %d spent after %d attempts", opts.MaxCalls, attempt-1))
			break
		}

		extraction, err := step(ctx, c.StepTimeout, func(ctx context.Context) (*refinery.Extraction, error) {
			return c.Extractor.Extract(ctx, content, prior, feedback)
		})
		calls++
		if err != nil || extraction == nil {
			err = asCode(err, refinery.EEXTRACT, "extractor returned no result")
			r.Errors = append(r.Errors, err)
			extraction = refinery.FailedExtraction(err)
		}
		if extraction.Record == nil {
			extraction.Record = &refinery.EventRecord{}
		}

		score, err := step(ctx, c.StepTimeout, func(ctx context.Context) (*refinery.QualityScore, error) {
			return c.Validator.Validate(ctx, content, extraction, opts.Policy)
		})
		calls++
		if err != nil || score == nil {
			err = asCode(err, refinery.EVALIDATE, "validator returned no score")
			r.Errors = append(r.Errors, err)
			score = failedScore(err)
		}

		r.Iterations = append(r.Iterations, refinery.IterationRecord{
			Attempt:    attempt,
			Extraction: extraction,
			Score:      score,
			Feedback:   feedback,
		})
		if best < 0 || score.Overall > r.Iterations[best].Score.Overall {
			best = len(r.Iterations) - 1
		}

		if score.Acceptable {
			break
		}
		prior = extraction.Record
		feedback = score.Feedback()
	}

	if best >= 0 {
		r.Record = r.Iterations[best].Extraction.Record
		r.Score = r.Iterations[best].Score
	}
	return r, nil
}

// failedScore is the score given to an attempt whose validation failed.
func failedScore(err error) *refinery.QualityScore {
	return &refinery.QualityScore{
		Issues: []refinery.Issue{{Message: "validation failed: " + refinery.ErrorMessage(err)}},
	}
}

// step runs fn with its own timeout. It returns when fn returns or the
// step context ends, whichever comes first. fn may still be running after
// a timeout and must not start side effects once its context is done.
func step[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case res := <-done:
		return res.v, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// asCode returns err as an application error with code, keeping the code
// of errors that already carry one.
func asCode(err error, code, fallback string) error {
	if err == nil {
		return refinery.Errorf(code, "%s", fallback)
	}
	if refinery.ErrorCode(err) != refinery.EINTERNAL {
		return err
	}
	return refinery.Errorf(code, "%v", err)
}
