package main

import (
	"encoding/json"
	"fmt"

	"github.com/fwojciec/refinery"
	"github.com/fwojciec/refinery/refine"
)

// Run executes the run command.
func (c *RunCmd) Run(deps *Dependencies) error {
	opts := c.Options()
	if err := opts.Validate(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", refinery.ErrorMessage(err))
		return err
	}

	enc := json.NewEncoder(deps.Stdout)
	progress := func(event refine.ProgressEvent) {
		if c.JSON {
			_ = enc.Encode(newResultView(event.Result))
			return
		}
		printResult(deps, event)
	}

	results, err := deps.Batch.Run(deps.Ctx, c.URLs, opts, progress)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", refinery.ErrorMessage(err))
		return err
	}

	var failed int
	counts := make(map[string]int)
	for _, r := range results {
		if !r.Success {
			failed++
		}
		counts[outcomeLabel(r)]++
	}

	if !c.JSON {
		fmt.Fprintf(deps.Stdout, "Processed %d URLs: %d created, %d updated, %d skipped, %d rejected, %d failed\n",
			len(results), counts[refinery.OutcomeCreated], counts[refinery.OutcomeUpdated],
			counts[refinery.OutcomeSkipped], counts[refinery.OutcomeRejected], counts["failed"])
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d URLs did not produce an acceptable record", failed, len(results))
	}
	return nil
}

func printResult(deps *Dependencies, event refine.ProgressEvent) {
	r := event.Result
	var overall float64
	if r.Score != nil {
		overall = r.Score.Overall
	}
	fmt.Fprintf(deps.Stdout, "[%d/%d] %-8s %s  score=%.2f iterations=%d",
		event.Completed, event.Total, outcomeLabel(r), TruncateURL(r.URL, maxURLWidth), overall, r.Iterations)
	if r.SourceTokens > 0 {
		fmt.Fprintf(deps.Stdout, "  %s", FormatTokens(r.SourceTokens))
	}
	if r.RecordID != "" {
		fmt.Fprintf(deps.Stdout, "  id=%s", r.RecordID)
	}
	fmt.Fprintln(deps.Stdout)

	for _, msg := range r.ErrorMessages() {
		fmt.Fprintf(deps.Stderr, "  %s: %s\n", r.URL, msg)
	}
	if r.Score != nil && !r.Score.Acceptable {
		for _, msg := range r.Score.Feedback() {
			fmt.Fprintf(deps.Stderr, "  %s: %s\n", r.URL, msg)
		}
	}
}

// outcomeLabel names a result for display. Runs that never reached the
// publish step are "failed"; dry runs that would publish are "dry-run".
func outcomeLabel(r *refinery.WorkflowResult) string {
	switch {
	case r.Outcome != "":
		return r.Outcome
	case r.Success:
		return "dry-run"
	default:
		return "failed"
	}
}

// resultView is the JSON form of a WorkflowResult.
type resultView struct {
	*refinery.WorkflowResult
	Errors []string `json:"errors,omitempty"`
}

func newResultView(r *refinery.WorkflowResult) resultView {
	return resultView{WorkflowResult: r, Errors: r.ErrorMessages()}
}
