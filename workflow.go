package refinery

import "time"

// DefaultMaxIterations is the default extract/validate attempt budget.
const DefaultMaxIterations = 3

// Publish outcomes reported on WorkflowResult.
const (
	OutcomeCreated = OperationCreated
	OutcomeUpdated = OperationUpdated

	// OutcomeSkipped means a duplicate was found and nothing was written.
	OutcomeSkipped = "skipped"

	// OutcomeRejected means the best candidate never became acceptable,
	// so it was not offered to the sink.
	OutcomeRejected = "rejected"
)

// RunOptions configures one pipeline run. All configuration is explicit;
// nothing is read from global state.
type RunOptions struct {
	// MaxIterations is the hard ceiling on extract/validate attempts.
	MaxIterations int `json:"maxIterations" yaml:"max_iterations"`

	// Policy sets the acceptance threshold and scoring weights.
	Policy ScoringPolicy `json:"policy" yaml:"policy"`

	// MaxCalls bounds the number of extractor and validator calls. Each
	// attempt costs two calls. Zero means no bound beyond MaxIterations.
	MaxCalls int `json:"maxCalls" yaml:"max_calls"`

	// Refresh re-publishes a record even when a duplicate exists.
	Refresh bool `json:"refresh" yaml:"refresh"`

	// DryRun runs the loop and the duplicate check but never publishes.
	DryRun bool `json:"dryRun" yaml:"dry_run"`
}

// DefaultRunOptions returns options with the default iteration budget and
// scoring policy.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		MaxIterations: DefaultMaxIterations,
		Policy:        DefaultScoringPolicy(),
	}
}

// Validate returns an error if the options are unusable.
func (o RunOptions) Validate() error {
	if o.MaxIterations < 1 {
		return Errorf(EINVALID, "max iterations must be at least 1, got %d", o.MaxIterations)
	}
	if o.MaxCalls < 0 || o.MaxCalls == 1 {
		return Errorf(EINVALID, "max calls must be 0 or at least 2, got %d", o.MaxCalls)
	}
	return o.Policy.Validate()
}

// IterationRecord is one extract/validate attempt.
type IterationRecord struct {
	Attempt    int           `json:"attempt"`
	Extraction *Extraction   `json:"extraction"`
	Score      *QualityScore `json:"score"`

	// Feedback is what the extractor was given for this attempt.
	Feedback []string `json:"feedback,omitempty"`
}

// WorkflowResult is the outcome of processing one URL.
// It is never mutated after being returned.
type WorkflowResult struct {
	URL string `json:"url"`

	// Record and Score come from the best-scoring attempt.
	Record *EventRecord  `json:"record"`
	Score  *QualityScore `json:"score"`

	// Iterations is the number of attempts actually made.
	Iterations int `json:"iterations"`

	Success   bool   `json:"success"`
	Duplicate bool   `json:"duplicate"`
	Outcome   string `json:"outcome"`
	RecordID  string `json:"recordId,omitempty"`

	// Errors aggregates every failure seen during the run, fatal or not.
	Errors []error `json:"-"`

	// SourceTokens is the token count of the fetched content when a
	// counter is configured.
	SourceTokens int `json:"sourceTokens,omitempty"`

	Duration time.Duration `json:"duration"`
}

// ErrorMessages returns the messages of all errors on the result.
func (r *WorkflowResult) ErrorMessages() []string {
	if r == nil {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		msgs[i] = ErrorMessage(err)
	}
	return msgs
}
