package refinery

import "context"

// Extraction is the output of one extraction attempt.
type Extraction struct {
	Record *EventRecord `json:"record"`

	// Confidence is the extractor's self-reported confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// Defects are problems the extractor noticed itself. The validator
	// surfaces them as issues.
	Defects []string `json:"defects,omitempty"`
}

// FailedExtraction returns the maximally-null candidate used when an
// extraction attempt fails.
func FailedExtraction(err error) *Extraction {
	return &Extraction{
		Record:     &EventRecord{},
		Confidence: 0,
		Defects:    []string{"extraction failed: " + ErrorMessage(err)},
	}
}

// Extractor converts source content into a candidate record.
type Extractor interface {
	// Extract builds a candidate record from content.
	// When prior and feedback are given, only the fields named in
	// feedback are re-derived; the rest are carried forward from prior.
	// Returned errors use EEXTRACT and are never fatal to a run.
	Extract(ctx context.Context, content *SourceContent, prior *EventRecord, feedback []string) (*Extraction, error)
}

// Hint is a deterministic guess at a field value found in source text.
type Hint struct {
	Field string `json:"field"`
	Value string `json:"value"`

	// Weight ranks competing hints for the same field. Higher wins.
	Weight float64 `json:"weight"`

	// Relaxed hints come from looser patterns and are only used when
	// the field has been challenged by feedback.
	Relaxed bool `json:"relaxed,omitempty"`
}

// HintProvider detects field hints in content. Different domains supply
// different providers without changing extractor control logic.
type HintProvider interface {
	Hints(content *SourceContent) []Hint
}

// HintProviderFunc adapts a function to HintProvider.
type HintProviderFunc func(content *SourceContent) []Hint

// Hints calls f(content).
func (f HintProviderFunc) Hints(content *SourceContent) []Hint {
	return f(content)
}

// Validator scores a candidate against its source content.
type Validator interface {
	// Validate returns a score computed under policy. Returned errors
	// use EVALIDATE and mark the attempt unacceptable.
	Validate(ctx context.Context, content *SourceContent, extraction *Extraction, policy ScoringPolicy) (*QualityScore, error)
}
