package refinery

import (
	"math"
	"strings"
)

// DefaultThreshold is the overall score a candidate needs to be acceptable.
const DefaultThreshold = 0.8

// missingFieldPrefix starts every issue produced for an absent field.
const missingFieldPrefix = "missing field: "

// BlockingFields lists the fields whose absence blocks acceptance
// regardless of the overall score. A record missing any of them is
// retried with feedback and never published.
var BlockingFields = RequiredFields

// Issue is one concrete defect found in a candidate record.
type Issue struct {
	// Field is the record field the issue refers to, if any.
	Field string `json:"field,omitempty"`

	// Message names the defect specifically. It is forwarded verbatim
	// to the extractor as feedback.
	Message string `json:"message"`

	// Blocking issues prevent acceptance.
	Blocking bool `json:"blocking,omitempty"`
}

// MissingField returns the issue reported for an absent field.
func MissingField(field string) Issue {
	return Issue{
		Field:    field,
		Message:  missingFieldPrefix + field,
		Blocking: isBlockingField(field),
	}
}

func isBlockingField(field string) bool {
	for _, f := range BlockingFields {
		if f == field {
			return true
		}
	}
	return false
}

// FieldFromFeedback returns the record field a feedback message refers to,
// or "" if it names no known field.
func FieldFromFeedback(msg string) string {
	if rest, ok := strings.CutPrefix(msg, missingFieldPrefix); ok {
		rest = strings.TrimSpace(rest)
		for _, f := range Fields {
			if f == rest {
				return f
			}
		}
		return ""
	}
	for _, f := range Fields {
		if strings.HasPrefix(msg, f+" ") {
			return f
		}
	}
	return ""
}

// ChallengedFields returns the set of fields named in feedback.
func ChallengedFields(feedback []string) map[string]bool {
	fields := make(map[string]bool)
	for _, msg := range feedback {
		if f := FieldFromFeedback(msg); f != "" {
			fields[f] = true
		}
	}
	return fields
}

// QualityScore is the multi-dimensional assessment of a candidate record.
// All numeric fields are within [0,1].
type QualityScore struct {
	Overall      float64 `json:"overall"`
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Confidence   float64 `json:"confidence"`
	Issues       []Issue `json:"issues"`
	Acceptable   bool    `json:"acceptable"`
}

// Feedback returns the issue messages in order.
func (s *QualityScore) Feedback() []string {
	if s == nil || len(s.Issues) == 0 {
		return nil
	}
	msgs := make([]string, len(s.Issues))
	for i, issue := range s.Issues {
		msgs[i] = issue.Message
	}
	return msgs
}

// HasBlocking reports whether any issue blocks acceptance.
func (s *QualityScore) HasBlocking() bool {
	if s == nil {
		return false
	}
	for _, issue := range s.Issues {
		if issue.Blocking {
			return true
		}
	}
	return false
}

// Weights combines the three score dimensions.
type Weights struct {
	Completeness float64 `json:"completeness" yaml:"completeness"`
	Accuracy     float64 `json:"accuracy" yaml:"accuracy"`
	Confidence   float64 `json:"confidence" yaml:"confidence"`
}

func (w Weights) sum() float64 {
	return w.Completeness + w.Accuracy + w.Confidence
}

func (w Weights) validate(name string) error {
	if w.Completeness < 0 || w.Accuracy < 0 || w.Confidence < 0 {
		return Errorf(EINVALID, "%s weights must not be negative", name)
	}
	if w.sum() <= 0 {
		return Errorf(EINVALID, "%s weights must not all be zero", name)
	}
	return nil
}

// ScoringPolicy holds the tunable parts of scoring.
type ScoringPolicy struct {
	// Threshold is the minimum overall score for acceptance.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// Overall weights completeness, accuracy and confidence into the
	// overall score.
	Overall Weights `json:"overall" yaml:"overall"`

	// Confidence weights completeness, accuracy and the extractor's
	// self-reported confidence (in the Confidence slot) into the
	// confidence dimension.
	Confidence Weights `json:"confidence" yaml:"confidence"`
}

// DefaultScoringPolicy returns equal overall weighting and a confidence
// dimension that leans on the measured dimensions.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		Threshold:  DefaultThreshold,
		Overall:    Weights{Completeness: 1, Accuracy: 1, Confidence: 1},
		Confidence: Weights{Completeness: 0.4, Accuracy: 0.4, Confidence: 0.2},
	}
}

// Validate returns an error if the policy cannot produce scores in [0,1].
func (p ScoringPolicy) Validate() error {
	if math.IsNaN(p.Threshold) || p.Threshold < 0 || p.Threshold > 1 {
		return Errorf(EINVALID, "threshold must be within [0,1], got %v", p.Threshold)
	}
	if err := p.Overall.validate("overall"); err != nil {
		return err
	}
	return p.Confidence.validate("confidence")
}

// Score combines measured dimensions into a QualityScore.
// Inputs are clamped to [0,1]; issues are kept in the given order.
func (p ScoringPolicy) Score(completeness, accuracy, selfConfidence float64, issues []Issue) *QualityScore {
	completeness = Clamp(completeness)
	accuracy = Clamp(accuracy)
	selfConfidence = Clamp(selfConfidence)

	confidence := weighted(p.Confidence, completeness, accuracy, selfConfidence)
	overall := weighted(p.Overall, completeness, accuracy, confidence)

	score := &QualityScore{
		Overall:      overall,
		Completeness: completeness,
		Accuracy:     accuracy,
		Confidence:   confidence,
		Issues:       issues,
	}
	score.Acceptable = overall >= p.Threshold && !score.HasBlocking()
	return score
}

func weighted(w Weights, a, b, c float64) float64 {
	sum := w.sum()
	if sum <= 0 {
		return Clamp((a + b + c) / 3)
	}
	return Clamp((w.Completeness*a + w.Accuracy*b + w.Confidence*c) / sum)
}

// Clamp limits v to [0,1]. NaN becomes 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
