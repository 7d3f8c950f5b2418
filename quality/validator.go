// Package quality scores candidate event records against their source.
package quality

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fwojciec/refinery"
	"github.com/fwojciec/refinery/dateparse"
)

// Verification credit for a populated field.
const (
	verified     = 1.0
	unverifiable = 0.5
	unverified   = 0.0
)

// Ensure Validator implements refinery.Validator at compile time.
var _ refinery.Validator = (*Validator)(nil)

// Validator checks candidate records against the text they were extracted
// from. It is deterministic: the same content and candidate always yield
// the same score.
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate implements refinery.Validator.
func (v *Validator) Validate(ctx context.Context, content *refinery.SourceContent, extraction *refinery.Extraction, policy refinery.ScoringPolicy) (*refinery.QualityScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, refinery.Errorf(refinery.EVALIDATE, "validation cancelled: %v", err)
	}
	if content == nil {
		return nil, refinery.Errorf(refinery.EVALIDATE, "source content required")
	}
	if extraction == nil {
		return nil, refinery.Errorf(refinery.EVALIDATE, "extraction required")
	}
	if err := policy.Validate(); err != nil {
		return nil, refinery.Errorf(refinery.EVALIDATE, "invalid scoring policy: %s", refinery.ErrorMessage(err))
	}

	record := extraction.Record
	if record == nil {
		record = &refinery.EventRecord{}
	}

	var issues []refinery.Issue
	for _, defect := range extraction.Defects {
		issues = append(issues, refinery.Issue{Field: refinery.FieldFromFeedback(defect), Message: defect})
	}

	var present int
	for _, field := range refinery.RequiredFields {
		if record.Has(field) {
			present++
			continue
		}
		issues = append(issues, refinery.MissingField(field))
	}
	completeness := float64(present) / float64(len(refinery.RequiredFields))

	src := newSource(content)
	var credit float64
	populated := record.Populated()
	for _, field := range populated {
		c, issue := src.verify(field, *record.Get(field))
		credit += c
		if issue != "" {
			issues = append(issues, refinery.Issue{Field: field, Message: issue})
		}
	}
	var accuracy float64
	if len(populated) > 0 {
		accuracy = credit / float64(len(populated))
	}

	return policy.Score(completeness, accuracy, extraction.Confidence, issues), nil
}

// source is the searchable view of fetched content.
type source struct {
	url    string
	text   string
	dates  []dateparse.Match
	clocks map[string]bool
}

func newSource(content *refinery.SourceContent) *source {
	var sb strings.Builder
	sb.WriteString(content.Title)
	sb.WriteString("\n")
	sb.WriteString(content.Text)
	for _, field := range refinery.Fields {
		if v, ok := content.Metadata[field]; ok {
			sb.WriteString("\n")
			sb.WriteString(v)
		}
	}
	text := sb.String()

	s := &source{
		url:    content.URL,
		text:   text,
		dates:  dateparse.Find(text, content.FetchedAt),
		clocks: make(map[string]bool),
	}
	if v, ok := content.Metadata[refinery.FieldStartTime]; ok {
		if n, err := dateparse.Normalize(v); err == nil {
			s.dates = append(s.dates, dateparse.Match{Text: v, Date: n[:len(refinery.DateLayout)], Clock: dateparse.Clock(n)})
		}
	}
	for _, c := range dateparse.Clocks(text) {
		s.clocks[c] = true
	}
	return s
}

// verify returns the credit for one populated field and, when the value
// could not be confirmed, the issue describing why.
func (s *source) verify(field, value string) (float64, string) {
	switch field {
	case refinery.FieldStartTime:
		return s.verifyStartTime(value)
	case refinery.FieldPrice:
		return s.verifyPrice(value)
	case refinery.FieldSourceURL:
		if refinery.CanonicalURL(value) == refinery.CanonicalURL(s.url) {
			return verified, ""
		}
		return unverified, fmt.Sprintf("source_url '%s' does not match fetched url", value)
	case refinery.FieldDescription:
		if refinery.ContainsNormalized(s.text, value) {
			return verified, ""
		}
		return unverifiable, ""
	}
	if refinery.ContainsNormalized(s.text, value) {
		return verified, ""
	}
	return unverified, fmt.Sprintf("%s '%s' not found verbatim in source", field, value)
}

func (s *source) verifyStartTime(value string) (float64, string) {
	notFound := fmt.Sprintf("start_time '%s' not found in source", value)
	if !validStartTime(value) {
		return unverified, notFound
	}

	clock := dateparse.Clock(value)
	var sameDay bool
	for _, m := range s.dates {
		if !dateparse.SameDay(m.Date, value) {
			continue
		}
		sameDay = true
		if clock == "" || m.Clock == clock {
			return verified, ""
		}
	}
	if !sameDay {
		return unverified, notFound
	}
	if s.clocks[clock] {
		return verified, ""
	}
	return unverifiable, fmt.Sprintf("start_time '%s' time of day not found in source", value)
}

var amountRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

func (s *source) verifyPrice(value string) (float64, string) {
	if refinery.ContainsNormalized(s.text, value) {
		return verified, ""
	}
	amounts := amountRe.FindAllString(value, -1)
	if len(amounts) == 0 {
		if strings.Contains(strings.ToLower(value), "free") && refinery.ContainsNormalized(s.text, "free") {
			return verified, ""
		}
		return unverified, fmt.Sprintf("price '%s' not found in source", value)
	}
	for _, a := range amounts {
		if !refinery.ContainsNormalized(s.text, a) {
			return unverified, fmt.Sprintf("price '%s' not found in source", value)
		}
	}
	return verified, ""
}

func validStartTime(value string) bool {
	if _, err := time.Parse(refinery.DateTimeLayout, value); err == nil {
		return true
	}
	_, err := time.Parse(refinery.DateLayout, value)
	return err == nil
}
