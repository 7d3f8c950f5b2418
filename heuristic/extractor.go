package heuristic

import (
	"context"
	"sort"
	"strings"

	"github.com/fwojciec/refinery"
)

// carriedWeight is the confidence credited to a value carried forward
// from a prior attempt.
const carriedWeight = 0.75

// Ensure Extractor implements refinery.Extractor at compile time.
var _ refinery.Extractor = (*Extractor)(nil)

// Extractor builds event records from hints.
//
// The first attempt uses strict hints only. On later attempts, fields named
// in feedback are re-derived from the next-best hint, relaxed hints
// included, and every other field is carried forward from the prior
// record unchanged.
type Extractor struct {
	hints refinery.HintProvider
}

// NewExtractor creates an Extractor using hints. A nil provider defaults
// to EventHints.
func NewExtractor(hints refinery.HintProvider) *Extractor {
	if hints == nil {
		hints = NewEventHints()
	}
	return &Extractor{hints: hints}
}

// Extract implements refinery.Extractor.
func (e *Extractor) Extract(ctx context.Context, content *refinery.SourceContent, prior *refinery.EventRecord, feedback []string) (*refinery.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, refinery.Errorf(refinery.EEXTRACT, "extraction cancelled: %v", err)
	}
	if content == nil || (strings.TrimSpace(content.Text) == "" && strings.TrimSpace(content.Title) == "") {
		return &refinery.Extraction{
			Record:     &refinery.EventRecord{},
			Confidence: 0,
			Defects:    []string{"source content is empty"},
		}, nil
	}

	byField := groupHints(e.hints.Hints(content))
	challenged := refinery.ChallengedFields(feedback)

	record := &refinery.EventRecord{}
	weights := make(map[string]float64)
	for _, field := range refinery.Fields {
		candidates := byField[field]
		switch {
		case prior == nil:
			if h, ok := best(candidates, "", false); ok {
				record.Set(field, refinery.String(h.Value))
				weights[field] = h.Weight
			}
		case challenged[field]:
			current := refinery.Value(prior.Get(field))
			if h, ok := best(candidates, current, true); ok {
				record.Set(field, refinery.String(h.Value))
				weights[field] = h.Weight
			} else if current != "" {
				// Nothing better was found; keep the challenged value.
				record.Set(field, refinery.String(current))
				weights[field] = carriedWeight / 2
			}
		default:
			if v := prior.Get(field); v != nil {
				record.Set(field, refinery.String(*v))
				weights[field] = carriedWeight
			}
		}
	}

	var defects []string
	for _, field := range refinery.RequiredFields {
		if !record.Has(field) && challenged[field] {
			defects = append(defects, "no "+strings.ReplaceAll(field, "_", " ")+" candidate found")
		}
	}

	return &refinery.Extraction{
		Record:     record,
		Confidence: confidence(weights),
		Defects:    defects,
	}, nil
}

// confidence averages the weights backing the required fields. Missing
// required fields count as zero.
func confidence(weights map[string]float64) float64 {
	var sum float64
	for _, field := range refinery.RequiredFields {
		sum += weights[field]
	}
	return refinery.Clamp(sum / float64(len(refinery.RequiredFields)))
}

func groupHints(hints []refinery.Hint) map[string][]refinery.Hint {
	byField := make(map[string][]refinery.Hint)
	for _, h := range hints {
		byField[h.Field] = append(byField[h.Field], h)
	}
	for _, hs := range byField {
		sort.SliceStable(hs, func(i, j int) bool {
			return hs[i].Weight > hs[j].Weight
		})
	}
	return byField
}

// best returns the highest-weighted hint whose value differs from exclude.
func best(hints []refinery.Hint, exclude string, relaxed bool) (refinery.Hint, bool) {
	for _, h := range hints {
		if h.Relaxed && !relaxed {
			continue
		}
		if exclude != "" && h.Value == exclude {
			continue
		}
		return h, true
	}
	return refinery.Hint{}, false
}
