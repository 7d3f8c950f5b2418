package quality_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/refinery"
	"github.com/fwojciec/refinery/quality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Validator implements refinery.Validator at compile time.
var _ refinery.Validator = (*quality.Validator)(nil)

const jazzNight = `# Spring Jazz Night

**Date:** March 15th, 2025 at 7:00 PM
**Venue:** The Blue Room, 12 Main St
**Tickets:** $25

Join us for an evening of live jazz featuring local musicians.`

func source() *refinery.SourceContent {
	return &refinery.SourceContent{
		URL:       "https://example.com/events/jazz",
		Text:      jazzNight,
		FetchedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func complete() *refinery.EventRecord {
	return &refinery.EventRecord{
		Title:     refinery.String("Spring Jazz Night"),
		StartTime: refinery.String("2025-03-15T19:00"),
		Location:  refinery.String("The Blue Room, 12 Main St"),
		Price:     refinery.String("$25"),
		SourceURL: refinery.String("https://example.com/events/jazz/"),
	}
}

func validate(t *testing.T, record *refinery.EventRecord, confidence float64) *refinery.QualityScore {
	t.Helper()
	score, err := quality.NewValidator().Validate(
		context.Background(),
		source(),
		&refinery.Extraction{Record: record, Confidence: confidence},
		refinery.DefaultScoringPolicy(),
	)
	require.NoError(t, err)
	return score
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	t.Run("accepts a complete verified record", func(t *testing.T) {
		t.Parallel()

		score := validate(t, complete(), 0.9)

		assert.Empty(t, score.Issues)
		assert.InDelta(t, 1.0, score.Completeness, 1e-9)
		assert.InDelta(t, 1.0, score.Accuracy, 1e-9)
		assert.InDelta(t, 0.98, score.Confidence, 1e-9)
		assert.InDelta(t, (1+1+0.98)/3, score.Overall, 1e-9)
		assert.True(t, score.Acceptable)
	})

	t.Run("missing title blocks acceptance despite a high score", func(t *testing.T) {
		t.Parallel()

		r := complete()
		r.Title = nil
		score := validate(t, r, 1)

		assert.GreaterOrEqual(t, score.Overall, refinery.DefaultThreshold)
		assert.False(t, score.Acceptable)
		require.Len(t, score.Issues, 1)
		assert.Equal(t, "missing field: title", score.Issues[0].Message)
		assert.True(t, score.Issues[0].Blocking)
	})

	t.Run("missing start time blocks acceptance despite a high score", func(t *testing.T) {
		t.Parallel()

		r := complete()
		r.StartTime = nil
		score := validate(t, r, 1)

		assert.GreaterOrEqual(t, score.Overall, refinery.DefaultThreshold)
		assert.False(t, score.Acceptable)
		assert.Equal(t, []string{"missing field: start_time"}, score.Feedback())
		assert.True(t, score.HasBlocking())
	})

	t.Run("reports each missing required field", func(t *testing.T) {
		t.Parallel()

		r := &refinery.EventRecord{Title: refinery.String("Spring Jazz Night")}
		score := validate(t, r, 0.5)

		assert.InDelta(t, 1.0/3, score.Completeness, 1e-9)
		assert.Equal(t, []string{"missing field: start_time", "missing field: location"}, score.Feedback())
		assert.False(t, score.Acceptable)
	})

	t.Run("flags values not found in source", func(t *testing.T) {
		t.Parallel()

		r := complete()
		r.Location = refinery.String("Hall B")
		score := validate(t, r, 0.9)

		assert.Equal(t, []string{"location 'Hall B' not found verbatim in source"}, score.Feedback())
		assert.InDelta(t, 4.0/5, score.Accuracy, 1e-9)
	})

	t.Run("flags impossible dates", func(t *testing.T) {
		t.Parallel()

		r := complete()
		r.StartTime = refinery.String("2025-11-32")
		score := validate(t, r, 0.9)

		assert.Equal(t, []string{"start_time '2025-11-32' not found in source"}, score.Feedback())
	})

	t.Run("gives partial credit when only the date matches", func(t *testing.T) {
		t.Parallel()

		r := complete()
		r.StartTime = refinery.String("2025-03-15T20:00")
		score := validate(t, r, 0.9)

		assert.Equal(t, []string{"start_time '2025-03-15T20:00' time of day not found in source"}, score.Feedback())
		assert.InDelta(t, 4.5/5, score.Accuracy, 1e-9)
	})

	t.Run("accepts date without time of day", func(t *testing.T) {
		t.Parallel()

		r := complete()
		r.StartTime = refinery.String("2025-03-15")
		score := validate(t, r, 0.9)

		assert.Empty(t, score.Issues)
	})

	t.Run("gives half credit for unverifiable descriptions", func(t *testing.T) {
		t.Parallel()

		r := complete()
		r.Description = refinery.String("A night to remember.")
		score := validate(t, r, 0.9)

		assert.Empty(t, score.Issues)
		assert.InDelta(t, 5.5/6, score.Accuracy, 1e-9)
	})

	t.Run("flags mismatched source url", func(t *testing.T) {
		t.Parallel()

		r := complete()
		r.SourceURL = refinery.String("https://example.com/other")
		score := validate(t, r, 0.9)

		assert.Equal(t, []string{"source_url 'https://example.com/other' does not match fetched url"}, score.Feedback())
	})

	t.Run("surfaces extraction defects as issues", func(t *testing.T) {
		t.Parallel()

		extraction := refinery.FailedExtraction(refinery.Errorf(refinery.EEXTRACT, "model timeout"))
		score, err := quality.NewValidator().Validate(context.Background(), source(), extraction, refinery.DefaultScoringPolicy())

		require.NoError(t, err)
		assert.Equal(t, "extraction failed: model timeout", score.Issues[0].Message)
		assert.Zero(t, score.Overall)
		assert.False(t, score.Acceptable)
		assert.True(t, score.HasBlocking())
	})

	t.Run("is deterministic", func(t *testing.T) {
		t.Parallel()

		r := complete()
		r.Location = refinery.String("Hall B")

		assert.Equal(t, validate(t, r, 0.7), validate(t, r, 0.7))
	})

	t.Run("verifies against page metadata", func(t *testing.T) {
		t.Parallel()

		c := source()
		c.Metadata = map[string]string{refinery.FieldOrganizer: "Riverside Arts Council"}
		r := complete()
		r.Organizer = refinery.String("Riverside Arts Council")

		score, err := quality.NewValidator().Validate(context.Background(), c, &refinery.Extraction{Record: r, Confidence: 1}, refinery.DefaultScoringPolicy())

		require.NoError(t, err)
		assert.Empty(t, score.Issues)
	})

	t.Run("returns validate error for missing content", func(t *testing.T) {
		t.Parallel()

		_, err := quality.NewValidator().Validate(context.Background(), nil, &refinery.Extraction{}, refinery.DefaultScoringPolicy())

		assert.Equal(t, refinery.EVALIDATE, refinery.ErrorCode(err))
	})

	t.Run("returns validate error for invalid policy", func(t *testing.T) {
		t.Parallel()

		policy := refinery.DefaultScoringPolicy()
		policy.Threshold = 2

		_, err := quality.NewValidator().Validate(context.Background(), source(), &refinery.Extraction{}, policy)

		assert.Equal(t, refinery.EVALIDATE, refinery.ErrorCode(err))
	})
}
