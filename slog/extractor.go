package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/refinery"
)

// Ensure LoggingExtractor implements refinery.Extractor.
var _ refinery.Extractor = (*LoggingExtractor)(nil)

// LoggingExtractor wraps an Extractor with logging.
type LoggingExtractor struct {
	next   refinery.Extractor
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor.
func NewLoggingExtractor(next refinery.Extractor, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, logger: logger}
}

// Extract delegates to the wrapped extractor and logs what it produced.
func (e *LoggingExtractor) Extract(ctx context.Context, content *refinery.SourceContent, prior *refinery.EventRecord, feedback []string) (ext *refinery.Extraction, err error) {
	defer func(begin time.Time) {
		var populated []string
		var confidence float64
		if ext != nil {
			populated = ext.Record.Populated()
			confidence = ext.Confidence
		}
		e.logger.Info("extract",
			"url", sourceURL(content),
			"retry", prior != nil,
			"feedback", len(feedback),
			"fields", populated,
			"confidence", confidence,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.Extract(ctx, content, prior, feedback)
}

// Ensure LoggingValidator implements refinery.Validator.
var _ refinery.Validator = (*LoggingValidator)(nil)

// LoggingValidator wraps a Validator with logging.
type LoggingValidator struct {
	next   refinery.Validator
	logger *slog.Logger
}

// NewLoggingValidator creates a new LoggingValidator.
func NewLoggingValidator(next refinery.Validator, logger *slog.Logger) *LoggingValidator {
	return &LoggingValidator{next: next, logger: logger}
}

// Validate delegates to the wrapped validator and logs the score.
func (v *LoggingValidator) Validate(ctx context.Context, content *refinery.SourceContent, extraction *refinery.Extraction, policy refinery.ScoringPolicy) (score *refinery.QualityScore, err error) {
	defer func(begin time.Time) {
		attrs := []any{"url", sourceURL(content)}
		if score != nil {
			attrs = append(attrs,
				"overall", score.Overall,
				"acceptable", score.Acceptable,
				"issues", score.Feedback(),
			)
		}
		attrs = append(attrs, "duration", time.Since(begin), "err", err)
		v.logger.Info("validate", attrs...)
	}(time.Now())
	return v.next.Validate(ctx, content, extraction, policy)
}

func sourceURL(content *refinery.SourceContent) string {
	if content == nil {
		return ""
	}
	return content.URL
}
