package mock

import (
	"context"

	"github.com/fwojciec/refinery"
)

var _ refinery.ContentExtractor = (*ContentExtractor)(nil)

// ContentExtractor is a mock implementation of refinery.ContentExtractor.
type ContentExtractor struct {
	ExtractContentFn func(html string) (*refinery.ContentResult, error)
}

func (e *ContentExtractor) ExtractContent(html string) (*refinery.ContentResult, error) {
	return e.ExtractContentFn(html)
}

var _ refinery.MetadataReader = (*MetadataReader)(nil)

// MetadataReader is a mock implementation of refinery.MetadataReader.
type MetadataReader struct {
	ReadMetadataFn func(html string) (map[string]string, error)
}

func (r *MetadataReader) ReadMetadata(html string) (map[string]string, error) {
	return r.ReadMetadataFn(html)
}

var _ refinery.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of refinery.Extractor.
type Extractor struct {
	ExtractFn func(ctx context.Context, content *refinery.SourceContent, prior *refinery.EventRecord, feedback []string) (*refinery.Extraction, error)
}

func (e *Extractor) Extract(ctx context.Context, content *refinery.SourceContent, prior *refinery.EventRecord, feedback []string) (*refinery.Extraction, error) {
	return e.ExtractFn(ctx, content, prior, feedback)
}

var _ refinery.Validator = (*Validator)(nil)

// Validator is a mock implementation of refinery.Validator.
type Validator struct {
	ValidateFn func(ctx context.Context, content *refinery.SourceContent, extraction *refinery.Extraction, policy refinery.ScoringPolicy) (*refinery.QualityScore, error)
}

func (v *Validator) Validate(ctx context.Context, content *refinery.SourceContent, extraction *refinery.Extraction, policy refinery.ScoringPolicy) (*refinery.QualityScore, error) {
	return v.ValidateFn(ctx, content, extraction, policy)
}
