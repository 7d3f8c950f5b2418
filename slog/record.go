package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/refinery"
)

// Ensure LoggingDuplicateStore implements refinery.DuplicateStore.
var _ refinery.DuplicateStore = (*LoggingDuplicateStore)(nil)

// LoggingDuplicateStore wraps a DuplicateStore with logging.
type LoggingDuplicateStore struct {
	next   refinery.DuplicateStore
	logger *slog.Logger
}

// NewLoggingDuplicateStore creates a new LoggingDuplicateStore.
func NewLoggingDuplicateStore(next refinery.DuplicateStore, logger *slog.Logger) *LoggingDuplicateStore {
	return &LoggingDuplicateStore{next: next, logger: logger}
}

// FindDuplicate delegates to the wrapped store. A missing duplicate is
// logged as found=false rather than as an error.
func (s *LoggingDuplicateStore) FindDuplicate(ctx context.Context, key refinery.DedupKey) (rec *refinery.PublishedRecord, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"title", key.Title,
			"date", key.Date,
			"url", key.URL,
			"found", rec != nil,
		}
		if rec != nil {
			attrs = append(attrs, "id", rec.ID)
		}
		attrs = append(attrs, "duration", time.Since(begin))
		if err != nil && refinery.ErrorCode(err) != refinery.ENOTFOUND {
			attrs = append(attrs, "err", err)
		}
		s.logger.Info("duplicate check", attrs...)
	}(time.Now())
	return s.next.FindDuplicate(ctx, key)
}

// Ensure LoggingPublisher implements refinery.Publisher.
var _ refinery.Publisher = (*LoggingPublisher)(nil)

// LoggingPublisher wraps a Publisher with logging.
type LoggingPublisher struct {
	next   refinery.Publisher
	logger *slog.Logger
}

// NewLoggingPublisher creates a new LoggingPublisher.
func NewLoggingPublisher(next refinery.Publisher, logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{next: next, logger: logger}
}

// Upsert delegates to the wrapped publisher and logs the operation.
func (p *LoggingPublisher) Upsert(ctx context.Context, key refinery.DedupKey, record *refinery.EventRecord, score *refinery.QualityScore) (res *refinery.PublishResult, err error) {
	defer func(begin time.Time) {
		var op, id string
		if res != nil {
			op, id = res.Operation, res.ID
		}
		p.logger.Info("publish",
			"url", key.URL,
			"operation", op,
			"id", id,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return p.next.Upsert(ctx, key, record, score)
}
