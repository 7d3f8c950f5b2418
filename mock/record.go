package mock

import (
	"context"

	"github.com/fwojciec/refinery"
)

var _ refinery.DuplicateStore = (*DuplicateStore)(nil)

// DuplicateStore is a mock implementation of refinery.DuplicateStore.
type DuplicateStore struct {
	FindDuplicateFn func(ctx context.Context, key refinery.DedupKey) (*refinery.PublishedRecord, error)
}

func (s *DuplicateStore) FindDuplicate(ctx context.Context, key refinery.DedupKey) (*refinery.PublishedRecord, error) {
	return s.FindDuplicateFn(ctx, key)
}

var _ refinery.Publisher = (*Publisher)(nil)

// Publisher is a mock implementation of refinery.Publisher.
type Publisher struct {
	UpsertFn func(ctx context.Context, key refinery.DedupKey, record *refinery.EventRecord, score *refinery.QualityScore) (*refinery.PublishResult, error)
}

func (p *Publisher) Upsert(ctx context.Context, key refinery.DedupKey, record *refinery.EventRecord, score *refinery.QualityScore) (*refinery.PublishResult, error) {
	return p.UpsertFn(ctx, key, record, score)
}

var _ refinery.RecordService = (*RecordService)(nil)

// RecordService is a mock implementation of refinery.RecordService.
type RecordService struct {
	FindRecordByIDFn func(ctx context.Context, id string) (*refinery.PublishedRecord, error)
	FindRecordsFn    func(ctx context.Context, filter refinery.RecordFilter) ([]*refinery.PublishedRecord, error)
}

func (s *RecordService) FindRecordByID(ctx context.Context, id string) (*refinery.PublishedRecord, error) {
	return s.FindRecordByIDFn(ctx, id)
}

func (s *RecordService) FindRecords(ctx context.Context, filter refinery.RecordFilter) ([]*refinery.PublishedRecord, error) {
	return s.FindRecordsFn(ctx, filter)
}
