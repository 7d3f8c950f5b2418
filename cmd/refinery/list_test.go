package main_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/refinery"
	main "github.com/fwojciec/refinery/cmd/refinery"
	"github.com/fwojciec/refinery/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("lists records with id, date, title and url", func(t *testing.T) {
		t.Parallel()

		var gotFilter refinery.RecordFilter
		records := &mock.RecordService{
			FindRecordsFn: func(_ context.Context, filter refinery.RecordFilter) ([]*refinery.PublishedRecord, error) {
				gotFilter = filter
				return []*refinery.PublishedRecord{
					{
						ID:  "rec-1",
						Key: refinery.DedupKey{Date: "2025-03-15"},
						Record: &refinery.EventRecord{
							Title:     refinery.String("Spring Jazz Night"),
							SourceURL: refinery.String("https://example.com/jazz"),
						},
					},
					{
						ID:     "rec-2",
						Record: &refinery.EventRecord{Title: refinery.String("Open Studio")},
					},
				}, nil
			},
		}
		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:     context.Background(),
			Stdout:  stdout,
			Stderr:  &bytes.Buffer{},
			Records: records,
		}

		err := (&main.ListCmd{Date: "2025-03-15", Limit: 10}).Run(deps)

		require.NoError(t, err)
		require.NotNil(t, gotFilter.Date)
		assert.Equal(t, "2025-03-15", *gotFilter.Date)
		assert.Nil(t, gotFilter.URL)
		assert.Equal(t, 10, gotFilter.Limit)
		output := stdout.String()
		assert.Contains(t, output, "rec-1  2025-03-15  Spring Jazz Night  https://example.com/jazz")
		assert.Contains(t, output, "rec-2  undated  Open Studio")
	})

	t.Run("shows hint when empty", func(t *testing.T) {
		t.Parallel()

		records := &mock.RecordService{
			FindRecordsFn: func(context.Context, refinery.RecordFilter) ([]*refinery.PublishedRecord, error) {
				return nil, nil
			},
		}
		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: stdout, Stderr: &bytes.Buffer{}, Records: records}

		require.NoError(t, (&main.ListCmd{}).Run(deps))

		assert.Contains(t, stdout.String(), "No records found")
	})

	t.Run("returns store errors", func(t *testing.T) {
		t.Parallel()

		records := &mock.RecordService{
			FindRecordsFn: func(context.Context, refinery.RecordFilter) ([]*refinery.PublishedRecord, error) {
				return nil, errors.New("disk on fire")
			},
		}
		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: &bytes.Buffer{}, Stderr: stderr, Records: records}

		err := (&main.ListCmd{}).Run(deps)

		require.Error(t, err)
		assert.Contains(t, stderr.String(), "Internal error.")
	})
}
