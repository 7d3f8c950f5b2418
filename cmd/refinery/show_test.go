package main_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fwojciec/refinery"
	main "github.com/fwojciec/refinery/cmd/refinery"
	"github.com/fwojciec/refinery/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("prints record as yaml", func(t *testing.T) {
		t.Parallel()

		records := &mock.RecordService{
			FindRecordByIDFn: func(_ context.Context, id string) (*refinery.PublishedRecord, error) {
				return &refinery.PublishedRecord{
					ID: id,
					Record: &refinery.EventRecord{
						Title:    refinery.String("Spring Jazz Night"),
						Location: refinery.String("The Blue Room"),
					},
					Overall:   0.9,
					CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
					UpdatedAt: time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC),
				}, nil
			},
		}
		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: stdout, Stderr: &bytes.Buffer{}, Records: records}

		err := (&main.ShowCmd{ID: "rec-1"}).Run(deps)

		require.NoError(t, err)
		output := stdout.String()
		assert.Contains(t, output, "id: rec-1\n")
		assert.Contains(t, output, "title: Spring Jazz Night\n")
		assert.Contains(t, output, "location: The Blue Room\n")
		assert.Contains(t, output, "overall: 0.9\n")
		assert.Contains(t, output, "2025-03-02T12:00:00Z")
		assert.NotContains(t, output, "price:")
	})

	t.Run("reports missing records", func(t *testing.T) {
		t.Parallel()

		records := &mock.RecordService{
			FindRecordByIDFn: func(context.Context, string) (*refinery.PublishedRecord, error) {
				return nil, refinery.Errorf(refinery.ENOTFOUND, "record not found")
			},
		}
		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: &bytes.Buffer{}, Stderr: stderr, Records: records}

		err := (&main.ShowCmd{ID: "missing"}).Run(deps)

		assert.Equal(t, refinery.ENOTFOUND, refinery.ErrorCode(err))
		assert.Contains(t, stderr.String(), "record not found")
	})
}
