package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/fwojciec/refinery"
	"github.com/fwojciec/refinery/sqlite"
	"github.com/stretchr/testify/require"
)

// BenchmarkUpsert compares publishing new records with re-publishing
// records that are already stored, which is what repeated batch runs do.
func BenchmarkUpsert(b *testing.B) {
	b.Run("new_records", func(b *testing.B) {
		benchmarkUpsert(b, false)
	})

	b.Run("repeat_records", func(b *testing.B) {
		benchmarkUpsert(b, true)
	})
}

func benchmarkUpsert(b *testing.B, repeat bool) {
	b.Helper()

	db := sqlite.NewDB(filepath.Join(b.TempDir(), "bench.db"))
	require.NoError(b, db.Open())
	defer db.Close()

	ctx := context.Background()
	svc := sqlite.NewRecordService(db)
	score := &refinery.QualityScore{Overall: 0.9}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		n := i
		if repeat {
			n = i % 10
		}
		record := &refinery.EventRecord{
			Title:     refinery.String(fmt.Sprintf("Event %d", n)),
			StartTime: refinery.String("2025-03-15T19:30"),
			Location:  refinery.String("The Blue Room"),
			SourceURL: refinery.String(fmt.Sprintf("https://example.com/events/%d", n)),
		}
		key := refinery.NewDedupKey(record, "")
		if _, err := svc.Upsert(ctx, key, record, score); err != nil {
			b.Fatal(err)
		}
	}
}
