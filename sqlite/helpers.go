package sqlite

import (
	"fmt"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// parseRFC3339 parses a stored timestamp column.
func parseRFC3339(value, fieldName string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", fieldName, err)
	}
	return t, nil
}

// paginate applies limit and offset when positive. SQLite rejects OFFSET
// without LIMIT, so an offset alone gets an unbounded limit.
func paginate(q sq.SelectBuilder, limit, offset int) sq.SelectBuilder {
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		if limit <= 0 {
			q = q.Limit(math.MaxInt64)
		}
		q = q.Offset(uint64(offset))
	}
	return q
}
