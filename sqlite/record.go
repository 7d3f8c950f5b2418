package sqlite

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/refinery"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var (
	_ refinery.DuplicateStore = (*RecordService)(nil)
	_ refinery.Publisher      = (*RecordService)(nil)
	_ refinery.RecordService  = (*RecordService)(nil)
)

const recordColumns = "id, title_key, date_key, url_key, record, overall, created_at, updated_at"

// RecordService stores published event records in SQLite.
type RecordService struct {
	db *DB
}

// NewRecordService creates a new RecordService.
func NewRecordService(db *DB) *RecordService {
	return &RecordService{db: db}
}

// hashPayload computes xxHash of payload and returns hex string.
func hashPayload(payload []byte) string {
	h := xxhash.Sum64(payload)
	b := make([]byte, 8)
	for i := range b {
		b[i] = byte(h >> (56 - 8*i))
	}
	return hex.EncodeToString(b)
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// FindDuplicate returns the stored record matching key. Title and date
// matches take precedence over URL matches.
func (s *RecordService) FindDuplicate(ctx context.Context, key refinery.DedupKey) (*refinery.PublishedRecord, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return findByKey(ctx, s.db, key)
}

func findByKey(ctx context.Context, q rowQueryer, key refinery.DedupKey) (*refinery.PublishedRecord, error) {
	if key.HasTitleDate() {
		rec, err := scanRecord(q.QueryRowContext(ctx, `
			SELECT `+recordColumns+` FROM records
			WHERE title_key = ? AND date_key = ?
			ORDER BY created_at ASC LIMIT 1
		`, key.Title, key.Date))
		if err == nil || refinery.ErrorCode(err) != refinery.ENOTFOUND {
			return rec, err
		}
	}
	if key.URL != "" {
		return scanRecord(q.QueryRowContext(ctx, `
			SELECT `+recordColumns+` FROM records
			WHERE url_key = ?
			ORDER BY created_at ASC LIMIT 1
		`, key.URL))
	}
	return nil, refinery.Errorf(refinery.ENOTFOUND, "record not found")
}

// Upsert creates the record or updates the one already stored under key.
// Find and write happen in one transaction. Re-publishing an identical
// record leaves the stored row untouched.
func (s *RecordService) Upsert(ctx context.Context, key refinery.DedupKey, record *refinery.EventRecord, score *refinery.QualityScore) (*refinery.PublishResult, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, refinery.Errorf(refinery.EINVALID, "record required")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	hash := hashPayload(payload)
	var overall float64
	if score != nil {
		overall = score.Overall
	}
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	existing, err := findByKey(ctx, tx, key)
	switch {
	case refinery.ErrorCode(err) == refinery.ENOTFOUND:
		id := uuid.New().String()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO records (id, title_key, date_key, url_key, record, payload_hash, overall, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, key.Title, key.Date, key.URL, string(payload), hash, overall, now, now); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &refinery.PublishResult{Operation: refinery.OperationCreated, ID: id}, nil
	case err != nil:
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE records
		SET title_key = ?, date_key = ?, url_key = ?, record = ?, payload_hash = ?, overall = ?, updated_at = ?
		WHERE id = ? AND payload_hash != ?
	`, key.Title, key.Date, key.URL, string(payload), hash, overall, now, existing.ID, hash); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &refinery.PublishResult{Operation: refinery.OperationUpdated, ID: existing.ID}, nil
}

// FindRecordByID retrieves a record by ID.
func (s *RecordService) FindRecordByID(ctx context.Context, id string) (*refinery.PublishedRecord, error) {
	return scanRecord(s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM records WHERE id = ?
	`, id))
}

// FindRecords retrieves records matching the filter, newest first.
func (s *RecordService) FindRecords(ctx context.Context, filter refinery.RecordFilter) ([]*refinery.PublishedRecord, error) {
	q := sq.Select(recordColumns).From("records").OrderBy("created_at DESC", "id ASC")
	if filter.Date != nil {
		q = q.Where(sq.Eq{"date_key": *filter.Date})
	}
	if filter.URL != nil {
		q = q.Where(sq.Eq{"url_key": refinery.CanonicalURL(*filter.URL)})
	}
	q = paginate(q, filter.Limit, filter.Offset)

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build records query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*refinery.PublishedRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func scanRecord(row scanner) (*refinery.PublishedRecord, error) {
	var rec refinery.PublishedRecord
	var payload, createdAt, updatedAt string

	err := row.Scan(&rec.ID, &rec.Key.Title, &rec.Key.Date, &rec.Key.URL, &payload,
		&rec.Overall, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, refinery.Errorf(refinery.ENOTFOUND, "record not found")
	}
	if err != nil {
		return nil, err
	}

	rec.Record = &refinery.EventRecord{}
	if err := json.Unmarshal([]byte(payload), rec.Record); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if rec.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseRFC3339(updatedAt, "updated_at"); err != nil {
		return nil, err
	}

	return &rec, nil
}
