// Package fs stores published event records as markdown files with YAML
// front matter.
package fs

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/refinery"
	"github.com/fwojciec/refinery/bloom"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Compile-time interface verification.
var (
	_ refinery.DuplicateStore = (*RecordStore)(nil)
	_ refinery.Publisher      = (*RecordStore)(nil)
	_ refinery.RecordService  = (*RecordStore)(nil)
)

const maxSlugLen = 60

// Key filter sizing: room for keyHeadroom new records beyond those found
// on load.
const (
	keyHeadroom = 10000
	keyFPRate   = 0.01
)

var delimiter = []byte("---\n")

// RecordStore implements the record services on a directory tree.
// Records live at <dir>/<date>/<slug>-<id prefix>.md and are replaced
// atomically through a temp file and rename.
//
// The dedup keys on disk are loaded into a Bloom filter on first use, so
// lookups for keys never stored skip the directory scan. The store must
// be the only writer to dir while it is in use.
type RecordStore struct {
	mu   sync.Mutex
	dir  string
	keys *bloom.KeyFilter
}

// NewRecordStore creates a RecordStore rooted at dir.
func NewRecordStore(dir string) *RecordStore {
	return &RecordStore{dir: dir}
}

// frontMatter is the YAML header of a record file.
type frontMatter struct {
	ID          string    `yaml:"id"`
	Title       *string   `yaml:"title,omitempty"`
	StartTime   *string   `yaml:"start_time,omitempty"`
	Location    *string   `yaml:"location,omitempty"`
	Organizer   *string   `yaml:"organizer,omitempty"`
	Price       *string   `yaml:"price,omitempty"`
	SourceURL   *string   `yaml:"source_url,omitempty"`
	Overall     float64   `yaml:"overall"`
	Key         keyYAML   `yaml:"key"`
	PayloadHash string    `yaml:"payload_hash"`
	Created     time.Time `yaml:"created"`
	Updated     time.Time `yaml:"updated"`
}

type keyYAML struct {
	Title string `yaml:"title,omitempty"`
	Date  string `yaml:"date,omitempty"`
	URL   string `yaml:"url,omitempty"`
}

// FormatRecord renders a published record as markdown with YAML front
// matter. The description becomes the body.
func FormatRecord(rec *refinery.PublishedRecord) ([]byte, error) {
	r := rec.Record
	if r == nil {
		r = &refinery.EventRecord{}
	}
	fm := frontMatter{
		ID:          rec.ID,
		Title:       r.Title,
		StartTime:   r.StartTime,
		Location:    r.Location,
		Organizer:   r.Organizer,
		Price:       r.Price,
		SourceURL:   r.SourceURL,
		Overall:     rec.Overall,
		Key:         keyYAML{Title: rec.Key.Title, Date: rec.Key.Date, URL: rec.Key.URL},
		PayloadHash: hashRecord(r),
		Created:     rec.CreatedAt,
		Updated:     rec.UpdatedAt,
	}
	header, err := yaml.Marshal(&fm)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	b.Write(delimiter)
	b.Write(header)
	b.Write(delimiter)
	if d := refinery.Value(r.Description); d != "" {
		b.WriteString("\n")
		b.WriteString(d)
		b.WriteString("\n")
	}
	return b.Bytes(), nil
}

// ParseRecord reads a file produced by FormatRecord.
func ParseRecord(data []byte) (*refinery.PublishedRecord, string, error) {
	if !bytes.HasPrefix(data, delimiter) {
		return nil, "", fmt.Errorf("missing front matter")
	}
	rest := data[len(delimiter):]
	end := bytes.Index(rest, append([]byte("\n"), delimiter...))
	if end < 0 {
		return nil, "", fmt.Errorf("unterminated front matter")
	}

	var fm frontMatter
	if err := yaml.Unmarshal(rest[:end+1], &fm); err != nil {
		return nil, "", fmt.Errorf("parsing front matter: %w", err)
	}

	body := strings.TrimSpace(string(rest[end+1+len(delimiter):]))
	return &refinery.PublishedRecord{
		ID: fm.ID,
		Key: refinery.DedupKey{
			Title: fm.Key.Title,
			Date:  fm.Key.Date,
			URL:   fm.Key.URL,
		},
		Record: &refinery.EventRecord{
			Title:       fm.Title,
			StartTime:   fm.StartTime,
			Location:    fm.Location,
			Description: refinery.String(body),
			Organizer:   fm.Organizer,
			Price:       fm.Price,
			SourceURL:   fm.SourceURL,
		},
		Overall:   fm.Overall,
		CreatedAt: fm.Created,
		UpdatedAt: fm.Updated,
	}, fm.PayloadHash, nil
}

// RecordPath returns the path of a record relative to the store root.
func RecordPath(rec *refinery.PublishedRecord) string {
	date := rec.Key.Date
	if date == "" {
		date = "undated"
	}
	slug := strings.ReplaceAll(refinery.NormalizeText(refinery.Value(rec.Record.Get(refinery.FieldTitle))), " ", "-")
	if len(slug) > maxSlugLen {
		cut := maxSlugLen
		for cut > 0 && !utf8.RuneStart(slug[cut]) {
			cut--
		}
		slug = strings.TrimRight(slug[:cut], "-")
	}
	if slug == "" {
		slug = "event"
	}
	id := rec.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return filepath.Join(date, slug+"-"+id+".md")
}

func hashRecord(r *refinery.EventRecord) string {
	h := xxhash.New()
	for _, field := range refinery.Fields {
		h.WriteString(field)
		h.WriteString("=")
		h.WriteString(refinery.Value(r.Get(field)))
		h.WriteString("\n")
	}
	b := make([]byte, 8)
	sum := h.Sum64()
	for i := range b {
		b[i] = byte(sum >> (56 - 8*i))
	}
	return hex.EncodeToString(b)
}

// stored is a record file found on disk.
type stored struct {
	path   string
	record *refinery.PublishedRecord
	hash   string
}

// scan reads every record file under the root.
func (s *RecordStore) scan(ctx context.Context) ([]stored, error) {
	var out []stored
	err := filepath.WalkDir(s.dir, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) && path == s.dir {
				return iofs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rec, hash, err := ParseRecord(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, stored{path: path, record: rec, hash: hash})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].record.CreatedAt.Before(out[j].record.CreatedAt)
	})
	return out, nil
}

func findByKey(records []stored, key refinery.DedupKey) (stored, bool) {
	if key.HasTitleDate() {
		for _, r := range records {
			if r.record.Key.Title == key.Title && r.record.Key.Date == key.Date {
				return r, true
			}
		}
	}
	if key.URL != "" {
		for _, r := range records {
			if r.record.Key.URL == key.URL {
				return r, true
			}
		}
	}
	return stored{}, false
}

// FindDuplicate returns the stored record matching key.
func (s *RecordStore) FindDuplicate(ctx context.Context, key refinery.DedupKey) (*refinery.PublishedRecord, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	known, err := s.mayContain(ctx, key)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, refinery.Errorf(refinery.ENOTFOUND, "record not found")
	}

	records, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	if r, ok := findByKey(records, key); ok {
		return r.record, nil
	}
	return nil, refinery.Errorf(refinery.ENOTFOUND, "record not found")
}

// mayContain loads the key filter if needed and tests key against it.
func (s *RecordStore) mayContain(ctx context.Context, key refinery.DedupKey) (bool, error) {
	if s.keys == nil {
		records, err := s.scan(ctx)
		if err != nil {
			return false, err
		}
		keys := bloom.NewKeyFilter(uint(len(records))+keyHeadroom, keyFPRate)
		for _, r := range records {
			keys.Add(r.record.Key)
		}
		s.keys = keys
	}
	return s.keys.MayContain(key), nil
}

// Upsert writes the record, replacing the file of a matching record.
// Re-publishing an identical record leaves the file untouched.
func (s *RecordStore) Upsert(ctx context.Context, key refinery.DedupKey, record *refinery.EventRecord, score *refinery.QualityScore) (*refinery.PublishResult, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, refinery.Errorf(refinery.EINVALID, "record required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	known, err := s.mayContain(ctx, key)
	if err != nil {
		return nil, err
	}
	var records []stored
	if known {
		if records, err = s.scan(ctx); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	rec := &refinery.PublishedRecord{
		Key:       key,
		Record:    record.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if score != nil {
		rec.Overall = score.Overall
	}

	// Nothing is written once ctx is done.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	existing, found := findByKey(records, key)
	if !found {
		rec.ID = uuid.New().String()
		if err := s.write(rec); err != nil {
			return nil, err
		}
		s.keys.Add(key)
		return &refinery.PublishResult{Operation: refinery.OperationCreated, ID: rec.ID}, nil
	}

	rec.ID = existing.record.ID
	rec.CreatedAt = existing.record.CreatedAt
	if existing.hash != hashRecord(rec.Record) || existing.record.Overall != rec.Overall || existing.record.Key != key {
		if err := s.write(rec); err != nil {
			return nil, err
		}
		s.keys.Add(key)
		if path := filepath.Join(s.dir, RecordPath(rec)); path != existing.path {
			if err := os.Remove(existing.path); err != nil {
				return nil, err
			}
		}
	}
	return &refinery.PublishResult{Operation: refinery.OperationUpdated, ID: rec.ID}, nil
}

func (s *RecordStore) write(rec *refinery.PublishedRecord) error {
	data, err := FormatRecord(rec)
	if err != nil {
		return err
	}

	path := filepath.Join(s.dir, RecordPath(rec))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// FindRecordByID retrieves a record by ID.
func (s *RecordStore) FindRecordByID(ctx context.Context, id string) (*refinery.PublishedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.record.ID == id {
			return r.record, nil
		}
	}
	return nil, refinery.Errorf(refinery.ENOTFOUND, "record not found")
}

// FindRecords retrieves records matching the filter, newest first.
func (s *RecordStore) FindRecords(ctx context.Context, filter refinery.RecordFilter) ([]*refinery.PublishedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}

	var out []*refinery.PublishedRecord
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i].record
		if filter.Date != nil && rec.Key.Date != *filter.Date {
			continue
		}
		if filter.URL != nil && rec.Key.URL != refinery.CanonicalURL(*filter.URL) {
			continue
		}
		out = append(out, rec)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}
