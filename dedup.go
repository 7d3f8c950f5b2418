package refinery

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"
)

// DedupKey identifies the real-world event a record describes.
// Two records are duplicates when their Title and Date both match, or when
// their URL matches.
type DedupKey struct {
	// Title is the normalized title.
	Title string `json:"title"`

	// Date is the event date in DateLayout.
	Date string `json:"date"`

	// URL is the canonical source URL.
	URL string `json:"url"`
}

// NewDedupKey derives the key for a record. The record's own source URL is
// preferred; fallbackURL is used when it has none.
func NewDedupKey(r *EventRecord, fallbackURL string) DedupKey {
	key := DedupKey{Title: NormalizeText(Value(r.Get(FieldTitle)))}
	if start := Value(r.Get(FieldStartTime)); len(start) >= len(DateLayout) {
		if _, err := time.Parse(DateLayout, start[:len(DateLayout)]); err == nil {
			key.Date = start[:len(DateLayout)]
		}
	}
	source := Value(r.Get(FieldSourceURL))
	if source == "" {
		source = fallbackURL
	}
	key.URL = CanonicalURL(source)
	return key
}

// HasTitleDate reports whether the primary title+date match can be used.
func (k DedupKey) HasTitleDate() bool {
	return k.Title != "" && k.Date != ""
}

// Validate returns an error if the key cannot match anything.
func (k DedupKey) Validate() error {
	if !k.HasTitleDate() && k.URL == "" {
		return Errorf(EINVALID, "dedup key requires title and date, or url")
	}
	return nil
}

// Matches reports whether two keys identify the same event.
func (k DedupKey) Matches(other DedupKey) bool {
	if k.HasTitleDate() && k.Title == other.Title && k.Date == other.Date {
		return true
	}
	return k.URL != "" && k.URL == other.URL
}

// CanonicalURL normalizes a URL for comparison: lower-case scheme and host,
// no fragment, no tracking parameters, sorted query and no trailing slash.
// Unparseable input is returned trimmed.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	q := u.Query()
	for k := range q {
		if strings.HasPrefix(strings.ToLower(k), "utm_") {
			q.Del(k)
		}
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		for _, v := range q[k] {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	u.RawQuery = strings.Join(parts, "&")

	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

// PublishedRecord is a record stored in the downstream sink.
type PublishedRecord struct {
	ID        string       `json:"id"`
	Key       DedupKey     `json:"key"`
	Record    *EventRecord `json:"record"`
	Overall   float64      `json:"overall"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Publish operations.
const (
	OperationCreated = "created"
	OperationUpdated = "updated"
)

// PublishResult is the outcome of an upsert.
type PublishResult struct {
	Operation string `json:"operation"`
	ID        string `json:"id"`
}

// DuplicateStore finds records already published for a key.
type DuplicateStore interface {
	// FindDuplicate returns the published record matching key.
	// Returns ENOTFOUND if there is none.
	FindDuplicate(ctx context.Context, key DedupKey) (*PublishedRecord, error)
}

// Publisher writes records to the downstream sink.
type Publisher interface {
	// Upsert creates the record, or updates the one already stored under
	// key. Repeated identical calls never create a second record.
	Upsert(ctx context.Context, key DedupKey, record *EventRecord, score *QualityScore) (*PublishResult, error)
}

// RecordService represents a service for reading published records.
type RecordService interface {
	// FindRecordByID retrieves a record by ID.
	// Returns ENOTFOUND if record does not exist.
	FindRecordByID(ctx context.Context, id string) (*PublishedRecord, error)

	// FindRecords retrieves records matching the filter.
	FindRecords(ctx context.Context, filter RecordFilter) ([]*PublishedRecord, error)
}

// RecordFilter represents a filter for FindRecords.
type RecordFilter struct {
	Date *string `json:"date"`
	URL  *string `json:"url"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
