package refinery

// Field names as they appear in defects and feedback.
const (
	FieldTitle       = "title"
	FieldStartTime   = "start_time"
	FieldLocation    = "location"
	FieldDescription = "description"
	FieldOrganizer   = "organizer"
	FieldPrice       = "price"
	FieldSourceURL   = "source_url"
)

// Fields lists every EventRecord field in schema order.
var Fields = []string{
	FieldTitle,
	FieldStartTime,
	FieldLocation,
	FieldDescription,
	FieldOrganizer,
	FieldPrice,
	FieldSourceURL,
}

// RequiredFields lists the fields counted by completeness.
var RequiredFields = []string{
	FieldTitle,
	FieldStartTime,
	FieldLocation,
}

// Layouts for EventRecord.StartTime.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04"
)

// EventRecord is a structured, possibly partial event listing.
// A nil field means the extractor could not find a value.
type EventRecord struct {
	Title *string `json:"title"`

	// StartTime is either DateTimeLayout or DateLayout when no time of
	// day is known.
	StartTime *string `json:"start_time"`

	Location    *string `json:"location"`
	Description *string `json:"description"`
	Organizer   *string `json:"organizer"`
	Price       *string `json:"price"`
	SourceURL   *string `json:"source_url"`
}

// Get returns the value of the named field, or nil if it is absent or the
// name is unknown.
func (r *EventRecord) Get(field string) *string {
	if r == nil {
		return nil
	}
	switch field {
	case FieldTitle:
		return r.Title
	case FieldStartTime:
		return r.StartTime
	case FieldLocation:
		return r.Location
	case FieldDescription:
		return r.Description
	case FieldOrganizer:
		return r.Organizer
	case FieldPrice:
		return r.Price
	case FieldSourceURL:
		return r.SourceURL
	}
	return nil
}

// Set assigns the named field. Empty values clear the field.
// Unknown field names are ignored.
func (r *EventRecord) Set(field string, value *string) {
	if value != nil && *value == "" {
		value = nil
	}
	switch field {
	case FieldTitle:
		r.Title = value
	case FieldStartTime:
		r.StartTime = value
	case FieldLocation:
		r.Location = value
	case FieldDescription:
		r.Description = value
	case FieldOrganizer:
		r.Organizer = value
	case FieldPrice:
		r.Price = value
	case FieldSourceURL:
		r.SourceURL = value
	}
}

// Has reports whether the named field is populated.
func (r *EventRecord) Has(field string) bool {
	v := r.Get(field)
	return v != nil && *v != ""
}

// Populated returns the names of all populated fields in schema order.
func (r *EventRecord) Populated() []string {
	var fields []string
	for _, f := range Fields {
		if r.Has(f) {
			fields = append(fields, f)
		}
	}
	return fields
}

// Clone returns a deep copy of the record. Cloning nil returns an empty record.
func (r *EventRecord) Clone() *EventRecord {
	out := &EventRecord{}
	if r == nil {
		return out
	}
	for _, f := range Fields {
		if v := r.Get(f); v != nil {
			s := *v
			out.Set(f, &s)
		}
	}
	return out
}

// String returns a pointer to s, or nil when s is empty.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Value dereferences a field pointer, returning "" for nil.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
