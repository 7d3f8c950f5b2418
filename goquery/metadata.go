package goquery

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/refinery"
)

// Ensure MetadataReader implements refinery.MetadataReader at compile time.
var _ refinery.MetadataReader = (*MetadataReader)(nil)

// MetadataReader reads event fields from Open Graph tags, schema.org
// microdata and JSON-LD Event objects.
type MetadataReader struct{}

// NewMetadataReader creates a new MetadataReader.
func NewMetadataReader() *MetadataReader {
	return &MetadataReader{}
}

// ReadMetadata returns event fields keyed by refinery field name.
// JSON-LD takes precedence over microdata, which takes precedence over
// meta tags.
func (r *MetadataReader) ReadMetadata(html string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, refinery.Errorf(refinery.EINVALID, "failed to parse HTML: %v", err)
	}

	meta := make(map[string]string)
	set := func(field, value string) {
		value = strings.Join(strings.Fields(value), " ")
		if value != "" {
			meta[field] = value
		}
	}

	set(refinery.FieldTitle, firstAttr(doc, "content", `meta[property="og:title"]`, `meta[name="twitter:title"]`))
	set(refinery.FieldDescription, firstAttr(doc, "content", `meta[property="og:description"]`, `meta[name="description"]`))
	set(refinery.FieldStartTime, firstAttr(doc, "content", `meta[property="event:start_time"]`))

	readMicrodata(doc, set)

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return
		}
		for _, event := range events(data) {
			readEvent(event, set)
		}
	})

	return meta, nil
}

func readMicrodata(doc *goquery.Document, set func(field, value string)) {
	scope := doc.Find(`[itemtype*="schema.org"][itemtype$="Event"]`).First()
	if scope.Length() == 0 {
		return
	}
	prop := func(name string) string {
		sel := scope.Find(`[itemprop="` + name + `"]`).First()
		if sel.Length() == 0 {
			return ""
		}
		for _, attr := range []string{"content", "datetime"} {
			if v, ok := sel.Attr(attr); ok {
				return v
			}
		}
		return sel.Text()
	}
	set(refinery.FieldTitle, prop("name"))
	set(refinery.FieldStartTime, prop("startDate"))
	if loc := scope.Find(`[itemprop="location"]`).First(); loc.Length() > 0 {
		name := loc.Find(`[itemprop="name"]`).First().Text()
		if strings.TrimSpace(name) == "" {
			name = loc.Text()
		}
		set(refinery.FieldLocation, name)
	}
}

// events returns every JSON-LD object typed as an Event, looking inside
// top-level arrays and @graph lists.
func events(data any) []map[string]any {
	switch v := data.(type) {
	case []any:
		var out []map[string]any
		for _, item := range v {
			out = append(out, events(item)...)
		}
		return out
	case map[string]any:
		if graph, ok := v["@graph"]; ok {
			return events(graph)
		}
		if isEventType(v["@type"]) {
			return []map[string]any{v}
		}
	}
	return nil
}

func isEventType(t any) bool {
	switch v := t.(type) {
	case string:
		return strings.HasSuffix(v, "Event")
	case []any:
		for _, item := range v {
			if isEventType(item) {
				return true
			}
		}
	}
	return false
}

func readEvent(event map[string]any, set func(field, value string)) {
	set(refinery.FieldTitle, str(event["name"]))
	set(refinery.FieldDescription, str(event["description"]))
	set(refinery.FieldStartTime, str(event["startDate"]))
	set(refinery.FieldLocation, place(event["location"]))
	set(refinery.FieldOrganizer, name(event["organizer"]))
	set(refinery.FieldPrice, price(event))
}

func place(v any) string {
	switch p := v.(type) {
	case string:
		return p
	case []any:
		if len(p) > 0 {
			return place(p[0])
		}
	case map[string]any:
		parts := []string{str(p["name"]), address(p["address"])}
		var out []string
		for _, part := range parts {
			if part != "" && !containsFold(out, part) {
				out = append(out, part)
			}
		}
		return strings.Join(out, ", ")
	}
	return ""
}

func address(v any) string {
	switch a := v.(type) {
	case string:
		return a
	case map[string]any:
		var parts []string
		for _, key := range []string{"streetAddress", "addressLocality"} {
			if s := str(a[key]); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

func name(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case []any:
		if len(n) > 0 {
			return name(n[0])
		}
	case map[string]any:
		return str(n["name"])
	}
	return ""
}

func price(event map[string]any) string {
	if free, ok := event["isAccessibleForFree"].(bool); ok && free {
		return "Free"
	}
	offer := event["offers"]
	if list, ok := offer.([]any); ok && len(list) > 0 {
		offer = list[0]
	}
	o, ok := offer.(map[string]any)
	if !ok {
		return ""
	}
	amount := str(o["price"])
	if amount == "" {
		amount = str(o["lowPrice"])
	}
	switch amount {
	case "":
		return ""
	case "0", "0.0", "0.00":
		return "Free"
	}
	if currency := str(o["priceCurrency"]); currency != "" {
		return amount + " " + currency
	}
	return amount
}

// str renders JSON scalars as strings.
func str(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

func firstAttr(doc *goquery.Document, attr string, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
