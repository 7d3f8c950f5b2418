package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/refinery"
	"github.com/fwojciec/refinery/dateparse"
	"github.com/fwojciec/refinery/heuristic"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// maxPromptText caps the page text sent to the model, in bytes.
const maxPromptText = 60000

// Ensure Extractor implements refinery.Extractor at compile time.
var _ refinery.Extractor = (*Extractor)(nil)

// Generator generates model content. *genai.Models satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Extractor implements refinery.Extractor using Gemini structured output.
//
// The prompt carries the page text, deterministic hints, the prior record
// and the validator's feedback. Prior values for fields the feedback does
// not mention are merged back after the response, so a retry only changes
// what was challenged.
type Extractor struct {
	gen   Generator
	model string
	hints refinery.HintProvider
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(e *Extractor) {
		e.model = model
	}
}

// WithHints sets the provider whose hints are included in the prompt.
func WithHints(hints refinery.HintProvider) Option {
	return func(e *Extractor) {
		e.hints = hints
	}
}

// NewExtractor creates an Extractor. Pass client.Models as gen.
func NewExtractor(gen Generator, opts ...Option) *Extractor {
	e := &Extractor{
		gen:   gen,
		model: DefaultModel,
		hints: heuristic.NewEventHints(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// response is the JSON object the model is asked to produce.
type response struct {
	Title       string   `json:"title"`
	StartTime   string   `json:"start_time"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Organizer   string   `json:"organizer"`
	Price       string   `json:"price"`
	SourceURL   string   `json:"source_url"`
	Confidence  float64  `json:"confidence"`
	Defects     []string `json:"defects"`
}

func (r *response) record() *refinery.EventRecord {
	rec := &refinery.EventRecord{}
	rec.Set(refinery.FieldTitle, refinery.String(strings.TrimSpace(r.Title)))
	rec.Set(refinery.FieldStartTime, refinery.String(strings.TrimSpace(r.StartTime)))
	rec.Set(refinery.FieldLocation, refinery.String(strings.TrimSpace(r.Location)))
	rec.Set(refinery.FieldDescription, refinery.String(strings.TrimSpace(r.Description)))
	rec.Set(refinery.FieldOrganizer, refinery.String(strings.TrimSpace(r.Organizer)))
	rec.Set(refinery.FieldPrice, refinery.String(strings.TrimSpace(r.Price)))
	rec.Set(refinery.FieldSourceURL, refinery.String(strings.TrimSpace(r.SourceURL)))
	return rec
}

// Extract implements refinery.Extractor.
func (e *Extractor) Extract(ctx context.Context, content *refinery.SourceContent, prior *refinery.EventRecord, feedback []string) (*refinery.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, refinery.Errorf(refinery.EEXTRACT, "extraction cancelled: %v", err)
	}
	if content == nil || (strings.TrimSpace(content.Text) == "" && strings.TrimSpace(content.Title) == "") {
		return &refinery.Extraction{
			Record:     &refinery.EventRecord{},
			Confidence: 0,
			Defects:    []string{"source content is empty"},
		}, nil
	}

	var hints []refinery.Hint
	if e.hints != nil {
		hints = e.hints.Hints(content)
	}
	prompt, err := BuildPrompt(content, hints, prior, feedback)
	if err != nil {
		return nil, refinery.Errorf(refinery.EEXTRACT, "building prompt: %v", err)
	}

	result, err := e.gen.GenerateContent(ctx, e.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		BuildConfig(),
	)
	if err != nil {
		return nil, refinery.Errorf(refinery.EEXTRACT, "gemini: %v", err)
	}
	if result == nil {
		return nil, refinery.Errorf(refinery.EEXTRACT, "gemini returned nil result")
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return nil, refinery.Errorf(refinery.EEXTRACT, "gemini returned an empty response")
	}
	var resp response
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, refinery.Errorf(refinery.EEXTRACT, "malformed gemini response: %v", err)
	}

	record := resp.record()
	if v := record.StartTime; v != nil {
		if normalized, err := dateparse.Normalize(*v); err == nil {
			record.StartTime = refinery.String(normalized)
		}
	}
	if !record.Has(refinery.FieldSourceURL) && content.URL != "" {
		record.SourceURL = refinery.String(content.URL)
	}

	return &refinery.Extraction{
		Record:     Merge(prior, record, feedback),
		Confidence: refinery.Clamp(resp.Confidence),
		Defects:    resp.Defects,
	}, nil
}

// Merge returns next with every populated prior field that feedback does
// not challenge restored from prior.
func Merge(prior, next *refinery.EventRecord, feedback []string) *refinery.EventRecord {
	merged := next.Clone()
	if prior == nil {
		return merged
	}
	challenged := refinery.ChallengedFields(feedback)
	for _, field := range refinery.Fields {
		if challenged[field] || !prior.Has(field) {
			continue
		}
		merged.Set(field, refinery.String(*prior.Get(field)))
	}
	return merged
}

// BuildConfig returns the GenerateContentConfig for extraction calls.
func BuildConfig() *genai.GenerateContentConfig {
	temp := float32(0.1)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{
				Text: "You extract structured event listings from web pages. Use only facts stated in the page. " +
					"Copy titles, locations and organizers verbatim. Leave a field empty when the page does not state it. " +
					"Write start_time as YYYY-MM-DDTHH:MM, or YYYY-MM-DD when no time of day is given.",
			}},
		},
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	}
}

func responseSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			refinery.FieldTitle:       str("Event title as written on the page."),
			refinery.FieldStartTime:   str("Start as YYYY-MM-DDTHH:MM or YYYY-MM-DD."),
			refinery.FieldLocation:    str("Venue or address as written on the page."),
			refinery.FieldDescription: str("Short description taken from the page."),
			refinery.FieldOrganizer:   str("Organizer or host."),
			refinery.FieldPrice:       str("Price as written, or Free."),
			refinery.FieldSourceURL:   str("Canonical URL of the event page."),
			"confidence": {
				Type:        genai.TypeNumber,
				Description: "Confidence in the extracted record, from 0 to 1.",
			},
			"defects": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "Problems noticed while extracting.",
			},
		},
		Required:         []string{refinery.FieldTitle, refinery.FieldStartTime, refinery.FieldLocation, "confidence"},
		PropertyOrdering: append(append([]string{}, refinery.Fields...), "confidence", "defects"),
	}
}

// BuildPrompt builds the user prompt for one extraction attempt.
func BuildPrompt(content *refinery.SourceContent, hints []refinery.Hint, prior *refinery.EventRecord, feedback []string) (string, error) {
	var sb strings.Builder

	sb.WriteString("<page>\n")
	fmt.Fprintf(&sb, "<url>%s</url>\n", content.URL)
	if content.Title != "" {
		fmt.Fprintf(&sb, "<title>%s</title>\n", content.Title)
	}
	if !content.FetchedAt.IsZero() {
		fmt.Fprintf(&sb, "<fetched>%s</fetched>\n", content.FetchedAt.Format(refinery.DateLayout))
	}
	if len(content.Metadata) > 0 {
		keys := make([]string, 0, len(content.Metadata))
		for k := range content.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("<metadata>\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "%s: %s\n", k, content.Metadata[k])
		}
		sb.WriteString("</metadata>\n")
	}
	fmt.Fprintf(&sb, "<content>\n%s\n</content>\n", truncate(content.Text, maxPromptText))
	sb.WriteString("</page>\n")

	if len(hints) > 0 {
		sb.WriteString("\n<hints>\n")
		for _, h := range hints {
			fmt.Fprintf(&sb, "%s: %s (weight %.2f)\n", h.Field, h.Value, h.Weight)
		}
		sb.WriteString("</hints>\n")
	}

	if prior != nil {
		data, err := json.MarshalIndent(prior, "", "  ")
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "\n<previous_attempt>\n%s\n</previous_attempt>\n", data)
	}
	if len(feedback) > 0 {
		sb.WriteString("\n<feedback>\n")
		for _, msg := range feedback {
			fmt.Fprintf(&sb, "- %s\n", msg)
		}
		sb.WriteString("</feedback>\n")
		sb.WriteString("\nFix only the fields named in the feedback. Keep every other field from the previous attempt.")
	} else {
		sb.WriteString("\nExtract the event described on this page.")
	}

	return sb.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
