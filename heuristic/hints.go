// Package heuristic provides deterministic, pattern-based extraction of
// event records from page text.
package heuristic

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/refinery"
	"github.com/fwojciec/refinery/dateparse"
)

// Hint weights. Metadata beats labelled lines, labelled lines beat loose
// patterns.
const (
	weightMetadata = 0.95
	weightTitle    = 0.9
	weightHeading  = 0.8
	weightLabel    = 0.8
	weightDate     = 0.8
	weightPattern  = 0.6
	weightRelaxed  = 0.4
)

// maxValueLen caps hint values taken from free text.
const maxValueLen = 200

// Ensure EventHints implements refinery.HintProvider at compile time.
var _ refinery.HintProvider = (*EventHints)(nil)

// EventHints detects event fields: dates and times, labelled lines such as
// "Venue:" and keyword phrases such as "hosted by".
type EventHints struct{}

// NewEventHints creates a new EventHints.
func NewEventHints() *EventHints {
	return &EventHints{}
}

var (
	headingRe   = regexp.MustCompile(`(?m)^#{1,2}\s+(.+)$`)
	labelRe     = regexp.MustCompile(`(?i)^\s*[-•]?\s*(location|venue|where|address|place|organi[sz]er|host|organi[sz]ed by|hosted by|price|prices|tickets|admission|cost|fee)\s*:\s*(.+)$`)
	byRe        = regexp.MustCompile(`(?i)\b(?:organi[sz]ed|hosted|presented)\s+by\s+([^.,;\n]+)`)
	atVenueRe   = regexp.MustCompile(`\b(?:at|@)\s+((?:the\s+)?[A-Z][\w'&-]*(?:\s+[A-Z0-9][\w'&-]*)*)`)
	fieldLineRe = regexp.MustCompile(`^[A-Za-z][A-Za-z ]{0,20}:\s`)
	currencyRe  = regexp.MustCompile(`(?i)(?:[$€£]\s?\d+(?:[.,]\d{2})?(?:\s?-\s?[$€£]?\s?\d+(?:[.,]\d{2})?)?|\b\d+(?:[.,]\d{2})?\s?(?:usd|eur|gbp)\b)`)
	freeRe      = regexp.MustCompile(`(?i)\bfree\s+(?:admission|entry|event|of charge)\b`)
	emphasisRe  = regexp.MustCompile(`[*_]{1,3}`)
	linkRe      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	listItemRe  = regexp.MustCompile(`^\s*(?:[-*+]|\d+\.)\s+`)
	weekdayOnly = regexp.MustCompile(`(?i)^(mon|tue|wed|thu|fri|sat|sun)[a-z]*$`)
)

var labelFields = map[string]string{
	"location":     refinery.FieldLocation,
	"venue":        refinery.FieldLocation,
	"where":        refinery.FieldLocation,
	"address":      refinery.FieldLocation,
	"place":        refinery.FieldLocation,
	"organizer":    refinery.FieldOrganizer,
	"organiser":    refinery.FieldOrganizer,
	"host":         refinery.FieldOrganizer,
	"organized by": refinery.FieldOrganizer,
	"organised by": refinery.FieldOrganizer,
	"hosted by":    refinery.FieldOrganizer,
	"price":        refinery.FieldPrice,
	"prices":       refinery.FieldPrice,
	"tickets":      refinery.FieldPrice,
	"admission":    refinery.FieldPrice,
	"cost":         refinery.FieldPrice,
	"fee":          refinery.FieldPrice,
}

// Hints returns field hints found in content.
func (h *EventHints) Hints(content *refinery.SourceContent) []refinery.Hint {
	if content == nil {
		return nil
	}

	var hints []refinery.Hint
	add := func(field, value string, weight float64, relaxed bool) {
		value = cleanValue(value)
		if value == "" {
			return
		}
		hints = append(hints, refinery.Hint{Field: field, Value: value, Weight: weight, Relaxed: relaxed})
	}

	for field, value := range content.Metadata {
		if field == refinery.FieldStartTime {
			if v, err := dateparse.Normalize(value); err == nil {
				add(field, v, weightMetadata, false)
			}
			continue
		}
		add(field, value, weightMetadata, false)
	}

	add(refinery.FieldTitle, content.Title, weightTitle, false)
	if m := headingRe.FindStringSubmatch(content.Text); m != nil {
		add(refinery.FieldTitle, stripMarkdown(m[1]), weightHeading, false)
	}

	lines := strings.Split(content.Text, "\n")
	for _, line := range lines {
		plain := stripMarkdown(line)
		if first := strings.TrimSpace(plain); first != "" && !strings.HasPrefix(strings.TrimSpace(line), "#") {
			// A bare first line is a weak title candidate.
			add(refinery.FieldTitle, first, weightRelaxed, true)
			break
		}
	}

	for i, m := range dateparse.Find(content.Text, content.FetchedAt) {
		weight := weightDate - 0.01*float64(i)
		if m.Clock != "" {
			weight += 0.05
		}
		if m.Relaxed {
			add(refinery.FieldStartTime, m.Value(), weightRelaxed+weight/10, true)
			continue
		}
		add(refinery.FieldStartTime, m.Value(), weight, false)
	}

	for _, line := range lines {
		plain := stripMarkdown(line)
		if m := labelRe.FindStringSubmatch(plain); m != nil {
			if field, ok := labelFields[strings.ToLower(m[1])]; ok {
				add(field, m[2], weightLabel, false)
			}
		}
	}

	for _, m := range byRe.FindAllStringSubmatch(stripMarkdown(content.Text), -1) {
		add(refinery.FieldOrganizer, m[1], weightPattern, false)
	}

	for _, m := range atVenueRe.FindAllStringSubmatch(stripMarkdown(content.Text), -1) {
		if weekdayOnly.MatchString(m[1]) {
			continue
		}
		add(refinery.FieldLocation, m[1], weightRelaxed, true)
	}

	if m := currencyRe.FindString(content.Text); m != "" {
		add(refinery.FieldPrice, m, weightPattern, false)
	} else if m := freeRe.FindString(content.Text); m != "" {
		add(refinery.FieldPrice, "Free", weightPattern, false)
	}

	if desc := firstParagraph(content.Text); desc != "" {
		add(refinery.FieldDescription, desc, weightPattern, false)
	}

	add(refinery.FieldSourceURL, content.URL, 1, false)

	return hints
}

// firstParagraph returns the first block of prose at least 40 characters
// long that is not a heading, list item or labelled line.
func firstParagraph(text string) string {
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" || strings.HasPrefix(block, "#") || listItemRe.MatchString(block) {
			continue
		}
		if hasFieldLine(block) {
			continue
		}
		plain := strings.Join(strings.Fields(stripMarkdown(block)), " ")
		if len(plain) < 40 {
			continue
		}
		return plain
	}
	return ""
}

func hasFieldLine(block string) bool {
	for _, line := range strings.Split(block, "\n") {
		if fieldLineRe.MatchString(stripMarkdown(line)) {
			return true
		}
	}
	return false
}

func stripMarkdown(s string) string {
	s = linkRe.ReplaceAllString(s, "$1")
	s = emphasisRe.ReplaceAllString(s, "")
	s = strings.TrimLeft(strings.TrimSpace(s), "#> ")
	return strings.TrimSpace(s)
}

func cleanValue(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, " .,;:")
	if len(s) > maxValueLen {
		cut := strings.LastIndexByte(s[:maxValueLen], ' ')
		if cut <= 0 {
			cut = maxValueLen
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
		}
		s = s[:cut]
	}
	return s
}
