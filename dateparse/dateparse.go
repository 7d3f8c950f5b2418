// Package dateparse finds and normalizes event dates in free text.
// Explicit dates are parsed with github.com/araddon/dateparse; month/day
// mentions without a year are resolved against a reference time.
package dateparse

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/fwojciec/refinery"
)

// Match is a date mention found in text.
type Match struct {
	// Text is the matched substring, including any time of day.
	Text string

	// Date is the calendar date in refinery.DateLayout.
	Date string

	// Clock is the time of day as "15:04", or "" when none was found.
	Clock string

	// Relaxed is true when the year was inferred rather than written.
	Relaxed bool

	// Offset is the byte offset of the match in the scanned text.
	Offset int
}

// Value returns the match in refinery.DateTimeLayout, or
// refinery.DateLayout when no time of day is known.
func (m Match) Value() string {
	if m.Clock == "" {
		return m.Date
	}
	return m.Date + "T" + m.Clock
}

const monthPattern = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

var (
	isoRe          = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})(?:[T ](\d{1,2}:\d{2}))?`)
	numericRe      = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/(?:\d{4}|\d{2}))\b`)
	monthDayYearRe = regexp.MustCompile(`(?i)\b` + monthPattern + `\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	dayMonthYearRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthPattern + `\.?,?\s+(\d{4})\b`)
	monthDayRe     = regexp.MustCompile(`(?i)\b` + monthPattern + `\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	dayMonthRe     = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthPattern + `\b`)

	clock12Re = regexp.MustCompile(`(?i)\b(\d{1,2})(?:[:.](\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)(?:[^a-z]|$)`)
	clock24Re = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
)

// Find returns every date mentioned in text, in order of appearance.
// Strict matches carry an explicit year. Relaxed matches are month/day
// mentions whose year is inferred from ref: the year of ref, or the next
// one when the date would otherwise be more than 30 days in the past.
func Find(text string, ref time.Time) []Match {
	if ref.IsZero() {
		ref = time.Now()
	}

	var matches []Match
	var taken [][2]int

	overlaps := func(start, end int) bool {
		for _, span := range taken {
			if start < span[1] && end > span[0] {
				return true
			}
		}
		return false
	}
	add := func(m Match, start, end int) {
		taken = append(taken, [2]int{start, end})
		m.Offset = start
		matches = append(matches, m)
	}

	for _, idx := range isoRe.FindAllStringSubmatchIndex(text, -1) {
		t, err := time.Parse(refinery.DateLayout, text[idx[2]:idx[3]])
		if err != nil {
			continue
		}
		m := Match{Text: text[idx[0]:idx[1]], Date: t.Format(refinery.DateLayout)}
		if idx[4] >= 0 {
			m.Clock = normalizeClock(text[idx[4]:idx[5]])
		}
		add(m, idx[0], idx[1])
	}

	for _, idx := range numericRe.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(idx[0], idx[1]) {
			continue
		}
		t, err := dateparse.ParseIn(text[idx[2]:idx[3]], time.UTC)
		if err != nil {
			continue
		}
		add(Match{Text: text[idx[0]:idx[1]], Date: t.Format(refinery.DateLayout)}, idx[0], idx[1])
	}

	for _, idx := range monthDayYearRe.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(idx[0], idx[1]) {
			continue
		}
		if d, ok := date(text[idx[6]:idx[7]], text[idx[2]:idx[3]], text[idx[4]:idx[5]]); ok {
			add(Match{Text: text[idx[0]:idx[1]], Date: d}, idx[0], idx[1])
		}
	}

	for _, idx := range dayMonthYearRe.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(idx[0], idx[1]) {
			continue
		}
		if d, ok := date(text[idx[6]:idx[7]], text[idx[4]:idx[5]], text[idx[2]:idx[3]]); ok {
			add(Match{Text: text[idx[0]:idx[1]], Date: d}, idx[0], idx[1])
		}
	}

	for _, idx := range monthDayRe.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(idx[0], idx[1]) {
			continue
		}
		if d, ok := inferYear(ref, text[idx[2]:idx[3]], text[idx[4]:idx[5]]); ok {
			add(Match{Text: text[idx[0]:idx[1]], Date: d, Relaxed: true}, idx[0], idx[1])
		}
	}

	for _, idx := range dayMonthRe.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(idx[0], idx[1]) {
			continue
		}
		if d, ok := inferYear(ref, text[idx[4]:idx[5]], text[idx[2]:idx[3]]); ok {
			add(Match{Text: text[idx[0]:idx[1]], Date: d, Relaxed: true}, idx[0], idx[1])
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Offset < matches[j].Offset })

	for i := range matches {
		if matches[i].Clock != "" {
			continue
		}
		if clock, span := clockNear(text, matches[i]); clock != "" {
			matches[i].Clock = clock
			matches[i].Text = span
		}
	}

	return matches
}

// Normalize parses a single date expression, such as a value returned by a
// language model, into refinery.DateTimeLayout or refinery.DateLayout.
func Normalize(s string) (string, error) {
	s = strings.TrimSpace(stripOrdinals(s))
	if s == "" {
		return "", refinery.Errorf(refinery.EINVALID, "empty date")
	}
	if _, err := time.Parse(refinery.DateTimeLayout, s); err == nil {
		return s, nil
	}
	if _, err := time.Parse(refinery.DateLayout, s); err == nil {
		return s, nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return "", refinery.Errorf(refinery.EINVALID, "unrecognized date %q", s)
	}
	if t.Hour() == 0 && t.Minute() == 0 && !hasClock(s) {
		return t.Format(refinery.DateLayout), nil
	}
	return t.Format(refinery.DateTimeLayout), nil
}

// SameDay reports whether two values in refinery.DateTimeLayout or
// refinery.DateLayout fall on the same calendar date.
func SameDay(a, b string) bool {
	if len(a) < len(refinery.DateLayout) || len(b) < len(refinery.DateLayout) {
		return false
	}
	return a[:len(refinery.DateLayout)] == b[:len(refinery.DateLayout)]
}

// Clock returns the time-of-day part of a refinery.DateTimeLayout value.
func Clock(v string) string {
	if i := strings.IndexByte(v, 'T'); i >= 0 {
		return v[i+1:]
	}
	return ""
}

var ordinalRe = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)

// Clocks returns every time of day mentioned in text as "15:04".
func Clocks(text string) []string {
	var clocks []string
	for text != "" {
		clock, idx := findClock(text)
		if idx == nil {
			break
		}
		if clock != "" {
			clocks = append(clocks, clock)
		}
		text = text[idx[1]:]
	}
	return clocks
}

func stripOrdinals(s string) string {
	return ordinalRe.ReplaceAllString(s, "$1")
}

func hasClock(s string) bool {
	return clock12Re.MatchString(s) || clock24Re.MatchString(s)
}

var months = map[string]time.Month{
	"jan": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"oct": time.October,
	"nov": time.November,
	"dec": time.December,
}

func month(name string) (time.Month, bool) {
	if len(name) < 3 {
		return 0, false
	}
	m, ok := months[strings.ToLower(name[:3])]
	return m, ok
}

// date validates year/month/day and returns it in refinery.DateLayout.
func date(year, monthName, day string) (string, bool) {
	m, ok := month(monthName)
	if !ok {
		return "", false
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return "", false
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return "", false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != m {
		return "", false
	}
	return t.Format(refinery.DateLayout), true
}

func inferYear(ref time.Time, monthName, day string) (string, bool) {
	year := ref.Year()
	d, ok := date(strconv.Itoa(year), monthName, day)
	if !ok {
		return "", false
	}
	t, _ := time.Parse(refinery.DateLayout, d)
	refDay := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	if t.Before(refDay.AddDate(0, 0, -30)) {
		return date(strconv.Itoa(year+1), monthName, day)
	}
	return d, true
}

// clockNear looks for a time of day on the same line as the match, first
// after it and then before it. It returns the normalized clock and the
// widened matched text.
func clockNear(text string, m Match) (string, string) {
	lineStart := strings.LastIndexByte(text[:m.Offset], '\n') + 1
	end := m.Offset + len(m.Text)
	lineEnd := strings.IndexByte(text[end:], '\n')
	if lineEnd < 0 {
		lineEnd = len(text)
	} else {
		lineEnd += end
	}

	after := text[end:lineEnd]
	if clock, idx := findClock(after); clock != "" {
		return clock, text[m.Offset : end+idx[1]]
	}
	before := text[lineStart:m.Offset]
	if clock, idx := findClock(before); clock != "" {
		return clock, text[lineStart+idx[0] : end]
	}
	return "", ""
}

func findClock(s string) (string, []int) {
	var best []int
	var clock string
	if idx := clock12Re.FindStringSubmatchIndex(s); idx != nil {
		h, _ := strconv.Atoi(s[idx[2]:idx[3]])
		minutes := 0
		if idx[4] >= 0 {
			minutes, _ = strconv.Atoi(s[idx[4]:idx[5]])
		}
		pm := strings.HasPrefix(strings.ToLower(s[idx[6]:idx[7]]), "p")
		if h >= 1 && h <= 12 && minutes < 60 {
			if h == 12 {
				h = 0
			}
			if pm {
				h += 12
			}
			best = idx
			clock = formatClock(h, minutes)
		}
	}
	if idx := clock24Re.FindStringSubmatchIndex(s); idx != nil && (best == nil || idx[0] < best[0]) {
		h, _ := strconv.Atoi(s[idx[2]:idx[3]])
		minutes, _ := strconv.Atoi(s[idx[4]:idx[5]])
		// A 24h match that is the prefix of a 12h match is the same clock.
		if best == nil || idx[0] != best[0] {
			best = idx
			clock = formatClock(h, minutes)
		}
	}
	return clock, best
}

func normalizeClock(s string) string {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return ""
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h > 23 {
		return ""
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m > 59 {
		return ""
	}
	return formatClock(h, m)
}

func formatClock(h, m int) string {
	return time.Date(2000, 1, 1, h, m, 0, 0, time.UTC).Format("15:04")
}
