// Package dateparse turns scraped, free-text publication dates into a
// canonical date-only instant.
//
// Inputs come from Indonesian news portals and may carry a leading day name,
// a trailing time of day and zone abbreviation ("Selasa, 2 September 2025
// 14:30 WIB"), or be numeric (02/09/2025, 2025-09-02). The result never
// depends on the timezone of the parsing process: the calendar date is taken
// as written and pinned to midnight in ReferenceLocation.
package dateparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/user/harvest-service/internal/entity"
)

// ReferenceLocation is the single zone every canonical date is pinned to.
var ReferenceLocation = time.UTC

const (
	minYear = 1900
	maxYear = 2200
)

// Result is a successfully parsed date.
type Result struct {
	Date time.Time
	// Ambiguous is set when a numeric day/month pair could be read either way
	// and day-first was assumed.
	Ambiguous bool
	// Matcher names the layout that matched.
	Matcher string
}

type matcher struct {
	name string
	fn   func(s string) (Result, bool)
}

// Order matters: month names first so numeric ambiguity never wins over an
// explicit month.
var matchers = []matcher{
	{name: "day-month-name", fn: matchDayMonthName},
	{name: "iso", fn: matchISO},
	{name: "numeric-day-first", fn: matchNumeric},
	{name: "long-form", fn: matchLongForm},
}

var (
	weekdayPrefix = regexp.MustCompile(`^[\s,.|\-]*(senin|selasa|rabu|kamis|jum'?at|sabtu|minggu|ahad|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b[\s,.|\-]*`)
	whitespace    = regexp.MustCompile(`\s+`)

	dayMonthNameRe = regexp.MustCompile(`^(\d{1,2})\s+([a-z]+)\.?,?\s+(\d{4})(?:$|[^0-9])`)
	isoRe          = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:$|[^0-9])`)
	numericRe      = regexp.MustCompile(`^(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})(?:$|[^0-9])`)
	longDayFirstRe = regexp.MustCompile(`(?:^|\D)(\d{1,2})\s+([a-z]+)\.?,?\s+(\d{4})(?:\D|$)`)
	longMonthFirst = regexp.MustCompile(`(?:^|[^a-z])([a-z]+)\.?\s+(\d{1,2}),?\s+(\d{4})(?:\D|$)`)
)

var months = map[string]time.Month{
	"januari": time.January, "january": time.January, "jan": time.January,
	"februari": time.February, "pebruari": time.February, "february": time.February, "feb": time.February, "peb": time.February,
	"maret": time.March, "march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"mei": time.May, "may": time.May,
	"juni": time.June, "june": time.June, "jun": time.June,
	"juli": time.July, "july": time.July, "jul": time.July,
	"agustus": time.August, "august": time.August, "agu": time.August, "agt": time.August, "ags": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"oktober": time.October, "october": time.October, "okt": time.October, "oct": time.October,
	"november": time.November, "nopember": time.November, "nov": time.November, "nop": time.November,
	"desember": time.December, "december": time.December, "des": time.December, "dec": time.December,
}

// Parse normalizes raw into a canonical date. It returns *entity.ParseError
// when no layout matches; it never substitutes the current time.
func Parse(raw string) (Result, error) {
	s := normalize(raw)
	if s == "" {
		return Result{}, &entity.ParseError{Raw: raw}
	}
	for _, m := range matchers {
		if r, ok := m.fn(s); ok {
			r.Matcher = m.name
			return r, nil
		}
	}
	return Result{}, &entity.ParseError{Raw: raw}
}

// Truncate pins t to its calendar date in ReferenceLocation. It is used for
// records whose date could not be parsed.
func Truncate(t time.Time) time.Time {
	t = t.In(ReferenceLocation)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, ReferenceLocation)
}

func normalize(raw string) string {
	s := norm.NFKC.String(raw)
	s = cases.Lower(language.Indonesian).String(s)
	s = strings.NewReplacer("’", "'", "`", "'").Replace(s)
	s = whitespace.ReplaceAllString(strings.TrimSpace(s), " ")
	s = weekdayPrefix.ReplaceAllString(s, "")
	return strings.Trim(s, " ,.|-")
}

func matchDayMonthName(s string) (Result, bool) {
	m := dayMonthNameRe.FindStringSubmatch(s)
	if m == nil {
		return Result{}, false
	}
	return fromParts(m[1], m[2], m[3])
}

func matchISO(s string) (Result, bool) {
	m := isoRe.FindStringSubmatch(s)
	if m == nil {
		return Result{}, false
	}
	return build(atoi(m[1]), atoi(m[2]), atoi(m[3]))
}

func matchNumeric(s string) (Result, bool) {
	m := numericRe.FindStringSubmatch(s)
	if m == nil {
		return Result{}, false
	}
	day, month := atoi(m[1]), atoi(m[2])
	r, ok := build(atoi(m[3]), month, day)
	if !ok {
		return Result{}, false
	}
	r.Ambiguous = day <= 12 && month <= 12 && day != month
	return r, true
}

func matchLongForm(s string) (Result, bool) {
	for _, m := range longDayFirstRe.FindAllStringSubmatch(s, -1) {
		if r, ok := fromParts(m[1], m[2], m[3]); ok {
			return r, true
		}
	}
	for _, m := range longMonthFirst.FindAllStringSubmatch(s, -1) {
		if r, ok := fromParts(m[2], m[1], m[3]); ok {
			return r, true
		}
	}
	return Result{}, false
}

func fromParts(day, monthName, year string) (Result, bool) {
	month, ok := months[monthName]
	if !ok {
		return Result{}, false
	}
	return build(atoi(year), int(month), atoi(day))
}

func build(year, month, day int) (Result, bool) {
	if year < minYear || year > maxYear || month < 1 || month > 12 || day < 1 {
		return Result{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, ReferenceLocation)
	// time.Date normalizes overflow (31 Feb -> 3 Mar); reject those.
	if t.Day() != day || int(t.Month()) != month {
		return Result{}, false
	}
	return Result{Date: t}, true
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
