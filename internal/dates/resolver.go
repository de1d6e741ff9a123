// Package dates extracts calendar dates and times from free text in Korean
// and English. Absolute expressions always take priority over relative ones;
// relative expressions are resolved against an anchor timestamp (usually the
// original posting time), never against the wall clock.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Confidence is the qualitative trust tier attached to a resolved date.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// validWindow bounds how far an extracted date may deviate from the
// resolution time before Validate rejects it.
const validWindow = 365 * 24 * time.Hour

// Absolute date patterns, in strict precedence order. The first pattern
// that matches wins.
var (
	reFullDate    = regexp.MustCompile(`(\d{4})[-/](\d{1,2})[-/](\d{1,2})`)
	reMonthDay    = regexp.MustCompile(`\b(\d{1,2})[-/](\d{1,2})\b`)
	reKoreanDate  = regexp.MustCompile(`(\d{1,2})월\s*(\d{1,2})일`)
	reEnglishDate = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s*(\d{1,2})\b`)
)

// Time-of-day patterns.
var (
	reClock       = regexp.MustCompile(`\b(\d{1,2}):(\d{2})`)
	reKoreanClock = regexp.MustCompile(`(\d{1,2})시\s*(\d{1,2})분?`)
)

// Relative date patterns, matched only when no absolute date was found and
// an anchor is available.
var (
	reNextWeek    = regexp.MustCompile(`다음\s*주|next\s*week`)
	reThisWeek    = regexp.MustCompile(`이번\s*주|this\s*week`)
	reTomorrow    = regexp.MustCompile(`내일|tomorrow`)
	reDayAfter    = regexp.MustCompile(`모레|day\s+after\s+tomorrow`)
	reInNDays     = regexp.MustCompile(`(\d+)\s*일\s*후|in\s+(\d+)\s+days?`)
	reKoreanWday  = regexp.MustCompile(`(월|화|수|목|금|토|일)요일`)
	reEnglishWday = regexp.MustCompile(`\b(mon|tue|wed|thu|fri|sat|sun)[a-z]*\b`)
)

var englishMonths = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var koreanWeekdays = map[string]time.Weekday{
	"월": time.Monday, "화": time.Tuesday, "수": time.Wednesday,
	"목": time.Thursday, "금": time.Friday, "토": time.Saturday,
	"일": time.Sunday,
}

var englishWeekdays = map[string]time.Weekday{
	"mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
	"sun": time.Sunday,
}

// Resolver extracts and validates dates. The clock is injectable so that
// year-rollover and validation behavior is testable.
type Resolver struct {
	now func() time.Time
}

// NewResolver creates a Resolver using the system clock.
func NewResolver() *Resolver {
	return &Resolver{now: time.Now}
}

// NewResolverAt creates a Resolver with a fixed clock.
func NewResolverAt(now func() time.Time) *Resolver {
	return &Resolver{now: now}
}

// Extract finds a calendar date in text. Absolute expressions are tried in
// strict precedence order; relative expressions only when no absolute match
// exists and anchor is non-nil. referenceYear fills in a missing year for
// absolute expressions (0 means the current year). The boolean result is
// false when nothing matched.
func (r *Resolver) Extract(text string, anchor *time.Time, referenceYear int) (time.Time, Confidence, bool) {
	if text == "" {
		return time.Time{}, ConfidenceNone, false
	}

	lower := strings.ToLower(text)

	if abs, ok := r.parseAbsolute(lower, referenceYear); ok {
		if h, m, ok := parseClock(lower); ok {
			abs = time.Date(abs.Year(), abs.Month(), abs.Day(), h, m, 0, 0, abs.Location())
		}
		return abs, ConfidenceHigh, true
	}

	if anchor != nil {
		if rel, ok := parseRelative(lower, *anchor); ok {
			if h, m, ok := parseClock(lower); ok {
				rel = time.Date(rel.Year(), rel.Month(), rel.Day(), h, m, 0, 0, rel.Location())
			}
			return rel, ConfidenceMedium, true
		}
	}

	return time.Time{}, ConfidenceNone, false
}

// Validate rejects dates more than a year in the past or future relative to
// the resolution time. It filters obviously-wrong parses (e.g. a four-digit
// number mistaken for a date) before acceptance.
func (r *Resolver) Validate(t time.Time) bool {
	now := r.now()
	if t.Before(now.Add(-validWindow)) {
		return false
	}
	if t.After(now.Add(validWindow)) {
		return false
	}
	return true
}

// parseAbsolute tries the absolute patterns in precedence order. A pattern
// whose match is an impossible date (e.g. "3/45" hitting the month-day
// form) falls through to the next pattern rather than aborting, so a valid
// date later in the text is still found.
func (r *Resolver) parseAbsolute(text string, referenceYear int) (time.Time, bool) {
	if m := reFullDate.FindStringSubmatch(text); m != nil {
		if t, ok := makeDate(atoi(m[1]), atoi(m[2]), atoi(m[3])); ok {
			return t, true
		}
	}
	if m := reMonthDay.FindStringSubmatch(text); m != nil {
		if t, ok := makeDate(r.resolveYear(atoi(m[1]), referenceYear), atoi(m[1]), atoi(m[2])); ok {
			return t, true
		}
	}
	if m := reKoreanDate.FindStringSubmatch(text); m != nil {
		if t, ok := makeDate(r.resolveYear(atoi(m[1]), referenceYear), atoi(m[1]), atoi(m[2])); ok {
			return t, true
		}
	}
	if m := reEnglishDate.FindStringSubmatch(text); m != nil {
		month := int(englishMonths[strings.ToLower(m[1])])
		if t, ok := makeDate(r.resolveYear(month, referenceYear), month, atoi(m[2])); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// resolveYear fills in a missing year. When the parsed month precedes the
// current month the year rolls forward by one, so that dates published late
// in a calendar year referring to the next term resolve into that term.
func (r *Resolver) resolveYear(month, referenceYear int) int {
	year := referenceYear
	if year == 0 {
		year = r.now().Year()
	}
	if month < int(r.now().Month()) {
		year++
	}
	return year
}

func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	// Reject normalized overflow such as February 31.
	if int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func parseClock(text string) (hour, minute int, ok bool) {
	if m := reClock.FindStringSubmatch(text); m != nil {
		hour, minute = atoi(m[1]), atoi(m[2])
	} else if m := reKoreanClock.FindStringSubmatch(text); m != nil {
		hour, minute = atoi(m[1]), atoi(m[2])
	} else {
		return 0, 0, false
	}
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

func parseRelative(text string, anchor time.Time) (time.Time, bool) {
	switch {
	case reNextWeek.MatchString(text):
		return anchor.AddDate(0, 0, 7), true
	case reThisWeek.MatchString(text):
		return anchor, true
	case reDayAfter.MatchString(text):
		return anchor.AddDate(0, 0, 2), true
	case reTomorrow.MatchString(text):
		return anchor.AddDate(0, 0, 1), true
	}

	if m := reInNDays.FindStringSubmatch(text); m != nil {
		n := m[1]
		if n == "" {
			n = m[2]
		}
		return anchor.AddDate(0, 0, atoi(n)), true
	}

	if m := reKoreanWday.FindStringSubmatch(text); m != nil {
		return nextWeekday(anchor, koreanWeekdays[m[1]]), true
	}
	if m := reEnglishWday.FindStringSubmatch(text); m != nil {
		return nextWeekday(anchor, englishWeekdays[strings.ToLower(m[1])]), true
	}

	return time.Time{}, false
}

// nextWeekday returns the next occurrence of weekday strictly after anchor.
// When the anchor's weekday equals the target it rolls forward a full week,
// never returning the anchor's own day.
func nextWeekday(anchor time.Time, weekday time.Weekday) time.Time {
	ahead := int(weekday - anchor.Weekday())
	if ahead <= 0 {
		ahead += 7
	}
	return anchor.AddDate(0, 0, ahead)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
