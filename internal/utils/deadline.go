package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDatePattern     = regexp.MustCompile(`(\d{4})[-/](\d{1,2})[-/](\d{1,2})`)
	chineseDatePattern = regexp.MustCompile(`(\d{1,2})月(\d{1,2})日`)
	dmyDatePattern     = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	mdyEnglishPattern  = regexp.MustCompile(`(?i)(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\s+(\d{1,2}),?\s+(\d{4})`)
	dmyEnglishPattern  = regexp.MustCompile(`(?i)(\d{1,2})\s+(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)(?:\s+(\d{4}))?`)
)

var englishMonths = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November,
	"dec": time.December,
}

// ParseDeadline extracts the first recognizable due date from free text.
// Supported forms: 2026-02-15 and 2026/02/15, 2月15日, 15/02/2026,
// "February 15, 2026", "15 Feb" and "15 Feb 2026". Year-less forms
// resolve against the current year. Returns nil when nothing parses.
func ParseDeadline(text string) *time.Time {
	if text == "" {
		return nil
	}

	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		if t, ok := buildDate(m[1], m[2], m[3]); ok {
			return &t
		}
	}

	if m := chineseDatePattern.FindStringSubmatch(text); m != nil {
		year := strconv.Itoa(time.Now().Year())
		if t, ok := buildDate(year, m[1], m[2]); ok {
			return &t
		}
	}

	if m := dmyDatePattern.FindStringSubmatch(text); m != nil {
		if t, ok := buildDate(m[3], m[2], m[1]); ok {
			return &t
		}
	}

	if m := mdyEnglishPattern.FindStringSubmatch(text); m != nil {
		month, exists := englishMonths[strings.ToLower(m[1])]
		if exists {
			if t, ok := buildDate(m[3], strconv.Itoa(int(month)), m[2]); ok {
				return &t
			}
		}
	}

	if m := dmyEnglishPattern.FindStringSubmatch(text); m != nil {
		month, exists := englishMonths[strings.ToLower(m[2])]
		if exists {
			year := m[3]
			if year == "" {
				year = strconv.Itoa(time.Now().Year())
			}
			if t, ok := buildDate(year, strconv.Itoa(int(month)), m[1]); ok {
				return &t
			}
		}
	}

	return nil
}

func buildDate(yearStr, monthStr, dayStr string) (time.Time, bool) {
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// Reject rollovers like February 31 normalizing to March.
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return t, true
}

// DaysUntil returns whole days from today (UTC midnight) to the given
// date. Zero means due today, negative means overdue.
func DaysUntil(deadline time.Time) int {
	now := Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	due := time.Date(deadline.Year(), deadline.Month(), deadline.Day(), 0, 0, 0, 0, time.UTC)
	return int(due.Sub(today).Hours() / 24)
}
