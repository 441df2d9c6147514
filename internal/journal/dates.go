package journal

import (
	"strconv"
	"strings"
	"time"
)

// MemoryTime resolves the moment a memory refers to. Month dates resolve to
// the first of the month and seasons to January 1st of their year; anything
// unparsable falls back to createdAt. Times are UTC.
func MemoryTime(m Memory) time.Time {
	switch m.Date.Type {
	case DateExact:
		if t, err := time.Parse(time.DateOnly, m.Date.Value); err == nil {
			return t
		}
	case DateMonth:
		if t, err := time.Parse("2006-01", m.Date.Value); err == nil {
			return t
		}
	case DateSeason:
		if y, err := strconv.Atoi(strings.TrimSpace(m.Date.Year)); err == nil {
			return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		}
	}
	return time.UnixMilli(m.CreatedAt).UTC()
}

// DateLabel renders the memory date for display, e.g. "5 May 2024",
// "May 2024", "Spring 2020" or "Date unknown".
func DateLabel(m Memory) string {
	switch m.Date.Type {
	case DateExact:
		if t, err := time.Parse(time.DateOnly, m.Date.Value); err == nil {
			return t.Format("2 Jan 2006")
		}
	case DateMonth:
		if t, err := time.Parse("2006-01", m.Date.Value); err == nil {
			return t.Format("January 2006")
		}
	case DateSeason:
		label := capitalise(m.Date.Season)
		if m.Date.Year != "" {
			label += " " + m.Date.Year
		}
		return strings.TrimSpace(label)
	case DateUnknown:
		return "Date unknown"
	}
	return time.UnixMilli(m.CreatedAt).UTC().Format("02/01/2006")
}

func capitalise(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
