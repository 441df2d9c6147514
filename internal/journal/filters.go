package journal

import (
	"slices"
	"strings"
	"time"
)

// Filter value meaning "no restriction".
const FilterAll = "all"

// Date windows accepted by Filters.Date.
const (
	DateWindowAny    = "any"
	DateWindowLast7  = "last7"
	DateWindowLast30 = "last30"
	DateWindowYear   = "year"
)

// Filters narrows a memory list. Empty fields behave like FilterAll.
type Filters struct {
	Search     string
	Section    string
	Visibility string
	Tag        string
	Person     string
	Place      string
	Date       string
}

func restricted(v string) bool {
	return v != "" && v != FilterAll
}

// ApplyFilters returns the memories matching f, newest createdAt first.
// Search is case-insensitive and covers title, body, the low-energy line,
// tags, people names and the place name.
func ApplyFilters(memories []Memory, f Filters, people []Person, places []Place, now time.Time) []Memory {
	query := strings.ToLower(strings.TrimSpace(f.Search))
	now = now.UTC()

	out := make([]Memory, 0, len(memories))
	for _, m := range memories {
		if restricted(f.Section) && m.SectionID != f.Section {
			continue
		}
		if restricted(f.Visibility) && m.Visibility.Type != f.Visibility {
			continue
		}
		if restricted(f.Tag) && !slices.Contains(m.Tags, f.Tag) {
			continue
		}
		if restricted(f.Person) && !slices.Contains(m.PeopleIDs, f.Person) {
			continue
		}
		if restricted(f.Place) && m.PlaceID != f.Place {
			continue
		}

		date := MemoryTime(m)
		switch f.Date {
		case DateWindowLast7:
			if date.Before(now.AddDate(0, 0, -7)) {
				continue
			}
		case DateWindowLast30:
			if date.Before(now.AddDate(0, 0, -30)) {
				continue
			}
		case DateWindowYear:
			if date.Year() != now.Year() {
				continue
			}
		}

		if query != "" && !matches(m, query, people, places) {
			continue
		}
		out = append(out, m)
	}

	slices.SortStableFunc(out, func(a, b Memory) int {
		switch {
		case a.CreatedAt > b.CreatedAt:
			return -1
		case a.CreatedAt < b.CreatedAt:
			return 1
		}
		return 0
	})
	return out
}

func matches(m Memory, query string, people []Person, places []Place) bool {
	content := append([]string{m.Title, m.Body, m.LowEnergyLine}, m.Tags...)
	if strings.Contains(strings.ToLower(strings.Join(content, " ")), query) {
		return true
	}
	names := make([]string, 0, len(m.PeopleIDs))
	for _, id := range m.PeopleIDs {
		names = append(names, PersonName(people, id))
	}
	if strings.Contains(strings.ToLower(strings.Join(names, " ")), query) {
		return true
	}
	return strings.Contains(strings.ToLower(PlaceName(places, m.PlaceID)), query)
}
