package journal

import "strings"

// PlaceName returns the name of the place with id, or "".
func PlaceName(places []Place, id string) string {
	if id == "" {
		return ""
	}
	for _, p := range places {
		if p.ID == id {
			return p.Name
		}
	}
	return ""
}

// FindPlaceByName matches case-insensitively and returns -1 when absent.
func FindPlaceByName(places []Place, name string) int {
	for i, p := range places {
		if strings.EqualFold(p.Name, name) {
			return i
		}
	}
	return -1
}

// PersonName returns the name of the person with id, or "".
func PersonName(people []Person, id string) string {
	for _, p := range people {
		if p.ID == id {
			return p.Name
		}
	}
	return ""
}
