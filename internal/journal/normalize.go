package journal

import (
	"encoding/json"
	"strconv"
)

// Normalize repairs an arbitrary, possibly partial or corrupted, decoded JSON
// value into a complete Document. Wrong-shaped fields are treated as absent.
// It never fails, and Normalize(Normalize(x)) equals Normalize(x).
//
// raw is usually the result of json.Unmarshal into an any; a *Document or
// Document is accepted as well.
func Normalize(raw any) *Document {
	return Complete(Decode(raw))
}

// NormalizeJSON decodes b and normalizes it. Invalid JSON yields the default
// document.
func NormalizeJSON(b []byte) *Document {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return DefaultDocument()
	}
	return Normalize(raw)
}

// Decode converts a decoded JSON value into a Document without filling
// document-level defaults: collections and maps absent from raw stay nil.
// Item-level repairs are applied.
func Decode(raw any) *Document {
	switch v := raw.(type) {
	case *Document:
		if v == nil {
			return &Document{}
		}
		return repairItems(v.Clone())
	case Document:
		return repairItems(v.Clone())
	case json.RawMessage:
		var inner any
		if err := json.Unmarshal(v, &inner); err != nil {
			return &Document{}
		}
		return Decode(inner)
	}

	m, _ := raw.(map[string]any)
	d := &Document{}

	if items, ok := m["memories"].([]any); ok {
		d.Memories = make([]Memory, 0, len(items))
		for _, it := range items {
			if obj, ok := it.(map[string]any); ok {
				d.Memories = append(d.Memories, decodeMemory(obj))
			}
		}
	}
	if items, ok := m["sections"].([]any); ok {
		d.Sections = make([]Section, 0, len(items))
		for _, it := range items {
			if obj, ok := it.(map[string]any); ok {
				d.Sections = append(d.Sections, decodeSection(obj))
			}
		}
	}
	if items, ok := m["people"].([]any); ok {
		d.People = make([]Person, 0, len(items))
		for _, it := range items {
			if obj, ok := it.(map[string]any); ok {
				d.People = append(d.People, decodePerson(obj))
			}
		}
	}
	if items, ok := m["places"].([]any); ok {
		d.Places = make([]Place, 0, len(items))
		for _, it := range items {
			if obj, ok := it.(map[string]any); ok {
				d.Places = append(d.Places, decodePlace(obj))
			}
		}
	}
	if settings, ok := m["settings"].(map[string]any); ok {
		d.Settings = make(map[string]any, len(settings))
		for k, v := range settings {
			d.Settings[k] = v
		}
	}
	if flags, ok := m["flags"].(map[string]any); ok {
		d.Flags = make(map[string]bool, len(flags))
		for k, v := range flags {
			d.Flags[k] = truthy(v)
		}
	}
	return d
}

// Complete returns a normalized copy of d: missing collections become empty,
// missing sections fall back to the built-in set, system sections are
// guaranteed, and settings and flags are laid over their defaults.
func Complete(d *Document) *Document {
	out := repairItems(d.Clone())
	if out == nil {
		out = &Document{}
	}

	if out.Memories == nil {
		out.Memories = []Memory{}
	}
	if out.People == nil {
		out.People = []Person{}
	}
	if out.Places == nil {
		out.Places = []Place{}
	}
	if out.Sections == nil {
		out.Sections = DefaultSections()
	}
	out.Sections = EnsureSystemSections(out.Sections)

	settings := DefaultSettings()
	for k, v := range out.Settings {
		settings[k] = v
	}
	out.Settings = settings

	flags := DefaultFlags()
	for k, v := range out.Flags {
		flags[k] = v
	}
	out.Flags = flags

	return out
}

// EnsureSystemSections appends any missing built-in section. Existing
// sections keep their position and content.
func EnsureSystemSections(sections []Section) []Section {
	out := make([]Section, 0, len(sections)+3)
	seen := make(map[string]int, len(sections))
	for _, s := range sections {
		if i, ok := seen[s.ID]; ok {
			out[i] = s
			continue
		}
		seen[s.ID] = len(out)
		out = append(out, s)
	}
	for _, s := range DefaultSections() {
		if _, ok := seen[s.ID]; !ok {
			seen[s.ID] = len(out)
			out = append(out, s)
		}
	}
	return out
}

func repairItems(d *Document) *Document {
	if d == nil {
		return nil
	}
	for i := range d.Memories {
		d.Memories[i] = repairMemory(d.Memories[i])
	}
	for i := range d.Sections {
		s := &d.Sections[i]
		if s.DefaultVisibility == "" {
			s.DefaultVisibility = VisibilityPrivate
		}
		s.CreatedAt, s.UpdatedAt = crossFill(s.CreatedAt, s.UpdatedAt)
	}
	for i := range d.People {
		p := &d.People[i]
		p.CreatedAt, p.UpdatedAt = crossFill(p.CreatedAt, p.UpdatedAt)
	}
	for i := range d.Places {
		p := &d.Places[i]
		p.CreatedAt, p.UpdatedAt = crossFill(p.CreatedAt, p.UpdatedAt)
	}
	return d
}

func repairMemory(m Memory) Memory {
	if m.PeopleIDs == nil {
		m.PeopleIDs = []string{}
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	if m.Media == nil {
		m.Media = []MediaRef{}
	}
	if m.Visibility.Type == "" {
		m.Visibility.Type = VisibilityPrivate
	}
	if m.Visibility.PeopleIDs == nil {
		m.Visibility.PeopleIDs = []string{}
	}
	if m.Date == (MemoryDate{}) {
		m.Date = MemoryDate{Type: DateExact}
	}
	if m.SectionID == "" {
		m.SectionID = SectionMyLife
	}
	m.CreatedAt, m.UpdatedAt = crossFill(m.CreatedAt, m.UpdatedAt)
	return m
}

func crossFill(createdAt, updatedAt int64) (int64, int64) {
	c, u := createdAt, updatedAt
	if c == 0 {
		c = updatedAt
	}
	if u == 0 {
		u = createdAt
	}
	return c, u
}

func decodeMemory(obj map[string]any) Memory {
	m := Memory{
		ID:            idOf(obj["id"]),
		Title:         stringOf(obj["title"]),
		Body:          stringOf(obj["body"]),
		LowEnergy:     truthy(obj["lowEnergy"]),
		LowEnergyLine: stringOf(obj["lowEnergyLine"]),
		SectionID:     stringOf(obj["sectionId"]),
		PlaceID:       stringOf(obj["placeId"]),
		Source:        stringOf(obj["source"]),
		CreatedAt:     millisOf(obj["createdAt"]),
		UpdatedAt:     millisOf(obj["updatedAt"]),
	}
	m.PeopleIDs = stringsOf(obj["peopleIds"])
	m.Tags = stringsOf(obj["tags"])

	if vis, ok := obj["visibility"].(map[string]any); ok {
		m.Visibility = Visibility{
			Type:      stringOf(vis["type"]),
			PeopleIDs: stringsOf(vis["peopleIds"]),
		}
	}
	if date, ok := obj["date"].(map[string]any); ok {
		m.Date = MemoryDate{
			Type:   stringOf(date["type"]),
			Value:  stringOf(date["value"]),
			Season: stringOf(date["season"]),
			Year:   idOf(date["year"]),
		}
	}
	if media, ok := obj["media"].([]any); ok {
		m.Media = make([]MediaRef, 0, len(media))
		for _, it := range media {
			ref, ok := it.(map[string]any)
			if !ok {
				continue
			}
			m.Media = append(m.Media, MediaRef{
				ID:   idOf(ref["id"]),
				Kind: stringOf(ref["kind"]),
				Name: stringOf(ref["name"]),
				Type: stringOf(ref["type"]),
				Size: millisOf(ref["size"]),
			})
		}
	}
	return repairMemory(m)
}

func decodeSection(obj map[string]any) Section {
	s := Section{
		ID:                idOf(obj["id"]),
		Name:              stringOf(obj["name"]),
		System:            truthy(obj["system"]),
		DefaultVisibility: stringOf(obj["defaultVisibility"]),
	}
	s.CreatedAt, s.UpdatedAt = crossFill(millisOf(obj["createdAt"]), millisOf(obj["updatedAt"]))
	if s.DefaultVisibility == "" {
		s.DefaultVisibility = VisibilityPrivate
	}
	return s
}

func decodePerson(obj map[string]any) Person {
	p := Person{
		ID:   idOf(obj["id"]),
		Name: stringOf(obj["name"]),
		Note: stringOf(obj["note"]),
	}
	p.CreatedAt, p.UpdatedAt = crossFill(millisOf(obj["createdAt"]), millisOf(obj["updatedAt"]))
	return p
}

func decodePlace(obj map[string]any) Place {
	p := Place{
		ID:   idOf(obj["id"]),
		Name: stringOf(obj["name"]),
	}
	p.CreatedAt, p.UpdatedAt = crossFill(millisOf(obj["createdAt"]), millisOf(obj["updatedAt"]))
	return p
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

// idOf accepts strings and numbers; numeric ids from older data are kept
// in their shortest decimal form.
func idOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}
	return ""
}

func stringsOf(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := idOf(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func millisOf(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil {
				return 0
			}
			return int64(f)
		}
		return n
	}
	return 0
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}
