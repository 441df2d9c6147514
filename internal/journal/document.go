// Package journal holds the everkeep document model and the pure functions
// that operate on it: normalization, merging, tags, dates and filtering.
// Nothing in this package performs I/O.
package journal

// Visibility types.
const (
	VisibilityPrivate  = "Private"
	VisibilityFamily   = "Family"
	VisibilitySelected = "Selected"
)

// Date types.
const (
	DateExact   = "exact"
	DateMonth   = "month"
	DateSeason  = "season"
	DateUnknown = "unknown"
)

// Document is the whole synchronized unit.
type Document struct {
	Memories []Memory        `json:"memories"`
	Sections []Section       `json:"sections"`
	People   []Person        `json:"people"`
	Places   []Place         `json:"places"`
	Settings map[string]any  `json:"settings"`
	Flags    map[string]bool `json:"flags"`
}

type Visibility struct {
	Type      string   `json:"type"`
	PeopleIDs []string `json:"peopleIds"`
}

// MemoryDate is a tagged variant selected by Type.
type MemoryDate struct {
	Type   string `json:"type"`
	Value  string `json:"value,omitempty"`
	Season string `json:"season,omitempty"`
	Year   string `json:"year,omitempty"`
}

// MediaRef points at a blob held by the media store. The document never owns
// the blob itself.
type MediaRef struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type Memory struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	LowEnergy     bool       `json:"lowEnergy"`
	LowEnergyLine string     `json:"lowEnergyLine"`
	SectionID     string     `json:"sectionId"`
	PeopleIDs     []string   `json:"peopleIds"`
	PlaceID       string     `json:"placeId,omitempty"`
	Tags          []string   `json:"tags"`
	Visibility    Visibility `json:"visibility"`
	Date          MemoryDate `json:"date"`
	Media         []MediaRef `json:"media"`
	Source        string     `json:"source,omitempty"`
	CreatedAt     int64      `json:"createdAt"`
	UpdatedAt     int64      `json:"updatedAt"`
}

type Section struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	System            bool   `json:"system"`
	DefaultVisibility string `json:"defaultVisibility"`
	CreatedAt         int64  `json:"createdAt"`
	UpdatedAt         int64  `json:"updatedAt"`
}

type Person struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Note      string `json:"note,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

type Place struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Entity is implemented by every collection item the merge engine handles.
type Entity interface {
	EntityID() string
	// Timestamp is updatedAt, falling back to createdAt, falling back to 0.
	Timestamp() int64
}

func effective(updatedAt, createdAt int64) int64 {
	if updatedAt != 0 {
		return updatedAt
	}
	return createdAt
}

func (m Memory) EntityID() string  { return m.ID }
func (m Memory) Timestamp() int64  { return effective(m.UpdatedAt, m.CreatedAt) }
func (s Section) EntityID() string { return s.ID }
func (s Section) Timestamp() int64 { return effective(s.UpdatedAt, s.CreatedAt) }
func (p Person) EntityID() string  { return p.ID }
func (p Person) Timestamp() int64  { return effective(p.UpdatedAt, p.CreatedAt) }
func (p Place) EntityID() string   { return p.ID }
func (p Place) Timestamp() int64   { return effective(p.UpdatedAt, p.CreatedAt) }

// CloudSyncEnabled reports the cloudSync setting.
func (d *Document) CloudSyncEnabled() bool {
	v, _ := d.Settings[SettingCloudSync].(bool)
	return v
}

// FindMemory returns the index of the memory with id, or -1.
func (d *Document) FindMemory(id string) int {
	for i := range d.Memories {
		if d.Memories[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Sections: cloneSlice(d.Sections),
		People:   cloneSlice(d.People),
		Places:   cloneSlice(d.Places),
	}
	if d.Memories != nil {
		out.Memories = make([]Memory, len(d.Memories))
		for i, m := range d.Memories {
			out.Memories[i] = m.clone()
		}
	}
	if d.Settings != nil {
		out.Settings = make(map[string]any, len(d.Settings))
		for k, v := range d.Settings {
			out.Settings[k] = v
		}
	}
	if d.Flags != nil {
		out.Flags = make(map[string]bool, len(d.Flags))
		for k, v := range d.Flags {
			out.Flags[k] = v
		}
	}
	return out
}

func (m Memory) clone() Memory {
	c := m
	c.PeopleIDs = cloneSlice(m.PeopleIDs)
	c.Tags = cloneSlice(m.Tags)
	c.Visibility.PeopleIDs = cloneSlice(m.Visibility.PeopleIDs)
	c.Media = cloneSlice(m.Media)
	return c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}
