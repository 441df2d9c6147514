package journal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRaw(t *testing.T, s string) any {
	t.Helper()
	var raw any
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return raw
}

func roundTrip(t *testing.T, d *Document) any {
	t.Helper()
	b, err := json.Marshal(d)
	require.NoError(t, err)
	return decodeRaw(t, string(b))
}

func TestNormalize_FillsMemoryDefaults(t *testing.T) {
	raw := decodeRaw(t, `{
		"sections": [{"id": "sec_custom", "name": "Custom", "system": 0}],
		"memories": [{"id": "mem_1", "createdAt": 1}]
	}`)

	doc := Normalize(raw)

	require.Len(t, doc.Memories, 1)
	m := doc.Memories[0]
	assert.Equal(t, []string{}, m.PeopleIDs)
	assert.Equal(t, []string{}, m.Tags)
	assert.Equal(t, []MediaRef{}, m.Media)
	assert.Equal(t, Visibility{Type: VisibilityPrivate, PeopleIDs: []string{}}, m.Visibility)
	assert.Equal(t, MemoryDate{Type: DateExact}, m.Date)
	assert.Equal(t, SectionMyLife, m.SectionID)
	assert.Equal(t, int64(1), m.UpdatedAt)

	assert.Equal(t, "gentle", doc.Settings[SettingPromptStyle])
	assert.False(t, doc.Flags["timelineNudgeShown"])

	require.NotEmpty(t, doc.Sections)
	assert.Equal(t, "sec_custom", doc.Sections[0].ID)
	assert.False(t, doc.Sections[0].System)
	assert.Equal(t, VisibilityPrivate, doc.Sections[0].DefaultVisibility)
}

func TestNormalize_EmptyInputYieldsDefaults(t *testing.T) {
	for _, in := range []any{nil, map[string]any{}, "garbage", 42.0, []any{1, 2}} {
		doc := Normalize(in)
		assert.Equal(t, DefaultDocument(), doc)
	}
}

func TestNormalize_WrongShapesTreatedAsAbsent(t *testing.T) {
	raw := decodeRaw(t, `{
		"memories": "nope",
		"people": [1, null, {"id": "p1", "name": "Alex", "updatedAt": 7}],
		"places": {"id": "x"},
		"settings": ["a"],
		"flags": {"tagsNudgeShown": 1},
		"sections": [{"id": "s1", "createdAt": "yesterday"}]
	}`)

	doc := Normalize(raw)

	assert.Empty(t, doc.Memories)
	require.Len(t, doc.People, 1)
	assert.Equal(t, Person{ID: "p1", Name: "Alex", CreatedAt: 7, UpdatedAt: 7}, doc.People[0])
	assert.Empty(t, doc.Places)
	assert.Equal(t, DefaultSettings(), doc.Settings)
	assert.True(t, doc.Flags["tagsNudgeShown"])
	assert.Equal(t, int64(0), doc.Sections[0].CreatedAt)
}

func TestNormalize_SettingsOverDefaults(t *testing.T) {
	doc := Normalize(decodeRaw(t, `{"settings": {"cloudSync": true, "futureSetting": "x"}}`))

	assert.Equal(t, true, doc.Settings[SettingCloudSync])
	assert.Equal(t, "x", doc.Settings["futureSetting"])
	assert.Equal(t, false, doc.Settings[SettingRevealMap])
	assert.True(t, doc.CloudSyncEnabled())
}

func TestNormalize_TimestampCrossFill(t *testing.T) {
	doc := Normalize(decodeRaw(t, `{
		"places": [{"id": "a", "createdAt": 5}, {"id": "b", "updatedAt": 9}, {"id": "c"}]
	}`))

	require.Len(t, doc.Places, 3)
	assert.Equal(t, [2]int64{5, 5}, [2]int64{doc.Places[0].CreatedAt, doc.Places[0].UpdatedAt})
	assert.Equal(t, [2]int64{9, 9}, [2]int64{doc.Places[1].CreatedAt, doc.Places[1].UpdatedAt})
	assert.Equal(t, [2]int64{0, 0}, [2]int64{doc.Places[2].CreatedAt, doc.Places[2].UpdatedAt})
}

func TestNormalize_MemoryTimestampCrossFill(t *testing.T) {
	doc := Normalize(decodeRaw(t, `{
		"memories": [{"id": "a", "createdAt": 7}, {"id": "b", "updatedAt": 9}]
	}`))

	require.Len(t, doc.Memories, 2)
	assert.Equal(t, [2]int64{7, 7}, [2]int64{doc.Memories[0].CreatedAt, doc.Memories[0].UpdatedAt})
	assert.Equal(t, [2]int64{9, 9}, [2]int64{doc.Memories[1].CreatedAt, doc.Memories[1].UpdatedAt})

	typed := Normalize(&Document{Memories: []Memory{{ID: "c", CreatedAt: 3}}})
	require.Len(t, typed.Memories, 1)
	assert.Equal(t, int64(3), typed.Memories[0].UpdatedAt)
}

func TestNormalize_KeepsSeasonAndNumericYear(t *testing.T) {
	doc := Normalize(decodeRaw(t, `{"memories": [{"id": 3, "date": {"type": "season", "season": "spring", "year": 2020}}]}`))

	require.Len(t, doc.Memories, 1)
	assert.Equal(t, "3", doc.Memories[0].ID)
	assert.Equal(t, MemoryDate{Type: DateSeason, Season: "spring", Year: "2020"}, doc.Memories[0].Date)
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		`{}`,
		`{"memories": [{"id": "m1", "updatedAt": 4, "tags": ["a"], "media": [{"id": "x", "size": 3}]}]}`,
		`{"sections": [], "settings": {"promptStyle": "quiet"}, "flags": {"x": true}}`,
		`{"people": [{"id": "p", "createdAt": 2}], "places": [{"id": "pl", "name": "Paris"}]}`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			once := Normalize(decodeRaw(t, in))
			twice := Normalize(once)
			assert.Equal(t, once, twice)

			viaJSON := Normalize(roundTrip(t, once))
			assert.Equal(t, once, viaJSON)
		})
	}
}

func TestNormalizeJSON_InvalidInput(t *testing.T) {
	assert.Equal(t, DefaultDocument(), NormalizeJSON([]byte("{not json")))
}

func TestEnsureSystemSections(t *testing.T) {
	custom := Section{ID: "sec_custom", Name: "Custom"}
	mine := Section{ID: SectionWhereItBegan, Name: "Renamed", System: true, UpdatedAt: 10}

	got := EnsureSystemSections([]Section{custom, mine})

	ids := make([]string, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"sec_custom", SectionWhereItBegan, SectionMyLife, SectionPrivateMemories}, ids)
	assert.Equal(t, "Renamed", got[1].Name)
}

func TestEnsureSystemSections_NoDuplicates(t *testing.T) {
	got := EnsureSystemSections(append(DefaultSections(), DefaultSections()...))
	assert.Len(t, got, 3)
}

func TestDocument_CloneIsDeep(t *testing.T) {
	d := Normalize(decodeRaw(t, `{"memories": [{"id": "m1", "tags": ["a"]}]}`))
	c := d.Clone()

	c.Memories[0].Tags[0] = "changed"
	c.Settings[SettingPromptStyle] = "quiet"

	assert.Equal(t, "a", d.Memories[0].Tags[0])
	assert.Equal(t, "gentle", d.Settings[SettingPromptStyle])
}
