package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeCollection_RemoteNewerWins(t *testing.T) {
	local := []Person{{ID: "1", Name: "local", UpdatedAt: 10}}
	remote := []Person{{ID: "1", Name: "remote", UpdatedAt: 20}}

	got := MergeCollection(local, remote)
	require.Len(t, got, 1)
	assert.Equal(t, "remote", got[0].Name)

	// Swapping sides still selects the higher timestamp.
	got = MergeCollection(remote, local)
	require.Len(t, got, 1)
	assert.Equal(t, "remote", got[0].Name)
}

func TestMergeCollection_TieKeepsLocal(t *testing.T) {
	local := []Memory{{ID: "1", UpdatedAt: 5, Body: "L"}}
	remote := []Memory{{ID: "1", UpdatedAt: 5, Body: "R"}}

	got := MergeCollection(local, remote)
	require.Len(t, got, 1)
	assert.Equal(t, "L", got[0].Body)
}

func TestMergeCollection_FallsBackToCreatedAt(t *testing.T) {
	local := []Place{{ID: "p", Name: "old", CreatedAt: 3}}
	remote := []Place{{ID: "p", Name: "new", CreatedAt: 4}}

	got := MergeCollection(local, remote)
	assert.Equal(t, "new", got[0].Name)

	got = MergeCollection([]Place{{ID: "p", Name: "stamped", UpdatedAt: 1}}, []Place{{ID: "p", Name: "zero"}})
	assert.Equal(t, "stamped", got[0].Name)
}

func TestMergeCollection_OrderAndNewIDs(t *testing.T) {
	local := []Person{{ID: "a"}, {ID: "b"}}
	remote := []Person{{ID: "c"}, {ID: "b", UpdatedAt: 9, Name: "b2"}, {ID: "d"}}

	got := MergeCollection(local, remote)

	ids := []string{}
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
	assert.Equal(t, "b2", got[1].Name)
}

func TestMergeCollection_DuplicatesAndMissingIDs(t *testing.T) {
	local := []Person{{ID: "a", Name: "first"}, {ID: ""}, {ID: "a", Name: "second"}}
	remote := []Person{{ID: "", Name: "anon"}}

	got := MergeCollection(local, remote)
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].Name)
}

func TestMergeCollection_EmptyInputs(t *testing.T) {
	assert.Empty(t, MergeCollection[Memory](nil, nil))
	assert.Len(t, MergeCollection(nil, []Memory{{ID: "x"}}), 1)
}

func TestMergeCollection_NeverDropsItems(t *testing.T) {
	local := []Memory{{ID: "l1", UpdatedAt: 1}, {ID: "shared", UpdatedAt: 50}}
	remote := []Memory{{ID: "r1", UpdatedAt: 1}, {ID: "shared", UpdatedAt: 40}}

	got := MergeCollection(local, remote)
	require.Len(t, got, 3)
	assert.Equal(t, int64(50), got[1].UpdatedAt)
}

func TestMergeRemoteState_SettingsLocalWins(t *testing.T) {
	local := DefaultDocument()
	local.Sections = DefaultSections()[:2]
	remote := &Document{Settings: map[string]any{SettingPromptStyle: "quiet", SettingRevealCalendar: true, "remoteOnly": "x"}}
	delete(local.Settings, SettingRevealCalendar)

	merged := MergeRemoteState(local, remote)

	assert.Equal(t, "gentle", merged.Settings[SettingPromptStyle])
	assert.Equal(t, true, merged.Settings[SettingRevealCalendar])
	assert.Equal(t, "x", merged.Settings["remoteOnly"])
}

func TestMergeRemoteState_SystemSectionsAlwaysPresent(t *testing.T) {
	local := &Document{Sections: []Section{}}
	remote := &Document{Sections: []Section{{ID: "sec_custom", Name: "Custom"}}}

	merged := MergeRemoteState(local, remote)

	ids := map[string]bool{}
	for _, s := range merged.Sections {
		ids[s.ID] = true
	}
	for _, s := range DefaultSections() {
		assert.True(t, ids[s.ID], "missing %s", s.ID)
	}
	assert.True(t, ids["sec_custom"])
}

func TestMergeRemoteState_FlagsStayLocal(t *testing.T) {
	local := &Document{Flags: map[string]bool{"tagsNudgeShown": false}}
	remote := &Document{Flags: map[string]bool{"tagsNudgeShown": true, "other": true}}

	merged := MergeRemoteState(local, remote)
	assert.Equal(t, map[string]bool{"tagsNudgeShown": false}, merged.Flags)
}

func TestMergeRemoteState_DoesNotMutateInputs(t *testing.T) {
	local := DefaultDocument()
	local.Memories = []Memory{{ID: "m1", UpdatedAt: 1, Body: "old"}}
	remote := &Document{Memories: []Memory{{ID: "m1", UpdatedAt: 2, Body: "new"}}}

	merged := MergeRemoteState(local, remote)

	assert.Equal(t, "new", merged.Memories[0].Body)
	assert.Equal(t, "old", local.Memories[0].Body)
}

func TestMergeRemoteState_NilRemote(t *testing.T) {
	local := DefaultDocument()
	local.People = []Person{{ID: "p"}}

	merged := MergeRemoteState(local, nil)
	assert.Len(t, merged.People, 1)
	assert.Len(t, merged.Sections, 3)
}

func TestMergeRemoteState_EndToEndWithNormalize(t *testing.T) {
	local := Normalize(decodeRaw(t, `{"memories": [{"id": "m1", "updatedAt": 1000}]}`))
	remote := Decode(decodeRaw(t, `{"memories": [{"id": "m1", "updatedAt": 2000, "body": "changed"}]}`))

	merged := Normalize(MergeRemoteState(local, remote))

	require.Len(t, merged.Memories, 1)
	assert.Equal(t, "changed", merged.Memories[0].Body)
	assert.Equal(t, int64(2000), merged.Memories[0].UpdatedAt)
}
