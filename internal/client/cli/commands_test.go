package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/everkeep/internal/client/services"
	"github.com/dmitrijs2005/everkeep/internal/client/syncer"
	"github.com/dmitrijs2005/everkeep/internal/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    journal.MemoryDate
		wantErr bool
	}{
		{in: "", want: journal.MemoryDate{Type: journal.DateUnknown}},
		{in: "2024-01-02", want: journal.MemoryDate{Type: journal.DateExact, Value: "2024-01-02"}},
		{in: "2024-01", want: journal.MemoryDate{Type: journal.DateMonth, Value: "2024-01"}},
		{in: "Spring 2020", want: journal.MemoryDate{Type: journal.DateSeason, Season: "spring", Year: "2020"}},
		{in: "spring twenty", wantErr: true},
		{in: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDate(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveHelpers(t *testing.T) {
	sections := journal.DefaultSections()

	s, err := resolveSection("2", sections)
	require.NoError(t, err)
	assert.Equal(t, journal.SectionWhereItBegan, s.ID)

	s, err = resolveSection("private memories", sections)
	require.NoError(t, err)
	assert.Equal(t, journal.SectionPrivateMemories, s.ID)

	_, err = resolveSection("9", sections)
	require.Error(t, err)

	people := []journal.Person{{ID: "person_1", Name: "Anna"}, {ID: "person_2", Name: "Ben"}}
	ids, err := resolvePeople("anna, person_2", people)
	require.NoError(t, err)
	assert.Equal(t, []string{"person_1", "person_2"}, ids)

	_, err = resolvePeople("Carl", people)
	require.ErrorContains(t, err, "unknown person")

	v, err := normalizeVisibility("family", journal.VisibilityPrivate)
	require.NoError(t, err)
	assert.Equal(t, journal.VisibilityFamily, v)
	_, err = normalizeVisibility("public", journal.VisibilityPrivate)
	require.Error(t, err)

	kind, ct := mediaKind("photo.JPG")
	assert.Equal(t, "photo", kind)
	assert.Equal(t, "image/jpeg", ct)
	kind, ct = mediaKind("notes.unknownext")
	assert.Equal(t, "file", kind)
	assert.Equal(t, "application/octet-stream", ct)
}

const beachDayInput = "Beach day\n" + // title
	"Sand everywhere\n\n" + // body
	"\n" + // section
	"summer, sea\n" + // tags
	"Jurmala\n" + // place
	"\n" + // people
	"\n" + // visibility
	"2024-07-14\n" + // date
	"\n" // attachments

func TestAddMemory_Interactive(t *testing.T) {
	a, out, _ := newTestApp(t, beachDayInput)
	ctx := context.Background()

	require.NoError(t, a.AddMemory(ctx))
	assert.Contains(t, out.String(), "Memory saved.")

	ms := a.journal.Memories(journal.Filters{})
	require.Len(t, ms, 1)
	m := ms[0]
	assert.Equal(t, "Beach day", m.Title)
	assert.Equal(t, "Sand everywhere", m.Body)
	assert.Equal(t, []string{"summer", "sea"}, m.Tags)
	assert.Equal(t, journal.MemoryDate{Type: journal.DateExact, Value: "2024-07-14"}, m.Date)
	assert.Equal(t, "Jurmala", journal.PlaceName(a.journal.Snapshot().Places, m.PlaceID))
}

func TestAddMemory_WithAttachment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shell.png")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o600))

	input := "\n" + "\n" + "found a shell\n" + "\n\n\n\n\n\n" + path + "\n\n"
	a, _, _ := newTestApp(t, input)
	ctx := context.Background()

	require.NoError(t, a.AddMemory(ctx))

	ms := a.journal.Memories(journal.Filters{})
	require.Len(t, ms, 1)
	assert.True(t, ms[0].LowEnergy)
	assert.Equal(t, "found a shell", ms[0].LowEnergyLine)
	require.Len(t, ms[0].Media, 1)
	assert.Equal(t, "photo", ms[0].Media[0].Kind)
	assert.Equal(t, "shell.png", ms[0].Media[0].Name)

	blob, err := a.journal.Media(ctx, ms[0].Media[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), blob.Data)
}

func TestAddMemory_FailureKeepsDraft(t *testing.T) {
	// everything empty except the tags
	input := "\n" + "\n" + "\n" + "\n" + "keepme\n" + "\n\n\n\n\n"
	a, out, _ := newTestApp(t, input)
	ctx := context.Background()

	err := a.AddMemory(ctx)
	require.ErrorIs(t, err, services.ErrEmptyMemory)
	assert.Contains(t, out.String(), "Draft saved")

	d, err := a.journal.LoadDraft(ctx)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "keepme", d.Tags)
}

func TestAddMemory_ResumesDraft(t *testing.T) {
	a, _, _ := newTestApp(t, "y\n")
	ctx := context.Background()
	require.NoError(t, a.journal.SaveDraft(ctx, services.Draft{Body: "from draft", Tags: "a"}))

	require.NoError(t, a.AddMemory(ctx))

	ms := a.journal.Memories(journal.Filters{})
	require.Len(t, ms, 1)
	assert.Equal(t, "from draft", ms[0].Body)

	d, err := a.journal.LoadDraft(ctx)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestListShowDelete(t *testing.T) {
	a, out, _ := newTestApp(t, "y\n")
	ctx := context.Background()

	p, err := a.journal.AddPerson(ctx, "Anna", "")
	require.NoError(t, err)
	m, err := a.journal.AddMemory(ctx, services.MemoryInput{
		Title:     "First day at school",
		Body:      "Big backpack",
		Tags:      "school",
		PeopleIDs: []string{p.ID},
		PlaceName: "Riga",
		Date:      journal.MemoryDate{Type: journal.DateMonth, Value: "1999-09"},
	})
	require.NoError(t, err)

	require.NoError(t, a.List(ctx, "backpack"))
	assert.Contains(t, out.String(), m.ID)
	assert.Contains(t, out.String(), "September 1999")
	assert.Contains(t, out.String(), "#school")

	out.Reset()
	require.NoError(t, a.List(ctx, "nothing matches"))
	assert.Contains(t, out.String(), "No memories yet.")

	out.Reset()
	require.NoError(t, a.Show(ctx, m.ID))
	for _, want := range []string{"First day at school", "Section:    My Life", "People:     Anna", "Place:      Riga", "Big backpack"} {
		assert.Contains(t, out.String(), want)
	}

	out.Reset()
	require.NoError(t, a.Delete(ctx, m.ID))
	assert.Contains(t, out.String(), "Memory deleted.")
	assert.Empty(t, a.journal.Memories(journal.Filters{}))

	require.Error(t, a.Show(ctx, m.ID))
}

func TestDelete_DeclinedKeepsMemory(t *testing.T) {
	a, _, _ := newTestApp(t, "n\n")
	ctx := context.Background()

	m, err := a.journal.AddMemory(ctx, services.MemoryInput{Body: "keep"})
	require.NoError(t, err)

	require.NoError(t, a.Delete(ctx, m.ID))
	assert.Len(t, a.journal.Memories(journal.Filters{}), 1)
}

func TestAddPersonSectionAndTags(t *testing.T) {
	a, out, _ := newTestApp(t, "Grandma\nloves tea\nTravel\nfamily\n")
	ctx := context.Background()

	require.NoError(t, a.AddPerson(ctx))
	require.NoError(t, a.AddSection(ctx))

	doc := a.journal.Snapshot()
	require.Len(t, doc.People, 1)
	assert.Equal(t, "loves tea", doc.People[0].Note)
	require.Len(t, doc.Sections, 4)
	assert.Equal(t, journal.VisibilityFamily, doc.Sections[3].DefaultVisibility)

	out.Reset()
	require.NoError(t, a.Tags(ctx))
	assert.Contains(t, out.String(), "No tags yet.")
}

func TestSync_Lifecycle(t *testing.T) {
	a, out, fc := newTestApp(t, "")
	ctx := context.Background()

	err := a.Sync(ctx, "now")
	require.ErrorIs(t, err, syncer.ErrSyncDisabled)
	assert.Contains(t, out.String(), "Cloud backup is off")

	require.NoError(t, a.Sync(ctx, "on"))
	require.Eventually(t, func() bool {
		restores, _ := fc.counts()
		st := a.syncer.Status()
		return restores == 1 && !st.InFlight
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, a.Sync(ctx, "now"))
	_, backups := fc.counts()
	assert.Equal(t, 1, backups)

	out.Reset()
	require.NoError(t, a.Sync(ctx, "status"))
	assert.Contains(t, out.String(), "Status:      Backed up")
	assert.Contains(t, out.String(), "Last backup:")

	fc.setPingErr(errors.New("down"))
	err = a.Sync(ctx, "now")
	require.ErrorIs(t, err, syncer.ErrOffline)

	require.NoError(t, a.Sync(ctx, "off"))
	assert.False(t, a.journal.CloudSyncEnabled())

	require.Error(t, a.Sync(ctx, "sideways"))
}

func TestSyncNow_RestoresBeforeBackup(t *testing.T) {
	a, _, fc := newTestApp(t, "")
	ctx := context.Background()

	// switch cloud sync on without going through the scheduler
	a.journal.AttachSyncer(nil)
	require.NoError(t, a.journal.SetSetting(ctx, journal.SettingCloudSync, true))

	require.NoError(t, a.syncNow(ctx))
	restores, backups := fc.counts()
	assert.Equal(t, 1, restores)
	assert.Equal(t, 1, backups)
}

func TestKeyAndRotate(t *testing.T) {
	a, out, _ := newTestApp(t, "")
	ctx := context.Background()

	require.NoError(t, a.Key(ctx))
	first := strings.TrimSpace(out.String())
	assert.Len(t, first, 36)

	a.assumeYes = true
	out.Reset()
	require.NoError(t, a.RotateKey(ctx))
	assert.Contains(t, out.String(), "Backup key rotated")
	assert.NotContains(t, out.String(), first)
	assert.True(t, a.syncer.Status().RestoreAttempted)
}

func TestExportAndSet(t *testing.T) {
	a, out, _ := newTestApp(t, "")
	ctx := context.Background()

	_, err := a.journal.AddMemory(ctx, services.MemoryInput{Body: "x"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, a.Export(ctx, path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Contains(t, payload, "data")

	out.Reset()
	require.NoError(t, a.Export(ctx, "-"))
	assert.Contains(t, out.String(), `"exportedAt"`)

	require.NoError(t, a.Set(ctx, journal.SettingPromptStyle, "quiet"))
	require.NoError(t, a.Set(ctx, journal.SettingRevealTags, "true"))
	assert.Equal(t, "quiet", a.journal.Settings()[journal.SettingPromptStyle])
	assert.Equal(t, true, a.journal.Settings()[journal.SettingRevealTags])

	require.ErrorIs(t, a.Set(ctx, "theme", "dark"), services.ErrUnknownSetting)
}
