package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/everkeep/internal/client/services"
	"github.com/dmitrijs2005/everkeep/internal/client/syncer"
	"github.com/dmitrijs2005/everkeep/internal/journal"
)

var seasons = []string{"spring", "summer", "autumn", "winter"}

// parseDate accepts "2024-01-02", "2024-01", "spring 2020" or an empty
// string for an unknown date.
func parseDate(s string) (journal.MemoryDate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return journal.MemoryDate{Type: journal.DateUnknown}, nil
	}
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return journal.MemoryDate{Type: journal.DateExact, Value: s}, nil
	}
	if _, err := time.Parse("2006-01", s); err == nil {
		return journal.MemoryDate{Type: journal.DateMonth, Value: s}, nil
	}
	if f := strings.Fields(strings.ToLower(s)); len(f) == 2 {
		for _, season := range seasons {
			if f[0] == season {
				if _, err := strconv.Atoi(f[1]); err != nil {
					break
				}
				return journal.MemoryDate{Type: journal.DateSeason, Season: season, Year: f[1]}, nil
			}
		}
	}
	return journal.MemoryDate{}, fmt.Errorf("unrecognised date %q (use 2024-01-02, 2024-01 or \"spring 2020\")", s)
}

// resolvePeople maps comma separated names or ids to person ids.
func resolvePeople(raw string, people []journal.Person) ([]string, error) {
	ids := []string{}
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		found := ""
		for _, p := range people {
			if p.ID == name || strings.EqualFold(p.Name, name) {
				found = p.ID
				break
			}
		}
		if found == "" {
			return nil, fmt.Errorf("unknown person %q (add them with 'person' first)", name)
		}
		ids = append(ids, found)
	}
	return ids, nil
}

// resolveSection accepts a 1-based position, an id or a name. Empty input
// picks the first section.
func resolveSection(raw string, sections []journal.Section) (journal.Section, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return sections[0], nil
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= len(sections) {
		return sections[n-1], nil
	}
	for _, s := range sections {
		if s.ID == raw || strings.EqualFold(s.Name, raw) {
			return s, nil
		}
	}
	return journal.Section{}, fmt.Errorf("unknown section %q", raw)
}

func normalizeVisibility(raw, def string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return def, nil
	case "private":
		return journal.VisibilityPrivate, nil
	case "family":
		return journal.VisibilityFamily, nil
	case "selected":
		return journal.VisibilitySelected, nil
	}
	return "", fmt.Errorf("visibility must be Private, Family or Selected")
}

func mediaKind(path string) (kind, contentType string) {
	contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	switch {
	case strings.HasPrefix(contentType, "image/"):
		kind = "photo"
	case strings.HasPrefix(contentType, "audio/"):
		kind = "audio"
	default:
		kind = "file"
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return kind, contentType
}

func draftInput(d *services.Draft) services.MemoryInput {
	return services.MemoryInput{
		Title:         d.Title,
		Body:          d.Body,
		LowEnergy:     d.LowEnergy,
		LowEnergyLine: d.LowEnergyLine,
		SectionID:     d.SectionID,
		Visibility:    d.Visibility,
		Date:          d.Date,
		Tags:          d.Tags,
		PlaceName:     d.PlaceName,
		Media:         d.Media,
	}
}

func inputDraft(in services.MemoryInput) services.Draft {
	return services.Draft{
		Title:         in.Title,
		Body:          in.Body,
		LowEnergy:     in.LowEnergy,
		LowEnergyLine: in.LowEnergyLine,
		SectionID:     in.SectionID,
		Visibility:    in.Visibility,
		Date:          in.Date,
		Tags:          in.Tags,
		PlaceName:     in.PlaceName,
		Media:         in.Media,
	}
}

func (a *App) ask(prompt string) (string, error) {
	return GetSimpleText(a.reader, prompt, a.out)
}

func (a *App) confirm(prompt string) (bool, error) {
	if a.assumeYes {
		return true, nil
	}
	return Confirm(a.reader, prompt, a.out)
}

// promptMemory collects a memory from the user. cur, when set, supplies the
// values kept on an empty answer.
func (a *App) promptMemory(ctx context.Context, cur *services.MemoryInput) (services.MemoryInput, error) {
	doc := a.journal.Snapshot()
	in := services.MemoryInput{Date: journal.MemoryDate{Type: journal.DateUnknown}}
	if cur != nil {
		in = *cur
	}

	keep := func(prompt, current string) (string, error) {
		if cur != nil && current != "" {
			prompt = fmt.Sprintf("%s [%s]", prompt, current)
		}
		v, err := a.ask(prompt)
		if err != nil || v == "" {
			return current, err
		}
		return v, nil
	}

	var err error
	if in.Title, err = keep("Title (optional)", in.Title); err != nil {
		return in, err
	}
	body, err := GetMultiline(a.reader, "What do you remember?", a.out)
	if err != nil {
		return in, err
	}
	if body != "" || cur == nil {
		in.Body = body
	}
	if in.Body == "" {
		line, err := keep("Low-energy line (one sentence is enough)", in.LowEnergyLine)
		if err != nil {
			return in, err
		}
		in.LowEnergyLine = line
		in.LowEnergy = line != ""
	}

	for i, s := range doc.Sections {
		fmt.Fprintf(a.out, "  %d) %s\n", i+1, s.Name)
	}
	raw, err := a.ask("Section (number or name, Enter for the first)")
	if err != nil {
		return in, err
	}
	sec := doc.Sections[0]
	if raw != "" || in.SectionID == "" {
		if sec, err = resolveSection(raw, doc.Sections); err != nil {
			return in, err
		}
		in.SectionID = sec.ID
	}

	if in.Tags, err = keep("Tags (comma separated)", in.Tags); err != nil {
		return in, err
	}
	if in.PlaceName, err = keep("Place", in.PlaceName); err != nil {
		return in, err
	}

	if raw, err = a.ask("People in this memory (comma separated names)"); err != nil {
		return in, err
	}
	if raw != "" {
		if in.PeopleIDs, err = resolvePeople(raw, doc.People); err != nil {
			return in, err
		}
	}

	def := in.Visibility
	if def == "" {
		def = sec.DefaultVisibility
	}
	if raw, err = a.ask(fmt.Sprintf("Visibility: Private, Family or Selected [%s]", def)); err != nil {
		return in, err
	}
	if in.Visibility, err = normalizeVisibility(raw, def); err != nil {
		return in, err
	}
	if in.Visibility == journal.VisibilitySelected {
		if raw, err = a.ask("Share with (comma separated names)"); err != nil {
			return in, err
		}
		if raw != "" || cur == nil {
			if in.SelectedPeople, err = resolvePeople(raw, doc.People); err != nil {
				return in, err
			}
		}
	}

	if raw, err = a.ask("Date (2024-01-02, 2024-01, \"spring 2020\", Enter if unknown)"); err != nil {
		return in, err
	}
	if raw != "" || cur == nil {
		if in.Date, err = parseDate(raw); err != nil {
			return in, err
		}
	}

	paths, err := GetList(a.reader, "Attach files (one path per line)", a.out)
	if err != nil {
		return in, err
	}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return in, fmt.Errorf("read %s: %w", p, err)
		}
		kind, ct := mediaKind(p)
		ref, err := a.journal.AttachMedia(ctx, data, kind, filepath.Base(p), ct)
		if err != nil {
			return in, err
		}
		in.Media = append(in.Media, ref)
	}
	return in, nil
}

func (a *App) AddMemory(ctx context.Context) error {
	var in services.MemoryInput

	d, err := a.journal.LoadDraft(ctx)
	if err != nil {
		return a.report(err)
	}
	resume := false
	if d != nil {
		if resume, err = Confirm(a.reader, "Resume the saved draft?", a.out); err != nil {
			return err
		}
	}

	if resume {
		in = draftInput(d)
	} else if in, err = a.promptMemory(ctx, nil); err != nil {
		return a.report(err)
	}

	m, err := a.journal.AddMemory(ctx, in)
	if err != nil {
		if derr := a.journal.SaveDraft(ctx, inputDraft(in)); derr != nil {
			a.logger.Warn(ctx, "failed to save draft", "error", derr)
		} else {
			fmt.Fprintln(a.out, "Draft saved, run 'add' again to finish it.")
		}
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Memory saved. (%s)\n", m.ID)
	return nil
}

func (a *App) EditMemory(ctx context.Context, id string) error {
	m, err := a.journal.Memory(id)
	if err != nil {
		return a.report(err)
	}
	doc := a.journal.Snapshot()

	cur := services.MemoryInput{
		Title:          m.Title,
		Body:           m.Body,
		LowEnergy:      m.LowEnergy,
		LowEnergyLine:  m.LowEnergyLine,
		SectionID:      m.SectionID,
		PeopleIDs:      m.PeopleIDs,
		PlaceName:      journal.PlaceName(doc.Places, m.PlaceID),
		Tags:           strings.Join(m.Tags, ", "),
		Visibility:     m.Visibility.Type,
		SelectedPeople: m.Visibility.PeopleIDs,
		Date:           m.Date,
		Media:          m.Media,
		Source:         m.Source,
	}

	in, err := a.promptMemory(ctx, &cur)
	if err != nil {
		return a.report(err)
	}
	if _, err := a.journal.UpdateMemory(ctx, id, in); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Memory saved.")
	return nil
}

func memoryHeadline(m journal.Memory) string {
	for _, s := range []string{m.Title, m.Body, m.LowEnergyLine} {
		if s == "" {
			continue
		}
		line, _, _ := strings.Cut(s, "\n")
		if len(line) > 60 {
			return line[:57] + "..."
		}
		return line
	}
	return "Untitled memory"
}

func (a *App) List(ctx context.Context, query string) error {
	return a.listMemories(journal.Filters{Search: query})
}

func (a *App) listMemories(f journal.Filters) error {
	ms := a.journal.Memories(f)
	if len(ms) == 0 {
		fmt.Fprintln(a.out, "No memories yet.")
		return nil
	}
	for _, m := range ms {
		tags := ""
		if len(m.Tags) > 0 {
			tags = "  #" + strings.Join(m.Tags, " #")
		}
		fmt.Fprintf(a.out, "%s  %-16s %s%s\n", m.ID, journal.DateLabel(m), memoryHeadline(m), tags)
	}
	return nil
}

func (a *App) Show(ctx context.Context, id string) error {
	m, err := a.journal.Memory(id)
	if err != nil {
		return a.report(err)
	}
	doc := a.journal.Snapshot()

	fmt.Fprintln(a.out, memoryHeadline(m))
	fmt.Fprintf(a.out, "Date:       %s\n", journal.DateLabel(m))
	for _, s := range doc.Sections {
		if s.ID == m.SectionID {
			fmt.Fprintf(a.out, "Section:    %s\n", s.Name)
		}
	}
	fmt.Fprintf(a.out, "Visibility: %s\n", m.Visibility.Type)
	if len(m.PeopleIDs) > 0 {
		names := make([]string, 0, len(m.PeopleIDs))
		for _, pid := range m.PeopleIDs {
			if n := journal.PersonName(doc.People, pid); n != "" {
				names = append(names, n)
			}
		}
		fmt.Fprintf(a.out, "People:     %s\n", strings.Join(names, ", "))
	}
	if place := journal.PlaceName(doc.Places, m.PlaceID); place != "" {
		fmt.Fprintf(a.out, "Place:      %s\n", place)
	}
	if len(m.Tags) > 0 {
		fmt.Fprintf(a.out, "Tags:       %s\n", strings.Join(m.Tags, ", "))
	}
	if m.Body != "" {
		fmt.Fprintf(a.out, "\n%s\n", m.Body)
	}
	if m.LowEnergyLine != "" {
		fmt.Fprintf(a.out, "\n%s\n", m.LowEnergyLine)
	}
	for _, ref := range m.Media {
		fmt.Fprintf(a.out, "[%s] %s (%s, %d bytes)\n", ref.Kind, ref.Name, ref.ID, ref.Size)
	}
	return nil
}

func (a *App) Delete(ctx context.Context, id string) error {
	ok, err := a.confirm("Delete this memory? This cannot be undone.")
	if err != nil || !ok {
		return err
	}
	if err := a.journal.DeleteMemory(ctx, id); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Memory deleted.")
	return nil
}

func (a *App) AddPerson(ctx context.Context) error {
	name, err := a.ask("Name")
	if err != nil {
		return err
	}
	note, err := a.ask("Note (optional)")
	if err != nil {
		return err
	}
	p, err := a.journal.AddPerson(ctx, name, note)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Added %s. (%s)\n", p.Name, p.ID)
	return nil
}

func (a *App) AddSection(ctx context.Context) error {
	name, err := a.ask("Section name")
	if err != nil {
		return err
	}
	raw, err := a.ask("Default visibility: Private, Family or Selected [Private]")
	if err != nil {
		return err
	}
	vis, err := normalizeVisibility(raw, journal.VisibilityPrivate)
	if err != nil {
		return a.report(err)
	}
	s, err := a.journal.AddSection(ctx, name, vis)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Added section %s. (%s)\n", s.Name, s.ID)
	return nil
}

func (a *App) Tags(ctx context.Context) error {
	tags := a.journal.Tags()
	if len(tags) == 0 {
		fmt.Fprintln(a.out, "No tags yet.")
		return nil
	}
	fmt.Fprintln(a.out, strings.Join(tags, ", "))
	return nil
}

// Sync handles "sync on|off|now|status".
func (a *App) Sync(ctx context.Context, arg string) error {
	switch arg {
	case "on":
		if err := a.journal.SetSetting(ctx, journal.SettingCloudSync, true); err != nil {
			return a.report(err)
		}
		fmt.Fprintln(a.out, "Cloud backup is on.")
	case "off":
		if err := a.journal.SetSetting(ctx, journal.SettingCloudSync, false); err != nil {
			return a.report(err)
		}
		fmt.Fprintln(a.out, "Cloud backup is off. Memories stay on this device.")
	case "now":
		if err := a.syncNow(ctx); err != nil {
			return a.report(err)
		}
		fmt.Fprintln(a.out, a.syncer.Status().Label)
	case "", "status":
		a.printStatus()
	default:
		return a.report(fmt.Errorf("usage: sync on|off|now|status"))
	}
	return nil
}

// syncNow restores first when this session has not restored yet and then
// backs up, both synchronously.
func (a *App) syncNow(ctx context.Context) error {
	if !a.journal.CloudSyncEnabled() {
		return syncer.ErrSyncDisabled
	}
	if !a.checkOnline(ctx) {
		return syncer.ErrOffline
	}

	restoring := !a.syncer.Status().RestoreAttempted
	if err := a.syncer.SyncNow(ctx); err != nil {
		return err
	}
	if restoring {
		return a.syncer.SyncNow(ctx)
	}
	return nil
}

func (a *App) printStatus() {
	st := a.syncer.Status()
	fmt.Fprintf(a.out, "Status:      %s\n", st.Label)
	fmt.Fprintf(a.out, "Cloud sync:  %t\n", st.Enabled)
	fmt.Fprintf(a.out, "Online:      %t\n", st.Online)
	fmt.Fprintf(a.out, "State:       %s\n", st.State)
	if !st.LastSuccess.IsZero() {
		fmt.Fprintf(a.out, "Last backup: %s\n", st.LastSuccess.Format(time.DateTime))
	}
	if st.LastError != "" {
		fmt.Fprintf(a.out, "Last error:  %s (%s, attempt %d)\n", st.LastError, st.Cause, st.Attempt)
	}
}

func (a *App) Key(ctx context.Context) error {
	key, err := a.journal.OwnerKey(ctx)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, key)
	return nil
}

func (a *App) RotateKey(ctx context.Context) error {
	ok, err := a.confirm("Rotate backup key? The old backup will remain on the server.")
	if err != nil || !ok {
		return err
	}
	key, err := a.journal.RotateOwnerKey(ctx)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Backup key rotated: %s\n", key)
	return nil
}

// Export writes the metadata export to path, or to the output when path is
// empty or "-".
func (a *App) Export(ctx context.Context, path string) error {
	b, err := a.journal.Export()
	if err != nil {
		return a.report(err)
	}
	if path == "" || path == "-" {
		_, err = fmt.Fprintln(a.out, string(b))
		return err
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Export written to %s\n", path)
	return nil
}

// Set changes a setting; "true" and "false" are booleans, anything else a
// string.
func (a *App) Set(ctx context.Context, key, value string) error {
	var v any = value
	if b, err := strconv.ParseBool(value); err == nil {
		v = b
	}
	if err := a.journal.SetSetting(ctx, key, v); err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "%s = %v\n", key, v)
	return nil
}

// report prints err for the user and returns it.
func (a *App) report(err error) error {
	switch {
	case errors.Is(err, syncer.ErrSyncDisabled):
		fmt.Fprintln(a.out, "Cloud backup is off. Turn it on with 'sync on'.")
	case errors.Is(err, syncer.ErrOffline):
		fmt.Fprintln(a.out, "Backup paused (offline).")
	default:
		fmt.Fprintf(a.out, "Error: %v\n", err)
	}
	return err
}
