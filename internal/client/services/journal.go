// Package services contains the application services of the everkeep client.
// JournalService owns the in-memory journal document, persists it to the
// local database and tells the sync scheduler when something changed.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/everkeep/internal/client/media"
	"github.com/dmitrijs2005/everkeep/internal/client/repositories/kv"
	"github.com/dmitrijs2005/everkeep/internal/common"
	"github.com/dmitrijs2005/everkeep/internal/dbx"
	"github.com/dmitrijs2005/everkeep/internal/journal"
	"github.com/dmitrijs2005/everkeep/internal/logging"
)

// Storage keys of the local key-value table.
const (
	KeyData     = "everkeep:data"
	KeyOwnerKey = "everkeep:ownerKey"
	KeyDraft    = "everkeep:draft"
)

var (
	ErrEmptyMemory       = errors.New("add a line, a photo, or a recording before saving")
	ErrNoSelectedPeople  = errors.New("choose at least one person to share with, or keep it private")
	ErrEmptyName         = errors.New("name is required")
	ErrUnknownSetting    = errors.New("unknown setting")
	ErrInvalidSetting    = errors.New("invalid setting value")
	ErrUnknownSection    = errors.New("unknown section")
	ErrInvalidVisibility = errors.New("invalid visibility")
)

// Syncer is the part of the sync scheduler the journal drives.
type Syncer interface {
	NotifySaved()
	Enable()
	Disable()
	OwnerKeyRotated()
}

// MemoryInput is what the user fills in when writing or editing a memory.
type MemoryInput struct {
	Title          string
	Body           string
	LowEnergy      bool
	LowEnergyLine  string
	SectionID      string
	PeopleIDs      []string
	PlaceName      string
	Tags           string
	Visibility     string
	SelectedPeople []string
	Date           journal.MemoryDate
	Media          []journal.MediaRef
	Source         string
}

// Draft is an unsaved memory form.
type Draft struct {
	Title         string             `json:"title"`
	Body          string             `json:"body"`
	LowEnergy     bool               `json:"lowEnergy"`
	LowEnergyLine string             `json:"lowEnergyLine"`
	SectionID     string             `json:"sectionId"`
	Visibility    string             `json:"visibility"`
	Date          journal.MemoryDate `json:"date"`
	Tags          string             `json:"tags"`
	PlaceName     string             `json:"placeName"`
	Media         []journal.MediaRef `json:"media"`
}

type JournalService struct {
	db     *sql.DB
	media  media.Store
	logger logging.Logger
	now    func() time.Time

	mu     sync.Mutex
	doc    *journal.Document
	syncer Syncer
}

func NewJournalService(db *sql.DB, store media.Store, logger logging.Logger) *JournalService {
	return &JournalService{
		db:     db,
		media:  store,
		logger: logger.With("module", "journal"),
		now:    time.Now,
		doc:    journal.DefaultDocument(),
	}
}

func (s *JournalService) kvRepo(db dbx.DBTX) kv.Repository {
	return kv.NewSQLiteRepository(db)
}

// AttachSyncer connects the scheduler once both sides exist.
func (s *JournalService) AttachSyncer(sy Syncer) {
	s.mu.Lock()
	s.syncer = sy
	s.mu.Unlock()
}

// Load reads the stored document and normalizes it. A missing or corrupt
// record yields the default document.
func (s *JournalService) Load(ctx context.Context) error {
	raw, err := s.kvRepo(s.db).Get(ctx, KeyData)
	if err != nil {
		return fmt.Errorf("load journal: %w", err)
	}

	doc := journal.DefaultDocument()
	if raw != nil {
		doc = journal.NormalizeJSON(raw)
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

func (s *JournalService) persist(ctx context.Context, db dbx.DBTX) error {
	b, err := json.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}
	if err := s.kvRepo(db).Set(ctx, KeyData, b); err != nil {
		return fmt.Errorf("save journal: %w", err)
	}
	return nil
}

// commitLocked persists the document while mu is held and returns the syncer to
// notify, if any. Callers release mu before notifying.
func (s *JournalService) commitLocked(ctx context.Context, skipSync bool) (Syncer, error) {
	if err := s.persist(ctx, s.db); err != nil {
		return nil, err
	}
	if skipSync {
		return nil, nil
	}
	return s.syncer, nil
}

func notify(sy Syncer) {
	if sy != nil {
		sy.NotifySaved()
	}
}

func (s *JournalService) Snapshot() *journal.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

func (s *JournalService) CloudSyncEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.CloudSyncEnabled()
}

// ApplyRemote merges remote into the local document and saves the result
// without scheduling another sync.
func (s *JournalService) ApplyRemote(ctx context.Context, remote *journal.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.doc
	s.doc = journal.Normalize(journal.MergeRemoteState(s.doc, remote))
	if err := s.persist(ctx, s.db); err != nil {
		s.doc = prev
		return err
	}
	s.logger.Info(ctx, "remote state merged", "memories", len(s.doc.Memories))
	return nil
}

// buildMemoryLocked validates in and turns it into a memory. It may add a place
// to the document, so callers hold mu.
func (s *JournalService) buildMemoryLocked(in MemoryInput, id string, createdAt int64) (journal.Memory, error) {
	title := strings.TrimSpace(in.Title)
	body := strings.TrimSpace(in.Body)
	line := strings.TrimSpace(in.LowEnergyLine)

	content := body
	if content == "" && in.LowEnergy {
		content = line
	}
	if content == "" {
		content = title
	}
	if content == "" && len(in.Media) == 0 {
		return journal.Memory{}, ErrEmptyMemory
	}

	visibility := in.Visibility
	if visibility == "" {
		visibility = journal.VisibilityPrivate
	}
	switch visibility {
	case journal.VisibilityPrivate, journal.VisibilityFamily, journal.VisibilitySelected:
	default:
		return journal.Memory{}, fmt.Errorf("%w: %q", ErrInvalidVisibility, visibility)
	}
	if visibility == journal.VisibilitySelected && len(in.SelectedPeople) == 0 {
		return journal.Memory{}, ErrNoSelectedPeople
	}

	sectionID := in.SectionID
	if sectionID == "" {
		sectionID = s.doc.Sections[0].ID
	} else if !slices.ContainsFunc(s.doc.Sections, func(sec journal.Section) bool { return sec.ID == sectionID }) {
		return journal.Memory{}, fmt.Errorf("%w: %s", ErrUnknownSection, sectionID)
	}

	now := s.now().UnixMilli()
	if createdAt == 0 {
		createdAt = now
	}

	var placeID string
	if name := strings.TrimSpace(in.PlaceName); name != "" {
		placeID = s.upsertPlaceLocked(name, now)
	}

	m := journal.Memory{
		ID:         id,
		Title:      title,
		Body:       body,
		LowEnergy:  in.LowEnergy,
		SectionID:  sectionID,
		PeopleIDs:  append([]string{}, in.PeopleIDs...),
		PlaceID:    placeID,
		Tags:       journal.ParseTags(in.Tags),
		Visibility: journal.Visibility{Type: visibility, PeopleIDs: []string{}},
		Date:       in.Date,
		Media:      append([]journal.MediaRef{}, in.Media...),
		Source:     in.Source,
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	}
	if in.LowEnergy {
		m.LowEnergyLine = line
	}
	if visibility == journal.VisibilitySelected {
		m.Visibility.PeopleIDs = append(m.Visibility.PeopleIDs, in.SelectedPeople...)
	}
	if m.Date.Type == "" {
		m.Date = journal.MemoryDate{Type: journal.DateExact}
	}
	if m.Source == "" {
		m.Source = "Today"
	}
	return m, nil
}

func (s *JournalService) upsertPlaceLocked(name string, now int64) string {
	if i := journal.FindPlaceByName(s.doc.Places, name); i >= 0 {
		s.doc.Places[i].UpdatedAt = now
		return s.doc.Places[i].ID
	}
	p := journal.Place{ID: journal.NewID("place"), Name: name, CreatedAt: now, UpdatedAt: now}
	s.doc.Places = append(s.doc.Places, p)
	return p.ID
}

// AddMemory stores a new memory and discards the saved draft.
func (s *JournalService) AddMemory(ctx context.Context, in MemoryInput) (journal.Memory, error) {
	s.mu.Lock()
	prev := s.doc.Clone()

	m, err := s.buildMemoryLocked(in, journal.NewID("mem"), 0)
	if err != nil {
		s.doc = prev
		s.mu.Unlock()
		return journal.Memory{}, err
	}
	s.doc.Memories = append(s.doc.Memories, m)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.persist(ctx, tx); err != nil {
			return err
		}
		return s.kvRepo(tx).Delete(ctx, KeyDraft)
	})
	if err != nil {
		s.doc = prev
		s.mu.Unlock()
		return journal.Memory{}, err
	}
	sy := s.syncer
	s.mu.Unlock()

	notify(sy)
	return m, nil
}

// UpdateMemory replaces the memory with id, keeping its createdAt. Media
// dropped from the memory is deleted from the blob store.
func (s *JournalService) UpdateMemory(ctx context.Context, id string, in MemoryInput) (journal.Memory, error) {
	s.mu.Lock()
	i := s.doc.FindMemory(id)
	if i < 0 {
		s.mu.Unlock()
		return journal.Memory{}, fmt.Errorf("memory %s: %w", id, common.ErrNotFound)
	}
	prev := s.doc.Clone()
	old := s.doc.Memories[i]

	m, err := s.buildMemoryLocked(in, id, old.CreatedAt)
	if err != nil {
		s.doc = prev
		s.mu.Unlock()
		return journal.Memory{}, err
	}
	s.doc.Memories[i] = m

	sy, err := s.commitLocked(ctx, false)
	if err != nil {
		s.doc = prev
		s.mu.Unlock()
		return journal.Memory{}, err
	}
	s.mu.Unlock()

	kept := make(map[string]bool, len(m.Media))
	for _, ref := range m.Media {
		kept[ref.ID] = true
	}
	for _, ref := range old.Media {
		if !kept[ref.ID] {
			s.deleteBlob(ctx, ref.ID)
		}
	}

	notify(sy)
	return m, nil
}

func (s *JournalService) DeleteMemory(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.doc.FindMemory(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("memory %s: %w", id, common.ErrNotFound)
	}
	prev := s.doc.Clone()
	removed := s.doc.Memories[i]
	s.doc.Memories = slices.Delete(s.doc.Memories, i, i+1)

	sy, err := s.commitLocked(ctx, false)
	if err != nil {
		s.doc = prev
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	for _, ref := range removed.Media {
		s.deleteBlob(ctx, ref.ID)
	}
	notify(sy)
	return nil
}

func (s *JournalService) deleteBlob(ctx context.Context, id string) {
	if s.media == nil {
		return
	}
	if err := s.media.Delete(ctx, id); err != nil {
		s.logger.Warn(ctx, "failed to delete media", "id", id, "error", err)
	}
}

// AttachMedia stores a blob and returns the reference to put on a memory.
func (s *JournalService) AttachMedia(ctx context.Context, data []byte, kind, name, contentType string) (journal.MediaRef, error) {
	if s.media == nil {
		return journal.MediaRef{}, errors.New("media store is not configured")
	}
	ref, err := s.media.Put(ctx, data, journal.MediaRef{Kind: kind, Name: name, Type: contentType})
	if err != nil {
		return journal.MediaRef{}, fmt.Errorf("store media: %w", err)
	}
	return ref, nil
}

func (s *JournalService) Media(ctx context.Context, id string) (*media.Blob, error) {
	if s.media == nil {
		return nil, common.ErrNotFound
	}
	return s.media.Get(ctx, id)
}

func (s *JournalService) AddPerson(ctx context.Context, name, note string) (journal.Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return journal.Person{}, ErrEmptyName
	}

	now := s.now().UnixMilli()
	p := journal.Person{ID: journal.NewID("person"), Name: name, Note: strings.TrimSpace(note), CreatedAt: now, UpdatedAt: now}

	s.mu.Lock()
	s.doc.People = append(s.doc.People, p)
	sy, err := s.commitLocked(ctx, false)
	if err != nil {
		s.doc.People = s.doc.People[:len(s.doc.People)-1]
		s.mu.Unlock()
		return journal.Person{}, err
	}
	s.mu.Unlock()

	notify(sy)
	return p, nil
}

func (s *JournalService) AddSection(ctx context.Context, name, defaultVisibility string) (journal.Section, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return journal.Section{}, ErrEmptyName
	}
	if defaultVisibility == "" {
		defaultVisibility = journal.VisibilityPrivate
	}
	switch defaultVisibility {
	case journal.VisibilityPrivate, journal.VisibilityFamily, journal.VisibilitySelected:
	default:
		return journal.Section{}, fmt.Errorf("%w: %q", ErrInvalidVisibility, defaultVisibility)
	}

	now := s.now().UnixMilli()
	sec := journal.Section{
		ID:                journal.NewID("section"),
		Name:              name,
		DefaultVisibility: defaultVisibility,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	s.mu.Lock()
	s.doc.Sections = append(s.doc.Sections, sec)
	sy, err := s.commitLocked(ctx, false)
	if err != nil {
		s.doc.Sections = s.doc.Sections[:len(s.doc.Sections)-1]
		s.mu.Unlock()
		return journal.Section{}, err
	}
	s.mu.Unlock()

	notify(sy)
	return sec, nil
}

// SetSetting changes one setting. Switching cloudSync on saves without
// syncing and lets the scheduler restore first; switching it off resets the
// scheduler.
func (s *JournalService) SetSetting(ctx context.Context, key string, value any) error {
	def, ok := journal.DefaultSettings()[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	switch def.(type) {
	case bool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%w: %s must be true or false", ErrInvalidSetting, key)
		}
	case string:
		v, ok := value.(string)
		if !ok || (key == journal.SettingPromptStyle && !slices.Contains(journal.PromptStyles, v)) {
			return fmt.Errorf("%w: %s", ErrInvalidSetting, key)
		}
	}

	cloudOn := key == journal.SettingCloudSync && value == true

	s.mu.Lock()
	prev, had := s.doc.Settings[key]
	s.doc.Settings[key] = value
	sy, err := s.commitLocked(ctx, cloudOn)
	if err != nil {
		if had {
			s.doc.Settings[key] = prev
		} else {
			delete(s.doc.Settings, key)
		}
		s.mu.Unlock()
		return err
	}
	syncer := s.syncer
	s.mu.Unlock()

	switch {
	case cloudOn && syncer != nil:
		syncer.Enable()
	case key == journal.SettingCloudSync && syncer != nil:
		syncer.Disable()
	default:
		notify(sy)
	}
	return nil
}

func (s *JournalService) Settings() map[string]any {
	return s.Snapshot().Settings
}

// OwnerKey returns the backup identity, creating and persisting one on first
// use.
func (s *JournalService) OwnerKey(ctx context.Context) (string, error) {
	repo := s.kvRepo(s.db)
	raw, err := repo.Get(ctx, KeyOwnerKey)
	if err != nil {
		return "", fmt.Errorf("read owner key: %w", err)
	}
	if len(raw) > 0 {
		return string(raw), nil
	}

	key := journal.NewOwnerKey()
	if err := repo.Set(ctx, KeyOwnerKey, []byte(key)); err != nil {
		return "", fmt.Errorf("save owner key: %w", err)
	}
	s.logger.Info(ctx, "owner key created")
	return key, nil
}

// RotateOwnerKey switches to a fresh backup identity. The old backup stays
// on the server; the next backup goes to the new key without a restore.
func (s *JournalService) RotateOwnerKey(ctx context.Context) (string, error) {
	key := journal.NewOwnerKey()
	if err := s.kvRepo(s.db).Set(ctx, KeyOwnerKey, []byte(key)); err != nil {
		return "", fmt.Errorf("save owner key: %w", err)
	}
	s.logger.Info(ctx, "owner key rotated")

	s.mu.Lock()
	sy := s.syncer
	s.mu.Unlock()
	if sy != nil {
		sy.OwnerKeyRotated()
	}
	return key, nil
}

func (s *JournalService) Memory(id string) (journal.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.doc.FindMemory(id)
	if i < 0 {
		return journal.Memory{}, fmt.Errorf("memory %s: %w", id, common.ErrNotFound)
	}
	return s.doc.Memories[i], nil
}

// Memories lists the memories matching f, newest first.
func (s *JournalService) Memories(f journal.Filters) []journal.Memory {
	doc := s.Snapshot()
	return journal.ApplyFilters(doc.Memories, f, doc.People, doc.Places, s.now())
}

func (s *JournalService) Tags() []string {
	return journal.AllTags(s.Snapshot().Memories)
}

type exportData struct {
	Memories []journal.Memory  `json:"memories"`
	Sections []journal.Section `json:"sections"`
	People   []journal.Person  `json:"people"`
	Places   []journal.Place   `json:"places"`
}

type exportPayload struct {
	ExportedAt string     `json:"exportedAt"`
	Note       string     `json:"note"`
	Data       exportData `json:"data"`
}

// Export renders the journal as indented JSON. Media blobs are not
// included, only their metadata.
func (s *JournalService) Export() ([]byte, error) {
	doc := s.Snapshot()
	p := exportPayload{
		ExportedAt: s.now().UTC().Format(time.RFC3339),
		Note:       "Media blobs are stored on this device. This export includes metadata only.",
		Data: exportData{
			Memories: doc.Memories,
			Sections: doc.Sections,
			People:   doc.People,
			Places:   doc.Places,
		},
	}
	return json.MarshalIndent(p, "", "  ")
}

func (s *JournalService) SaveDraft(ctx context.Context, d Draft) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	return s.kvRepo(s.db).Set(ctx, KeyDraft, b)
}

// LoadDraft returns nil when no usable draft is stored.
func (s *JournalService) LoadDraft(ctx context.Context) (*Draft, error) {
	raw, err := s.kvRepo(s.db).Get(ctx, KeyDraft)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		s.logger.Warn(ctx, "discarding unreadable draft", "error", err)
		return nil, nil
	}
	return &d, nil
}

func (s *JournalService) ClearDraft(ctx context.Context) error {
	return s.kvRepo(s.db).Delete(ctx, KeyDraft)
}
