package journal

// Built-in section ids.
const (
	SectionMyLife          = "sec_my_life"
	SectionWhereItBegan    = "sec_where_it_began"
	SectionPrivateMemories = "sec_private_memories"
)

// Setting keys.
const (
	SettingPromptStyle     = "promptStyle"
	SettingRevealTimeline  = "revealTimeline"
	SettingRevealCalendar  = "revealCalendar"
	SettingRevealTags      = "revealTags"
	SettingRevealKeepsakes = "revealKeepsakes"
	SettingRevealMap       = "revealMap"
	SettingCloudSync       = "cloudSync"
	SettingReducedMotion   = "reducedMotion"
)

// PromptStyles lists the accepted promptStyle values.
var PromptStyles = []string{"gentle", "curious", "quiet"}

// DefaultSections returns the built-in system sections in their canonical order.
func DefaultSections() []Section {
	return []Section{
		{ID: SectionMyLife, Name: "My Life", System: true, DefaultVisibility: VisibilityPrivate},
		{ID: SectionWhereItBegan, Name: "Where it all began", System: true, DefaultVisibility: VisibilityPrivate},
		{ID: SectionPrivateMemories, Name: "Private Memories", System: true, DefaultVisibility: VisibilityPrivate},
	}
}

func DefaultSettings() map[string]any {
	return map[string]any{
		SettingPromptStyle:     "gentle",
		SettingRevealTimeline:  false,
		SettingRevealCalendar:  false,
		SettingRevealTags:      false,
		SettingRevealKeepsakes: false,
		SettingRevealMap:       false,
		SettingCloudSync:       false,
		SettingReducedMotion:   false,
	}
}

func DefaultFlags() map[string]bool {
	return map[string]bool{
		"timelineNudgeShown":  false,
		"calendarNudgeShown":  false,
		"tagsNudgeShown":      false,
		"keepsakesNudgeShown": false,
	}
}

// DefaultDocument is the document a device starts with.
func DefaultDocument() *Document {
	return &Document{
		Memories: []Memory{},
		Sections: DefaultSections(),
		People:   []Person{},
		Places:   []Place{},
		Settings: DefaultSettings(),
		Flags:    DefaultFlags(),
	}
}
