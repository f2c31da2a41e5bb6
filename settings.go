package main

import (
	"encoding/json"
	"sync/atomic"
)

// Mode selects which dash characters get replaced
type Mode string

const (
	ModeEm   Mode = "em"
	ModeEn   Mode = "en"
	ModeBoth Mode = "both"
)

// Replacement literals. None of them contains a dash character, which is
// what keeps rewriting idempotent.
const (
	ReplaceComma        = ", "
	ReplaceSemicolon    = "; "
	ReplaceDoubleHyphen = "--"
)

// MessageSettingsUpdated is the only inbound message type the engine acts on
const MessageSettingsUpdated = "SETTINGS_UPDATED"

var validReplacements = []string{ReplaceComma, ReplaceSemicolon, ReplaceDoubleHyphen}

// NormalizeMode maps unknown values to ModeEm
func NormalizeMode(m string) Mode {
	switch Mode(m) {
	case ModeEm, ModeEn, ModeBoth:
		return Mode(m)
	default:
		return ModeEm
	}
}

// NormalizeReplacement maps unknown values to ReplaceComma
func NormalizeReplacement(r string) string {
	for _, v := range validReplacements {
		if v == r {
			return r
		}
	}
	return ReplaceComma
}

// Settings is the read-only snapshot the engine works from
type Settings struct {
	Enabled     bool   `json:"enabled"`
	FindPattern Mode   `json:"findPattern"`
	Replacement string `json:"replaceWith"`
}

// DefaultSettings returns the install-time defaults
func DefaultSettings() Settings {
	return Settings{Enabled: true, FindPattern: ModeEm, Replacement: ReplaceComma}
}

// Normalized returns a copy with unrecognized values replaced by defaults
func (s Settings) Normalized() Settings {
	s.FindPattern = NormalizeMode(string(s.FindPattern))
	s.Replacement = NormalizeReplacement(s.Replacement)
	return s
}

// Apply merges the fields present in msg into a copy of s
func (s Settings) Apply(msg SettingsMessage) Settings {
	if msg.Enabled != nil {
		s.Enabled = *msg.Enabled
	}
	if msg.FindPattern != nil {
		s.FindPattern = NormalizeMode(*msg.FindPattern)
	}
	if msg.ReplaceWith != nil {
		s.Replacement = NormalizeReplacement(*msg.ReplaceWith)
	}
	return s.Normalized()
}

// SettingsMessage is the change notification sent by the configuration UI.
// Absent fields are left untouched.
type SettingsMessage struct {
	Type        string  `json:"type"`
	Enabled     *bool   `json:"enabled,omitempty"`
	FindPattern *string `json:"findPattern,omitempty"`
	ReplaceWith *string `json:"replaceWith,omitempty"`
}

// UnmarshalJSON accepts the legacy "replaceWhat" key as an alias of findPattern
func (m *SettingsMessage) UnmarshalJSON(data []byte) error {
	type plain SettingsMessage
	var aux struct {
		plain
		ReplaceWhat *string `json:"replaceWhat,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*m = SettingsMessage(aux.plain)
	if m.FindPattern == nil && aux.ReplaceWhat != nil {
		m.FindPattern = aux.ReplaceWhat
	}
	return nil
}

// IsEmpty reports whether the message carries no setting at all
func (m SettingsMessage) IsEmpty() bool {
	return m.Enabled == nil && m.FindPattern == nil && m.ReplaceWith == nil
}

// SettingsCell holds the current settings and the pattern derived from
// them. Both are swapped as whole records; readers never see a half update.
type SettingsCell struct {
	settings atomic.Pointer[Settings]
	pattern  atomic.Pointer[ActivePattern]
}

// NewSettingsCell creates a cell seeded with s
func NewSettingsCell(s Settings) *SettingsCell {
	c := &SettingsCell{}
	c.store(s.Normalized())
	return c
}

func (c *SettingsCell) store(s Settings) {
	c.pattern.Store(ResolvePattern(s.FindPattern, s.Replacement))
	c.settings.Store(&s)
}

// Settings returns the current snapshot
func (c *SettingsCell) Settings() Settings {
	return *c.settings.Load()
}

// Pattern returns the live ActivePattern
func (c *SettingsCell) Pattern() *ActivePattern {
	return c.pattern.Load()
}

// Set swaps in s
func (c *SettingsCell) Set(s Settings) {
	c.store(s.Normalized())
}
