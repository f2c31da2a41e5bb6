package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// StoredSettings is the persisted form of the user settings. Pointers tell
// a missing key apart from a zero value.
type StoredSettings struct {
	Enabled         *bool   `toml:"enabled,omitempty" yaml:"enabled,omitempty" json:"enabled,omitempty"`
	FindPattern     *string `toml:"findPattern,omitempty" yaml:"findPattern,omitempty" json:"findPattern,omitempty"`
	ReplaceWith     *string `toml:"replaceWith,omitempty" yaml:"replaceWith,omitempty" json:"replaceWith,omitempty"`
	OnboardingShown *bool   `toml:"onboardingShown,omitempty" yaml:"onboardingShown,omitempty" json:"onboardingShown,omitempty"`
}

// Settings returns the effective engine settings, defaults filling the gaps
func (s StoredSettings) Settings() Settings {
	out := DefaultSettings()
	if s.Enabled != nil {
		out.Enabled = *s.Enabled
	}
	if s.FindPattern != nil {
		out.FindPattern = Mode(*s.FindPattern)
	}
	if s.ReplaceWith != nil {
		out.Replacement = *s.ReplaceWith
	}
	return out.Normalized()
}

// WasOnboardingShown reports whether the first-run overlay was already shown
func (s StoredSettings) WasOnboardingShown() bool {
	return s.OnboardingShown != nil && *s.OnboardingShown
}

// SettingsStore is what the engine needs from settings persistence
type SettingsStore interface {
	Load() (StoredSettings, error)
	MarkOnboardingShown() error
}

// SettingsWriter is a store that also takes settings changes from the
// command surface
type SettingsWriter interface {
	Update(msg SettingsMessage) error
}

// FileSettingsStore keeps the settings in one file; the format follows the
// file extension (.toml, .yaml/.yml, .json)
type FileSettingsStore struct {
	path string
	mu   sync.Mutex
	log  *slog.Logger
}

// NewFileSettingsStore creates a store for path
func NewFileSettingsStore(path string, log *slog.Logger) *FileSettingsStore {
	if log == nil {
		log = discardLogger()
	}
	return &FileSettingsStore{path: path, log: log.With("component", "settings-store")}
}

// Path returns the backing file
func (s *FileSettingsStore) Path() string {
	return s.path
}

// Load reads the file. A missing file is an empty store, not an error.
func (s *FileSettingsStore) Load() (StoredSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileSettingsStore) load() (StoredSettings, error) {
	var st StoredSettings
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("read settings: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return st, nil
	}
	if err := decodeByExt(s.path, data, &st); err != nil {
		return st, fmt.Errorf("parse settings %s: %w", s.path, err)
	}
	return st, nil
}

// Save writes st atomically (temp file + rename)
func (s *FileSettingsStore) Save(st StoredSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(st)
}

func (s *FileSettingsStore) save(st StoredSettings) error {
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(st); err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
	case ".json":
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	default:
		if err := toml.NewEncoder(&buf).Encode(st); err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// SeedDefaults fills missing keys with the install-time defaults, normalizes
// invalid values and writes the result back
func (s *FileSettingsStore) SeedDefaults() (StoredSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return st, err
	}
	eff := st.Settings()
	enabled := eff.Enabled
	mode := string(eff.FindPattern)
	repl := eff.Replacement
	onboarding := st.WasOnboardingShown()
	seeded := StoredSettings{
		Enabled:         &enabled,
		FindPattern:     &mode,
		ReplaceWith:     &repl,
		OnboardingShown: &onboarding,
	}
	if err := s.save(seeded); err != nil {
		return st, err
	}
	s.log.Info("default settings applied", "enabled", enabled, "findPattern", mode, "replaceWith", repl, "onboardingShown", onboarding)
	return seeded, nil
}

// Update merges msg into the stored settings
func (s *FileSettingsStore) Update(msg SettingsMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	next := st.Settings().Apply(msg)
	if msg.Enabled != nil {
		st.Enabled = &next.Enabled
	}
	if msg.FindPattern != nil {
		mode := string(next.FindPattern)
		st.FindPattern = &mode
	}
	if msg.ReplaceWith != nil {
		st.ReplaceWith = &next.Replacement
	}
	return s.save(st)
}

// MarkOnboardingShown sets the onboarding flag
func (s *FileSettingsStore) MarkOnboardingShown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	shown := true
	st.OnboardingShown = &shown
	return s.save(st)
}

// Watch reports changes to the settings file as SETTINGS_UPDATED messages
// carrying only the fields that changed. It blocks until ctx is done.
func (s *FileSettingsStore) Watch(ctx context.Context, onChange func(SettingsMessage)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}

	last, err := s.Load()
	if err != nil {
		s.log.Warn("initial settings read failed", "error", err)
	}

	var debounce *time.Timer
	fire := make(chan struct{}, 1)
	const debounceDelay = 100 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			cur, err := s.Load()
			if err != nil {
				s.log.Warn("settings reload failed", "error", err)
				continue
			}
			if msg := diffSettings(last, cur); !msg.IsEmpty() {
				onChange(msg)
			}
			last = cur

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("settings watcher error", "error", err)
		}
	}
}

// diffSettings returns a message with the effective fields that differ
func diffSettings(prev, cur StoredSettings) SettingsMessage {
	a, b := prev.Settings(), cur.Settings()
	msg := SettingsMessage{Type: MessageSettingsUpdated}
	if a.Enabled != b.Enabled {
		msg.Enabled = &b.Enabled
	}
	if a.FindPattern != b.FindPattern {
		mode := string(b.FindPattern)
		msg.FindPattern = &mode
	}
	if a.Replacement != b.Replacement {
		msg.ReplaceWith = &b.Replacement
	}
	return msg
}
