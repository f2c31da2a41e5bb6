package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

// Default page markup and timing
const (
	DefaultRootSelector       = "#thread"
	DefaultEditableSelector   = `[contenteditable="true"], [contenteditable=""], input, textarea`
	DefaultCopyButtonSelector = `button[data-testid="copy-turn-action-button"]`
	DefaultMessageSelector    = `div[data-testid^="conversation-message"], article`
	DefaultContentSelector    = ".markdown.prose"

	DefaultPollInterval = 200 * time.Millisecond
	DefaultMaxAttempts  = 50
	DefaultRescanDelay  = 500 * time.Millisecond
)

// Duration wraps time.Duration so config files can say "200ms"
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration as a Go duration string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML parses a Go duration string
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// SelectorConfig names the page elements the engine cares about
type SelectorConfig struct {
	Root             string `toml:"root" yaml:"root" json:"root"`
	Editable         string `toml:"editable" yaml:"editable" json:"editable"`
	CopyButton       string `toml:"copy_button" yaml:"copy_button" json:"copy_button"`
	MessageContainer string `toml:"message_container" yaml:"message_container" json:"message_container"`
	MessageContent   string `toml:"message_content" yaml:"message_content" json:"message_content"`
}

// TimingConfig holds the polling and rescan timing
type TimingConfig struct {
	PollInterval Duration `toml:"poll_interval" yaml:"poll_interval" json:"poll_interval"`
	MaxAttempts  int      `toml:"max_attempts" yaml:"max_attempts" json:"max_attempts"`
	RescanDelay  Duration `toml:"rescan_delay" yaml:"rescan_delay" json:"rescan_delay"`
}

// Config is the engine configuration
type Config struct {
	Selectors    SelectorConfig `toml:"selectors" yaml:"selectors" json:"selectors"`
	Timing       TimingConfig   `toml:"timing" yaml:"timing" json:"timing"`
	SettingsPath string         `toml:"settings_path" yaml:"settings_path" json:"settings_path"`
	Debug        bool           `toml:"debug" yaml:"debug" json:"debug"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		Selectors: SelectorConfig{
			Root:             DefaultRootSelector,
			Editable:         DefaultEditableSelector,
			CopyButton:       DefaultCopyButtonSelector,
			MessageContainer: DefaultMessageSelector,
			MessageContent:   DefaultContentSelector,
		},
		Timing: TimingConfig{
			PollInterval: Duration{DefaultPollInterval},
			MaxAttempts:  DefaultMaxAttempts,
			RescanDelay:  Duration{DefaultRescanDelay},
		},
	}
}

// LoadConfig reads path on top of the defaults. The format follows the file
// extension: .toml, .yaml/.yml or .json. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := decodeByExt(path, data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

func decodeByExt(path string, data []byte, v any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	case ".json":
		return json.Unmarshal(data, v)
	default:
		_, err := toml.Decode(string(data), v)
		return err
	}
}

// ApplyEnvOverrides applies BASHDATDASH_* environment variables
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("BASHDATDASH_ROOT_SELECTOR"); v != "" {
		c.Selectors.Root = v
	}
	if v := os.Getenv("BASHDATDASH_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
}

// Validate checks every selector compiles and timing is sane
func (c *Config) Validate() error {
	var errs []error
	for name, sel := range map[string]string{
		"root":              c.Selectors.Root,
		"editable":          c.Selectors.Editable,
		"copy_button":       c.Selectors.CopyButton,
		"message_container": c.Selectors.MessageContainer,
		"message_content":   c.Selectors.MessageContent,
	} {
		if sel == "" {
			errs = append(errs, fmt.Errorf("selectors.%s is empty", name))
			continue
		}
		if _, err := cascadia.Compile(sel); err != nil {
			errs = append(errs, fmt.Errorf("selectors.%s: %w", name, err))
		}
	}
	if c.Timing.PollInterval.Duration <= 0 {
		errs = append(errs, errors.New("timing.poll_interval must be positive"))
	}
	if c.Timing.MaxAttempts <= 0 {
		errs = append(errs, errors.New("timing.max_attempts must be positive"))
	}
	if c.Timing.RescanDelay.Duration < 0 {
		errs = append(errs, errors.New("timing.rescan_delay must not be negative"))
	}
	return errors.Join(errs...)
}

// Selectors holds the compiled selectors
type Selectors struct {
	Root             cascadia.Selector
	Editable         cascadia.Selector
	CopyButton       cascadia.Selector
	MessageContainer cascadia.Selector
	MessageContent   cascadia.Selector
}

// Compile compiles the selector strings; call after Validate
func (c SelectorConfig) Compile() (*Selectors, error) {
	var s Selectors
	for _, item := range []struct {
		src string
		dst *cascadia.Selector
	}{
		{c.Root, &s.Root},
		{c.Editable, &s.Editable},
		{c.CopyButton, &s.CopyButton},
		{c.MessageContainer, &s.MessageContainer},
		{c.MessageContent, &s.MessageContent},
	} {
		sel, err := cascadia.Compile(item.src)
		if err != nil {
			return nil, fmt.Errorf("compile selector %q: %w", item.src, err)
		}
		*item.dst = sel
	}
	return &s, nil
}
