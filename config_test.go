package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRootSelector, cfg.Selectors.Root)
	assert.Equal(t, DefaultPollInterval, cfg.Timing.PollInterval.Duration)
	assert.Equal(t, DefaultMaxAttempts, cfg.Timing.MaxAttempts)

	cfg, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFormats(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"config.toml", "debug = true\n[selectors]\nroot = \"#main\"\n[timing]\npoll_interval = \"50ms\"\nmax_attempts = 7\n"},
		{"config.yaml", "debug: true\nselectors:\n  root: \"#main\"\ntiming:\n  poll_interval: 50ms\n  max_attempts: 7\n"},
		{"config.json", `{"debug":true,"selectors":{"root":"#main"},"timing":{"poll_interval":"50ms","max_attempts":7}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.name)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			cfg, err := LoadConfig(path)
			require.NoError(t, err)
			assert.True(t, cfg.Debug)
			assert.Equal(t, "#main", cfg.Selectors.Root)
			assert.Equal(t, 50*time.Millisecond, cfg.Timing.PollInterval.Duration)
			assert.Equal(t, 7, cfg.Timing.MaxAttempts)
			assert.Equal(t, DefaultCopyButtonSelector, cfg.Selectors.CopyButton, "unset keys keep defaults")
			assert.Equal(t, DefaultRescanDelay, cfg.Timing.RescanDelay.Duration)
		})
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("BASHDATDASH_ROOT_SELECTOR", "main .thread")
	t.Setenv("BASHDATDASH_DEBUG", "true")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "main .thread", cfg.Selectors.Root)
	assert.True(t, cfg.Debug)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Selectors.Root = "div[["
	cfg.Selectors.Editable = ""
	cfg.Timing.PollInterval = Duration{}
	cfg.Timing.MaxAttempts = 0
	cfg.Timing.RescanDelay = Duration{-time.Second}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"selectors.root", "selectors.editable", "poll_interval", "max_attempts", "rescan_delay"} {
		assert.ErrorContains(t, err, want)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[timing]\npoll_interval = \"soon\"\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[selectors]\ncopy_button = \"button[\"\n"), 0o644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "selectors.copy_button")
}

func TestSelectorsCompile(t *testing.T) {
	s, err := DefaultConfig().Selectors.Compile()
	require.NoError(t, err)

	p := newTestPage(t, chatPage)
	assert.Equal(t, find(t, p, "#thread"), p.QuerySelector(s.Root))
	assert.Equal(t, find(t, p, "#copy1"), p.QuerySelector(s.CopyButton))
	assert.Equal(t, find(t, p, "#msg1"), p.QuerySelector(s.MessageContainer))
	assert.Equal(t, find(t, p, "#content1"), p.QuerySelector(s.MessageContent))
	assert.Equal(t, find(t, p, "#prompt"), p.QuerySelector(s.Editable))

	_, err = SelectorConfig{Root: "[[", Editable: "a", CopyButton: "a", MessageContainer: "a", MessageContent: "a"}.Compile()
	assert.Error(t, err)
}
