package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteDocument(t *testing.T) {
	out, n, err := RewriteDocument(chatPage, testSelectors(t), ResolvePattern(ModeEm, ReplaceSemicolon))
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Contains(t, out, "The quick; brown; fox")
	assert.Contains(t, out, "draft"+em+"text", "editable regions are left alone")
}

func TestRewriteDocumentNoDashes(t *testing.T) {
	out, n, err := RewriteDocument(blankChatPage, testSelectors(t), ResolvePattern(ModeBoth, ReplaceComma))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, blankChatPage, out)
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRewriteCommand(t *testing.T) {
	src := `<html><head></head><body><p>one` + em + `two` + en + `three</p></body></html>`

	out, err := runCLI(t, src, "rewrite", "--mode", "both", "--with", ReplaceDoubleHyphen, "-")
	require.NoError(t, err)
	assert.Contains(t, out, "<p>one--two--three</p>")

	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	out, err = runCLI(t, "", "rewrite", "--mode", "en", "--with", ReplaceComma, path)
	require.NoError(t, err)
	assert.Contains(t, out, "<p>one"+em+"two, three</p>")

	_, err = runCLI(t, "", "rewrite", filepath.Join(t.TempDir(), "missing.html"))
	assert.ErrorContains(t, err, "read input")
}

func TestInitSettingsCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")

	out, err := runCLI(t, "", "init-settings", path)
	require.NoError(t, err)
	assert.Contains(t, out, "enabled=true findPattern=em")

	st, err := NewFileSettingsStore(path, nil).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), st.Settings())
}
