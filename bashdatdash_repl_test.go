package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input  string
		verb   string
		object string
		args   []string
	}{
		{"copy", "copy", "", nil},
		{"SHOW status", "show", "status", []string{}},
		{"set replacement semicolon", "set", "replacement", []string{"semicolon"}},
		{`append #thread "<p>hello world</p>"`, "append", "#thread", []string{"<p>hello world</p>"}},
		{`click 'button[data-testid="copy-turn-action-button"]'`, "click", `button[data-testid="copy-turn-action-button"]`, []string{}},
		{`stream #p1 a\ b`, "stream", "#p1", []string{"a b"}},
	}

	for _, tt := range tests {
		cmd, err := ParseCommand(tt.input)
		if err != nil {
			t.Fatalf("ParseCommand(%q) failed: %v", tt.input, err)
		}
		if cmd.Verb != tt.verb || cmd.Object != tt.object {
			t.Errorf("ParseCommand(%q) = %q %q, want %q %q", tt.input, cmd.Verb, cmd.Object, tt.verb, tt.object)
		}
		if len(cmd.Args) != len(tt.args) || (len(tt.args) > 0 && !reflect.DeepEqual(cmd.Args, tt.args)) {
			t.Errorf("ParseCommand(%q) args = %v, want %v", tt.input, cmd.Args, tt.args)
		}
	}

	if _, err := ParseCommand("   "); err == nil {
		t.Error("Expected error for empty command")
	}
}

func TestSuggestVerb(t *testing.T) {
	tests := map[string]string{
		"hlp": "help",
		"cpy": "copy",
		"sho": "show",
		"zzz": "",
	}
	for input, want := range tests {
		if got := suggestVerb(input); got != want {
			t.Errorf("suggestVerb(%q) = %q, want %q", input, got, want)
		}
	}
}

func newREPLFixture(t *testing.T) (*testEngine, *bytes.Buffer, *REPLFormatter) {
	t.Helper()
	e := newTestEngine(t, chatPage, newMemoryStore(true, "em", ReplaceComma, true))
	if err := e.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	var out bytes.Buffer
	return e, &out, NewREPLFormatter(&out, false)
}

func runREPLLine(t *testing.T, line string, cmds DashCommands, f *REPLFormatter) error {
	t.Helper()
	cmd, err := ParseCommand(line)
	if err != nil {
		t.Fatalf("ParseCommand(%q) failed: %v", line, err)
	}
	return ExecuteREPLCommand(cmd, cmds, f)
}

func TestREPLSession(t *testing.T) {
	e, out, f := newREPLFixture(t)

	lines := []string{
		"stream #p1 " + em + "jumped",
		"set replacement hyphen",
		"set pattern both",
		"append #thread '<p id=\"r\">a" + en + "b</p>'",
		"select #prompt",
		"copy",
		"unselect",
		"click #copy1",
		"show text #r",
	}
	for _, line := range lines {
		if err := runREPLLine(t, line, e.Engine, f); err != nil {
			t.Fatalf("%q failed: %v", line, err)
		}
	}

	if got := textOf(t, e.Page(), "#p1"); got != "The quick, brown, fox, jumped" {
		t.Errorf("Expected streamed text rewritten, got %q", got)
	}
	if got := textOf(t, e.Page(), "#r"); got != "a--b" {
		t.Errorf("Expected appended text rewritten with the new settings, got %q", got)
	}
	if e.clip.Text() != "The quick, brown, fox, jumped" {
		t.Errorf("Expected the copy button to copy the message, got %q", e.clip.Text())
	}

	output := out.String()
	for _, want := range []string{"replaceWith=\"--\"", "findPattern=both", "draft--text", "default prevented: true", "a--b"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, output)
		}
	}
}

func TestREPLShowAndToggle(t *testing.T) {
	e, out, f := newREPLFixture(t)

	for _, line := range []string{"disable", "show status", "show settings", "enable", "rewrite one" + em + "two"} {
		if err := runREPLLine(t, line, e.Engine, f); err != nil {
			t.Fatalf("%q failed: %v", line, err)
		}
	}

	output := out.String()
	for _, want := range []string{"Engine disabled", "observer attached", "\"findPattern\": \"em\"", "Engine enabled", "one, two"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, output)
		}
	}
	if !e.Controller().State().Active {
		t.Error("Expected the engine active again")
	}
}

func TestREPLLoad(t *testing.T) {
	e, _, f := newREPLFixture(t)

	path := filepath.Join(t.TempDir(), "page.html")
	src := `<html><body><div id="thread"><p id="q">loaded` + em + `page</p></div></body></html>`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := runREPLLine(t, "load "+path, e.Engine, f); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := textOf(t, e.Page(), "#q"); got != "loaded, page" {
		t.Errorf("Expected loaded page rewritten, got %q", got)
	}
}

func TestREPLErrors(t *testing.T) {
	e, _, f := newREPLFixture(t)

	tests := []struct {
		line string
		want string
	}{
		{"hlp", "did you mean 'help'"},
		{"append", "usage: append"},
		{"set enabled maybe", "expected on or off"},
		{"set colour red", "unknown setting"},
		{"show nothing", "unknown show target"},
		{"click #nope", ErrNoMatch.Error()},
		{"load", "usage: load"},
	}
	for _, tt := range tests {
		err := runREPLLine(t, tt.line, e.Engine, f)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%q: expected error containing %q, got %v", tt.line, tt.want, err)
		}
	}

	if err := runREPLLine(t, "exit", e.Engine, f); !errors.Is(err, errExit) {
		t.Errorf("Expected errExit, got %v", err)
	}
}

func TestREPLHelp(t *testing.T) {
	var out bytes.Buffer
	showHelp(&out, "")
	if !strings.Contains(out.String(), "click <selector>") {
		t.Error("Expected general help to list click")
	}

	out.Reset()
	showHelp(&out, "set")
	if !strings.Contains(out.String(), "set pattern em|en|both") {
		t.Errorf("Expected set help, got %q", out.String())
	}
}
