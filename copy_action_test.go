package main

import (
	"errors"
	"testing"
)

func newCopyActionFixture(t *testing.T, src string) (*Page, *MemoryClipboard, *CopyActionInterceptor) {
	t.Helper()
	clip := &MemoryClipboard{}
	p, err := NewPage(src, clip)
	if err != nil {
		t.Fatalf("Failed to parse page: %v", err)
	}
	c := NewCopyActionInterceptor(p, NewSettingsCell(DefaultSettings()), testSelectors(t), discardLogger())
	return p, clip, c
}

func TestCopyButtonWritesRewrittenMessage(t *testing.T) {
	p, clip, c := newCopyActionFixture(t, chatPage)
	c.Attach(find(t, p, "#thread"))

	appHandlerRan := false
	p.AddEventListener(find(t, p, "#copy1"), EventClick, false, func(*Event) { appHandlerRan = true })

	ev := p.Click(find(t, p, "#copy1"))
	if !ev.DefaultPrevented() {
		t.Error("Expected default prevented")
	}
	if appHandlerRan {
		t.Error("Expected the app's own copy handler to be suppressed")
	}
	if clip.Text() != "The quick, brown, fox" {
		t.Errorf("Expected rewritten message text, got %q", clip.Text())
	}
	if got := textOf(t, p, "#p1"); got != "The quick"+em+"brown"+em+"fox" {
		t.Errorf("Expected the page itself untouched, got %q", got)
	}
}

func TestCopyButtonInnerElementClick(t *testing.T) {
	p, clip, c := newCopyActionFixture(t, chatPage)
	c.Attach(find(t, p, "#thread"))

	p.Click(find(t, p, "#copy1-icon"))
	if clip.Text() != "The quick, brown, fox" {
		t.Errorf("Expected a click on the icon to count, got %q", clip.Text())
	}
}

func TestCopyButtonIgnoresOtherClicks(t *testing.T) {
	p, clip, c := newCopyActionFixture(t, chatPage)
	c.Attach(find(t, p, "#thread"))

	ev := p.Click(find(t, p, "#p1"))
	if ev.DefaultPrevented() {
		t.Error("Expected other clicks to pass through")
	}
	if clip.Writes() != 0 {
		t.Errorf("Expected no clipboard write, got %d", clip.Writes())
	}
}

func TestCopyButtonContainerFallback(t *testing.T) {
	src := `<html><body><div id="thread"><article><p>one` + em + `two</p>` +
		`<button data-testid="copy-turn-action-button" id="btn"></button></article></div></body></html>`
	p, clip, c := newCopyActionFixture(t, src)
	c.Attach(find(t, p, "#thread"))

	p.Click(find(t, p, "#btn"))
	if clip.Text() != "one, two" {
		t.Errorf("Expected container text, got %q", clip.Text())
	}
}

func TestCopyButtonWithoutMessage(t *testing.T) {
	src := `<html><body><div id="thread"><button data-testid="copy-turn-action-button" id="btn">x</button></div></body></html>`
	p, clip, c := newCopyActionFixture(t, src)
	c.Attach(find(t, p, "#thread"))

	if _, err := c.MessageText(find(t, p, "#btn")); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("Expected ErrMessageNotFound, got %v", err)
	}

	ev := p.Click(find(t, p, "#btn"))
	if !ev.DefaultPrevented() {
		t.Error("Expected the click to be taken over anyway")
	}
	if clip.Writes() != 0 {
		t.Errorf("Expected no clipboard write, got %d", clip.Writes())
	}
}

func TestCopyButtonClipboardFailure(t *testing.T) {
	p, clip, c := newCopyActionFixture(t, chatPage)
	c.Attach(find(t, p, "#thread"))
	clip.FailWith(ErrClipboardUnavailable)

	ev := p.Click(find(t, p, "#copy1"))
	if !ev.DefaultPrevented() {
		t.Error("Expected default prevented")
	}
	if clip.Writes() != 0 {
		t.Errorf("Expected no successful write, got %d", clip.Writes())
	}
}

func TestCopyButtonAttachOnce(t *testing.T) {
	p, _, c := newCopyActionFixture(t, chatPage)
	root := find(t, p, "#thread")
	c.Attach(root)
	c.Attach(root)

	if got := p.Listeners().Count(root, EventClick, true); got != 1 {
		t.Errorf("Expected 1 capture listener, got %d", got)
	}
	if c.Root() != root {
		t.Error("Expected listener bound to the root")
	}

	c.Detach()
	if c.Attached() || c.Root() != nil || p.Listeners().Total(EventClick) != 0 {
		t.Error("Expected listener removed")
	}
}
