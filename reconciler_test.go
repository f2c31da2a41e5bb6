package main

import (
	"testing"
	"time"
)

type reconcilerFixture struct {
	page     *Page
	sched    *manualScheduler
	settings *SettingsCell
	rec      *MutationReconciler
}

func newReconcilerFixture(t *testing.T, src string) *reconcilerFixture {
	t.Helper()
	p := newTestPage(t, src)
	sched := newManualScheduler()
	sched.checkpoint = p.FlushMutations
	settings := NewSettingsCell(DefaultSettings())
	rw := NewRewriter(p, testSelectors(t).Editable, discardLogger())
	return &reconcilerFixture{
		page:     p,
		sched:    sched,
		settings: settings,
		rec:      NewMutationReconciler(p, rw, settings, sched, DefaultRescanDelay, discardLogger()),
	}
}

func TestReconcilerInitialScan(t *testing.T) {
	f := newReconcilerFixture(t, chatPage)
	f.rec.Activate(find(t, f.page, "#thread"))

	if got := textOf(t, f.page, "#p1"); got != "The quick, brown, fox" {
		t.Errorf("Expected existing text rewritten, got %q", got)
	}
	if got := textOf(t, f.page, "#prompt"); got != "draft"+em+"text" {
		t.Errorf("Expected prompt untouched, got %q", got)
	}
	if !f.rec.Active() || f.page.ObserverCount() != 1 {
		t.Error("Expected one observer attached")
	}
}

func TestReconcilerStreamedText(t *testing.T) {
	f := newReconcilerFixture(t, chatPage)
	f.rec.Activate(find(t, f.page, "#thread"))
	p1 := find(t, f.page, "#p1")

	for _, chunk := range []string{" jumps", em, "over", em, "the dog"} {
		f.page.AppendText(p1, chunk)
		f.page.FlushMutations()
	}

	if got := textOf(t, f.page, "#p1"); got != "The quick, brown, fox jumps, over, the dog" {
		t.Errorf("Expected streamed text rewritten, got %q", got)
	}
}

func TestReconcilerAddedSubtree(t *testing.T) {
	f := newReconcilerFixture(t, chatPage)
	f.rec.Activate(find(t, f.page, "#thread"))

	_, err := f.page.AppendHTML(find(t, f.page, "#thread"),
		`<div id="msg2"><p id="p2">second`+em+`message</p><ul><li id="li">item`+em+`one</li></ul></div>`)
	if err != nil {
		t.Fatalf("AppendHTML failed: %v", err)
	}
	f.page.AppendText(find(t, f.page, "#thread"), "loose"+em+"text")
	f.page.FlushMutations()

	if got := textOf(t, f.page, "#p2"); got != "second, message" {
		t.Errorf("Expected added paragraph rewritten, got %q", got)
	}
	if got := textOf(t, f.page, "#li"); got != "item, one" {
		t.Errorf("Expected nested list item rewritten, got %q", got)
	}
	last := find(t, f.page, "#thread").LastChild
	if last.Data != "loose, text" {
		t.Errorf("Expected added text node rewritten, got %q", last.Data)
	}
}

func TestReconcilerSkipsEditable(t *testing.T) {
	f := newReconcilerFixture(t, chatPage)
	f.rec.Activate(find(t, f.page, "#thread"))

	f.page.AppendText(find(t, f.page, "#prompt"), " more"+em+"typing")
	_, err := f.page.AppendHTML(find(t, f.page, "#thread"), `<div contenteditable="true" id="ed"><p id="edp">a`+em+`b</p></div>`)
	if err != nil {
		t.Fatalf("AppendHTML failed: %v", err)
	}
	f.page.FlushMutations()

	if got := textOf(t, f.page, "#prompt"); got != "draft"+em+"text more"+em+"typing" {
		t.Errorf("Expected typing untouched, got %q", got)
	}
	if got := textOf(t, f.page, "#edp"); got != "a"+em+"b" {
		t.Errorf("Expected editable subtree untouched, got %q", got)
	}
}

func TestReconcilerIgnoresOutsideRoot(t *testing.T) {
	f := newReconcilerFixture(t, `<html><body><div id="thread"></div><div id="sidebar">x</div></body></html>`)
	f.rec.Activate(find(t, f.page, "#thread"))

	f.page.AppendText(find(t, f.page, "#sidebar"), em)
	f.page.FlushMutations()

	if got := textOf(t, f.page, "#sidebar"); got != "x"+em {
		t.Errorf("Expected text outside the root untouched, got %q", got)
	}
}

func TestReconcilerUsesCurrentSettings(t *testing.T) {
	f := newReconcilerFixture(t, chatPage)
	f.rec.Activate(find(t, f.page, "#thread"))
	p1 := find(t, f.page, "#p1")

	f.settings.Set(Settings{Enabled: true, FindPattern: ModeEn, Replacement: ReplaceDoubleHyphen})
	f.page.AppendText(p1, " up"+en+"to"+en+"date")
	f.page.FlushMutations()

	if got := textOf(t, f.page, "#p1"); got != "The quick, brown, fox up--to--date" {
		t.Errorf("Expected new pattern applied, got %q", got)
	}
}

func TestReconcilerDeactivate(t *testing.T) {
	f := newReconcilerFixture(t, chatPage)
	f.rec.Activate(find(t, f.page, "#thread"))
	f.rec.Deactivate()
	f.rec.Deactivate()

	if f.rec.Active() || f.page.ObserverCount() != 0 {
		t.Error("Expected observer detached")
	}
	if f.sched.Pending() != 0 {
		t.Errorf("Expected the late rescan cancelled, %d timers pending", f.sched.Pending())
	}

	f.page.AppendText(find(t, f.page, "#p1"), em)
	f.page.FlushMutations()
	if got := textOf(t, f.page, "#p1"); got != "The quick, brown, fox"+em {
		t.Errorf("Expected no rewrite while inactive, got %q", got)
	}
}

func TestReconcilerActivateTwice(t *testing.T) {
	f := newReconcilerFixture(t, chatPage)
	root := find(t, f.page, "#thread")
	f.rec.Activate(root)
	f.rec.Activate(root)

	if f.page.ObserverCount() != 1 {
		t.Errorf("Expected 1 observer, got %d", f.page.ObserverCount())
	}
	if f.sched.Pending() != 1 {
		t.Errorf("Expected 1 late rescan, got %d", f.sched.Pending())
	}
}

func TestReconcilerLateRescan(t *testing.T) {
	f := newReconcilerFixture(t, chatPage)
	f.rec.Activate(find(t, f.page, "#thread"))

	// a renderer that swaps data without a mutation record
	p1 := find(t, f.page, "#p1").FirstChild
	p1.Data = "late" + em + "render"

	f.sched.Advance(DefaultRescanDelay - time.Millisecond)
	if p1.Data != "late"+em+"render" {
		t.Fatal("Expected no rescan before the delay")
	}
	f.sched.Advance(time.Millisecond)
	if p1.Data != "late, render" {
		t.Errorf("Expected late rescan to rewrite, got %q", p1.Data)
	}
}

func TestReconcilerLateRescanSkipsDetachedRoot(t *testing.T) {
	f := newReconcilerFixture(t, chatPage)
	root := find(t, f.page, "#thread")
	f.rec.Activate(root)

	p1 := find(t, f.page, "#p1").FirstChild
	f.page.RemoveChild(root.Parent, root)
	p1.Data = "gone" + em + "root"

	f.sched.Advance(time.Second)
	if p1.Data != "gone"+em+"root" {
		t.Errorf("Expected detached root not to be rescanned, got %q", p1.Data)
	}
}
