package main

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/net/html"
)

// ============================================================================
// Manual Scheduler
// ============================================================================

type manualTimer struct {
	due     time.Duration
	every   time.Duration
	seq     int
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() { t.stopped = true }

// manualScheduler fires timers only when the test advances its clock. After
// every callback it runs the checkpoint hook, like the event loop does.
type manualScheduler struct {
	now        time.Duration
	seq        int
	timers     []*manualTimer
	checkpoint func()
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{}
}

func (s *manualScheduler) add(d, every time.Duration, fn func()) Timer {
	s.seq++
	t := &manualTimer{due: s.now + d, every: every, seq: s.seq, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) SetTimeout(d time.Duration, fn func()) Timer {
	return s.add(d, 0, fn)
}

func (s *manualScheduler) SetInterval(d time.Duration, fn func()) Timer {
	return s.add(d, d, fn)
}

// Advance moves the clock forward by d, firing due timers in order
func (s *manualScheduler) Advance(d time.Duration) {
	end := s.now + d
	for t := s.next(end); t != nil; t = s.next(end) {
		s.now = t.due
		if t.every > 0 {
			t.due += t.every
		} else {
			t.stopped = true
		}
		t.fn()
		if s.checkpoint != nil {
			s.checkpoint()
		}
	}
	s.now = end
}

func (s *manualScheduler) next(end time.Duration) *manualTimer {
	var best *manualTimer
	for _, t := range s.timers {
		if t.stopped || t.due > end {
			continue
		}
		if best == nil || t.due < best.due || (t.due == best.due && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

// Pending returns the number of timers that can still fire
func (s *manualScheduler) Pending() int {
	n := 0
	for _, t := range s.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// ============================================================================
// Memory Store
// ============================================================================

type memoryStore struct {
	stored  StoredSettings
	loadErr error
	marks   int
}

// writableStore also accepts settings changes, like FileSettingsStore
type writableStore struct {
	*memoryStore
	updates   int
	updateErr error
}

func (w *writableStore) Update(msg SettingsMessage) error {
	if w.updateErr != nil {
		return w.updateErr
	}
	w.updates++
	next := w.stored.Settings().Apply(msg)
	mode := string(next.FindPattern)
	w.stored.Enabled = &next.Enabled
	w.stored.FindPattern = &mode
	w.stored.ReplaceWith = &next.Replacement
	return nil
}

func newMemoryStore(enabled bool, mode, with string, onboardingShown bool) *memoryStore {
	return &memoryStore{stored: StoredSettings{
		Enabled:         &enabled,
		FindPattern:     &mode,
		ReplaceWith:     &with,
		OnboardingShown: &onboardingShown,
	}}
}

func (m *memoryStore) Load() (StoredSettings, error) {
	return m.stored, m.loadErr
}

func (m *memoryStore) MarkOnboardingShown() error {
	m.marks++
	shown := true
	m.stored.OnboardingShown = &shown
	return nil
}

var errStoreBroken = errors.New("store broken")

// ============================================================================
// Fixtures
// ============================================================================

const (
	em = "\u2014"
	en = "\u2013"
)

// chatPage is a minimal chat transcript: one assistant message with a copy
// button and a prompt box
const chatPage = `<html><head></head><body>` +
	`<div id="thread">` +
	`<div data-testid="conversation-message-1" id="msg1">` +
	`<div class="markdown prose" id="content1"><p id="p1">The quick` + em + `brown` + em + `fox</p></div>` +
	`<button data-testid="copy-turn-action-button" id="copy1"><span id="copy1-icon">Copy</span></button>` +
	`</div>` +
	`<textarea id="prompt">draft` + em + `text</textarea>` +
	`</div>` +
	`</body></html>`

const blankChatPage = `<html><head></head><body><div id="app"></div></body></html>`

type testEngine struct {
	*Engine
	sched *manualScheduler
	clip  *MemoryClipboard
}

func newTestEngine(t *testing.T, src string, store SettingsStore) *testEngine {
	t.Helper()
	clip := &MemoryClipboard{}
	page, err := NewPage(src, clip)
	if err != nil {
		t.Fatalf("Failed to parse page: %v", err)
	}
	sched := newManualScheduler()
	sched.checkpoint = page.FlushMutations

	e, err := NewEngine(DefaultConfig(), page, sched, store, discardLogger())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return &testEngine{Engine: e, sched: sched, clip: clip}
}

// find returns the first element matching selector or fails the test
func find(t *testing.T, p *Page, selector string) *html.Node {
	t.Helper()
	sel := p.Document().Find(selector)
	if sel.Length() == 0 {
		t.Fatalf("No element matches %s", selector)
	}
	return sel.Nodes[0]
}

// textOf returns the text content of the first element matching selector
func textOf(t *testing.T, p *Page, selector string) string {
	t.Helper()
	sel := p.Document().Find(selector)
	if sel.Length() == 0 {
		t.Fatalf("No element matches %s", selector)
	}
	return sel.First().Text()
}

func testSelectors(t *testing.T) *Selectors {
	t.Helper()
	s, err := DefaultConfig().Selectors.Compile()
	if err != nil {
		t.Fatalf("Failed to compile default selectors: %v", err)
	}
	return s
}
