package main

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
)

// Event types the page dispatches
const (
	EventClick = "click"
	EventCopy  = "copy"
)

// ErrNoSelection is returned by a copy gesture when nothing is selected
var ErrNoSelection = errors.New("no selection")

// EventPhase is the dispatch phase a listener is invoked in
type EventPhase int

const (
	PhaseCapture EventPhase = iota + 1
	PhaseTarget
	PhaseBubble
)

// DataTransfer carries the clipboard payload of a copy event
type DataTransfer struct {
	data map[string]string
}

// NewDataTransfer creates an empty payload
func NewDataTransfer() *DataTransfer {
	return &DataTransfer{data: make(map[string]string)}
}

// SetData stores value under a MIME type
func (d *DataTransfer) SetData(mime, value string) {
	d.data[mime] = value
}

// GetData returns the value stored for a MIME type
func (d *DataTransfer) GetData(mime string) string {
	return d.data[mime]
}

// Len returns the number of stored MIME types
func (d *DataTransfer) Len() int {
	return len(d.data)
}

// Event is dispatched through the tree in capture, target and bubble phases
type Event struct {
	Type          string
	Target        *html.Node
	CurrentTarget *html.Node
	Phase         EventPhase
	ClipboardData *DataTransfer

	defaultPrevented   bool
	propagationStopped bool
	immediateStopped   bool
}

// PreventDefault suppresses the host's default action
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// StopPropagation stops dispatch after the current node
func (e *Event) StopPropagation() { e.propagationStopped = true }

// StopImmediatePropagation stops dispatch right after the current listener
func (e *Event) StopImmediatePropagation() {
	e.propagationStopped = true
	e.immediateStopped = true
}

// DefaultPrevented reports whether PreventDefault was called
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// ListenerID identifies one registration. The zero value is never issued.
type ListenerID uint64

// EventHandler is invoked for a dispatched event
type EventHandler func(*Event)

type listenerKey struct {
	target    *html.Node
	eventType string
	capture   bool
}

type listenerEntry struct {
	id      ListenerID
	handler EventHandler
}

// ListenerRegistry stores event listeners keyed by (target, type, phase).
// Removal goes through the ListenerID, never through function identity.
type ListenerRegistry struct {
	byKey  map[listenerKey][]listenerEntry
	keys   map[ListenerID]listenerKey
	nextID ListenerID
}

// NewListenerRegistry creates an empty registry
func NewListenerRegistry() *ListenerRegistry {
	r := &ListenerRegistry{}
	r.Reset()
	return r
}

// Reset drops every registration
func (r *ListenerRegistry) Reset() {
	r.byKey = make(map[listenerKey][]listenerEntry)
	r.keys = make(map[ListenerID]listenerKey)
}

// Add registers h and returns its id
func (r *ListenerRegistry) Add(target *html.Node, eventType string, capture bool, h EventHandler) ListenerID {
	r.nextID++
	key := listenerKey{target: target, eventType: eventType, capture: capture}
	r.byKey[key] = append(r.byKey[key], listenerEntry{id: r.nextID, handler: h})
	r.keys[r.nextID] = key
	return r.nextID
}

// Remove unregisters id and reports whether it was registered
func (r *ListenerRegistry) Remove(id ListenerID) bool {
	key, ok := r.keys[id]
	if !ok {
		return false
	}
	delete(r.keys, id)
	entries := r.byKey[key]
	for i, e := range entries {
		if e.id == id {
			entries = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(r.byKey, key)
	} else {
		r.byKey[key] = entries
	}
	return true
}

// Count returns the number of listeners registered for the key
func (r *ListenerRegistry) Count(target *html.Node, eventType string, capture bool) int {
	return len(r.byKey[listenerKey{target: target, eventType: eventType, capture: capture}])
}

// Total returns the number of registrations for eventType on any target
func (r *ListenerRegistry) Total(eventType string) int {
	n := 0
	for key, entries := range r.byKey {
		if key.eventType == eventType {
			n += len(entries)
		}
	}
	return n
}

func (r *ListenerRegistry) snapshot(target *html.Node, eventType string, capture bool) []listenerEntry {
	entries := r.byKey[listenerKey{target: target, eventType: eventType, capture: capture}]
	return append([]listenerEntry(nil), entries...)
}

func (r *ListenerRegistry) live(id ListenerID) bool {
	_, ok := r.keys[id]
	return ok
}

// AddEventListener registers h on target
func (p *Page) AddEventListener(target *html.Node, eventType string, capture bool, h EventHandler) ListenerID {
	return p.listeners.Add(target, eventType, capture, h)
}

// RemoveEventListener unregisters id
func (p *Page) RemoveEventListener(id ListenerID) bool {
	return p.listeners.Remove(id)
}

// Listeners exposes the registry for inspection
func (p *Page) Listeners() *ListenerRegistry {
	return p.listeners
}

// Dispatch runs ev through capture, target and bubble phases and returns
// whether the default action should proceed
func (p *Page) Dispatch(target *html.Node, ev *Event) bool {
	ev.Target = target

	var path []*html.Node
	for n := target.Parent; n != nil; n = n.Parent {
		path = append(path, n)
	}

	for i := len(path) - 1; i >= 0 && !ev.propagationStopped; i-- {
		p.invoke(path[i], ev, true, PhaseCapture)
	}
	if !ev.propagationStopped {
		p.invoke(target, ev, true, PhaseTarget)
	}
	if !ev.propagationStopped {
		p.invoke(target, ev, false, PhaseTarget)
	}
	for i := 0; i < len(path) && !ev.propagationStopped; i++ {
		p.invoke(path[i], ev, false, PhaseBubble)
	}

	ev.CurrentTarget = nil
	return !ev.defaultPrevented
}

func (p *Page) invoke(node *html.Node, ev *Event, capture bool, phase EventPhase) {
	ev.CurrentTarget = node
	ev.Phase = phase
	for _, e := range p.listeners.snapshot(node, ev.Type, capture) {
		if !p.listeners.live(e.id) {
			continue
		}
		e.handler(ev)
		if ev.immediateStopped {
			return
		}
	}
}

// Click dispatches a click on target
func (p *Page) Click(target *html.Node) *Event {
	ev := &Event{Type: EventClick}
	p.Dispatch(target, ev)
	return ev
}

// Range is a selection between two text positions, offsets counted in runes
type Range struct {
	StartNode   *html.Node
	StartOffset int
	EndNode     *html.Node
	EndOffset   int
}

// Selection is the current text selection of the page
type Selection struct {
	page   *Page
	ranges []Range
}

// RangeCount returns the number of ranges
func (s *Selection) RangeCount() int {
	if s == nil {
		return 0
	}
	return len(s.ranges)
}

// String returns the selected text in document order
func (s *Selection) String() string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	for _, r := range s.ranges {
		s.page.writeRange(&b, r)
	}
	return b.String()
}

// Anchor returns the node the selection starts in
func (s *Selection) Anchor() *html.Node {
	if s.RangeCount() == 0 {
		return nil
	}
	return s.ranges[0].StartNode
}

// Selection returns the current selection (nil when nothing is selected)
func (p *Page) Selection() *Selection {
	return p.selection
}

// SetSelection replaces the selection with r
func (p *Page) SetSelection(r Range) {
	p.selection = &Selection{page: p, ranges: []Range{r}}
}

// SelectNodeContents selects all text under el
func (p *Page) SelectNodeContents(el *html.Node) bool {
	var first, last *html.Node
	w := NewTextWalker(el)
	for n := w.Next(); n != nil; n = w.Next() {
		if first == nil {
			first = n
		}
		last = n
	}
	if first == nil {
		return false
	}
	p.SetSelection(Range{StartNode: first, EndNode: last, EndOffset: len([]rune(last.Data))})
	return true
}

// ClearSelection removes the selection
func (p *Page) ClearSelection() {
	p.selection = nil
}

func (p *Page) writeRange(b *strings.Builder, r Range) {
	w := NewTextWalker(p.DocumentNode())
	inside := false
	for n := w.Next(); n != nil; n = w.Next() {
		if n == r.StartNode {
			inside = true
		}
		if !inside {
			continue
		}
		runes := []rune(n.Data)
		from, to := 0, len(runes)
		if n == r.StartNode {
			from = clamp(r.StartOffset, 0, len(runes))
		}
		if n == r.EndNode {
			to = clamp(r.EndOffset, from, len(runes))
		}
		b.WriteString(string(runes[from:to]))
		if n == r.EndNode {
			return
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Copy performs the user's copy gesture: a copy event is dispatched at the
// selection (or the body) and the resulting plain text lands on the clipboard
func (p *Page) Copy() (*DataTransfer, error) {
	target := p.selection.Anchor()
	if target == nil {
		target = p.Body()
	}
	if target == nil {
		target = p.DocumentNode()
	}

	ev := &Event{Type: EventCopy, ClipboardData: NewDataTransfer()}
	if p.Dispatch(target, ev) {
		if p.selection.RangeCount() == 0 {
			return ev.ClipboardData, ErrNoSelection
		}
		ev.ClipboardData = NewDataTransfer()
		ev.ClipboardData.SetData("text/plain", p.selection.String())
	}

	if p.clipboard != nil && ev.ClipboardData.Len() > 0 {
		if err := p.clipboard.WriteText(ev.ClipboardData.GetData("text/plain")); err != nil {
			return ev.ClipboardData, err
		}
	}
	return ev.ClipboardData, nil
}
