package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MutationType classifies a MutationRecord
type MutationType int

const (
	MutationCharacterData MutationType = iota
	MutationChildList
)

// String returns the DOM name of the mutation type
func (t MutationType) String() string {
	switch t {
	case MutationCharacterData:
		return "characterData"
	case MutationChildList:
		return "childList"
	default:
		return "unknown"
	}
}

// MutationRecord describes one change to the document
type MutationRecord struct {
	Type         MutationType
	Target       *html.Node
	AddedNodes   []*html.Node
	RemovedNodes []*html.Node
	OldValue     string
}

// ObserveOptions selects which changes an Observer receives
type ObserveOptions struct {
	ChildList     bool
	CharacterData bool
	Subtree       bool
}

// Observer is a live subscription to document mutations under one node
type Observer struct {
	page     *Page
	target   *html.Node
	opts     ObserveOptions
	callback func([]MutationRecord)
	queue    []MutationRecord
}

// Disconnect stops delivery and drops any queued records. Safe to call twice.
func (o *Observer) Disconnect() {
	if o.page == nil {
		return
	}
	o.page.removeObserver(o)
	o.page = nil
	o.queue = nil
}

// Connected reports whether the observer still receives records
func (o *Observer) Connected() bool {
	return o.page != nil
}

func (o *Observer) wants(rec MutationRecord) bool {
	switch rec.Type {
	case MutationCharacterData:
		if !o.opts.CharacterData {
			return false
		}
	case MutationChildList:
		if !o.opts.ChildList {
			return false
		}
	}
	if rec.Target == o.target {
		return true
	}
	return o.opts.Subtree && isAncestor(o.target, rec.Target)
}

// Page is the in-memory document the engine works on. Its methods are not
// safe for concurrent use; everything runs on the event loop.
type Page struct {
	doc       *goquery.Document
	observers []*Observer
	listeners *ListenerRegistry
	selection *Selection
	clipboard ClipboardWriter
}

// NewPage parses src into a new page that copies into clip. A nil clip gets
// an in-memory clipboard.
func NewPage(src string, clip ClipboardWriter) (*Page, error) {
	if clip == nil {
		clip = &MemoryClipboard{}
	}
	p := &Page{
		listeners: NewListenerRegistry(),
		clipboard: clip,
	}
	if err := p.Load(src); err != nil {
		return nil, err
	}
	return p, nil
}

// Load replaces the whole document. Observers and listeners bound to the old
// document are dropped.
func (p *Page) Load(src string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}
	for _, o := range append([]*Observer{}, p.observers...) {
		o.Disconnect()
	}
	p.doc = doc
	p.listeners.Reset()
	p.selection = nil
	return nil
}

// Document returns the goquery view of the page
func (p *Page) Document() *goquery.Document {
	return p.doc
}

// DocumentNode returns the root node of the tree
func (p *Page) DocumentNode() *html.Node {
	return p.doc.Nodes[0]
}

// Body returns the <body> element, or nil
func (p *Page) Body() *html.Node {
	sel := p.doc.Find("body")
	if sel.Length() == 0 {
		return nil
	}
	return sel.Nodes[0]
}

// Clipboard returns the clipboard copy gestures write to
func (p *Page) Clipboard() ClipboardWriter {
	return p.clipboard
}

// QuerySelector returns the first element matching m, or nil
func (p *Page) QuerySelector(m goquery.Matcher) *html.Node {
	sel := p.doc.FindMatcher(m)
	if sel.Length() == 0 {
		return nil
	}
	return sel.Nodes[0]
}

// Contains reports whether n is still attached to the document
func (p *Page) Contains(n *html.Node) bool {
	return n != nil && (n == p.DocumentNode() || isAncestor(p.DocumentNode(), n))
}

// Observe starts delivering mutations under target to cb
func (p *Page) Observe(target *html.Node, opts ObserveOptions, cb func([]MutationRecord)) *Observer {
	o := &Observer{page: p, target: target, opts: opts, callback: cb}
	p.observers = append(p.observers, o)
	return o
}

// ObserverCount returns the number of connected observers
func (p *Page) ObserverCount() int {
	return len(p.observers)
}

func (p *Page) removeObserver(o *Observer) {
	for i, cur := range p.observers {
		if cur == o {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			return
		}
	}
}

func (p *Page) enqueue(rec MutationRecord) {
	for _, o := range p.observers {
		if o.wants(rec) {
			o.queue = append(o.queue, rec)
		}
	}
}

// HasPendingMutations reports whether any observer has undelivered records
func (p *Page) HasPendingMutations() bool {
	for _, o := range p.observers {
		if len(o.queue) > 0 {
			return true
		}
	}
	return false
}

// FlushMutations delivers queued records, one batch per observer, until no
// observer has anything left. Mutations made by callbacks are delivered in
// the same checkpoint.
func (p *Page) FlushMutations() {
	for p.HasPendingMutations() {
		for _, o := range append([]*Observer{}, p.observers...) {
			if len(o.queue) == 0 || o.page == nil {
				continue
			}
			batch := o.queue
			o.queue = nil
			o.callback(batch)
		}
	}
}

// SetText replaces the data of a text node
func (p *Page) SetText(n *html.Node, value string) {
	if n.Type != html.TextNode || n.Data == value {
		return
	}
	old := n.Data
	n.Data = value
	p.enqueue(MutationRecord{Type: MutationCharacterData, Target: n, OldValue: old})
}

// AppendChild attaches child as the last child of parent
func (p *Page) AppendChild(parent, child *html.Node) {
	if child.Parent != nil {
		p.RemoveChild(child.Parent, child)
	}
	parent.AppendChild(child)
	p.enqueue(MutationRecord{Type: MutationChildList, Target: parent, AddedNodes: []*html.Node{child}})
}

// RemoveChild detaches child from parent
func (p *Page) RemoveChild(parent, child *html.Node) {
	if child.Parent != parent {
		return
	}
	parent.RemoveChild(child)
	p.enqueue(MutationRecord{Type: MutationChildList, Target: parent, RemovedNodes: []*html.Node{child}})
}

// AppendHTML parses fragment in the context of parent and appends the
// resulting nodes as a single childList mutation
func (p *Page) AppendHTML(parent *html.Node, fragment string) ([]*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), fragmentContext(parent))
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	if len(nodes) > 0 {
		p.enqueue(MutationRecord{Type: MutationChildList, Target: parent, AddedNodes: nodes})
	}
	return nodes, nil
}

// AppendText appends text to the element. When the last child is already a
// text node its data grows in place, like a streaming renderer would do.
func (p *Page) AppendText(parent *html.Node, text string) *html.Node {
	if last := parent.LastChild; last != nil && last.Type == html.TextNode {
		p.SetText(last, last.Data+text)
		return last
	}
	n := &html.Node{Type: html.TextNode, Data: text}
	p.AppendChild(parent, n)
	return n
}

// SetTextContent replaces all children of el with one text node
func (p *Page) SetTextContent(el *html.Node, text string) *html.Node {
	for c := el.FirstChild; c != nil; {
		next := c.NextSibling
		p.RemoveChild(el, c)
		c = next
	}
	n := &html.Node{Type: html.TextNode, Data: text}
	p.AppendChild(el, n)
	return n
}

// HTML renders n (or the whole document when n is nil)
func (p *Page) HTML(n *html.Node) (string, error) {
	if n == nil {
		n = p.DocumentNode()
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fragmentContext returns a context element usable by html.ParseFragment
func fragmentContext(n *html.Node) *html.Node {
	if n.Type == html.ElementNode {
		return n
	}
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

// isAncestor reports whether a is a strict ancestor of n
func isAncestor(a, n *html.Node) bool {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if cur == a {
			return true
		}
	}
	return false
}
