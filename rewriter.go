package main

import (
	"log/slog"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// TextMutator changes text-node data in a way observers can see
type TextMutator interface {
	SetText(n *html.Node, value string)
}

// Rewriter applies an ActivePattern to single text nodes, never inside an
// editable region
type Rewriter struct {
	mutator  TextMutator
	editable goquery.Matcher
	log      *slog.Logger
}

// NewRewriter creates a rewriter that writes through m
func NewRewriter(m TextMutator, editable goquery.Matcher, log *slog.Logger) *Rewriter {
	return &Rewriter{mutator: m, editable: editable, log: log}
}

// InEditableRegion reports whether n or one of its ancestors is editable
func (r *Rewriter) InEditableRegion(n *html.Node) bool {
	if n == nil {
		return false
	}
	start := n
	if n.Type != html.ElementNode {
		start = n.Parent
	}
	if start == nil {
		return false
	}
	return goquery.NewDocumentFromNode(start).Selection.ClosestMatcher(r.editable).Length() > 0
}

// Rewrite replaces matches in the text node and reports whether it changed
func (r *Rewriter) Rewrite(n *html.Node, p *ActivePattern) bool {
	if n == nil || n.Type != html.TextNode {
		return false
	}
	if !p.Matches(n.Data) {
		return false
	}
	if r.InEditableRegion(n) {
		r.log.Debug("skipping editable text", "text", shorten(n.Data, 40))
		return false
	}
	r.log.Debug("replacing dashes", "text", shorten(n.Data, 40))
	r.mutator.SetText(n, p.Apply(n.Data))
	return true
}

// RewriteString is the pure form used on clipboard payloads
func RewriteString(s string, p *ActivePattern) string {
	if !p.Matches(s) {
		return s
	}
	return p.Apply(s)
}

func shorten(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
