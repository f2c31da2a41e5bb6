package main

import "golang.org/x/net/html"

// TextWalker enumerates the text nodes under a root in document order. It is
// lazy and single-use: once Next returns nil it keeps returning nil.
type TextWalker struct {
	root *html.Node
	cur  *html.Node
	done bool
}

// NewTextWalker creates a walker positioned before the first node under root
func NewTextWalker(root *html.Node) *TextWalker {
	return &TextWalker{root: root, cur: root}
}

// Next returns the following text node, or nil when the walk is over
func (w *TextWalker) Next() *html.Node {
	if w.done || w.root == nil {
		return nil
	}
	for {
		w.cur = w.advance(w.cur)
		if w.cur == nil {
			w.done = true
			return nil
		}
		if w.cur.Type == html.TextNode {
			return w.cur
		}
	}
}

func (w *TextWalker) advance(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for n != nil && n != w.root {
		if n.NextSibling != nil {
			return n.NextSibling
		}
		n = n.Parent
	}
	return nil
}

// ScanAndRewrite rewrites every text node under root and returns how many
// of them changed. A text root is rewritten directly.
func ScanAndRewrite(root *html.Node, r *Rewriter, p *ActivePattern) int {
	if root == nil {
		return 0
	}
	if root.Type == html.TextNode {
		if r.Rewrite(root, p) {
			return 1
		}
		return 0
	}
	count := 0
	w := NewTextWalker(root)
	for n := w.Next(); n != nil; n = w.Next() {
		if r.Rewrite(n, p) {
			count++
		}
	}
	return count
}
