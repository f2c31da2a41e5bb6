package main

import (
	"errors"
	"log/slog"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrMessageNotFound is logged when a copy button has no enclosing message
var ErrMessageNotFound = errors.New("message container not found")

// CopyActionInterceptor takes over the app's per-message copy button. The
// text is read from the live DOM at click time, so it does not depend on how
// far the reconciler has got.
type CopyActionInterceptor struct {
	page      *Page
	settings  *SettingsCell
	selectors *Selectors
	log       *slog.Logger

	root *html.Node
	id   ListenerID
}

// NewCopyActionInterceptor creates a detached interceptor
func NewCopyActionInterceptor(page *Page, settings *SettingsCell, selectors *Selectors, log *slog.Logger) *CopyActionInterceptor {
	return &CopyActionInterceptor{page: page, settings: settings, selectors: selectors, log: log}
}

// Attached reports whether the delegated listener is registered
func (c *CopyActionInterceptor) Attached() bool {
	return c.id != 0
}

// Root returns the element the listener is bound to
func (c *CopyActionInterceptor) Root() *html.Node {
	return c.root
}

// Attach registers a capturing click listener on root once
func (c *CopyActionInterceptor) Attach(root *html.Node) {
	if c.id != 0 {
		return
	}
	c.root = root
	c.id = c.page.AddEventListener(root, EventClick, true, c.handleClick)
	c.log.Debug("copy button listener attached")
}

// Detach removes the listener; safe when not attached
func (c *CopyActionInterceptor) Detach() {
	if c.id == 0 {
		return
	}
	c.page.RemoveEventListener(c.id)
	c.id = 0
	c.root = nil
	c.log.Debug("copy button listener detached")
}

func (c *CopyActionInterceptor) handleClick(ev *Event) {
	target := goquery.NewDocumentFromNode(ev.Target).Selection
	button := target.ClosestMatcher(c.selectors.CopyButton)
	if button.Length() == 0 {
		return
	}

	ev.PreventDefault()
	ev.StopImmediatePropagation()

	text, err := c.MessageText(button.Nodes[0])
	if err != nil {
		c.log.Warn("copy button clicked but no message text found", "error", err)
		return
	}

	fixed := RewriteString(text, c.settings.Pattern())
	c.log.Debug("copy button rewritten", "raw", shorten(text, 60), "fixed", shorten(fixed, 60))
	if err := c.page.Clipboard().WriteText(fixed); err != nil {
		c.log.Error("failed to copy text via custom handler", "error", err)
		return
	}
	c.log.Debug("text copied via custom handler")
}

// MessageText returns the full rendered text of the message that contains
// button. The content element inside the container is preferred; the whole
// container is used when it has none.
func (c *CopyActionInterceptor) MessageText(button *html.Node) (string, error) {
	container := goquery.NewDocumentFromNode(button).Selection.ClosestMatcher(c.selectors.MessageContainer)
	if container.Length() == 0 {
		return "", ErrMessageNotFound
	}
	content := container.First().FindMatcher(c.selectors.MessageContent)
	if content.Length() > 0 {
		return content.Text(), nil
	}
	return container.First().Text(), nil
}
