package main

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/atotto/clipboard"
)

// ClipboardWriter is where copied text ends up
type ClipboardWriter interface {
	WriteText(text string) error
}

// ErrClipboardUnavailable is returned when no OS clipboard tool is present
var ErrClipboardUnavailable = errors.New("system clipboard unavailable")

// SystemClipboard writes to the OS clipboard
type SystemClipboard struct{}

// WriteText implements ClipboardWriter
func (SystemClipboard) WriteText(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	return clipboard.WriteAll(text)
}

// MemoryClipboard keeps the copied text in memory
type MemoryClipboard struct {
	mu     sync.Mutex
	text   string
	writes int
	err    error
}

// WriteText implements ClipboardWriter
func (c *MemoryClipboard) WriteText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.text = text
	c.writes++
	return nil
}

// Text returns the last written text
func (c *MemoryClipboard) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Writes returns how many writes succeeded
func (c *MemoryClipboard) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// FailWith makes subsequent writes fail with err (nil restores writes)
func (c *MemoryClipboard) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// ClipboardInterceptor rewrites the payload of the native copy gesture
type ClipboardInterceptor struct {
	page     *Page
	settings *SettingsCell
	log      *slog.Logger
	id       ListenerID
}

// NewClipboardInterceptor creates a detached interceptor
func NewClipboardInterceptor(page *Page, settings *SettingsCell, log *slog.Logger) *ClipboardInterceptor {
	return &ClipboardInterceptor{page: page, settings: settings, log: log}
}

// Attached reports whether the copy listener is registered
func (c *ClipboardInterceptor) Attached() bool {
	return c.id != 0
}

// Attach registers the document-level copy listener once
func (c *ClipboardInterceptor) Attach() {
	if c.id != 0 {
		return
	}
	c.id = c.page.AddEventListener(c.page.DocumentNode(), EventCopy, false, c.handleCopy)
	c.log.Debug("clipboard interceptor attached")
}

// Detach removes the listener; safe when not attached
func (c *ClipboardInterceptor) Detach() {
	if c.id == 0 {
		return
	}
	c.page.RemoveEventListener(c.id)
	c.id = 0
	c.log.Debug("clipboard interceptor detached")
}

func (c *ClipboardInterceptor) handleCopy(ev *Event) {
	sel := c.page.Selection()
	if sel.RangeCount() == 0 {
		c.log.Debug("copy without selection")
		return
	}
	raw := sel.String()
	fixed := RewriteString(raw, c.settings.Pattern())
	c.log.Debug("copy rewritten", "raw", shorten(raw, 60), "fixed", shorten(fixed, 60))
	ev.ClipboardData.SetData("text/plain", fixed)
	ev.ClipboardData.SetData("text/html", fixed)
	ev.PreventDefault()
}
