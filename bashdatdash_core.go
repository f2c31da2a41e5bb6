package main

import (
	"errors"
	"fmt"

	"golang.org/x/net/html"
)

// ============================================================================
// Page Methods
// ============================================================================

// Each mutating method ends with a mutation checkpoint, the same point the
// event loop flushes at after a task.

// AppendHTML appends a fragment to the first element matching selector
func (e *Engine) AppendHTML(selector, fragment string) error {
	defer e.page.FlushMutations()
	el, err := e.query(selector)
	if err != nil {
		return err
	}
	_, err = e.page.AppendHTML(el, fragment)
	return err
}

// AppendText streams text into the first element matching selector
func (e *Engine) AppendText(selector, text string) error {
	defer e.page.FlushMutations()
	el, err := e.query(selector)
	if err != nil {
		return err
	}
	e.page.AppendText(el, text)
	return nil
}

// SetText replaces the text content of the first matching element
func (e *Engine) SetText(selector, text string) error {
	defer e.page.FlushMutations()
	el, err := e.query(selector)
	if err != nil {
		return err
	}
	e.page.SetTextContent(el, text)
	return nil
}

// ============================================================================
// User Action Methods
// ============================================================================

// SelectText selects all text of the first matching element
func (e *Engine) SelectText(selector string) error {
	el, err := e.query(selector)
	if err != nil {
		return err
	}
	if !e.page.SelectNodeContents(el) {
		return fmt.Errorf("no text under %s", selector)
	}
	return nil
}

// ClearSelection removes the selection
func (e *Engine) ClearSelection() error {
	e.page.ClearSelection()
	return nil
}

// Copy performs the copy gesture over the current selection
func (e *Engine) Copy() (CopyResult, error) {
	defer e.page.FlushMutations()
	dt, err := e.page.Copy()
	if err != nil {
		return CopyResult{}, err
	}
	return CopyResult{
		Plain:     dt.GetData("text/plain"),
		HTML:      dt.GetData("text/html"),
		Clipboard: e.clipboardText(),
	}, nil
}

// Click dispatches a click on the first matching element
func (e *Engine) Click(selector string) (ClickResult, error) {
	defer e.page.FlushMutations()
	el, err := e.query(selector)
	if err != nil {
		return ClickResult{}, err
	}
	ev := e.page.Click(el)
	return ClickResult{DefaultPrevented: ev.DefaultPrevented(), Clipboard: e.clipboardText()}, nil
}

// ============================================================================
// Query Methods
// ============================================================================

// GetHTML renders the first matching element, or the document for ""
func (e *Engine) GetHTML(selector string) (string, error) {
	if selector == "" {
		return e.page.HTML(nil)
	}
	el, err := e.query(selector)
	if err != nil {
		return "", err
	}
	return e.page.HTML(el)
}

// GetText returns the text content of the first matching element
func (e *Engine) GetText(selector string) (string, error) {
	sel := e.page.Document().Find(selector)
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoMatch, selector)
	}
	return sel.First().Text(), nil
}

// Status returns the engine state
func (e *Engine) Status() (EngineStatus, error) {
	st := e.controller.State()
	return EngineStatus{
		Active:                     st.Active,
		Locating:                   st.Locating(),
		RootFound:                  st.Root() != nil && e.page.Contains(st.Root()),
		ObserverAttached:           st.ObserverAttached,
		ClipboardListenerAttached:  st.ClipboardListenerAttached,
		CopyButtonListenerAttached: st.CopyButtonListenerAttached,
		Observers:                  e.page.ObserverCount(),
		CopyListeners:              e.page.Listeners().Total(EventCopy),
		ClickListeners:             e.page.Listeners().Total(EventClick),
		Settings:                   e.settings.Settings(),
	}, nil
}

// ============================================================================
// Settings Methods
// ============================================================================

// GetSettings returns the current settings
func (e *Engine) GetSettings() (Settings, error) {
	return e.settings.Settings(), nil
}

// UpdateSettings persists msg when the store is writable, then applies it
// like a SETTINGS_UPDATED notification
func (e *Engine) UpdateSettings(msg SettingsMessage) error {
	defer e.page.FlushMutations()
	if msg.Type == "" {
		msg.Type = MessageSettingsUpdated
	}
	if w, ok := e.store.(SettingsWriter); ok && msg.Type == MessageSettingsUpdated {
		if err := w.Update(msg); err != nil {
			return fmt.Errorf("persist settings: %w", err)
		}
	}
	e.HandleMessage(msg)
	return nil
}

// SetActive turns the engine on or off
func (e *Engine) SetActive(active bool) error {
	defer e.page.FlushMutations()
	e.controller.SetActive(active)
	return nil
}

// ============================================================================
// Helper Methods (Private)
// ============================================================================

// ErrNoMatch is returned when a selector matches nothing
var ErrNoMatch = errors.New("no element matches")

func (e *Engine) query(selector string) (*html.Node, error) {
	sel := e.page.Document().Find(selector)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, selector)
	}
	return sel.Nodes[0], nil
}

func (e *Engine) clipboardText() string {
	if mc, ok := e.page.Clipboard().(*MemoryClipboard); ok {
		return mc.Text()
	}
	return ""
}
