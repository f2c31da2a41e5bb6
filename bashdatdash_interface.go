package main

// DashCommands defines every operation a client can drive the engine with.
// Both Engine (direct) and SocketClientCommands (socket wrapper) implement it,
// so the REPL and tests see the same behaviour either way.
type DashCommands interface {
	// =========================================================================
	// Page - Load and mutate the document the engine watches
	// =========================================================================

	// LoadPage replaces the whole document
	LoadPage(html string) error

	// AppendHTML appends a fragment to the first element matching selector
	AppendHTML(selector, fragment string) error

	// AppendText streams text into the first element matching selector
	AppendText(selector, text string) error

	// SetText replaces the text content of the first matching element
	SetText(selector, text string) error

	// =========================================================================
	// User actions - Selection, copy gesture and clicks
	// =========================================================================

	// SelectText selects all text of the first matching element
	SelectText(selector string) error

	// ClearSelection removes the selection
	ClearSelection() error

	// Copy performs the copy gesture over the current selection
	Copy() (CopyResult, error)

	// Click dispatches a click on the first matching element
	Click(selector string) (ClickResult, error)

	// =========================================================================
	// Queries
	// =========================================================================

	// GetHTML renders the first matching element, or the document for ""
	GetHTML(selector string) (string, error)

	// GetText returns the text content of the first matching element
	GetText(selector string) (string, error)

	// Status returns the engine state
	Status() (EngineStatus, error)

	// =========================================================================
	// Settings
	// =========================================================================

	// GetSettings returns the current settings
	GetSettings() (Settings, error)

	// UpdateSettings applies a SETTINGS_UPDATED notification
	UpdateSettings(msg SettingsMessage) error

	// SetActive turns the engine on or off
	SetActive(active bool) error

	// RewriteText rewrites s with the active pattern
	RewriteText(s string) (string, error)
}

// CopyResult is the outcome of a copy gesture
type CopyResult struct {
	Plain     string `json:"text_plain"`
	HTML      string `json:"text_html"`
	Clipboard string `json:"clipboard"`
}

// ClickResult is the outcome of a click
type ClickResult struct {
	DefaultPrevented bool   `json:"default_prevented"`
	Clipboard        string `json:"clipboard"`
}

// EngineStatus summarizes what is attached to the page
type EngineStatus struct {
	Active                     bool     `json:"active"`
	Locating                   bool     `json:"locating"`
	RootFound                  bool     `json:"root_found"`
	ObserverAttached           bool     `json:"observer_attached"`
	ClipboardListenerAttached  bool     `json:"clipboard_listener_attached"`
	CopyButtonListenerAttached bool     `json:"copy_button_listener_attached"`
	Observers                  int      `json:"observers"`
	CopyListeners              int      `json:"copy_listeners"`
	ClickListeners             int      `json:"click_listeners"`
	Settings                   Settings `json:"settings"`
}
