package main

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SocketClientCommands wraps a SocketClient to implement DashCommands, so
// the REPL drives a server exactly like code that holds an Engine directly.
type SocketClientCommands struct {
	client *SocketClient
}

// NewSocketClientCommands creates a new socket client wrapper
func NewSocketClientCommands(client *SocketClient) *SocketClientCommands {
	return &SocketClientCommands{client: client}
}

// call runs one action and decodes its result into out (if non-nil)
func (s *SocketClientCommands) call(action string, params map[string]interface{}, out interface{}) error {
	if params == nil {
		params = map[string]interface{}{}
	}
	cmdJSON, err := json.Marshal(Command{Action: action, Params: params})
	if err != nil {
		return err
	}

	resp, err := s.client.Execute(string(cmdJSON))
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	if success, ok := resp["success"].(bool); !ok || !success {
		if errMsg, ok := resp["error"].(string); ok {
			return errors.New(errMsg)
		}
		return fmt.Errorf("%s failed", action)
	}
	if out == nil {
		return nil
	}

	raw, err := json.Marshal(resp["result"])
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// ============================================================================
// Page Methods
// ============================================================================

// LoadPage implements DashCommands.LoadPage
func (s *SocketClientCommands) LoadPage(html string) error {
	return s.call("load_page", map[string]interface{}{"html": html}, nil)
}

// AppendHTML implements DashCommands.AppendHTML
func (s *SocketClientCommands) AppendHTML(selector, fragment string) error {
	return s.call("append_html", map[string]interface{}{"selector": selector, "html": fragment}, nil)
}

// AppendText implements DashCommands.AppendText
func (s *SocketClientCommands) AppendText(selector, text string) error {
	return s.call("append_text", map[string]interface{}{"selector": selector, "text": text}, nil)
}

// SetText implements DashCommands.SetText
func (s *SocketClientCommands) SetText(selector, text string) error {
	return s.call("set_text", map[string]interface{}{"selector": selector, "text": text}, nil)
}

// ============================================================================
// User Action Methods
// ============================================================================

// SelectText implements DashCommands.SelectText
func (s *SocketClientCommands) SelectText(selector string) error {
	return s.call("select_text", map[string]interface{}{"selector": selector}, nil)
}

// ClearSelection implements DashCommands.ClearSelection
func (s *SocketClientCommands) ClearSelection() error {
	return s.call("clear_selection", nil, nil)
}

// Copy implements DashCommands.Copy
func (s *SocketClientCommands) Copy() (CopyResult, error) {
	var res CopyResult
	err := s.call("copy", nil, &res)
	return res, err
}

// Click implements DashCommands.Click
func (s *SocketClientCommands) Click(selector string) (ClickResult, error) {
	var res ClickResult
	err := s.call("click", map[string]interface{}{"selector": selector}, &res)
	return res, err
}

// ============================================================================
// Query Methods
// ============================================================================

// GetHTML implements DashCommands.GetHTML
func (s *SocketClientCommands) GetHTML(selector string) (string, error) {
	var res struct {
		HTML string `json:"html"`
	}
	err := s.call("get_html", map[string]interface{}{"selector": selector}, &res)
	return res.HTML, err
}

// GetText implements DashCommands.GetText
func (s *SocketClientCommands) GetText(selector string) (string, error) {
	var res struct {
		Text string `json:"text"`
	}
	err := s.call("get_text", map[string]interface{}{"selector": selector}, &res)
	return res.Text, err
}

// Status implements DashCommands.Status
func (s *SocketClientCommands) Status() (EngineStatus, error) {
	var st EngineStatus
	err := s.call("status", nil, &st)
	return st, err
}

// ============================================================================
// Settings Methods
// ============================================================================

// GetSettings implements DashCommands.GetSettings
func (s *SocketClientCommands) GetSettings() (Settings, error) {
	var st Settings
	err := s.call("get_settings", nil, &st)
	return st, err
}

// UpdateSettings implements DashCommands.UpdateSettings
func (s *SocketClientCommands) UpdateSettings(msg SettingsMessage) error {
	params := map[string]interface{}{}
	if msg.Type != "" {
		params["type"] = msg.Type
	}
	if msg.Enabled != nil {
		params["enabled"] = *msg.Enabled
	}
	if msg.FindPattern != nil {
		params["findPattern"] = *msg.FindPattern
	}
	if msg.ReplaceWith != nil {
		params["replaceWith"] = *msg.ReplaceWith
	}
	return s.call("update_settings", params, nil)
}

// SetActive implements DashCommands.SetActive
func (s *SocketClientCommands) SetActive(active bool) error {
	return s.call("set_active", map[string]interface{}{"active": active}, nil)
}

// RewriteText implements DashCommands.RewriteText
func (s *SocketClientCommands) RewriteText(text string) (string, error) {
	var res struct {
		Text string `json:"text"`
	}
	err := s.call("rewrite_text", map[string]interface{}{"text": text}, &res)
	return res.Text, err
}

// ListActions returns the actions the server supports
func (s *SocketClientCommands) ListActions() ([]string, error) {
	var res struct {
		Actions []string `json:"actions"`
	}
	err := s.call("list_actions", nil, &res)
	return res.Actions, err
}

var (
	_ DashCommands = (*Engine)(nil)
	_ DashCommands = (*SocketClientCommands)(nil)
)
