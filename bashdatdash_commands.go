package main

import (
	"encoding/json"
	"errors"
	"sort"
)

// ErrUnknownAction is returned for actions with no handler
var ErrUnknownAction = errors.New("unknown action")

// Command represents a JSON command sent over the socket
type Command struct {
	Action string                 `json:"action"`
	Params map[string]interface{} `json:"params"`
}

// Response represents a JSON response from command execution
type Response struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type commandHandler func(e *Engine, params map[string]interface{}) string

var commandHandlers map[string]commandHandler

func init() {
	commandHandlers = map[string]commandHandler{
		"load_page":       (*Engine).cmdLoadPage,
		"append_html":     (*Engine).cmdAppendHTML,
		"append_text":     (*Engine).cmdAppendText,
		"set_text":        (*Engine).cmdSetText,
		"select_text":     (*Engine).cmdSelectText,
		"clear_selection": (*Engine).cmdClearSelection,
		"copy":            (*Engine).cmdCopy,
		"click":           (*Engine).cmdClick,
		"get_html":        (*Engine).cmdGetHTML,
		"get_text":        (*Engine).cmdGetText,
		"get_settings":    (*Engine).cmdGetSettings,
		"update_settings": (*Engine).cmdUpdateSettings,
		"set_active":      (*Engine).cmdSetActive,
		"status":          (*Engine).cmdStatus,
		"rewrite_text":    (*Engine).cmdRewriteText,
		"list_actions":    (*Engine).cmdListActions,
	}
}

// ActionNames returns the supported actions in sorted order
func ActionNames() []string {
	names := make([]string, 0, len(commandHandlers))
	for name := range commandHandlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExecuteCommand executes a JSON command and returns a JSON response
func (e *Engine) ExecuteCommand(cmdJSON string) string {
	var cmd Command
	if err := json.Unmarshal([]byte(cmdJSON), &cmd); err != nil {
		return e.errorResponse("Invalid JSON: " + err.Error())
	}

	handler, ok := commandHandlers[cmd.Action]
	if !ok {
		return e.errorResponse(ErrUnknownAction.Error() + ": " + cmd.Action)
	}
	if cmd.Params == nil {
		cmd.Params = map[string]interface{}{}
	}
	return handler(e, cmd.Params)
}

// ============================================================================
// Command Handlers
// ============================================================================

// cmdLoadPage replaces the document
func (e *Engine) cmdLoadPage(params map[string]interface{}) string {
	src := getStr(params, "html", "")
	if src == "" {
		return e.errorResponse("Missing required parameter: html")
	}
	if err := e.LoadPage(src); err != nil {
		return e.errorResponse(err.Error())
	}
	return e.successResponse(map[string]interface{}{"loaded": true})
}

// cmdAppendHTML appends a fragment under a selector
func (e *Engine) cmdAppendHTML(params map[string]interface{}) string {
	selector := getStr(params, "selector", "")
	fragment := getStr(params, "html", "")
	if selector == "" {
		return e.errorResponse("Missing required parameter: selector")
	}
	if err := e.AppendHTML(selector, fragment); err != nil {
		return e.errorResponse(err.Error())
	}
	return e.successResponse(map[string]interface{}{"appended": true})
}

// cmdAppendText streams text under a selector
func (e *Engine) cmdAppendText(params map[string]interface{}) string {
	selector := getStr(params, "selector", "")
	if selector == "" {
		return e.errorResponse("Missing required parameter: selector")
	}
	if err := e.AppendText(selector, getStr(params, "text", "")); err != nil {
		return e.errorResponse(err.Error())
	}
	return e.successResponse(map[string]interface{}{"appended": true})
}

// cmdSetText replaces the text content of an element
func (e *Engine) cmdSetText(params map[string]interface{}) string {
	selector := getStr(params, "selector", "")
	if selector == "" {
		return e.errorResponse("Missing required parameter: selector")
	}
	if err := e.SetText(selector, getStr(params, "text", "")); err != nil {
		return e.errorResponse(err.Error())
	}
	return e.successResponse(map[string]interface{}{"set": true})
}

// cmdSelectText selects the text of an element
func (e *Engine) cmdSelectText(params map[string]interface{}) string {
	selector := getStr(params, "selector", "")
	if selector == "" {
		return e.errorResponse("Missing required parameter: selector")
	}
	if err := e.SelectText(selector); err != nil {
		return e.errorResponse(err.Error())
	}
	return e.successResponse(map[string]interface{}{"selected": true})
}

// cmdClearSelection clears the selection
func (e *Engine) cmdClearSelection(params map[string]interface{}) string {
	e.ClearSelection()
	return e.successResponse(map[string]interface{}{"cleared": true})
}

// cmdCopy performs the copy gesture
func (e *Engine) cmdCopy(params map[string]interface{}) string {
	res, err := e.Copy()
	if err != nil {
		return e.errorResponse(err.Error())
	}
	return e.successResponse(res)
}

// cmdClick clicks an element
func (e *Engine) cmdClick(params map[string]interface{}) string {
	selector := getStr(params, "selector", "")
	if selector == "" {
		return e.errorResponse("Missing required parameter: selector")
	}
	res, err := e.Click(selector)
	if err != nil {
		return e.errorResponse(err.Error())
	}
	return e.successResponse(res)
}

// cmdGetHTML renders an element or the document
func (e *Engine) cmdGetHTML(params map[string]interface{}) string {
	out, err := e.GetHTML(getStr(params, "selector", ""))
	if err != nil {
		return e.errorResponse(err.Error())
	}
	return e.successResponse(map[string]interface{}{"html": out})
}

// cmdGetText returns an element's text
func (e *Engine) cmdGetText(params map[string]interface{}) string {
	selector := getStr(params, "selector", "")
	if selector == "" {
		return e.errorResponse("Missing required parameter: selector")
	}
	out, err := e.GetText(selector)
	if err != nil {
		return e.errorResponse(err.Error())
	}
	return e.successResponse(map[string]interface{}{"text": out})
}

// cmdGetSettings returns the current settings
func (e *Engine) cmdGetSettings(params map[string]interface{}) string {
	s, _ := e.GetSettings()
	return e.successResponse(s)
}

// cmdUpdateSettings applies a settings message; absent params stay unchanged
func (e *Engine) cmdUpdateSettings(params map[string]interface{}) string {
	msg := SettingsMessage{Type: getStr(params, "type", MessageSettingsUpdated)}
	if v, ok := params["enabled"].(bool); ok {
		msg.Enabled = &v
	}
	if v, ok := params["findPattern"].(string); ok {
		msg.FindPattern = &v
	} else if v, ok := params["replaceWhat"].(string); ok {
		msg.FindPattern = &v
	}
	if v, ok := params["replaceWith"].(string); ok {
		msg.ReplaceWith = &v
	}
	if err := e.UpdateSettings(msg); err != nil {
		return e.errorResponse(err.Error())
	}
	s, _ := e.GetSettings()
	return e.successResponse(s)
}

// cmdSetActive turns the engine on or off
func (e *Engine) cmdSetActive(params map[string]interface{}) string {
	active, ok := params["active"].(bool)
	if !ok {
		return e.errorResponse("Missing required parameter: active")
	}
	e.SetActive(active)
	return e.successResponse(map[string]interface{}{"active": active})
}

// cmdStatus returns the engine state
func (e *Engine) cmdStatus(params map[string]interface{}) string {
	st, _ := e.Status()
	return e.successResponse(st)
}

// cmdRewriteText rewrites a string with the active pattern
func (e *Engine) cmdRewriteText(params map[string]interface{}) string {
	out, _ := e.RewriteText(getStr(params, "text", ""))
	return e.successResponse(map[string]interface{}{"text": out})
}

// cmdListActions lists the supported actions
func (e *Engine) cmdListActions(params map[string]interface{}) string {
	return e.successResponse(map[string]interface{}{"actions": ActionNames()})
}

// ============================================================================
// Helper Functions
// ============================================================================

// getStr safely extracts a string parameter, with a default value
func getStr(params map[string]interface{}, key, defaultValue string) string {
	if val, ok := params[key]; ok {
		if strVal, ok := val.(string); ok {
			return strVal
		}
	}
	return defaultValue
}

// successResponse creates a successful response
func (e *Engine) successResponse(result interface{}) string {
	resp := Response{
		Success: true,
		Result:  result,
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

// errorResponse creates an error response
func (e *Engine) errorResponse(errorMsg string) string {
	resp := Response{
		Success: false,
		Error:   errorMsg,
	}
	data, _ := json.Marshal(resp)
	return string(data)
}
