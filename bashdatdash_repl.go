package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/olekukonko/tablewriter"
)

// errExit ends the REPL loop
var errExit = errors.New("exit")

// REPLCommand represents a parsed command
type REPLCommand struct {
	Verb   string
	Object string
	Args   []string
}

// REPLFormatter handles output formatting
type REPLFormatter struct {
	out      io.Writer
	useColor bool
}

// NewREPLFormatter creates a new formatter
func NewREPLFormatter(out io.Writer, useColor bool) *REPLFormatter {
	return &REPLFormatter{out: out, useColor: useColor}
}

// PrintSuccess prints a success message
func (f *REPLFormatter) PrintSuccess(message string) {
	if f.useColor {
		fmt.Fprintln(f.out, color.GreenString("✓ %s", message))
	} else {
		fmt.Fprintf(f.out, "✓ %s\n", message)
	}
}

// PrintError prints an error message
func (f *REPLFormatter) PrintError(message string) {
	if f.useColor {
		fmt.Fprintln(f.out, color.RedString("✗ Error: %s", message))
	} else {
		fmt.Fprintf(f.out, "✗ Error: %s\n", message)
	}
}

// PrintInfo prints an info message
func (f *REPLFormatter) PrintInfo(message string) {
	if f.useColor {
		fmt.Fprintln(f.out, color.CyanString("ℹ %s", message))
	} else {
		fmt.Fprintf(f.out, "ℹ %s\n", message)
	}
}

// PrintTable prints rows under headers
func (f *REPLFormatter) PrintTable(headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}
	cells := make([]any, len(headers))
	for i, h := range headers {
		cells[i] = h
	}
	table := tablewriter.NewWriter(f.out)
	table.Header(cells...)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			f.PrintError("Failed to format table: " + err.Error())
			return
		}
	}
	if err := table.Render(); err != nil {
		f.PrintError("Failed to render table: " + err.Error())
	}
}

// PrintJSON prints formatted JSON
func (f *REPLFormatter) PrintJSON(data interface{}) {
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		f.PrintError("Failed to format JSON: " + err.Error())
		return
	}
	fmt.Fprintln(f.out, string(jsonBytes))
}

// PrintStatus prints the engine state as a table
func (f *REPLFormatter) PrintStatus(st EngineStatus) {
	f.PrintTable([]string{"Property", "Value"}, [][]string{
		{"active", strconv.FormatBool(st.Active)},
		{"locating root", strconv.FormatBool(st.Locating)},
		{"root found", strconv.FormatBool(st.RootFound)},
		{"observer attached", strconv.FormatBool(st.ObserverAttached)},
		{"copy listener attached", strconv.FormatBool(st.ClipboardListenerAttached)},
		{"copy button listener attached", strconv.FormatBool(st.CopyButtonListenerAttached)},
		{"observers", strconv.Itoa(st.Observers)},
		{"copy listeners", strconv.Itoa(st.CopyListeners)},
		{"click listeners", strconv.Itoa(st.ClickListeners)},
		{"enabled", strconv.FormatBool(st.Settings.Enabled)},
		{"find pattern", string(st.Settings.FindPattern)},
		{"replace with", strconv.Quote(st.Settings.Replacement)},
	})
}

// ParseCommand parses a verb-first command string
func ParseCommand(input string) (*REPLCommand, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty command")
	}

	parts := splitArgs(input)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	cmd := &REPLCommand{
		Verb: strings.ToLower(parts[0]),
	}

	if len(parts) > 1 {
		cmd.Object = parts[1]
		cmd.Args = parts[2:]
	}

	return cmd, nil
}

// splitArgs splits a command string into arguments, respecting quotes
func splitArgs(input string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)
	escaped := false

	for _, ch := range input {
		if escaped {
			current.WriteRune(ch)
			escaped = false
			continue
		}

		if ch == '\\' {
			escaped = true
			continue
		}

		if (ch == '"' || ch == '\'') && !inQuotes {
			inQuotes = true
			quoteChar = ch
			continue
		}

		if ch == quoteChar && inQuotes {
			inQuotes = false
			quoteChar = 0
			continue
		}

		if ch == ' ' && !inQuotes {
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
			continue
		}

		current.WriteRune(ch)
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}

	return args
}

var replVerbs = []string{
	"load", "append", "stream", "settext", "select", "unselect", "copy", "click",
	"show", "set", "enable", "disable", "rewrite", "help", "exit", "quit",
}

// suggestVerb returns the closest known verb, or "" when nothing is close
func suggestVerb(verb string) string {
	ranks := fuzzy.RankFindFold(verb, replVerbs)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}

// ExecuteREPLCommand executes a REPL command against cmds
func ExecuteREPLCommand(cmd *REPLCommand, cmds DashCommands, f *REPLFormatter) error {
	switch cmd.Verb {
	case "load":
		return handleLoadCommand(cmd, cmds, f)
	case "append":
		if cmd.Object == "" || len(cmd.Args) == 0 {
			return fmt.Errorf("usage: append <selector> <html>")
		}
		if err := cmds.AppendHTML(cmd.Object, strings.Join(cmd.Args, " ")); err != nil {
			return err
		}
		f.PrintSuccess("Appended HTML to " + cmd.Object)
	case "stream":
		if cmd.Object == "" || len(cmd.Args) == 0 {
			return fmt.Errorf("usage: stream <selector> <text>")
		}
		if err := cmds.AppendText(cmd.Object, strings.Join(cmd.Args, " ")); err != nil {
			return err
		}
		f.PrintSuccess("Streamed text into " + cmd.Object)
	case "settext":
		if cmd.Object == "" {
			return fmt.Errorf("usage: settext <selector> <text>")
		}
		if err := cmds.SetText(cmd.Object, strings.Join(cmd.Args, " ")); err != nil {
			return err
		}
		f.PrintSuccess("Replaced text of " + cmd.Object)
	case "select":
		if cmd.Object == "" {
			return fmt.Errorf("usage: select <selector>")
		}
		if err := cmds.SelectText(cmd.Object); err != nil {
			return err
		}
		f.PrintSuccess("Selected text of " + cmd.Object)
	case "unselect":
		if err := cmds.ClearSelection(); err != nil {
			return err
		}
		f.PrintSuccess("Selection cleared")
	case "copy":
		res, err := cmds.Copy()
		if err != nil {
			return err
		}
		f.PrintTable([]string{"Format", "Payload"}, [][]string{
			{"text/plain", res.Plain},
			{"text/html", res.HTML},
			{"clipboard", res.Clipboard},
		})
	case "click":
		if cmd.Object == "" {
			return fmt.Errorf("usage: click <selector>")
		}
		res, err := cmds.Click(cmd.Object)
		if err != nil {
			return err
		}
		f.PrintInfo(fmt.Sprintf("default prevented: %t", res.DefaultPrevented))
		if res.Clipboard != "" {
			f.PrintInfo("clipboard: " + res.Clipboard)
		}
	case "show":
		return handleShowCommand(cmd, cmds, f)
	case "set":
		return handleSetCommand(cmd, cmds, f)
	case "enable", "disable":
		if err := cmds.SetActive(cmd.Verb == "enable"); err != nil {
			return err
		}
		f.PrintSuccess("Engine " + cmd.Verb + "d")
	case "rewrite":
		out, err := cmds.RewriteText(strings.TrimSpace(cmd.Object + " " + strings.Join(cmd.Args, " ")))
		if err != nil {
			return err
		}
		fmt.Fprintln(f.out, out)
	case "help":
		showHelp(f.out, cmd.Object)
	case "exit", "quit":
		return errExit
	default:
		msg := fmt.Sprintf("unknown command: %s", cmd.Verb)
		if s := suggestVerb(cmd.Verb); s != "" {
			msg += fmt.Sprintf(" (did you mean '%s'?)", s)
		}
		return errors.New(msg)
	}
	return nil
}

func handleLoadCommand(cmd *REPLCommand, cmds DashCommands, f *REPLFormatter) error {
	if cmd.Object == "" {
		return fmt.Errorf("usage: load <file.html>")
	}
	data, err := os.ReadFile(cmd.Object)
	if err != nil {
		return err
	}
	if err := cmds.LoadPage(string(data)); err != nil {
		return err
	}
	f.PrintSuccess("Loaded " + cmd.Object)
	return nil
}

func handleShowCommand(cmd *REPLCommand, cmds DashCommands, f *REPLFormatter) error {
	switch strings.ToLower(cmd.Object) {
	case "status", "":
		st, err := cmds.Status()
		if err != nil {
			return err
		}
		f.PrintStatus(st)
	case "settings":
		s, err := cmds.GetSettings()
		if err != nil {
			return err
		}
		f.PrintJSON(s)
	case "html":
		out, err := cmds.GetHTML(strings.Join(cmd.Args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(f.out, out)
	case "text":
		if len(cmd.Args) == 0 {
			return fmt.Errorf("usage: show text <selector>")
		}
		out, err := cmds.GetText(strings.Join(cmd.Args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(f.out, out)
	default:
		return fmt.Errorf("unknown show target: %s (use status, settings, html or text)", cmd.Object)
	}
	return nil
}

var replacementAliases = map[string]string{
	"comma":     ReplaceComma,
	"semicolon": ReplaceSemicolon,
	"hyphen":    ReplaceDoubleHyphen,
	"--":        ReplaceDoubleHyphen,
}

func handleSetCommand(cmd *REPLCommand, cmds DashCommands, f *REPLFormatter) error {
	if len(cmd.Args) == 0 {
		return fmt.Errorf("usage: set enabled|pattern|replacement <value>")
	}
	value := cmd.Args[0]
	msg := SettingsMessage{Type: MessageSettingsUpdated}

	switch strings.ToLower(cmd.Object) {
	case "enabled":
		b, err := parseOnOff(value)
		if err != nil {
			return err
		}
		msg.Enabled = &b
	case "pattern":
		msg.FindPattern = &value
	case "replacement":
		if alias, ok := replacementAliases[strings.ToLower(value)]; ok {
			value = alias
		}
		msg.ReplaceWith = &value
	default:
		return fmt.Errorf("unknown setting: %s", cmd.Object)
	}

	if err := cmds.UpdateSettings(msg); err != nil {
		return err
	}
	s, err := cmds.GetSettings()
	if err != nil {
		return err
	}
	f.PrintSuccess(fmt.Sprintf("enabled=%t findPattern=%s replaceWith=%q", s.Enabled, s.FindPattern, s.Replacement))
	return nil
}

func parseOnOff(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "yes", "true", "1":
		return true, nil
	case "off", "no", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", v)
}

func showHelp(out io.Writer, topic string) {
	helps := map[string]string{
		"set": `
set enabled on|off                     Turn the engine on or off (saved)
set pattern em|en|both                 Which dashes to replace
set replacement comma|semicolon|hyphen Replacement literal
`,
		"show": `
show status              Engine state and listener counts
show settings            Current settings as JSON
show html [selector]     Render an element or the whole page
show text <selector>     Text content of an element
`,
	}
	if topic != "" {
		if help, ok := helps[topic]; ok {
			fmt.Fprintln(out, help)
			return
		}
		fmt.Fprintf(out, "No help available for '%s'\n", topic)
	}
	fmt.Fprint(out, `
Commands:
  load <file.html>             Replace the page with a file
  append <selector> <html>     Append an HTML fragment (streamed content)
  stream <selector> <text>     Append text to an element
  settext <selector> <text>    Replace an element's text
  select <selector>            Select an element's text
  unselect                     Clear the selection
  copy                         Copy the selection
  click <selector>             Click an element (e.g. the copy button)
  show status|settings|html|text
  set enabled|pattern|replacement <value>
  enable | disable             Activate or deactivate until restart
  rewrite <text>               Rewrite text with the active pattern
  help [command]               Show help
  exit                         Leave the REPL
`)
}

// REPLSession manages the REPL interactive session
type REPLSession struct {
	client    *SocketClient
	cmds      *SocketClientCommands
	formatter *REPLFormatter
	history   []string
}

// NewREPLSession creates a new REPL session
func NewREPLSession(socketPath string) (*REPLSession, error) {
	client, err := NewSocketClient(socketPath)
	if err != nil {
		return nil, err
	}

	return &REPLSession{
		client:    client,
		cmds:      NewSocketClientCommands(client),
		formatter: NewREPLFormatter(os.Stdout, !color.NoColor),
	}, nil
}

// Run starts the interactive REPL loop
func (rs *REPLSession) Run() error {
	rl, err := readline.New("bashdatdash> ")
	if err != nil {
		return err
	}
	defer rl.Close()
	defer rs.client.Close()

	color.Cyan("BashDatDash REPL\n")
	color.Cyan("Connected to socket server at %s\n", rs.client.conn.RemoteAddr())
	color.Cyan("Type 'help' for available commands\n\n")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		} else if errors.Is(err, io.EOF) {
			fmt.Println()
			break
		} else if err != nil {
			rs.formatter.PrintError(err.Error())
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rs.history = append(rs.history, line)

		cmd, err := ParseCommand(line)
		if err != nil {
			rs.formatter.PrintError(err.Error())
			continue
		}

		if err := ExecuteREPLCommand(cmd, rs.cmds, rs.formatter); err != nil {
			if errors.Is(err, errExit) {
				break
			}
			rs.formatter.PrintError(err.Error())
		}
	}

	rs.formatter.PrintInfo("Goodbye!")
	return nil
}
