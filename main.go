package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const (
	appName           = "bashdatdash"
	defaultSocketPath = "/tmp/bashdatdash.sock"
	blankPage         = `<html><head></head><body></body></html>`
)

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "Rewrite em and en dashes in a chat transcript",
	Long:          "BashDatDash keeps dashes out of a chat transcript: it rewrites them as they stream in and on copy.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine on a page and expose it on a Unix socket",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Drive a running engine interactively",
	Args:  cobra.NoArgs,
	RunE:  runREPL,
}

var rewriteCmd = &cobra.Command{
	Use:   "rewrite <file.html|->",
	Short: "Rewrite the dashes of an HTML document once and print it",
	Args:  cobra.ExactArgs(1),
	RunE:  runRewrite,
}

var initSettingsCmd = &cobra.Command{
	Use:   "init-settings <path>",
	Short: "Create or repair a settings file with the defaults",
	Args:  cobra.ExactArgs(1),
	RunE:  runInitSettings,
}

func init() {
	serveCmd.Flags().String("page", "", "HTML file to load as the page (blank page when empty)")
	serveCmd.Flags().String("config", "", "Configuration file (.toml, .yaml or .json)")
	serveCmd.Flags().String("settings", "", "Settings file; overrides settings_path from the config")
	serveCmd.Flags().String("socket", defaultSocketPath, "Path to the socket file")
	serveCmd.Flags().Bool("system-clipboard", false, "Write copies to the system clipboard")
	serveCmd.Flags().Bool("debug", false, "Enable debug logging")

	replCmd.Flags().String("socket", defaultSocketPath, "Path to the socket file")

	rewriteCmd.Flags().String("mode", string(ModeEm), "Dashes to replace: em, en or both")
	rewriteCmd.Flags().String("with", ReplaceComma, "Replacement text")
	rewriteCmd.Flags().String("config", "", "Configuration file (.toml, .yaml or .json)")

	rootCmd.AddCommand(serveCmd, replCmd, rewriteCmd, initSettingsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	pagePath, _ := cmd.Flags().GetString("page")
	settingsPath, _ := cmd.Flags().GetString("settings")
	socketPath, _ := cmd.Flags().GetString("socket")
	systemClipboard, _ := cmd.Flags().GetBool("system-clipboard")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	if debug {
		cfg.Debug = true
	}
	if settingsPath != "" {
		cfg.SettingsPath = settingsPath
	}
	log := NewLogger(os.Stderr, cfg.Debug)

	src := blankPage
	if pagePath != "" {
		data, err := os.ReadFile(pagePath)
		if err != nil {
			return fmt.Errorf("read page: %w", err)
		}
		src = string(data)
	}

	var clip ClipboardWriter
	if systemClipboard {
		clip = SystemClipboard{}
	}
	page, err := NewPage(src, clip)
	if err != nil {
		return err
	}

	var store *FileSettingsStore
	if cfg.SettingsPath != "" {
		store = NewFileSettingsStore(cfg.SettingsPath, log.With("component", "store"))
		if _, err := store.SeedDefaults(); err != nil {
			return err
		}
	}

	loop := NewEventLoop()
	loop.OnCheckpoint(page.FlushMutations)

	var engineStore SettingsStore
	if store != nil {
		engineStore = store
	}
	engine, err := NewEngine(cfg, page, loop, engineStore, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop.Post(func() {
		if err := engine.Start(); err != nil {
			log.Error("engine start failed", "error", err)
		}
	})

	if store != nil {
		go func() {
			err := store.Watch(ctx, func(msg SettingsMessage) {
				loop.Post(func() { engine.HandleMessage(msg) })
			})
			if err != nil {
				log.Warn("settings watcher stopped", "error", err)
			}
		}()
	}

	server := NewSocketServer(socketPath, engine, loop, log)
	if err := server.Start(); err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		server.Stop()
	}()

	loop.Run(ctx)
	server.Wait()
	log.Info("shut down")
	return nil
}

func runREPL(cmd *cobra.Command, args []string) error {
	socketPath, _ := cmd.Flags().GetString("socket")
	session, err := NewREPLSession(socketPath)
	if err != nil {
		return err
	}
	return session.Run()
}

func runRewrite(cmd *cobra.Command, args []string) error {
	mode, _ := cmd.Flags().GetString("mode")
	with, _ := cmd.Flags().GetString("with")
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	selectors, err := cfg.Selectors.Compile()
	if err != nil {
		return err
	}

	var data []byte
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	out, n, err := RewriteDocument(string(data), selectors, ResolvePattern(NormalizeMode(mode), NormalizeReplacement(with)))
	if err != nil {
		return err
	}
	NewLogger(cmd.ErrOrStderr(), cfg.Debug).Debug("rewrite done", "nodes", n)
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// RewriteDocument rewrites every text node of an HTML document outside
// editable regions and returns the rendered result and the rewrite count.
func RewriteDocument(src string, selectors *Selectors, p *ActivePattern) (string, int, error) {
	page, err := NewPage(src, nil)
	if err != nil {
		return "", 0, err
	}
	r := NewRewriter(page, selectors.Editable, discardLogger())
	n := ScanAndRewrite(page.DocumentNode(), r, p)
	out, err := page.HTML(page.DocumentNode())
	if err != nil {
		return "", 0, err
	}
	return out, n, nil
}

func runInitSettings(cmd *cobra.Command, args []string) error {
	store := NewFileSettingsStore(args[0], NewLogger(cmd.ErrOrStderr(), false))
	st, err := store.SeedDefaults()
	if err != nil {
		return err
	}
	s := st.Settings()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: enabled=%t findPattern=%s replaceWith=%q onboardingShown=%t\n",
		args[0], s.Enabled, s.FindPattern, s.Replacement, st.WasOnboardingShown())
	return nil
}
