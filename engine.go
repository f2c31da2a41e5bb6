package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/net/html"
)

// Engine is the headless dash rewriter bound to one page. All methods must
// run on the engine's event loop.
type Engine struct {
	cfg       *Config
	selectors *Selectors
	page      *Page
	sched     Scheduler
	settings  *SettingsCell
	store     SettingsStore
	log       *slog.Logger

	rewriter   *Rewriter
	reconciler *MutationReconciler
	clipboard  *ClipboardInterceptor
	copyAction *CopyActionInterceptor
	controller *ActivationController

	onboardingShown bool
	started         bool
}

// NewEngine wires the engine. store may be nil, in which case the defaults
// apply and nothing is persisted.
func NewEngine(cfg *Config, page *Page, sched Scheduler, store SettingsStore, log *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = discardLogger()
	}
	selectors, err := cfg.Selectors.Compile()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		selectors: selectors,
		page:      page,
		sched:     sched,
		settings:  NewSettingsCell(DefaultSettings()),
		store:     store,
		log:       log,
	}
	e.rewriter = NewRewriter(page, selectors.Editable, log.With("component", "rewriter"))
	e.reconciler = NewMutationReconciler(page, e.rewriter, e.settings, sched, cfg.Timing.RescanDelay.Duration, log.With("component", "reconciler"))
	e.clipboard = NewClipboardInterceptor(page, e.settings, log.With("component", "clipboard"))
	e.copyAction = NewCopyActionInterceptor(page, e.settings, selectors, log.With("component", "copy-button"))
	e.controller = &ActivationController{
		page:       page,
		selectors:  selectors,
		cfg:        cfg.Timing,
		settings:   e.settings,
		rewriter:   e.rewriter,
		locator:    NewRootLocator(page, sched, log.With("component", "locator")),
		reconciler: e.reconciler,
		clipboard:  e.clipboard,
		copyAction: e.copyAction,
		log:        log.With("component", "activation"),
	}
	e.controller.onRootFound = e.rootFound
	e.controller.awaitRoot = func() bool { return e.started && !e.onboardingShown }
	return e, nil
}

// Page returns the page the engine works on
func (e *Engine) Page() *Page {
	return e.page
}

// Settings returns the settings cell
func (e *Engine) Settings() *SettingsCell {
	return e.settings
}

// Controller returns the activation controller
func (e *Engine) Controller() *ActivationController {
	return e.controller
}

// Start reads the store once and begins looking for the chat root. When the
// root shows up the engine activates if enabled and shows onboarding once.
func (e *Engine) Start() error {
	e.log.Debug("engine starting")
	if e.store != nil {
		st, err := e.store.Load()
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		e.settings.Set(st.Settings())
		e.onboardingShown = st.WasOnboardingShown()
	}
	s := e.settings.Settings()
	e.log.Debug("settings retrieved", "enabled", s.Enabled, "findPattern", s.FindPattern, "replaceWith", s.Replacement, "onboardingShown", e.onboardingShown)

	e.started = true
	if !s.Enabled && e.onboardingShown {
		e.log.Debug("engine disabled and onboarding already shown, idling")
		return nil
	}
	if s.Enabled {
		e.controller.SetActive(true)
		return nil
	}
	e.controller.startLocating()
	return nil
}

// rootFound runs each time a root is first attached or located. Onboarding
// belongs to a started engine only.
func (e *Engine) rootFound(*html.Node) {
	if !e.started {
		return
	}
	e.showOnboarding()
}

// HandleMessage applies a settings notification from the configuration UI
func (e *Engine) HandleMessage(msg SettingsMessage) {
	e.log.Debug("message received", "type", msg.Type)
	if msg.Type != MessageSettingsUpdated {
		e.log.Debug("ignoring message", "type", msg.Type)
		return
	}
	next := e.settings.Settings().Apply(msg)
	e.settings.Set(next)
	e.controller.SetActive(next.Enabled)
}

// HandleMessageJSON decodes and applies a raw message
func (e *Engine) HandleMessageJSON(data []byte) error {
	var msg SettingsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	e.HandleMessage(msg)
	return nil
}

// LoadPage replaces the document and starts over on the new one
func (e *Engine) LoadPage(src string) error {
	e.controller.Reset()
	if err := e.page.Load(src); err != nil {
		return err
	}
	if !e.started {
		return nil
	}
	if e.settings.Settings().Enabled {
		e.controller.SetActive(true)
		return nil
	}
	if !e.onboardingShown {
		e.controller.startLocating()
	}
	return nil
}

// RewriteText rewrites s with the current pattern
func (e *Engine) RewriteText(s string) (string, error) {
	return RewriteString(s, e.settings.Pattern()), nil
}
