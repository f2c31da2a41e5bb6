package main

import (
	"log/slog"
	"weak"

	"golang.org/x/net/html"
)

// EngineState is the one record of what is attached to the page. Only the
// ActivationController mutates it.
type EngineState struct {
	Active                     bool
	ClipboardListenerAttached  bool
	CopyButtonListenerAttached bool
	ObserverAttached           bool

	root   weak.Pointer[html.Node]
	locate *LocateHandle
}

// Root returns the known root element, or nil if it was never found or has
// been collected
func (s EngineState) Root() *html.Node {
	return s.root.Value()
}

// Locating reports whether a root poll is in progress
func (s EngineState) Locating() bool {
	return s.locate.Running()
}

// ActivationController turns the engine on and off. Every part is guarded by
// its own flag so repeated calls never attach anything twice.
type ActivationController struct {
	page       *Page
	selectors  *Selectors
	cfg        TimingConfig
	settings   *SettingsCell
	rewriter   *Rewriter
	locator    *RootLocator
	reconciler *MutationReconciler
	clipboard  *ClipboardInterceptor
	copyAction *CopyActionInterceptor
	log        *slog.Logger

	state EngineState

	// onRootFound runs once per located root, after attaching
	onRootFound func(root *html.Node)
	// awaitRoot reports whether a root is still wanted while inactive
	awaitRoot func() bool
}

// State returns a copy of the current engine state
func (c *ActivationController) State() EngineState {
	return c.state
}

// SetActive activates or deactivates the engine. Both directions are
// idempotent.
func (c *ActivationController) SetActive(active bool) {
	if active {
		c.activate()
	} else {
		c.deactivate()
	}
}

func (c *ActivationController) activate() {
	c.state.Active = true
	c.log.Debug("activating")

	root := c.knownRoot()
	if root != nil {
		c.attach(root)
		return
	}
	root = c.page.QuerySelector(c.selectors.Root)
	if root == nil {
		c.startLocating()
		return
	}
	c.state.locate.Cancel()
	c.state.locate = nil
	c.attach(root)
	if c.onRootFound != nil {
		c.onRootFound(root)
	}
}

// knownRoot returns the remembered root if it is still in the document
func (c *ActivationController) knownRoot() *html.Node {
	root := c.state.Root()
	if root == nil || !c.page.Contains(root) {
		return nil
	}
	return root
}

func (c *ActivationController) startLocating() {
	if c.state.locate.Running() {
		return
	}
	c.log.Debug("chat root not found during activation, polling")
	c.state.locate = c.locator.Locate(c.selectors.Root, c.cfg.PollInterval.Duration, c.cfg.MaxAttempts,
		func(root *html.Node) {
			c.state.locate = nil
			c.state.root = weak.Make(root)
			if c.state.Active {
				c.attach(root)
			}
			if c.onRootFound != nil {
				c.onRootFound(root)
			}
		},
		func(err error) {
			c.state.locate = nil
			c.log.Info("engine stays inactive on this page", "error", err)
		})
}

// attach wires everything to root. A root that replaced the previous one
// first gets the root-bound parts detached.
func (c *ActivationController) attach(root *html.Node) {
	if prev := c.reconciler.Root(); prev != nil && prev != root {
		c.log.Debug("chat root replaced, re-attaching")
		c.reconciler.Deactivate()
		c.copyAction.Detach()
		c.state.ObserverAttached = false
		c.state.CopyButtonListenerAttached = false
	}
	c.state.root = weak.Make(root)

	if c.state.ObserverAttached {
		n := ScanAndRewrite(root, c.rewriter, c.settings.Pattern())
		c.log.Debug("re-processed existing text", "rewritten", n)
	} else {
		c.reconciler.Activate(root)
		c.state.ObserverAttached = true
	}
	if !c.state.ClipboardListenerAttached {
		c.clipboard.Attach()
		c.state.ClipboardListenerAttached = true
	}
	if !c.state.CopyButtonListenerAttached {
		c.copyAction.Attach(root)
		c.state.CopyButtonListenerAttached = true
	}
}

func (c *ActivationController) deactivate() {
	c.log.Debug("deactivating")
	c.state.Active = false
	c.state.locate.Cancel()
	c.state.locate = nil

	if c.state.ObserverAttached {
		c.reconciler.Deactivate()
		c.state.ObserverAttached = false
	}
	if c.state.ClipboardListenerAttached {
		c.clipboard.Detach()
		c.state.ClipboardListenerAttached = false
	}
	if c.state.CopyButtonListenerAttached {
		c.copyAction.Detach()
		c.state.CopyButtonListenerAttached = false
	}

	// keep polling without attaching until the root turns up
	if c.awaitRoot != nil && c.awaitRoot() && c.knownRoot() == nil {
		c.startLocating()
	}
}

// Reset deactivates and forgets the root, for when the whole document is
// replaced
func (c *ActivationController) Reset() {
	c.deactivate()
	c.state.root = weak.Pointer[html.Node]{}
}
