package main

import (
	"log/slog"
	"time"

	"golang.org/x/net/html"
)

// MutationReconciler keeps a root's text rewritten while content streams in.
// It is either inactive (no observer) or active on exactly one root.
type MutationReconciler struct {
	page        *Page
	rewriter    *Rewriter
	settings    *SettingsCell
	sched       Scheduler
	rescanDelay time.Duration
	log         *slog.Logger

	root     *html.Node
	observer *Observer
	rescan   Timer
}

// NewMutationReconciler creates an inactive reconciler
func NewMutationReconciler(page *Page, rw *Rewriter, settings *SettingsCell, sched Scheduler, rescanDelay time.Duration, log *slog.Logger) *MutationReconciler {
	return &MutationReconciler{
		page:        page,
		rewriter:    rw,
		settings:    settings,
		sched:       sched,
		rescanDelay: rescanDelay,
		log:         log,
	}
}

// Active reports whether an observer is attached
func (r *MutationReconciler) Active() bool {
	return r.observer != nil
}

// Root returns the observed root, or nil when inactive
func (r *MutationReconciler) Root() *html.Node {
	return r.root
}

// Activate scans root, starts observing it and schedules one late rescan.
// It is a no-op when already active.
func (r *MutationReconciler) Activate(root *html.Node) {
	if r.observer != nil {
		return
	}
	r.root = root

	n := ScanAndRewrite(root, r.rewriter, r.settings.Pattern())
	r.log.Debug("initial scan done", "rewritten", n)

	r.observer = r.page.Observe(root, ObserveOptions{ChildList: true, CharacterData: true, Subtree: true}, r.handle)
	r.log.Debug("observer attached")

	if r.rescanDelay > 0 {
		r.rescan = r.sched.SetTimeout(r.rescanDelay, func() { r.lateRescan(root) })
	}
}

// Deactivate disconnects the observer and cancels the late rescan
func (r *MutationReconciler) Deactivate() {
	if r.rescan != nil {
		r.rescan.Stop()
		r.rescan = nil
	}
	if r.observer == nil {
		return
	}
	r.observer.Disconnect()
	r.observer = nil
	r.root = nil
	r.log.Debug("observer disconnected")
}

// lateRescan catches content that finished rendering after the last batch
func (r *MutationReconciler) lateRescan(root *html.Node) {
	r.rescan = nil
	if r.observer == nil || r.root != root {
		return
	}
	if !r.page.Contains(root) {
		r.log.Debug("root left the document, skipping rescan")
		return
	}
	n := ScanAndRewrite(root, r.rewriter, r.settings.Pattern())
	r.log.Debug("delayed rescan done", "rewritten", n)
}

// handle processes one batch against a single pattern snapshot
func (r *MutationReconciler) handle(records []MutationRecord) {
	p := r.settings.Pattern()
	for _, rec := range records {
		if r.rewriter.InEditableRegion(rec.Target) {
			continue
		}
		switch rec.Type {
		case MutationCharacterData:
			r.rewriter.Rewrite(rec.Target, p)
		case MutationChildList:
			for _, n := range rec.AddedNodes {
				r.reconcileAdded(n, p)
			}
		}
	}
}

// reconcileAdded rescans only the inserted subtree, never the whole root
func (r *MutationReconciler) reconcileAdded(n *html.Node, p *ActivePattern) {
	switch n.Type {
	case html.ElementNode:
		if r.rewriter.InEditableRegion(n) {
			return
		}
		ScanAndRewrite(n, r.rewriter, p)
	case html.TextNode:
		r.rewriter.Rewrite(n, p)
	}
}
