package main

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

const (
	onboardingOverlayID = "bashdatdash-onboarding-overlay"
	onboardingCloseID   = "bashdatdash-onboarding-close"
)

const onboardingTemplate = `<div id="bashdatdash-onboarding-overlay">` +
	`<div id="bashdatdash-onboarding-content">` +
	`<h2>Welcome to BashDatDash!</h2>` +
	`<p>This extension is now %s. It replaces em-dashes and en-dashes in ChatGPT responses with a comma and space (by default).</p>` +
	`<p>You can customize these settings anytime from the BashDatDash settings.</p>` +
	`<button id="bashdatdash-onboarding-close">Got It!</button>` +
	`</div></div>`

// showOnboarding inserts the first-run overlay into <body> and records that
// it was shown. It does nothing once the store says it has been shown.
func (e *Engine) showOnboarding() {
	if e.onboardingShown {
		return
	}
	body := e.page.Body()
	if body == nil {
		e.log.Warn("no body element, onboarding skipped")
		return
	}

	state := "disabled"
	if e.settings.Settings().Enabled {
		state = "<strong>active</strong>"
	}
	nodes, err := e.page.AppendHTML(body, fmt.Sprintf(onboardingTemplate, state))
	if err != nil || len(nodes) == 0 {
		e.log.Error("failed to build onboarding overlay", "error", err)
		return
	}
	overlay := nodes[0]

	if sel := goquery.NewDocumentFromNode(overlay).Find("#" + onboardingCloseID); sel.Length() > 0 {
		button := sel.Nodes[0]
		var id ListenerID
		id = e.page.AddEventListener(button, EventClick, false, func(*Event) {
			e.page.RemoveEventListener(id)
			if overlay.Parent != nil {
				e.page.RemoveChild(overlay.Parent, overlay)
			}
			e.log.Debug("onboarding closed")
		})
	}

	e.onboardingShown = true
	if e.store != nil {
		if err := e.store.MarkOnboardingShown(); err != nil {
			e.log.Error("failed to persist onboarding flag", "error", err)
			return
		}
	}
	e.log.Debug("onboarding shown")
}
