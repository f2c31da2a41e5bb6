package main

import (
	"errors"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrRootNotFound is reported when the root never appears
var ErrRootNotFound = errors.New("root element not found")

// RootLocator polls the page for the chat root
type RootLocator struct {
	page  *Page
	sched Scheduler
	log   *slog.Logger
}

// NewRootLocator creates a locator bound to page
func NewRootLocator(page *Page, sched Scheduler, log *slog.Logger) *RootLocator {
	return &RootLocator{page: page, sched: sched, log: log}
}

// LocateHandle controls one running poll
type LocateHandle struct {
	timer    Timer
	attempts int
	finished bool
}

// Cancel stops polling; no callback fires afterwards
func (h *LocateHandle) Cancel() {
	if h == nil || h.finished {
		return
	}
	h.finished = true
	if h.timer != nil {
		h.timer.Stop()
	}
}

// Running reports whether the poll is still waiting for the root
func (h *LocateHandle) Running() bool {
	return h != nil && !h.finished
}

// Attempts returns the number of polls made so far
func (h *LocateHandle) Attempts() int {
	return h.attempts
}

// Locate polls every interval for an element matching sel. onFound runs the
// first time it matches; onMissing (optional) runs after maxAttempts misses.
// The timer is stopped in both cases.
func (l *RootLocator) Locate(sel goquery.Matcher, interval time.Duration, maxAttempts int, onFound func(*html.Node), onMissing func(error)) *LocateHandle {
	h := &LocateHandle{}
	h.timer = l.sched.SetInterval(interval, func() {
		if h.finished {
			return
		}
		h.attempts++
		if root := l.page.QuerySelector(sel); root != nil {
			l.log.Debug("chat root found", "attempt", h.attempts)
			h.Cancel()
			onFound(root)
			return
		}
		l.log.Debug("chat root not found", "attempt", h.attempts, "max_attempts", maxAttempts)
		if h.attempts >= maxAttempts {
			h.Cancel()
			l.log.Info("max attempts reached, chat root not found", "attempts", h.attempts)
			if onMissing != nil {
				onMissing(ErrRootNotFound)
			}
		}
	})
	return h
}
