package tracker

import (
	"context"
	"log/slog"

	"github.com/hpungsan/dwell/internal/site"
)

// windowNone mirrors browser.WindowNone without importing the adapter.
const windowNone = -1

// OnTabActivated handles a foreground tab switch.
func (e *Engine) OnTabActivated(ctx context.Context, tabID int) {
	tab, err := e.tabs.Tab(ctx, tabID)
	e.changeSite(ctx, tab, err == nil, "tab_activated")
}

// OnTabUpdated handles a tab navigation. Only a completed load of the tab the
// user is looking at changes the site.
func (e *Engine) OnTabUpdated(ctx context.Context, tabID int, complete, active bool) {
	if !complete || !active {
		return
	}
	current, err := e.tabs.CurrentTab(ctx)
	if err != nil || current.ID != tabID {
		return
	}
	e.changeSite(ctx, current, true, "tab_updated")
}

// OnWindowFocusChanged handles focus moving between windows. Losing focus to
// no window flushes the site and adopts none, so an unfocused browser accrues nothing.
func (e *Engine) OnWindowFocusChanged(ctx context.Context, windowID int) {
	if windowID == windowNone {
		e.changeSite(ctx, site.Tab{}, false, "window_blur")
		return
	}
	tab, err := e.tabs.ActiveTab(ctx, windowID)
	e.changeSite(ctx, tab, err == nil, "window_focus")
}

// OnUserActivity records an engagement pulse from page content.
func (e *Engine) OnUserActivity() {
	e.markActivity()
}

// OnVisibilityChanged records a page visibility transition. Becoming visible counts as activity.
func (e *Engine) OnVisibilityChanged(visible bool) {
	if visible {
		e.markActivity()
	}
}

// OnUserEngaged records sustained engagement reported by page content.
func (e *Engine) OnUserEngaged() {
	e.markActivity()
}

// OnSuspend flushes the open site before the process is suspended. The session
// stays open and is recovered on the next Init.
func (e *Engine) OnSuspend(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready || !e.tracking {
		return
	}
	e.checkpointLocked(ctx, e.clock.Now(), true, "suspend")
	e.log.Info("suspend flush", slog.String("domain", e.domainLocked()))
}

// OnAlarm handles the durable alarm fired by the browser.
func (e *Engine) OnAlarm(ctx context.Context) {
	e.Checkpoint(ctx)
}

// Checkpoint credits time accrued on the active site since the last save.
// Duplicate and overlapping triggers are harmless: spans under MinCheckpoint are skipped.
func (e *Engine) Checkpoint(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready || !e.tracking {
		return
	}
	e.checkpointLocked(ctx, e.clock.Now(), false, "checkpoint")
}

// changeSite flushes the outgoing site and adopts tab when resolved.
// Tracking is re-checked under the lock since tab resolution happened outside it.
func (e *Engine) changeSite(ctx context.Context, tab site.Tab, resolved bool, op string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready || !e.tracking {
		return
	}
	now := e.clock.Now()
	prev := e.domainLocked()
	e.flushSiteLocked(ctx, now)
	if resolved {
		e.adoptLocked(tab, now)
	} else {
		e.site = nil
	}
	if next := e.domainLocked(); next != prev {
		e.log.Debug("site changed", slog.String("op", op), slog.String("from", prev), slog.String("to", next))
	}
}

func (e *Engine) markActivity() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tracking {
		e.lastActivity = e.clock.Now()
	}
}
