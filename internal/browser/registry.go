// Package browser mirrors browser tab and window state reported by the extension.
package browser

import (
	"context"
	"errors"
	"sync"

	"github.com/hpungsan/dwell/internal/site"
)

// WindowNone is the window ID reported when no browser window has focus.
const WindowNone = -1

// ErrTabNotFound is returned when a tab is unknown or was closed.
var ErrTabNotFound = errors.New("tab not found")

// Registry holds the latest known state of every tab, the active tab per window,
// and the focused window.
type Registry struct {
	mu      sync.RWMutex
	tabs    map[int]site.Tab
	active  map[int]int // windowID -> tabID
	focused int
}

// NewRegistry creates an empty registry with no focused window.
func NewRegistry() *Registry {
	return &Registry{
		tabs:    make(map[int]site.Tab),
		active:  make(map[int]int),
		focused: WindowNone,
	}
}

// UpsertTab records the tab. An active tab becomes its window's active tab.
func (r *Registry) UpsertTab(tab site.Tab) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.tabs[tab.ID]; ok && prev.WindowID != tab.WindowID && r.active[prev.WindowID] == tab.ID {
		delete(r.active, prev.WindowID)
	}
	r.tabs[tab.ID] = tab
	if tab.Active {
		r.setActiveLocked(tab.WindowID, tab.ID)
	}
}

// RemoveTab forgets a closed tab.
func (r *Registry) RemoveTab(tabID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tab, ok := r.tabs[tabID]
	if !ok {
		return
	}
	delete(r.tabs, tabID)
	if r.active[tab.WindowID] == tabID {
		delete(r.active, tab.WindowID)
	}
}

// Activate marks tabID as the active tab of windowID. Activation implies the
// window is the one the user is working in, so it also takes focus.
func (r *Registry) Activate(tabID, windowID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tab, ok := r.tabs[tabID]; ok {
		tab.WindowID = windowID
		r.tabs[tabID] = tab
	}
	r.setActiveLocked(windowID, tabID)
	r.focused = windowID
}

// FocusWindow records the focused window. WindowNone means the browser lost focus.
func (r *Registry) FocusWindow(windowID int) {
	r.mu.Lock()
	r.focused = windowID
	r.mu.Unlock()
}

// FocusedWindow returns the focused window ID or WindowNone.
func (r *Registry) FocusedWindow() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.focused
}

// Tab returns the tab with the given ID.
func (r *Registry) Tab(_ context.Context, tabID int) (site.Tab, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tab, ok := r.tabs[tabID]
	if !ok {
		return site.Tab{}, ErrTabNotFound
	}
	return tab, nil
}

// ActiveTab returns the active tab of a window.
func (r *Registry) ActiveTab(_ context.Context, windowID int) (site.Tab, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeTabLocked(windowID)
}

// CurrentTab returns the active tab of the focused window.
func (r *Registry) CurrentTab(_ context.Context) (site.Tab, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.focused == WindowNone {
		return site.Tab{}, ErrTabNotFound
	}
	return r.activeTabLocked(r.focused)
}

// Tabs returns a snapshot of all known tabs.
func (r *Registry) Tabs() []site.Tab {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]site.Tab, 0, len(r.tabs))
	for _, tab := range r.tabs {
		out = append(out, tab)
	}
	return out
}

func (r *Registry) activeTabLocked(windowID int) (site.Tab, error) {
	tabID, ok := r.active[windowID]
	if !ok {
		return site.Tab{}, ErrTabNotFound
	}
	tab, ok := r.tabs[tabID]
	if !ok {
		return site.Tab{}, ErrTabNotFound
	}
	return tab, nil
}

func (r *Registry) setActiveLocked(windowID, tabID int) {
	if prevID, ok := r.active[windowID]; ok && prevID != tabID {
		if prev, ok := r.tabs[prevID]; ok {
			prev.Active = false
			r.tabs[prevID] = prev
		}
	}
	r.active[windowID] = tabID
	if tab, ok := r.tabs[tabID]; ok {
		tab.Active = true
		r.tabs[tabID] = tab
	}
}
