// Package tracker implements the tracking engine: the session state machine,
// the flush protocol that commits per-domain time to the durable store, and the
// live queries derived from in-memory state.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hpungsan/dwell/internal/clock"
	"github.com/hpungsan/dwell/internal/config"
	"github.com/hpungsan/dwell/internal/db"
	"github.com/hpungsan/dwell/internal/errors"
	"github.com/hpungsan/dwell/internal/site"
)

// TabSource resolves browser tabs. Lookups of closed or unknown tabs fail.
type TabSource interface {
	Tab(ctx context.Context, tabID int) (site.Tab, error)
	ActiveTab(ctx context.Context, windowID int) (site.Tab, error)
	CurrentTab(ctx context.Context) (site.Tab, error)
}

// Capture is the optional screenshot side system started and stopped with tracking.
// Begin and End must return promptly; any round trip to the browser runs in the background.
type Capture interface {
	Begin(ctx context.Context) error
	End(ctx context.Context) error
	IsActive() bool
}

// Options configures an Engine. Zero values get defaults.
type Options struct {
	Clock   clock.Clock
	Capture Capture
	Logger  *slog.Logger
}

// Engine is the single tracking state machine of the process.
// All state below mu is guarded by it, including store round trips, so
// concurrent signals are applied one at a time.
type Engine struct {
	store   db.Store
	tabs    TabSource
	cfg     *config.Config
	clock   clock.Clock
	capture Capture
	log     *slog.Logger

	mu            sync.Mutex
	ready         bool
	tracking      bool
	sessionStart  time.Time
	sessionActive time.Duration
	lastActivity  time.Time
	site          *activeSite
	timers        *timerSet
}

// activeSite is the foreground trackable tab. It only exists while tracking.
type activeSite struct {
	tab      site.Tab
	domain   string
	start    time.Time
	lastSave time.Time
}

// New creates an engine. It accepts no mutating commands until Init completes.
func New(store db.Store, tabs TabSource, cfg *config.Config, opts Options) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	e := &Engine{
		store:   store,
		tabs:    tabs,
		cfg:     cfg,
		clock:   opts.Clock,
		capture: opts.Capture,
		log:     opts.Logger,
	}
	if e.clock == nil {
		e.clock = clock.System{}
	}
	if e.capture == nil {
		e.capture = noCapture{}
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e
}

// Init restores a session left open by a previous process and marks the engine ready.
// Startup counts as user activity.
func (e *Engine) Init(ctx context.Context) error {
	tab, tabErr := e.tabs.CurrentTab(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ready {
		return nil
	}

	st, err := db.LoadSessionState(ctx, e.store)
	if err != nil {
		return errors.NewInternal(err)
	}
	e.ready = true
	if !st.IsTracking {
		e.log.Info("tracker ready", slog.Bool("tracking", false))
		return nil
	}

	now := e.clock.Now()
	e.tracking = true
	e.sessionStart = now
	if st.SessionStartTime > 0 {
		e.sessionStart = time.UnixMilli(st.SessionStartTime)
	}
	e.sessionActive = time.Duration(st.SessionActiveTime) * time.Millisecond
	e.lastActivity = now
	if tabErr == nil {
		e.adoptLocked(tab, now)
	}
	e.armTimersLocked()
	if err := e.capture.Begin(ctx); err != nil {
		e.log.Warn("capture begin failed", slog.String("error", err.Error()))
	}

	e.log.Info("tracking session recovered",
		slog.Time("session_start", e.sessionStart),
		slog.Duration("session_active", e.sessionActive),
		slog.String("domain", e.domainLocked()))
	return nil
}

// Ready reports whether Init has completed.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

// StartTracking opens a session. Starting an open session is a no-op.
func (e *Engine) StartTracking(ctx context.Context) (Status, error) {
	tab, tabErr := e.tabs.CurrentTab(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		return Status{}, errors.NewNotReady()
	}
	if e.tracking {
		return e.statusLocked(), nil
	}

	now := e.clock.Now()
	if err := db.SaveSessionState(ctx, e.store, db.SessionState{
		IsTracking:       true,
		SessionStartTime: now.UnixMilli(),
	}); err != nil {
		e.log.Error("persist session start failed", slog.String("op", "start"), slog.String("error", err.Error()))
		return Status{}, errors.NewInternal(err)
	}

	e.tracking = true
	e.sessionStart = now
	e.sessionActive = 0
	e.lastActivity = now
	if tabErr == nil {
		e.adoptLocked(tab, now)
	}
	e.armTimersLocked()
	if err := e.capture.Begin(ctx); err != nil {
		e.log.Warn("capture begin failed", slog.String("error", err.Error()))
	}

	e.log.Info("tracking started", slog.String("domain", e.domainLocked()))
	return e.statusLocked(), nil
}

// StopTracking flushes the open site, snapshots the session summary and closes
// the session. Timers are disarmed before it returns. Stopping a stopped engine
// returns a nil summary.
func (e *Engine) StopTracking(ctx context.Context) (*site.SessionSummary, error) {
	e.mu.Lock()

	if !e.ready {
		e.mu.Unlock()
		return nil, errors.NewNotReady()
	}
	if !e.tracking {
		e.mu.Unlock()
		return nil, nil
	}

	now := e.clock.Now()
	e.flushSiteLocked(ctx, now)

	summary := site.NewSessionSummary(e.sessionStart, now, e.sessionActive)
	if err := db.SaveSessionEnd(ctx, e.store, summary); err != nil {
		e.mu.Unlock()
		e.log.Error("persist session end failed", slog.String("op", "stop"), slog.String("error", err.Error()))
		return nil, errors.NewInternal(err)
	}

	if err := e.capture.End(ctx); err != nil {
		e.log.Warn("capture end failed", slog.String("error", err.Error()))
	}
	timers := e.resetSessionLocked()
	e.mu.Unlock()

	timers.stop()
	e.log.Info("tracking stopped",
		slog.Int64("total_ms", summary.SessionTotalTime),
		slog.Int64("active_ms", summary.SessionActiveTime))
	return &summary, nil
}

// ClearAllData erases the durable store. An open session is dropped without a
// summary and capture is ended.
func (e *Engine) ClearAllData(ctx context.Context) error {
	e.mu.Lock()

	if !e.ready {
		e.mu.Unlock()
		return errors.NewNotReady()
	}
	if err := e.store.Clear(ctx); err != nil {
		e.mu.Unlock()
		e.log.Error("clear store failed", slog.String("op", "clear"), slog.String("error", err.Error()))
		return errors.NewInternal(err)
	}

	var timers *timerSet
	if e.tracking {
		if err := e.capture.End(ctx); err != nil {
			e.log.Warn("capture end failed", slog.String("error", err.Error()))
		}
		timers = e.resetSessionLocked()
	}
	e.mu.Unlock()

	timers.stop()
	e.log.Info("all data cleared")
	return nil
}

// Close disarms timers without touching session state, so an open session is
// recovered by the next process.
func (e *Engine) Close() {
	e.mu.Lock()
	timers := e.timers
	e.timers = nil
	e.mu.Unlock()
	timers.stop()
}

// resetSessionLocked clears every in-memory session field and returns the
// timers for the caller to stop after releasing mu.
func (e *Engine) resetSessionLocked() *timerSet {
	e.tracking = false
	e.sessionStart = time.Time{}
	e.sessionActive = 0
	e.lastActivity = time.Time{}
	e.site = nil
	timers := e.timers
	e.timers = nil
	return timers
}

// adoptLocked makes tab the active site. Untrackable tabs collapse it to none.
func (e *Engine) adoptLocked(tab site.Tab, now time.Time) {
	if !site.IsTrackable(tab.URL, e.cfg.BlockedSchemes) {
		e.site = nil
		return
	}
	e.site = &activeSite{
		tab:      tab,
		domain:   site.ExtractDomain(tab.URL),
		start:    now,
		lastSave: now,
	}
	e.lastActivity = now
}

func (e *Engine) domainLocked() string {
	if e.site == nil {
		return ""
	}
	return e.site.domain
}

func (e *Engine) isIdleLocked(now time.Time) bool {
	if e.lastActivity.IsZero() {
		return false
	}
	return now.Sub(e.lastActivity) > e.cfg.IdleThreshold()
}

type noCapture struct{}

func (noCapture) Begin(context.Context) error { return nil }
func (noCapture) End(context.Context) error   { return nil }
func (noCapture) IsActive() bool              { return false }
