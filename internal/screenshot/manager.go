// Package screenshot is the optional periodic capture side system. It runs only
// while a tracking session is open and screenshots are enabled.
package screenshot

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/hpungsan/dwell/internal/clock"
	"github.com/hpungsan/dwell/internal/config"
	"github.com/hpungsan/dwell/internal/db"
	"github.com/hpungsan/dwell/internal/errors"
	"github.com/hpungsan/dwell/internal/site"
)

// Extension actions.
const (
	ActionRequestPermission = "requestPermission"
	ActionCapture           = "captureScreenshotFromStream"
	ActionStopCapture       = "stopScreenCapture"
)

// Bridge is the round trip to the extension.
type Bridge interface {
	Request(ctx context.Context, action string, params any, timeout time.Duration) (json.RawMessage, error)
	Notify(action string, params any) error
}

// TabSource supplies metadata for captured screenshots.
type TabSource interface {
	CurrentTab(ctx context.Context) (site.Tab, error)
}

// Manager starts and stops capture with the tracking session.
type Manager struct {
	store  db.Store
	bridge Bridge
	tabs   TabSource
	cfg    *config.Config
	clock  clock.Clock
	log    *slog.Logger

	mu          sync.Mutex
	sessionOpen bool
	streaming   bool
	loop        *captureLoop

	// storeMu serializes read-modify-write of the screenshots key.
	storeMu sync.Mutex
}

type captureLoop struct {
	cancel context.CancelFunc
	done   chan struct{}
	every  time.Duration
	retune chan time.Duration
}

// retuneLocked hands the loop a new interval. Only the latest value is kept.
func (l *captureLoop) retuneLocked(every time.Duration) {
	if every == l.every {
		return
	}
	l.every = every
	select {
	case <-l.retune:
	default:
	}
	l.retune <- every
}

// NewManager creates a Manager. tabs and clk may be nil.
func NewManager(store db.Store, bridge Bridge, tabs TabSource, cfg *config.Config, clk clock.Clock, logger *slog.Logger) *Manager {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  store,
		bridge: bridge,
		tabs:   tabs,
		cfg:    cfg,
		clock:  clk,
		log:    logger,
	}
}

// Begin marks the session open and starts capture if enabled. It returns before
// the permission round trip completes.
func (m *Manager) Begin(ctx context.Context) error {
	settings, err := db.LoadScreenshotSettings(ctx, m.store)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessionOpen = true
	if settings.Enabled {
		m.startLocked(m.interval(settings))
	}
	return nil
}

// End stops capture and marks the session closed.
func (m *Manager) End(_ context.Context) error {
	m.mu.Lock()
	m.sessionOpen = false
	loop := m.loop
	m.loop = nil
	m.mu.Unlock()

	return m.stopLoop(loop)
}

// IsActive reports whether a capture stream is live.
func (m *Manager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streaming
}

// startLocked launches the capture loop. A running loop keeps its stream and
// switches to the new interval.
func (m *Manager) startLocked(every time.Duration) {
	if m.loop != nil {
		m.loop.retuneLocked(every)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	loop := &captureLoop{
		cancel: cancel,
		done:   make(chan struct{}),
		every:  every,
		retune: make(chan time.Duration, 1),
	}
	m.loop = loop
	go m.run(ctx, loop, every)
}

func (m *Manager) stopLoop(loop *captureLoop) error {
	if loop == nil {
		return nil
	}
	loop.cancel()
	<-loop.done

	m.mu.Lock()
	m.streaming = false
	m.mu.Unlock()

	return m.bridge.Notify(ActionStopCapture, nil)
}

// run asks for capture permission, then captures every interval until canceled.
func (m *Manager) run(ctx context.Context, loop *captureLoop, every time.Duration) {
	defer close(loop.done)

	if _, err := m.bridge.Request(ctx, ActionRequestPermission, nil, m.cfg.ScreenshotPermissionTimeout()); err != nil {
		if ctx.Err() == nil {
			m.log.Warn("screen capture permission failed", slog.String("error", err.Error()))
		}
		m.mu.Lock()
		if m.loop == loop {
			m.loop = nil
		}
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	m.streaming = true
	m.mu.Unlock()
	m.log.Info("screen capture started", slog.Duration("interval", every))

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-loop.retune:
			every = d
			ticker.Reset(every)
			m.log.Info("screen capture interval changed", slog.Duration("interval", every))
		case <-ticker.C:
			if _, err := m.capture(ctx); err != nil && ctx.Err() == nil {
				m.log.Warn("periodic screenshot failed", slog.String("error", err.Error()))
			}
		}
	}
}

// capture asks the extension for a frame and stores it.
func (m *Manager) capture(ctx context.Context) (site.ScreenshotMeta, error) {
	raw, err := m.bridge.Request(ctx, ActionCapture, nil, m.cfg.ScreenshotCaptureTimeout())
	if err != nil {
		return site.ScreenshotMeta{}, err
	}

	var payload struct {
		Screenshot string `json:"screenshot"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Screenshot == "" {
		return site.ScreenshotMeta{}, errors.NewInternal(errEmptyCapture)
	}

	shot := site.Screenshot{
		ID:        newID(m.clock.Now()),
		Timestamp: m.clock.Now().UnixMilli(),
		DataURL:   payload.Screenshot,
	}
	if m.tabs != nil {
		if tab, err := m.tabs.CurrentTab(ctx); err == nil {
			shot.URL = tab.URL
			shot.Title = tab.Title
			shot.Domain = site.ExtractDomain(tab.URL)
		}
	}
	if err := m.save(ctx, shot); err != nil {
		return site.ScreenshotMeta{}, err
	}
	return shot.Meta(), nil
}

func (m *Manager) interval(settings db.ScreenshotSettings) time.Duration {
	ms := settings.IntervalMs
	if ms <= 0 {
		ms = m.cfg.ScreenshotDefaultIntervalMs
	}
	return time.Duration(ms) * time.Millisecond
}
