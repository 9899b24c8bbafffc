package screenshot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hpungsan/dwell/internal/db"
	"github.com/hpungsan/dwell/internal/errors"
	"github.com/hpungsan/dwell/internal/site"
)

// StatusOutput is the capture configuration and state.
type StatusOutput struct {
	Enabled    bool  `json:"enabled"`
	IntervalMs int64 `json:"interval"`
	IsActive   bool  `json:"isActive"`
	Count      int   `json:"count"`
}

// Status returns the persisted settings, whether a stream is live, and the stored count.
func (m *Manager) Status(ctx context.Context) (StatusOutput, error) {
	settings, err := db.LoadScreenshotSettings(ctx, m.store)
	if err != nil {
		return StatusOutput{}, errors.NewInternal(err)
	}
	shots, err := db.LoadScreenshots(ctx, m.store)
	if err != nil {
		return StatusOutput{}, errors.NewInternal(err)
	}
	return StatusOutput{
		Enabled:    settings.Enabled,
		IntervalMs: m.interval(settings).Milliseconds(),
		IsActive:   m.IsActive(),
		Count:      len(shots),
	}, nil
}

// Enable turns on periodic capture. An interval of 0 uses the default. If a
// session is open, capture starts right away; a running stream switches to the
// new interval without asking for permission again.
func (m *Manager) Enable(ctx context.Context, intervalMs int64) (StatusOutput, error) {
	if intervalMs < 0 {
		return StatusOutput{}, errors.NewInvalidRequest("interval must not be negative")
	}
	if intervalMs == 0 {
		intervalMs = m.cfg.ScreenshotDefaultIntervalMs
	}
	if intervalMs < m.cfg.ScreenshotMinIntervalMs {
		return StatusOutput{}, errors.NewInvalidRequest(
			fmt.Sprintf("interval must be at least %dms", m.cfg.ScreenshotMinIntervalMs))
	}

	settings := db.ScreenshotSettings{Enabled: true, IntervalMs: intervalMs}
	if err := db.SaveScreenshotSettings(ctx, m.store, settings); err != nil {
		return StatusOutput{}, errors.NewInternal(err)
	}

	m.mu.Lock()
	if m.sessionOpen {
		m.startLocked(m.interval(settings))
	}
	m.mu.Unlock()

	return m.Status(ctx)
}

// Disable turns off periodic capture and stops a running stream.
func (m *Manager) Disable(ctx context.Context) (StatusOutput, error) {
	settings, err := db.LoadScreenshotSettings(ctx, m.store)
	if err != nil {
		return StatusOutput{}, errors.NewInternal(err)
	}
	settings.Enabled = false
	if err := db.SaveScreenshotSettings(ctx, m.store, settings); err != nil {
		return StatusOutput{}, errors.NewInternal(err)
	}

	m.mu.Lock()
	loop := m.loop
	m.loop = nil
	m.mu.Unlock()
	if err := m.stopLoop(loop); err != nil {
		m.log.Warn("stop capture notify failed", slog.String("error", err.Error()))
	}

	return m.Status(ctx)
}

// TakeNow captures a screenshot immediately from the live stream.
func (m *Manager) TakeNow(ctx context.Context) (site.ScreenshotMeta, error) {
	if !m.IsActive() {
		return site.ScreenshotMeta{}, errors.NewInvalidRequest("no active capture stream; enable screenshots and start tracking first")
	}
	return m.capture(ctx)
}
