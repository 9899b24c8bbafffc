package tracker

import (
	"context"
	"time"

	"github.com/hpungsan/dwell/internal/db"
	"github.com/hpungsan/dwell/internal/errors"
	"github.com/hpungsan/dwell/internal/site"
)

// Status is the cheap tracking flag view.
type Status struct {
	IsTracking bool `json:"isTracking"`
	// SessionStartTime is epoch ms, nil when stopped
	SessionStartTime *int64 `json:"sessionStartTime"`
}

// CurrentSession is the live view of the active site.
type CurrentSession struct {
	Domain      string `json:"domain"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Favicon     string `json:"favicon"`
	SiteTime    int64  `json:"siteTime"`
	SessionTime int64  `json:"sessionTime"`
	UnsavedTime int64  `json:"unsavedTime"`
	IsIdle      bool   `json:"isIdle"`
}

// SessionStats reconciles checkpointed session time with the unflushed span of
// the active site. Displays derive active and idle time from here only.
type SessionStats struct {
	IsTracking        bool  `json:"isTracking"`
	IsIdle            bool  `json:"isIdle"`
	SessionStartTime  int64 `json:"sessionStartTime,omitempty"`
	SessionTotalTime  int64 `json:"sessionTotalTime"`
	SessionActiveTime int64 `json:"sessionActiveTime"`
	SessionIdleTime   int64 `json:"sessionIdleTime"`
	TodayTotalTime    int64 `json:"todayTotalTime"`
	TodayActiveTime   int64 `json:"todayActiveTime"`
}

// Status returns the tracking flags from memory.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

func (e *Engine) statusLocked() Status {
	st := Status{IsTracking: e.tracking}
	if e.tracking {
		start := e.sessionStart.UnixMilli()
		st.SessionStartTime = &start
	}
	return st
}

// CurrentSession returns live stats for the active site, or nil when not
// tracking or no trackable site is in the foreground.
func (e *Engine) CurrentSession() *CurrentSession {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.tracking || e.site == nil {
		return nil
	}
	now := e.clock.Now()
	s := e.site
	return &CurrentSession{
		Domain:      s.domain,
		URL:         s.tab.URL,
		Title:       s.tab.DisplayTitle(),
		Favicon:     s.tab.FavIconURL,
		SiteTime:    site.ClampDelta(now.Sub(s.start), 0).Milliseconds(),
		SessionTime: site.ClampDelta(now.Sub(e.sessionStart), 0).Milliseconds(),
		UnsavedTime: e.pendingLocked(now).Milliseconds(),
		IsIdle:      e.isIdleLocked(now),
	}
}

// SessionStats returns the authoritative session and today totals.
func (e *Engine) SessionStats(ctx context.Context) (SessionStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	td, err := db.LoadTimeData(ctx, e.store)
	if err != nil {
		return SessionStats{}, errors.NewInternal(err)
	}

	now := e.clock.Now()
	today := site.DayKey(now)
	var stats SessionStats
	for _, rec := range td {
		stats.TodayTotalTime += rec.DailyTime[today]
		stats.TodayActiveTime += rec.DailyActiveTime[today]
	}
	if !e.tracking {
		return stats, nil
	}

	idle := e.isIdleLocked(now)
	pending := e.creditableLocked(now)
	var pendingActive time.Duration
	if !idle {
		pendingActive = pending
	}

	total := site.ClampDelta(now.Sub(e.sessionStart), 0)
	active := e.sessionActive + pendingActive
	if active > total {
		active = total
	}

	stats.IsTracking = true
	stats.IsIdle = idle
	stats.SessionStartTime = e.sessionStart.UnixMilli()
	stats.SessionTotalTime = total.Milliseconds()
	stats.SessionActiveTime = active.Milliseconds()
	stats.SessionIdleTime = (total - active).Milliseconds()
	stats.TodayTotalTime += pending.Milliseconds()
	stats.TodayActiveTime += pendingActive.Milliseconds()
	return stats, nil
}

// pendingLocked is the unflushed span of the active site under the same clamp
// rules as a flush.
func (e *Engine) pendingLocked(now time.Time) time.Duration {
	if e.site == nil {
		return 0
	}
	return site.ClampDelta(now.Sub(e.site.lastSave), e.cfg.MaxDelta())
}

// creditableLocked is the pending span a flush at now would actually credit.
// Visits still under MinDwell may yet be discarded, so they report zero.
func (e *Engine) creditableLocked(now time.Time) time.Duration {
	if e.site == nil || now.Sub(e.site.start) < e.cfg.MinDwell() {
		return 0
	}
	return e.pendingLocked(now)
}
