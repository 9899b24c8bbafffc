package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hpungsan/dwell/internal/db"
	"github.com/hpungsan/dwell/internal/site"
)

// flushSiteLocked commits the outgoing site on a site change.
//
// Visits shorter than MinDwell are discarded entirely. Otherwise the visit is
// counted and the span [lastSave, now) is credited; earlier spans were already
// credited by checkpoints. The credited span is clamped to [0, MaxDelta].
// Storage failures are logged and leave in-memory state unchanged.
func (e *Engine) flushSiteLocked(ctx context.Context, now time.Time) {
	s := e.site
	if s == nil {
		return
	}
	if now.Sub(s.start) < e.cfg.MinDwell() {
		return
	}
	e.commitLocked(ctx, now, true, "site_change")
}

// checkpointLocked credits [lastSave, now) to the active site without ending
// the visit. Nothing is credited until the visit reaches MinDwell, forced or
// not. Unless forced, spans shorter than MinCheckpoint are left for the next tick.
func (e *Engine) checkpointLocked(ctx context.Context, now time.Time, force bool, op string) {
	s := e.site
	if s == nil {
		return
	}
	if s.lastSave.After(now) {
		// Clock moved backwards; restart the span rather than credit a negative delta.
		s.lastSave = now
		if s.start.After(now) {
			s.start = now
		}
		return
	}
	if now.Sub(s.start) < e.cfg.MinDwell() {
		return
	}
	if !force && now.Sub(s.lastSave) < e.cfg.MinCheckpoint() {
		return
	}
	e.commitLocked(ctx, now, false, op)
}

// commitLocked is the read-modify-write shared by both accrual paths. Idle spans
// are credited to total time only.
func (e *Engine) commitLocked(ctx context.Context, now time.Time, visit bool, op string) {
	s := e.site
	delta := site.ClampDelta(now.Sub(s.lastSave), e.cfg.MaxDelta())
	active := !e.isIdleLocked(now)

	td, err := db.LoadTimeData(ctx, e.store)
	if err != nil {
		e.logFlushError(op, s.domain, err)
		return
	}
	rec := td[s.domain]
	if rec == nil {
		rec = site.NewDomainRecord(s.tab, now)
		td[s.domain] = rec
	}
	if visit {
		rec.Visits++
	}
	rec.Touch(s.tab, now)
	rec.Accrue(site.DayKey(now), delta, active)

	sessionActive := e.sessionActive
	if active {
		sessionActive += delta
	}
	if err := db.SaveTimeData(ctx, e.store, td, sessionActive.Milliseconds()); err != nil {
		e.logFlushError(op, s.domain, err)
		return
	}

	e.sessionActive = sessionActive
	s.lastSave = now
	e.log.Debug("flushed",
		slog.String("op", op),
		slog.String("domain", s.domain),
		slog.Duration("delta", delta),
		slog.Bool("active", active))
}

func (e *Engine) logFlushError(op, domain string, err error) {
	e.log.Error("flush failed",
		slog.String("op", op),
		slog.String("domain", domain),
		slog.String("error", err.Error()))
}
