package tracker

import (
	"testing"
	"time"
)

func TestSessionStats_IncludesUnflushedSpan(t *testing.T) {
	h := newHarness(t)
	h.init()
	h.start()
	h.visit(1, "https://a.com")

	h.clk.Advance(10 * time.Second)
	h.eng.Checkpoint(h.ctx)
	h.clk.Advance(4 * time.Second)

	stats, err := h.eng.SessionStats(h.ctx)
	if err != nil {
		t.Fatalf("SessionStats() error = %v", err)
	}
	if !stats.IsTracking || stats.IsIdle {
		t.Fatalf("stats flags = %+v", stats)
	}
	if stats.SessionActiveTime != 14000 || stats.SessionTotalTime != 14000 || stats.SessionIdleTime != 0 {
		t.Errorf("session times = %+v", stats)
	}
	if stats.TodayActiveTime != 14000 || stats.TodayTotalTime != 14000 {
		t.Errorf("today times = %d/%d, want 14000/14000", stats.TodayActiveTime, stats.TodayTotalTime)
	}
}

func TestSessionStats_Idle(t *testing.T) {
	h := newHarness(t)
	h.init()
	h.start()
	h.visit(1, "https://a.com")

	h.clk.Advance(10 * time.Second)
	h.eng.Checkpoint(h.ctx)
	h.clk.Advance(40 * time.Second)

	stats, err := h.eng.SessionStats(h.ctx)
	if err != nil {
		t.Fatalf("SessionStats() error = %v", err)
	}
	if !stats.IsIdle {
		t.Fatalf("IsIdle = false after 50s without activity")
	}
	if stats.SessionActiveTime != 10000 || stats.SessionIdleTime != 40000 {
		t.Errorf("active/idle = %d/%d, want 10000/40000", stats.SessionActiveTime, stats.SessionIdleTime)
	}
	// Unflushed idle span counts toward today's total, capped like a flush
	if stats.TodayTotalTime != 40000 || stats.TodayActiveTime != 10000 {
		t.Errorf("today total/active = %d/%d, want 40000/10000", stats.TodayTotalTime, stats.TodayActiveTime)
	}
}

func TestSessionStats_ShortVisitNotCounted(t *testing.T) {
	h := newHarness(t)
	h.init()
	h.start()
	h.visit(1, "https://a.com")
	h.clk.Advance(5 * time.Second)
	h.visit(2, "https://b.com")
	h.clk.Advance(1500 * time.Millisecond)

	before, err := h.eng.SessionStats(h.ctx)
	if err != nil {
		t.Fatalf("SessionStats() error = %v", err)
	}
	if before.TodayTotalTime != 5000 || before.TodayActiveTime != 5000 {
		t.Errorf("today total/active = %d/%d, want 5000/5000", before.TodayTotalTime, before.TodayActiveTime)
	}
	if before.SessionActiveTime != 5000 {
		t.Errorf("SessionActiveTime = %d, want 5000", before.SessionActiveTime)
	}

	// b.com is discarded on the switch; today's total must not go down
	h.visit(3, "https://c.com")
	after, _ := h.eng.SessionStats(h.ctx)
	if after.TodayTotalTime < before.TodayTotalTime {
		t.Errorf("TodayTotalTime dropped from %d to %d", before.TodayTotalTime, after.TodayTotalTime)
	}
}

func TestSessionStats_Stopped(t *testing.T) {
	h := newHarness(t)
	h.init()
	h.start()
	h.visit(1, "https://a.com")
	h.clk.Advance(6 * time.Second)
	if _, err := h.eng.StopTracking(h.ctx); err != nil {
		t.Fatalf("StopTracking() error = %v", err)
	}

	stats, err := h.eng.SessionStats(h.ctx)
	if err != nil {
		t.Fatalf("SessionStats() error = %v", err)
	}
	if stats.IsTracking || stats.SessionTotalTime != 0 {
		t.Errorf("stopped stats = %+v", stats)
	}
	if stats.TodayTotalTime != 6000 {
		t.Errorf("TodayTotalTime = %d, want 6000", stats.TodayTotalTime)
	}
}

func TestCurrentSession(t *testing.T) {
	h := newHarness(t)
	h.init()

	if h.eng.CurrentSession() != nil {
		t.Fatalf("CurrentSession() != nil while stopped")
	}

	h.start()
	if h.eng.CurrentSession() != nil {
		t.Fatalf("CurrentSession() != nil with no foreground tab")
	}

	h.visit(1, "https://www.github.com/hpungsan")
	h.clk.Advance(90 * time.Second)
	cur := h.eng.CurrentSession()
	if cur == nil {
		t.Fatalf("CurrentSession() = nil")
	}
	if cur.Domain != "github.com" {
		t.Errorf("Domain = %q, want github.com", cur.Domain)
	}
	if cur.SiteTime != 90000 || cur.SessionTime != 90000 {
		t.Errorf("site/session time = %d/%d, want 90000/90000", cur.SiteTime, cur.SessionTime)
	}
	if cur.UnsavedTime != 30000 {
		t.Errorf("UnsavedTime = %d, want 30000 (capped)", cur.UnsavedTime)
	}
	if !cur.IsIdle {
		t.Errorf("IsIdle = false after 90s without activity")
	}
}

func TestTodayQueries_Idempotent(t *testing.T) {
	h := newHarness(t)
	h.init()
	h.start()
	h.visit(1, "https://a.com")
	h.clk.Advance(5 * time.Second)
	h.eng.Checkpoint(h.ctx)

	first, err := h.eng.SessionStats(h.ctx)
	if err != nil {
		t.Fatalf("SessionStats() error = %v", err)
	}
	second, _ := h.eng.SessionStats(h.ctx)
	if first != second {
		t.Errorf("SessionStats() not idempotent: %+v vs %+v", first, second)
	}
}
