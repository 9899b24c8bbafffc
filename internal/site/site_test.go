package site

import (
	"testing"
	"time"
)

func TestDomainRecord_Accrue(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	rec := NewDomainRecord(Tab{URL: "https://example.com", Title: "Example"}, now)

	rec.Accrue("2026-10-18", 5*time.Second, true)
	rec.Accrue("2026-10-18", 3*time.Second, false)
	rec.Accrue("2026-10-19", 2*time.Second, true)

	if rec.TotalTime != 10000 {
		t.Errorf("TotalTime = %d, want 10000", rec.TotalTime)
	}
	if rec.ActiveTime != 7000 {
		t.Errorf("ActiveTime = %d, want 7000", rec.ActiveTime)
	}
	if rec.DailyTime["2026-10-18"] != 8000 {
		t.Errorf("DailyTime[18] = %d, want 8000", rec.DailyTime["2026-10-18"])
	}
	if rec.DailyActiveTime["2026-10-18"] != 5000 {
		t.Errorf("DailyActiveTime[18] = %d, want 5000", rec.DailyActiveTime["2026-10-18"])
	}
	for day, total := range rec.DailyTime {
		if rec.DailyActiveTime[day] > total {
			t.Errorf("day %s: active %d > total %d", day, rec.DailyActiveTime[day], total)
		}
	}
}

func TestDomainRecord_AccrueIgnoresNonPositive(t *testing.T) {
	rec := &DomainRecord{}

	rec.Accrue("2026-10-18", -time.Second, true)
	rec.Accrue("2026-10-18", 0, true)

	if rec.TotalTime != 0 || rec.ActiveTime != 0 {
		t.Errorf("record changed: %+v", rec)
	}
	if _, ok := rec.DailyTime["2026-10-18"]; ok {
		t.Error("no day entry should be created for a zero delta")
	}
}

func TestDomainRecord_Touch(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	rec := NewDomainRecord(Tab{URL: "https://example.com", FavIconURL: "https://example.com/a.ico"}, now)

	if rec.Title != "example.com" {
		t.Errorf("Title = %q, want domain fallback", rec.Title)
	}

	later := now.Add(time.Minute)
	rec.Touch(Tab{URL: "https://example.com", Title: "Example"}, later)

	if rec.Title != "Example" {
		t.Errorf("Title = %q, want Example", rec.Title)
	}
	if rec.Favicon != "https://example.com/a.ico" {
		t.Errorf("Favicon = %q, empty favicon should not overwrite", rec.Favicon)
	}
	if rec.LastVisit != later.UnixMilli() {
		t.Errorf("LastVisit = %d, want %d", rec.LastVisit, later.UnixMilli())
	}
}

func TestNewSessionSummary(t *testing.T) {
	start := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Minute)

	s := NewSessionSummary(start, end, 4*time.Minute)

	if s.SessionTotalTime != 600000 {
		t.Errorf("SessionTotalTime = %d, want 600000", s.SessionTotalTime)
	}
	if s.SessionActiveTime != 240000 {
		t.Errorf("SessionActiveTime = %d, want 240000", s.SessionActiveTime)
	}
	if s.IdleTime != 360000 {
		t.Errorf("IdleTime = %d, want 360000", s.IdleTime)
	}
}

func TestNewSessionSummary_ActiveCappedAtTotal(t *testing.T) {
	start := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	s := NewSessionSummary(start, start.Add(time.Minute), 2*time.Minute)

	if s.SessionActiveTime != s.SessionTotalTime {
		t.Errorf("SessionActiveTime = %d, want %d", s.SessionActiveTime, s.SessionTotalTime)
	}
	if s.IdleTime != 0 {
		t.Errorf("IdleTime = %d, want 0", s.IdleTime)
	}
}

func TestClampDelta(t *testing.T) {
	tests := []struct {
		d, limit, want time.Duration
	}{
		{-5 * time.Second, 30 * time.Second, 0},
		{10 * time.Second, 30 * time.Second, 10 * time.Second},
		{45 * time.Second, 30 * time.Second, 30 * time.Second},
		{45 * time.Second, 0, 45 * time.Second},
	}
	for _, tt := range tests {
		if got := ClampDelta(tt.d, tt.limit); got != tt.want {
			t.Errorf("ClampDelta(%v, %v) = %v, want %v", tt.d, tt.limit, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		40 * time.Second:               "40s",
		12*time.Minute + 5*time.Second: "12m",
		65 * time.Minute:               "1h 5m",
		-time.Second:                   "0s",
	}
	for in, want := range tests {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatStopwatch(t *testing.T) {
	if got := FormatStopwatch(time.Hour + 2*time.Minute + 3*time.Second); got != "1:02:03" {
		t.Errorf("FormatStopwatch() = %q, want 1:02:03", got)
	}
}
