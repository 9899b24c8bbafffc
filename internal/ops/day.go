package ops

import (
	"context"
	"time"

	"github.com/hpungsan/dwell/internal/db"
	"github.com/hpungsan/dwell/internal/errors"
	"github.com/hpungsan/dwell/internal/site"
)

// DayInput contains parameters for the Day operation.
type DayInput struct {
	Date string // YYYY-MM-DD, default: today
}

// DayOutput contains the result of the Day operation.
type DayOutput struct {
	Date       string              `json:"date"`
	Domains    map[string]DayEntry `json:"domains"`
	TotalTime  int64               `json:"totalTime"`
	ActiveTime int64               `json:"activeTime"`
}

// Day filters every domain record to a single calendar day. Domains without an
// entry for the day are left out.
func Day(ctx context.Context, store db.Store, input DayInput, now time.Time) (*DayOutput, error) {
	day, err := ResolveDay(input.Date, now)
	if err != nil {
		return nil, err
	}

	td, err := db.LoadTimeData(ctx, store)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return dayView(td, day), nil
}

// Today returns the view for now's calendar day.
func Today(ctx context.Context, store db.Store, now time.Time) (*DayOutput, error) {
	return Day(ctx, store, DayInput{}, now)
}

// Yesterday returns the view for the calendar day before now.
func Yesterday(ctx context.Context, store db.Store, now time.Time) (*DayOutput, error) {
	return Day(ctx, store, DayInput{Date: site.PreviousDayKey(now)}, now)
}

func dayView(td site.TimeData, day string) *DayOutput {
	out := &DayOutput{Date: day, Domains: make(map[string]DayEntry)}
	for domain, rec := range td {
		spent, ok := rec.DailyTime[day]
		if !ok || spent <= 0 {
			continue
		}
		entry := DayEntry{
			Time:       spent,
			ActiveTime: rec.DailyActiveTime[day],
			Title:      rec.Title,
			Favicon:    rec.Favicon,
			Visits:     rec.Visits,
		}
		out.Domains[domain] = entry
		out.TotalTime += entry.Time
		out.ActiveTime += entry.ActiveTime
	}
	return out
}
