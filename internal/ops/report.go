package ops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/dwell/internal/db"
	"github.com/hpungsan/dwell/internal/errors"
	"github.com/hpungsan/dwell/internal/site"
)

// ReportInput contains parameters for the Report operation.
type ReportInput struct {
	Date  string // YYYY-MM-DD, default: today
	Limit int    // top domains listed, default 10, max 100
}

// ReportOutput contains the result of the Report operation.
type ReportOutput struct {
	Date       string       `json:"date"`
	TotalTime  int64        `json:"totalTime"`
	ActiveTime int64        `json:"activeTime"`
	Domains    []DomainTime `json:"domains"`
	Markdown   string       `json:"markdown"`
}

// Report builds the daily markdown report: totals, focus ratio, the top domains
// table, and the last session summary when it ended on the same day.
func Report(ctx context.Context, store db.Store, input ReportInput, now time.Time) (*ReportOutput, error) {
	limit := input.Limit
	if limit < 0 {
		return nil, errors.NewInvalidRequest("limit must not be negative")
	}
	if limit == 0 {
		limit = DefaultReportLimit
	}
	if limit > MaxReportLimit {
		limit = MaxReportLimit
	}

	view, err := Day(ctx, store, DayInput{Date: input.Date}, now)
	if err != nil {
		return nil, err
	}
	summary, err := db.LoadSummary(ctx, store)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	ranked := sortedByTime(view.Domains)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if summary != nil && site.DayKey(time.UnixMilli(summary.EndTime).In(now.Location())) != view.Date {
		summary = nil
	}

	return &ReportOutput{
		Date:       view.Date,
		TotalTime:  view.TotalTime,
		ActiveTime: view.ActiveTime,
		Domains:    ranked,
		Markdown:   renderReport(view, ranked, summary),
	}, nil
}

func renderReport(view *DayOutput, ranked []DomainTime, summary *site.SessionSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Activity for %s\n\n", view.Date)
	if len(ranked) == 0 {
		b.WriteString("No activity recorded.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "- **Total:** %s\n", site.FormatDuration(ms(view.TotalTime)))
	fmt.Fprintf(&b, "- **Focused:** %s\n", site.FormatDuration(ms(view.ActiveTime)))
	fmt.Fprintf(&b, "- **Focus ratio:** %d%%\n", percent(view.ActiveTime, view.TotalTime))
	fmt.Fprintf(&b, "- **Sites:** %d\n\n", len(view.Domains))

	b.WriteString("## Top sites\n\n")
	b.WriteString("| # | Site | Time | Focused | Share |\n")
	b.WriteString("|---|------|------|---------|-------|\n")
	for i, d := range ranked {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %d%% |\n",
			i+1,
			escapeCell(d.Domain),
			site.FormatDuration(ms(d.Time)),
			site.FormatDuration(ms(d.ActiveTime)),
			percent(d.Time, view.TotalTime))
	}

	if summary != nil {
		b.WriteString("\n## Last session\n\n")
		fmt.Fprintf(&b, "- **Duration:** %s\n", site.FormatStopwatch(ms(summary.SessionTotalTime)))
		fmt.Fprintf(&b, "- **Active:** %s\n", site.FormatDuration(ms(summary.SessionActiveTime)))
		fmt.Fprintf(&b, "- **Idle:** %s\n", site.FormatDuration(ms(summary.IdleTime)))
	}
	return b.String()
}

func ms(v int64) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func percent(part, whole int64) int64 {
	if whole <= 0 {
		return 0
	}
	return part * 100 / whole
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
