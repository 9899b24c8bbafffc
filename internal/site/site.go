package site

import "time"

// Tab is the identity of a browser tab as reported by the extension.
type Tab struct {
	// ID is the browser tab ID
	ID int `json:"id"`

	// WindowID is the browser window owning the tab
	WindowID int `json:"windowId"`

	// URL is the tab's current URL (may be empty while loading)
	URL string `json:"url"`

	// Title is the page title
	Title string `json:"title"`

	// FavIconURL is the page favicon, if known
	FavIconURL string `json:"favIconUrl"`

	// Active is true when the tab is the active tab of its window
	Active bool `json:"active"`

	// Status is "loading" or "complete"
	Status string `json:"status"`
}

// DisplayTitle returns the tab title, falling back to its domain.
func (t Tab) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return ExtractDomain(t.URL)
}

// DomainRecord is the durable time accounting for a single normalized domain.
// All durations are milliseconds.
type DomainRecord struct {
	TotalTime       int64            `json:"totalTime"`
	ActiveTime      int64            `json:"activeTime"`
	Visits          int              `json:"visits"`
	LastVisit       int64            `json:"lastVisit"`
	Title           string           `json:"title"`
	Favicon         string           `json:"favicon"`
	DailyTime       map[string]int64 `json:"dailyTime"`
	DailyActiveTime map[string]int64 `json:"dailyActiveTime"`
}

// NewDomainRecord creates a zeroed record for a domain seen for the first time.
func NewDomainRecord(tab Tab, now time.Time) *DomainRecord {
	return &DomainRecord{
		LastVisit:       now.UnixMilli(),
		Title:           tab.DisplayTitle(),
		Favicon:         tab.FavIconURL,
		DailyTime:       map[string]int64{},
		DailyActiveTime: map[string]int64{},
	}
}

// Accrue adds elapsed time to the record for the given day. Active time is only
// credited when active is true; it never exceeds the total credited.
func (r *DomainRecord) Accrue(day string, elapsed time.Duration, active bool) {
	ms := elapsed.Milliseconds()
	if ms <= 0 {
		return
	}
	if r.DailyTime == nil {
		r.DailyTime = map[string]int64{}
	}
	if r.DailyActiveTime == nil {
		r.DailyActiveTime = map[string]int64{}
	}
	r.TotalTime += ms
	r.DailyTime[day] += ms
	if active {
		r.ActiveTime += ms
		r.DailyActiveTime[day] += ms
	}
}

// Touch records tab metadata for display.
func (r *DomainRecord) Touch(tab Tab, now time.Time) {
	r.LastVisit = now.UnixMilli()
	r.Title = tab.DisplayTitle()
	if tab.FavIconURL != "" {
		r.Favicon = tab.FavIconURL
	}
}

// TimeData is the durable mapping from domain to record.
type TimeData map[string]*DomainRecord

// SessionSummary is the snapshot written when a tracking session stops.
type SessionSummary struct {
	SessionTotalTime  int64 `json:"sessionTotalTime"`
	SessionActiveTime int64 `json:"sessionActiveTime"`
	IdleTime          int64 `json:"idleTime"`
	StartTime         int64 `json:"startTime"`
	EndTime           int64 `json:"endTime"`
}

// NewSessionSummary derives idle time from total and active time.
func NewSessionSummary(start, end time.Time, active time.Duration) SessionSummary {
	total := ClampDelta(end.Sub(start), 0)
	if active > total {
		active = total
	}
	return SessionSummary{
		SessionTotalTime:  total.Milliseconds(),
		SessionActiveTime: active.Milliseconds(),
		IdleTime:          (total - active).Milliseconds(),
		StartTime:         start.UnixMilli(),
		EndTime:           end.UnixMilli(),
	}
}

// ClampDelta bounds d to [0, limit]. A limit of 0 or less means no upper bound.
func ClampDelta(d, limit time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if limit > 0 && d > limit {
		return limit
	}
	return d
}
