// Package ops holds the read-side views derived from the durable store.
package ops

import (
	"sort"
	"strings"
	"time"

	"github.com/hpungsan/dwell/internal/errors"
	"github.com/hpungsan/dwell/internal/site"
)

// Report limits
const (
	DefaultReportLimit = 10
	MaxReportLimit     = 100
)

// DayEntry is one domain's contribution to a calendar day.
type DayEntry struct {
	Time       int64  `json:"time"`
	ActiveTime int64  `json:"activeTime"`
	Title      string `json:"title"`
	Favicon    string `json:"favicon"`
	Visits     int    `json:"visits"`
}

// DomainTime pairs a domain with its entry for ordered output.
type DomainTime struct {
	Domain string `json:"domain"`
	DayEntry
}

// ResolveDay parses a YYYY-MM-DD date in now's location. Empty means now's day.
func ResolveDay(date string, now time.Time) (string, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return site.DayKey(now), nil
	}
	if _, err := time.ParseInLocation(site.DayLayout, date, now.Location()); err != nil {
		return "", errors.NewInvalidRequest("date must be YYYY-MM-DD")
	}
	return date, nil
}

// sortedByTime orders domains by time spent, most first, ties by name.
func sortedByTime(domains map[string]DayEntry) []DomainTime {
	out := make([]DomainTime, 0, len(domains))
	for domain, entry := range domains {
		out = append(out, DomainTime{Domain: domain, DayEntry: entry})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time > out[j].Time
		}
		return out[i].Domain < out[j].Domain
	})
	return out
}
