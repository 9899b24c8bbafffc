package site

import (
	"net/url"
	"strings"
	"time"
)

// UnknownDomain is the aggregation key for URLs without a parsable host.
const UnknownDomain = "unknown"

// DayLayout is the calendar-day key format used in dailyTime maps.
const DayLayout = "2006-01-02"

// ExtractDomain normalizes a URL to its hostname:
// 1. Parse the URL and take the hostname (port dropped)
// 2. Lowercase
// 3. Strip a leading "www."
func ExtractDomain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return UnknownDomain
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return UnknownDomain
	}
	return strings.TrimPrefix(host, "www.")
}

// IsTrackable reports whether a tab URL may be accounted. URLs without a host,
// unparsable URLs, and URLs using a blocked scheme are untrackable.
func IsTrackable(rawURL string, blockedSchemes []string) bool {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	for _, blocked := range blockedSchemes {
		if scheme == strings.ToLower(strings.TrimSuffix(blocked, "://")) {
			return false
		}
	}
	return u.Hostname() != ""
}

// DayKey returns the calendar-day key for t in t's location.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// PreviousDayKey returns the key of the calendar day before t.
func PreviousDayKey(t time.Time) string {
	return t.AddDate(0, 0, -1).Format(DayLayout)
}
