package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hpungsan/dwell/internal/site"
)

// Durable keys. The names match what the extension reads, so they must not change.
const (
	KeyIsTracking         = "isTracking"
	KeySessionStartTime   = "sessionStartTime"
	KeySessionActiveTime  = "sessionActiveTime"
	KeyTimeData           = "timeData"
	KeyLastSessionSummary = "lastSessionSummary"
	KeyScreenshotEnabled  = "screenshotEnabled"
	KeyScreenshotInterval = "screenshotInterval"
	KeyScreenshots        = "screenshots"
)

// SessionState is the persisted tracking flag set.
type SessionState struct {
	IsTracking bool
	// SessionStartTime is epoch ms, 0 when no session is running
	SessionStartTime  int64
	SessionActiveTime int64
}

// LoadSessionState reads the tracking flags. Missing keys read as a stopped session.
func LoadSessionState(ctx context.Context, s Store) (SessionState, error) {
	values, err := s.Get(ctx, KeyIsTracking, KeySessionStartTime, KeySessionActiveTime)
	if err != nil {
		return SessionState{}, err
	}
	var st SessionState
	if _, err := decodeKey(values, KeyIsTracking, &st.IsTracking); err != nil {
		return SessionState{}, err
	}
	var start *int64
	if _, err := decodeKey(values, KeySessionStartTime, &start); err != nil {
		return SessionState{}, err
	}
	if start != nil {
		st.SessionStartTime = *start
	}
	if _, err := decodeKey(values, KeySessionActiveTime, &st.SessionActiveTime); err != nil {
		return SessionState{}, err
	}
	return st, nil
}

// SaveSessionState writes the tracking flags. A zero start time is stored as null.
func SaveSessionState(ctx context.Context, s Store, st SessionState) error {
	var start any
	if st.SessionStartTime != 0 {
		start = st.SessionStartTime
	}
	return s.Set(ctx, map[string]any{
		KeyIsTracking:        st.IsTracking,
		KeySessionStartTime:  start,
		KeySessionActiveTime: st.SessionActiveTime,
	})
}

// LoadTimeData reads the per-domain accounting. Missing data reads as empty.
func LoadTimeData(ctx context.Context, s Store) (site.TimeData, error) {
	values, err := s.Get(ctx, KeyTimeData)
	if err != nil {
		return nil, err
	}
	td := site.TimeData{}
	if _, err := decodeKey(values, KeyTimeData, &td); err != nil {
		return nil, err
	}
	if td == nil {
		td = site.TimeData{}
	}
	return td, nil
}

// SaveTimeData writes the per-domain accounting together with the session active time.
func SaveTimeData(ctx context.Context, s Store, td site.TimeData, sessionActiveMs int64) error {
	return s.Set(ctx, map[string]any{
		KeyTimeData:          td,
		KeySessionActiveTime: sessionActiveMs,
	})
}

// LoadSummary returns the last session summary, or nil if none exists.
func LoadSummary(ctx context.Context, s Store) (*site.SessionSummary, error) {
	values, err := s.Get(ctx, KeyLastSessionSummary)
	if err != nil {
		return nil, err
	}
	var summary *site.SessionSummary
	if _, err := decodeKey(values, KeyLastSessionSummary, &summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// SaveSummary stores the summary of a finished session.
func SaveSummary(ctx context.Context, s Store, summary site.SessionSummary) error {
	return s.Set(ctx, map[string]any{KeyLastSessionSummary: summary})
}

// SaveSessionEnd writes the summary and the stopped flags in one transaction.
func SaveSessionEnd(ctx context.Context, s Store, summary site.SessionSummary) error {
	return s.Set(ctx, map[string]any{
		KeyLastSessionSummary: summary,
		KeyIsTracking:         false,
		KeySessionStartTime:   nil,
		KeySessionActiveTime:  int64(0),
	})
}

// ClearSummary deletes the last session summary.
func ClearSummary(ctx context.Context, s Store) error {
	return s.Remove(ctx, KeyLastSessionSummary)
}

// ScreenshotSettings holds the persisted periodic capture preference.
type ScreenshotSettings struct {
	Enabled    bool  `json:"enabled"`
	IntervalMs int64 `json:"intervalMs"`
}

// LoadScreenshotSettings reads the capture preference.
func LoadScreenshotSettings(ctx context.Context, s Store) (ScreenshotSettings, error) {
	values, err := s.Get(ctx, KeyScreenshotEnabled, KeyScreenshotInterval)
	if err != nil {
		return ScreenshotSettings{}, err
	}
	var st ScreenshotSettings
	if _, err := decodeKey(values, KeyScreenshotEnabled, &st.Enabled); err != nil {
		return ScreenshotSettings{}, err
	}
	if _, err := decodeKey(values, KeyScreenshotInterval, &st.IntervalMs); err != nil {
		return ScreenshotSettings{}, err
	}
	return st, nil
}

// SaveScreenshotSettings writes the capture preference.
func SaveScreenshotSettings(ctx context.Context, s Store, st ScreenshotSettings) error {
	return s.Set(ctx, map[string]any{
		KeyScreenshotEnabled:  st.Enabled,
		KeyScreenshotInterval: st.IntervalMs,
	})
}

// LoadScreenshots reads stored screenshots, oldest first.
func LoadScreenshots(ctx context.Context, s Store) ([]site.Screenshot, error) {
	values, err := s.Get(ctx, KeyScreenshots)
	if err != nil {
		return nil, err
	}
	var shots []site.Screenshot
	if _, err := decodeKey(values, KeyScreenshots, &shots); err != nil {
		return nil, err
	}
	return shots, nil
}

// SaveScreenshots replaces the stored screenshots.
func SaveScreenshots(ctx context.Context, s Store, shots []site.Screenshot) error {
	if shots == nil {
		shots = []site.Screenshot{}
	}
	return s.Set(ctx, map[string]any{KeyScreenshots: shots})
}

// decodeKey unmarshals values[key] into dst. It reports false when the key is absent.
func decodeKey(values map[string]json.RawMessage, key string, dst any) (bool, error) {
	raw, ok := values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
