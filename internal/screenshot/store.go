package screenshot

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/dwell/internal/db"
	"github.com/hpungsan/dwell/internal/errors"
	"github.com/hpungsan/dwell/internal/site"
)

// DefaultListLimit is used when List is called without a limit.
const DefaultListLimit = 20

var errEmptyCapture = stderrors.New("extension returned an empty screenshot")

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// save appends shot and evicts the oldest beyond the configured maximum.
func (m *Manager) save(ctx context.Context, shot site.Screenshot) error {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	shots, err := db.LoadScreenshots(ctx, m.store)
	if err != nil {
		return errors.NewInternal(err)
	}
	shots = append(shots, shot)
	if limit := m.cfg.ScreenshotMaxCount; limit > 0 && len(shots) > limit {
		shots = shots[len(shots)-limit:]
	}
	if err := db.SaveScreenshots(ctx, m.store, shots); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// List returns screenshot metadata, newest first.
func (m *Manager) List(ctx context.Context, limit int) ([]site.ScreenshotMeta, error) {
	if limit < 0 {
		return nil, errors.NewInvalidRequest("limit must not be negative")
	}
	if limit == 0 {
		limit = DefaultListLimit
	}

	shots, err := db.LoadScreenshots(ctx, m.store)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	sort.SliceStable(shots, func(i, j int) bool {
		return shots[i].Timestamp > shots[j].Timestamp
	})
	if len(shots) > limit {
		shots = shots[:limit]
	}

	out := make([]site.ScreenshotMeta, len(shots))
	for i, s := range shots {
		out[i] = s.Meta()
	}
	return out, nil
}

// Get returns a screenshot with its image data.
func (m *Manager) Get(ctx context.Context, id string) (site.Screenshot, error) {
	if id == "" {
		return site.Screenshot{}, errors.NewInvalidRequest("id is required")
	}
	shots, err := db.LoadScreenshots(ctx, m.store)
	if err != nil {
		return site.Screenshot{}, errors.NewInternal(err)
	}
	for _, s := range shots {
		if s.ID == id {
			return s, nil
		}
	}
	return site.Screenshot{}, errors.NewNotFound("screenshot", id)
}

// DeleteOlderThan removes screenshots taken more than days ago and returns how many were removed.
func (m *Manager) DeleteOlderThan(ctx context.Context, days int) (int, error) {
	if days < 1 {
		return 0, errors.NewInvalidRequest("days must be at least 1")
	}
	cutoff := m.clock.Now().AddDate(0, 0, -days).UnixMilli()

	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	shots, err := db.LoadScreenshots(ctx, m.store)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	kept := shots[:0]
	for _, s := range shots {
		if s.Timestamp >= cutoff {
			kept = append(kept, s)
		}
	}
	deleted := len(shots) - len(kept)
	if deleted == 0 {
		return 0, nil
	}
	if err := db.SaveScreenshots(ctx, m.store, kept); err != nil {
		return 0, errors.NewInternal(err)
	}
	return deleted, nil
}

// ClearAll removes every stored screenshot and returns how many were removed.
func (m *Manager) ClearAll(ctx context.Context) (int, error) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	shots, err := db.LoadScreenshots(ctx, m.store)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	if err := db.SaveScreenshots(ctx, m.store, nil); err != nil {
		return 0, errors.NewInternal(err)
	}
	return len(shots), nil
}
