package ops

import (
	"context"

	"github.com/hpungsan/dwell/internal/db"
	"github.com/hpungsan/dwell/internal/errors"
	"github.com/hpungsan/dwell/internal/site"
)

// SummaryOutput wraps the last session summary; Summary is nil when none exists.
type SummaryOutput struct {
	Summary *site.SessionSummary `json:"summary"`
}

// LastSessionSummary returns the snapshot written when the last session stopped.
func LastSessionSummary(ctx context.Context, store db.Store) (*SummaryOutput, error) {
	s, err := db.LoadSummary(ctx, store)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &SummaryOutput{Summary: s}, nil
}

// ClearLastSessionSummary removes the snapshot. Clearing when none exists is not an error.
func ClearLastSessionSummary(ctx context.Context, store db.Store) error {
	if err := db.ClearSummary(ctx, store); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
