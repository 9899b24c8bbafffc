package ops

import (
	"context"

	"github.com/hpungsan/dwell/internal/db"
	"github.com/hpungsan/dwell/internal/errors"
	"github.com/hpungsan/dwell/internal/site"
)

// AllTime returns the raw per-domain records, unfiltered.
func AllTime(ctx context.Context, store db.Store) (site.TimeData, error) {
	td, err := db.LoadTimeData(ctx, store)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return td, nil
}
