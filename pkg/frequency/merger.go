package frequency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/japaniel/kanjilab/pkg/db"
	"github.com/japaniel/kanjilab/pkg/logging"
)

// Stats counts what a merge did.
type Stats struct {
	Records   int
	Corrupted int
	Malformed int
	Unmatched int
	Updated   int
	Unchanged int
}

// Skipped returns the number of records that could not be applied.
func (s Stats) Skipped() int { return s.Corrupted + s.Malformed + s.Unmatched }

// Merger applies frequency observations to words, keeping the lowest rank
// seen for each word.
type Merger struct {
	ProgressEvery int
}

// Merge applies records in order. A word's frequency is written only when
// it is unset or strictly greater than the observed value.
func (m *Merger) Merge(ctx context.Context, ex db.DBExecutor, records []json.RawMessage) (Stats, error) {
	log := logging.FromContext(ctx)
	var stats Stats

	words, err := db.LoadWordIndex(ctx, ex)
	if err != nil {
		return stats, fmt.Errorf("load word index: %w", err)
	}

	for i, raw := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Records++
		if n := m.ProgressEvery; n > 0 && (i+1)%n == 0 {
			log.Info().Int("records", i+1).Int("updated", stats.Updated).Msg("frequency progress")
		}

		obs, err := Parse(i, raw)
		if err != nil {
			var shape *DataShapeError
			if !errors.As(err, &shape) {
				return stats, err
			}
			if errors.Is(err, ErrCorrupted) {
				stats.Corrupted++
			} else {
				stats.Malformed++
			}
			log.Debug().Err(err).Msg("skipping frequency record")
			continue
		}

		ref, ok := words[obs.Word]
		if !ok {
			stats.Unmatched++
			continue
		}
		if ref.Frequency.Valid && ref.Frequency.Int64 <= obs.Value {
			stats.Unchanged++
			continue
		}
		if err := db.UpdateWordFrequency(ctx, ex, ref.ID, obs.Value); err != nil {
			return stats, err
		}
		ref.Frequency.Int64, ref.Frequency.Valid = obs.Value, true
		words[obs.Word] = ref
		stats.Updated++
	}
	return stats, nil
}
