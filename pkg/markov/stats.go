package markov

import (
	"context"
)

// DBStats holds statistics for every model in an SQLiteStore.
type DBStats struct {
	Models []ModelInfo           `json:"models"` // All stored models, ordered by name
	Stats  map[string]ModelStats `json:"stats"`  // Model names mapped to their stats
}

// Stats returns a snapshot of per-model statistics computed from the stored
// rows, without loading any model into memory.
func (s *SQLiteStore) Stats(ctx context.Context) (*DBStats, error) {
	models, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]ModelStats, len(models))
	for _, info := range models {
		var ms ModelStats
		if err = s.stmtCountFrom.QueryRowContext(ctx, info.ID).Scan(&ms.FromStates); err != nil {
			return nil, err
		}
		if err = s.stmtCountTrans.QueryRowContext(ctx, info.ID).Scan(&ms.Transitions); err != nil {
			return nil, err
		}
		if err = s.stmtCountStarters.QueryRowContext(ctx, info.ID).Scan(&ms.Starters); err != nil {
			return nil, err
		}
		stats[info.Name] = ms
	}

	return &DBStats{
		Models: models,
		Stats:  stats,
	}, nil
}
