package experiment

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/CTAG07/evagen/pkg/card"
	"github.com/CTAG07/evagen/pkg/markov"
	"github.com/CTAG07/evagen/pkg/similarity"
)

const schemaRuns = `
CREATE TABLE IF NOT EXISTS experiment_runs (
    run_id TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL,
    model_name TEXT NOT NULL,
    stream TEXT NOT NULL,
    seed_mode TEXT NOT NULL,
    line_count INTEGER NOT NULL,
    output_path TEXT NOT NULL,
    js_sim_unigram REAL NOT NULL,
    js_sim_bigram REAL NOT NULL,
    cosine_3gram REAL NOT NULL
);
`

// RunLog records finished runs in an SQLite table so that runs under
// different seed modes can be compared later.
type RunLog struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunLog creates the experiment_runs table if needed and returns a RunLog
// writing to it.
func NewRunLog(db *sql.DB) (*RunLog, error) {
	if _, err := db.Exec(schemaRuns); err != nil {
		return nil, fmt.Errorf("could not create runs schema: %w", err)
	}
	return &RunLog{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// SetLogger sets the logger for the RunLog. By default, all logs are discarded.
func (l *RunLog) SetLogger(logger *slog.Logger) {
	if logger != nil {
		l.logger = logger
	}
}

// Record stores res.
func (l *RunLog) Record(ctx context.Context, res *Result) error {
	_, err := l.db.ExecContext(ctx, `
INSERT INTO experiment_runs (run_id, started_at, finished_at, model_name, stream, seed_mode,
    line_count, output_path, js_sim_unigram, js_sim_bigram, cosine_3gram)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		res.ID, res.StartedAt.UnixMilli(), res.FinishedAt.UnixMilli(), res.Model,
		string(res.Stream), string(res.SeedMode), res.Lines, res.OutputPath,
		res.Scores.JSSimUnigram, res.Scores.JSSimBigram, res.Scores.Cosine3Gram,
	)
	if err != nil {
		return fmt.Errorf("could not record run %s: %w", res.ID, err)
	}
	l.logger.DebugContext(ctx, "Run recorded", slog.String("run_id", res.ID))
	return nil
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (l *RunLog) List(ctx context.Context, limit int) ([]Result, error) {
	query := `
SELECT run_id, started_at, finished_at, model_name, stream, seed_mode, line_count, output_path,
    js_sim_unigram, js_sim_bigram, cosine_3gram
FROM experiment_runs ORDER BY started_at DESC, run_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	runs := make([]Result, 0)
	for rows.Next() {
		var (
			r                 Result
			started, finished int64
			stream, mode      string
			scores            similarity.Scores
		)
		err = rows.Scan(&r.ID, &started, &finished, &r.Model, &stream, &mode, &r.Lines, &r.OutputPath,
			&scores.JSSimUnigram, &scores.JSSimBigram, &scores.Cosine3Gram)
		if err != nil {
			return nil, err
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		r.FinishedAt = time.UnixMilli(finished).UTC()
		r.Stream = markov.Stream(stream)
		r.SeedMode = card.SeedMode(mode)
		r.Scores = scores
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
