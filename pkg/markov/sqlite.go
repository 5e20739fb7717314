package markov

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// SetupSchema initializes the model tables in the provided database. It is
// idempotent and safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaModels = `
CREATE TABLE IF NOT EXISTS markov_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    created_at INTEGER NOT NULL
);
`
		schemaStarters = `
CREATE TABLE IF NOT EXISTS markov_starters (
    model_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    prefix TEXT NOT NULL,
    probability REAL NOT NULL,
    PRIMARY KEY (model_id, position)
);
`
		schemaTransitions = `
CREATE TABLE IF NOT EXISTS markov_transitions (
    model_id INTEGER NOT NULL,
    from_position INTEGER NOT NULL,
    position INTEGER NOT NULL,
    from_symbol TEXT NOT NULL,
    next_symbol TEXT NOT NULL,
    probability REAL NOT NULL,
    PRIMARY KEY (model_id, from_position, position)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaModels); err != nil {
		return fmt.Errorf("could not create models schema: %w", err)
	}
	if _, err = tx.Exec(schemaStarters); err != nil {
		return fmt.Errorf("could not create starters schema: %w", err)
	}
	if _, err = tx.Exec(schemaTransitions); err != nil {
		return fmt.Errorf("could not create transitions schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// ModelInfo describes a model stored in an SQLiteStore.
type ModelInfo struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// SQLiteStore stores models as flat probability tables, one row per
// probability, with a position column that preserves iteration order.
type SQLiteStore struct {
	db                 *sql.DB
	stmtGetModel       *sql.Stmt
	stmtGetModels      *sql.Stmt
	stmtAddModel       *sql.Stmt
	stmtDeleteModel    *sql.Stmt
	stmtDeleteStarters *sql.Stmt
	stmtDeleteTrans    *sql.Stmt
	stmtInsertStarter  *sql.Stmt
	stmtInsertTrans    *sql.Stmt
	stmtGetStarters    *sql.Stmt
	stmtGetTrans       *sql.Stmt
	stmtCountStarters  *sql.Stmt
	stmtCountTrans     *sql.Stmt
	stmtCountFrom      *sql.Stmt
	logger             *slog.Logger
}

// NewSQLiteStore prepares every statement the store needs. The schema must
// already exist; see SetupSchema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.stmtGetModel, `SELECT model_id, created_at FROM markov_models WHERE model_name = ?;`},
		{&s.stmtGetModels, `SELECT model_id, model_name, created_at FROM markov_models ORDER BY model_name;`},
		{&s.stmtAddModel, `INSERT INTO markov_models (model_name, created_at) VALUES (?, ?) RETURNING model_id;`},
		{&s.stmtDeleteModel, `DELETE FROM markov_models WHERE model_id = ?;`},
		{&s.stmtDeleteStarters, `DELETE FROM markov_starters WHERE model_id = ?;`},
		{&s.stmtDeleteTrans, `DELETE FROM markov_transitions WHERE model_id = ?;`},
		{&s.stmtInsertStarter, `INSERT INTO markov_starters (model_id, position, prefix, probability) VALUES (?, ?, ?, ?);`},
		{&s.stmtInsertTrans, `INSERT INTO markov_transitions (model_id, from_position, position, from_symbol, next_symbol, probability) VALUES (?, ?, ?, ?, ?, ?);`},
		{&s.stmtGetStarters, `SELECT prefix, probability FROM markov_starters WHERE model_id = ? ORDER BY position;`},
		{&s.stmtGetTrans, `SELECT from_symbol, next_symbol, probability FROM markov_transitions WHERE model_id = ? ORDER BY from_position, position;`},
		{&s.stmtCountStarters, `SELECT COUNT(*) FROM markov_starters WHERE model_id = ?;`},
		{&s.stmtCountTrans, `SELECT COUNT(*) FROM markov_transitions WHERE model_id = ?;`},
		{&s.stmtCountFrom, `SELECT COUNT(DISTINCT from_symbol) FROM markov_transitions WHERE model_id = ?;`},
	}
	for _, st := range stmts {
		stmt, err := db.Prepare(st.query)
		if err != nil {
			s.Close()
			return nil, err
		}
		*st.dst = stmt
	}
	return s, nil
}

// Close releases all prepared statements held by the store. The database
// itself stays open.
func (s *SQLiteStore) Close() {
	for _, stmt := range []*sql.Stmt{
		s.stmtGetModel, s.stmtGetModels, s.stmtAddModel, s.stmtDeleteModel,
		s.stmtDeleteStarters, s.stmtDeleteTrans, s.stmtInsertStarter, s.stmtInsertTrans,
		s.stmtGetStarters, s.stmtGetTrans, s.stmtCountStarters, s.stmtCountTrans, s.stmtCountFrom,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// SetLogger sets the logger for the store. By default, all logs are discarded.
func (s *SQLiteStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Save stores m under name, replacing any previous model of that name in
// the same transaction.
func (s *SQLiteStore) Save(ctx context.Context, name string, m *Model) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var oldID int
	var created int64
	err = tx.StmtContext(ctx, s.stmtGetModel).QueryRowContext(ctx, name).Scan(&oldID, &created)
	switch {
	case err == nil:
		for _, stmt := range []*sql.Stmt{s.stmtDeleteStarters, s.stmtDeleteTrans, s.stmtDeleteModel} {
			if _, err = tx.StmtContext(ctx, stmt).ExecContext(ctx, oldID); err != nil {
				return fmt.Errorf("could not remove previous model %q: %w", name, err)
			}
		}
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	var id int
	if err = tx.StmtContext(ctx, s.stmtAddModel).QueryRowContext(ctx, name, time.Now().Unix()).Scan(&id); err != nil {
		return fmt.Errorf("could not insert model %q: %w", name, err)
	}

	insertStarter := tx.StmtContext(ctx, s.stmtInsertStarter)
	pos := 0
	for prefix, p := range m.starters.All() {
		if _, err = insertStarter.ExecContext(ctx, id, pos, prefix, p); err != nil {
			return fmt.Errorf("could not insert starter %q: %w", prefix, err)
		}
		pos++
	}

	insertTrans := tx.StmtContext(ctx, s.stmtInsertTrans)
	for fromPos, from := range m.from {
		pos = 0
		for next, p := range m.bigram[from].All() {
			if _, err = insertTrans.ExecContext(ctx, id, fromPos, pos, from, next, p); err != nil {
				return fmt.Errorf("could not insert transition %q->%q: %w", from, next, err)
			}
			pos++
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	stats := m.Stats()
	s.logger.InfoContext(ctx, "Model saved",
		slog.String("model", name),
		slog.Int("from_states", stats.FromStates),
		slog.Int("transitions", stats.Transitions),
		slog.Int("starters", stats.Starters),
	)
	return nil
}

// Load reads the model stored under name and validates it.
func (s *SQLiteStore) Load(ctx context.Context, name string) (*Model, error) {
	id, err := s.modelID(ctx, name)
	if err != nil {
		return nil, err
	}

	starters := newDistribution(0)
	rows, err := s.stmtGetStarters.QueryContext(ctx, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var prefix string
		var p float64
		if err = rows.Scan(&prefix, &p); err != nil {
			_ = rows.Close()
			return nil, err
		}
		starters.set(prefix, p)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	var transitions []Transition
	rows, err = s.stmtGetTrans.QueryContext(ctx, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var from, next string
		var p float64
		if err = rows.Scan(&from, &next, &p); err != nil {
			return nil, err
		}
		if n := len(transitions); n == 0 || transitions[n-1].From != from {
			transitions = append(transitions, Transition{From: from, Next: newDistribution(0)})
		}
		transitions[len(transitions)-1].Next.set(next, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	m := NewModel(starters, transitions...)
	if err = m.Validate(); err != nil {
		return nil, fmt.Errorf("model %q: %w", name, err)
	}

	s.logger.DebugContext(ctx, "Model loaded", slog.String("model", name), slog.Int("from_states", len(m.from)))
	return m, nil
}

// List returns every stored model, ordered by name.
func (s *SQLiteStore) List(ctx context.Context) ([]ModelInfo, error) {
	rows, err := s.stmtGetModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	models := make([]ModelInfo, 0)
	for rows.Next() {
		var info ModelInfo
		var created int64
		if err = rows.Scan(&info.ID, &info.Name, &created); err != nil {
			return nil, err
		}
		info.CreatedAt = time.Unix(created, 0).UTC()
		models = append(models, info)
	}
	return models, rows.Err()
}

// Remove deletes the model stored under name.
func (s *SQLiteStore) Remove(ctx context.Context, name string) error {
	id, err := s.modelID(ctx, name)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, stmt := range []*sql.Stmt{s.stmtDeleteStarters, s.stmtDeleteTrans, s.stmtDeleteModel} {
		if _, err = tx.StmtContext(ctx, stmt).ExecContext(ctx, id); err != nil {
			return fmt.Errorf("could not remove model %q: %w", name, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Model removed", slog.String("model", name))
	return nil
}

func (s *SQLiteStore) modelID(ctx context.Context, name string) (int, error) {
	var id int
	var created int64
	err := s.stmtGetModel.QueryRowContext(ctx, name).Scan(&id, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	return id, err
}
