package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/auto-market-pulse/pulse-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS prices (
	symbol    TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	open      REAL NOT NULL,
	high      REAL NOT NULL,
	low       REAL NOT NULL,
	close     REAL NOT NULL,
	volume    INTEGER NOT NULL,
	PRIMARY KEY (symbol, timestamp)
);

CREATE TABLE IF NOT EXISTS story_runs (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	story      TEXT NOT NULL,
	keywords   TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_prices_symbol ON prices(symbol);
CREATE INDEX IF NOT EXISTS idx_story_runs_created_at ON story_runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ImportObservations upserts price bars and returns how many rows were
// written. Re-importing the same bar overwrites it.
func (s *SQLiteStore) ImportObservations(ctx context.Context, obs []model.Observation) (int, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin import")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO prices (symbol, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, timestamp) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare import")
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx, o.Symbol, o.Timestamp.Unix(), o.Open, o.High, o.Low, o.Close, o.Volume); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert bar %s@%d", o.Symbol, o.Timestamp.Unix())
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit import")
	}
	return len(obs), nil
}

func (s *SQLiteStore) ListObservations(ctx context.Context, filter ObservationFilter) ([]model.Observation, error) {
	query := `SELECT symbol, timestamp, open, high, low, close, volume FROM prices WHERE 1=1`
	var args []any

	if filter.Symbol != "" {
		query += ` AND symbol = ?`
		args = append(args, filter.Symbol)
	}
	if !filter.Since.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, filter.Since.Unix())
	}
	query += ` ORDER BY symbol, timestamp`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list observations")
	}
	defer rows.Close()

	var obs []model.Observation
	for rows.Next() {
		var o model.Observation
		var ts int64
		if err := rows.Scan(&o.Symbol, &ts, &o.Open, &o.High, &o.Low, &o.Close, &o.Volume); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan observation")
		}
		o.Timestamp = time.Unix(ts, 0).UTC()
		obs = append(obs, o)
	}
	return obs, eris.Wrap(rows.Err(), "sqlite: iterate observations")
}

func (s *SQLiteStore) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM prices ORDER BY symbol`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list symbols")
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan symbol")
		}
		symbols = append(symbols, sym)
	}
	return symbols, eris.Wrap(rows.Err(), "sqlite: iterate symbols")
}

func (s *SQLiteStore) SaveRun(ctx context.Context, story model.Story, keywords []string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	storyJSON, err := json.Marshal(story)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal story")
	}
	if keywords == nil {
		keywords = []string{}
	}
	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal keywords")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO story_runs (id, title, story, keywords, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, story.Title, string(storyJSON), string(keywordsJSON), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Title:     story.Title,
		Story:     story,
		Keywords:  keywords,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, story, keywords, created_at FROM story_runs WHERE id = ?`,
		runID,
	)
	run, err := scanRun(row)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(err, "sqlite: run %s not found", runID)
	}
	return run, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, story, keywords, created_at FROM story_runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	var run model.Run
	var storyJSON, keywordsJSON string
	if err := row.Scan(&run.ID, &run.Title, &storyJSON, &keywordsJSON, &run.CreatedAt); err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if err := json.Unmarshal([]byte(storyJSON), &run.Story); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal story")
	}
	if err := json.Unmarshal([]byte(keywordsJSON), &run.Keywords); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal keywords")
	}
	return &run, nil
}
