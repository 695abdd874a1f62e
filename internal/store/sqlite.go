package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/sourdough-cli/internal/model"
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
	// One connection keeps per-connection pragmas in effect and serializes
	// writers.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS establishments (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	address     TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL,
	state       TEXT NOT NULL,
	phone       TEXT NOT NULL DEFAULT '',
	website     TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	keywords    TEXT NOT NULL DEFAULT '[]',
	confidence  TEXT NOT NULL,
	sources     TEXT NOT NULL DEFAULT '[]',
	rating      REAL,
	latitude    REAL,
	longitude   REAL,
	created_at  DATETIME NOT NULL,
	name_key    TEXT NOT NULL DEFAULT '',
	city_key    TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_establishments_key ON establishments(name_key, city_key);
CREATE INDEX IF NOT EXISTS idx_establishments_city_state ON establishments(lower(city), lower(state));

CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	city         TEXT NOT NULL,
	state        TEXT NOT NULL,
	status       TEXT NOT NULL,
	summary      TEXT NOT NULL DEFAULT '{}',
	error        TEXT NOT NULL DEFAULT '',
	started_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_target ON runs(city, state);

CREATE TABLE IF NOT EXISTS candidate_checks (
	city       TEXT NOT NULL,
	state      TEXT NOT NULL,
	key        TEXT NOT NULL,
	name       TEXT NOT NULL,
	verified   INTEGER NOT NULL DEFAULT 0,
	confidence TEXT NOT NULL DEFAULT '',
	checked_at DATETIME NOT NULL,
	PRIMARY KEY (city, state, key)
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Establishments ---

func (s *SQLiteStore) EstablishmentExists(ctx context.Context, name, city string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM establishments WHERE name_key = ? AND city_key = ?`,
		matchKey(name), matchKey(city),
	).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: establishment exists")
	}
	return n > 0, nil
}

func (s *SQLiteStore) InsertEstablishment(ctx context.Context, e *model.Establishment) (int64, error) {
	keywords, sources, err := marshalLists(e)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: marshal establishment")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO establishments
		 (name, address, city, state, phone, website, description, keywords, confidence, sources, rating, latitude, longitude, created_at,
		  name_key, city_key)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		e.Name, e.Address, e.City, e.State, e.Phone, e.Website, e.Description,
		string(keywords), string(e.Confidence), string(sources),
		e.Rating, e.Latitude, e.Longitude, e.CreatedAt,
		matchKey(e.Name), matchKey(e.City),
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: insert establishment %s", e.Name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return 0, eris.Wrapf(ErrDuplicate, "sqlite: %s, %s", e.Name, e.City)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: last insert id")
	}
	e.ID = id
	return id, nil
}

func (s *SQLiteStore) ListEstablishments(ctx context.Context, filter EstablishmentFilter) ([]model.Establishment, error) {
	query := `SELECT id, name, address, city, state, phone, website, description, keywords, confidence, sources,
		rating, latitude, longitude, created_at FROM establishments WHERE 1=1`
	var args []any
	if filter.City != "" {
		query += ` AND lower(city) = lower(?)`
		args = append(args, filter.City)
	}
	if filter.State != "" {
		query += ` AND lower(state) = lower(?)`
		args = append(args, filter.State)
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list establishments")
	}
	defer func() { _ = rows.Close() }()

	var out []model.Establishment
	for rows.Next() {
		var e model.Establishment
		var keywords, sources, confidence string
		var rating, lat, lng sql.NullFloat64
		if err := rows.Scan(&e.ID, &e.Name, &e.Address, &e.City, &e.State, &e.Phone, &e.Website,
			&e.Description, &keywords, &confidence, &sources, &rating, &lat, &lng, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan establishment")
		}
		e.Confidence = model.Confidence(confidence)
		if err := unmarshalLists(&e, []byte(keywords), []byte(sources)); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal establishment")
		}
		e.Rating = nullFloat(rating)
		e.Latitude = nullFloat(lat)
		e.Longitude = nullFloat(lng)
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list establishments iterate")
}

// --- Runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, target model.Target) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, city, state, status, summary, started_at, updated_at) VALUES (?, ?, ?, ?, '{}', ?, ?)`,
		id, target.City, target.State, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Target:    target,
		Status:    model.RunStatusRunning,
		StartedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunProgress(ctx context.Context, runID string, summary model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET summary = ?, updated_at = ? WHERE id = ?`,
		string(summaryJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run progress %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary model.RunSummary) error {
	return s.finishRun(ctx, runID, status, summary, "")
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, summary model.RunSummary, errMsg string) error {
	return s.finishRun(ctx, runID, model.RunStatusFailed, summary, errMsg)
}

func (s *SQLiteStore) finishRun(ctx context.Context, runID string, status model.RunStatus, summary model.RunSummary, errMsg string) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, error = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
		string(status), string(summaryJSON), errMsg, now, now, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

const sqliteRunColumns = `id, city, state, status, summary, error, started_at, updated_at, completed_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteRunColumns+` FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: run %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + sqliteRunColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.City != "" {
		query += ` AND lower(city) = lower(?)`
		args = append(args, filter.City)
	}
	if filter.State != "" {
		query += ` AND lower(state) = lower(?)`
		args = append(args, filter.State)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer func() { _ = rows.Close() }()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) LastCompletedRun(ctx context.Context, target model.Target) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM runs
		 WHERE lower(city) = lower(?) AND lower(state) = lower(?) AND status = ?
		 ORDER BY completed_at DESC LIMIT 1`,
		target.City, target.State, string(model.RunStatusCompleted),
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// --- Candidate checks ---

func (s *SQLiteStore) RecordCheck(ctx context.Context, check model.CandidateCheck) error {
	if check.CheckedAt.IsZero() {
		check.CheckedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO candidate_checks (city, state, key, name, verified, confidence, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (city, state, key) DO UPDATE SET
		   name = excluded.name, verified = excluded.verified,
		   confidence = excluded.confidence, checked_at = excluded.checked_at`,
		check.Target.City, check.Target.State, check.Key, check.Name,
		check.Verified, string(check.Confidence), check.CheckedAt,
	)
	return eris.Wrapf(err, "sqlite: record check %s", check.Key)
}

func (s *SQLiteStore) CheckedKeys(ctx context.Context, target model.Target) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM candidate_checks WHERE city = ? AND state = ?`,
		target.City, target.State,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: checked keys")
	}
	defer func() { _ = rows.Close() }()

	keys := map[string]bool{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan checked key")
		}
		keys[k] = true
	}
	return keys, eris.Wrap(rows.Err(), "sqlite: checked keys iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var status, summaryJSON string
	var completed sql.NullTime

	err := row.Scan(&r.ID, &r.Target.City, &r.Target.State, &status, &summaryJSON, &r.Error,
		&r.StartedAt, &r.UpdatedAt, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Status = model.RunStatus(status)
	if err := json.Unmarshal([]byte(summaryJSON), &r.Summary); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal summary")
	}
	if completed.Valid {
		t := completed.Time
		r.CompletedAt = &t
	}
	return &r, nil
}

func marshalLists(e *model.Establishment) (keywords, sources []byte, err error) {
	kw := e.Keywords
	if kw == nil {
		kw = []string{}
	}
	src := e.Sources
	if src == nil {
		src = []model.SourceKind{}
	}
	if keywords, err = json.Marshal(kw); err != nil {
		return nil, nil, err
	}
	if sources, err = json.Marshal(src); err != nil {
		return nil, nil, err
	}
	return keywords, sources, nil
}

func unmarshalLists(e *model.Establishment, keywords, sources []byte) error {
	if err := json.Unmarshal(keywords, &e.Keywords); err != nil {
		return err
	}
	return json.Unmarshal(sources, &e.Sources)
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
