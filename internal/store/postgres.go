package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/sourdough-cli/internal/db"
	"github.com/sells-group/sourdough-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"establishment_exists": `SELECT EXISTS (SELECT 1 FROM establishments WHERE name_key = $1 AND city_key = $2)`,
	"update_run_progress":  `UPDATE runs SET summary = $1, updated_at = $2 WHERE id = $3`,
	"record_check":         recordCheckSQL,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Open(ctx, connString, poolCfg, preparedStatements)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS establishments (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL,
	address     TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL,
	state       TEXT NOT NULL,
	phone       TEXT NOT NULL DEFAULT '',
	website     TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	keywords    JSONB NOT NULL DEFAULT '[]',
	confidence  TEXT NOT NULL,
	sources     JSONB NOT NULL DEFAULT '[]',
	rating      DOUBLE PRECISION,
	latitude    DOUBLE PRECISION,
	longitude   DOUBLE PRECISION,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	name_key    TEXT NOT NULL DEFAULT '',
	city_key    TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_establishments_key ON establishments(name_key, city_key);
CREATE INDEX IF NOT EXISTS idx_establishments_city_state ON establishments(lower(city), lower(state));

CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	city         TEXT NOT NULL,
	state        TEXT NOT NULL,
	status       TEXT NOT NULL,
	summary      JSONB NOT NULL DEFAULT '{}',
	error        TEXT NOT NULL DEFAULT '',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_target ON runs(city, state);

CREATE TABLE IF NOT EXISTS candidate_checks (
	city       TEXT NOT NULL,
	state      TEXT NOT NULL,
	key        TEXT NOT NULL,
	name       TEXT NOT NULL,
	verified   BOOLEAN NOT NULL DEFAULT false,
	confidence TEXT NOT NULL DEFAULT '',
	checked_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (city, state, key)
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, postgresMigration)
		return eris.Wrap(err, "postgres: migrate")
	})
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Establishments ---

func (s *PostgresStore) EstablishmentExists(ctx context.Context, name, city string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, preparedStatements["establishment_exists"], matchKey(name), matchKey(city)).Scan(&exists)
	if err != nil {
		return false, eris.Wrap(err, "postgres: establishment exists")
	}
	return exists, nil
}

func (s *PostgresStore) InsertEstablishment(ctx context.Context, e *model.Establishment) (int64, error) {
	keywords, sources, err := marshalLists(e)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: marshal establishment")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO establishments
		 (name, address, city, state, phone, website, description, keywords, confidence, sources, rating, latitude, longitude, created_at,
		  name_key, city_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT DO NOTHING
		 RETURNING id`,
		e.Name, e.Address, e.City, e.State, e.Phone, e.Website, e.Description,
		keywords, string(e.Confidence), sources,
		e.Rating, e.Latitude, e.Longitude, e.CreatedAt,
		matchKey(e.Name), matchKey(e.City),
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, eris.Wrapf(ErrDuplicate, "postgres: %s, %s", e.Name, e.City)
	}
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: insert establishment %s", e.Name)
	}
	e.ID = id
	return id, nil
}

func (s *PostgresStore) ListEstablishments(ctx context.Context, filter EstablishmentFilter) ([]model.Establishment, error) {
	query := `SELECT id, name, address, city, state, phone, website, description, keywords, confidence, sources,
		rating, latitude, longitude, created_at FROM establishments WHERE true`
	args := []any{}
	argIdx := 1

	if filter.City != "" {
		query += fmt.Sprintf(` AND lower(city) = lower($%d)`, argIdx)
		args = append(args, filter.City)
		argIdx++
	}
	if filter.State != "" {
		query += fmt.Sprintf(` AND lower(state) = lower($%d)`, argIdx)
		args = append(args, filter.State)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY id LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list establishments")
	}
	defer rows.Close()

	var out []model.Establishment
	for rows.Next() {
		var e model.Establishment
		var keywords, sources []byte
		var confidence string
		if err := rows.Scan(&e.ID, &e.Name, &e.Address, &e.City, &e.State, &e.Phone, &e.Website,
			&e.Description, &keywords, &confidence, &sources, &e.Rating, &e.Latitude, &e.Longitude, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan establishment")
		}
		e.Confidence = model.Confidence(confidence)
		if err := unmarshalLists(&e, keywords, sources); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal establishment")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list establishments iterate")
}

// --- Runs ---

func (s *PostgresStore) CreateRun(ctx context.Context, target model.Target) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, city, state, status, started_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, target.City, target.State, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Target:    target,
		Status:    model.RunStatusRunning,
		StartedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunProgress(ctx context.Context, runID string, summary model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}
	tag, err := s.pool.Exec(ctx, preparedStatements["update_run_progress"], summaryJSON, time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run progress %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: run %s", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary model.RunSummary) error {
	return s.finishRun(ctx, runID, status, summary, "")
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, summary model.RunSummary, errMsg string) error {
	return s.finishRun(ctx, runID, model.RunStatusFailed, summary, errMsg)
}

func (s *PostgresStore) finishRun(ctx context.Context, runID string, status model.RunStatus, summary model.RunSummary, errMsg string) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, summary = $2, error = $3, updated_at = $4, completed_at = $5 WHERE id = $6`,
		string(status), summaryJSON, errMsg, now, now, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: run %s", runID)
	}
	return nil
}

const postgresRunColumns = `id, city, state, status, summary, error, started_at, updated_at, completed_at`

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanPgRun(s.pool.QueryRow(ctx,
		`SELECT `+postgresRunColumns+` FROM runs WHERE id = $1`, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + postgresRunColumns + ` FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.City != "" {
		query += fmt.Sprintf(` AND lower(city) = lower($%d)`, argIdx)
		args = append(args, filter.City)
		argIdx++
	}
	if filter.State != "" {
		query += fmt.Sprintf(` AND lower(state) = lower($%d)`, argIdx)
		args = append(args, filter.State)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY started_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) LastCompletedRun(ctx context.Context, target model.Target) (*model.Run, error) {
	r, err := scanPgRun(s.pool.QueryRow(ctx,
		`SELECT `+postgresRunColumns+` FROM runs
		 WHERE lower(city) = lower($1) AND lower(state) = lower($2) AND status = $3
		 ORDER BY completed_at DESC LIMIT 1`,
		target.City, target.State, string(model.RunStatusCompleted),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: last completed run")
	}
	return r, nil
}

// --- Candidate checks ---

const recordCheckSQL = `INSERT INTO candidate_checks (city, state, key, name, verified, confidence, checked_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (city, state, key) DO UPDATE SET
	  name = EXCLUDED.name, verified = EXCLUDED.verified,
	  confidence = EXCLUDED.confidence, checked_at = EXCLUDED.checked_at`

func (s *PostgresStore) RecordCheck(ctx context.Context, check model.CandidateCheck) error {
	if check.CheckedAt.IsZero() {
		check.CheckedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, recordCheckSQL,
		check.Target.City, check.Target.State, check.Key, check.Name,
		check.Verified, string(check.Confidence), check.CheckedAt,
	)
	return eris.Wrapf(err, "postgres: record check %s", check.Key)
}

func (s *PostgresStore) CheckedKeys(ctx context.Context, target model.Target) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key FROM candidate_checks WHERE city = $1 AND state = $2`,
		target.City, target.State,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: checked keys")
	}
	defer rows.Close()

	keys := map[string]bool{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, eris.Wrap(err, "postgres: scan checked key")
		}
		keys[k] = true
	}
	return keys, eris.Wrap(rows.Err(), "postgres: checked keys iterate")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var status string
	var summaryJSON []byte

	if err := row.Scan(&r.ID, &r.Target.City, &r.Target.State, &status, &summaryJSON, &r.Error,
		&r.StartedAt, &r.UpdatedAt, &r.CompletedAt); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &r.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
	}
	return &r, nil
}
