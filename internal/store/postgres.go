package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/db"
	"github.com/sells-group/enrich-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_run":         `SELECT id, source, stages, status, companies, processed, failed, error, created_at, updated_at FROM runs WHERE id = $1`,
	"get_hunt_result": `SELECT data, approved_domain FROM hunt_results WHERE company_number = $1`,
	"get_vat_result":  `SELECT data FROM vat_results WHERE company_number = $1`,
	"list_domains":    `SELECT value FROM domain_lists WHERE kind = $1 ORDER BY created_at, value`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source     TEXT NOT NULL,
	stages     JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	companies  INTEGER NOT NULL DEFAULT 0,
	processed  INTEGER NOT NULL DEFAULT 0,
	failed     INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS hunt_results (
	company_number  TEXT PRIMARY KEY,
	run_id          TEXT NOT NULL DEFAULT '',
	data            JSONB NOT NULL,
	approved_domain TEXT NOT NULL DEFAULT '',
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contact_records (
	company_number TEXT PRIMARY KEY,
	domain         TEXT NOT NULL,
	data           JSONB NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS vat_results (
	company_number TEXT PRIMARY KEY,
	company_name   TEXT NOT NULL,
	vat_number     TEXT NOT NULL,
	status         TEXT NOT NULL,
	data           JSONB NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS linkedin_results (
	company_number TEXT PRIMARY KEY,
	data           JSONB NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS domain_lists (
	kind       TEXT NOT NULL,
	value      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, value)
);

CREATE TABLE IF NOT EXISTS quota_snapshots (
	id         BIGSERIAL PRIMARY KEY,
	remaining  INTEGER NOT NULL,
	checked_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_hunt_results_run_id ON hunt_results(run_id);
CREATE INDEX IF NOT EXISTS idx_vat_results_vat_number ON vat_results(vat_number);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, source string, stages []model.Stage, companies int) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	stagesJSON, err := json.Marshal(stages)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal stages")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, source, stages, status, companies, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, source, stagesJSON, string(model.RunStatusRunning), companies, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Source:    source,
		Stages:    stages,
		Status:    model.RunStatusRunning,
		Companies: companies,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, run *model.Run) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, processed = $2, failed = $3, error = $4, updated_at = $5 WHERE id = $6`,
		string(run.Status), run.Processed, run.Failed, run.Error, now, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", run.ID)
	}
	run.UpdatedAt = now
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanPgRun(s.pool.QueryRow(ctx,
		`SELECT id, source, stages, status, companies, processed, failed, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, source, stages, status, companies, processed, failed, error, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
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

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var stagesJSON []byte
	var status string
	if err := row.Scan(&r.ID, &r.Source, &stagesJSON, &status, &r.Companies, &r.Processed, &r.Failed, &r.Error, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	if err := json.Unmarshal(stagesJSON, &r.Stages); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal stages")
	}
	return &r, nil
}

func (s *PostgresStore) SaveHuntResult(ctx context.Context, runID string, r *model.HuntResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal hunt result")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO hunt_results (company_number, run_id, data, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (company_number) DO UPDATE SET run_id = EXCLUDED.run_id, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		r.Identifiers.CompanyNumber, runID, data, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save hunt result %s", r.Identifiers.CompanyNumber)
}

func (s *PostgresStore) GetHuntResult(ctx context.Context, companyNumber string) (*model.HuntResult, error) {
	var data []byte
	var approved string
	err := s.pool.QueryRow(ctx,
		`SELECT data, approved_domain FROM hunt_results WHERE company_number = $1`,
		companyNumber,
	).Scan(&data, &approved)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "hunt result %s", companyNumber)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get hunt result %s", companyNumber)
	}

	var r model.HuntResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal hunt result")
	}
	r.ApprovedDomain = approved
	return &r, nil
}

func (s *PostgresStore) ApproveDomain(ctx context.Context, companyNumber, domain string) error {
	stub, err := json.Marshal(model.HuntResult{
		Identifiers: model.Identifiers{CompanyNumber: companyNumber},
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return eris.Wrap(err, "postgres: marshal hunt stub")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO hunt_results (company_number, data, approved_domain, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (company_number) DO UPDATE SET approved_domain = EXCLUDED.approved_domain, updated_at = EXCLUDED.updated_at`,
		companyNumber, stub, domain, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: approve domain for %s", companyNumber)
}

func (s *PostgresStore) SaveContactRecord(ctx context.Context, companyNumber string, r *model.ContactRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal contact record")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO contact_records (company_number, domain, data, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (company_number) DO UPDATE SET domain = EXCLUDED.domain, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		companyNumber, r.Domain, data, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save contact record %s", companyNumber)
}

func (s *PostgresStore) SaveVATResult(ctx context.Context, companyNumber string, r *model.VATResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal vat result")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO vat_results (company_number, company_name, vat_number, status, data, updated_at) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (company_number) DO UPDATE SET company_name = EXCLUDED.company_name, vat_number = EXCLUDED.vat_number,
		 status = EXCLUDED.status, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		companyNumber, r.CompanyName, r.VATNumber, string(r.Status), data, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save vat result %s", companyNumber)
}

func (s *PostgresStore) GetVATResult(ctx context.Context, companyNumber string) (*model.VATResult, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM vat_results WHERE company_number = $1`,
		companyNumber,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "vat result %s", companyNumber)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get vat result %s", companyNumber)
	}

	var r model.VATResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal vat result")
	}
	return &r, nil
}

func (s *PostgresStore) SaveLinkedInResult(ctx context.Context, companyNumber string, r *model.LinkedInResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal linkedin result")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO linkedin_results (company_number, data, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (company_number) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		companyNumber, data, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save linkedin result %s", companyNumber)
}

func (s *PostgresStore) ListDomains(ctx context.Context, kind model.ListKind) ([]string, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT value FROM domain_lists WHERE kind = $1 ORDER BY created_at, value`,
		string(kind),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list %s", kind)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrap(err, "postgres: scan list value")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list iterate")
}

// AddDomains bulk-loads values through a temp table; existing entries are
// left untouched and not counted.
func (s *PostgresStore) AddDomains(ctx context.Context, kind model.ListKind, values []string) (int, error) {
	if err := validKind(kind); err != nil {
		return 0, err
	}
	values = cleanValues(kind, values)
	if len(values) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, len(values))
	for i, v := range values {
		rows[i] = []any{string(kind), v, now}
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:           "domain_lists",
		Columns:         []string{"kind", "value", "created_at"},
		ConflictKeys:    []string{"kind", "value"},
		IgnoreConflicts: true,
	}, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: add %s", kind)
	}
	return int(n), nil
}

func (s *PostgresStore) RemoveDomain(ctx context.Context, kind model.ListKind, value string) error {
	if err := validKind(kind); err != nil {
		return err
	}
	value = model.NormalizeListValue(kind, value)
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM domain_lists WHERE kind = $1 AND value = $2`,
		string(kind), value,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: remove %s %q", kind, value)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s entry %s", kind, value)
	}
	return nil
}

func (s *PostgresStore) RecordQuota(ctx context.Context, remaining int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quota_snapshots (remaining, checked_at) VALUES ($1, $2)`,
		remaining, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: record quota")
}

func (s *PostgresStore) LatestQuota(ctx context.Context) (*model.QuotaSnapshot, error) {
	var q model.QuotaSnapshot
	err := s.pool.QueryRow(ctx,
		`SELECT remaining, checked_at FROM quota_snapshots ORDER BY id DESC LIMIT 1`,
	).Scan(&q.Remaining, &q.CheckedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "quota snapshot")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest quota")
	}
	return &q, nil
}
