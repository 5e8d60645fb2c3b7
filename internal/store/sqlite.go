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

	"github.com/sells-group/enrich-cli/internal/model"
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
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	stages     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	companies  INTEGER NOT NULL DEFAULT 0,
	processed  INTEGER NOT NULL DEFAULT 0,
	failed     INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS hunt_results (
	company_number  TEXT PRIMARY KEY,
	run_id          TEXT NOT NULL DEFAULT '',
	data            TEXT NOT NULL,
	approved_domain TEXT NOT NULL DEFAULT '',
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS contact_records (
	company_number TEXT PRIMARY KEY,
	domain         TEXT NOT NULL,
	data           TEXT NOT NULL,
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS vat_results (
	company_number TEXT PRIMARY KEY,
	company_name   TEXT NOT NULL,
	vat_number     TEXT NOT NULL,
	status         TEXT NOT NULL,
	data           TEXT NOT NULL,
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS linkedin_results (
	company_number TEXT PRIMARY KEY,
	data           TEXT NOT NULL,
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS domain_lists (
	kind       TEXT NOT NULL,
	value      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (kind, value)
);

CREATE TABLE IF NOT EXISTS quota_snapshots (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	remaining  INTEGER NOT NULL,
	checked_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_hunt_results_run_id ON hunt_results(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, source string, stages []model.Stage, companies int) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	stagesJSON, err := json.Marshal(stages)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal stages")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, stages, status, companies, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, source, string(stagesJSON), string(model.RunStatusRunning), companies, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) CompleteRun(ctx context.Context, run *model.Run) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, processed = ?, failed = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(run.Status), run.Processed, run.Failed, run.Error, now, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", run.ID)
	}
	if err := checkRowsAffected(res, "run", run.ID); err != nil {
		return err
	}
	run.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, stages, status, companies, processed, failed, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, source, stages, status, companies, processed, failed, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

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

func (s *SQLiteStore) SaveHuntResult(ctx context.Context, runID string, r *model.HuntResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal hunt result")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO hunt_results (company_number, run_id, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(company_number) DO UPDATE SET run_id = excluded.run_id, data = excluded.data, updated_at = excluded.updated_at`,
		r.Identifiers.CompanyNumber, runID, string(data), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save hunt result %s", r.Identifiers.CompanyNumber)
}

func (s *SQLiteStore) GetHuntResult(ctx context.Context, companyNumber string) (*model.HuntResult, error) {
	var data, approved string
	err := s.db.QueryRowContext(ctx,
		`SELECT data, approved_domain FROM hunt_results WHERE company_number = ?`,
		companyNumber,
	).Scan(&data, &approved)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "hunt result %s", companyNumber)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get hunt result %s", companyNumber)
	}

	var r model.HuntResult
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal hunt result")
	}
	r.ApprovedDomain = approved
	return &r, nil
}

func (s *SQLiteStore) ApproveDomain(ctx context.Context, companyNumber, domain string) error {
	stub, err := json.Marshal(model.HuntResult{
		Identifiers: model.Identifiers{CompanyNumber: companyNumber},
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal hunt stub")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO hunt_results (company_number, data, approved_domain, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(company_number) DO UPDATE SET approved_domain = excluded.approved_domain, updated_at = excluded.updated_at`,
		companyNumber, string(stub), domain, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: approve domain for %s", companyNumber)
}

func (s *SQLiteStore) SaveContactRecord(ctx context.Context, companyNumber string, r *model.ContactRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal contact record")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO contact_records (company_number, domain, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(company_number) DO UPDATE SET domain = excluded.domain, data = excluded.data, updated_at = excluded.updated_at`,
		companyNumber, r.Domain, string(data), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save contact record %s", companyNumber)
}

func (s *SQLiteStore) SaveVATResult(ctx context.Context, companyNumber string, r *model.VATResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal vat result")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO vat_results (company_number, company_name, vat_number, status, data, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(company_number) DO UPDATE SET company_name = excluded.company_name, vat_number = excluded.vat_number,
		 status = excluded.status, data = excluded.data, updated_at = excluded.updated_at`,
		companyNumber, r.CompanyName, r.VATNumber, string(r.Status), string(data), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save vat result %s", companyNumber)
}

func (s *SQLiteStore) GetVATResult(ctx context.Context, companyNumber string) (*model.VATResult, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM vat_results WHERE company_number = ?`,
		companyNumber,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "vat result %s", companyNumber)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get vat result %s", companyNumber)
	}

	var r model.VATResult
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal vat result")
	}
	return &r, nil
}

func (s *SQLiteStore) SaveLinkedInResult(ctx context.Context, companyNumber string, r *model.LinkedInResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal linkedin result")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO linkedin_results (company_number, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(company_number) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		companyNumber, string(data), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save linkedin result %s", companyNumber)
}

func (s *SQLiteStore) ListDomains(ctx context.Context, kind model.ListKind) ([]string, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT value FROM domain_lists WHERE kind = ? ORDER BY rowid`,
		string(kind),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list %s", kind)
	}
	defer rows.Close() //nolint:errcheck

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan list value")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list iterate")
}

func (s *SQLiteStore) AddDomains(ctx context.Context, kind model.ListKind, values []string) (int, error) {
	if err := validKind(kind); err != nil {
		return 0, err
	}
	values = cleanValues(kind, values)
	if len(values) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin add domains")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	added := 0
	for _, v := range values {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO domain_lists (kind, value, created_at) VALUES (?, ?, ?)`,
			string(kind), v, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: add %s %q", kind, v)
		}
		n, _ := res.RowsAffected()
		added += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit add domains")
	}
	return added, nil
}

func (s *SQLiteStore) RemoveDomain(ctx context.Context, kind model.ListKind, value string) error {
	if err := validKind(kind); err != nil {
		return err
	}
	value = model.NormalizeListValue(kind, value)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM domain_lists WHERE kind = ? AND value = ?`,
		string(kind), value,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: remove %s %q", kind, value)
	}
	return checkRowsAffected(res, string(kind)+" entry", value)
}

func (s *SQLiteStore) RecordQuota(ctx context.Context, remaining int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quota_snapshots (remaining, checked_at) VALUES (?, ?)`,
		remaining, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: record quota")
}

func (s *SQLiteStore) LatestQuota(ctx context.Context) (*model.QuotaSnapshot, error) {
	var q model.QuotaSnapshot
	err := s.db.QueryRowContext(ctx,
		`SELECT remaining, checked_at FROM quota_snapshots ORDER BY id DESC LIMIT 1`,
	).Scan(&q.Remaining, &q.CheckedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "quota snapshot")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest quota")
	}
	return &q, nil
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
	var stagesJSON string

	err := row.Scan(&r.ID, &r.Source, &stagesJSON, &r.Status, &r.Companies, &r.Processed, &r.Failed, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if err := json.Unmarshal([]byte(stagesJSON), &r.Stages); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal stages")
	}
	return &r, nil
}
