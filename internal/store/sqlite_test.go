package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

type fakeResult struct {
	rowsAffected int64
	err          error
}

func (r *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r *fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, r.err }

func TestNewSQLite_InvalidDSN(t *testing.T) {
	_, err := NewSQLite("/nonexistent/dir/subdir/test.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite")
}

func TestNewSQLite_CloseAndReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "reopen.db")

	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	_, err = st.AddDomains(ctx, model.ListBlacklist, []string{"yell.com"})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = NewSQLite(dbPath)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))

	got, err := st.ListDomains(ctx, model.ListBlacklist)
	require.NoError(t, err)
	assert.Equal(t, []string{"yell.com"}, got)
}

func TestMigrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestCheckRowsAffected_ZeroRows(t *testing.T) {
	err := checkRowsAffected(&fakeResult{}, "run", "abc-123")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "run abc-123")
}

func TestCheckRowsAffected_Error(t *testing.T) {
	err := checkRowsAffected(&fakeResult{err: assert.AnError}, "run", "abc-123")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "rows affected")
}

func TestCheckRowsAffected_Success(t *testing.T) {
	assert.NoError(t, checkRowsAffected(&fakeResult{rowsAffected: 1}, "run", "abc-123"))
}

func TestSQLite_ListDomainsKeepsInsertionOrder(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.AddDomains(ctx, model.ListSearchKeyword, []string{"privacy policy", "terms", "About Us"})
	require.NoError(t, err)

	got, err := st.ListDomains(ctx, model.ListSearchKeyword)
	require.NoError(t, err)
	assert.Equal(t, []string{"privacy policy", "terms", "About Us"}, got)
}

func TestSQLite_ScanRunCorruptStages(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, stages, status) VALUES ('bad', 'x.csv', 'not-json', 'running')`)
	require.NoError(t, err)

	_, err = st.GetRun(ctx, "bad")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_OperationsAfterClose(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.Close())

	_, err := st.CreateRun(ctx, "x.csv", []model.Stage{model.StageVAT}, 1)
	assert.Error(t, err)
	_, err = st.ListDomains(ctx, model.ListBlacklist)
	assert.Error(t, err)
	assert.Error(t, st.RecordQuota(ctx, 10))
}
