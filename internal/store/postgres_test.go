package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/estimate-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS estimate_runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO estimate_runs`).
		WithArgs(pgxmock.AnyArg(), "Proj", "Client", "queued", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "Proj", "Client")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	result, _ := json.Marshal(&model.Estimate{ProjectID: "p-1"})

	mock.ExpectQuery(`SELECT id, project_name, client_name, status, result, created_at, updated_at FROM estimate_runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "project_name", "client_name", "status", "result", "created_at", "updated_at"}).
			AddRow("run-1", "Proj", "Client", "complete", result, now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Result)
	assert.Equal(t, "p-1", run.Result.ProjectID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM estimate_runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE estimate_runs SET status`).
		WithArgs("failed", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStatus(context.Background(), "missing", model.RunStatusFailed)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunResult(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE estimate_runs SET result`).
		WithArgs(pgxmock.AnyArg(), "complete", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateRunResult(context.Background(), "run-1", model.RunStatusComplete, &model.Estimate{RunID: "run-1"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_Filter(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`WHERE true AND status = \$1 AND client_name = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("failed", "Acme", 10, 5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "project_name", "client_name", "status", "result", "created_at", "updated_at"}).
			AddRow("run-1", "Proj", "Acme", "failed", []byte(nil), now, now))

	runs, err := s.ListRuns(context.Background(), RunFilter{Status: model.RunStatusFailed, ClientName: "Acme", Limit: 10, Offset: 5})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].Result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Phases(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO estimate_run_phases`).
		WithArgs(pgxmock.AnyArg(), "run-1", "survey", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE estimate_run_phases SET status`).
		WithArgs("complete", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	phaseResult, _ := json.Marshal(&model.PhaseResult{Name: "survey", Status: model.PhaseStatusComplete})
	mock.ExpectQuery(`FROM estimate_run_phases WHERE run_id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "run_id", "name", "status", "result", "started_at"}).
			AddRow("ph-1", "run-1", "survey", "complete", phaseResult, now))

	ctx := context.Background()
	phase, err := s.CreatePhase(ctx, "run-1", "survey")
	require.NoError(t, err)
	require.NoError(t, s.CompletePhase(ctx, phase.ID, &model.PhaseResult{Name: "survey", Status: model.PhaseStatusComplete}))

	phases, err := s.ListPhases(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, phases, 1)
	require.NotNil(t, phases[0].Result)
	assert.Equal(t, model.PhaseStatusComplete, phases[0].Result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Settings(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT value FROM estimate_settings`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`ON CONFLICT \(key\) DO UPDATE`).
		WithArgs("k", "v", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT value FROM estimate_settings`).
		WithArgs("k").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("v"))
	mock.ExpectExec(`DELETE FROM estimate_settings`).
		WithArgs("k").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	_, ok, err := s.GetSetting(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetSetting(ctx, "k", "v"))

	v, ok, err := s.GetSetting(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, s.DeleteSetting(ctx, "k"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgres_BadConnString(t *testing.T) {
	_, err := NewPostgres(context.Background(), "://bad", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}
