package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/credit-crawler/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestCreateAndGetRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	require.Equal(t, model.RunStatusRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, run.ID, got.ID)
	require.Equal(t, model.RunStatusRunning, got.Status)
	require.True(t, got.FinishedAt.IsZero())
}

func TestCompleteRun_RoundTripsStats(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx)
	require.NoError(t, err)

	stats := model.RunStats{
		PagesTotal:       10,
		PagesFetched:     9,
		PagesSkipped:     1,
		RecordsKept:      178,
		RecordsDropped:   2,
		FieldsCoerced:    14,
		CaptchaRefreshes: 3,
	}
	require.NoError(t, st.CompleteRun(ctx, run.ID, stats, "reports/r.xlsx"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, model.RunStatusComplete, got.Status)
	require.Equal(t, stats, got.Stats)
	require.Equal(t, "reports/r.xlsx", got.ReportPath)
	require.False(t, got.FinishedAt.IsZero())
}

func TestFailRun_KeepsCause(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx)
	require.NoError(t, err)

	require.NoError(t, st.FailRun(ctx, run.ID, model.RunStats{PagesTotal: 5}, "captcha attempts exhausted"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, model.RunStatusFailed, got.Status)
	require.Equal(t, "captcha attempts exhausted", got.Error)
	require.Equal(t, 5, got.Stats.PagesTotal)
	require.Empty(t, got.ReportPath)
}

func TestFinishRun_UnknownID(t *testing.T) {
	st := newTestStore(t)
	require.Error(t, st.CompleteRun(context.Background(), "nope", model.RunStats{}, ""))
}

func TestGetRun_UnknownID(t *testing.T) {
	st := newTestStore(t)
	_, err := st.GetRun(context.Background(), "nope")
	require.Error(t, err)
}

func TestListRuns_NewestFirstWithLimit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := st.CreateRun(ctx)
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := st.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	runs, err = st.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
}
