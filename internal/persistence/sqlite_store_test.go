package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/MimeLyc/batch-sub-translator/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.StartRun(ctx, RunRecord{
		ID:         "run-1",
		Root:       "/movies",
		SourceLang: "en",
		TargetLang: "nl",
		Model:      "qwen3:30b-a3b",
		Trigger:    "batch",
		StartedAt:  started,
	}))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "nl", runs[0].TargetLang)
	assert.True(t, runs[0].FinishedAt.IsZero())

	require.NoError(t, store.FinishRun(ctx, RunRecord{ID: "run-1", Succeeded: 2, Skipped: 1, Failed: 1}))

	runs, err = store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Succeeded)
	assert.Equal(t, 1, runs[0].Skipped)
	assert.Equal(t, 1, runs[0].Failed)
	assert.False(t, runs[0].FinishedAt.IsZero())
}

func TestSQLiteStore_FinishUnknownRun(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	err := store.FinishRun(context.Background(), RunRecord{ID: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteStore_ListRunsNewestFirst(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, store.StartRun(ctx, RunRecord{
			ID:         id,
			Root:       "/movies",
			SourceLang: "en",
			TargetLang: "nl",
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "mid", runs[1].ID)
}

func TestSQLiteStore_JobStoreTracksTransitions(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	job := &jobs.Job{
		ID:        "job-1",
		Source:    "batch",
		DedupeKey: "/movies/A",
		Folder:    "/movies/A",
		Status:    jobs.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	runA := store.JobStore("run-a")
	runB := store.JobStore("run-b")
	require.NoError(t, runA.UpsertJob(ctx, job))
	require.NoError(t, runB.UpsertJob(ctx, job))

	job.Status = jobs.StatusFailed
	job.Error = "boom"
	require.NoError(t, runA.UpsertJob(ctx, job))

	status, ok, err := store.JobStatus(ctx, "run-a", "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, jobs.StatusFailed, status)

	status, ok, err = store.JobStatus(ctx, "run-b", "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, jobs.StatusPending, status)

	_, ok, err = store.JobStatus(ctx, "run-c", "job-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_ResultsRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordResult(ctx, ResultRecord{
		RunID:    "run-1",
		JobID:    "job-2",
		Folder:   "/movies/B",
		Status:   "failed",
		Reason:   "no_source_found",
		Error:    "no source subtitle",
		Duration: 1500 * time.Millisecond,
	}))
	require.NoError(t, store.RecordResult(ctx, ResultRecord{
		RunID:           "run-1",
		JobID:           "job-1",
		Folder:          "/movies/A",
		Status:          "success",
		SourcePath:      "/movies/A/sub_en.srt",
		OutputPath:      "/movies/A/sub_nl.srt",
		EntriesTotal:    3,
		EntriesFallback: 1,
		Duration:        2 * time.Second,
	}))

	results, err := store.ListResults(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "/movies/A", results[0].Folder)
	assert.Equal(t, "/movies/A/sub_nl.srt", results[0].OutputPath)
	assert.Equal(t, 3, results[0].EntriesTotal)
	assert.Equal(t, 1, results[0].EntriesFallback)
	assert.Equal(t, 2*time.Second, results[0].Duration)

	assert.Equal(t, "failed", results[1].Status)
	assert.Equal(t, "no_source_found", results[1].Reason)
	assert.Equal(t, 1500*time.Millisecond, results[1].Duration)

	empty, err := store.ListResults(ctx, "run-2")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteStore_ReopenKeepsHistory(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "runs.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.StartRun(context.Background(), RunRecord{ID: "run-1", Root: "/m", SourceLang: "en", TargetLang: "nl"}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	runs, err := reopened.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
}

func TestNewSQLiteStore_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewSQLiteStore("  ")
	require.Error(t, err)
}

func TestMigrationVersion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, migrationVersion("001_init.sql"))
	assert.Equal(t, 12, migrationVersion("12"))
	assert.Equal(t, 0, migrationVersion("init.sql"))
}
