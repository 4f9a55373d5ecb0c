package persistence

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/batch-sub-translator/internal/jobs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore keeps an append-only history of runs, job transitions and
// folder results. Nothing is read back to resume work.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Results arrive from several workers; one connection serializes writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(path.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

func (s *SQLiteStore) StartRun(ctx context.Context, run RunRecord) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	startedAt := run.StartedAt.UTC()
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (id, root, source_lang, target_lang, model, trigger_source, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Root,
		run.SourceLang,
		run.TargetLang,
		run.Model,
		run.Trigger,
		startedAt,
	)
	return err
}

// FinishRun stores the final counts of a run started with StartRun.
func (s *SQLiteStore) FinishRun(ctx context.Context, run RunRecord) error {
	finishedAt := run.FinishedAt.UTC()
	if finishedAt.IsZero() {
		finishedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET finished_at = ?, succeeded = ?, skipped = ?, failed = ? WHERE id = ?`,
		finishedAt,
		run.Succeeded,
		run.Skipped,
		run.Failed,
		run.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

// UpsertJob records the latest state of a job within a run.
func (s *SQLiteStore) UpsertJob(ctx context.Context, runID string, job *jobs.Job) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
			run_id, id, source, dedupe_key, folder, status, error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, id) DO UPDATE SET
			status=excluded.status,
			error=excluded.error,
			updated_at=excluded.updated_at`,
		runID,
		job.ID,
		job.Source,
		job.DedupeKey,
		job.Folder,
		string(job.Status),
		job.Error,
		job.CreatedAt.UTC(),
		job.UpdatedAt.UTC(),
	)
	return err
}

// JobStore binds the store to one run so it can back a jobs.Queue.
func (s *SQLiteStore) JobStore(runID string) jobs.Store {
	return runJobStore{store: s, runID: runID}
}

type runJobStore struct {
	store *SQLiteStore
	runID string
}

func (r runJobStore) UpsertJob(ctx context.Context, job *jobs.Job) error {
	return r.store.UpsertJob(ctx, r.runID, job)
}

func (s *SQLiteStore) RecordResult(ctx context.Context, result ResultRecord) error {
	recordedAt := result.RecordedAt.UTC()
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO results (
			run_id, job_id, folder, status, reason, source_path, output_path,
			entries_total, entries_fallback, error, duration_ms, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, job_id) DO UPDATE SET
			status=excluded.status,
			reason=excluded.reason,
			source_path=excluded.source_path,
			output_path=excluded.output_path,
			entries_total=excluded.entries_total,
			entries_fallback=excluded.entries_fallback,
			error=excluded.error,
			duration_ms=excluded.duration_ms,
			recorded_at=excluded.recorded_at`,
		result.RunID,
		result.JobID,
		result.Folder,
		result.Status,
		result.Reason,
		result.SourcePath,
		result.OutputPath,
		result.EntriesTotal,
		result.EntriesFallback,
		result.Error,
		result.Duration.Milliseconds(),
		recordedAt,
	)
	return err
}

// ListRuns returns the most recent runs first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, root, source_lang, target_lang, model, trigger_source, started_at, finished_at, succeeded, skipped, failed
		 FROM runs
		 ORDER BY started_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]RunRecord, 0)
	for rows.Next() {
		var item RunRecord
		var finishedAt sql.NullTime
		if err := rows.Scan(
			&item.ID,
			&item.Root,
			&item.SourceLang,
			&item.TargetLang,
			&item.Model,
			&item.Trigger,
			&item.StartedAt,
			&finishedAt,
			&item.Succeeded,
			&item.Skipped,
			&item.Failed,
		); err != nil {
			return nil, err
		}
		if finishedAt.Valid {
			item.FinishedAt = finishedAt.Time
		}
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) ListResults(ctx context.Context, runID string) ([]ResultRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT run_id, job_id, folder, status, reason, source_path, output_path,
			entries_total, entries_fallback, error, duration_ms, recorded_at
		 FROM results
		 WHERE run_id = ?
		 ORDER BY folder ASC`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]ResultRecord, 0)
	for rows.Next() {
		var item ResultRecord
		var durationMS int64
		if err := rows.Scan(
			&item.RunID,
			&item.JobID,
			&item.Folder,
			&item.Status,
			&item.Reason,
			&item.SourcePath,
			&item.OutputPath,
			&item.EntriesTotal,
			&item.EntriesFallback,
			&item.Error,
			&durationMS,
			&item.RecordedAt,
		); err != nil {
			return nil, err
		}
		item.Duration = time.Duration(durationMS) * time.Millisecond
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// JobStatus returns the last recorded status of a job in a run.
func (s *SQLiteStore) JobStatus(ctx context.Context, runID, jobID string) (jobs.Status, bool, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE run_id = ? AND id = ?`, runID, jobID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return jobs.Status(status), true, nil
}
