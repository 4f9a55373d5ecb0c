package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/MimeLyc/batch-sub-translator/internal/jobs"
	"github.com/MimeLyc/batch-sub-translator/internal/language"
	"github.com/MimeLyc/batch-sub-translator/internal/library"
	"github.com/MimeLyc/batch-sub-translator/internal/persistence"
	"github.com/MimeLyc/batch-sub-translator/pkg/log"
)

// LockFileName is created in the movies root while a run holds it.
const LockFileName = ".srt-translate.lock"

// ErrRunInProgress means another run holds the lock on the same root.
var ErrRunInProgress = errors.New("another run is already processing this directory")

// HistoryRecorder stores an audit trail of runs. *persistence.SQLiteStore
// implements it.
type HistoryRecorder interface {
	StartRun(ctx context.Context, run persistence.RunRecord) error
	FinishRun(ctx context.Context, run persistence.RunRecord) error
	RecordResult(ctx context.Context, result persistence.ResultRecord) error
	JobStore(runID string) jobs.Store
}

type SchedulerConfig struct {
	Workers int
	Source  language.Spec
	Target  language.Spec
	Model   string
}

// Scheduler runs a FolderProcessor over every movie folder of a root on a
// fixed number of workers.
type Scheduler struct {
	processor FolderProcessor
	config    SchedulerConfig
	history   HistoryRecorder
	progress  io.Writer
	logger    *log.Logger
}

type SchedulerOption func(*Scheduler)

// WithHistory records runs, jobs and results.
func WithHistory(h HistoryRecorder) SchedulerOption {
	return func(s *Scheduler) { s.history = h }
}

// WithProgress draws a progress bar over folders on w.
func WithProgress(w io.Writer) SchedulerOption {
	return func(s *Scheduler) { s.progress = w }
}

func WithLogger(l *log.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewScheduler(processor FolderProcessor, config SchedulerConfig, opts ...SchedulerOption) *Scheduler {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	s := &Scheduler{
		processor: processor,
		config:    config,
		logger:    log.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run translates every immediate subdirectory of root once. Folder failures
// are reported in the summary; the error is only set when the run could not
// start.
func (s *Scheduler) Run(ctx context.Context, root string) (Summary, error) {
	return s.run(ctx, root, "batch")
}

func (s *Scheduler) run(ctx context.Context, root, trigger string) (Summary, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Summary{}, WrapError(err, ErrConfig, "movies root is not accessible").WithContext("root", root)
	}
	if !info.IsDir() {
		return Summary{}, NewError(ErrConfig, "movies root is not a directory").WithContext("root", root)
	}

	lock := flock.New(filepath.Join(root, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return Summary{}, fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return Summary{}, fmt.Errorf("%w: %s", ErrRunInProgress, root)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("Failed to release lock on %s: %v", root, err)
		}
	}()

	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID)
	startedAt := time.Now()

	folders, err := library.NewScanner(root).Folders(ctx)
	if err != nil {
		return Summary{}, WrapError(err, ErrFileRead, "failed to list movie folders").WithContext("root", root)
	}
	logger.Info("Found %d movie folder(s) in %s, translating %s to %s with %d worker(s)",
		len(folders), root, s.config.Source, s.config.Target, s.config.Workers)

	var jobStore jobs.Store
	if s.history != nil {
		if err := s.history.StartRun(ctx, persistence.RunRecord{
			ID:         runID,
			Root:       root,
			SourceLang: s.config.Source.Code,
			TargetLang: s.config.Target.Code,
			Model:      s.config.Model,
			Trigger:    trigger,
			StartedAt:  startedAt,
		}); err != nil {
			logger.Warn("Failed to record run start: %v", err)
		} else {
			jobStore = s.history.JobStore(runID)
		}
	}

	sink := newResultSink(runID, len(folders), s.history, s.progress)
	queue := jobs.NewQueue(s.config.Workers, jobStore)
	for _, folder := range folders {
		queue.Enqueue(jobs.EnqueueRequest{
			Source:    trigger,
			DedupeKey: folder.Path,
			Folder:    folder.Path,
		})
	}

	queue.Start(ctx, func(ctx context.Context, job *jobs.Job) (jobs.Status, error) {
		jobLogger := logger.With("job_id", job.ID, "folder", filepath.Base(job.Folder))

		var result TranslationResult
		err := SafeExecute(func() error {
			result = s.processor.Process(jobLogger.WithContext(ctx), job.Folder)
			return nil
		})
		if err != nil {
			result = TranslationResult{Folder: job.Folder}.failed(WrapError(err, ErrUnknown, "folder processing panicked"))
		}
		result.JobID = job.ID

		sink.Add(jobLogger, result)
		return result.jobStatus()
	})
	queue.Wait()
	queue.Stop()

	summary := sink.Summary(root, startedAt)
	if s.history != nil {
		// The run context may be cancelled; the final counts are still recorded.
		if err := s.history.FinishRun(context.WithoutCancel(ctx), persistence.RunRecord{
			ID:         runID,
			FinishedAt: time.Now(),
			Succeeded:  summary.Succeeded,
			Skipped:    summary.Skipped,
			Failed:     summary.Failed,
		}); err != nil {
			logger.Warn("Failed to record run end: %v", err)
		}
	}

	logger.Info("Run finished in %s: %d succeeded, %d skipped, %d failed",
		summary.Duration.Round(time.Millisecond), summary.Succeeded, summary.Skipped, summary.Failed)
	return summary, nil
}
