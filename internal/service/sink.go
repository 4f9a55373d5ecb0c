package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/MimeLyc/batch-sub-translator/internal/persistence"
	"github.com/MimeLyc/batch-sub-translator/pkg/log"
)

// resultSink collects folder results from concurrent workers.
type resultSink struct {
	runID   string
	total   int
	history HistoryRecorder

	mu      sync.Mutex
	results []TranslationResult
	bar     *progressbar.ProgressBar
}

func newResultSink(runID string, total int, history HistoryRecorder, progress io.Writer) *resultSink {
	sink := &resultSink{
		runID:   runID,
		total:   total,
		history: history,
		results: make([]TranslationResult, 0, total),
	}
	if progress != nil && total > 0 {
		sink.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(progress),
			progressbar.OptionSetDescription("Translating folders"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetElapsedTime(true),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprintln(progress)
			}),
		)
	}
	return sink
}

// Add stores a result, logs it and updates history and progress.
func (s *resultSink) Add(logger *log.Logger, result TranslationResult) {
	switch result.Status {
	case StatusSuccess:
		logger.Info("Folder done: %s, %d entries, %d untranslated, took %s",
			result.OutputPath, result.EntriesTotal, result.EntriesFallback, result.Duration.Round(time.Millisecond))
	case StatusSkipped:
		logger.Info("Folder skipped: %s", result.Reason)
	default:
		logger.Error("Folder failed: %s: %v", result.Reason, result.Err)
	}

	if s.history != nil {
		if err := s.history.RecordResult(context.Background(), s.record(result)); err != nil {
			logger.Warn("Failed to record result: %v", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	if s.bar != nil {
		_ = s.bar.Add(1)
	}
}

func (s *resultSink) record(result TranslationResult) persistence.ResultRecord {
	rec := persistence.ResultRecord{
		RunID:           s.runID,
		JobID:           result.JobID,
		Folder:          result.Folder,
		Status:          string(result.Status),
		Reason:          string(result.Reason),
		SourcePath:      result.SourcePath,
		OutputPath:      result.OutputPath,
		EntriesTotal:    result.EntriesTotal,
		EntriesFallback: result.EntriesFallback,
		Duration:        result.Duration,
		RecordedAt:      time.Now(),
	}
	if result.Err != nil {
		rec.Error = result.Err.Error()
	}
	return rec
}

// Summary returns the results sorted by folder.
func (s *resultSink) Summary(root string, startedAt time.Time) Summary {
	s.mu.Lock()
	results := make([]TranslationResult, len(s.results))
	copy(results, s.results)
	if s.bar != nil && len(s.results) < s.total {
		_ = s.bar.Finish()
	}
	s.mu.Unlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Folder < results[j].Folder
	})

	summary := Summary{
		RunID:     s.runID,
		Root:      root,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Results:   results,
	}
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			summary.Succeeded++
		case StatusSkipped:
			summary.Skipped++
		default:
			summary.Failed++
			summary.FailedFolders = append(summary.FailedFolders, r.Folder)
		}
	}
	return summary
}
