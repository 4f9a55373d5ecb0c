package service

import (
	"time"

	"github.com/MimeLyc/batch-sub-translator/internal/jobs"
	"github.com/MimeLyc/batch-sub-translator/internal/library"
)

// Status is the final state of one folder.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Reason qualifies a skipped or failed folder.
type Reason string

const (
	ReasonAlreadyTargetLanguage Reason = "already_target_language"
	ReasonTargetExists          Reason = "target_exists"
	ReasonNoSourceFound         Reason = "no_source_found"
	ReasonReadError             Reason = "read_error"
	ReasonParseError            Reason = "parse_error"
	ReasonWriteError            Reason = "write_error"
	ReasonRetriesExhausted      Reason = "retries_exhausted"
	ReasonCanceled              Reason = "canceled"
	ReasonConfig                Reason = "config"
	ReasonUnknown               Reason = "unknown"
)

// TranslationJob is the plan for one movie folder.
type TranslationJob struct {
	ID         string
	Folder     string
	Candidates []library.Candidate
	SourcePath string
	TargetPath string
}

// TranslationResult is what happened to one movie folder.
type TranslationResult struct {
	JobID           string        `json:"job_id"`
	Folder          string        `json:"folder"`
	Status          Status        `json:"status"`
	Reason          Reason        `json:"reason,omitempty"`
	SourcePath      string        `json:"source_path,omitempty"`
	OutputPath      string        `json:"output_path,omitempty"`
	EntriesTotal    int           `json:"entries_total"`
	EntriesFallback int           `json:"entries_fallback"`
	Err             error         `json:"-"`
	Duration        time.Duration `json:"duration"`
}

func (r TranslationResult) skipped(reason Reason, outputPath string) TranslationResult {
	r.Status = StatusSkipped
	r.Reason = reason
	r.OutputPath = outputPath
	return r
}

func (r TranslationResult) failed(err *CTXTransError) TranslationResult {
	r.Status = StatusFailed
	r.Reason = err.Type.Reason()
	r.Err = err.WithContext("folder", r.Folder)
	return r
}

// jobStatus maps the result onto the queue's status set.
func (r TranslationResult) jobStatus() (jobs.Status, error) {
	switch r.Status {
	case StatusSuccess:
		return jobs.StatusSuccess, nil
	case StatusSkipped:
		return jobs.StatusSkipped, nil
	default:
		if r.Err != nil {
			return jobs.StatusFailed, r.Err
		}
		return jobs.StatusFailed, NewError(ErrUnknown, "folder failed without an error")
	}
}

// Summary aggregates the results of one batch run.
type Summary struct {
	RunID         string
	Root          string
	StartedAt     time.Time
	Duration      time.Duration
	Succeeded     int
	Skipped       int
	Failed        int
	FailedFolders []string
	Results       []TranslationResult
}

// ExitCode is 0 when no folder failed and 1 otherwise.
func (s Summary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}

// Total is the number of folders the run produced a result for.
func (s Summary) Total() int {
	return s.Succeeded + s.Skipped + s.Failed
}
