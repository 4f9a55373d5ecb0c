package persistence

import "time"

// RunRecord is one batch run over a movies root.
type RunRecord struct {
	ID         string
	Root       string
	SourceLang string
	TargetLang string
	Model      string
	Trigger    string
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Skipped    int
	Failed     int
}

// ResultRecord is the outcome of one folder within a run.
type ResultRecord struct {
	RunID           string
	JobID           string
	Folder          string
	Status          string
	Reason          string
	SourcePath      string
	OutputPath      string
	EntriesTotal    int
	EntriesFallback int
	Error           string
	Duration        time.Duration
	RecordedAt      time.Time
}
