package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/MimeLyc/batch-sub-translator/internal/language"
	"github.com/MimeLyc/batch-sub-translator/internal/library"
	"github.com/MimeLyc/batch-sub-translator/internal/subtitle"
	"github.com/MimeLyc/batch-sub-translator/internal/translator"
	"github.com/MimeLyc/batch-sub-translator/pkg/file"
	"github.com/MimeLyc/batch-sub-translator/pkg/log"
)

// TranslatorConfig contains translator configuration
type TranslatorConfig struct {
	Source language.Spec
	Target language.Spec

	// Force translates even when the target exists or the source already
	// is in the target language.
	Force              bool
	SkipIfTargetExists bool
}

// FolderProcessor turns one movie folder into a result. Implementations
// never panic on bad input and never return without a status.
type FolderProcessor interface {
	Process(ctx context.Context, folder string) TranslationResult
}

// FileTranslator translates the best source subtitle of a folder into the
// target language and writes it next to the source.
type FileTranslator struct {
	scanner        *library.Scanner
	subtitleReader subtitle.Reader
	subtitleWriter subtitle.Writer
	translator     translator.Translator
	config         TranslatorConfig
}

type FileTranslatorOption func(*FileTranslator)

func WithSubtitleReader(r subtitle.Reader) FileTranslatorOption {
	return func(t *FileTranslator) { t.subtitleReader = r }
}

func WithSubtitleWriter(w subtitle.Writer) FileTranslatorOption {
	return func(t *FileTranslator) { t.subtitleWriter = w }
}

func WithScanner(s *library.Scanner) FileTranslatorOption {
	return func(t *FileTranslator) { t.scanner = s }
}

// NewFileTranslator creates a new file translator instance
func NewFileTranslator(config TranslatorConfig, cli translator.Translator, opts ...FileTranslatorOption) *FileTranslator {
	t := &FileTranslator{
		scanner:        library.NewScanner(""),
		subtitleReader: subtitle.NewReader(),
		subtitleWriter: subtitle.NewWriter(),
		translator:     cli,
		config:         config,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Plan selects the source subtitle and output path for a folder without
// touching the files.
func (t *FileTranslator) Plan(folder string) (*TranslationJob, error) {
	files, err := t.scanner.Subtitles(folder)
	if err != nil {
		return nil, WrapError(err, ErrFileRead, "failed to list subtitle files")
	}

	job := &TranslationJob{
		Folder:     folder,
		Candidates: library.RankCandidates(files, t.config.Source, t.config.Target),
	}
	if len(job.Candidates) == 0 {
		return job, NewError(ErrNoSourceFound, fmt.Sprintf("no %s subtitle among %d subtitle file(s)", t.config.Source, len(files))).
			WithContext("files", len(files))
	}

	job.SourcePath = job.Candidates[0].Path
	job.TargetPath = library.TargetPath(job.SourcePath, t.config.Target)
	return job, nil
}

// Process translates one folder end to end
func (t *FileTranslator) Process(ctx context.Context, folder string) (result TranslationResult) {
	startTime := time.Now()
	result = TranslationResult{Folder: folder}
	defer func() {
		result.Duration = time.Since(startTime)
	}()

	if err := ctx.Err(); err != nil {
		return result.failed(WrapError(err, ErrCanceled, "run interrupted before the folder started"))
	}
	logger := log.FromContext(ctx)

	job, err := t.Plan(folder)
	if err != nil {
		if IsErrorType(err, ErrNoSourceFound) && !t.config.Force {
			if existing := t.declaredTarget(folder, ""); existing != "" {
				logger.Info("Only %s subtitle is %s, skipping", t.config.Target, filepath.Base(existing))
				return result.skipped(ReasonAlreadyTargetLanguage, existing)
			}
		}
		var ctxErr *CTXTransError
		if !errors.As(err, &ctxErr) {
			ctxErr = WrapError(err, ErrUnknown, "failed to plan folder")
		}
		return result.failed(ctxErr)
	}
	result.SourcePath = job.SourcePath
	logger.Debug("Selected %s (%s) out of %d candidate(s)", filepath.Base(job.SourcePath), job.Candidates[0].Tier, len(job.Candidates))

	if !t.config.Force {
		if job.TargetPath == job.SourcePath {
			logger.Info("Source %s already is %s, skipping", filepath.Base(job.SourcePath), t.config.Target)
			return result.skipped(ReasonAlreadyTargetLanguage, job.TargetPath)
		}
		if t.config.SkipIfTargetExists {
			if existing := t.existingTarget(job); existing != "" {
				logger.Info("Target subtitle %s already exists, skipping", filepath.Base(existing))
				return result.skipped(ReasonTargetExists, existing)
			}
		}
	}

	sub, err := t.subtitleReader.Read(job.SourcePath)
	if err != nil {
		var parseErr *subtitle.ParseError
		if errors.As(err, &parseErr) {
			return result.failed(WrapError(err, ErrParse, "failed to parse subtitle file"))
		}
		return result.failed(WrapError(err, ErrFileRead, "failed to read subtitle file"))
	}
	if len(sub.Lines) == 0 {
		return result.failed(NewError(ErrParse, "subtitle file has no entries").WithContext("path", job.SourcePath))
	}
	if err := sub.Validate(); err != nil {
		logger.Warn("Subtitle %s is irregular, translating anyway: %v", filepath.Base(job.SourcePath), err)
	}
	if !sub.Language.IsRoot() && !language.Same(sub.Language, t.config.Source.Tag()) {
		logger.Warn("Subtitle %s looks like %s rather than %s", filepath.Base(job.SourcePath), sub.Language, t.config.Source)
	}
	result.EntriesTotal = len(sub.Lines)

	logger.Info("Translating %s (%d entries) to %s", filepath.Base(job.SourcePath), len(sub.Lines), filepath.Base(job.TargetPath))
	batch, err := t.translator.BatchTranslate(ctx, sub.Lines)
	if batch != nil {
		result.EntriesFallback = batch.Fallback
	}
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return result.failed(WrapError(ctx.Err(), ErrCanceled, "translation interrupted, nothing written"))
		case errors.Is(err, translator.ErrEndpointUnavailable):
			return result.failed(WrapError(err, ErrRetriesExhausted, "generation endpoint unavailable, nothing written"))
		default:
			return result.failed(WrapError(err, ErrUnknown, "failed to translate subtitles"))
		}
	}
	if err := ctx.Err(); err != nil {
		return result.failed(WrapError(err, ErrCanceled, "translation interrupted, nothing written"))
	}

	translated := *sub
	translated.Path = job.TargetPath
	translated.Lines = batch.Lines
	translated.Language = t.config.Target.Tag()

	if err := t.subtitleWriter.Write(job.TargetPath, &translated); err != nil {
		return result.failed(WrapError(err, ErrFileWrite, "failed to save translation results").WithContext("path", job.TargetPath))
	}

	result.Status = StatusSuccess
	result.OutputPath = job.TargetPath
	if batch.Fallback > 0 {
		logger.Warn("Wrote %s with %d of %d entries left untranslated", filepath.Base(job.TargetPath), batch.Fallback, len(sub.Lines))
	} else {
		logger.Info("Wrote %s", filepath.Base(job.TargetPath))
	}
	return result
}

// existingTarget returns the computed target path if present, or any other
// subtitle in the folder already declaring the target language.
func (t *FileTranslator) existingTarget(job *TranslationJob) string {
	if file.Exists(job.TargetPath) {
		return job.TargetPath
	}
	return t.declaredTarget(job.Folder, job.SourcePath)
}

// declaredTarget returns a subtitle in folder, other than exclude, whose name
// declares the target language.
func (t *FileTranslator) declaredTarget(folder, exclude string) string {
	files, err := t.scanner.Subtitles(folder)
	if err != nil {
		return ""
	}
	for _, path := range files {
		if path != exclude && library.DeclaresLanguage(path, t.config.Target) {
			return path
		}
	}
	return ""
}
