package translator

import (
	"context"
	"errors"

	"github.com/MimeLyc/batch-sub-translator/internal/subtitle"
)

var (
	// ErrEmptyOutput means the model answered but nothing was left after sanitizing.
	ErrEmptyOutput = errors.New("translation empty after sanitizing")
	// ErrEndpointUnavailable aborts a file after too many consecutive exhausted entries.
	ErrEndpointUnavailable = errors.New("generation endpoint unavailable")
)

// Generator produces raw model output for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Translator interface {
	// Translate translates the text of a single entry.
	Translate(ctx context.Context, text string) (string, error)

	// BatchTranslate translates entries one by one. Failed entries keep their
	// original text and are counted in the result.
	BatchTranslate(ctx context.Context, lines []subtitle.Line) (*BatchResult, error)
}

// BatchResult is the outcome of BatchTranslate.
type BatchResult struct {
	Lines      []subtitle.Line
	Translated int // entries with a translation
	Fallback   int // entries that kept their original text after a failure
	Blank      int // entries copied without a call
	Failures   []EntryFailure
}

// EntryFailure records why an entry fell back to its original text.
type EntryFailure struct {
	Index int
	Err   error
}
