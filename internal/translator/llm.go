package translator

import (
	"context"
	"fmt"

	"github.com/MimeLyc/batch-sub-translator/internal/language"
	"github.com/MimeLyc/batch-sub-translator/internal/llm"
	"github.com/MimeLyc/batch-sub-translator/internal/subtitle"
	"github.com/MimeLyc/batch-sub-translator/pkg/log"
)

// DefaultMaxConsecutiveFailures is the number of consecutive exhausted
// entries after which a file is abandoned.
const DefaultMaxConsecutiveFailures = 3

// Options configures an LLM translator.
type Options struct {
	Source language.Spec
	Target language.Spec
	Lines  LinePolicy

	// MaxConsecutiveFailures aborts BatchTranslate with ErrEndpointUnavailable
	// after this many consecutive entries exhausted their retries; 0 disables.
	MaxConsecutiveFailures int

	// Logger overrides the logger taken from the context.
	Logger *log.Logger
}

// llmTranslator translates entry by entry through a Generator
type llmTranslator struct {
	generator Generator
	opts      Options
	names     []string
}

// NewLLMTranslator creates a translator that prompts generator once per entry
func NewLLMTranslator(generator Generator, opts Options) Translator {
	return &llmTranslator{
		generator: generator,
		opts:      opts,
		names:     []string{opts.Source.Name, opts.Target.Name},
	}
}

// logger prefers Options.Logger, then the logger carried by ctx.
func (t *llmTranslator) logger(ctx context.Context) *log.Logger {
	if t.opts.Logger != nil {
		return t.opts.Logger
	}
	return log.FromContext(ctx)
}

func (t *llmTranslator) Translate(ctx context.Context, text string) (string, error) {
	raw, err := t.generator.Generate(ctx, BuildPrompt(t.opts.Source, t.opts.Target, text))
	if err != nil {
		return "", err
	}

	cleaned := Sanitize(raw, SanitizeOptions{
		MaxLines:      t.opts.Lines.MaxLines(text),
		LanguageNames: t.names,
	})
	if cleaned == "" {
		return "", ErrEmptyOutput
	}
	return cleaned, nil
}

func (t *llmTranslator) BatchTranslate(ctx context.Context, lines []subtitle.Line) (*BatchResult, error) {
	out := make([]subtitle.Line, len(lines))
	copy(out, lines)
	result := &BatchResult{Lines: out}

	consecutive := 0
	for i := range out {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := &out[i]
		if line.IsBlank() {
			result.Blank++
			continue
		}

		translated, err := t.Translate(ctx, line.Text)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}

			result.Fallback++
			result.Failures = append(result.Failures, EntryFailure{Index: line.Index, Err: err})
			t.logger(ctx).Warn("entry %d (%d/%d): keeping original text: %v", line.Index, i+1, len(out), err)

			if !llm.IsKind(err, llm.Exhausted) {
				consecutive = 0
				continue
			}
			consecutive++
			if t.opts.MaxConsecutiveFailures > 0 && consecutive >= t.opts.MaxConsecutiveFailures {
				return result, fmt.Errorf("%w: %d consecutive entries failed: %w", ErrEndpointUnavailable, consecutive, err)
			}
			continue
		}

		consecutive = 0
		line.TranslatedText = translated
		result.Translated++
	}

	return result, nil
}
