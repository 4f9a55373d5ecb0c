package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/batch-sub-translator/internal/language"
	"github.com/MimeLyc/batch-sub-translator/internal/subtitle"
	"github.com/MimeLyc/batch-sub-translator/internal/translator"
)

const sampleSRT = "1\n00:00:01,000 --> 00:00:02,500\nHello there.\n\n" +
	"2\n00:00:03,000 --> 00:00:04,000\nHow are you?\nI am fine.\n\n" +
	"3\n00:00:05,000 --> 00:00:06,000\nGoodbye.\n"

const translatedSRT = "1\n00:00:01,000 --> 00:00:02,500\nNL Hello there.\n\n" +
	"2\n00:00:03,000 --> 00:00:04,000\nNL How are you?\nNL I am fine.\n\n" +
	"3\n00:00:05,000 --> 00:00:06,000\nNL Goodbye.\n"

func mustSpec(t *testing.T, name, code string) language.Spec {
	t.Helper()
	spec, err := language.NewSpec(name, code)
	require.NoError(t, err)
	return spec
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// promptPayload extracts the entry text embedded in a prompt.
func promptPayload(prompt string) string {
	const fence = "\"\"\"\n"
	start := strings.Index(prompt, fence)
	if start < 0 {
		return ""
	}
	rest := prompt[start+len(fence):]
	end := strings.Index(rest, "\n\"\"\"")
	if end < 0 {
		return rest
	}
	return rest[:end]
}

// fakeTranslation answers like a chatty model: a reasoning block, a
// preamble and every line prefixed with "NL ".
func fakeTranslation(prompt string) string {
	lines := strings.Split(promptPayload(prompt), "\n")
	for i, line := range lines {
		lines[i] = "NL " + line
	}
	return "<think>\nTranslating to Dutch.\n</think>\nHere is the translation:\n" + strings.Join(lines, "\n")
}

type countingGenerator struct {
	calls   atomic.Int32
	respond func(prompt string) (string, error)
}

func (g *countingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.respond != nil {
		return g.respond(prompt)
	}
	return fakeTranslation(prompt), nil
}

type mockTranslator struct {
	mock.Mock
}

func (m *mockTranslator) Translate(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

func (m *mockTranslator) BatchTranslate(ctx context.Context, lines []subtitle.Line) (*translator.BatchResult, error) {
	args := m.Called(ctx, lines)
	result, _ := args.Get(0).(*translator.BatchResult)
	return result, args.Error(1)
}

type mockSubtitleWriter struct {
	mock.Mock
}

func (m *mockSubtitleWriter) Write(path string, file *subtitle.File) error {
	args := m.Called(path, file)
	return args.Error(0)
}
