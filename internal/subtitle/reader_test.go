package subtitle

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestDetectLanguage(t *testing.T) {
	lines := []Line{
		{
			Text: "Hello, world!",
		},
		{
			Text: "こんにちは、世界!",
		},
		{
			Text: "こんにちは、世界!",
		},

		{
			Text: "Привет, мир!",
		},
	}
	lang := detectLanguage(lines)
	if lang != language.Japanese {
		t.Errorf("expected ja, got %s", lang)
	}
}

func TestDetectLanguage_Empty(t *testing.T) {
	assert.Equal(t, language.Und, detectLanguage(nil))
	assert.Equal(t, language.Und, detectLanguage([]Line{{Text: "  "}}))
}

func TestReadSRTBytes(t *testing.T) {
	data := []byte("1\n00:00:01,000 --> 00:00:02,000\nHello\n\n2\n00:00:03,000 --> 00:00:04,500\nWorld\nagain\n")

	file, err := ReadSRTBytes(data, "embedded://sample")
	require.NoError(t, err)
	require.Len(t, file.Lines, 2)
	assert.Equal(t, "Hello", file.Lines[0].Text)
	assert.Equal(t, "World\nagain", file.Lines[1].Text)
	assert.Equal(t, []string{"World", "again"}, file.Lines[1].TextLines())
	assert.Equal(t, 3*time.Second, file.Lines[1].StartTime)
	assert.Equal(t, 4500*time.Millisecond, file.Lines[1].EndTime)
	assert.Equal(t, FormatSRT, file.Format)
	assert.Equal(t, "\n", file.LineEnding)
	assert.False(t, file.BOM)
	assert.Equal(t, "embedded://sample", file.Path)
	assert.NoError(t, file.Validate())
}

func TestReadSRTBytes_CRLFAndBOM(t *testing.T) {
	data := []byte("\xEF\xBB\xBF1\r\n00:00:01,000 --> 00:00:02,000\r\nHello\r\n\r\n")

	file, err := ReadSRTBytes(data, "bom.srt")
	require.NoError(t, err)
	require.Len(t, file.Lines, 1)
	assert.True(t, file.BOM)
	assert.Equal(t, "\r\n", file.LineEnding)
	assert.Equal(t, "Hello", file.Lines[0].Text)
}

func TestReadSRTBytes_BlankEntryAndBlankLineInText(t *testing.T) {
	data := []byte("1\n00:00:01,000 --> 00:00:02,000\n\n2\n00:00:03,000 --> 00:00:04,000\nfirst\n\nsecond\n\n3\n00:00:05,000 --> 00:00:06,000\nlast\n")

	file, err := ReadSRTBytes(data, "gaps.srt")
	require.NoError(t, err)
	require.Len(t, file.Lines, 3)
	assert.True(t, file.Lines[0].IsBlank())
	assert.Equal(t, "first\n\nsecond", file.Lines[1].Text)
	assert.Equal(t, "last", file.Lines[2].Text)
}

func TestReadSRTBytes_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"index is not a number", "one\n00:00:01,000 --> 00:00:02,000\nHello\n"},
		{"missing timing line", "1\n"},
		{"malformed timing", "1\n00:00:01 -> 00:00:02\nHello\n"},
		{"end before start", "1\n00:00:05,000 --> 00:00:02,000\nHello\n"},
		{"invalid utf8", "1\n00:00:01,000 --> 00:00:02,000\n\xff\xfe\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSRTBytes([]byte(tt.data), "bad.srt")
			require.Error(t, err)
			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr))
		})
	}
}

func TestReadSRTBytes_Empty(t *testing.T) {
	file, err := ReadSRTBytes([]byte("\n\n"), "empty.srt")
	require.NoError(t, err)
	assert.Empty(t, file.Lines)
}

func TestDefaultReader_Read(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub_en.srt")
	require.NoError(t, os.WriteFile(path, []byte("1\n00:00:01,000 --> 00:00:02,000\nHello there, how are you doing today?\n"), 0o644))

	file, err := NewReader().Read(path)
	require.NoError(t, err)
	require.Len(t, file.Lines, 1)
	assert.Equal(t, path, file.Path)
	assert.Equal(t, language.English, file.Language)

	_, err = NewReader().Read(filepath.Join(dir, "sub_en.ass"))
	assert.Error(t, err)

	_, err = NewReader().Read(filepath.Join(dir, "missing.srt"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	file := &File{Lines: []Line{
		{Index: 1, StartTime: 2 * time.Second, EndTime: 3 * time.Second},
		{Index: 3, StartTime: 1 * time.Second, EndTime: 500 * time.Millisecond},
	}}

	err := file.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 3, expected 2")
	assert.Contains(t, err.Error(), "ends at 00:00:00,500")
	assert.Contains(t, err.Error(), "before entry 1")
}
