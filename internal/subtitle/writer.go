package subtitle

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/MimeLyc/batch-sub-translator/pkg/file"
)

// DefaultWriter is the default subtitle file writer
type DefaultWriter struct{}

// NewWriter creates a new subtitle file writer
func NewWriter() Writer {
	return &DefaultWriter{}
}

// Write serializes subtitle and atomically replaces path with it.
func (w *DefaultWriter) Write(path string, subtitle *File) error {
	if subtitle == nil {
		return fmt.Errorf("subtitle data is empty")
	}

	if err := file.WriteAtomic(path, Encode(subtitle), 0o644); err != nil {
		return fmt.Errorf("failed to write subtitle file: %w", err)
	}
	return nil
}

// Encode serializes f as SRT. Index and timing lines, blank-line layout, line
// endings and BOM of a parsed file are reproduced exactly; only entries with
// a TranslatedText get new text.
func Encode(f *File) []byte {
	var buf bytes.Buffer
	eol := f.eol()

	if f.BOM {
		buf.Write(utf8BOM)
	}
	buf.WriteString(f.leading)

	for _, line := range f.Lines {
		if line.raw == nil {
			fmt.Fprintf(&buf, "%d%s%s --> %s%s", line.Index, eol, FormatTimestamp(line.StartTime), FormatTimestamp(line.EndTime), eol)
			buf.WriteString(joinLines(line.text(), eol))
			buf.WriteString(eol + eol)
			continue
		}

		buf.WriteString(line.raw.index)
		buf.WriteString(line.raw.timing)
		if line.TranslatedText == "" {
			buf.WriteString(line.raw.text)
		} else {
			buf.WriteString(joinLines(line.TranslatedText, eol))
			if line.raw.text == "" || strings.HasSuffix(line.raw.text, "\n") {
				buf.WriteString(eol)
			}
		}
		buf.WriteString(line.raw.gap)
	}

	return buf.Bytes()
}

func (l Line) text() string {
	if l.TranslatedText != "" {
		return l.TranslatedText
	}
	return l.Text
}

func joinLines(text, eol string) string {
	if eol == "\n" {
		return text
	}
	return strings.ReplaceAll(text, "\n", eol)
}

// FormatTimestamp formats time.Duration to SRT time format
func FormatTimestamp(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	milliseconds := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, milliseconds)
}
