package subtitle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const FormatSRT = "SRT"

// Reader is the interface for reading subtitle files
type Reader interface {
	Read(path string) (*File, error)
}

// Writer is the interface for writing subtitle files
type Writer interface {
	Write(path string, subtitle *File) error
}

// Line represents a single subtitle entry
type Line struct {
	Index          int           // subtitle index
	StartTime      time.Duration // start time
	EndTime        time.Duration // end time
	Text           string        // subtitle text, lines joined with "\n"
	TranslatedText string        // translated text

	raw *rawEntry
}

// rawEntry keeps the source bytes of an entry so that an untouched file is
// written back byte for byte.
type rawEntry struct {
	index  string
	timing string
	text   string
	gap    string // blank lines following the entry
}

// TextLines returns the entry text split into lines.
func (l Line) TextLines() []string {
	if l.Text == "" {
		return nil
	}
	return strings.Split(l.Text, "\n")
}

// IsBlank reports whether the entry has no visible text.
func (l Line) IsBlank() bool {
	return strings.TrimSpace(l.Text) == ""
}

// File represents subtitle file
type File struct {
	Path       string
	Lines      []Line
	Language   language.Tag // detected content language, language.Und if unknown
	Format     string       // e.g. SRT
	LineEnding string       // "\n" or "\r\n"
	BOM        bool

	leading string
}

// Validate reports entries that break the usual ordering rules: indices
// contiguous from 1, start times non-decreasing and end not before start.
func (f *File) Validate() error {
	var errs []error
	for i, line := range f.Lines {
		if line.Index != i+1 {
			errs = append(errs, fmt.Errorf("entry %d: index %d, expected %d", i+1, line.Index, i+1))
		}
		if line.EndTime < line.StartTime {
			errs = append(errs, fmt.Errorf("entry %d: ends at %s before it starts at %s", i+1, FormatTimestamp(line.EndTime), FormatTimestamp(line.StartTime)))
		}
		if i > 0 && line.StartTime < f.Lines[i-1].StartTime {
			errs = append(errs, fmt.Errorf("entry %d: starts at %s before entry %d", i+1, FormatTimestamp(line.StartTime), i))
		}
	}
	return errors.Join(errs...)
}

func (f *File) eol() string {
	if f.LineEnding == "" {
		return "\n"
	}
	return f.LineEnding
}

// ParseError reports a malformed subtitle file.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: line %d: %s", e.Path, e.Line, e.Msg)
	}
	return fmt.Sprintf("parse %s: %s", e.Path, e.Msg)
}
