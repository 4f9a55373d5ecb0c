package subtitle

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// 00:02:16,612 --> 00:02:19,376, optionally followed by position hints
var timingPattern = regexp.MustCompile(`^\s*(\d+):(\d{2}):(\d{2})[,.](\d{1,3})\s*-->\s*(\d+):(\d{2}):(\d{2})[,.](\d{1,3})(?:\s.*)?$`)

// DefaultReader is the default subtitle file reader
type DefaultReader struct{}

// NewReader creates a new subtitle file reader
func NewReader() Reader {
	return &DefaultReader{}
}

// Read reads and parses an SRT file.
func (r *DefaultReader) Read(path string) (*File, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".srt") {
		return nil, fmt.Errorf("only SRT format subtitle files are supported: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}
	return ReadSRTBytes(data, path)
}

// ReadSRTBytes parses SRT content. path is only used in errors and File.Path.
func ReadSRTBytes(data []byte, path string) (*File, error) {
	f := &File{
		Path:       path,
		Format:     FormatSRT,
		LineEnding: "\n",
		Language:   language.Und,
	}

	if bytes.HasPrefix(data, utf8BOM) {
		f.BOM = true
		data = data[len(utf8BOM):]
	}
	if !utf8.Valid(data) {
		return nil, &ParseError{Path: path, Msg: "content is not valid UTF-8"}
	}

	content := string(data)
	if strings.Contains(content, "\r\n") {
		f.LineEnding = "\r\n"
	}

	lines := splitLines(content)
	i := 0
	var leading strings.Builder
	for i < len(lines) && isBlank(lines[i].content) {
		leading.WriteString(lines[i].raw)
		i++
	}
	f.leading = leading.String()

	for i < len(lines) {
		indexLine := lines[i]
		index, err := strconv.Atoi(strings.TrimSpace(indexLine.content))
		if err != nil {
			return nil, &ParseError{Path: path, Line: i + 1, Msg: fmt.Sprintf("expected subtitle index, got %q", indexLine.content)}
		}
		i++

		if i >= len(lines) {
			return nil, &ParseError{Path: path, Line: i, Msg: fmt.Sprintf("entry %d has no timing line", index)}
		}
		timingLine := lines[i]
		start, end, err := parseSRTTime(timingLine.content)
		if err != nil {
			return nil, &ParseError{Path: path, Line: i + 1, Msg: err.Error()}
		}
		i++

		var text []string
		var rawText strings.Builder
		for i < len(lines) {
			if isBlank(lines[i].content) {
				next := nextNonBlank(lines, i)
				if next == len(lines) || startsEntry(lines, next) {
					break
				}
			}
			text = append(text, strings.TrimRight(lines[i].content, " \t\r"))
			rawText.WriteString(lines[i].raw)
			i++
		}

		var gap strings.Builder
		for i < len(lines) && isBlank(lines[i].content) {
			gap.WriteString(lines[i].raw)
			i++
		}

		f.Lines = append(f.Lines, Line{
			Index:     index,
			StartTime: start,
			EndTime:   end,
			Text:      strings.Join(text, "\n"),
			raw: &rawEntry{
				index:  indexLine.raw,
				timing: timingLine.raw,
				text:   rawText.String(),
				gap:    gap.String(),
			},
		})
	}

	f.Language = detectLanguage(f.Lines)
	return f, nil
}

type physicalLine struct {
	content string // without line terminator
	raw     string // with line terminator
}

func splitLines(s string) []physicalLine {
	var lines []physicalLine
	for len(s) > 0 {
		n := strings.IndexByte(s, '\n')
		if n < 0 {
			lines = append(lines, physicalLine{content: s, raw: s})
			break
		}
		raw := s[:n+1]
		content := strings.TrimSuffix(s[:n], "\r")
		lines = append(lines, physicalLine{content: content, raw: raw})
		s = s[n+1:]
	}
	return lines
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func nextNonBlank(lines []physicalLine, from int) int {
	for from < len(lines) && isBlank(lines[from].content) {
		from++
	}
	return from
}

func startsEntry(lines []physicalLine, at int) bool {
	if at+1 >= len(lines) {
		return false
	}
	if _, err := strconv.Atoi(strings.TrimSpace(lines[at].content)); err != nil {
		return false
	}
	return timingPattern.MatchString(lines[at+1].content)
}

// parseSRTTime parses SRT time format
func parseSRTTime(timeString string) (time.Duration, time.Duration, error) {
	matches := timingPattern.FindStringSubmatch(timeString)
	if len(matches) != 9 {
		return 0, 0, fmt.Errorf("invalid time format: %q", timeString)
	}

	parseTime := func(hours, minutes, seconds, milliseconds string) (time.Duration, error) {
		h, _ := strconv.Atoi(hours)
		m, _ := strconv.Atoi(minutes)
		s, _ := strconv.Atoi(seconds)
		if m > 59 || s > 59 {
			return 0, fmt.Errorf("invalid time format: %q", timeString)
		}
		for len(milliseconds) < 3 {
			milliseconds += "0"
		}
		ms, _ := strconv.Atoi(milliseconds)

		return time.Duration(h)*time.Hour +
			time.Duration(m)*time.Minute +
			time.Duration(s)*time.Second +
			time.Duration(ms)*time.Millisecond, nil
	}

	startTime, err := parseTime(matches[1], matches[2], matches[3], matches[4])
	if err != nil {
		return 0, 0, err
	}

	endTime, err := parseTime(matches[5], matches[6], matches[7], matches[8])
	if err != nil {
		return 0, 0, err
	}

	if endTime < startTime {
		return 0, 0, fmt.Errorf("end time before start time: %q", timeString)
	}

	return startTime, endTime, nil
}

// detectLanguage votes per entry with whatlanggo and returns the most common
// language. It is a hint only: short lines are often misdetected.
func detectLanguage(lines []Line) language.Tag {
	if len(lines) == 0 {
		return language.Und
	}

	langMap := make(map[string]int)

	for _, line := range lines {
		if line.IsBlank() {
			continue
		}
		lang := whatlanggo.DetectLang(line.Text).Iso6391()
		if lang == "" {
			continue
		}
		langMap[lang]++
	}

	// Get top language, ties resolved alphabetically
	var topLang string
	var topCount int
	for lang, count := range langMap {
		if count > topCount || (count == topCount && lang < topLang) {
			topLang = lang
			topCount = count
		}
	}
	if topLang == "" {
		return language.Und
	}

	return language.Make(topLang)
}
