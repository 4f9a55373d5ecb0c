package translator

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeOptions configures Sanitize.
type SanitizeOptions struct {
	// MaxLines caps the number of output lines; 0 means no cap.
	MaxLines int
	// LanguageNames are dropped when they appear alone on a line
	// ("Dutch:", "**English**") and other content remains.
	LanguageNames []string
}

var reasoningTags = []string{"think", "thinking", "reasoning"}

type tagPatterns struct {
	paired   *regexp.Regexp
	unclosed *regexp.Regexp
	unopened *regexp.Regexp
}

var reasoningPatterns = func() []tagPatterns {
	patterns := make([]tagPatterns, 0, len(reasoningTags))
	for _, tag := range reasoningTags {
		open := `<\s*` + tag + `(?:\s[^>]*)?>`
		closing := `<\s*/\s*` + tag + `\s*>`
		patterns = append(patterns, tagPatterns{
			paired:   regexp.MustCompile(`(?is)` + open + `.*?` + closing),
			unclosed: regexp.MustCompile(`(?is)` + open + `.*$`),
			unopened: regexp.MustCompile(`(?is)^.*?` + closing),
		})
	}
	return patterns
}()

var quotePairs = [][2]rune{
	{'"', '"'},
	{'\'', '\''},
	{'“', '”'},
	{'‘', '’'},
	{'«', '»'},
	{'„', '“'},
	{'「', '」'},
	{'『', '』'},
}

var (
	// "Here is the translation:", "Your Dutch translation:", "Translated text:"
	preambleLine = regexp.MustCompile(`(?i)^(?:(?:here|your|the|below|sure)\b.*\btranslat\w*|(?:[\p{L}]+\s+)?translations?\b|translated\b).*[:：]$`)
	// "Translation: Hola", "The Dutch translation is: Hallo"
	preamblePrefix = regexp.MustCompile(`(?i)^(?:here(?:'s| is| are)\s+)?(?:the\s+|your\s+)?(?:[\p{L}]+\s+)?(?:translation|translated text)(?:\s+from\s+[\p{L}]+\s+to\s+[\p{L}]+)?(?:\s+is)?\s*[:：]\s*`)
	delimiterLine  = regexp.MustCompile("^(?:\"\"\"|'''|```[\\w-]*|~~~)$")
)

// Sanitize cleans raw model output for a single subtitle entry:
//  1. reasoning blocks (<think>, <thinking>, <reasoning>) are removed with their markers;
//     an unclosed block runs to the end of the text, a lone closing marker drops what precedes it
//  2. quotes wrapping the whole text are stripped
//  3. translation preambles, code fences and bare language-name lines are removed
//  4. lines are trimmed and blank lines dropped
//  5. at most opts.MaxLines lines are kept
//
// The rules are applied until the text stops changing, so Sanitize is idempotent.
func Sanitize(raw string, opts SanitizeOptions) string {
	out := raw
	for {
		// every pass only removes text, so this terminates
		next := sanitizePass(out, opts)
		if next == out {
			return out
		}
		out = next
	}
}

func sanitizePass(s string, opts SanitizeOptions) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = removeReasoning(s)
	s = stripWrappingQuotes(strings.TrimSpace(s))

	lines := removePreamble(strings.Split(s, "\n"), opts.LanguageNames)

	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}

	if opts.MaxLines > 0 && len(kept) > opts.MaxLines {
		kept = kept[:opts.MaxLines]
	}
	return strings.Join(kept, "\n")
}

func removeReasoning(s string) string {
	for _, p := range reasoningPatterns {
		s = p.paired.ReplaceAllString(s, "")
		s = p.unclosed.ReplaceAllString(s, "")
		s = p.unopened.ReplaceAllString(s, "")
	}
	return s
}

func stripWrappingQuotes(s string) string {
	if utf8.RuneCountInString(s) < 2 {
		return s
	}
	first, firstSize := utf8.DecodeRuneInString(s)
	last, lastSize := utf8.DecodeLastRuneInString(s)

	for _, pair := range quotePairs {
		if first != pair[0] || last != pair[1] {
			continue
		}
		inner := s[firstSize : len(s)-lastSize]
		if containsQuote(inner, pair) {
			return s
		}
		return inner
	}
	return s
}

// containsQuote reports whether inner holds either rune of pair. For
// single-quote pairs, apostrophes ("it's", "'t") do not count.
func containsQuote(inner string, pair [2]rune) bool {
	apostrophe := pair[1] == '\'' || pair[1] == '’'
	runes := []rune(inner)
	for i, r := range runes {
		if r != pair[0] && r != pair[1] {
			continue
		}
		if apostrophe && r == pair[1] && isApostrophe(runes, i) {
			continue
		}
		return true
	}
	return false
}

// isApostrophe reports whether runes[i] sits inside a word ("it's") or opens
// a short elision ("'t", "'s", "'em").
func isApostrophe(runes []rune, i int) bool {
	letterAt := func(j int) bool {
		return j >= 0 && j < len(runes) && unicode.IsLetter(runes[j])
	}
	if letterAt(i-1) && letterAt(i+1) {
		return true
	}
	if letterAt(i - 1) {
		return false
	}
	n := 0
	for letterAt(i + 1 + n) {
		n++
	}
	return n >= 1 && n <= 2
}

func removePreamble(lines []string, languageNames []string) []string {
	kept := make([]string, 0, len(lines))
	var nameOnly []int

	for _, line := range lines {
		bare := unwrapMarkdown(line)
		switch {
		case bare == "":
			kept = append(kept, line)
		case preambleLine.MatchString(bare):
		case delimiterLine.MatchString(bare):
		case isLanguageName(bare, languageNames):
			nameOnly = append(nameOnly, len(kept))
			kept = append(kept, line)
		default:
			if loc := preamblePrefix.FindStringIndex(bare); loc != nil && loc[1] < len(bare) {
				line = bare[loc[1]:]
			}
			kept = append(kept, line)
		}
	}

	if len(nameOnly) == 0 {
		return kept
	}

	// Language-name lines only go when something else is left.
	content := 0
	for _, line := range kept {
		if strings.TrimSpace(line) != "" {
			content++
		}
	}
	if content == len(nameOnly) {
		return kept
	}

	out := make([]string, 0, len(kept))
	drop := make(map[int]bool, len(nameOnly))
	for _, i := range nameOnly {
		drop[i] = true
	}
	for i, line := range kept {
		if !drop[i] {
			out = append(out, line)
		}
	}
	return out
}

// unwrapMarkdown trims whitespace and markdown emphasis or heading markers.
func unwrapMarkdown(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "#> ")
	for _, marker := range []string{"**", "__"} {
		if strings.HasPrefix(line, marker) {
			line = strings.TrimPrefix(line, marker)
			if i := strings.Index(line, marker); i >= 0 {
				line = line[:i] + line[i+len(marker):]
			}
		}
	}
	return strings.TrimSpace(line)
}

func isLanguageName(line string, names []string) bool {
	line = strings.TrimSpace(strings.TrimRight(line, ":："))
	for _, name := range names {
		if name != "" && strings.EqualFold(line, name) {
			return true
		}
	}
	return false
}
