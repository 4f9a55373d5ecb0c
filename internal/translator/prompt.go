package translator

import (
	"fmt"
	"strings"

	"github.com/MimeLyc/batch-sub-translator/internal/language"
)

// BuildPrompt builds the instruction sent to the model for one entry. The
// template is fixed so every entry of a file is translated the same way.
func BuildPrompt(source, target language.Spec, text string) string {
	lines := lineCount(text)

	var prompt strings.Builder

	prompt.WriteString("You are an expert translator specializing in subtitle files. /no_think ")
	prompt.WriteString(fmt.Sprintf("Your task is to translate the given text from %s to %s.\n\n", source.Name, target.Name))

	prompt.WriteString("**Instructions**:\n")
	prompt.WriteString("1. Provide *only* the direct translation of the text.\n")
	prompt.WriteString("2. Do *not* include any commentary, thoughts, explanations, introductions, or conversational phrases (e.g., 'Here is the translation:').\n")
	prompt.WriteString("3. Do *not* include any meta-tags, XML-like tags, or markers such as '<think>' or '</think>'.\n")
	prompt.WriteString("4. Do *not* wrap the translation in quotation marks unless they are part of the dialogue itself.\n")
	prompt.WriteString(fmt.Sprintf("5. The original text has exactly %d %s. Your translation MUST have exactly %d %s: do *not* add, remove, merge or split lines.\n",
		lines, plural(lines, "line", "lines"), lines, plural(lines, "line", "lines")))
	prompt.WriteString("6. Preserve the original meaning, nuance, and tone.\n")
	prompt.WriteString("7. Keep proper names, technical terms, and cultural references without a direct equivalent as they are.\n\n")

	prompt.WriteString(fmt.Sprintf("**Original %s text to translate**:\n", source.Name))
	prompt.WriteString("\"\"\"\n")
	prompt.WriteString(text)
	prompt.WriteString("\n\"\"\"\n\n")
	prompt.WriteString(fmt.Sprintf("**Your %s translation**:", target.Name))

	return prompt.String()
}

// lineCount counts the non-blank lines of an entry text, at least 1.
func lineCount(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return max(n, 1)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// LinePolicy decides how many lines a translated entry may have.
type LinePolicy struct {
	// Fixed caps every entry at this many lines; 0 uses the source entry's line count.
	Fixed int
}

// MaxLines returns the line cap for an entry with the given source text.
func (p LinePolicy) MaxLines(source string) int {
	if p.Fixed > 0 {
		return p.Fixed
	}
	return lineCount(source)
}
