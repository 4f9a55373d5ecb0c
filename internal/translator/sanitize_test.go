package translator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	names := []string{"English", "Dutch"}
	tests := []struct {
		name     string
		raw      string
		maxLines int
		want     string
	}{
		{"think block", "<think>x</think>Hola", 0, "Hola"},
		{"multiline think block", "<think>\nThe user wants Dutch.\nOkay.\n</think>\n\nHallo daar", 0, "Hallo daar"},
		{"thinking and reasoning", "<Thinking>hmm</Thinking><reasoning a=\"1\">why</reasoning>Bonjour", 0, "Bonjour"},
		{"unclosed think drops rest", "Hallo<think>and then some reasoning", 0, "Hallo"},
		{"lone closing marker", "reasoning leaked\n</think>\nHallo", 0, "Hallo"},
		{"double quotes", `"Bonjour"`, 0, "Bonjour"},
		{"single quotes", `'Bonjour'`, 0, "Bonjour"},
		{"curly quotes", "“Bonjour”", 0, "Bonjour"},
		{"guillemets", "«Bonjour»", 0, "Bonjour"},
		{"inner quotes kept", `"Run," he said, "now"`, 0, `"Run," he said, "now"`},
		{"unbalanced quote kept", `"Bonjour`, 0, `"Bonjour`},
		{"preamble line", "Here is the translation:\nHallo", 0, "Hallo"},
		{"prompt echo", "**Your Dutch translation**:\nHallo", 0, "Hallo"},
		{"inline prefix", "Translation: Hola", 0, "Hola"},
		{"inline prefix with language", "The Dutch translation is: Hallo", 0, "Hallo"},
		{"prefix then quotes", `Translated text: "Hallo"`, 0, "Hallo"},
		{"delimiters", "\"\"\"\nHallo\n\"\"\"", 0, "Hallo"},
		{"code fence", "```text\nHallo\n```", 0, "Hallo"},
		{"language name line", "Dutch:\nHallo", 0, "Hallo"},
		{"language name alone kept", "Dutch", 0, "Dutch"},
		{"trim and blank lines", "  Hallo  \n\n\n   daar \n", 0, "Hallo\ndaar"},
		{"crlf", "Hallo\r\ndaar\r\n", 0, "Hallo\ndaar"},
		{"cap lines", "een\ntwee\ndrie", 2, "een\ntwee"},
		{"only think", "<think>nothing useful</think>", 0, ""},
		{"whitespace", " \n\t ", 0, ""},
		{"colon line without translat kept", "Listen to me:\nnow", 0, "Listen to me:\nnow"},
		{"apostrophe inside single quotes", `'It's fine'`, 0, "It's fine"},
		{"elision inside single quotes", `'Is 't waar?'`, 0, "Is 't waar?"},
		{"curly apostrophe", "‘It’s fine’", 0, "It’s fine"},
		{"nested single quotes kept", `'He said 'no' twice'`, 0, `'He said 'no' twice'`},
		{"dialogue mentioning translation kept", "He translated the letter:\nread it", 0, "He translated the letter:\nread it"},
		{"language translation line", "Dutch translation:\nHallo", 0, "Hallo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Sanitize(tt.raw, SanitizeOptions{MaxLines: tt.maxLines, LanguageNames: names})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitize_NoTextFromReasoningBlock(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"<think>secret</think>Hallo",
		"Hallo <think>secret</think> daar",
		"<THINK>secret</THINK>\n\"Hallo\"",
		"<thinking>\nsecret\n</thinking>Translation: Hallo",
		"Hallo\n<reasoning>secret",
	}
	for _, raw := range inputs {
		got := Sanitize(raw, SanitizeOptions{})
		assert.NotContains(t, got, "secret", raw)
		assert.Contains(t, got, "Hallo", raw)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"<think>x</think>Hola",
		`"'Bonjour'"`,
		"Translation: \"Translation: Hallo\"",
		"Here is the translation:\n\"\"\"\n“Hallo”\n\"\"\"",
		"**Dutch**\nTranslated text:\n  een \n\n twee \n drie",
		"'''\n</think>\n«Hallo»",
		"",
		"plain",
		strings.Repeat("\"", 7),
	}
	for _, maxLines := range []int{0, 1, 2} {
		opts := SanitizeOptions{MaxLines: maxLines, LanguageNames: []string{"English", "Dutch"}}
		for _, raw := range inputs {
			once := Sanitize(raw, opts)
			assert.Equal(t, once, Sanitize(once, opts), "input %q max %d", raw, maxLines)
		}
	}
}

func TestSanitize_NestedWrappersConverge(t *testing.T) {
	t.Parallel()

	got := Sanitize(`"'Bonjour'"`, SanitizeOptions{})
	assert.Equal(t, "Bonjour", got)
}
