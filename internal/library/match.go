package library

import (
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/MimeLyc/batch-sub-translator/internal/language"
)

// Tokens that may follow the language token ("Movie.en.forced.srt").
var qualifierTokens = []string{"forced", "sdh", "cc", "default", "full", "sub", "subs"}

// Region or script subtags written in their canonical case: BR, Hant, 419.
var subtagPattern = regexp.MustCompile(`^(?:[A-Z]{2}|[A-Z][a-z]{3}|\d{3})$`)

type span struct {
	text       string
	start, end int
	sepBefore  byte
}

func isSeparator(r rune) bool {
	return r == '.' || r == '_' || r == '-' || r == ' '
}

func splitTokens(stem string) []span {
	var spans []span
	start := -1
	for i, r := range stem {
		if isSeparator(r) {
			if start >= 0 {
				spans = append(spans, span{text: stem[start:i], start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, span{text: stem[start:], start: start, end: len(stem)})
	}
	for i := range spans {
		if spans[i].start > 0 {
			spans[i].sepBefore = stem[spans[i].start-1]
		}
	}
	return spans
}

// ParseName locates the language token of a subtitle file name: the last
// token recognised as a language, ignoring trailing qualifiers such as
// "forced" or "sdh". Region-qualified codes ("pt-BR") count as one token.
func ParseName(name string) SubtitleName {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	parsed := SubtitleName{Stem: stem, Ext: ext}

	tokens := splitTokens(stem)
	// The first token is the title, never a language.
	for i := len(tokens) - 1; i >= 1; i-- {
		tok := tokens[i]
		if slices.Contains(qualifierTokens, strings.ToLower(tok.text)) {
			continue
		}

		if i >= 2 && (tok.sepBefore == '-' || tok.sepBefore == '_') && subtagPattern.MatchString(tok.text) {
			prev := tokens[i-1]
			compound := stem[prev.start:tok.end]
			if _, ok := language.Parse(compound); ok {
				parsed.Token, parsed.start, parsed.end = compound, prev.start, tok.end
				return parsed
			}
		}

		if _, ok := language.Parse(tok.text); ok {
			parsed.Token, parsed.start, parsed.end = tok.text, tok.start, tok.end
			return parsed
		}
		// Stop at the first token that is neither a qualifier nor a language.
		break
	}
	return parsed
}

// WithToken returns the file name with its language token replaced by code,
// or with "_<code>" appended to the stem when it has no token.
func (n SubtitleName) WithToken(code string) string {
	if n.Token == "" {
		return n.Stem + "_" + code + n.Ext
	}
	return n.Stem[:n.start] + code + n.Stem[n.end:] + n.Ext
}

// DeclaresLanguage reports whether the file name carries a token for spec.
func DeclaresLanguage(name string, spec language.Spec) bool {
	token := ParseName(name).Token
	return token != "" && spec.Matches(token)
}

// RankCandidates picks the files usable as translation source, best first.
// Files declaring any language other than source (the target included) are
// dropped. Ties within a tier are broken by file name.
func RankCandidates(files []string, source, target language.Spec) []Candidate {
	candidates := make([]Candidate, 0, len(files))
	for _, path := range files {
		name := ParseName(path)
		candidate := Candidate{Path: path, Name: filepath.Base(path), Token: name.Token}

		switch {
		case name.Token == "":
			candidate.Tier = TierUndeclared
		case source.IsCode(name.Token):
			candidate.Tier = TierExact
		case target.IsCode(name.Token):
			continue
		case source.Matches(name.Token):
			candidate.Tier = TierDeclared
		default:
			continue
		}
		candidates = append(candidates, candidate)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Tier != candidates[j].Tier {
			return candidates[i].Tier < candidates[j].Tier
		}
		return candidates[i].Name < candidates[j].Name
	})
	return candidates
}

// TargetPath computes where the translation of source is written: the
// source language token is replaced with the target code, or the target code
// is appended before the extension.
func TargetPath(sourcePath string, target language.Spec) string {
	name := ParseName(sourcePath)
	return filepath.Join(filepath.Dir(sourcePath), name.WithToken(target.Code))
}
