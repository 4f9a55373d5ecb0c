package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Spec is a language as configured for a run: a display name used in prompts
// and a short code used in file names. It is immutable once built.
type Spec struct {
	Name string
	Code string

	tag language.Tag
}

// NewSpec validates code as a BCP 47 tag. An empty name defaults to the
// English display name of the tag.
func NewSpec(name, code string) (Spec, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Spec{}, fmt.Errorf("language code is required")
	}
	if strings.ContainsAny(code, `/\ `) {
		return Spec{}, fmt.Errorf("language code %q cannot be used in a file name", code)
	}

	tag, ok := Parse(code)
	if !ok {
		return Spec{}, fmt.Errorf("unknown language code %q", code)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = display.English.Tags().Name(tag)
	}
	if name == "" {
		name = code
	}

	return Spec{Name: name, Code: code, tag: tag}, nil
}

// Tag returns the resolved BCP 47 tag.
func (s Spec) Tag() language.Tag {
	return s.tag
}

func (s Spec) String() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.Code)
}

// IsCode reports whether token is exactly this spec's code, ignoring case.
func (s Spec) IsCode(token string) bool {
	return strings.EqualFold(strings.TrimSpace(token), s.Code)
}

// Matches reports whether token names the same language as s, either by its
// code or by an alias such as the ISO 639-2 code or the English word.
func (s Spec) Matches(token string) bool {
	if s.IsCode(token) {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(token), s.Name) {
		return true
	}
	tag, ok := Parse(token)
	if !ok {
		return false
	}
	return Same(tag, s.tag)
}

// Same reports whether a and b denote the same language. Region and script
// are only compared when both tags carry them.
func Same(a, b language.Tag) bool {
	baseA, _ := a.Base()
	baseB, _ := b.Base()
	if baseA != baseB {
		return false
	}

	regionA, confA := a.Region()
	regionB, confB := b.Region()
	if confA == language.Exact && confB == language.Exact && regionA != regionB {
		return false
	}

	scriptA, confA := a.Script()
	scriptB, confB := b.Script()
	if confA == language.Exact && confB == language.Exact && scriptA != scriptB {
		return false
	}
	return true
}

// Parse resolves a language token to a tag. Three-letter codes and words are
// only accepted when they are in the known table, since many short words
// ("sub", "eng", "dir") are also valid ISO 639-3 codes.
func Parse(token string) (language.Tag, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return language.Und, false
	}

	if e := lookup(token); e != nil {
		return language.Make(e.code2), true
	}

	if len(token) == 2 {
		base, err := language.ParseBase(token)
		if err != nil {
			return language.Und, false
		}
		tag, err := language.Compose(base)
		if err != nil {
			return language.Und, false
		}
		return tag, true
	}

	// Region or script qualified codes such as pt-BR or zh_Hant.
	if i := strings.IndexAny(token, "-_"); i == 2 || i == 3 {
		if _, ok := Parse(token[:i]); !ok {
			return language.Und, false
		}
		tag, err := language.Parse(strings.ReplaceAll(token, "_", "-"))
		if err != nil {
			return language.Und, false
		}
		return tag, true
	}

	return language.Und, false
}
