package language

import "strings"

type entry struct {
	code2 string   // ISO 639-1
	code3 string   // ISO 639-2/T
	alt3  string   // ISO 639-2/B when it differs
	words []string // lowercase English and native names
}

var languages = []entry{
	{"en", "eng", "", []string{"english"}},
	{"es", "spa", "", []string{"spanish", "espanol", "español"}},
	{"fr", "fra", "fre", []string{"french", "francais", "français"}},
	{"de", "deu", "ger", []string{"german", "deutsch"}},
	{"it", "ita", "", []string{"italian", "italiano"}},
	{"pt", "por", "", []string{"portuguese", "portugues", "português"}},
	{"nl", "nld", "dut", []string{"dutch", "nederlands"}},
	{"ja", "jpn", "", []string{"japanese"}},
	{"ko", "kor", "", []string{"korean"}},
	{"zh", "zho", "chi", []string{"chinese"}},
	{"ru", "rus", "", []string{"russian"}},
	{"ar", "ara", "", []string{"arabic"}},
	{"hi", "hin", "", []string{"hindi"}},
	{"pl", "pol", "", []string{"polish", "polski"}},
	{"sv", "swe", "", []string{"swedish", "svenska"}},
	{"da", "dan", "", []string{"danish", "dansk"}},
	{"no", "nor", "", []string{"norwegian", "norsk"}},
	{"nb", "nob", "", []string{"bokmal", "bokmål"}},
	{"fi", "fin", "", []string{"finnish", "suomi"}},
	{"tr", "tur", "", []string{"turkish"}},
	{"el", "ell", "gre", []string{"greek"}},
	{"he", "heb", "", []string{"hebrew"}},
	{"cs", "ces", "cze", []string{"czech"}},
	{"hu", "hun", "", []string{"hungarian", "magyar"}},
	{"ro", "ron", "rum", []string{"romanian"}},
	{"uk", "ukr", "", []string{"ukrainian"}},
	{"vi", "vie", "", []string{"vietnamese"}},
	{"th", "tha", "", []string{"thai"}},
	{"id", "ind", "", []string{"indonesian"}},
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages)*2)
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(token string) *entry {
	token = strings.ToLower(strings.TrimSpace(token))
	if e, ok := byCode2[token]; ok {
		return e
	}
	if e, ok := byCode3[token]; ok {
		return e
	}
	if e, ok := byWord[token]; ok {
		return e
	}
	return nil
}
