package library

import "fmt"

// Tier orders source candidates, best first.
type Tier int

const (
	// TierExact: the file name's language token is the configured source code ("sub_en.srt").
	TierExact Tier = iota + 1
	// TierDeclared: the token is another name of the source language ("Movie.eng.srt", "movie.English.srt").
	TierDeclared
	// TierUndeclared: the file name has no language token ("Movie.srt").
	TierUndeclared
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierDeclared:
		return "declared"
	case TierUndeclared:
		return "undeclared"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Candidate is a subtitle file that may serve as translation source.
type Candidate struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Token string `json:"token,omitempty"`
	Tier  Tier   `json:"tier"`
}

// Folder is one movie folder under the library root.
type Folder struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// SubtitleName is a subtitle file name split around its language token.
type SubtitleName struct {
	Stem  string // name without extension
	Ext   string
	Token string // language token as written, "" if none

	start, end int // byte span of Token within Stem
}
