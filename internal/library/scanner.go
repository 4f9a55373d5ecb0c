package library

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/MimeLyc/batch-sub-translator/pkg/file"
)

var defaultSubtitleExts = []string{".srt"}

type scannerOptions struct {
	subtitleExts []string
}

type Option func(*scannerOptions)

// WithSubtitleExtensions overrides which file extensions count as subtitles.
func WithSubtitleExtensions(exts ...string) Option {
	return func(o *scannerOptions) {
		if len(exts) > 0 {
			o.subtitleExts = exts
		}
	}
}

// Scanner discovers movie folders under a library root and the subtitle
// files inside them. It never recurses deeper than one level.
type Scanner struct {
	root         string
	subtitleExts []string
}

func NewScanner(root string, opts ...Option) *Scanner {
	options := scannerOptions{
		subtitleExts: defaultSubtitleExts,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Scanner{
		root:         root,
		subtitleExts: options.subtitleExts,
	}
}

func (s *Scanner) Root() string {
	return s.root
}

// Folders returns the immediate, non-hidden subdirectories of the root,
// sorted by name.
func (s *Scanner) Folders(ctx context.Context) ([]Folder, error) {
	dirs, err := file.ListDirs(s.root)
	if err != nil {
		return nil, fmt.Errorf("list movie folders: %w", err)
	}

	folders := make([]Folder, 0, len(dirs))
	for _, dir := range dirs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		folders = append(folders, Folder{Name: filepath.Base(dir), Path: dir})
	}
	return folders, nil
}

// Subtitles lists the subtitle files directly inside folder, sorted by name.
// Extensions match case-insensitively.
func (s *Scanner) Subtitles(folder string) ([]string, error) {
	files, err := file.ListFiles(folder, s.subtitleExts...)
	if err != nil {
		return nil, fmt.Errorf("list subtitles: %w", err)
	}
	return files, nil
}
