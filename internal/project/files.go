package project

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher selects operation logs by slash-separated paths relative to a root.
type Matcher struct {
	Include []string
	Exclude []string
}

// NewMatcher validates the patterns; an empty include list means the defaults.
func NewMatcher(include, exclude []string) (*Matcher, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}
	for _, p := range append(append([]string(nil), include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob %q", p)
		}
	}
	return &Matcher{Include: include, Exclude: exclude}, nil
}

// Match reports whether rel (slash-separated) is selected.
func (m *Matcher) Match(rel string) bool {
	for _, p := range m.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return false
		}
	}
	for _, p := range m.Include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// skipDir excludes hidden directories and ones matched by an exclude pattern.
func (m *Matcher) skipDir(rel string) bool {
	if rel == "." {
		return false
	}
	if base := filepath.Base(rel); len(base) > 1 && base[0] == '.' {
		return true
	}
	for _, p := range m.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// ListFiles returns the selected files under root, sorted, as paths joined
// with root.
func ListFiles(root string, m *Matcher) ([]string, error) {
	if m == nil {
		var err error
		if m, err = NewMatcher(nil, nil); err != nil {
			return nil, err
		}
	}
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if m.skipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if m.Match(rel) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}
	slices.Sort(out)
	return out, nil
}
