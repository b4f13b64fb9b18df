package mirror

import (
	"path/filepath"
	"strings"
)

type excludePattern struct {
	pattern   string
	matchPath bool // match the relative path instead of the basename
}

// ExcludeMatcher decides which files of a collection directory are left out
// of the archive. Patterns without '/' match the basename only; patterns
// with '/' match the slash-separated path relative to the collection
// directory. Blank patterns and '#' comments are ignored.
type ExcludeMatcher struct {
	patterns []excludePattern
}

func NewExcludeMatcher(raw []string) *ExcludeMatcher {
	var patterns []excludePattern
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		patterns = append(patterns, excludePattern{pattern: p, matchPath: strings.Contains(p, "/")})
	}
	return &ExcludeMatcher{patterns: patterns}
}

// Match reports whether rel is excluded. Malformed patterns never match.
func (m *ExcludeMatcher) Match(rel string) bool {
	if m == nil || rel == "" {
		return false
	}
	slashed := filepath.ToSlash(rel)
	base := filepath.Base(rel)

	for _, p := range m.patterns {
		target := base
		if p.matchPath {
			target = slashed
		}
		if ok, err := filepath.Match(p.pattern, target); err == nil && ok {
			return true
		}
	}
	return false
}
