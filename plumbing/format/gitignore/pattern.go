// Package gitignore implements the pattern matcher consumed by staging and
// status (§4.4): blank/comment lines ignored, "!" negates, a trailing "/"
// restricts to directories, a leading "/" anchors to the root, "**" matches
// any number of segments, "*"/"?" match within a segment, and the last
// matching pattern wins.
package gitignore

import (
	"path"
	"strings"
)

// Pattern is one parsed, non-blank, non-comment line of a gitignore file.
type Pattern struct {
	raw      string
	negate   bool
	dirOnly  bool
	anchored bool
	segments []string
}

// Parse compiles a single gitignore line. Returns (nil, false) for blank or
// comment lines, which contribute no pattern.
func Parse(line string) (*Pattern, bool) {
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, false
	}

	p := &Pattern{raw: line}
	if strings.HasPrefix(line, "!") {
		p.negate = true
		line = line[1:]
	}
	// a literal "\!" or "\#" escapes the special meaning; unescape it now
	// that the leading-character checks are done.
	line = strings.TrimPrefix(line, `\`)

	if strings.HasSuffix(line, "/") && !strings.HasSuffix(line, `\/`) {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if line == "" {
		return nil, false
	}

	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	if strings.Contains(line, "/") {
		p.anchored = true
	}

	p.segments = strings.Split(line, "/")
	return p, true
}

// Match reports whether path (forward-slash, relative to the matcher's
// root) matches the pattern. isDir tells whether the candidate is a
// directory, needed for the trailing-slash restriction.
func (p *Pattern) Match(name string, isDir bool) bool {
	if p.dirOnly && !isDir {
		return false
	}

	candidate := strings.Split(name, "/")

	if p.anchored {
		return matchSegments(p.segments, candidate)
	}

	// unanchored: the pattern may match at any depth, so try matching it
	// against every suffix of the path's segments.
	for i := range candidate {
		if matchSegments(p.segments, candidate[i:]) {
			return true
		}
	}
	return false
}

// matchSegments matches a pattern's path segments (which may contain "**")
// against a candidate's path segments.
func matchSegments(pattern, candidate []string) bool {
	if len(pattern) == 0 {
		return len(candidate) == 0
	}
	if pattern[0] == "**" {
		if len(pattern) == 1 {
			// a trailing "**" matches everything inside, not the parent itself
			return len(candidate) > 0
		}
		for i := 0; i <= len(candidate); i++ {
			if matchSegments(pattern[1:], candidate[i:]) {
				return true
			}
		}
		return false
	}
	if len(candidate) == 0 {
		return false
	}
	ok, err := path.Match(pattern[0], candidate[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], candidate[1:])
}

// Negate reports whether this pattern un-ignores a previously ignored path.
func (p *Pattern) Negate() bool { return p.negate }

// Matcher evaluates an ordered set of patterns, last-match-wins, always
// excluding the ".git" directory itself regardless of user patterns.
type Matcher struct {
	patterns []*Pattern
}

// NewMatcher compiles every non-blank line of lines, in order, and
// prepends the implicit ".git" exclusion.
func NewMatcher(lines []string) *Matcher {
	m := &Matcher{}
	gitDir, _ := Parse(".git/")
	m.patterns = append(m.patterns, gitDir)
	for _, l := range lines {
		if p, ok := Parse(strings.TrimRight(l, "\r\n")); ok {
			m.patterns = append(m.patterns, p)
		}
	}
	return m
}

// Match reports whether name (forward-slash path relative to the matcher's
// root) is ignored, applying last-match-wins across all patterns.
func (m *Matcher) Match(name string, isDir bool) bool {
	// m.patterns[0] is the implicit ".git/" pattern; no later negation
	// overrides it.
	if m.patterns[0].Match(name, isDir) {
		return true
	}
	ignored := false
	for _, p := range m.patterns {
		if p.Match(name, isDir) {
			ignored = !p.negate
		}
	}
	return ignored
}
