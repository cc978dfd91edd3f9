// Package ignore implements gitignore-style pattern matching for paths
// relative to a snapshot root. Pattern lines are compiled to anchored
// regular expressions; the last matching pattern wins, so a later negation
// ("!pattern") can re-include a path excluded by an earlier line.
package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Pattern encapsulates a compiled regular expression pattern,
// a negation flag, and metadata about the pattern's origin.
type Pattern struct {
	Regex  *regexp.Regexp // Compiled regular expression for the pattern.
	Negate bool           // Indicates if the pattern is a negation (starts with '!').
	LineNo int            // Line number in the source (1-based).
	Line   string         // Original pattern line.
}

// Matcher holds a collection of compiled ignore patterns.
type Matcher struct {
	patterns []*Pattern
	logger   *zap.Logger
}

// New initializes an empty Matcher with the provided logger.
func New(logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{logger: logger}
}

// Len reports the number of compiled patterns.
func (m *Matcher) Len() int {
	return len(m.patterns)
}

// AddLines compiles a set of ignore pattern lines into the matcher.
// Empty lines and comments are skipped.
func (m *Matcher) AddLines(lines ...string) {
	for _, line := range lines {
		re, negate := parsePatternLine(line, m.logger)
		if re == nil {
			continue
		}
		p := &Pattern{
			Regex:  re,
			Negate: negate,
			LineNo: len(m.patterns) + 1,
			Line:   line,
		}
		m.patterns = append(m.patterns, p)
	}
}

// AddFile reads an ignore file and compiles its lines into the matcher.
// A missing file is not an error; the matcher is left unchanged.
func (m *Matcher) AddFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Debug("Ignore file does not exist and will be skipped", zap.String("path", path))
			return nil
		}
		return fmt.Errorf("failed to read ignore file %s: %w", path, err)
	}

	before := len(m.patterns)
	m.AddLines(strings.Split(string(content), "\n")...)
	m.logger.Debug("Compiled ignore patterns from file",
		zap.String("path", path),
		zap.Int("patternCount", len(m.patterns)-before))
	return nil
}

// MatchesPath reports whether the given root-relative path matches the
// ignore patterns. The path must use forward slashes; directory paths must
// carry a trailing slash so that directory-only patterns ("build/") apply.
func (m *Matcher) MatchesPath(path string) bool {
	matched, _ := m.MatchesPathWithPattern(path)
	return matched
}

// MatchesPathWithPattern is MatchesPath plus the pattern that decided the
// outcome, for diagnostics. Patterns are evaluated in order; the last match
// wins, honoring negations.
func (m *Matcher) MatchesPathWithPattern(path string) (bool, *Pattern) {
	matched := false
	var decided *Pattern

	for _, p := range m.patterns {
		if p.Regex.MatchString(path) {
			matched = !p.Negate
			decided = p
		}
	}
	return matched, decided
}

// Load builds a matcher from the optional global ignore file and the
// ".ctxforgeignore" file in the snapshot root, in that order so that local
// patterns take precedence over global ones.
func Load(root, globalPath string, logger *zap.Logger) (*Matcher, error) {
	m := New(logger)

	if globalPath != "" {
		abs, err := filepath.Abs(globalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve global ignore file %s: %w", globalPath, err)
		}
		if err := m.AddFile(abs); err != nil {
			return nil, err
		}
	}

	if err := m.AddFile(filepath.Join(root, ".ctxforgeignore")); err != nil {
		return nil, err
	}

	logger.Debug("Finished loading ignore files", zap.Int("totalPatterns", m.Len()))
	return m, nil
}

// parsePatternLine processes a single pattern line and returns a compiled
// regular expression plus a negation flag. Returns nil for comments and
// empty lines, or when the pattern does not compile.
func parsePatternLine(line string, logger *zap.Logger) (*regexp.Regexp, bool) {
	trimmed := strings.TrimSpace(line)

	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil, false
	}

	negate := false
	if strings.HasPrefix(trimmed, "!") {
		negate = true
		trimmed = strings.TrimPrefix(trimmed, "!")
	}

	escaped := escapeSpecialChars(trimmed)
	escaped = handleDoubleStarPatterns(escaped)
	pattern := wildcardToRegex(escaped)
	pattern = anchorPattern(pattern, trimmed)

	re, err := regexp.Compile(pattern)
	if err != nil {
		logger.Warn("Invalid ignore pattern",
			zap.String("pattern", trimmed),
			zap.Error(err))
		return nil, false
	}

	return re, negate
}
