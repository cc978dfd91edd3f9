package ignore

import (
	"regexp"
	"strings"
)

// Precompiled regular expressions used in pattern parsing.
var (
	doubleStarMiddlePattern   = regexp.MustCompile(`/\*\*/`)
	doubleStarTrailingPattern = regexp.MustCompile(`/\*\*$`)
	doubleStarLeadingPattern  = regexp.MustCompile(`^\*\*/`)
	singleStarPattern         = regexp.MustCompile(`\*`)
	directoryEndPattern       = regexp.MustCompile(`/$`)
	rootRelativePattern       = regexp.MustCompile(`^/`)
)

// escapeSpecialChars escapes regex special characters except for '*', '?', and '/'.
func escapeSpecialChars(pattern string) string {
	const specialChars = `.+()|^$[]{}`
	for _, char := range specialChars {
		pattern = strings.ReplaceAll(pattern, string(char), `\`+string(char))
	}
	return pattern
}

// handleDoubleStarPatterns replaces '**' patterns with appropriate regex.
func handleDoubleStarPatterns(pattern string) string {
	pattern = doubleStarMiddlePattern.ReplaceAllString(pattern, `(/|/.+/)`)
	pattern = doubleStarTrailingPattern.ReplaceAllString(pattern, `(/.*)?`)
	pattern = doubleStarLeadingPattern.ReplaceAllString(pattern, `(.*/)?`)
	return pattern
}

// wildcardToRegex converts wildcard patterns '*' and '?' to regex equivalents.
func wildcardToRegex(pattern string) string {
	pattern = singleStarPattern.ReplaceAllString(pattern, `[^/]*`)
	pattern = strings.ReplaceAll(pattern, "?", `[^/]`)
	return pattern
}

// anchorPattern anchors the regex pattern to match the entire path.
// Root-relative patterns (leading '/') match only at the top level; all
// others match at any depth. Directory patterns (trailing '/') match the
// directory and everything beneath it.
func anchorPattern(pattern, originalPattern string) string {
	if directoryEndPattern.MatchString(originalPattern) {
		pattern += `(.*)?$`
	} else {
		pattern += `(/.*)?$`
	}

	if rootRelativePattern.MatchString(originalPattern) {
		return "^" + strings.TrimPrefix(pattern, "/")
	}
	return "^(|.*/)" + pattern
}
