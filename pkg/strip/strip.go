// Package strip removes comments from source text using one of four
// extension-selected grammars. Each grammar is a scanning state machine that
// tracks single- and double-quoted string spans so comment delimiters inside
// string literals survive. The tracking is heuristic: it understands
// backslash escapes but not raw strings, heredocs, or other language
// specific quoting. When the scan is ambiguous (unterminated string or block
// comment), the text is kept rather than stripped.
package strip

import "strings"

// MaxStripBytes is the size guard: content larger than this is passed
// through unmodified to bound CPU cost.
const MaxStripBytes = 1 << 20

type style int

const (
	styleNone style = iota
	styleC          // //... and /*...*/
	styleHash       // #...
	styleDash       // --...
	styleXML        // <!--...-->
)

// styleByExt maps lowercased extensions (no dot) to a comment grammar.
var styleByExt = map[string]style{
	"rs": styleC, "c": styleC, "cpp": styleC, "h": styleC, "hpp": styleC,
	"js": styleC, "ts": styleC, "java": styleC, "go": styleC, "kt": styleC,
	"swift": styleC, "css": styleC, "cs": styleC, "php": styleC,

	"py": styleHash, "sh": styleHash, "rb": styleHash, "yaml": styleHash,
	"yml": styleHash, "toml": styleHash, "dockerfile": styleHash,
	"pl": styleHash, "ps1": styleHash,

	"sql": styleDash, "lua": styleDash, "hs": styleDash,

	"html": styleXML, "xml": styleXML, "vue": styleXML, "svelte": styleXML,
}

// Supported reports whether the extension maps to a comment grammar.
func Supported(ext string) bool {
	_, ok := styleByExt[strings.ToLower(ext)]
	return ok
}

// Strip removes comments from content according to the grammar selected by
// the extension. Content above MaxStripBytes or with an unmapped extension
// is returned unchanged. Bytes outside matched comment spans are never
// altered.
func Strip(content, ext string) string {
	if len(content) > MaxStripBytes {
		return content
	}
	switch styleByExt[strings.ToLower(ext)] {
	case styleC:
		return stripC(content)
	case styleHash:
		return stripLineComments(content, "#")
	case styleDash:
		return stripLineComments(content, "--")
	case styleXML:
		return stripXML(content)
	default:
		return content
	}
}

// stripC removes //-to-end-of-line and /*...*/ comments, skipping quoted
// spans. An unterminated block comment is emitted verbatim.
func stripC(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	i, n := 0, len(s)
	for i < n {
		c := s[i]
		switch {
		case c == '"' || c == '\'':
			i = copyQuoted(&b, s, i)
		case c == '/' && i+1 < n && s[i+1] == '/':
			i = skipToLineEnd(s, i)
		case c == '/' && i+1 < n && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				// Unterminated: ambiguous, keep the rest as-is.
				b.WriteString(s[i:])
				return b.String()
			}
			i += 2 + end + 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// stripLineComments removes marker-to-end-of-line comments, skipping quoted
// spans.
func stripLineComments(s, marker string) string {
	var b strings.Builder
	b.Grow(len(s))

	i, n := 0, len(s)
	for i < n {
		c := s[i]
		switch {
		case c == '"' || c == '\'':
			i = copyQuoted(&b, s, i)
		case c == marker[0] && strings.HasPrefix(s[i:], marker):
			i = skipToLineEnd(s, i)
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// stripXML removes <!--...--> spans, which may cross lines. An unterminated
// comment is kept.
func stripXML(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	i := 0
	for {
		start := strings.Index(s[i:], "<!--")
		if start < 0 {
			b.WriteString(s[i:])
			return b.String()
		}
		end := strings.Index(s[i+start+4:], "-->")
		if end < 0 {
			b.WriteString(s[i:])
			return b.String()
		}
		b.WriteString(s[i : i+start])
		i += start + 4 + end + 3
	}
}

// copyQuoted copies a quoted span starting at s[i] (a quote character)
// through its closing quote, honoring backslash escapes. If the span never
// closes, the rest of the input is copied verbatim: an unterminated string
// must not let later text be treated as comments.
func copyQuoted(b *strings.Builder, s string, i int) int {
	quote := s[i]
	b.WriteByte(quote)
	i++
	n := len(s)
	for i < n {
		c := s[i]
		if c == '\\' && i+1 < n {
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			i += 2
			continue
		}
		b.WriteByte(c)
		i++
		if c == quote {
			return i
		}
	}
	return i
}

// skipToLineEnd advances past a line comment, leaving the newline (if any)
// for the caller so line structure is preserved.
func skipToLineEnd(s string, i int) int {
	if nl := strings.IndexByte(s[i:], '\n'); nl >= 0 {
		return i + nl
	}
	return len(s)
}
