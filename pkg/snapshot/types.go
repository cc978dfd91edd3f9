// Package snapshot implements the per-file processing pipeline and the
// final document assembly: budget enforcement, binary and encoding checks,
// optional comment stripping, spooling of accepted content, telemetry, and
// the four-section output artifact.
package snapshot

import (
	"path/filepath"
	"strings"

	"ctxforge/pkg/spool"
)

// ExcludeReason is the single reason code attached to every excluded file.
// Every omitted file is attributable to exactly one of these.
type ExcludeReason string

const (
	ReasonOversize        ExcludeReason = "oversize"
	ReasonBinary          ExcludeReason = "binary"
	ReasonDecodeFailure   ExcludeReason = "decode-failure"
	ReasonBudgetExhausted ExcludeReason = "budget-exhausted"
	ReasonReadError       ExcludeReason = "read-error"
)

// FileRecord is the immutable outcome of processing one candidate path.
// Included records locate their spooled content through Span; raw content
// is never retained here.
type FileRecord struct {
	Path     string        // Root-relative path, forward slashes.
	Size     int64         // Byte size as read (or stat size for excluded files).
	Ext      string        // Lowercased extension without dot; may be empty.
	Included bool          // Whether content was admitted and spooled.
	Reason   ExcludeReason // Set only when excluded.
	Detail   string        // Human-readable exclusion detail.
	Span     spool.Handle  // Byte range of the formatted block in the spooler.
	Lines    int           // Line count of the included content.
}

// extOf returns the lowercased extension of a path without the leading dot.
func extOf(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// CleanPath strips the Windows extended-length prefix and normalizes path
// separators to forward slashes for display.
func CleanPath(p string) string {
	p = strings.TrimPrefix(p, `\\?\`)
	return strings.ReplaceAll(p, `\`, "/")
}

// countLines counts lines the way text editors do: a trailing fragment
// without a newline still counts as a line.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

// fenceFor sizes a backtick fence so it cannot collide with backtick runs
// inside the content.
func fenceFor(content string) string {
	maxRun, run := 0, 0
	for _, r := range content {
		if r == '`' {
			run++
			if run > maxRun {
				maxRun = run
			}
		} else {
			run = 0
		}
	}
	if maxRun < 3 {
		return "```"
	}
	return strings.Repeat("`", maxRun+1)
}
