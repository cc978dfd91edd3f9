package snapshot

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// Meta carries the run metadata rendered into the artifact header.
type Meta struct {
	Root                   string    // Display root path (already cleaned).
	Timestamp              time.Time // Run timestamp.
	Tree                   string    // Optional rendered directory tree.
	DiscoveryErrors        []string  // Access errors reported by the walker.
	SkippedAfterExhaustion int       // Paths never processed once the budget latched.
}

// Assemble writes the final artifact: header, optional directory tree,
// table of contents, the spooled body streamed chunkwise, the omitted-file
// table, and the telemetry tables. The spooled body is forwarded directly
// to w; it is never materialized wholesale in memory.
func (p *Pipeline) Assemble(w io.Writer, meta Meta) error {
	bw := bufio.NewWriterSize(w, 64*1024)

	var included, omitted []*FileRecord
	var totalLines int
	for _, rec := range p.records {
		if rec.Included {
			included = append(included, rec)
			totalLines += rec.Lines
		} else {
			omitted = append(omitted, rec)
		}
	}

	fmt.Fprintf(bw, "# Project Snapshot\n\n")
	fmt.Fprintf(bw, "**Base path:** `%s`\n", meta.Root)
	fmt.Fprintf(bw, "**Timestamp:** %s\n", meta.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(bw, "**Files:** %d included, %d omitted\n\n", len(included), len(omitted))

	if meta.Tree != "" {
		fmt.Fprintf(bw, "## Directory Tree\n\n```\n%s", meta.Tree)
		if !strings.HasSuffix(meta.Tree, "\n") {
			bw.WriteByte('\n')
		}
		fmt.Fprintf(bw, "```\n\n")
	}

	fmt.Fprintf(bw, "## Table of Contents\n\n")
	for _, rec := range included {
		fmt.Fprintf(bw, "- %s\n", rec.Path)
	}
	bw.WriteByte('\n')

	if _, err := p.spooler.Drain(bw); err != nil {
		return fmt.Errorf("failed to assemble document body: %w", err)
	}

	if len(meta.DiscoveryErrors) > 0 {
		fmt.Fprintf(bw, "## Discovery Errors\n\n")
		for _, e := range meta.DiscoveryErrors {
			fmt.Fprintf(bw, "- %s\n", e)
		}
		bw.WriteByte('\n')
	}

	fmt.Fprintf(bw, "## Omitted\n\n")
	if len(omitted) == 0 {
		fmt.Fprintf(bw, "_None._\n\n")
	} else {
		fmt.Fprintf(bw, "| Path | Size (MB) | Reason | Detail |\n")
		fmt.Fprintf(bw, "|---|---:|---|---|\n")
		for _, rec := range omitted {
			detail := strings.ReplaceAll(rec.Detail, "|", `\|`)
			fmt.Fprintf(bw, "| %s | %.2f | %s | %s |\n", rec.Path, mb(rec.Size), rec.Reason, detail)
		}
		bw.WriteByte('\n')
	}

	summary := p.tele.Summarize()

	fmt.Fprintf(bw, "---\n\n## Summary\n\n")
	fmt.Fprintf(bw, "- **Files included:** %d\n", len(included))
	fmt.Fprintf(bw, "- **Files omitted:** %d\n", len(omitted))
	fmt.Fprintf(bw, "- **Total size included:** %.2f MB\n", mb(p.budget.Used()))
	fmt.Fprintf(bw, "- **Total lines:** %d\n", totalLines)
	if meta.SkippedAfterExhaustion > 0 {
		fmt.Fprintf(bw, "- **Not processed (budget exhausted):** %d\n", meta.SkippedAfterExhaustion)
	}

	fmt.Fprintf(bw, "\n### Composition\n\n")
	fmt.Fprintf(bw, "| Extension | Files | Size (MB) |\n")
	fmt.Fprintf(bw, "|---|---:|---:|\n")
	for _, stat := range summary.ByExt {
		fmt.Fprintf(bw, "| %s | %d | %.2f |\n", displayExt(stat.Ext), stat.Count, mb(stat.Bytes))
	}

	if len(summary.Top) > 0 {
		fmt.Fprintf(bw, "\n### Largest Files\n\n")
		fmt.Fprintf(bw, "| Size (MB) | Path |\n")
		fmt.Fprintf(bw, "|---:|---|\n")
		for _, entry := range summary.Top {
			fmt.Fprintf(bw, "| %.2f | %s |\n", mb(entry.Bytes), entry.Path)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush document output: %w", err)
	}
	return nil
}

// displayExt renders an extension for tables.
func displayExt(ext string) string {
	if ext == "" {
		return "(none)"
	}
	return "." + ext
}
