package snapshot

import (
	"fmt"
	"io"
	"time"
)

// Report is the human-readable run summary written to the diagnostics
// stream, independently of the artifact. Failures writing it never affect
// artifact correctness, so nothing here returns an error.
type Report struct {
	OutputPath      string // Empty for a dry run.
	Included        int
	Omitted         int
	TotalBytes      int64
	TotalLines      int
	Summary         Summary
	DiscoveryErrors int
	Elapsed         time.Duration
	ShowTables      bool // Composition and largest-file tables.
}

// BuildReport derives the diagnostics report from the pipeline state.
func (p *Pipeline) BuildReport(outputPath string, discoveryErrors int, elapsed time.Duration, showTables bool) Report {
	r := Report{
		OutputPath:      outputPath,
		TotalBytes:      p.budget.Used(),
		Summary:         p.tele.Summarize(),
		DiscoveryErrors: discoveryErrors,
		Elapsed:         elapsed,
		ShowTables:      showTables,
	}
	for _, rec := range p.records {
		if rec.Included {
			r.Included++
			r.TotalLines += rec.Lines
		} else {
			r.Omitted++
		}
	}
	return r
}

// Write renders the report.
func (r Report) Write(w io.Writer) {
	fmt.Fprintf(w, "\n--- Snapshot Summary ---\n")
	if r.OutputPath != "" {
		fmt.Fprintf(w, "Output:   %s\n", r.OutputPath)
	} else {
		fmt.Fprintf(w, "Output:   (Dry Run - Stdout)\n")
	}
	fmt.Fprintf(w, "Stats:    %d included, %d omitted\n", r.Included, r.Omitted)
	fmt.Fprintf(w, "Content:  %.2f MB (%d lines)\n", mb(r.TotalBytes), r.TotalLines)

	if r.ShowTables && len(r.Summary.ByExt) > 0 {
		fmt.Fprintf(w, "\nComposition by Type:\n")
		for _, stat := range r.Summary.ByExt {
			fmt.Fprintf(w, "  %-10s %10.2f MB (%4d files)\n", displayExt(stat.Ext), mb(stat.Bytes), stat.Count)
		}
	}

	if r.ShowTables && len(r.Summary.Top) > 0 {
		fmt.Fprintf(w, "\nTop %d Largest Files:\n", len(r.Summary.Top))
		for _, entry := range r.Summary.Top {
			fmt.Fprintf(w, "  %10.2f MB  %s\n", mb(entry.Bytes), entry.Path)
		}
	}

	if r.DiscoveryErrors > 0 {
		fmt.Fprintf(w, "\nErrors:   %d access errors\n", r.DiscoveryErrors)
	}

	fmt.Fprintf(w, "\nTime:     %.3fs\n", r.Elapsed.Seconds())
	fmt.Fprintf(w, "------------------------\n")
}
