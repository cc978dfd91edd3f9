package snapshot

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"ctxforge/pkg/spool"
	"ctxforge/pkg/strip"
	"ctxforge/pkg/textenc"
)

// Options carries the pipeline tunables resolved from configuration.
type Options struct {
	MaxFileBytes   int64
	MaxTotalBytes  int64
	SpoolThreshold int64
	RemoveComments bool
}

// Pipeline consumes discovered paths one at a time: stat, budget check,
// binary check, decode, optional comment strip, spool append, telemetry.
// Files are fully resolved strictly in delivery order; peak memory is one
// file's transient buffer plus the spooler's threshold.
type Pipeline struct {
	root      string
	opts      Options
	budget    *Budget
	tele      *Telemetry
	spooler   *spool.Spooler
	records   []*FileRecord
	exhausted bool
	logger    *zap.Logger
}

// NewPipeline creates a pipeline rooted at the canonicalized root directory.
// Close the pipeline's spooler on every exit path.
func NewPipeline(root string, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		root:    root,
		opts:    opts,
		budget:  NewBudget(opts.MaxFileBytes, opts.MaxTotalBytes),
		tele:    NewTelemetry(),
		spooler: spool.New(opts.SpoolThreshold),
		logger:  logger,
	}
}

// Spooler exposes the content spool so callers can guarantee its release.
func (p *Pipeline) Spooler() *spool.Spooler { return p.spooler }

// Records returns every FileRecord in processing order.
func (p *Pipeline) Records() []*FileRecord { return p.records }

// Budget returns the budget state.
func (p *Pipeline) Budget() *Budget { return p.budget }

// Telemetry returns the telemetry aggregator.
func (p *Pipeline) Telemetry() *Telemetry { return p.tele }

// Exhausted reports whether the cumulative budget ceiling has been hit.
// Once true, the caller should stop feeding paths.
func (p *Pipeline) Exhausted() bool { return p.exhausted }

// Process runs one absolute path through the pipeline. Skip conditions
// (oversize, binary, undecodable, budget) are recorded as excluded
// FileRecords and never returned as errors; only spool I/O failures are
// fatal and propagate.
func (p *Pipeline) Process(absPath string) error {
	rel := p.relPath(absPath)
	ext := extOf(absPath)

	info, err := os.Stat(absPath)
	if err != nil {
		p.exclude(rel, ext, 0, ReasonReadError, fmt.Sprintf("stat failed: %v", err))
		return nil
	}
	size := info.Size()

	switch p.budget.Admit(size) {
	case RejectFile:
		p.exclude(rel, ext, size, ReasonOversize,
			fmt.Sprintf("size %.2f MB exceeds per-file limit of %.2f MB",
				mb(size), mb(p.opts.MaxFileBytes)))
		return nil
	case RejectBudgetExhausted:
		p.exhausted = true
		p.exclude(rel, ext, size, ReasonBudgetExhausted,
			fmt.Sprintf("cumulative limit of %.2f MB reached", mb(p.opts.MaxTotalBytes)))
		return nil
	}

	var content string
	if size > 0 {
		data, reason, detail := p.readAndDecode(absPath)
		if reason != "" {
			p.exclude(rel, ext, size, reason, detail)
			return nil
		}
		size = int64(len(data.raw))
		content = data.text
	}

	if p.opts.RemoveComments {
		content = strip.Strip(content, ext)
	}

	span, err := p.spooler.Append([]byte(formatBlock(rel, ext, content)))
	if err != nil {
		return fmt.Errorf("failed to spool %s: %w", rel, err)
	}

	p.budget.Commit(size)
	p.tele.Record(rel, ext, size)
	p.records = append(p.records, &FileRecord{
		Path:     rel,
		Size:     size,
		Ext:      ext,
		Included: true,
		Span:     span,
		Lines:    countLines(content),
	})
	p.logger.Debug("Included file",
		zap.String("path", rel),
		zap.Int64("sizeBytes", size))
	return nil
}

type decoded struct {
	raw  []byte
	text string
}

// readAndDecode reads the file under the per-file cap, then classifies and
// decodes it. A non-empty reason means the file must be excluded.
func (p *Pipeline) readAndDecode(absPath string) (decoded, ExcludeReason, string) {
	f, err := os.Open(absPath)
	if err != nil {
		return decoded{}, ReasonReadError, fmt.Sprintf("open failed: %v", err)
	}
	defer f.Close()

	// Read one byte past the cap so a file that grew since stat is caught.
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(io.LimitReader(f, p.opts.MaxFileBytes+1)); err != nil {
		return decoded{}, ReasonReadError, fmt.Sprintf("read failed: %v", err)
	}
	raw := buf.Bytes()

	if int64(len(raw)) > p.opts.MaxFileBytes {
		return decoded{}, ReasonOversize,
			fmt.Sprintf("content exceeded per-file limit of %.2f MB during read", mb(p.opts.MaxFileBytes))
	}

	if textenc.IsBinary(raw) {
		return decoded{}, ReasonBinary, "binary content detected"
	}

	text, _, err := textenc.Decode(raw)
	if err != nil {
		return decoded{}, ReasonDecodeFailure, err.Error()
	}
	return decoded{raw: raw, text: text}, "", ""
}

// exclude finalizes a record for a skipped file. Exactly one reason code
// per exclusion; nothing is ever silently dropped.
func (p *Pipeline) exclude(rel, ext string, size int64, reason ExcludeReason, detail string) {
	p.records = append(p.records, &FileRecord{
		Path:   rel,
		Size:   size,
		Ext:    ext,
		Reason: reason,
		Detail: detail,
	})
	p.logger.Debug("Excluded file",
		zap.String("path", rel),
		zap.String("reason", string(reason)),
		zap.String("detail", detail))
}

// relPath computes the display path relative to the root.
func (p *Pipeline) relPath(absPath string) string {
	rel, err := filepath.Rel(p.root, absPath)
	if err != nil {
		rel = absPath
	}
	return CleanPath(rel)
}

// formatBlock renders one file's contribution to the document body: a path
// heading and a fenced code block tagged with the extension. The fence is
// sized past the longest backtick run in the content.
func formatBlock(rel, ext, content string) string {
	fence := fenceFor(content)

	var b strings.Builder
	b.Grow(len(content) + len(rel) + 2*len(fence) + 16)
	b.WriteString("## ")
	b.WriteString(rel)
	b.WriteString("\n\n")
	b.WriteString(fence)
	b.WriteString(ext)
	b.WriteByte('\n')
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(fence)
	b.WriteString("\n\n")
	return b.String()
}

func mb(n int64) float64 {
	return float64(n) / 1024.0 / 1024.0
}
