package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func buildFixtureTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "main.go", []byte("package main\n\nfunc main() {}\n"))
	writeFile(t, dir, "notes.md", []byte("# Notes\n"))
	writeFile(t, dir, "blob.bin", []byte{0x00, 0xFF, 0x00})
	return dir
}

func runFixture(t *testing.T, dir string, ts time.Time) string {
	t.Helper()
	p := NewPipeline(dir, defaultOpts(), zap.NewNop())
	defer p.Spooler().Close()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.NoError(t, p.Process(filepath.Join(dir, e.Name())))
	}

	var out bytes.Buffer
	require.NoError(t, p.Assemble(&out, Meta{Root: CleanPath(dir), Timestamp: ts}))
	return out.String()
}

func TestAssembleSectionOrder(t *testing.T) {
	dir := buildFixtureTree(t)
	doc := runFixture(t, dir, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))

	sections := []string{
		"# Project Snapshot",
		"## Table of Contents",
		"## main.go",
		"## Omitted",
		"## Summary",
		"### Composition",
		"### Largest Files",
	}
	last := -1
	for _, section := range sections {
		idx := strings.Index(doc, section)
		require.GreaterOrEqual(t, idx, 0, "missing section %q", section)
		assert.Greater(t, idx, last, "section %q out of order", section)
		last = idx
	}
}

func TestAssembleContent(t *testing.T) {
	dir := buildFixtureTree(t)
	doc := runFixture(t, dir, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))

	assert.Contains(t, doc, "**Timestamp:** 2026-08-30 12:00:00")
	assert.Contains(t, doc, "**Files:** 2 included, 1 omitted")
	assert.Contains(t, doc, "- main.go\n")
	assert.Contains(t, doc, "- notes.md\n")
	assert.Contains(t, doc, "```go\npackage main\n")
	assert.Contains(t, doc, "| blob.bin | 0.00 | binary |")
	assert.Contains(t, doc, "| .go |")
	assert.Contains(t, doc, "| .md |")
	assert.NotContains(t, doc, "- blob.bin\n", "omitted files stay out of the TOC")
}

func TestAssembleIsDeterministic(t *testing.T) {
	dir := buildFixtureTree(t)
	ts := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	first := runFixture(t, dir, ts)
	second := runFixture(t, dir, ts)
	assert.Equal(t, first, second, "same tree and config must yield a byte-identical artifact")
}

func TestAssembleRendersTreeAndErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", []byte("hi\n"))

	p := NewPipeline(dir, defaultOpts(), zap.NewNop())
	defer p.Spooler().Close()
	require.NoError(t, p.Process(filepath.Join(dir, "a.txt")))

	var out bytes.Buffer
	meta := Meta{
		Root:            CleanPath(dir),
		Timestamp:       time.Unix(0, 0).UTC(),
		Tree:            "root/\n└── a.txt\n",
		DiscoveryErrors: []string{"permission denied: secret/"},
	}
	require.NoError(t, p.Assemble(&out, meta))

	doc := out.String()
	assert.Contains(t, doc, "## Directory Tree")
	assert.Contains(t, doc, "└── a.txt")
	assert.Contains(t, doc, "## Discovery Errors")
	assert.Contains(t, doc, "- permission denied: secret/")
}

func TestAssembleNoOmissions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", []byte("hi\n"))

	p := NewPipeline(dir, defaultOpts(), zap.NewNop())
	defer p.Spooler().Close()
	require.NoError(t, p.Process(filepath.Join(dir, "a.txt")))

	var out bytes.Buffer
	require.NoError(t, p.Assemble(&out, Meta{Root: "r", Timestamp: time.Unix(0, 0).UTC()}))
	assert.Contains(t, out.String(), "_None._")
}

func TestFenceFor(t *testing.T) {
	assert.Equal(t, "```", fenceFor("plain text"))
	assert.Equal(t, "```", fenceFor("inline `code` span"))
	assert.Equal(t, "````", fenceFor("has ``` fence inside"))
	assert.Equal(t, "`````", fenceFor("has ```` long fence"))
	assert.Equal(t, "```", fenceFor(""))
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, countLines(""))
	assert.Equal(t, 1, countLines("a"))
	assert.Equal(t, 1, countLines("a\n"))
	assert.Equal(t, 2, countLines("a\nb"))
	assert.Equal(t, 2, countLines("a\nb\n"))
}
