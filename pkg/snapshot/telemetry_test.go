package snapshot

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelemetryComposition(t *testing.T) {
	tel := NewTelemetry()
	tel.Record("a.go", "go", 100)
	tel.Record("b.go", "go", 150)
	tel.Record("c.md", "md", 500)
	tel.Record("README", "", 20)

	s := tel.Summarize()
	require.Len(t, s.ByExt, 3)

	// Sorted by descending cumulative bytes.
	assert.Equal(t, ExtStat{Ext: "md", Count: 1, Bytes: 500}, s.ByExt[0])
	assert.Equal(t, ExtStat{Ext: "go", Count: 2, Bytes: 250}, s.ByExt[1])
	assert.Equal(t, ExtStat{Ext: "", Count: 1, Bytes: 20}, s.ByExt[2])

	assert.Equal(t, int64(770), s.TotalBytes())
}

func TestTelemetryTopK(t *testing.T) {
	tel := NewTelemetry()
	for i := 1; i <= 8; i++ {
		tel.Record(fmt.Sprintf("f%d", i), "txt", int64(i*10))
	}

	s := tel.Summarize()
	require.Len(t, s.Top, TopK)

	sizes := make([]int64, 0, len(s.Top))
	for _, e := range s.Top {
		sizes = append(sizes, e.Bytes)
	}
	assert.Equal(t, []int64{80, 70, 60, 50, 40}, sizes)
}

func TestTelemetryTopKTieBreakEarliestWins(t *testing.T) {
	tel := NewTelemetry()
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		tel.Record(name, "txt", 100)
	}
	// Same size as the current minimum: must not displace anything.
	tel.Record("f", "txt", 100)

	s := tel.Summarize()
	require.Len(t, s.Top, TopK)

	paths := make([]string, 0, len(s.Top))
	for _, e := range s.Top {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, paths)
}

func TestTelemetryTopKLargerReplacesMinimum(t *testing.T) {
	tel := NewTelemetry()
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		tel.Record(name, "txt", 100)
	}
	tel.Record("big", "txt", 500)

	s := tel.Summarize()
	require.Len(t, s.Top, TopK)
	assert.Equal(t, "big", s.Top[0].Path)

	for _, e := range s.Top {
		assert.NotEqual(t, "e", e.Path, "the newest equal-size entry is the eviction victim")
	}
}

func TestTelemetrySummarizeIsIdempotent(t *testing.T) {
	tel := NewTelemetry()
	tel.Record("a.go", "go", 10)
	tel.Record("b.md", "md", 30)

	first := tel.Summarize()
	second := tel.Summarize()
	assert.Equal(t, first, second)
}
