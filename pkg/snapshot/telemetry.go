package snapshot

import (
	"container/heap"
	"sort"
)

// TopK is the number of largest files tracked.
const TopK = 5

// ExtStat aggregates included files sharing one extension.
type ExtStat struct {
	Ext   string
	Count int
	Bytes int64
}

// TopEntry is one of the K largest included files.
type TopEntry struct {
	Path  string
	Bytes int64
	seq   int
}

// Telemetry accumulates per-extension composition and a bounded top-K
// largest-file ranking from metadata only; it never sees content. The sum
// of per-extension bytes always equals the budget's cumulative included
// bytes, since both are fed the same size once per included file.
type Telemetry struct {
	byExt map[string]*ExtStat
	top   topHeap
	seq   int
}

// NewTelemetry creates an empty aggregator.
func NewTelemetry() *Telemetry {
	return &Telemetry{byExt: make(map[string]*ExtStat)}
}

// Record accounts one included file. O(1) amortized for the extension map,
// O(log K) for the ranking. On equal sizes the earliest-discovered file
// keeps its place: only a strictly larger file replaces the current minimum.
func (t *Telemetry) Record(path, ext string, size int64) {
	stat, ok := t.byExt[ext]
	if !ok {
		stat = &ExtStat{Ext: ext}
		t.byExt[ext] = stat
	}
	stat.Count++
	stat.Bytes += size

	t.seq++
	entry := TopEntry{Path: path, Bytes: size, seq: t.seq}
	if t.top.Len() < TopK {
		heap.Push(&t.top, entry)
		return
	}
	if size > t.top[0].Bytes {
		t.top[0] = entry
		heap.Fix(&t.top, 0)
	}
}

// Summary is a read-only snapshot of the aggregated telemetry.
type Summary struct {
	ByExt []ExtStat  // Sorted by descending cumulative bytes.
	Top   []TopEntry // Largest files, descending size, earliest first on ties.
}

// TotalBytes sums the per-extension bytes.
func (s Summary) TotalBytes() int64 {
	var total int64
	for _, e := range s.ByExt {
		total += e.Bytes
	}
	return total
}

// Summarize produces the final snapshot. It is idempotent and mutates
// nothing; call it after all files are processed.
func (t *Telemetry) Summarize() Summary {
	byExt := make([]ExtStat, 0, len(t.byExt))
	for _, stat := range t.byExt {
		byExt = append(byExt, *stat)
	}
	sort.Slice(byExt, func(i, j int) bool {
		if byExt[i].Bytes != byExt[j].Bytes {
			return byExt[i].Bytes > byExt[j].Bytes
		}
		return byExt[i].Ext < byExt[j].Ext
	})

	top := make([]TopEntry, len(t.top))
	copy(top, t.top)
	sort.Slice(top, func(i, j int) bool {
		if top[i].Bytes != top[j].Bytes {
			return top[i].Bytes > top[j].Bytes
		}
		return top[i].seq < top[j].seq
	})

	return Summary{ByExt: byExt, Top: top}
}

// topHeap is a min-heap keyed by size; among equal sizes the later arrival
// sits at the root so it is the eviction victim, keeping the
// earliest-discovered entry on ties.
type topHeap []TopEntry

func (h topHeap) Len() int { return len(h) }

func (h topHeap) Less(i, j int) bool {
	if h[i].Bytes != h[j].Bytes {
		return h[i].Bytes < h[j].Bytes
	}
	return h[i].seq > h[j].seq
}

func (h topHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *topHeap) Push(x any) {
	*h = append(*h, x.(TopEntry))
}

func (h *topHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
