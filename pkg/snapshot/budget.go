package snapshot

// Admission is the outcome of a budget check.
type Admission int

const (
	// Admit allows the file to proceed through the pipeline.
	Admit Admission = iota
	// RejectFile skips this file only; processing continues.
	RejectFile
	// RejectBudgetExhausted means the cumulative ceiling is reached; the
	// pipeline should stop admitting further files.
	RejectBudgetExhausted
)

// Budget enforces the per-file and cumulative size ceilings. It is the only
// mutable state shared across file processing and is owned exclusively by
// the single processing goroutine. The running total is monotonic: it is
// never decremented within a run.
type Budget struct {
	maxFile  int64
	maxTotal int64
	used     int64
}

// NewBudget creates a budget with ceilings in bytes.
func NewBudget(maxFileBytes, maxTotalBytes int64) *Budget {
	return &Budget{maxFile: maxFileBytes, maxTotal: maxTotalBytes}
}

// Admit checks a file of the given size against both ceilings. The per-file
// ceiling is evaluated first, then the cumulative ceiling, before any decode
// or strip work happens. A file of exactly the per-file ceiling is admitted.
func (b *Budget) Admit(size int64) Admission {
	if size > b.maxFile {
		return RejectFile
	}
	if b.used+size > b.maxTotal {
		return RejectBudgetExhausted
	}
	return Admit
}

// Commit records bytes actually included. Called once per admitted file.
func (b *Budget) Commit(n int64) {
	b.used += n
}

// Used reports the cumulative included bytes.
func (b *Budget) Used() int64 {
	return b.used
}

// MaxFileBytes reports the per-file ceiling.
func (b *Budget) MaxFileBytes() int64 {
	return b.maxFile
}
