// Package spool provides an append-only, write-once-read-once byte spool.
// Content is buffered in memory up to a configured threshold; once the
// threshold is crossed, everything already buffered and everything appended
// afterwards lives in a backing temp file. Callers see one logical stream
// either way. The only supported traversal is a full sequential read at
// drain time; there is no random access.
package spool

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// DefaultThreshold is the in-memory limit before spilling to disk.
const DefaultThreshold = 2 * 1024 * 1024

// ErrClosed is returned by operations on a closed spooler.
var ErrClosed = errors.New("spool: closed")

// Handle locates a contiguous region previously appended to the spooler.
// It is a locator only; the spooler retains ownership of the bytes.
type Handle struct {
	Offset int64
	Length int64
}

// Spooler accumulates appended bytes in memory until the threshold is
// exceeded, then transparently spills to a temp file. The transition is
// one-way for the lifetime of the spooler.
type Spooler struct {
	threshold int64
	buf       bytes.Buffer
	file      *os.File // nil while content is memory-resident
	size      int64
	closed    bool
}

// New creates a spooler with the given in-memory threshold. A non-positive
// threshold falls back to DefaultThreshold.
func New(threshold int64) *Spooler {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Spooler{threshold: threshold}
}

// Size reports the total number of bytes appended so far.
func (s *Spooler) Size() int64 {
	return s.size
}

// InMemory reports whether the content is still memory-resident.
func (s *Spooler) InMemory() bool {
	return s.file == nil
}

// Append writes p to the spool and returns a handle locating it. Crossing
// the threshold moves the buffered content to a temp file first, so resident
// memory never exceeds the threshold plus one append's transient slice.
func (s *Spooler) Append(p []byte) (Handle, error) {
	if s.closed {
		return Handle{}, ErrClosed
	}

	h := Handle{Offset: s.size, Length: int64(len(p))}

	if s.file == nil && s.size+int64(len(p)) > s.threshold {
		if err := s.spill(); err != nil {
			return Handle{}, err
		}
	}

	if s.file != nil {
		if _, err := s.file.Write(p); err != nil {
			return Handle{}, fmt.Errorf("spool: write to backing file %s: %w", s.file.Name(), err)
		}
	} else {
		s.buf.Write(p)
	}

	s.size += int64(len(p))
	return h, nil
}

// spill moves the in-memory buffer to a freshly created temp file.
func (s *Spooler) spill() error {
	f, err := os.CreateTemp("", "ctxforge-spool-*")
	if err != nil {
		return fmt.Errorf("spool: create backing file: %w", err)
	}
	if _, err := f.Write(s.buf.Bytes()); err != nil {
		name := f.Name()
		f.Close()
		os.Remove(name)
		return fmt.Errorf("spool: flush buffer to backing file %s: %w", name, err)
	}
	s.buf.Reset()
	s.file = f
	return nil
}

// Drain streams the entire spooled content sequentially to w. It may be
// called once per spooler; the backing file (if any) is read from the start.
// Assembly never needs the whole body in memory: disk-resident content is
// copied in fixed-size chunks.
func (s *Spooler) Drain(w io.Writer) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}

	if s.file == nil {
		n, err := w.Write(s.buf.Bytes())
		return int64(n), err
	}

	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("spool: rewind backing file %s: %w", s.file.Name(), err)
	}
	buf := make([]byte, 64*1024)
	n, err := io.CopyBuffer(w, s.file, buf)
	if err != nil {
		return n, fmt.Errorf("spool: drain backing file %s: %w", s.file.Name(), err)
	}
	return n, nil
}

// Close releases the backing file, if one was created. It is safe to call
// on every exit path and is idempotent.
func (s *Spooler) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.buf.Reset()

	if s.file == nil {
		return nil
	}
	name := s.file.Name()
	closeErr := s.file.Close()
	removeErr := os.Remove(name)
	s.file = nil
	if closeErr != nil {
		return fmt.Errorf("spool: close backing file %s: %w", name, closeErr)
	}
	if removeErr != nil {
		return fmt.Errorf("spool: remove backing file %s: %w", name, removeErr)
	}
	return nil
}
