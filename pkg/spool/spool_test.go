package spool

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendStaysInMemoryBelowThreshold(t *testing.T) {
	s := New(64)
	defer s.Close()

	h1, err := s.Append([]byte("hello "))
	require.NoError(t, err)
	h2, err := s.Append([]byte("world"))
	require.NoError(t, err)

	assert.True(t, s.InMemory())
	assert.Equal(t, Handle{Offset: 0, Length: 6}, h1)
	assert.Equal(t, Handle{Offset: 6, Length: 5}, h2)
	assert.Equal(t, int64(11), s.Size())

	var out bytes.Buffer
	n, err := s.Drain(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)
	assert.Equal(t, "hello world", out.String())
}

func TestAppendExactThresholdDoesNotSpill(t *testing.T) {
	s := New(10)
	defer s.Close()

	_, err := s.Append([]byte("0123456789"))
	require.NoError(t, err)
	assert.True(t, s.InMemory())
}

func TestSpillToDisk(t *testing.T) {
	s := New(10)
	defer s.Close()

	_, err := s.Append([]byte("0123456789"))
	require.NoError(t, err)
	_, err = s.Append([]byte("abc"))
	require.NoError(t, err)

	assert.False(t, s.InMemory())
	assert.Equal(t, int64(13), s.Size())

	var out bytes.Buffer
	n, err := s.Drain(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(13), n)
	assert.Equal(t, "0123456789abc", out.String())
}

func TestSpillPreservesOrderAcrossManyAppends(t *testing.T) {
	s := New(128)
	defer s.Close()

	var want strings.Builder
	for i := 0; i < 100; i++ {
		chunk := strings.Repeat(string(rune('a'+i%26)), 10)
		want.WriteString(chunk)
		h, err := s.Append([]byte(chunk))
		require.NoError(t, err)
		assert.Equal(t, int64(i*10), h.Offset)
	}
	assert.False(t, s.InMemory())

	var out bytes.Buffer
	_, err := s.Drain(&out)
	require.NoError(t, err)
	assert.Equal(t, want.String(), out.String())
}

func TestCloseIsIdempotent(t *testing.T) {
	s := New(4)
	_, err := s.Append([]byte("spills to disk"))
	require.NoError(t, err)
	assert.False(t, s.InMemory())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestOperationsAfterClose(t *testing.T) {
	s := New(64)
	require.NoError(t, s.Close())

	_, err := s.Append([]byte("x"))
	assert.ErrorIs(t, err, ErrClosed)

	var out bytes.Buffer
	_, err = s.Drain(&out)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDefaultThreshold(t *testing.T) {
	s := New(0)
	defer s.Close()

	_, err := s.Append(bytes.Repeat([]byte{'x'}, 1024))
	require.NoError(t, err)
	assert.True(t, s.InMemory())
}
