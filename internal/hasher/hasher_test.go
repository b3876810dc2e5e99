package hasher

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pferrors "github.com/harshada2576/pigeon-finder/internal/errors"
)

type countingReader struct {
	r    io.Reader
	read int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += n
	return n, err
}

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		h, err := New(Config{})
		require.NoError(t, err)
		assert.Equal(t, "sha256", h.Algorithm())
		assert.EqualValues(t, DefaultPartialSize, h.PartialSize())
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		_, err := New(Config{Algorithm: "crc7"})
		require.Error(t, err)
		assert.True(t, pferrors.IsType(err, pferrors.ErrorTypeHashAlgorithm))
	})

	t.Run("negative chunk size", func(t *testing.T) {
		_, err := New(Config{ChunkSize: -1})
		require.Error(t, err)
		assert.True(t, pferrors.IsType(err, pferrors.ErrorTypeConfig))
	})

	t.Run("case insensitive", func(t *testing.T) {
		h, err := New(Config{Algorithm: "BLAKE2B"})
		require.NoError(t, err)
		assert.Equal(t, "blake2b", h.Algorithm())
	})
}

func TestHash(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	h, err := New(DefaultConfig())
	require.NoError(t, err)

	t.Run("full digest", func(t *testing.T) {
		path := writeFile(t, dir, "abc.txt", []byte("abc"))
		got, err := h.Full(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", got)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeFile(t, dir, "empty", nil)
		full, err := h.Full(ctx, path)
		require.NoError(t, err)
		partial, err := h.Partial(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", full)
		assert.Equal(t, full, partial)
	})

	t.Run("partial covers only the window", func(t *testing.T) {
		content := bytes.Repeat([]byte("x"), 10000)
		a := writeFile(t, dir, "a.bin", content)

		other := append([]byte(nil), content...)
		other[9000] = 'y'
		b := writeFile(t, dir, "b.bin", other)

		pa, err := h.Partial(ctx, a)
		require.NoError(t, err)
		pb, err := h.Partial(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, pa, pb)
		assert.Equal(t, sha256Hex(content[:DefaultPartialSize]), pa)

		fa, err := h.Full(ctx, a)
		require.NoError(t, err)
		fb, err := h.Full(ctx, b)
		require.NoError(t, err)
		assert.NotEqual(t, fa, fb)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := h.Full(ctx, filepath.Join(dir, "nope"))
		require.Error(t, err)
		assert.True(t, pferrors.IsType(err, pferrors.ErrorTypeFileAccess))
	})
}

func TestHashReaderNeverReadsPastLimit(t *testing.T) {
	h, err := New(Config{ChunkSize: 3})
	require.NoError(t, err)

	content := bytes.Repeat([]byte("0123456789"), 10)
	tests := []struct {
		name  string
		limit int64
		want  int
	}{
		{"limit inside chunk", 2, 2},
		{"limit across chunks", 10, 10},
		{"limit on chunk boundary", 9, 9},
		{"limit beyond stream", 500, 100},
		{"unbounded", Unbounded, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &countingReader{r: bytes.NewReader(content)}
			got, err := h.HashReader(context.Background(), r, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.read)
			assert.Equal(t, sha256Hex(content[:tt.want]), got)
		})
	}
}

func TestHashCancelled(t *testing.T) {
	h, err := New(DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := writeFile(t, t.TempDir(), "f", []byte("data"))
	_, err = h.Full(ctx, path)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, pferrors.IsType(err, pferrors.ErrorTypeFileAccess))
}

func TestAlgorithms(t *testing.T) {
	path := writeFile(t, t.TempDir(), "f", []byte("pigeonhole"))

	seen := make(map[string]string)
	for _, name := range Names() {
		h, err := New(Config{Algorithm: name})
		require.NoError(t, err, name)

		d1, err := h.Full(context.Background(), path)
		require.NoError(t, err, name)
		d2, err := h.Full(context.Background(), path)
		require.NoError(t, err, name)
		assert.Equal(t, d1, d2, name)

		for other, digest := range seen {
			assert.NotEqual(t, digest, d1, "%s collides with %s", name, other)
		}
		seen[name] = d1
	}
	assert.Len(t, seen, 6)
}
