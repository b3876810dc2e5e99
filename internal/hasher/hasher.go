// Package hasher computes streaming content digests over a bounded prefix or
// the whole of a file.
package hasher

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	pferrors "github.com/harshada2576/pigeon-finder/internal/errors"
)

const (
	// DefaultChunkSize is the read size used while streaming a file.
	DefaultChunkSize = 64 * 1024
	// DefaultPartialSize is the prefix window hashed by Partial.
	DefaultPartialSize = 4096
	// Unbounded as a limit hashes the whole stream.
	Unbounded int64 = -1
)

// Config selects the digest and the read geometry.
type Config struct {
	Algorithm   string
	ChunkSize   int
	PartialSize int64
}

func DefaultConfig() Config {
	return Config{
		Algorithm:   DefaultAlgorithm,
		ChunkSize:   DefaultChunkSize,
		PartialSize: DefaultPartialSize,
	}
}

// Hasher is safe for concurrent use.
type Hasher struct {
	alg         *Algorithm
	chunkSize   int
	partialSize int64
	bufs        sync.Pool
}

// New validates cfg. An unknown algorithm fails here rather than mid-scan.
func New(cfg Config) (*Hasher, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = DefaultAlgorithm
	}
	alg, err := Lookup(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.PartialSize == 0 {
		cfg.PartialSize = DefaultPartialSize
	}
	if cfg.ChunkSize < 0 {
		return nil, pferrors.Config(fmt.Sprintf("chunk size must be positive, got %d", cfg.ChunkSize))
	}
	if cfg.PartialSize < 0 {
		return nil, pferrors.Config(fmt.Sprintf("partial hash size must be positive, got %d", cfg.PartialSize))
	}

	h := &Hasher{
		alg:         alg,
		chunkSize:   cfg.ChunkSize,
		partialSize: cfg.PartialSize,
	}
	h.bufs.New = func() interface{} {
		buf := make([]byte, h.chunkSize)
		return &buf
	}
	return h, nil
}

func (h *Hasher) Algorithm() string {
	return h.alg.Name
}

func (h *Hasher) PartialSize() int64 {
	return h.partialSize
}

// Partial hashes at most the first PartialSize bytes of path.
func (h *Hasher) Partial(ctx context.Context, path string) (string, error) {
	return h.Hash(ctx, path, h.partialSize)
}

// Full hashes every byte of path.
func (h *Hasher) Full(ctx context.Context, path string) (string, error) {
	return h.Hash(ctx, path, Unbounded)
}

// Hash returns the hex digest of path, reading no more than limit bytes.
// A negative limit reads to EOF. Open and read failures come back as
// FILE_ACCESS errors; cancellation comes back as the context's error.
func (h *Hasher) Hash(ctx context.Context, path string, limit int64) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", pferrors.FileAccess(path, err)
	}
	defer file.Close()

	digest, err := h.HashReader(ctx, file, limit)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", pferrors.FileAccess(path, err)
	}
	return digest, nil
}

// HashReader streams r through the digest in chunk-sized reads. The final
// read is truncated so that no byte past limit is consumed.
func (h *Hasher) HashReader(ctx context.Context, r io.Reader, limit int64) (string, error) {
	bufp := h.bufs.Get().(*[]byte)
	defer h.bufs.Put(bufp)
	buf := *bufp

	d := h.alg.New()
	var read int64
	for {
		// Cancellation is checked between chunks, never mid-read.
		if err := ctx.Err(); err != nil {
			return "", err
		}

		chunk := buf
		if limit >= 0 {
			remaining := limit - read
			if remaining <= 0 {
				break
			}
			if remaining < int64(len(chunk)) {
				chunk = chunk[:remaining]
			}
		}

		n, err := r.Read(chunk)
		if n > 0 {
			d.Write(chunk[:n])
			read += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading: %w", err)
		}
	}

	return hex.EncodeToString(d.Sum(nil)), nil
}
