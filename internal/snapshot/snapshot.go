// internal/snapshot/snapshot.go
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/harshada2576/pigeon-finder/internal/dupes"
)

// Version is written into every snapshot. Load rejects other versions.
const Version = 1

// Snapshot is the saved outcome of one scan. It is written as
// zstd-compressed JSON.
type Snapshot struct {
	Version   int                  `json:"version"`
	ScanID    string               `json:"scan_id"`
	Root      string               `json:"root"`
	Algorithm string               `json:"algorithm"`
	CreatedAt time.Time            `json:"created_at"`
	Sets      []dupes.DuplicateSet `json:"sets"`
	Summary   dupes.Summary        `json:"summary"`
}

func New(scanID, root, algorithm string, sets []dupes.DuplicateSet) *Snapshot {
	return &Snapshot{
		Version:   Version,
		ScanID:    scanID,
		Root:      root,
		Algorithm: algorithm,
		CreatedAt: time.Now().UTC(),
		Sets:      sets,
		Summary:   dupes.Summarize(sets),
	}
}

// Refresh re-stats every member, drops members that vanished or changed size
// and discards sets left with fewer than two files. It returns the number of
// stale members found.
func (s *Snapshot) Refresh() int {
	stale := 0
	var sets []dupes.DuplicateSet
	for _, set := range s.Sets {
		fresh := set.Refresh()
		stale += set.Len() - fresh.Len()
		if fresh.Valid() {
			sets = append(sets, fresh)
		}
	}
	s.Sets = sets
	s.Summary = dupes.Summarize(sets)
	return stale
}

// Remove drops paths from every set, e.g. after they have been acted on.
func (s *Snapshot) Remove(paths ...string) {
	s.Sets = dupes.Prune(s.Sets, paths...)
	s.Summary = dupes.Summarize(s.Sets)
}

// Save writes s to path through a temporary file in the same directory.
func Save(path string, s *Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmp := f.Name()

	if err := write(f, s); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func write(f *os.File, s *Snapshot) error {
	enc, err := zstd.NewWriter(f,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return fmt.Errorf("creating encoder: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(s); err != nil {
		enc.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing compression: %w", err)
	}
	return nil
}

// Load reads a snapshot written by Save.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("creating decoder: %w", err)
	}
	defer dec.Close()

	var s Snapshot
	if err := json.NewDecoder(dec).Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("snapshot %s has version %d, want %d", path, s.Version, Version)
	}
	return &s, nil
}
