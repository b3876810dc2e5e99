// Package dupes holds the data model shared by the scanner, the engine and
// the collaborators that act on duplicate sets.
package dupes

import (
	"os"
	"sort"
	"time"
)

// FileRecord describes one regular file as seen at scan time.
type FileRecord struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// ModUnix returns the modification time in seconds since the epoch. An
// unknown modification time is reported as 0.
func (r FileRecord) ModUnix() float64 {
	if r.ModTime.IsZero() {
		return 0
	}
	return float64(r.ModTime.UnixNano()) / float64(time.Second)
}

// StatRecord builds a record for path. A stat failure yields a record with a
// zero size and modification time together with the error.
func StatRecord(path string) (FileRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileRecord{Path: path}, err
	}
	return FileRecord{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// SizeGroups maps a file size to the files having exactly that size.
type SizeGroups map[int64][]FileRecord

// Add appends r to the group keyed by its size.
func (g SizeGroups) Add(r FileRecord) {
	g[r.Size] = append(g[r.Size], r)
}

// Candidates returns the groups with two or more members. Groups are shared
// with g, not copied.
func (g SizeGroups) Candidates() SizeGroups {
	out := make(SizeGroups)
	for size, files := range g {
		if len(files) > 1 {
			out[size] = files
		}
	}
	return out
}

// Files counts every record across all groups.
func (g SizeGroups) Files() int {
	n := 0
	for _, files := range g {
		n += len(files)
	}
	return n
}

// Sizes returns the group keys, largest first.
func (g SizeGroups) Sizes() []int64 {
	sizes := make([]int64, 0, len(g))
	for size := range g {
		sizes = append(sizes, size)
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] > sizes[j] })
	return sizes
}

// HashGroups maps a hex digest to the files producing it at one hash level.
type HashGroups map[string][]FileRecord

func (h HashGroups) Add(digest string, r FileRecord) {
	h[digest] = append(h[digest], r)
}

// Survivors returns the groups with two or more members keyed by digest.
func (h HashGroups) Survivors() map[string][]FileRecord {
	out := make(map[string][]FileRecord)
	for digest, files := range h {
		if len(files) > 1 {
			out[digest] = files
		}
	}
	return out
}
