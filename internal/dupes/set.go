package dupes

import (
	"sort"
)

// DuplicateSet is a group of two or more files confirmed byte-identical by
// size, partial digest and full digest.
type DuplicateSet struct {
	Size   int64        `json:"size"`
	Digest string       `json:"digest"`
	Files  []FileRecord `json:"files"`
}

func (s DuplicateSet) Len() int {
	return len(s.Files)
}

// Valid reports whether the set still holds at least two members.
func (s DuplicateSet) Valid() bool {
	return len(s.Files) >= 2
}

func (s DuplicateSet) Paths() []string {
	paths := make([]string, len(s.Files))
	for i, f := range s.Files {
		paths[i] = f.Path
	}
	return paths
}

func (s DuplicateSet) Contains(path string) bool {
	for _, f := range s.Files {
		if f.Path == path {
			return true
		}
	}
	return false
}

// WastedBytes is the space held by every member beyond the first.
func (s DuplicateSet) WastedBytes() int64 {
	if len(s.Files) < 2 {
		return 0
	}
	return s.Size * int64(len(s.Files)-1)
}

// Without returns a copy of s with the given paths removed.
func (s DuplicateSet) Without(paths ...string) DuplicateSet {
	drop := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		drop[p] = struct{}{}
	}

	out := DuplicateSet{Size: s.Size, Digest: s.Digest}
	for _, f := range s.Files {
		if _, ok := drop[f.Path]; ok {
			continue
		}
		out.Files = append(out.Files, f)
	}
	return out
}

// Refresh re-stats every member and drops files that are gone or no longer
// have the set's size. Surviving records carry fresh metadata. The caller
// must check Valid on the result before presenting it.
func (s DuplicateSet) Refresh() DuplicateSet {
	out := DuplicateSet{Size: s.Size, Digest: s.Digest}
	for _, f := range s.Files {
		r, err := StatRecord(f.Path)
		if err != nil || r.Size != s.Size {
			continue
		}
		out.Files = append(out.Files, r)
	}
	return out
}

// Prune drops the given paths from every set and discards sets left with
// fewer than two members.
func Prune(sets []DuplicateSet, paths ...string) []DuplicateSet {
	var out []DuplicateSet
	for _, s := range sets {
		s = s.Without(paths...)
		if s.Valid() {
			out = append(out, s)
		}
	}
	return out
}

// SortSets orders members of each set by path and the sets by size, largest
// first, then by first path.
func SortSets(sets []DuplicateSet) {
	for i := range sets {
		files := sets[i].Files
		sort.Slice(files, func(a, b int) bool { return files[a].Path < files[b].Path })
	}
	sort.Slice(sets, func(i, j int) bool {
		if sets[i].Size != sets[j].Size {
			return sets[i].Size > sets[j].Size
		}
		return sets[i].Files[0].Path < sets[j].Files[0].Path
	})
}

// Summary totals a collection of sets.
type Summary struct {
	Sets           int   `json:"sets"`
	DuplicateFiles int   `json:"duplicate_files"`
	WastedBytes    int64 `json:"wasted_bytes"`
}

func Summarize(sets []DuplicateSet) Summary {
	var sum Summary
	for _, s := range sets {
		if !s.Valid() {
			continue
		}
		sum.Sets++
		sum.DuplicateFiles += s.Len() - 1
		sum.WastedBytes += s.WastedBytes()
	}
	return sum
}
