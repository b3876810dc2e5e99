package dupes

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// KeepMode decides which member of a set is retained as the original.
type KeepMode string

const (
	KeepNewest     KeepMode = "newest"
	KeepOldest     KeepMode = "oldest"
	KeepPathLength KeepMode = "path_length"
)

// KeepModes lists the supported modes in display order.
var KeepModes = []KeepMode{KeepNewest, KeepOldest, KeepPathLength}

func ParseKeepMode(s string) (KeepMode, error) {
	mode := KeepMode(strings.ToLower(strings.TrimSpace(s)))
	switch mode {
	case KeepNewest, KeepOldest, KeepPathLength:
		return mode, nil
	case "":
		return KeepNewest, nil
	}
	return "", fmt.Errorf("unknown keep mode %q (want newest, oldest or path_length)", s)
}

// SelectOriginal picks the member of set to retain. Ties go to the member
// that appears first in set.Files. Records with an unknown modification time
// order as timestamp 0.
//
// path_length keeps the path with the fewest characters. It is a crude proxy
// for the canonical location, nothing more.
func SelectOriginal(set DuplicateSet, mode KeepMode) (string, error) {
	if len(set.Files) == 0 {
		return "", fmt.Errorf("empty duplicate set")
	}

	var better func(candidate, best FileRecord) bool
	switch mode {
	case KeepNewest:
		better = func(c, b FileRecord) bool { return c.ModUnix() > b.ModUnix() }
	case KeepOldest:
		better = func(c, b FileRecord) bool { return c.ModUnix() < b.ModUnix() }
	case KeepPathLength:
		better = func(c, b FileRecord) bool {
			return utf8.RuneCountInString(c.Path) < utf8.RuneCountInString(b.Path)
		}
	default:
		return "", fmt.Errorf("unknown keep mode %q", mode)
	}

	best := set.Files[0]
	for _, f := range set.Files[1:] {
		if better(f, best) {
			best = f
		}
	}
	return best.Path, nil
}
