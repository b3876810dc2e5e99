// Package scanner walks a directory tree and groups the regular files that
// pass the inclusion filters by size.
package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/harshada2576/pigeon-finder/internal/dupes"
	pferrors "github.com/harshada2576/pigeon-finder/internal/errors"
	"github.com/harshada2576/pigeon-finder/internal/progress"
)

// Filters decide which files are recorded.
type Filters struct {
	// Extensions is an allow-list of suffixes such as ".jpg". Empty means all.
	Extensions []string
	// MinSize is an inclusive lower bound in bytes.
	MinSize int64
	// MaxSize is an inclusive upper bound in bytes; 0 disables it.
	MaxSize         int64
	IncludeZeroByte bool
	// ExcludeDirs are directory base names that are never descended into.
	ExcludeDirs []string
	// SkipHidden skips directories whose name starts with a dot.
	SkipHidden bool
}

// Result is everything a scan produced. Warnings holds one FILE_ACCESS error
// per file or directory that could not be read.
type Result struct {
	Root         string
	Groups       dupes.SizeGroups
	FilesSeen    int
	FilesMatched int
	Warnings     []error
	Cancelled    bool
}

type Options struct {
	Logger   *zap.Logger
	Progress progress.Sink
}

type Scanner struct {
	filters    Filters
	extensions map[string]struct{}
	exclude    map[string]struct{}
	logger     *zap.Logger
	progress   progress.Sink
}

func New(filters Filters, opts Options) *Scanner {
	s := &Scanner{
		filters:    filters,
		extensions: make(map[string]struct{}),
		exclude:    make(map[string]struct{}),
		logger:     opts.Logger,
		progress:   opts.Progress,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	for _, ext := range filters.Extensions {
		if ext = NormalizeExtension(ext); ext != "" {
			s.extensions[ext] = struct{}{}
		}
	}
	for _, dir := range filters.ExcludeDirs {
		s.exclude[dir] = struct{}{}
	}
	return s
}

// NormalizeExtension lowercases ext and ensures a leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// ParseExtensions splits a comma-separated list such as "jpg, .PNG".
func ParseExtensions(list string) []string {
	var exts []string
	for _, part := range strings.Split(list, ",") {
		if ext := NormalizeExtension(part); ext != "" {
			exts = append(exts, ext)
		}
	}
	return exts
}

// extension returns the lowercased suffix of name. Dot files such as
// ".bashrc" have no suffix.
func extension(name string) string {
	ext := filepath.Ext(name)
	if ext == name {
		return ""
	}
	return strings.ToLower(ext)
}

var errStopped = errors.New("scan stopped")

// Scan walks root and returns every matching file grouped by size. Groups
// with a single member are kept; dupes.SizeGroups.Candidates prunes them.
// Per-file failures become warnings. Cancelling ctx stops the walk between
// entries and yields the partial result with Cancelled set.
func (s *Scanner) Scan(ctx context.Context, root string) (*Result, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, pferrors.InvalidRoot(root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, pferrors.InvalidRoot(abs, err)
	}
	if !info.IsDir() {
		return nil, pferrors.InvalidRoot(abs, errors.New("not a directory"))
	}
	// A symlinked root is followed once. Links below it never are.
	if abs, err = filepath.EvalSymlinks(abs); err != nil {
		return nil, pferrors.InvalidRoot(root, err)
	}

	res := &Result{
		Root:   abs,
		Groups: make(dupes.SizeGroups),
	}

	notify := progress.NewDispatcher(s.progress, s.logger)
	defer notify.Close()

	s.logger.Info("scanning directory", zap.String("root", abs))

	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return errStopped
		}
		if err != nil {
			s.warn(res, path, err)
			return nil
		}

		if d.IsDir() {
			if path != abs && s.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinks, sockets, devices and pipes are never followed or hashed.
		if !d.Type().IsRegular() {
			return nil
		}

		res.FilesSeen++
		fi, err := d.Info()
		if err != nil {
			s.warn(res, path, err)
			return nil
		}

		if !s.accept(d.Name(), fi.Size()) {
			return nil
		}

		res.Groups.Add(dupes.FileRecord{
			Path:    path,
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		res.FilesMatched++
		notify.Notify(res.FilesMatched, 0, path)
		return nil
	})
	if errors.Is(err, errStopped) {
		res.Cancelled = true
		s.logger.Info("scan cancelled", zap.Int("files_matched", res.FilesMatched))
		return res, nil
	}
	if err != nil {
		return nil, pferrors.FileAccess(abs, err)
	}

	s.logger.Info("scan complete",
		zap.Int("files_seen", res.FilesSeen),
		zap.Int("files_matched", res.FilesMatched),
		zap.Int("size_groups", len(res.Groups)),
		zap.Int("warnings", len(res.Warnings)))
	return res, nil
}

func (s *Scanner) skipDir(name string) bool {
	if _, ok := s.exclude[name]; ok {
		return true
	}
	return s.filters.SkipHidden && strings.HasPrefix(name, ".")
}

func (s *Scanner) accept(name string, size int64) bool {
	if size == 0 && !s.filters.IncludeZeroByte {
		return false
	}
	if size < s.filters.MinSize {
		return false
	}
	if s.filters.MaxSize > 0 && size > s.filters.MaxSize {
		return false
	}
	if len(s.extensions) > 0 {
		if _, ok := s.extensions[extension(name)]; !ok {
			return false
		}
	}
	return true
}

func (s *Scanner) warn(res *Result, path string, err error) {
	s.logger.Warn("skipping unreadable entry", zap.String("path", path), zap.Error(err))
	res.Warnings = append(res.Warnings, pferrors.FileAccess(path, err))
}
