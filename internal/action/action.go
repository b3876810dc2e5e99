// Package action applies delete or move to every member of a duplicate set
// except the one chosen as the original.
package action

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harshada2576/pigeon-finder/internal/dupes"
	pferrors "github.com/harshada2576/pigeon-finder/internal/errors"
)

type Kind string

const (
	// None previews the batch without touching the filesystem.
	None   Kind = "none"
	Delete Kind = "delete"
	Move   Kind = "move"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case None, Delete, Move:
		return k, nil
	case "":
		return None, nil
	}
	return "", fmt.Errorf("unknown action %q (want none, delete or move)", s)
}

// timestampLayout renders the collision suffix as YYYYMMDDHHMMSS.
const timestampLayout = "20060102150405"

// Outcome is the fate of one non-original member. Destination is set for
// moves.
type Outcome struct {
	Path        string `json:"path"`
	Destination string `json:"destination,omitempty"`
	Err         error  `json:"-"`
}

type Result struct {
	Action   Kind
	Original string
	// Processed counts members that were deleted or moved.
	Processed int
	Outcomes  []Outcome
}

// Failures returns the outcomes that carry an error.
func (r *Result) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

type Options struct {
	Logger *zap.Logger
	// Now stamps collision suffixes. Defaults to time.Now.
	Now func() time.Time
}

type Executor struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewExecutor(opts Options) *Executor {
	x := &Executor{logger: opts.Logger, now: opts.Now}
	if x.logger == nil {
		x.logger = zap.NewNop()
	}
	if x.now == nil {
		x.now = time.Now
	}
	return x
}

// Apply runs kind against every member of set other than original. The
// original is never modified. Per-file failures are recorded in the result
// and do not stop the batch. An error is returned only when nothing could be
// attempted: original is not a member, the action is unknown, or the move
// destination is missing or cannot be created.
func (x *Executor) Apply(set dupes.DuplicateSet, original string, kind Kind, destination string) (*Result, error) {
	if !set.Contains(original) {
		return nil, pferrors.Action(string(kind), original, errors.New("original is not a member of the set"))
	}

	switch kind {
	case None, Delete:
	case Move:
		if destination == "" {
			return nil, pferrors.Action(string(kind), original, errors.New("move requires a destination"))
		}
	default:
		return nil, pferrors.Action(string(kind), original, errors.New("unknown action"))
	}

	res := &Result{Action: kind, Original: original}

	if kind == Move {
		abs, err := filepath.Abs(destination)
		if err != nil {
			return nil, pferrors.Action(string(kind), destination, err)
		}
		destination = abs
		if err := os.MkdirAll(destination, 0755); err != nil {
			return nil, pferrors.Action(string(kind), destination, fmt.Errorf("creating destination: %w", err))
		}
	}

	for _, f := range set.Files {
		if f.Path == original {
			continue
		}

		switch kind {
		case None:
			res.Outcomes = append(res.Outcomes, Outcome{Path: f.Path})

		case Delete:
			o := Outcome{Path: f.Path}
			if err := os.Remove(f.Path); err != nil {
				o.Err = pferrors.Action("delete", f.Path, err)
				x.logger.Warn("delete failed", zap.String("path", f.Path), zap.Error(err))
			} else {
				res.Processed++
				x.logger.Info("deleted duplicate", zap.String("path", f.Path), zap.String("original", original))
			}
			res.Outcomes = append(res.Outcomes, o)

		case Move:
			target, err := x.moveInto(f.Path, destination)
			o := Outcome{Path: f.Path, Destination: target}
			if err != nil {
				o.Err = pferrors.Action("move", f.Path, err)
				x.logger.Warn("move failed", zap.String("path", f.Path), zap.String("destination", target), zap.Error(err))
			} else {
				res.Processed++
				x.logger.Info("moved duplicate", zap.String("path", f.Path), zap.String("destination", target))
			}
			res.Outcomes = append(res.Outcomes, o)
		}
	}

	return res, nil
}

// moveInto moves src into dir under the first free name among name,
// <stem>_DUP_<timestamp><ext> and that with _<n> appended. Each name is
// claimed with an exclusive create so an existing file is never replaced.
func (x *Executor) moveInto(src, dir string) (string, error) {
	name := filepath.Base(src)
	ext := filepath.Ext(name)
	if ext == name {
		ext = ""
	}
	base := fmt.Sprintf("%s_DUP_%s", strings.TrimSuffix(name, ext), x.now().Format(timestampLayout))

	for n := 0; ; n++ {
		var dst string
		switch n {
		case 0:
			dst = filepath.Join(dir, name)
		case 1:
			dst = filepath.Join(dir, base+ext)
		default:
			dst = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, n-1, ext))
		}
		err := moveFile(src, dst)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return dst, err
	}
}

// moveFile moves src to dst, failing with fs.ErrExist if dst exists.
// A hard link claims dst atomically. Where linking is not possible, as
// across devices, the file is copied with O_EXCL instead.
func moveFile(src, dst string) error {
	err := os.Link(src, dst)
	if errors.Is(err, fs.ErrExist) {
		return err
	}
	if err != nil {
		if err := copyFile(src, dst); err != nil {
			return err
		}
	}
	if err := os.Remove(src); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copying to %s: %w", dst, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
