// Package engine refines size-grouped candidates into confirmed duplicate
// sets: same size, then same partial digest, then same full digest.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harshada2576/pigeon-finder/internal/cache"
	"github.com/harshada2576/pigeon-finder/internal/dupes"
	"github.com/harshada2576/pigeon-finder/internal/hasher"
	"github.com/harshada2576/pigeon-finder/internal/progress"
)

// DigestCache is consulted before a file is read. *cache.Cache satisfies it.
type DigestCache interface {
	Get(k cache.Key) (string, bool)
	Put(k cache.Key, digest string) error
}

type Options struct {
	// Workers bounds the number of files hashed at once. Defaults to NumCPU.
	Workers  int
	Cache    DigestCache
	Progress progress.Sink
	Logger   *zap.Logger
}

// Stats counts the work done by one FindDuplicates call. PartialHashes and
// FullHashes count files processed at each stage, cached or not.
type Stats struct {
	SizeGroups     int
	Candidates     int
	PartialHashes  int
	FullHashes     int
	CacheHits      int
	Failures       int
	Sets           int
	DuplicateFiles int
	WastedBytes    int64
	Elapsed        time.Duration
}

// Result is handed to the caller, which owns it. Failures holds one
// FILE_ACCESS error per file excluded because it could not be hashed.
type Result struct {
	Sets      []dupes.DuplicateSet
	Stats     Stats
	Failures  []error
	Cancelled bool
}

type Engine struct {
	hasher   *hasher.Hasher
	workers  int
	cache    DigestCache
	progress progress.Sink
	logger   *zap.Logger
}

func New(h *hasher.Hasher, opts Options) *Engine {
	e := &Engine{
		hasher:   h,
		workers:  opts.Workers,
		cache:    opts.Cache,
		progress: opts.Progress,
		logger:   opts.Logger,
	}
	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// NewWithConfig builds the hasher from cfg. An unsupported algorithm is
// reported here as a HASH_ALGORITHM error.
func NewWithConfig(cfg hasher.Config, opts Options) (*Engine, error) {
	h, err := hasher.New(cfg)
	if err != nil {
		return nil, err
	}
	return New(h, opts), nil
}

func (e *Engine) Algorithm() string {
	return e.hasher.Algorithm()
}

type hashed struct {
	rec    dupes.FileRecord
	digest string
}

// run is the state of one FindDuplicates call. Nothing in it outlives the
// call.
type run struct {
	*Engine
	notify *progress.Dispatcher

	mu       sync.Mutex
	failures []error

	cacheHits atomic.Int64
}

// FindDuplicates runs the partial and full hash stages over every size group
// with two or more members. All partial digests are computed and regrouped
// before any full digest is computed. Individual files that cannot be read
// are excluded and recorded in Result.Failures. If ctx is cancelled the
// result carries Cancelled and no sets.
func (e *Engine) FindDuplicates(ctx context.Context, groups dupes.SizeGroups) (*Result, error) {
	start := time.Now()
	res := &Result{}

	cands := groups.Candidates()
	res.Stats.SizeGroups = len(cands)
	res.Stats.Candidates = cands.Files()
	if len(cands) == 0 {
		return res, nil
	}

	r := &run{Engine: e, notify: progress.NewDispatcher(e.progress, e.logger)}
	defer r.notify.Close()

	e.logger.Info("starting partial hash stage",
		zap.String("algorithm", e.hasher.Algorithm()),
		zap.Int("size_groups", res.Stats.SizeGroups),
		zap.Int("files", res.Stats.Candidates))

	var stage1 []dupes.FileRecord
	for _, size := range cands.Sizes() {
		stage1 = append(stage1, cands[size]...)
	}

	partials, processed := r.hashAll(ctx, "partial hash", stage1, e.hasher.PartialSize())
	res.Stats.PartialHashes = processed
	if ctx.Err() != nil {
		return r.cancelled(res, start), nil
	}

	var stage2 []dupes.FileRecord
	for _, byDigest := range regroup(partials) {
		for _, files := range byDigest.Survivors() {
			stage2 = append(stage2, files...)
		}
	}

	e.logger.Info("starting full hash stage",
		zap.Int("files", len(stage2)),
		zap.Int("eliminated", len(stage1)-len(stage2)))

	fulls, processed := r.hashAll(ctx, "full hash", stage2, hasher.Unbounded)
	res.Stats.FullHashes = processed
	if ctx.Err() != nil {
		return r.cancelled(res, start), nil
	}

	// Equal full digests imply equal prefixes.
	for size, byDigest := range regroup(fulls) {
		for digest, files := range byDigest.Survivors() {
			res.Sets = append(res.Sets, dupes.DuplicateSet{
				Size:   size,
				Digest: digest,
				Files:  files,
			})
		}
	}
	dupes.SortSets(res.Sets)

	summary := dupes.Summarize(res.Sets)
	res.Stats.Sets = summary.Sets
	res.Stats.DuplicateFiles = summary.DuplicateFiles
	res.Stats.WastedBytes = summary.WastedBytes
	r.finish(res, start)

	e.logger.Info("duplicate search complete",
		zap.Int("sets", res.Stats.Sets),
		zap.Int("duplicate_files", res.Stats.DuplicateFiles),
		zap.Int64("wasted_bytes", res.Stats.WastedBytes),
		zap.Int("failures", res.Stats.Failures),
		zap.Duration("elapsed", res.Stats.Elapsed))
	return res, nil
}

// regroup splits hashed files by size, then by digest.
func regroup(files []hashed) map[int64]dupes.HashGroups {
	out := make(map[int64]dupes.HashGroups)
	for _, h := range files {
		g, ok := out[h.rec.Size]
		if !ok {
			g = make(dupes.HashGroups)
			out[h.rec.Size] = g
		}
		g.Add(h.digest, h.rec)
	}
	return out
}

func (r *run) cancelled(res *Result, start time.Time) *Result {
	r.finish(res, start)
	res.Cancelled = true
	res.Sets = nil
	r.logger.Info("duplicate search cancelled",
		zap.Int("partial_hashes", res.Stats.PartialHashes),
		zap.Int("full_hashes", res.Stats.FullHashes))
	return res
}

func (r *run) finish(res *Result, start time.Time) {
	r.mu.Lock()
	res.Failures = append(res.Failures, r.failures...)
	r.mu.Unlock()
	res.Stats.Failures = len(res.Failures)
	res.Stats.CacheHits = int(r.cacheHits.Load())
	res.Stats.Elapsed = time.Since(start)
}

// hashAll digests every file on the worker pool and returns those that
// succeeded. The returned count includes failures. Submission stops as soon
// as ctx is cancelled; files already in flight are allowed to finish.
func (r *run) hashAll(ctx context.Context, stage string, files []dupes.FileRecord, limit int64) ([]hashed, int) {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		out  = make([]hashed, 0, len(files))
		done atomic.Int64
	)
	g.SetLimit(r.workers)

	total := len(files)
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			digest, err := r.digest(ctx, f, limit)
			n := int(done.Add(1))
			r.notify.Notify(n, total, fmt.Sprintf("%s: %s", stage, f.Path))

			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				r.logger.Warn("excluding unreadable file",
					zap.String("stage", stage),
					zap.String("path", f.Path),
					zap.Error(err))
				r.mu.Lock()
				r.failures = append(r.failures, err)
				r.mu.Unlock()
				return nil
			}

			mu.Lock()
			out = append(out, hashed{rec: f, digest: digest})
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return out, int(done.Load())
}

func (r *run) digest(ctx context.Context, f dupes.FileRecord, limit int64) (string, error) {
	var key cache.Key
	if r.cache != nil {
		key = cache.Key{
			Algorithm: r.hasher.Algorithm(),
			Limit:     limit,
			Path:      f.Path,
			Size:      f.Size,
			ModTime:   f.ModTime,
		}
		if digest, ok := r.cache.Get(key); ok {
			r.cacheHits.Add(1)
			return digest, nil
		}
	}

	digest, err := r.hasher.Hash(ctx, f.Path, limit)
	if err != nil {
		return "", err
	}

	if r.cache != nil {
		if err := r.cache.Put(key, digest); err != nil {
			r.logger.Warn("caching digest", zap.String("path", f.Path), zap.Error(err))
		}
	}
	return digest, nil
}
