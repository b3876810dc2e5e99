package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harshada2576/pigeon-finder/internal/action"
	"github.com/harshada2576/pigeon-finder/internal/cache"
	"github.com/harshada2576/pigeon-finder/internal/config"
	"github.com/harshada2576/pigeon-finder/internal/dupes"
	"github.com/harshada2576/pigeon-finder/internal/engine"
	pferrors "github.com/harshada2576/pigeon-finder/internal/errors"
	"github.com/harshada2576/pigeon-finder/internal/progress"
	"github.com/harshada2576/pigeon-finder/internal/scanner"
	"github.com/harshada2576/pigeon-finder/internal/snapshot"
)

const progressInterval = 100 * time.Millisecond

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <root>",
		Short: "Find duplicate files under a directory",
		Long: `Scans root recursively and reports every set of byte-identical files.
With --delete or --move every member except the one chosen by --keep-mode is
deleted or moved into --move-path.`,
		Args: cobra.ExactArgs(1),
		RunE: runScan,
	}

	flags := cmd.Flags()
	flags.String("ext", "", "Comma-separated extensions to include, e.g. jpg,png")
	flags.String("min-size", "", "Minimum file size, e.g. 4K or 1MiB")
	flags.String("max-size", "", "Maximum file size (0 or empty is unbounded)")
	flags.Bool("include-zero-byte", false, "Treat empty files as duplicates of each other")
	flags.Bool("skip-hidden", false, "Do not descend into directories starting with a dot")
	flags.StringP("algorithm", "a", "", "Hash algorithm (see 'pigeon algorithms')")
	flags.IntP("workers", "w", 0, "Files hashed concurrently (default NumCPU)")
	flags.StringP("keep-mode", "k", "", "Which file to keep: newest, oldest or path_length")
	flags.Bool("delete", false, "Delete every duplicate except the kept file")
	flags.Bool("move", false, "Move every duplicate except the kept file into --move-path")
	flags.String("move-path", "", "Destination directory for --move")
	flags.String("save", "", "Write the result to a snapshot file for 'pigeon review'")
	flags.Bool("no-progress", false, "Do not draw progress on stderr")
	cmd.MarkFlagsMutuallyExclusive("delete", "move")

	return cmd
}

// applyScanFlags overlays explicitly set flags on cfg.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("ext") {
		list, _ := flags.GetString("ext")
		cfg.Extensions = scanner.ParseExtensions(list)
	}
	for _, f := range []struct {
		name string
		dst  *config.Size
	}{
		{"min-size", &cfg.MinSize},
		{"max-size", &cfg.MaxSize},
	} {
		if !flags.Changed(f.name) {
			continue
		}
		v, _ := flags.GetString(f.name)
		if v == "" {
			*f.dst = 0
			continue
		}
		if err := f.dst.Decode(v); err != nil {
			return pferrors.Config(fmt.Sprintf("--%s: %v", f.name, err))
		}
	}
	if flags.Changed("include-zero-byte") {
		cfg.IncludeZeroByte, _ = flags.GetBool("include-zero-byte")
	}
	if flags.Changed("skip-hidden") {
		cfg.SkipHidden, _ = flags.GetBool("skip-hidden")
	}
	if flags.Changed("algorithm") {
		cfg.Algorithm, _ = flags.GetString("algorithm")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("keep-mode") {
		cfg.KeepMode, _ = flags.GetString("keep-mode")
	}
	return cfg.Validate()
}

// actionFlags decides what to do with duplicates.
func actionFlags(cmd *cobra.Command) (action.Kind, string, error) {
	del, _ := cmd.Flags().GetBool("delete")
	move, _ := cmd.Flags().GetBool("move")
	dest, _ := cmd.Flags().GetString("move-path")

	switch {
	case move && dest == "":
		return "", "", fmt.Errorf("--move requires --move-path")
	case move:
		return action.Move, dest, nil
	case dest != "":
		return "", "", fmt.Errorf("--move-path is only valid with --move")
	case del:
		return action.Delete, "", nil
	}
	return action.None, "", nil
}

func runScan(cmd *cobra.Command, args []string) error {
	kind, dest, err := actionFlags(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyScanFlags(cmd, cfg); err != nil {
		return err
	}

	base, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer base.Sync()

	scanID := uuid.New().String()
	logger := base.WithScan(scanID)

	noProgress, _ := cmd.Flags().GetBool("no-progress")
	var sink progress.Sink = progress.Nop
	console := newConsoleProgress(os.Stderr)
	if !noProgress {
		sink = progress.Throttle(console, progressInterval)
	}

	ctx, stop := signalContext(context.Background())
	defer stop()

	scanned, err := scanner.New(cfg.ScanFilters(), scanner.Options{
		Logger:   logger,
		Progress: sink,
	}).Scan(ctx, args[0])
	console.End()
	if err != nil {
		return err
	}
	if scanned.Cancelled {
		return pferrors.Cancelled("scan")
	}
	fmt.Printf("Scanned %d files under %s, %d matched filters\n",
		scanned.FilesSeen, scanned.Root, scanned.FilesMatched)

	opts := cfg.EngineOptions(logger)
	opts.Progress = sink
	if cfg.CacheDir != "" {
		c, err := cache.Open(cfg.CacheOptions(logger))
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer c.Close()
		opts.Cache = c
	}

	eng, err := engine.NewWithConfig(cfg.HashConfig(), opts)
	if err != nil {
		return err
	}

	res, err := eng.FindDuplicates(ctx, scanned.Groups)
	console.End()
	if err != nil {
		return err
	}
	if res.Cancelled {
		return pferrors.Cancelled("duplicate search")
	}

	mode := cfg.Keep()
	executor := action.NewExecutor(action.Options{Logger: logger})
	var acted []string
	var actionFailures []error

	out := os.Stdout
	for i, set := range res.Sets {
		original, err := dupes.SelectOriginal(set, mode)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		printSet(out, i, set, original)

		if kind == action.None {
			continue
		}
		ar, err := executor.Apply(set, original, kind, dest)
		if err != nil {
			return err
		}
		printOutcomes(out, ar)
		for _, o := range ar.Outcomes {
			if o.Err != nil {
				actionFailures = append(actionFailures, o.Err)
			} else {
				acted = append(acted, o.Path)
			}
		}
	}

	fmt.Fprintln(out)
	printWarnings(out, "Skipped during scan", scanned.Warnings)
	printWarnings(out, "Skipped during hashing", res.Failures)
	printWarnings(out, "Failed actions", actionFailures)
	printSummary(out, dupes.Summarize(res.Sets))
	if kind != action.None {
		color.Green("%s %s", verb(kind), plural(len(acted), "file"))
	}
	logger.Info("scan finished",
		zap.String("root", scanned.Root),
		zap.String("keep_mode", string(mode)),
		zap.String("action", string(kind)),
		zap.Int("acted", len(acted)),
		zap.Int("cache_hits", res.Stats.CacheHits),
		zap.String("wasted", humanize.IBytes(uint64(res.Stats.WastedBytes))),
		zap.Duration("elapsed", res.Stats.Elapsed))

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		snap := snapshot.New(scanID, scanned.Root, eng.Algorithm(), res.Sets)
		snap.Remove(acted...)
		if err := snapshot.Save(path, snap); err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
		fmt.Printf("Saved %d sets to %s\n", snap.Summary.Sets, path)
	}

	if len(actionFailures) > 0 {
		return fmt.Errorf("%s could not be processed", plural(len(actionFailures), "file"))
	}
	return nil
}

func verb(kind action.Kind) string {
	if kind == action.Move {
		return "Moved"
	}
	return "Deleted"
}
