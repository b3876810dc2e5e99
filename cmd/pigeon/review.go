package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harshada2576/pigeon-finder/internal/dupes"
	pferrors "github.com/harshada2576/pigeon-finder/internal/errors"
	"github.com/harshada2576/pigeon-finder/internal/snapshot"
)

func newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review <snapshot>",
		Short: "Re-check a saved scan against the filesystem",
		Long: `Loads a snapshot written by 'pigeon scan --save', drops members that were
removed or changed size since, and reports the remaining sets.`,
		Args: cobra.ExactArgs(1),
		RunE: runReview,
	}
	cmd.Flags().StringP("keep-mode", "k", "", "Which file to keep: newest, oldest or path_length")
	cmd.Flags().Bool("write", false, "Write the refreshed snapshot back")
	return cmd
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("keep-mode") {
		cfg.KeepMode, _ = cmd.Flags().GetString("keep-mode")
	}
	mode, err := dupes.ParseKeepMode(cfg.KeepMode)
	if err != nil {
		return pferrors.Config(err.Error())
	}

	base, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer base.Sync()

	path := args[0]
	snap, err := snapshot.Load(path)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	logger := base.WithScan(snap.ScanID)

	before := snap.Summary
	stale := snap.Refresh()
	logger.Info("snapshot refreshed",
		zap.String("path", path),
		zap.Int("stale_members", stale),
		zap.Int("sets_before", before.Sets),
		zap.Int("sets_after", snap.Summary.Sets))

	fmt.Printf("Snapshot of %s taken %s with %s\n",
		snap.Root, snap.CreatedAt.Local().Format("2006-01-02 15:04:05"), snap.Algorithm)
	if stale > 0 {
		warnColor.Printf("%s changed or vanished since the scan, %d sets dropped\n",
			plural(stale, "file"), before.Sets-snap.Summary.Sets)
	}

	out := os.Stdout
	for i, set := range snap.Sets {
		original, err := dupes.SelectOriginal(set, mode)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		printSet(out, i, set, original)
	}
	fmt.Fprintln(out)
	printSummary(out, snap.Summary)

	if write, _ := cmd.Flags().GetBool("write"); write {
		if err := snapshot.Save(path, snap); err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
		color.Green("Updated %s", path)
	}
	return nil
}
